package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/render"
	"nathanbeddoewebdev/nodeprov/internal/runner"
	"nathanbeddoewebdev/nodeprov/internal/system"
)

// Names and modes of the resources the steps manage.
const (
	SourceToolsPackage = "python-software-properties"
	DatabaseName       = "nova"
	DatabaseUser       = "root"
	DatabaseService    = "mysql"
	RemoteRoot         = "root@%"
	ServiceUser        = "nova"
	ServiceGroup       = "nova"
	LibvirtGroup       = "libvirtd"
	KVMDevice          = "/dev/kvm"
	KVMGroup           = "kvm"
	ForwardingSysctl   = "net.ipv4.ip_forward"
	CredentialsZip     = "nova.zip"

	ServiceConfigMode  os.FileMode = 0o640
	InterfacesMode     os.FileMode = 0o644
	CredentialsDirMode os.FileMode = 0o700
	StateDirMode       os.FileMode = 0o755
	KVMDeviceMode      os.FileMode = 0o660
)

// StateDirs are the working directories named in the service config.
var StateDirs = []string{"/var/lib/nova", "/var/lock/nova", "/var/log/nova"}

// DefaultIngress is opened in the default security group.
var DefaultIngress = []system.IngressRule{
	{Group: "default", Protocol: "icmp", Ports: "-1:-1"},
	{Group: "default", Protocol: "tcp", Ports: "22"},
}

func (o *Orchestrator) step(ctx context.Context, st State) error {
	switch st {
	case DependenciesResolved:
		return o.resolveDependencies(ctx)
	case InputCollected:
		return o.collectInput(ctx)
	case PackagesInstalled:
		return o.installPackages(ctx)
	case ConfigWritten:
		return o.writeConfig(ctx)
	case DatabaseInitialized:
		return o.initDatabase(ctx)
	case CredentialsGenerated:
		return o.generateCredentials(ctx)
	case NetworkConfigured:
		return o.configureNetwork(ctx)
	case ServicesRestarted:
		return o.restartServices(ctx)
	case FirewallConfigured:
		return o.configureFirewall(ctx)
	case NetworkingWorkaroundApplied:
		return o.enableForwarding(ctx)
	case KvmPermissionsFixed:
		return o.fixKVMPermissions(ctx)
	}
	return fmt.Errorf("workflow: no step for state %s", st)
}

func (o *Orchestrator) installPackage(name string) runner.Action {
	pkgs := o.opts.Backends.Packages
	return runner.Func{
		Label: "install package " + name,
		Check: func(ctx context.Context) (bool, error) { return pkgs.IsInstalled(ctx, name) },
		Do:    func(ctx context.Context) error { return pkgs.Install(ctx, name) },
	}
}

func (o *Orchestrator) resolveDependencies(ctx context.Context) error {
	pkgs := o.opts.Backends.Packages
	source := o.opts.PackageSource

	if _, err := o.perform(ctx, o.installPackage(SourceToolsPackage)); err != nil {
		return err
	}
	return o.performAll(ctx,
		runner.Func{
			Label: "add package source " + source,
			Check: func(ctx context.Context) (bool, error) { return pkgs.HasSource(ctx, source) },
			Do:    func(ctx context.Context) error { return pkgs.AddSource(ctx, source) },
		},
		runner.Func{
			Label: "refresh package index",
			Check: func(ctx context.Context) (bool, error) { return pkgs.HasIndex(ctx, source) },
			Do:    pkgs.Refresh,
		},
	)
}

func (o *Orchestrator) collectInput(ctx context.Context) error {
	plan, err := o.opts.Collect.Collect(ctx, o.opts.Role)
	if err != nil {
		return err
	}
	o.audit.AddSecret(plan.DBPassword.Reveal())
	o.plan = plan
	o.logger.Info("input collected",
		zap.String("controller", plan.ControllerAddr),
		zap.String("bridge", plan.Bridge.Address))
	return nil
}

func (o *Orchestrator) installPackages(ctx context.Context) error {
	pkgs := o.opts.Backends.Packages
	set := domain.PackagesFor(o.opts.Role)

	if o.opts.Role.IsController() {
		pw := o.plan.DBPassword
		if _, err := o.perform(ctx, runner.Func{
			Label: "preseed database root password",
			Check: func(ctx context.Context) (bool, error) { return pkgs.IsInstalled(ctx, "mysql-server") },
			Do: func(ctx context.Context) error {
				return pkgs.Preseed(ctx, DatabaseSelections(pw))
			},
		}); err != nil {
			return err
		}
	}
	for _, name := range set.Names() {
		if _, err := o.perform(ctx, o.installPackage(name)); err != nil {
			return err
		}
	}
	return nil
}

// DatabaseSelections are the debconf answers that let the database server
// install without asking for its root password.
func DatabaseSelections(pw domain.Secret) string {
	return fmt.Sprintf("mysql-server mysql-server/root_password password %[1]s\n"+
		"mysql-server mysql-server/root_password_again password %[1]s\n", pw.Reveal())
}

func (o *Orchestrator) writeFile(path string, content []byte, perm os.FileMode, group string) runner.Action {
	host := o.opts.Backends.Host
	return runner.Func{
		Label: "write " + path,
		Check: func(context.Context) (bool, error) { return host.FileMatches(path, content, perm, group) },
		Do:    func(context.Context) error { return host.WriteFile(path, content, perm, group) },
	}
}

func (o *Orchestrator) makeDir(path string, perm os.FileMode) runner.Action {
	host := o.opts.Backends.Host
	return runner.Func{
		Label: "create directory " + path,
		Check: func(context.Context) (bool, error) { return host.DirMatches(path, perm) },
		Do:    func(context.Context) error { return host.MakeDir(path, perm) },
	}
}

// renderFailure records a renderer error as a failed action and reports
// it the same way a tool failure is reported.
func (o *Orchestrator) renderFailure(ctx context.Context, action string, err error) error {
	res := o.runner.Fail(ctx, action, err)
	return &domain.ActionFailure{State: o.state.String(), Action: res.Action, Reason: res.Reason}
}

func (o *Orchestrator) writeConfig(ctx context.Context) error {
	body, err := render.ServiceConfig(o.plan, o.opts.Role)
	if err != nil {
		return o.renderFailure(ctx, "render service config", err)
	}
	for _, dir := range StateDirs {
		if _, err := o.perform(ctx, o.makeDir(dir, StateDirMode)); err != nil {
			return err
		}
	}
	_, err = o.perform(ctx, o.writeFile(o.opts.Paths.ServiceConfig, []byte(body), ServiceConfigMode, ServiceGroup))
	return err
}

func (o *Orchestrator) initDatabase(ctx context.Context) error {
	db := o.opts.Backends.Database
	pw := o.plan.DBPassword

	return o.performAll(ctx,
		runner.Func{
			Label: "set database root credential",
			Check: func(ctx context.Context) (bool, error) { return db.CanLogin(ctx, pw) },
			Do:    func(ctx context.Context) error { return db.SetCredential(ctx, DatabaseUser, pw) },
		},
		runner.Func{
			Label: "open database to remote hosts",
			Check: func(context.Context) (bool, error) { return db.ListensOnAll() },
			Do:    func(context.Context) error { return db.ListenOnAll() },
		},
		runner.Func{
			Label: "restart database server",
			Check: func(ctx context.Context) (bool, error) { return db.AcceptsRemote(ctx, pw) },
			Do:    func(ctx context.Context) error { return o.opts.Backends.Services.Restart(ctx, DatabaseService) },
		},
		runner.Func{
			Label: "create database " + DatabaseName,
			Check: func(ctx context.Context) (bool, error) { return db.DatabaseExists(ctx, pw, DatabaseName) },
			Do:    func(ctx context.Context) error { return db.CreateDatabase(ctx, pw, DatabaseName) },
		},
		runner.Func{
			Label: "grant " + RemoteRoot + " on " + DatabaseName + ".*",
			Check: func(ctx context.Context) (bool, error) {
				return db.HasGrant(ctx, pw, RemoteRoot, DatabaseName+".*")
			},
			Do: func(ctx context.Context) error { return db.GrantAccess(ctx, pw, RemoteRoot, DatabaseName+".*") },
		},
		// The migration tool is itself idempotent and has no cheap check.
		runner.Func{
			Label: "migrate database schema",
			Do:    db.RunMigration,
		},
	)
}

func (o *Orchestrator) generateCredentials(ctx context.Context) error {
	cloud := o.opts.Backends.Cloud
	host := o.opts.Backends.Host
	plan := o.plan
	dir := o.opts.Paths.CredentialsDir
	zipPath := filepath.Join(dir, CredentialsZip)

	return o.performAll(ctx,
		runner.Func{
			Label: "create cloud admin " + plan.AdminName,
			Check: func(ctx context.Context) (bool, error) { return cloud.UserExists(ctx, plan.AdminName) },
			Do:    func(ctx context.Context) error { return cloud.CreateAdmin(ctx, plan.AdminName) },
		},
		runner.Func{
			Label: "create project " + plan.ProjectName,
			Check: func(ctx context.Context) (bool, error) { return cloud.ProjectExists(ctx, plan.ProjectName) },
			Do:    func(ctx context.Context) error { return cloud.CreateProject(ctx, plan.ProjectName, plan.AdminName) },
		},
		runner.Func{
			Label: "create project networks " + plan.Tenant.ProjectCIDR,
			Check: func(ctx context.Context) (bool, error) { return cloud.NetworkExists(ctx, plan.Tenant.ProjectCIDR) },
			Do: func(ctx context.Context) error {
				return cloud.CreateNetworks(ctx, plan.Tenant.ProjectCIDR, plan.Tenant.NetworkCount, plan.Tenant.NetworkSize)
			},
		},
		o.makeDir(dir, CredentialsDirMode),
		runner.Func{
			Label: "export credentials " + zipPath,
			Check: func(context.Context) (bool, error) { return host.Exists(zipPath) },
			Do: func(ctx context.Context) error {
				return cloud.ExportCredentials(ctx, plan.ProjectName, plan.AdminName, zipPath)
			},
		},
		runner.Func{
			Label: "unpack credentials",
			Check: func(context.Context) (bool, error) { return host.Exists(filepath.Join(dir, system.RCFile)) },
			Do:    func(ctx context.Context) error { return host.Extract(ctx, zipPath, dir) },
		},
	)
}

func (o *Orchestrator) configureNetwork(ctx context.Context) error {
	body, err := render.Interfaces(o.plan)
	if err != nil {
		return o.renderFailure(ctx, "render network interfaces", err)
	}
	written, err := o.perform(ctx, o.writeFile(o.opts.Paths.InterfacesFile, []byte(body), InterfacesMode, ""))
	if err != nil {
		return err
	}
	network := o.opts.Backends.Network
	if _, err := o.perform(ctx, runner.Func{
		Label: "restart networking",
		// A rewritten file always needs a restart. Otherwise the running
		// bridge shows whether an earlier restart took effect.
		Check: func(ctx context.Context) (bool, error) {
			if written.Outcome == domain.OutcomeApplied {
				return false, nil
			}
			return network.BridgeUp(ctx, render.BridgeName, o.plan.Bridge.Address)
		},
		Do: network.RestartNetworking,
	}); err != nil {
		return err
	}

	if o.opts.Role.IsController() {
		return nil
	}
	fw := o.opts.Backends.Firewall
	rule := system.MetadataRedirect(o.plan.ControllerAddr)
	_, err = o.perform(ctx, runner.Func{
		Label: "redirect metadata service to " + o.plan.ControllerAddr,
		Check: func(ctx context.Context) (bool, error) { return fw.HasRule(ctx, rule) },
		Do:    func(ctx context.Context) error { return fw.AddRule(ctx, rule) },
	})
	return err
}

func (o *Orchestrator) restartServices(ctx context.Context) error {
	svc := o.opts.Backends.Services
	for _, name := range domain.ServicesFor(o.opts.Role) {
		if _, err := o.perform(ctx, runner.Func{
			Label: "restart service " + name,
			Do:    func(ctx context.Context) error { return svc.Restart(ctx, name) },
		}); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) configureFirewall(ctx context.Context) error {
	cloud := o.opts.Backends.Cloud
	for _, rule := range DefaultIngress {
		if _, err := o.perform(ctx, runner.Func{
			Label: fmt.Sprintf("allow %s %s in group %s", rule.Protocol, rule.Ports, rule.Group),
			Check: func(ctx context.Context) (bool, error) { return cloud.HasIngressRule(ctx, rule) },
			Do:    func(ctx context.Context) error { return cloud.AuthorizeIngress(ctx, rule) },
		}); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) enableForwarding(ctx context.Context) error {
	host := o.opts.Backends.Host
	_, err := o.perform(ctx, runner.Func{
		Label: "enable IPv4 forwarding",
		Check: func(context.Context) (bool, error) {
			v, err := host.Sysctl(ForwardingSysctl)
			return v == "1", err
		},
		Do: func(ctx context.Context) error { return host.SetSysctl(ctx, ForwardingSysctl, "1") },
	})
	return err
}

func (o *Orchestrator) fixKVMPermissions(ctx context.Context) error {
	host := o.opts.Backends.Host
	return o.performAll(ctx,
		runner.Func{
			Label: "add " + ServiceUser + " to group " + LibvirtGroup,
			Check: func(ctx context.Context) (bool, error) { return host.IsMember(ctx, ServiceUser, LibvirtGroup) },
			Do:    func(ctx context.Context) error { return host.AddToGroup(ctx, ServiceUser, LibvirtGroup) },
		},
		runner.Func{
			Label: "grant " + KVMGroup + " access to " + KVMDevice,
			Check: func(context.Context) (bool, error) { return host.DeviceAccess(KVMDevice, KVMGroup, KVMDeviceMode) },
			Do:    func(context.Context) error { return host.SetDeviceAccess(KVMDevice, KVMGroup, KVMDeviceMode) },
		},
	)
}
