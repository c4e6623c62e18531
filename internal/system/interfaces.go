package system

import (
	"context"
	"os"

	"nathanbeddoewebdev/nodeprov/internal/domain"
)

// PackageManager installs packages and manages package sources.
type PackageManager interface {
	IsInstalled(ctx context.Context, name string) (bool, error)
	Install(ctx context.Context, name string) error
	HasSource(ctx context.Context, source string) (bool, error)
	AddSource(ctx context.Context, source string) error
	// HasIndex reports whether the package index of source was fetched.
	HasIndex(ctx context.Context, source string) (bool, error)
	Refresh(ctx context.Context) error
	// Preseed loads installer answers so packages install unattended.
	Preseed(ctx context.Context, selections string) error
}

// ServiceSupervisor restarts system services.
type ServiceSupervisor interface {
	Restart(ctx context.Context, name string) error
}

// Database is the engine backing the controller's shared state. Every
// call authenticates as the engine's root user with cred.
type Database interface {
	CanLogin(ctx context.Context, cred domain.Secret) (bool, error)
	SetCredential(ctx context.Context, user string, cred domain.Secret) error
	ListensOnAll() (bool, error)
	ListenOnAll() error
	// AcceptsRemote reports whether the running server listens on every
	// address. It lags the configuration until the server restarts.
	AcceptsRemote(ctx context.Context, cred domain.Secret) (bool, error)
	DatabaseExists(ctx context.Context, cred domain.Secret, name string) (bool, error)
	CreateDatabase(ctx context.Context, cred domain.Secret, name string) error
	HasGrant(ctx context.Context, cred domain.Secret, user, scope string) (bool, error)
	GrantAccess(ctx context.Context, cred domain.Secret, user, scope string) error
	RunMigration(ctx context.Context) error
}

// IngressRule opens a protocol/port range in a security group.
type IngressRule struct {
	Group    string
	Protocol string
	// Ports is "22" or a range such as "-1:-1" for ICMP type:code.
	Ports string
}

// Cloud drives the compute cloud's management commands.
type Cloud interface {
	UserExists(ctx context.Context, name string) (bool, error)
	CreateAdmin(ctx context.Context, name string) error
	ProjectExists(ctx context.Context, name string) (bool, error)
	CreateProject(ctx context.Context, project, admin string) error
	NetworkExists(ctx context.Context, cidr string) (bool, error)
	CreateNetworks(ctx context.Context, cidr string, count, size int) error
	ExportCredentials(ctx context.Context, project, admin, zipPath string) error
	HasIngressRule(ctx context.Context, rule IngressRule) (bool, error)
	AuthorizeIngress(ctx context.Context, rule IngressRule) error
}

// Rule is a packet filter rule in a table and chain.
type Rule struct {
	Table string
	Chain string
	Spec  []string
}

// Firewall inserts packet filter rules.
type Firewall interface {
	HasRule(ctx context.Context, r Rule) (bool, error)
	AddRule(ctx context.Context, r Rule) error
}

// Network reloads the host's interface definitions.
type Network interface {
	RestartNetworking(ctx context.Context) error
	// BridgeUp reports whether the interface is up and carries address.
	BridgeUp(ctx context.Context, name, address string) (bool, error)
}

// Host covers local files, groups, devices and kernel parameters.
type Host interface {
	Exists(path string) (bool, error)
	FileMatches(path string, content []byte, perm os.FileMode, group string) (bool, error)
	WriteFile(path string, content []byte, perm os.FileMode, group string) error
	DirMatches(path string, perm os.FileMode) (bool, error)
	MakeDir(path string, perm os.FileMode) error
	Extract(ctx context.Context, zipPath, dir string) error
	IsMember(ctx context.Context, user, group string) (bool, error)
	AddToGroup(ctx context.Context, user, group string) error
	DeviceAccess(path, group string, perm os.FileMode) (bool, error)
	SetDeviceAccess(path, group string, perm os.FileMode) error
	Sysctl(key string) (string, error)
	SetSysctl(ctx context.Context, key, value string) error
}

// Backends bundles every collaborator the workflow needs.
type Backends struct {
	Packages PackageManager
	Services ServiceSupervisor
	Database Database
	Cloud    Cloud
	Firewall Firewall
	Network  Network
	Host     Host
}
