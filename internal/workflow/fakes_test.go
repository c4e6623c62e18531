package workflow

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"nathanbeddoewebdev/nodeprov/internal/auditlog"
	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/system"
)

// calls records mutating backend calls in order.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, s)
}

func (c *calls) with(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.log {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}

type fakePackages struct {
	calls       *calls
	installed   map[string]bool
	sources     map[string]bool
	indexed     map[string]bool
	failOn      string
	output      string
	failRefresh bool
}

func (f *fakePackages) IsInstalled(_ context.Context, name string) (bool, error) {
	return f.installed[name], nil
}

func (f *fakePackages) Install(_ context.Context, name string) error {
	f.calls.add("install " + name)
	if name == f.failOn {
		return &system.CommandError{Command: "apt-get install -y " + name, ExitCode: 100, Output: f.output}
	}
	f.installed[name] = true
	return nil
}

func (f *fakePackages) HasSource(_ context.Context, s string) (bool, error) { return f.sources[s], nil }

func (f *fakePackages) AddSource(_ context.Context, s string) error {
	f.calls.add("source " + s)
	f.sources[s] = true
	return nil
}

func (f *fakePackages) HasIndex(_ context.Context, s string) (bool, error) { return f.indexed[s], nil }

func (f *fakePackages) Refresh(context.Context) error {
	f.calls.add("refresh")
	if f.failRefresh {
		return &system.CommandError{Command: "apt-get update", ExitCode: 100, Output: "E: Some index files failed to download"}
	}
	for s := range f.sources {
		f.indexed[s] = true
	}
	return nil
}

func (f *fakePackages) Preseed(_ context.Context, selections string) error {
	f.calls.add("preseed")
	return nil
}

type fakeServices struct {
	calls    *calls
	database *fakeDatabase
	failOn   string
}

func (f *fakeServices) Restart(_ context.Context, name string) error {
	f.calls.add("restart " + name)
	if name == f.failOn {
		return &system.CommandError{Command: "service " + name + " restart", ExitCode: 1}
	}
	if name == DatabaseService {
		f.database.serving = f.database.listening
	}
	return nil
}

type fakeDatabase struct {
	calls     *calls
	password  string
	listening bool
	// serving is the listen state the running server loaded.
	serving   bool
	databases map[string]bool
	grants    map[string]bool
}

func (f *fakeDatabase) CanLogin(_ context.Context, cred domain.Secret) (bool, error) {
	return f.password != "" && cred.Reveal() == f.password, nil
}

func (f *fakeDatabase) SetCredential(_ context.Context, _ string, cred domain.Secret) error {
	f.calls.add("db set credential")
	f.password = cred.Reveal()
	return nil
}

func (f *fakeDatabase) ListensOnAll() (bool, error) { return f.listening, nil }

func (f *fakeDatabase) ListenOnAll() error {
	f.calls.add("db listen")
	f.listening = true
	return nil
}

func (f *fakeDatabase) AcceptsRemote(context.Context, domain.Secret) (bool, error) {
	return f.serving, nil
}

func (f *fakeDatabase) DatabaseExists(_ context.Context, _ domain.Secret, name string) (bool, error) {
	return f.databases[name], nil
}

func (f *fakeDatabase) CreateDatabase(_ context.Context, _ domain.Secret, name string) error {
	f.calls.add("db create " + name)
	f.databases[name] = true
	return nil
}

func (f *fakeDatabase) HasGrant(_ context.Context, _ domain.Secret, user, scope string) (bool, error) {
	return f.grants[user+" "+scope], nil
}

func (f *fakeDatabase) GrantAccess(_ context.Context, _ domain.Secret, user, scope string) error {
	f.calls.add("db grant " + user + " " + scope)
	f.grants[user+" "+scope] = true
	return nil
}

func (f *fakeDatabase) RunMigration(context.Context) error {
	f.calls.add("db migrate")
	return nil
}

type fakeCloud struct {
	calls    *calls
	host     *fakeHost
	users    map[string]bool
	projects map[string]bool
	networks map[string]bool
	rules    map[system.IngressRule]bool
}

func (f *fakeCloud) UserExists(_ context.Context, n string) (bool, error) { return f.users[n], nil }

func (f *fakeCloud) CreateAdmin(_ context.Context, n string) error {
	f.calls.add("cloud admin " + n)
	f.users[n] = true
	return nil
}

func (f *fakeCloud) ProjectExists(_ context.Context, n string) (bool, error) { return f.projects[n], nil }

func (f *fakeCloud) CreateProject(_ context.Context, project, _ string) error {
	f.calls.add("cloud project " + project)
	f.projects[project] = true
	return nil
}

func (f *fakeCloud) NetworkExists(_ context.Context, cidr string) (bool, error) {
	return f.networks[cidr], nil
}

func (f *fakeCloud) CreateNetworks(_ context.Context, cidr string, _, _ int) error {
	f.calls.add("cloud networks " + cidr)
	f.networks[cidr] = true
	return nil
}

func (f *fakeCloud) ExportCredentials(_ context.Context, _, _, zipPath string) error {
	f.calls.add("cloud export")
	f.host.files[zipPath] = fakeFile{content: "zip"}
	return nil
}

func (f *fakeCloud) HasIngressRule(_ context.Context, r system.IngressRule) (bool, error) {
	return f.rules[r], nil
}

func (f *fakeCloud) AuthorizeIngress(_ context.Context, r system.IngressRule) error {
	f.calls.add("cloud ingress " + r.Protocol)
	f.rules[r] = true
	return nil
}

type fakeFirewall struct {
	calls *calls
	rules map[string]bool
}

func ruleKey(r system.Rule) string { return r.Table + " " + r.Chain + " " + strings.Join(r.Spec, " ") }

func (f *fakeFirewall) HasRule(_ context.Context, r system.Rule) (bool, error) {
	return f.rules[ruleKey(r)], nil
}

func (f *fakeFirewall) AddRule(_ context.Context, r system.Rule) error {
	f.calls.add("firewall " + ruleKey(r))
	f.rules[ruleKey(r)] = true
	return nil
}

type fakeNetwork struct {
	calls *calls
	fail  bool
	up    bool
}

func (f *fakeNetwork) RestartNetworking(context.Context) error {
	f.calls.add("restart networking")
	if f.fail {
		return &system.CommandError{Command: "/etc/init.d/networking restart", ExitCode: 1}
	}
	f.up = true
	return nil
}

func (f *fakeNetwork) BridgeUp(context.Context, string, string) (bool, error) { return f.up, nil }

type fakeFile struct {
	content string
	perm    os.FileMode
	group   string
	dir     bool
}

type fakeHost struct {
	calls   *calls
	files   map[string]fakeFile
	groups  map[string][]string
	devices map[string]fakeFile
	sysctl  map[string]string
}

func (f *fakeHost) Exists(path string) (bool, error) {
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeHost) FileMatches(path string, content []byte, perm os.FileMode, group string) (bool, error) {
	got, ok := f.files[path]
	return ok && !got.dir && got.content == string(content) && got.perm == perm && got.group == group, nil
}

func (f *fakeHost) WriteFile(path string, content []byte, perm os.FileMode, group string) error {
	f.calls.add("write " + path)
	f.files[path] = fakeFile{content: string(content), perm: perm, group: group}
	return nil
}

func (f *fakeHost) DirMatches(path string, perm os.FileMode) (bool, error) {
	got, ok := f.files[path]
	return ok && got.dir && got.perm == perm, nil
}

func (f *fakeHost) MakeDir(path string, perm os.FileMode) error {
	f.calls.add("mkdir " + path)
	f.files[path] = fakeFile{perm: perm, dir: true}
	return nil
}

func (f *fakeHost) Extract(_ context.Context, _, dir string) error {
	f.calls.add("extract")
	f.files[dir+"/"+system.RCFile] = fakeFile{content: "export EC2_URL=x"}
	return nil
}

func (f *fakeHost) IsMember(_ context.Context, user, group string) (bool, error) {
	members, ok := f.groups[group]
	if !ok {
		return false, system.ErrGroupNotFound
	}
	for _, m := range members {
		if m == user {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHost) AddToGroup(_ context.Context, user, group string) error {
	f.calls.add("usermod " + user + " " + group)
	f.groups[group] = append(f.groups[group], user)
	return nil
}

func (f *fakeHost) DeviceAccess(path, group string, perm os.FileMode) (bool, error) {
	d, ok := f.devices[path]
	if !ok {
		return false, errors.New("no such device")
	}
	return d.group == group && d.perm == perm, nil
}

func (f *fakeHost) SetDeviceAccess(path, group string, perm os.FileMode) error {
	f.calls.add("device " + path)
	f.devices[path] = fakeFile{group: group, perm: perm}
	return nil
}

func (f *fakeHost) Sysctl(key string) (string, error) { return f.sysctl[key], nil }

func (f *fakeHost) SetSysctl(_ context.Context, key, value string) error {
	f.calls.add("sysctl " + key)
	f.sysctl[key] = value
	return nil
}

// fakeHostSystem bundles every fake over one shared call log.
type fakeHostSystem struct {
	calls    *calls
	packages *fakePackages
	host     *fakeHost
	firewall *fakeFirewall
	database *fakeDatabase
	cloud    *fakeCloud
	services *fakeServices
	network  *fakeNetwork
}

func newFakeHostSystem() *fakeHostSystem {
	c := &calls{}
	host := &fakeHost{
		calls:   c,
		files:   map[string]fakeFile{},
		groups:  map[string][]string{LibvirtGroup: nil},
		devices: map[string]fakeFile{KVMDevice: {group: "root", perm: 0o600}},
		sysctl:  map[string]string{ForwardingSysctl: "0"},
	}
	database := &fakeDatabase{calls: c, databases: map[string]bool{}, grants: map[string]bool{}}
	return &fakeHostSystem{
		calls: c,
		packages: &fakePackages{
			calls: c, installed: map[string]bool{}, sources: map[string]bool{}, indexed: map[string]bool{},
		},
		host:     host,
		firewall: &fakeFirewall{calls: c, rules: map[string]bool{}},
		database: database,
		services: &fakeServices{calls: c, database: database},
		network:  &fakeNetwork{calls: c},
		cloud: &fakeCloud{
			calls: c, host: host,
			users: map[string]bool{}, projects: map[string]bool{}, networks: map[string]bool{},
			rules: map[system.IngressRule]bool{},
		},
	}
}

func (s *fakeHostSystem) backends() system.Backends {
	return system.Backends{
		Packages: s.packages,
		Services: s.services,
		Database: s.database,
		Cloud:    s.cloud,
		Firewall: s.firewall,
		Network:  s.network,
		Host:     s.host,
	}
}

// memoryAudit is an in-memory AuditLog.
type memoryAudit struct {
	entries   []auditlog.AuditEntry
	secrets   []string
	finalized int
}

func (m *memoryAudit) Record(e auditlog.AuditEntry) { m.entries = append(m.entries, e) }

func (m *memoryAudit) AddSecret(s string) { m.secrets = append(m.secrets, s) }

func (m *memoryAudit) Finalize(outcome, detail string) error {
	m.finalized++
	m.entries = append(m.entries, auditlog.AuditEntry{Action: auditlog.ActionFinalize, Outcome: outcome, Detail: detail})
	return nil
}

// find returns the first entry recorded for action.
func (m *memoryAudit) find(action string) (auditlog.AuditEntry, bool) {
	for _, e := range m.entries {
		if e.Action == action {
			return e, true
		}
	}
	return auditlog.AuditEntry{}, false
}

func (m *memoryAudit) outcomes(outcome string) []auditlog.AuditEntry {
	var out []auditlog.AuditEntry
	for _, e := range m.entries {
		if e.Outcome == outcome {
			out = append(out, e)
		}
	}
	return out
}

// planCollector returns a fixed plan, or err.
type planCollector struct {
	plan *domain.Plan
	err  error
}

func (p planCollector) Collect(context.Context, domain.Role) (*domain.Plan, error) {
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.plan
	return &cp, nil
}

// recordingObserver remembers the states it saw.
type recordingObserver struct {
	states  []string
	results int
}

func (r *recordingObserver) StateEntered(state string, _, _ int) { r.states = append(r.states, state) }
func (r *recordingObserver) ActionDone(domain.Result)             { r.results++ }
