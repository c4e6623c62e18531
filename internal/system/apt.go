package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nathanbeddoewebdev/nodeprov/internal/retry"
)

// DefaultSourcesDir is where apt keeps additional source lists.
const DefaultSourcesDir = "/etc/apt/sources.list.d"

// DefaultListsDir is where apt stores the fetched package indexes.
const DefaultListsDir = "/var/lib/apt/lists"

// Apt implements PackageManager with dpkg and apt-get.
type Apt struct {
	exec       Executor
	sourcesDir string
	listsDir   string
	retry      retry.Policy
}

// NewApt returns an apt-backed package manager. An empty sourcesDir
// selects DefaultSourcesDir.
func NewApt(exec Executor, sourcesDir string) *Apt {
	if sourcesDir == "" {
		sourcesDir = DefaultSourcesDir
	}
	return &Apt{exec: exec, sourcesDir: sourcesDir, listsDir: DefaultListsDir, retry: retry.DefaultPolicy()}
}

// lockHeld matches apt-get failing because another process holds the
// dpkg or list lock.
func lockHeld(err error) bool {
	var cerr *CommandError
	if !errors.As(err, &cerr) || cerr.ExitCode != 100 {
		return false
	}
	return strings.Contains(cerr.Output, "Could not get lock")
}

func (a *Apt) aptGet(ctx context.Context, args ...string) error {
	return retry.Do(context.WithoutCancel(ctx), a.retry, lockHeld, func() error {
		_, err := a.exec.Run(ctx, Command{Name: "apt-get", Args: args})
		return err
	})
}

// IsInstalled asks dpkg for the package status. Unknown packages are
// reported as not installed.
func (a *Apt) IsInstalled(ctx context.Context, name string) (bool, error) {
	out, err := a.exec.Run(ctx, Command{
		Name: "dpkg-query",
		Args: []string{"-W", "-f=${Status}", name},
	})
	if err != nil {
		if ExitCode(err) == 1 {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(string(out), "install ok installed"), nil
}

func (a *Apt) Install(ctx context.Context, name string) error {
	return a.aptGet(ctx, "install", "-y", "--no-install-recommends", name)
}

// HasSource reports whether any source list mentions source. Launchpad
// "ppa:owner/name" shorthands are matched against their archive URL.
func (a *Apt) HasSource(_ context.Context, source string) (bool, error) {
	needle := sourceNeedle(source)
	entries, err := os.ReadDir(a.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("apt: read %s: %w", a.sourcesDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".list") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.sourcesDir, e.Name()))
		if err != nil {
			return false, fmt.Errorf("apt: read %s: %w", e.Name(), err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "#") {
				continue
			}
			if strings.Contains(line, needle) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (a *Apt) AddSource(ctx context.Context, source string) error {
	_, err := a.exec.Run(ctx, Command{Name: "add-apt-repository", Args: []string{"-y", source}})
	return err
}

// HasIndex looks for a fetched Packages list named after the archive of
// source.
func (a *Apt) HasIndex(_ context.Context, source string) (bool, error) {
	prefix := indexPrefix(source) + "_"
	entries, err := os.ReadDir(a.listsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("apt: read %s: %w", a.listsDir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.Contains(name, "_Packages") {
			return true, nil
		}
	}
	return false, nil
}

func (a *Apt) Refresh(ctx context.Context) error {
	return a.aptGet(ctx, "update")
}

func (a *Apt) Preseed(ctx context.Context, selections string) error {
	_, err := a.exec.Run(ctx, Command{Name: "debconf-set-selections", Stdin: selections})
	return err
}

func sourceNeedle(source string) string {
	if rest, ok := strings.CutPrefix(source, "ppa:"); ok {
		return "ppa.launchpad.net/" + rest
	}
	return source
}

// indexPrefix is the list file name apt derives from the archive URL of
// source: the scheme dropped and every "/" replaced by "_".
func indexPrefix(source string) string {
	archive := sourceNeedle(source)
	for _, f := range strings.Fields(source) {
		if rest, ok := strings.CutPrefix(f, "http://"); ok {
			archive = rest
			break
		}
		if rest, ok := strings.CutPrefix(f, "https://"); ok {
			archive = rest
			break
		}
	}
	return strings.ReplaceAll(strings.TrimSuffix(archive, "/"), "/", "_")
}

// SysV restarts services through the service(8) wrapper.
type SysV struct {
	exec Executor
}

// NewSysV returns a ServiceSupervisor backed by service(8).
func NewSysV(exec Executor) *SysV { return &SysV{exec: exec} }

func (s *SysV) Restart(ctx context.Context, name string) error {
	_, err := s.exec.Run(ctx, Command{Name: "service", Args: []string{name, "restart"}})
	return err
}

// Networking restarts the interface definitions through the init script.
type Networking struct {
	exec Executor
}

// NewNetworking returns a Network backed by /etc/init.d/networking.
func NewNetworking(exec Executor) *Networking { return &Networking{exec: exec} }

func (n *Networking) RestartNetworking(ctx context.Context) error {
	_, err := n.exec.Run(ctx, Command{Name: "/etc/init.d/networking", Args: []string{"restart"}})
	return err
}

// BridgeUp lists the IPv4 addresses of name while it is up. ip exits 1
// for an unknown device.
func (n *Networking) BridgeUp(ctx context.Context, name, address string) (bool, error) {
	out, err := n.exec.Run(ctx, Command{Name: "ip", Args: []string{"-o", "-4", "addr", "show", "dev", name, "up"}})
	if err != nil {
		if ExitCode(err) == 1 {
			return false, nil
		}
		return false, err
	}
	return strings.Contains(string(out), " inet "+address+"/"), nil
}
