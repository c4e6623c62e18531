// Package preflight verifies that the host can be provisioned at all:
// the process is privileged, the platform is supported and the tools the
// workflow drives are installed.
package preflight

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"nathanbeddoewebdev/nodeprov/internal/domain"
)

// ReleaseFile identifies the distribution.
const ReleaseFile = "/etc/lsb-release"

// SupportedDistribution is the DISTRIB_ID this tool provisions.
const SupportedDistribution = "Ubuntu"

// Tool is a host binary the workflow needs before it installs anything.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string
	// Description explains what the tool is used for.
	Description string
}

// Tools returns the tools role requires.
func Tools(role domain.Role) []Tool {
	tools := []Tool{
		{Name: "apt-get", Description: "installs packages"},
		{Name: "dpkg-query", Description: "checks installed packages"},
		{Name: "service", Description: "restarts services"},
		{Name: "iptables", Description: "configures NAT and forwarding rules"},
		{Name: "getent", Description: "looks up groups"},
		{Name: "usermod", Description: "adds service users to groups"},
		{Name: "sysctl", Description: "enables IPv4 forwarding"},
		{Name: "ip", Description: "checks the network bridge"},
	}
	if role.IsController() {
		tools = append(tools, Tool{Name: "debconf-set-selections", Description: "preseeds the database password"})
	}
	return tools
}

// Checker runs the host checks. Zero values use the real host.
type Checker struct {
	Geteuid     func() int
	ReleaseFile string
	LookPath    func(string) (string, error)
}

// Run checks privilege, platform and tools in that order and returns
// the first failure as a *domain.PreconditionError.
func (c *Checker) Run(role domain.Role) error {
	if err := c.checkPrivilege(); err != nil {
		return err
	}
	if err := c.checkPlatform(); err != nil {
		return err
	}
	return c.checkTools(Tools(role))
}

func (c *Checker) checkPrivilege() error {
	geteuid := unix.Geteuid
	if c.Geteuid != nil {
		geteuid = c.Geteuid
	}
	if uid := geteuid(); uid != 0 {
		return &domain.PreconditionError{
			Kind: domain.PermissionDenied,
			Msg:  fmt.Sprintf("must be run as root (effective uid is %d)", uid),
		}
	}
	return nil
}

func (c *Checker) checkPlatform() error {
	path := c.ReleaseFile
	if path == "" {
		path = ReleaseFile
	}
	id, err := DistributionID(path)
	if err != nil {
		return &domain.PreconditionError{Kind: domain.MissingResource, Msg: "cannot identify the distribution", Err: err}
	}
	if id != SupportedDistribution {
		return &domain.PreconditionError{
			Kind: domain.MissingResource,
			Msg:  fmt.Sprintf("unsupported distribution %q (requires %s)", id, SupportedDistribution),
		}
	}
	return nil
}

func (c *Checker) checkTools(tools []Tool) error {
	lookPath := exec.LookPath
	if c.LookPath != nil {
		lookPath = c.LookPath
	}
	var missing []string
	for _, t := range tools {
		if _, err := lookPath(t.Name); err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", t.Name, t.Description))
		}
	}
	if len(missing) > 0 {
		return &domain.PreconditionError{
			Kind: domain.MissingResource,
			Msg:  "missing required tools: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// DistributionID returns the DISTRIB_ID value of an lsb-release file.
func DistributionID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s not found", path)
		}
		return "", err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(s.Text()), "=")
		if ok && key == "DISTRIB_ID" {
			return strings.Trim(value, `"'`), nil
		}
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s has no DISTRIB_ID", path)
}
