package system

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RCFile is the shell environment file inside an exported credentials
// bundle.
const RCFile = "novarc"

// NovaManage implements Cloud with nova-manage and the euca2ools client.
type NovaManage struct {
	exec           Executor
	credentialsDir string
}

// NewNovaManage returns a Cloud backend. Security group commands read
// their endpoint and keys from credentialsDir/novarc.
func NewNovaManage(exec Executor, credentialsDir string) *NovaManage {
	return &NovaManage{exec: exec, credentialsDir: credentialsDir}
}

func (n *NovaManage) manage(ctx context.Context, args ...string) (string, error) {
	out, err := n.exec.Run(ctx, Command{Name: "nova-manage", Args: args})
	return string(out), err
}

func (n *NovaManage) UserExists(ctx context.Context, name string) (bool, error) {
	out, err := n.manage(ctx, "user", "list")
	if err != nil {
		return false, err
	}
	return hasFirstField(out, name), nil
}

func (n *NovaManage) CreateAdmin(ctx context.Context, name string) error {
	_, err := n.manage(ctx, "user", "admin", name)
	return err
}

func (n *NovaManage) ProjectExists(ctx context.Context, name string) (bool, error) {
	out, err := n.manage(ctx, "project", "list")
	if err != nil {
		return false, err
	}
	return hasFirstField(out, name), nil
}

func (n *NovaManage) CreateProject(ctx context.Context, project, admin string) error {
	_, err := n.manage(ctx, "project", "create", project, admin)
	return err
}

// NetworkExists reports whether a network starting at cidr's base
// address has been created.
func (n *NovaManage) NetworkExists(ctx context.Context, cidr string) (bool, error) {
	out, err := n.manage(ctx, "network", "list")
	if err != nil {
		return false, err
	}
	base, _, _ := strings.Cut(cidr, "/")
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == cidr || strings.HasPrefix(fields[0], base+"/") {
			return true, nil
		}
	}
	return false, nil
}

func (n *NovaManage) CreateNetworks(ctx context.Context, cidr string, count, size int) error {
	_, err := n.manage(ctx, "network", "create", cidr, strconv.Itoa(count), strconv.Itoa(size))
	return err
}

func (n *NovaManage) ExportCredentials(ctx context.Context, project, admin, zipPath string) error {
	_, err := n.manage(ctx, "project", "zipfile", project, admin, zipPath)
	return err
}

// HasIngressRule looks for a PERMISSION line matching rule in the
// group description.
func (n *NovaManage) HasIngressRule(ctx context.Context, rule IngressRule) (bool, error) {
	env, err := n.rcEnv()
	if err != nil {
		return false, err
	}
	out, err := n.exec.Run(ctx, Command{Name: "euca-describe-groups", Args: []string{rule.Group}, Env: env})
	if err != nil {
		return false, err
	}
	from, to := portBounds(rule.Ports)
	for _, line := range strings.Split(string(out), "\n") {
		f := strings.Fields(line)
		if len(f) < 7 || f[0] != "PERMISSION" {
			continue
		}
		if f[2] == rule.Group && f[4] == rule.Protocol && f[5] == from && f[6] == to {
			return true, nil
		}
	}
	return false, nil
}

func (n *NovaManage) AuthorizeIngress(ctx context.Context, rule IngressRule) error {
	env, err := n.rcEnv()
	if err != nil {
		return err
	}
	args := []string{"-P", rule.Protocol}
	if rule.Protocol == "icmp" {
		args = append(args, "-t", rule.Ports)
	} else {
		args = append(args, "-p", rule.Ports)
	}
	args = append(args, rule.Group)
	_, err = n.exec.Run(ctx, Command{Name: "euca-authorize", Args: args, Env: env})
	return err
}

func (n *NovaManage) rcEnv() ([]string, error) {
	path := filepath.Join(n.credentialsDir, RCFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nova: open credentials %s: %w", path, err)
	}
	defer f.Close()
	return ParseRC(f)
}

// ParseRC extracts KEY=VALUE pairs from "export KEY=VALUE" lines,
// unquoting values. Other lines are ignored.
func ParseRC(r io.Reader) ([]string, error) {
	var env []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(line, "export ")
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimSpace(rest), "=")
		if !ok || key == "" {
			continue
		}
		value = strings.Trim(value, `"'`)
		env = append(env, key+"="+value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("nova: read credentials: %w", err)
	}
	return env, nil
}

func hasFirstField(out, name string) bool {
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) > 0 && f[0] == name {
			return true
		}
	}
	return false
}

func portBounds(ports string) (string, string) {
	from, to, ok := strings.Cut(ports, ":")
	if !ok {
		return ports, ports
	}
	return from, to
}
