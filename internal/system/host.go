package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrGroupNotFound is returned when a group membership is checked for a
// group the host does not define.
var ErrGroupNotFound = errors.New("group not found")

// LocalHost implements Host against the running machine.
type LocalHost struct {
	exec     Executor
	procRoot string
}

// NewLocalHost returns a Host. Kernel parameters are read from /proc/sys.
func NewLocalHost(exec Executor) *LocalHost {
	return &LocalHost{exec: exec, procRoot: "/proc/sys"}
}

func (h *LocalHost) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// FileMatches reports whether path already holds content with perm and,
// when group is non-empty, belongs to group.
func (h *LocalHost) FileMatches(path string, content []byte, perm os.FileMode, group string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, nil
		}
		return false, fmt.Errorf("host: stat %s: %w", path, err)
	}
	if os.FileMode(st.Mode&0o777) != perm {
		return false, nil
	}
	if group != "" {
		gid, err := lookupGID(group)
		if err != nil {
			return false, err
		}
		if int(st.Gid) != gid {
			return false, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return bytes.Equal(data, content), nil
}

// WriteFile replaces path with content, creating parent directories. The
// data, perm and group are set on a temporary file that is renamed over
// path, so a failure leaves path untouched.
func (h *LocalHost) WriteFile(path string, content []byte, perm os.FileMode, group string) error {
	gid := -1
	if group != "" {
		var err error
		if gid, err = lookupGID(group); err != nil {
			return err
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("host: create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("host: write %s: %w", path, err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	_, err = tmp.Write(content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("host: write %s: %w", path, err)
	}
	if err := os.Chmod(name, perm); err != nil {
		return fmt.Errorf("host: chmod %s: %w", path, err)
	}
	if gid >= 0 {
		if err := os.Chown(name, -1, gid); err != nil {
			return fmt.Errorf("host: chown %s: %w", path, err)
		}
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("host: replace %s: %w", path, err)
	}
	return nil
}

func (h *LocalHost) DirMatches(path string, perm os.FileMode) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir() && info.Mode().Perm() == perm, nil
}

func (h *LocalHost) MakeDir(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("host: mkdir %s: %w", path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("host: chmod %s: %w", path, err)
	}
	return nil
}

func (h *LocalHost) Extract(ctx context.Context, zipPath, dir string) error {
	_, err := h.exec.Run(ctx, Command{Name: "unzip", Args: []string{"-o", zipPath, "-d", dir}})
	return err
}

// IsMember reads the group database through getent. A missing group is
// an error, not a negative answer.
func (h *LocalHost) IsMember(ctx context.Context, name, group string) (bool, error) {
	out, err := h.exec.Run(ctx, Command{Name: "getent", Args: []string{"group", group}})
	if err != nil {
		if ExitCode(err) == 2 {
			return false, fmt.Errorf("host: %s: %w", group, ErrGroupNotFound)
		}
		return false, err
	}
	return groupHasMember(strings.TrimSpace(string(out)), name), nil
}

func (h *LocalHost) AddToGroup(ctx context.Context, name, group string) error {
	_, err := h.exec.Run(ctx, Command{Name: "usermod", Args: []string{"-a", "-G", group, name}})
	return err
}

// DeviceAccess reports whether path is owned by group with perm.
func (h *LocalHost) DeviceAccess(path, group string, perm os.FileMode) (bool, error) {
	gid, err := lookupGID(group)
	if err != nil {
		return false, err
	}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, fmt.Errorf("host: stat %s: %w", path, err)
	}
	return int(st.Gid) == gid && os.FileMode(st.Mode&0o777) == perm, nil
}

func (h *LocalHost) SetDeviceAccess(path, group string, perm os.FileMode) error {
	gid, err := lookupGID(group)
	if err != nil {
		return err
	}
	if err := os.Chown(path, -1, gid); err != nil {
		return fmt.Errorf("host: chgrp %s: %w", path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("host: chmod %s: %w", path, err)
	}
	return nil
}

// Sysctl reads a kernel parameter such as "net.ipv4.ip_forward".
func (h *LocalHost) Sysctl(key string) (string, error) {
	path := filepath.Join(h.procRoot, strings.ReplaceAll(key, ".", "/"))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("host: read %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (h *LocalHost) SetSysctl(ctx context.Context, key, value string) error {
	_, err := h.exec.Run(ctx, Command{Name: "sysctl", Args: []string{"-w", key + "=" + value}})
	return err
}

func lookupGID(group string) (int, error) {
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, fmt.Errorf("host: lookup group %s: %w", group, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("host: group %s has non-numeric gid %q", group, g.Gid)
	}
	return gid, nil
}

// groupHasMember parses a "name:x:gid:a,b,c" group line.
func groupHasMember(line, name string) bool {
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 4 {
		return false
	}
	for _, m := range strings.Split(parts[3], ",") {
		if strings.TrimSpace(m) == name {
			return true
		}
	}
	return false
}
