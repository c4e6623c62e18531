//go:build linux || darwin || freebsd

package system

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so a terminal interrupt
// aimed at nodeprov does not also kill a running mutation.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
