//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Isolate places cmd in its own process group so KillProcessGroup reaches
// every child it spawns. Must be called before cmd.Start.
func Isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; exec.Cmd.WaitDelay closes pipes if a child survives.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
