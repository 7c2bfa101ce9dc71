//go:build unix

package subprocess

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child in its own process group so Stop can
// signal the whole tree via a negative pid instead of just the one pid
// exec.Cmd knows about.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// processGroupID resolves the process group id Stop should signal. It
// falls back to pid itself if the group lookup fails, matching the
// pre-group-kill behaviour.
func processGroupID(pid int) int {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return pid
	}
	return pgid
}

func terminateGroup(pgid int) {
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
}

func killGroup(pgid int) {
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
