//go:build unix

package media

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the engine as the leader of its own process group so
// helpers it spawns are terminated with it.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminateProcessGroup sends SIGTERM to the engine's process group. If the
// group is still alive after the command's WaitDelay, os/exec kills the leader.
func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	// -pid targets the whole group; Setpgid made the engine its leader.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	return nil
}
