//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
	"time"
)

// setProcessGroup puts the child in its own process group so terminateGroup
// can signal the whole tree (the worker plus anything it shells out to)
// rather than just the immediate child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateGroup sends SIGTERM to the child's process group and escalates
// to SIGKILL if it hasn't exited within grace, the same graceful-then-
// forced sequence cuemby/warren's container runtime uses to stop a task.
func terminateGroup(cmd *exec.Cmd, grace time.Duration) {
	if cmd.Process == nil {
		return
	}
	pgid := -cmd.Process.Pid

	_ = syscall.Kill(pgid, syscall.SIGTERM)

	exited := make(chan struct{})
	go func() {
		// cmd.Wait is called by the caller's own waiter goroutine; this
		// one just polls for process death to decide whether to escalate.
		for {
			if err := syscall.Kill(pgid, 0); err != nil {
				close(exited)
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
	}()

	select {
	case <-exited:
	case <-time.After(grace):
		_ = syscall.Kill(pgid, syscall.SIGKILL)
	}
}
