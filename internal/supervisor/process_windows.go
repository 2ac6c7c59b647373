//go:build windows

package supervisor

import (
	"os/exec"
	"time"
)

// setProcessGroup is a no-op on windows; Go's exec.Cmd.Process.Kill is used
// directly instead of process-group signaling.
func setProcessGroup(cmd *exec.Cmd) {}

// terminateGroup kills the child directly. Windows has no SIGTERM, so
// there is no graceful phase; grace is accepted for signature symmetry
// with the unix implementation and ignored.
func terminateGroup(cmd *exec.Cmd, grace time.Duration) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
