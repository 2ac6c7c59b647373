package health

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ExecutableChecker verifies a compute worker's configured executable
// path exists and is executable, so a misconfigured worker path shows up
// at `/health` before a job ever tries to spawn it. Adapted from
// cuemby/warren's pkg/health.ExecChecker, which ran an arbitrary command
// and inspected its exit code; here the check is narrowed to a stat-based
// probe since there is nothing useful to execute ahead of time.
type ExecutableChecker struct {
	name string
	path string
}

// NewExecutableChecker creates a checker named name for the executable at path.
func NewExecutableChecker(name, path string) *ExecutableChecker {
	return &ExecutableChecker{name: name, path: path}
}

func (c *ExecutableChecker) Name() string {
	return c.name
}

func (c *ExecutableChecker) Check(ctx context.Context) Result {
	start := time.Now()

	fi, err := os.Stat(c.path)
	if err != nil {
		return Result{Healthy: false, Message: fmt.Sprintf("worker executable not found: %v", err), CheckedAt: start, Duration: time.Since(start)}
	}
	if fi.IsDir() {
		return Result{Healthy: false, Message: fmt.Sprintf("worker executable path %s is a directory", c.path), CheckedAt: start, Duration: time.Since(start)}
	}
	if fi.Mode()&0o111 == 0 {
		return Result{Healthy: false, Message: fmt.Sprintf("worker executable %s is not executable", c.path), CheckedAt: start, Duration: time.Since(start)}
	}

	return Result{Healthy: true, Message: "executable present", CheckedAt: start, Duration: time.Since(start)}
}
