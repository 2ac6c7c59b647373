package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name    string
	healthy bool
}

func (s stubChecker) Name() string { return s.name }
func (s stubChecker) Check(ctx context.Context) Result {
	return Result{Healthy: s.healthy, CheckedAt: time.Now()}
}

func TestRegistry_AllHealthyIsHealthy(t *testing.T) {
	r := New(time.Now(), stubChecker{name: "a", healthy: true}, stubChecker{name: "b", healthy: true})
	report := r.Check(context.Background())

	assert.True(t, report.Healthy)
	assert.Len(t, report.Checks, 2)
}

func TestRegistry_OneUnhealthyFailsOverall(t *testing.T) {
	r := New(time.Now(), stubChecker{name: "a", healthy: true}, stubChecker{name: "b", healthy: false})
	report := r.Check(context.Background())

	assert.False(t, report.Healthy)
}

func TestRegistry_NoCheckersIsHealthy(t *testing.T) {
	r := New(time.Now())
	report := r.Check(context.Background())
	assert.True(t, report.Healthy)
}

func TestRegistry_UptimeReflectsStartedAt(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	r := New(started)
	report := r.Check(context.Background())
	assert.GreaterOrEqual(t, report.Uptime, time.Minute)
}

func TestExecutableChecker_MissingFileIsUnhealthy(t *testing.T) {
	c := NewExecutableChecker("forecast-worker", filepath.Join(t.TempDir(), "does-not-exist"))
	res := c.Check(context.Background())
	assert.False(t, res.Healthy)
}

func TestExecutableChecker_NonExecutableFileIsUnhealthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte("not executable"), 0o644))

	c := NewExecutableChecker("forecast-worker", path)
	res := c.Check(context.Background())
	assert.False(t, res.Healthy)
}

func TestExecutableChecker_ExecutableFileIsHealthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	c := NewExecutableChecker("forecast-worker", path)
	res := c.Check(context.Background())
	assert.True(t, res.Healthy)
}

func TestWritableDirChecker_CreatesAndProbesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	c := NewWritableDirChecker("project-root", dir)

	res := c.Check(context.Background())
	assert.True(t, res.Healthy)

	_, err := os.Stat(dir)
	assert.NoError(t, err)
}
