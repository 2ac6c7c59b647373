package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/energyplan-orchestrator/internal/config"
)

func TestNew_WiresAllComponents(t *testing.T) {
	cfg := config.Default()
	cfg.ProjectRoot = t.TempDir()
	cfg.CacheSweepInterval = 0
	cfg.WorkerExecutables = nil

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Shutdown()

	require.NotNil(t, a.Registry)
	require.NotNil(t, a.Supervisor)
	require.NotNil(t, a.Bus)
	require.NotNil(t, a.Cache)
	require.NotNil(t, a.Store)
	require.NotNil(t, a.Discovery)
	require.NotNil(t, a.Health)
}

func TestNew_CreatesMissingProjectRoot(t *testing.T) {
	root := t.TempDir() + "/nested/root"
	cfg := config.Default()
	cfg.ProjectRoot = root

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Shutdown()

	exists, err := a.Store.Exists(".")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNew_HealthReflectsMissingWorkerExecutable(t *testing.T) {
	cfg := config.Default()
	cfg.ProjectRoot = t.TempDir()
	cfg.WorkerExecutables = map[string]string{"forecast": "/no/such/executable"}

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Shutdown()

	report := a.Health.Check(context.Background())
	assert.False(t, report.Healthy)
}
