/*
Package app wires the orchestrator's components into one process.

The shape is cuemby/warren's manager.NewManager: a single constructor
that creates the project root, builds each subsystem in dependency order,
starts the subsystems that run background goroutines, and returns one
struct the rest of the process depends on; Shutdown tears them down in
reverse order. Everything raft/mTLS/DNS/ingress/secrets/ACME-specific
from that constructor has no home in this domain and is dropped — see
DESIGN.md for the per-piece accounting.
*/
package app

import (
	"runtime"
	"time"

	"github.com/cuemby/energyplan-orchestrator/internal/artifacts"
	"github.com/cuemby/energyplan-orchestrator/internal/cache"
	"github.com/cuemby/energyplan-orchestrator/internal/config"
	"github.com/cuemby/energyplan-orchestrator/internal/discovery"
	"github.com/cuemby/energyplan-orchestrator/internal/health"
	"github.com/cuemby/energyplan-orchestrator/internal/jobs"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
	"github.com/cuemby/energyplan-orchestrator/internal/metrics"
	"github.com/cuemby/energyplan-orchestrator/internal/progressbus"
	"github.com/cuemby/energyplan-orchestrator/internal/supervisor"
)

// App owns every process-wide component and their lifecycles.
type App struct {
	Config     config.Config
	Registry   *jobs.Registry
	Supervisor *supervisor.Supervisor
	Bus        *progressbus.Bus
	Cache      *cache.Cache
	Store      *artifacts.Store
	Discovery  *discovery.Index
	Health     *health.Registry

	metricsCollector *metrics.Collector
	startedAt        time.Time
}

// New builds every component from cfg and starts their background
// goroutines (cache sweeper, metrics collector). The artifact store's
// project root is created if missing, matching warren's
// os.MkdirAll(cfg.DataDir, 0755) step in NewManager.
func New(cfg config.Config) (*App, error) {
	log := logging.WithComponent("app")

	store, err := artifacts.New(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}

	registry := jobs.New()
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	sup := supervisor.New(concurrency, cfg.AdmissionQueueDepth)
	bus := progressbus.New()
	ch := cache.New(cfg.CacheSweepInterval)
	idx := discovery.New()
	if err := idx.Rescan(store); err != nil {
		log.Warn().Err(err).Msg("initial artifact rescan failed; index starts empty")
	}

	startedAt := time.Now()
	checkers := []health.Checker{
		health.NewWritableDirChecker("project-root", store.Base()),
	}
	for kind, exe := range cfg.WorkerExecutables {
		checkers = append(checkers, health.NewExecutableChecker(kind+"-worker", exe))
	}
	healthRegistry := health.New(startedAt, checkers...)

	collector := metrics.NewCollector(registry)
	collector.Start()

	log.Info().Str("projectRoot", store.Base()).Msg("app components wired")

	return &App{
		Config:           cfg,
		Registry:         registry,
		Supervisor:       sup,
		Bus:              bus,
		Cache:            ch,
		Store:            store,
		Discovery:        idx,
		Health:           healthRegistry,
		metricsCollector: collector,
		startedAt:        startedAt,
	}, nil
}

// Shutdown stops every background goroutine in the reverse of the order
// New started them, matching warren's Manager.Shutdown teardown ordering.
func (a *App) Shutdown() {
	log := logging.WithComponent("app")
	a.metricsCollector.Stop()
	a.Cache.Stop()
	log.Info().Msg("app shutdown complete")
}
