package metrics

import (
	"time"

	"github.com/cuemby/energyplan-orchestrator/internal/jobs"
)

// Collector periodically snapshots the Job Registry into JobsTotal, the
// way cuemby/warren's pkg/metrics.Collector periodically snapshots
// cluster state (nodes, services, tasks) into gauges.
type Collector struct {
	registry *jobs.Registry
	stopCh   chan struct{}
}

// NewCollector creates a Collector over registry.
func NewCollector(registry *jobs.Registry) *Collector {
	return &Collector{registry: registry, stopCh: make(chan struct{})}
}

// Start begins collecting on a 15s interval, collecting once immediately.
func (c *Collector) Start() {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts collection.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for _, kind := range []jobs.Kind{jobs.KindForecast, jobs.KindProfile, jobs.KindPypsa} {
		counts := map[jobs.Status]int{}
		for _, job := range c.registry.List(kind) {
			counts[job.Status]++
		}
		for _, status := range []jobs.Status{
			jobs.StatusQueued, jobs.StatusRunning, jobs.StatusCompleted,
			jobs.StatusFailed, jobs.StatusCancelled,
		} {
			JobsTotal.WithLabelValues(string(kind), string(status)).Set(float64(counts[status]))
		}
	}
}
