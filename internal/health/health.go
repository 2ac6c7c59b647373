/*
Package health implements the composite health reporting backing
`GET /health` (spec.md §6: "liveness + basic process stats").

The Checker interface and Result shape are kept from cuemby/warren's
pkg/health, trimmed of the container-specific retry/start-period state
tracking (ConsecutiveFailures, StartPeriod) that belonged to a background
per-container health monitor — this system's health endpoint runs its
checks synchronously on each request rather than polling on an interval.
*/
package health

import (
	"context"
	"runtime"
	"time"
)

// Result is the outcome of one health check.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker performs one named health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// Report is the aggregate outcome of every registered check, plus basic
// process stats.
type Report struct {
	Healthy    bool              `json:"healthy"`
	StartedAt  time.Time         `json:"startedAt"`
	Uptime     time.Duration     `json:"uptimeNanoseconds"`
	Goroutines int               `json:"goroutines"`
	Checks     map[string]Result `json:"checks"`
}

// Registry runs a fixed set of checks and aggregates their results.
type Registry struct {
	startedAt time.Time
	checkers  []Checker
}

// New creates a Registry. startedAt is recorded once, at process start,
// to compute uptime in every subsequent Report.
func New(startedAt time.Time, checkers ...Checker) *Registry {
	return &Registry{startedAt: startedAt, checkers: checkers}
}

// Check runs every registered checker and returns the aggregate Report.
// Overall health is the conjunction of every individual check; an empty
// checker set is reported healthy (liveness alone).
func (r *Registry) Check(ctx context.Context) Report {
	results := make(map[string]Result, len(r.checkers))
	healthy := true
	for _, c := range r.checkers {
		res := c.Check(ctx)
		results[c.Name()] = res
		if !res.Healthy {
			healthy = false
		}
	}

	return Report{
		Healthy:    healthy,
		StartedAt:  r.startedAt,
		Uptime:     time.Since(r.startedAt),
		Goroutines: runtime.NumGoroutine(),
		Checks:     results,
	}
}
