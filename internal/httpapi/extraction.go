package httpapi

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
	"github.com/cuemby/energyplan-orchestrator/internal/supervisor"
)

// extractionTimeout bounds the short-lived single-shot extraction workers
// backing the cache-population supplement (SPEC_FULL.md §4): these are
// not user-submitted jobs, so they get one fixed deadline rather than a
// per-kind configured default.
const extractionTimeout = 2 * time.Minute

// noopSink discards progress reports from a single-shot extraction
// worker; nothing subscribes to its progress, only its final result.
type noopSink struct{}

func (noopSink) OnProgress(supervisor.ProgressEvent) {}

// cachedExtraction returns the cached value under key if present
// (source "cache"), otherwise runs executable with payload as its
// argument via the Supervisor, caches a successful result under key with
// ttl, and returns it (source "script"). This backs every endpoint in
// SPEC_FULL.md §4's cache-population supplement: demand sectors, demand
// correlation, and pypsa result extraction.
func cachedExtraction(a *app.App, executable string, payload interface{}, key string, ttl time.Duration) (interface{}, string, error) {
	var cached interface{}
	if ok, err := a.Cache.Get(key, &cached); err == nil && ok {
		return cached, "cache", nil
	}

	arg, err := json.Marshal(payload)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "failed to encode extraction request", err)
	}

	id := uuid.NewString()
	if err := a.Supervisor.Start(id, "extract", executable, string(arg), extractionTimeout, noopSink{}); err != nil {
		return nil, "", err
	}

	outcome, err := a.Supervisor.Await(id)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "extraction failed", err)
	}
	if outcome.Status != supervisor.OutcomeCompleted {
		return nil, "", apperr.New(apperr.KindWorkerFailed, outcome.Err)
	}

	var result interface{}
	if len(outcome.Result) > 0 {
		_ = json.Unmarshal(outcome.Result, &result)
	}

	if err := a.Cache.Set(key, result, ttl); err != nil {
		// spec.md §7: cache set failures are logged and the uncached value
		// is still returned to the caller.
		logging.WithComponent("httpapi").Warn().Err(err).Str("key", key).Msg("failed to cache extraction result")
	}
	return result, "script", nil
}
