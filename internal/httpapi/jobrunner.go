package httpapi

import (
	"encoding/json"
	"time"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/jobs"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
	"github.com/cuemby/energyplan-orchestrator/internal/progressbus"
	"github.com/cuemby/energyplan-orchestrator/internal/supervisor"
)

// minTimeout and maxTimeout bound a request's per-job timeout override,
// per spec.md §6: "default timeouts per kind... overridable per request
// within sane bounds". minTimeout stays well under a second so a
// sub-second override (e.g. Scenario B's 100ms) is honored rather than
// stretched up to a full second.
const (
	minTimeout = 10 * time.Millisecond
	maxTimeout = time.Hour
)

// clampTimeout resolves a request's optional override against d, the
// kind's configured default.
func clampTimeout(override time.Duration, d time.Duration) time.Duration {
	if override <= 0 {
		return d
	}
	if override < minTimeout {
		return minTimeout
	}
	if override > maxTimeout {
		return maxTimeout
	}
	return override
}

// progressSink adapts the Supervisor's progress callbacks into Registry
// updates and Progress Bus publications, the "explicit sink abstraction"
// spec.md §9 calls for in place of the source's onProgress callback.
type progressSink struct {
	registry *jobs.Registry
	bus      *progressbus.Bus
	kind     jobs.Kind
	jobID    string
}

func (s *progressSink) OnProgress(ev supervisor.ProgressEvent) {
	_ = s.registry.UpdateProgress(s.kind, s.jobID, ev.Progress, ev.Step, ev.Status)
	s.bus.Publish(progressbus.RoomName(string(s.kind), s.jobID), progressbus.Event{
		JobID:   s.jobID,
		Type:    progressbus.EventProgress,
		Payload: ev,
	})
}

// submitJob creates a job in the Registry, then asynchronously starts and
// awaits its worker, updating Registry state and the Progress Bus as the
// worker progresses and terminates. It returns the new job id
// immediately; the worker run happens on a separate goroutine, matching
// spec.md §4.8: "long-running operations return 202 with the job id".
func submitJob(a *app.App, kind jobs.Kind, config interface{}, argPayload interface{}, timeout time.Duration) (string, error) {
	id := a.Registry.Create(kind, config)

	arg, err := json.Marshal(argPayload)
	if err != nil {
		_ = a.Registry.Fail(kind, id, "failed to encode worker arguments")
		return id, nil
	}

	go runWorker(a, kind, id, string(arg), timeout)
	return id, nil
}

func runWorker(a *app.App, kind jobs.Kind, id string, arg string, timeout time.Duration) {
	log := logging.WithJob(id, string(kind))
	executable := a.Config.WorkerExecutables[string(kind)]
	sink := &progressSink{registry: a.Registry, bus: a.Bus, kind: kind, jobID: id}

	if err := a.Supervisor.Start(id, string(kind), executable, arg, timeout, sink); err != nil {
		log.Error().Err(err).Msg("worker failed to start")
		_ = a.Registry.Fail(kind, id, err.Error())
		publishTerminal(a, kind, id, progressbus.EventError, err.Error())
		return
	}

	// The job is marked running as soon as Start returns, which includes
	// any time the worker spends waiting at the Supervisor's admission gate.
	_ = a.Registry.TransitionRunning(kind, id)
	a.Bus.Publish(progressbus.RoomName(string(kind), id), progressbus.Event{
		JobID: id, Type: progressbus.EventStatus, Payload: map[string]interface{}{"status": "running"},
	})

	outcome, err := a.Supervisor.Await(id)
	if err != nil {
		log.Error().Err(err).Msg("worker await failed")
		_ = a.Registry.Fail(kind, id, err.Error())
		publishTerminal(a, kind, id, progressbus.EventError, err.Error())
		return
	}

	applyOutcome(a, kind, id, outcome)
}

// applyOutcome transitions the Registry and publishes the terminal
// Progress Bus event matching outcome, used both by the job's own
// await-goroutine and by the cancel endpoint's confirmation wait — both
// converge here so a race between "worker finished naturally" and
// "cancel requested" settles on one consistent terminal state.
func applyOutcome(a *app.App, kind jobs.Kind, id string, outcome supervisor.Outcome) {
	switch outcome.Status {
	case supervisor.OutcomeCompleted:
		var result interface{}
		if len(outcome.Result) > 0 {
			_ = json.Unmarshal(outcome.Result, &result)
		}
		_ = a.Registry.Complete(kind, id, result)
		a.Bus.Publish(progressbus.RoomName(string(kind), id), progressbus.Event{
			JobID: id, Type: progressbus.EventCompleted, Payload: result,
		})
	case supervisor.OutcomeCancelled:
		_ = a.Registry.MarkCancelled(kind, id)
		a.Bus.Publish(progressbus.RoomName(string(kind), id), progressbus.Event{
			JobID: id, Type: progressbus.EventCancelled,
		})
	default:
		_ = a.Registry.Fail(kind, id, outcome.Err)
		publishTerminal(a, kind, id, progressbus.EventError, outcome.Err)
	}
}

func publishTerminal(a *app.App, kind jobs.Kind, id string, t progressbus.EventType, message string) {
	a.Bus.Publish(progressbus.RoomName(string(kind), id), progressbus.Event{
		JobID: id, Type: t, Payload: map[string]interface{}{"error": message},
	})
}

// cancelAndConfirm requests cancellation of id and blocks until the
// Supervisor confirms the worker is no longer running, per spec.md §4.8:
// "update the Registry only after the Supervisor confirms termination".
// It returns the kind of error to report, or nil on confirmed
// termination.
func cancelAndConfirm(a *app.App, kind jobs.Kind, id string) error {
	cancellable, err := a.Registry.Cancellable(kind, id)
	if err != nil {
		return err
	}
	if !cancellable {
		return apperr.New(apperr.KindConflict, "job is not in a cancellable state")
	}

	if !a.Supervisor.Cancel(id) {
		// Nothing to cancel (already terminated, or never started because
		// it failed to spawn); Registry is already terminal or about to
		// become so via the original run goroutine.
		return nil
	}

	outcome, err := a.Supervisor.Await(id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "cancellation confirmation failed", err)
	}
	applyOutcome(a, kind, id, outcome)
	return nil
}
