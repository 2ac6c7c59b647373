/*
Package supervisor owns the lifecycle of compute worker child processes:
spawning them, parsing their stdout event stream, enforcing deadlines,
supporting cancellation, and mapping job ids to OS processes one-to-one
(SPEC_FULL.md §6, spec.md §4.3).

It never stores long-term job state — that is internal/jobs.Registry's
job — and it never talks to the progress bus directly. Progress reports
are handed to an injected Sink (spec.md §9, "explicit sink
abstraction"), decoupling this package from both the registry and the bus
the way cuemby/warren's manager decouples from its event broker, and
making the Supervisor trivially testable with a capturing sink.

The child-process contract (spec.md §4.3): the worker is invoked with
a single argument carrying its serialized configuration, and writes one
JSON object per line to stdout — either a progress event or, at most once,
a terminal result event. Graceful-then-forced termination (SIGTERM, then
SIGKILL after a grace period) is adapted from the pattern cuemby/warren's
containerd runtime used to stop a running container task.
*/
package supervisor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/energyplan-orchestrator/internal/logging"
	"github.com/cuemby/energyplan-orchestrator/internal/metrics"
)

// killGrace is how long a child gets to exit after SIGTERM before it is
// force-killed with SIGKILL.
const killGrace = 5 * time.Second

// stderrCap bounds how much of the captured stderr is included in the
// failure message.
const stderrCap = 64 * 1024

// scanBufCap bounds a single stdout line; workers report progress and
// results, not full payloads, over stdout.
const scanBufCap = 1 << 20

// ProgressEvent is one progress report parsed from a worker's stdout.
type ProgressEvent struct {
	Progress int    `json:"progress"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	Sector   string `json:"sector,omitempty"`
}

// Sink receives progress reports as a worker runs. Implementations must
// not block significantly — the stdout reader goroutine calls Sink
// synchronously for every parsed progress line.
type Sink interface {
	OnProgress(ProgressEvent)
}

// OutcomeStatus classifies how a worker run ended.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// Outcome is the classified result of one worker run, per the
// classification table in spec.md §4.3.
type Outcome struct {
	Status OutcomeStatus
	Result json.RawMessage // set only when Status == OutcomeCompleted
	Err    string          // set only when Status == OutcomeFailed
}

// wireEvent is the shape of one JSON line a worker writes to stdout. A
// result line carries its payload as sibling fields of "type" rather than
// nested under a "result" key (spec.md §4.3/§6), so wireEvent embeds
// the known progress fields directly and captures the whole line
// separately to hand the full object to a result event's consumer.
type wireEvent struct {
	Type     string `json:"type"`
	Progress int    `json:"progress"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	Sector   string `json:"sector,omitempty"`
}

type handle struct {
	jobID  string
	kind   string
	sink   Sink
	doneCh chan Outcome
	once   sync.Once

	cancelOnce sync.Once
	cancelCh   chan struct{}
}

func newHandle(jobID, kind string, sink Sink) *handle {
	return &handle{
		jobID:    jobID,
		kind:     kind,
		sink:     sink,
		doneCh:   make(chan Outcome, 1),
		cancelCh: make(chan struct{}),
	}
}

func (h *handle) cancel() {
	h.cancelOnce.Do(func() { close(h.cancelCh) })
}

// Supervisor spawns and tracks compute worker processes. A configurable
// cap bounds total concurrent workers; submissions over the cap wait on
// an admission gate in FIFO order. Go schedules blocked channel senders in
// FIFO order, which is what gives the admission gate its ordering
// guarantee. The Supervisor does not report when a waiting submission is
// admitted, so a caller cannot tell waiting apart from running.
type Supervisor struct {
	sem chan struct{}

	waitingMu sync.Mutex
	waiting   int
	maxQueue  int

	mu      sync.Mutex
	handles map[string]*handle
}

// New creates a Supervisor that allows concurrency concurrent workers and
// lets at most maxQueue additional submissions wait for a free slot.
func New(concurrency, maxQueue int) *Supervisor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Supervisor{
		sem:      make(chan struct{}, concurrency),
		maxQueue: maxQueue,
		handles:  make(map[string]*handle),
	}
}

// Start registers a worker for jobID and returns immediately; the actual
// exec happens on a goroutine and may be deferred behind the admission
// gate if the supervisor is already at its concurrency cap. Only one
// handle may exist for a given jobID at a time. Returns an error,
// synchronously, if the admission queue is already full.
//
// arg is the single serialized-config argument passed to the executable,
// per the child-process contract in spec.md §4.3.
func (s *Supervisor) Start(jobID, kind, executable, arg string, deadline time.Duration, sink Sink) error {
	s.mu.Lock()
	if _, exists := s.handles[jobID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("worker already registered for job %s", jobID)
	}
	h := newHandle(jobID, kind, sink)
	s.handles[jobID] = h
	s.mu.Unlock()

	// A free slot is taken here, synchronously, so only submissions that
	// really have to wait count against maxQueue.
	s.waitingMu.Lock()
	admitted := false
	select {
	case s.sem <- struct{}{}:
		admitted = true
	default:
		if s.waiting >= s.maxQueue {
			s.waitingMu.Unlock()
			s.mu.Lock()
			delete(s.handles, jobID)
			s.mu.Unlock()
			return fmt.Errorf("admission queue is full")
		}
		s.waiting++
		metrics.WorkersQueued.Set(float64(s.waiting))
	}
	s.waitingMu.Unlock()

	go s.run(h, executable, arg, deadline, admitted)
	return nil
}

func (s *Supervisor) run(h *handle, executable, arg string, deadline time.Duration, admitted bool) {
	if !admitted {
		select {
		case s.sem <- struct{}{}:
		case <-h.cancelCh:
			s.waitingMu.Lock()
			s.waiting--
			metrics.WorkersQueued.Set(float64(s.waiting))
			s.waitingMu.Unlock()
			s.mu.Lock()
			delete(s.handles, h.jobID)
			s.mu.Unlock()
			h.once.Do(func() { h.doneCh <- Outcome{Status: OutcomeCancelled} })
			return
		}

		s.waitingMu.Lock()
		s.waiting--
		metrics.WorkersQueued.Set(float64(s.waiting))
		s.waitingMu.Unlock()
	}
	metrics.WorkersRunning.Inc()

	defer func() {
		metrics.WorkersRunning.Dec()
		<-s.sem
		s.mu.Lock()
		delete(s.handles, h.jobID)
		s.mu.Unlock()
	}()

	timer := metrics.NewTimer()
	outcome := s.runChild(h, executable, arg, deadline)
	metrics.WorkerRunDuration.WithLabelValues(h.kind, string(outcome.Status)).Observe(timer.Duration().Seconds())

	h.once.Do(func() { h.doneCh <- outcome })
}

// runChild performs the actual exec, stdout/stderr handling, deadline
// enforcement and cancellation for one worker.
func (s *Supervisor) runChild(h *handle, executable, arg string, deadline time.Duration) Outcome {
	log := logging.WithJob(h.jobID, h.kind)

	cmd := exec.Command(executable, arg)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{Status: OutcomeFailed, Err: fmt.Sprintf("failed to attach stdout: %v", err)}
	}
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return Outcome{Status: OutcomeFailed, Err: fmt.Sprintf("failed to start worker: %v", err)}
	}
	log.Info().Str("executable", executable).Msg("worker started")

	type readResult struct {
		result json.RawMessage
		err    error
	}
	readCh := make(chan readResult, 1)
	go func() {
		result, err := readEvents(stdout, h.sink, log)
		readCh <- readResult{result, err}
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timeoutC <-chan time.Time
	if deadline > 0 {
		t := time.NewTimer(deadline)
		defer t.Stop()
		timeoutC = t.C
	}

	select {
	case waitErr := <-waitCh:
		rr := <-readCh
		return classify(waitErr, rr.result, rr.err, stderrBuf.Bytes())

	case <-timeoutC:
		log.Warn().Dur("deadline", deadline).Msg("worker exceeded deadline, terminating")
		terminateGroup(cmd, killGrace)
		<-waitCh
		<-readCh
		return Outcome{Status: OutcomeFailed, Err: fmt.Sprintf("timeout: worker exceeded deadline of %s", deadline)}

	case <-h.cancelCh:
		log.Info().Msg("worker cancelled, terminating")
		terminateGroup(cmd, killGrace)
		<-waitCh
		<-readCh
		return Outcome{Status: OutcomeCancelled}
	}
}

func classify(waitErr error, result json.RawMessage, parseErr error, stderr []byte) Outcome {
	if waitErr != nil {
		msg := waitErr.Error()
		if len(stderr) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, truncate(stderr, stderrCap))
		}
		return Outcome{Status: OutcomeFailed, Err: msg}
	}
	if parseErr != nil {
		return Outcome{Status: OutcomeFailed, Err: parseErr.Error()}
	}
	if result == nil {
		return Outcome{Status: OutcomeFailed, Err: "worker exited successfully without reporting a result"}
	}
	return Outcome{Status: OutcomeCompleted, Result: result}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(truncated)"
}

// readEvents scans stdout line by line. Each line is a JSON object with a
// "type" field of "progress" or "result"; a result line's payload fields
// are siblings of "type", not nested under a "result" key. Malformed
// lines are logged and skipped rather than failing the run — a worker's
// incidental stdout noise should not sink an otherwise successful
// computation. Returns the raw result payload (the whole object, minus
// "type") from the single "result" line, if one arrived.
func readEvents(stdout interface {
	Read(p []byte) (n int, err error)
}, sink Sink, log zerolog.Logger) (json.RawMessage, error) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufCap)

	var result json.RawMessage
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev wireEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Warn().Str("line", string(truncateBytes(line, 256))).Msg("worker emitted a non-JSON stdout line, skipping")
			continue
		}

		switch ev.Type {
		case "progress", "status":
			if sink != nil {
				sink.OnProgress(ProgressEvent{
					Progress: ev.Progress,
					Step:     ev.Step,
					Status:   ev.Status,
					Sector:   ev.Sector,
				})
			}
		case "result":
			result = resultPayload(line)
		default:
			log.Warn().Str("type", ev.Type).Msg("worker emitted an unrecognized event type, skipping")
		}
	}
	return result, scanner.Err()
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// resultPayload returns a result line's payload: the whole JSON object
// minus the "type" discriminator field, re-marshaled. Falls back to the
// raw line if it is not a JSON object (defensive; json.Unmarshal into
// wireEvent already succeeded for this line).
func resultPayload(line []byte) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return json.RawMessage(line)
	}
	delete(fields, "type")
	payload, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage(line)
	}
	return payload
}

// Await blocks until the worker for jobID reaches a terminal state and
// returns its Outcome. Returns an error if jobID has no active handle.
func (s *Supervisor) Await(jobID string) (Outcome, error) {
	s.mu.Lock()
	h, ok := s.handles[jobID]
	s.mu.Unlock()
	if !ok {
		return Outcome{}, fmt.Errorf("no active worker for job %s", jobID)
	}
	outcome := <-h.doneCh
	// Put it back so a second concurrent Await (e.g. racing a cancel)
	// observes the same outcome instead of blocking forever.
	h.doneCh <- outcome
	return outcome, nil
}

// Cancel requests termination of the worker running jobID. It is
// idempotent and returns false if there is no active worker for jobID.
func (s *Supervisor) Cancel(jobID string) bool {
	s.mu.Lock()
	h, ok := s.handles[jobID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// Active reports whether jobID currently has a registered worker (queued
// or running).
func (s *Supervisor) Active(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[jobID]
	return ok
}
