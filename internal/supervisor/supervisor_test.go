package supervisor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes an executable shell script to a temp file and returns
// its path. Supervisor tests exercise the real child-process contract
// (stdout JSON lines, exit codes, signals) rather than mocking os/exec.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script worker fixtures require a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "worker.sh")
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

type capturingSink struct {
	events []ProgressEvent
}

func (s *capturingSink) OnProgress(ev ProgressEvent) {
	s.events = append(s.events, ev)
}

func TestSupervisor_CompletesSuccessfully(t *testing.T) {
	script := writeScript(t, `
echo '{"type":"progress","progress":50,"step":"computing"}'
echo '{"type":"result","value":42}'
exit 0
`)

	s := New(2, 4)
	sink := &capturingSink{}
	require.NoError(t, s.Start("job-1", "forecast", script, "config-arg", 0, sink))

	outcome, err := s.Await("job-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome.Status)
	assert.JSONEq(t, `{"value":42}`, string(outcome.Result))
	require.Len(t, sink.events, 1)
	assert.Equal(t, 50, sink.events[0].Progress)
}

func TestSupervisor_FailsOnNonZeroExit(t *testing.T) {
	script := writeScript(t, `
echo "fatal error" 1>&2
exit 1
`)

	s := New(2, 4)
	require.NoError(t, s.Start("job-2", "forecast", script, "arg", 0, nil))

	outcome, err := s.Await("job-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Contains(t, outcome.Err, "fatal error")
}

func TestSupervisor_FailsWhenNoResultReported(t *testing.T) {
	script := writeScript(t, `
echo '{"type":"progress","progress":10}'
exit 0
`)

	s := New(2, 4)
	require.NoError(t, s.Start("job-3", "forecast", script, "arg", 0, nil))

	outcome, err := s.Await("job-3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Contains(t, outcome.Err, "without reporting a result")
}

func TestSupervisor_SkipsMalformedStdoutLines(t *testing.T) {
	script := writeScript(t, `
echo 'not json at all'
echo '{"type":"result","value":"ok"}'
exit 0
`)

	s := New(2, 4)
	require.NoError(t, s.Start("job-4", "forecast", script, "arg", 0, nil))

	outcome, err := s.Await("job-4")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome.Status)
}

func TestSupervisor_DeadlineTerminatesWorker(t *testing.T) {
	script := writeScript(t, `
sleep 5
echo '{"type":"result","value":"too-late"}'
`)

	s := New(2, 4)
	require.NoError(t, s.Start("job-5", "forecast", script, "arg", 50*time.Millisecond, nil))

	outcome, err := s.Await("job-5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Contains(t, outcome.Err, "deadline")
}

func TestSupervisor_CancelTerminatesWorker(t *testing.T) {
	script := writeScript(t, `
sleep 5
echo '{"type":"result","value":"too-late"}'
`)

	s := New(2, 4)
	require.NoError(t, s.Start("job-6", "forecast", script, "arg", 0, nil))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.Cancel("job-6"))

	outcome, err := s.Await("job-6")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome.Status)
}

func TestSupervisor_CancelUnknownJobReturnsFalse(t *testing.T) {
	s := New(1, 1)
	assert.False(t, s.Cancel("ghost"))
}

func TestSupervisor_RejectsDuplicateJobID(t *testing.T) {
	script := writeScript(t, `sleep 1; echo '{"type":"result","value":1}'`)

	s := New(1, 4)
	require.NoError(t, s.Start("job-7", "forecast", script, "arg", 0, nil))
	err := s.Start("job-7", "forecast", script, "arg", 0, nil)
	assert.Error(t, err)

	s.Cancel("job-7")
	_, _ = s.Await("job-7")
}

func TestSupervisor_AdmissionGateQueuesOverCapacity(t *testing.T) {
	script := writeScript(t, `
sleep 0.2
echo '{"type":"result","value":1}'
`)

	s := New(1, 4)
	require.NoError(t, s.Start("job-8", "forecast", script, "arg", 0, nil))
	require.NoError(t, s.Start("job-9", "forecast", script, "arg", 0, nil))

	assert.True(t, s.Active("job-9"))

	o1, err := s.Await("job-8")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, o1.Status)

	o2, err := s.Await("job-9")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, o2.Status)
}

func TestSupervisor_AdmissionQueueFullRejectsSynchronously(t *testing.T) {
	script := writeScript(t, `sleep 1; echo '{"type":"result","value":1}'`)

	s := New(1, 1)
	require.NoError(t, s.Start("job-10", "forecast", script, "arg", 0, nil))
	require.NoError(t, s.Start("job-11", "forecast", script, "arg", 0, nil))
	err := s.Start("job-12", "forecast", script, "arg", 0, nil)
	assert.Error(t, err)

	s.Cancel("job-10")
	s.Cancel("job-11")
	_, _ = s.Await("job-10")
	_, _ = s.Await("job-11")
}
