package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := New()
	id := r.Create(KindForecast, map[string]string{"sector": "residential"})
	require.NotEmpty(t, id)

	snap, err := r.Get(KindForecast, id)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, snap.Status)
	assert.Equal(t, 0, snap.Progress)
	assert.False(t, snap.Timings.SubmittedAt.IsZero())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := New()
	_, err := r.Get(KindForecast, "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := New()
	id := r.Create(KindProfile, nil)

	require.NoError(t, r.TransitionRunning(KindProfile, id))
	snap, _ := r.Get(KindProfile, id)
	assert.Equal(t, StatusRunning, snap.Status)
	require.NotNil(t, snap.Timings.StartedAt)

	require.NoError(t, r.UpdateProgress(KindProfile, id, 40, "loading", "reading input"))
	snap, _ = r.Get(KindProfile, id)
	assert.Equal(t, 40, snap.Progress)
	assert.Equal(t, "loading", snap.CurrentStep)

	require.NoError(t, r.Complete(KindProfile, id, map[string]int{"rows": 10}))
	snap, _ = r.Get(KindProfile, id)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.NotNil(t, snap.Result)
	require.NotNil(t, snap.Timings.EndedAt)
}

func TestRegistry_ProgressNeverDecreases(t *testing.T) {
	r := New()
	id := r.Create(KindProfile, nil)
	require.NoError(t, r.TransitionRunning(KindProfile, id))

	require.NoError(t, r.UpdateProgress(KindProfile, id, 60, "", ""))
	require.NoError(t, r.UpdateProgress(KindProfile, id, 20, "", ""))

	snap, _ := r.Get(KindProfile, id)
	assert.Equal(t, 60, snap.Progress)
}

func TestRegistry_TerminalStatesAreSticky(t *testing.T) {
	r := New()
	id := r.Create(KindForecast, nil)
	require.NoError(t, r.TransitionRunning(KindForecast, id))
	require.NoError(t, r.Fail(KindForecast, id, "boom"))

	require.NoError(t, r.Complete(KindForecast, id, "should not apply"))
	snap, _ := r.Get(KindForecast, id)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "boom", snap.Error)
}

func TestRegistry_CancellableReflectsTerminality(t *testing.T) {
	r := New()
	id := r.Create(KindForecast, nil)

	ok, err := r.Cancellable(KindForecast, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.MarkCancelled(KindForecast, id))
	ok, err = r.Cancellable(KindForecast, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_ListPreservesInsertionOrder(t *testing.T) {
	r := New()
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, r.Create(KindPypsa, nil))
	}

	list := r.List(KindPypsa)
	require.Len(t, list, 5)
	for i, snap := range list {
		assert.Equal(t, ids[i], snap.ID)
	}
}

func TestRegistry_ClonesAreIndependent(t *testing.T) {
	r := New()
	id := r.Create(KindForecast, nil)

	snap, _ := r.Get(KindForecast, id)
	snap.Status = StatusCompleted

	fresh, _ := r.Get(KindForecast, id)
	assert.Equal(t, StatusQueued, fresh.Status)
}
