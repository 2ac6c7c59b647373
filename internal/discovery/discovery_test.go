package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/energyplan-orchestrator/internal/artifacts"
)

func newTestStore(t *testing.T) *artifacts.Store {
	t.Helper()
	s, err := artifacts.New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestIndex_RescanFindsLoadProfiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveJson(artifacts.LoadProfilePath("residential-2030"), map[string]interface{}{
		"profileId": "residential-2030",
		"method":    "base_scaling",
		"statistics": map[string]interface{}{
			"peak": 120.5,
		},
	}))

	idx := New()
	require.NoError(t, idx.Rescan(store))

	profiles := idx.Profiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, "residential-2030", profiles[0].ProfileID)
	assert.Equal(t, "base_scaling", profiles[0].Method)
	assert.Equal(t, 120.5, profiles[0].Summary["peak"])
}

func TestIndex_ComputesSummaryWhenStatisticsMissing(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveJson(artifacts.LoadProfilePath("commercial-2030"), map[string]interface{}{
		"profileId": "commercial-2030",
		"method":    "stl_decomposition",
		"data": []map[string]interface{}{
			{"value": 10.0},
			{"value": 25.0},
			{"value": 5.0},
		},
	}))

	idx := New()
	require.NoError(t, idx.Rescan(store))

	profiles := idx.Profiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, 40.0, profiles[0].Summary["total"])
	assert.Equal(t, 25.0, profiles[0].Summary["peak"])
}

func TestIndex_RescanFindsNetworks(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveBytes(artifacts.PypsaNetworkPath("scenario-base"), []byte{0x01, 0x02}))

	idx := New()
	require.NoError(t, idx.Rescan(store))

	networks := idx.Networks()
	require.Len(t, networks, 1)
	assert.Equal(t, "scenario-base", networks[0].ScenarioName)
	assert.Equal(t, int64(2), networks[0].Size)
}

func TestIndex_ProfileRescansOnMiss(t *testing.T) {
	store := newTestStore(t)
	idx := New()

	_, ok, err := idx.Profile(store, "not-yet-written")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveJson(artifacts.LoadProfilePath("late-arrival"), map[string]interface{}{
		"profileId": "late-arrival",
		"method":    "custom_template",
	}))

	meta, ok, err := idx.Profile(store, "late-arrival")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "custom_template", meta.Method)
}

func TestIndex_SkipsUnreadableArtifactsWithoutFailingScan(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveBytes(artifacts.LoadProfilePath("broken"), []byte("not json")))
	require.NoError(t, store.SaveJson(artifacts.LoadProfilePath("good"), map[string]interface{}{
		"profileId": "good",
	}))

	idx := New()
	require.NoError(t, idx.Rescan(store))

	profiles := idx.Profiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, "good", profiles[0].ProfileID)
}

func TestIndex_EmptyStoreRescansCleanly(t *testing.T) {
	store := newTestStore(t)
	idx := New()

	require.NoError(t, idx.Rescan(store))
	assert.Empty(t, idx.Profiles())
	assert.Empty(t, idx.Networks())
	assert.False(t, idx.LastScan().IsZero())
}
