package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
)

type profile struct {
	ID    string `json:"id"`
	Years []int  `json:"years"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_SaveAndReadJsonRoundTrip(t *testing.T) {
	s := newTestStore(t)
	path := LoadProfilePath("residential-2030")

	original := profile{ID: "residential-2030", Years: []int{2025, 2030}}
	require.NoError(t, s.SaveJson(path, original))

	var got profile
	require.NoError(t, s.ReadJson(path, &got))
	assert.Equal(t, original, got)
}

func TestStore_ReadMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	var got profile
	err := s.ReadJson("results/load_profiles/ghost.json", &got)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestStore_SaveBytesForBinaryArtifact(t *testing.T) {
	s := newTestStore(t)
	path := PypsaNetworkPath("scenario-a")

	content := []byte{0x89, 'N', 'C', 0x00, 0x01, 0x02}
	require.NoError(t, s.SaveBytes(path, content))

	got, err := s.ReadBytes(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStore_PathEscapeRejected(t *testing.T) {
	s := newTestStore(t)

	_, err := s.resolve("../../etc/passwd")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorageError, apperr.KindOf(err))

	err = s.SaveJson("../../escape.json", profile{ID: "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorageError, apperr.KindOf(err))
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	path := LoadProfilePath("p1")
	require.NoError(t, s.SaveJson(path, profile{ID: "p1"}))

	require.NoError(t, s.Delete(path))
	require.NoError(t, s.Delete(path))

	exists, err := s.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_ExistsAndStat(t *testing.T) {
	s := newTestStore(t)
	path := LoadProfilePath("p2")
	require.NoError(t, s.SaveJson(path, profile{ID: "p2"}))

	exists, err := s.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := s.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir)
	assert.Greater(t, info.Size, int64(0))
}

func TestStore_ListReturnsDirectoryEntries(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveJson(LoadProfilePath("a"), profile{ID: "a"}))
	require.NoError(t, s.SaveJson(LoadProfilePath("b"), profile{ID: "b"}))

	entries, err := s.List(DirLoadProfiles)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_ListOfMissingDirReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.List("results/pypsa")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
