package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sector struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c := New(0)
	defer c.Stop()

	require.NoError(t, c.Set("sector:residential", sector{Name: "residential", Total: 42}, time.Minute))

	var got sector
	ok, err := c.Get("sector:residential", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "residential", got.Name)
	assert.Equal(t, 42, got.Total)
}

func TestCache_GetMissing(t *testing.T) {
	c := New(0)
	defer c.Stop()

	var got sector
	ok, err := c.Get("nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_DeepCopyIsolatesCaller(t *testing.T) {
	c := New(0)
	defer c.Stop()

	original := sector{Name: "commercial", Total: 7}
	require.NoError(t, c.Set("sector:commercial", original, time.Minute))

	var got sector
	_, err := c.Get("sector:commercial", &got)
	require.NoError(t, err)
	got.Total = 999

	var second sector
	_, err = c.Get("sector:commercial", &second)
	require.NoError(t, err)
	assert.Equal(t, 7, second.Total)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New(0)
	defer c.Stop()

	require.NoError(t, c.Set("short", sector{Name: "x"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got sector
	ok, err := c.Get("short", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := New(0)
	defer c.Stop()

	require.NoError(t, c.Set("forever", sector{Name: "x"}, 0))
	time.Sleep(20 * time.Millisecond)

	var got sector
	ok, err := c.Get("forever", &got)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_EmptyKeyRejected(t *testing.T) {
	c := New(0)
	defer c.Stop()

	err := c.Set("", sector{Name: "x"}, time.Minute)
	require.Error(t, err)
}

func TestCache_DeleteAndFlush(t *testing.T) {
	c := New(0)
	defer c.Stop()

	require.NoError(t, c.Set("a", sector{Name: "a"}, time.Minute))
	require.NoError(t, c.Set("b", sector{Name: "b"}, time.Minute))

	c.Delete("a")
	var got sector
	ok, _ := c.Get("a", &got)
	assert.False(t, ok)

	c.Flush()
	assert.Empty(t, c.Keys())
}

func TestCache_SweeperRemovesExpiredEntries(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Stop()

	require.NoError(t, c.Set("ephemeral", sector{Name: "x"}, 5*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	assert.NotContains(t, c.Keys(), "ephemeral")
}

func TestCache_KeysOmitsExpired(t *testing.T) {
	c := New(0)
	defer c.Stop()

	require.NoError(t, c.Set("keep", sector{Name: "keep"}, time.Minute))
	require.NoError(t, c.Set("drop", sector{Name: "drop"}, 5*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	keys := c.Keys()
	assert.Contains(t, keys, "keep")
	assert.NotContains(t, keys, "drop")
}
