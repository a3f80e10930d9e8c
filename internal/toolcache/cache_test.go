package toolcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCacheHitWithinTTL(t *testing.T) {
	c := NewWithTTL(time.Minute)
	calls := 0
	fn := func() (any, error) {
		calls++
		return map[string]any{"value": 42}, nil
	}

	r1, err := c.Fetch("game1", "get_team_stats", map[string]any{"team_id": "ATL"}, false, fn)
	require.NoError(t, err)
	assert.False(t, r1.Cached, "first fetch must not be a cache hit")

	r2, err := c.Fetch("game1", "get_team_stats", map[string]any{"team_id": "ATL"}, false, fn)
	require.NoError(t, err)
	assert.True(t, r2.Cached, "second identical fetch within TTL must be a cache hit")
	assert.Equal(t, 1, calls, "underlying fn must run exactly once")
}

func TestFetchExpiresAfterTTL(t *testing.T) {
	c := NewWithTTL(time.Millisecond)
	calls := 0
	fn := func() (any, error) {
		calls++
		return calls, nil
	}
	_, err := c.Fetch("game1", "t", nil, false, fn)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	r, err := c.Fetch("game1", "t", nil, false, fn)
	require.NoError(t, err)
	assert.False(t, r.Cached, "expected cache miss after TTL expiry")
	assert.Equal(t, 2, calls)
}

func TestFetchForceRefreshBypassesCache(t *testing.T) {
	c := NewWithTTL(time.Hour)
	calls := 0
	fn := func() (any, error) {
		calls++
		return calls, nil
	}
	_, err := c.Fetch("game1", "get_game_news", nil, false, fn)
	require.NoError(t, err)

	r, err := c.Fetch("game1", "get_game_news", nil, true, fn)
	require.NoError(t, err)
	assert.False(t, r.Cached, "force_refresh must bypass the cache")
	assert.Equal(t, 2, calls)
}

func TestFetchDifferentArgsAreSeparateKeys(t *testing.T) {
	c := New()
	fn := func(v any) func() (any, error) {
		return func() (any, error) { return v, nil }
	}
	r1, err := c.Fetch("game1", "get_team_stats", map[string]any{"team_id": "ATL"}, false, fn("a"))
	require.NoError(t, err)
	r2, err := c.Fetch("game1", "get_team_stats", map[string]any{"team_id": "BOS"}, false, fn("b"))
	require.NoError(t, err)

	assert.False(t, r1.Cached)
	assert.False(t, r2.Cached, "distinct argument sets must not collide")
}
