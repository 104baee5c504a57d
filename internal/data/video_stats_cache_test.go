package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	"github.com/purumi/purumi/internal/testutil"
)

// countingStats is an in-memory VideoStatsStore that counts GetStats calls.
type countingStats struct {
	mu       sync.Mutex
	stats    map[string]*domainauth.VideoStats
	likes    map[string]bool
	getCalls int
}

func newCountingStats(ids ...string) *countingStats {
	s := &countingStats{stats: map[string]*domainauth.VideoStats{}, likes: map[string]bool{}}
	for _, id := range ids {
		s.stats[id] = &domainauth.VideoStats{ID: id}
	}
	return s
}

func (s *countingStats) IncrementView(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.stats[id]
	if !ok {
		return ErrVideoNotFound
	}
	v.Views++
	return nil
}

func (s *countingStats) ToggleLike(_ context.Context, id, user string) (domainauth.LikeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.stats[id]
	if !ok {
		return domainauth.LikeResult{}, ErrVideoNotFound
	}
	k := id + "/" + user
	s.likes[k] = !s.likes[k]
	if s.likes[k] {
		v.Likes++
	} else {
		v.Likes--
	}
	return domainauth.LikeResult{Liked: s.likes[k], LikeCount: v.Likes}, nil
}

func (s *countingStats) GetStats(_ context.Context, id string) (*domainauth.VideoStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	v, ok := s.stats[id]
	if !ok {
		return nil, ErrVideoNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *countingStats) IsLiked(_ context.Context, id, user string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[id+"/"+user], nil
}

func (s *countingStats) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func TestCachedVideoStats_ReadThroughAndEvict(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	store := newCountingStats("v1")
	cached := NewCachedVideoStats(CachedVideoStatsOptions{Store: store, Client: client, TTL: time.Minute})
	ctx := context.Background()

	_, err := cached.GetStats(ctx, "v1")
	require.NoError(t, err)
	_, err = cached.GetStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls(), "second read is served from redis")
	assert.True(t, mr.Exists(defaultStatsKeyPrefix+"v1"))

	require.NoError(t, cached.IncrementView(ctx, "v1"))
	assert.False(t, mr.Exists(defaultStatsKeyPrefix+"v1"))

	stats, err := cached.GetStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Views)
	assert.Equal(t, 2, store.calls())

	res, err := cached.ToggleLike(ctx, "v1", "u1")
	require.NoError(t, err)
	assert.True(t, res.Liked)
	stats, err = cached.GetStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Likes)

	liked, err := cached.IsLiked(ctx, "v1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestCachedVideoStats_TTL(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	store := newCountingStats("v1")
	cached := NewCachedVideoStats(CachedVideoStatsOptions{Store: store, Client: client, TTL: 10 * time.Second})
	ctx := context.Background()

	_, err := cached.GetStats(ctx, "v1")
	require.NoError(t, err)
	mr.FastForward(11 * time.Second)
	_, err = cached.GetStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls())
}

func TestCachedVideoStats_RedisDownFallsThrough(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	store := newCountingStats("v1")
	cached := NewCachedVideoStats(CachedVideoStatsOptions{Store: store, Client: client})
	ctx := context.Background()

	mr.Close()
	stats, err := cached.GetStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", stats.ID)
	require.NoError(t, cached.IncrementView(ctx, "v1"))
}

func TestCachedVideoStats_CorruptEntry(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	store := newCountingStats("v1")
	cached := NewCachedVideoStats(CachedVideoStatsOptions{Store: store, Client: client})

	require.NoError(t, mr.Set(defaultStatsKeyPrefix+"v1", "{not json"))
	stats, err := cached.GetStats(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", stats.ID)
	assert.Equal(t, 1, store.calls())
}

func TestCachedVideoStats_MissingVideoNotCached(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	cached := NewCachedVideoStats(CachedVideoStatsOptions{Store: newCountingStats(), Client: client})

	_, err := cached.GetStats(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrVideoNotFound)
	assert.False(t, mr.Exists(defaultStatsKeyPrefix+"nope"))
}

func TestNewCachedVideoStats_RequiresDeps(t *testing.T) {
	assert.Panics(t, func() { NewCachedVideoStats(CachedVideoStatsOptions{}) })
}
