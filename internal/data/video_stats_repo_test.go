package data

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/testutil"
)

func setupVideoStatsRepo(t *testing.T) *VideoStatsRepo {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repo := NewVideoStatsRepoWithClock(db, testutil.FixedTimeFunc(testutil.TestTime()))
	_, err := repo.Create(context.Background(), CreateVideoRequest{
		ID: "v1", Title: "시술 후기", VideoURL: "https://cdn.example/v1.mp4",
	})
	require.NoError(t, err)
	return repo
}

func TestVideoStatsRepo_ViewsAndStats(t *testing.T) {
	repo := setupVideoStatsRepo(t)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, repo.IncrementView(ctx, "v1"))
	}
	stats, err := repo.GetStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Views)
	assert.Equal(t, int64(0), stats.Likes)
	assert.Equal(t, "시술 후기", stats.Title)
	assert.True(t, stats.CreatedAt.Equal(testutil.TestTime()))

	assert.ErrorIs(t, repo.IncrementView(ctx, "missing"), ErrVideoNotFound)
	_, err = repo.GetStats(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.Create(ctx, CreateVideoRequest{ID: "v1"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestVideoStatsRepo_ToggleLike(t *testing.T) {
	repo := setupVideoStatsRepo(t)
	ctx := context.Background()

	res, err := repo.ToggleLike(ctx, "v1", "u1")
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, int64(1), res.LikeCount)

	liked, err := repo.IsLiked(ctx, "v1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)

	res, err = repo.ToggleLike(ctx, "v1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.LikeCount)

	res, err = repo.ToggleLike(ctx, "v1", "u1")
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, int64(1), res.LikeCount)

	liked, err = repo.IsLiked(ctx, "v1", "u1")
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = repo.ToggleLike(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrVideoNotFound)

	_, err = repo.ToggleLike(ctx, "v1", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestVideoStatsRepo_ConcurrentToggles(t *testing.T) {
	repo := setupVideoStatsRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, user := range []string{"u1", "u2", "u3", "u4", "u5"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ToggleLike(ctx, "v1", user)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := repo.GetStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Likes)
}
