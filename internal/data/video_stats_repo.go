package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/purumi/purumi/internal/data/pgxutil"
	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

var _ ports.VideoStatsStore = (*VideoStatsRepo)(nil)

// ErrVideoNotFound is returned when no video_stats row exists for the id.
var ErrVideoNotFound = apperrors.NotFound("video not found")

// VideoStatsRepo provides database operations for video counters and likes.
type VideoStatsRepo struct {
	DB  *sql.DB
	now func() time.Time
}

// NewVideoStatsRepo creates a VideoStatsRepo.
func NewVideoStatsRepo(db *sql.DB) *VideoStatsRepo {
	return &VideoStatsRepo{DB: db, now: time.Now}
}

// NewVideoStatsRepoWithClock creates a VideoStatsRepo with a custom clock (useful for tests).
func NewVideoStatsRepoWithClock(db *sql.DB, now func() time.Time) *VideoStatsRepo {
	return &VideoStatsRepo{DB: db, now: now}
}

// CreateVideoRequest registers a video so it can be counted.
type CreateVideoRequest struct {
	ID       string
	Title    string
	VideoURL string
}

// Create inserts a video with zero counters.
func (r *VideoStatsRepo) Create(ctx context.Context, req CreateVideoRequest) (*domainauth.VideoStats, error) {
	if req.ID == "" {
		return nil, apperrors.ValidationField("video_id", "video id is required")
	}
	ts := r.now().UTC()
	var out domainauth.VideoStats
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO video_stats (id, title, video_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			RETURNING `+videoStatsColumns,
			req.ID, req.Title, req.VideoURL, ts,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.VideoStats])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create video: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

const videoStatsColumns = `id, title, video_url, likes, views, created_at, updated_at`

// IncrementView adds one view to videoID.
func (r *VideoStatsRepo) IncrementView(ctx context.Context, videoID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE video_stats SET views = views + 1, updated_at = $2 WHERE id = $1`,
		videoID, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("increment view: %w", apperrors.MapDBError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// ToggleLike likes videoID for userID, or removes the like when it exists,
// and returns the resulting state with the new like count.
func (r *VideoStatsRepo) ToggleLike(ctx context.Context, videoID, userID string) (domainauth.LikeResult, error) {
	if userID == "" {
		return domainauth.LikeResult{}, apperrors.ValidationField("user_id", "user id is required")
	}

	var res domainauth.LikeResult
	err := pgxutil.WithTx(ctx, r.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// Lock the counter row so concurrent toggles on the same video serialize.
		if err := tx.QueryRow(ctx, `SELECT likes FROM video_stats WHERE id = $1 FOR UPDATE`, videoID).
			Scan(&res.LikeCount); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM user_likes WHERE video_id = $1 AND user_id = $2`, videoID, userID)
		if err != nil {
			return err
		}
		delta := -1
		if tag.RowsAffected() == 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_likes (video_id, user_id, created_at) VALUES ($1, $2, $3)`,
				videoID, userID, r.now().UTC(),
			); err != nil {
				return err
			}
			delta = 1
			res.Liked = true
		}

		return tx.QueryRow(ctx, `
			UPDATE video_stats SET likes = GREATEST(likes + $2, 0), updated_at = $3
			WHERE id = $1 RETURNING likes`,
			videoID, delta, r.now().UTC(),
		).Scan(&res.LikeCount)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.LikeResult{}, ErrVideoNotFound
		}
		return domainauth.LikeResult{}, fmt.Errorf("toggle like: %w", apperrors.MapDBError(err))
	}
	return res, nil
}

// GetStats returns the counters of videoID.
func (r *VideoStatsRepo) GetStats(ctx context.Context, videoID string) (*domainauth.VideoStats, error) {
	var out domainauth.VideoStats
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+videoStatsColumns+` FROM video_stats WHERE id = $1`, videoID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.VideoStats])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video stats: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// IsLiked reports whether userID likes videoID.
func (r *VideoStatsRepo) IsLiked(ctx context.Context, videoID, userID string) (bool, error) {
	var liked bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_likes WHERE video_id = $1 AND user_id = $2)`,
		videoID, userID,
	).Scan(&liked)
	if err != nil {
		return false, fmt.Errorf("check like: %w", apperrors.MapDBError(err))
	}
	return liked, nil
}
