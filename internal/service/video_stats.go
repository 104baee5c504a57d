package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

// IdentitySource exposes the current auth snapshot.
// *AuthSessionController satisfies it.
type IdentitySource interface {
	State() AuthState
}

// VideoStatsServiceOptions groups dependencies for VideoStatsService.
type VideoStatsServiceOptions struct {
	Store    ports.VideoStatsStore // Required
	Identity IdentitySource        // Required
	Logger   *slog.Logger          // Optional
}

// VideoStatsService counts views and toggles likes for short-form videos.
// Likes are tied to the authenticated user; guests can only watch.
type VideoStatsService struct {
	store    ports.VideoStatsStore
	identity IdentitySource
	logger   *slog.Logger
}

// NewVideoStatsService constructs a VideoStatsService.
func NewVideoStatsService(opts VideoStatsServiceOptions) *VideoStatsService {
	if opts.Store == nil || opts.Identity == nil {
		panic("service: VideoStatsService requires Store and Identity")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoStatsService{
		store:    opts.Store,
		identity: opts.Identity,
		logger:   logger.With("component", "video_stats"),
	}
}

// RecordView increments the view counter of videoID.
func (s *VideoStatsService) RecordView(ctx context.Context, videoID string) error {
	videoID, err := requireVideoID(videoID)
	if err != nil {
		return err
	}
	if err := s.store.IncrementView(ctx, videoID); err != nil {
		s.logger.ErrorContext(ctx, "increment view failed", "video_id", videoID, "error", err)
		return fmt.Errorf("increment view: %w", err)
	}
	return nil
}

// ToggleLike likes or unlikes videoID for the signed-in user.
func (s *VideoStatsService) ToggleLike(ctx context.Context, videoID string) (domainauth.LikeResult, error) {
	videoID, err := requireVideoID(videoID)
	if err != nil {
		return domainauth.LikeResult{}, err
	}
	user := s.identity.State().User()
	if user == nil {
		return domainauth.LikeResult{}, apperrors.Unauthorized(apperrors.MsgLoginRequired)
	}

	res, err := s.store.ToggleLike(ctx, videoID, user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "toggle like failed", "video_id", videoID, "user_id", user.ID, "error", err)
		return domainauth.LikeResult{}, fmt.Errorf("toggle like: %w", err)
	}
	return res, nil
}

// Stats returns the counters of videoID.
func (s *VideoStatsService) Stats(ctx context.Context, videoID string) (*domainauth.VideoStats, error) {
	videoID, err := requireVideoID(videoID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetStats(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("get video stats: %w", err)
	}
	return stats, nil
}

// IsLiked reports whether the signed-in user likes videoID. It is false
// for guests and anonymous users.
func (s *VideoStatsService) IsLiked(ctx context.Context, videoID string) (bool, error) {
	videoID, err := requireVideoID(videoID)
	if err != nil {
		return false, err
	}
	user := s.identity.State().User()
	if user == nil {
		return false, nil
	}
	liked, err := s.store.IsLiked(ctx, videoID, user.ID)
	if err != nil {
		return false, fmt.Errorf("get like status: %w", err)
	}
	return liked, nil
}

func requireVideoID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.ValidationField("video_id", "video id is required")
	}
	return id, nil
}
