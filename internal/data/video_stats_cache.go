package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	"github.com/purumi/purumi/internal/ports"
)

var _ ports.VideoStatsStore = (*CachedVideoStats)(nil)

const (
	defaultStatsTTL       = 30 * time.Second
	defaultStatsKeyPrefix = "purumi:video_stats:"
)

// CachedVideoStatsOptions configures CachedVideoStats.
type CachedVideoStatsOptions struct {
	Store  ports.VideoStatsStore // Required
	Client redis.UniversalClient // Required
	TTL    time.Duration
	Prefix string
	Logger *slog.Logger
}

// CachedVideoStats is a read-through Redis cache in front of a
// VideoStatsStore. Writes go to the store and evict the cached counters.
// Cache failures are logged and never fail a call.
type CachedVideoStats struct {
	store  ports.VideoStatsStore
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCachedVideoStats creates a CachedVideoStats.
func NewCachedVideoStats(opts CachedVideoStatsOptions) *CachedVideoStats {
	if opts.Store == nil || opts.Client == nil {
		panic("data: CachedVideoStats requires Store and Client")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultStatsKeyPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedVideoStats{
		store:  opts.Store,
		client: opts.Client,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.With("component", "video_stats_cache"),
	}
}

func (c *CachedVideoStats) key(videoID string) string { return c.prefix + videoID }

// GetStats serves the counters from Redis when present.
func (c *CachedVideoStats) GetStats(ctx context.Context, videoID string) (*domainauth.VideoStats, error) {
	if stats, ok := c.lookup(ctx, videoID); ok {
		return stats, nil
	}

	stats, err := c.store.GetStats(ctx, videoID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal video stats: %w", err)
	}
	if err := c.client.Set(ctx, c.key(videoID), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache video stats failed", "video_id", videoID, "error", err)
	}
	return stats, nil
}

func (c *CachedVideoStats) lookup(ctx context.Context, videoID string) (*domainauth.VideoStats, bool) {
	raw, err := c.client.Get(ctx, c.key(videoID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "read cached video stats failed", "video_id", videoID, "error", err)
		}
		return nil, false
	}
	var stats domainauth.VideoStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt cached video stats", "video_id", videoID, "error", err)
		c.evict(ctx, videoID)
		return nil, false
	}
	return &stats, true
}

// IncrementView records a view and evicts the cached counters.
func (c *CachedVideoStats) IncrementView(ctx context.Context, videoID string) error {
	if err := c.store.IncrementView(ctx, videoID); err != nil {
		return err
	}
	c.evict(ctx, videoID)
	return nil
}

// ToggleLike toggles the like and evicts the cached counters.
func (c *CachedVideoStats) ToggleLike(ctx context.Context, videoID, userID string) (domainauth.LikeResult, error) {
	res, err := c.store.ToggleLike(ctx, videoID, userID)
	if err != nil {
		return res, err
	}
	c.evict(ctx, videoID)
	return res, nil
}

// IsLiked is not cached; it is per user and cheap.
func (c *CachedVideoStats) IsLiked(ctx context.Context, videoID, userID string) (bool, error) {
	return c.store.IsLiked(ctx, videoID, userID)
}

func (c *CachedVideoStats) evict(ctx context.Context, videoID string) {
	if err := c.client.Del(ctx, c.key(videoID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "evict cached video stats failed", "video_id", videoID, "error", err)
	}
}
