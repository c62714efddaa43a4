package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tokenscout/internal/domain/model"
	"tokenscout/internal/domain/port"
)

const fillKey = "snapshot"

// CacheConfig holds the facade's timing knobs.
type CacheConfig struct {
	// TTL is the snapshot lifetime in both tiers.
	TTL time.Duration
	// RefreshThreshold triggers a background refresh when the remaining TTL
	// drops below it.
	RefreshThreshold time.Duration
	// ProbeInterval bounds how often a degraded store is retried.
	ProbeInterval time.Duration
	// RefreshTimeout bounds a background refresh run.
	RefreshTimeout time.Duration
}

// SnapshotCache unifies the durable store and the in-process fallback behind
// one read/write API. It is the only component that touches either tier.
//
// Store failures flip a sticky degraded flag: reads then skip straight to the
// fallback until a store call succeeds again, re-probing at most once per
// ProbeInterval. Cold-cache fills are single-flighted so concurrent callers
// share one feed fetch.
type SnapshotCache struct {
	store    port.SnapshotStore
	fallback port.FallbackStore
	source   port.TokenSource
	cfg      CacheConfig
	logger   *zap.Logger

	group singleflight.Group

	mu        sync.Mutex
	degraded  bool
	lastProbe time.Time
}

func NewSnapshotCache(store port.SnapshotStore, fallback port.FallbackStore, source port.TokenSource, cfg CacheConfig, logger *zap.Logger) *SnapshotCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = 2 * time.Minute
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{
		store:    store,
		fallback: fallback,
		source:   source,
		cfg:      cfg,
		logger:   logger,
	}
}

// Read returns the best available snapshot and its remaining lifetime, or
// (nil, 0) when neither tier holds valid data. It never returns an error;
// store failures degrade to the fallback tier.
func (c *SnapshotCache) Read(ctx context.Context) (*model.Snapshot, time.Duration) {
	if c.storeUsable() {
		snap, err := c.store.Get(ctx)
		switch {
		case err != nil:
			c.markDegraded(err)
		case snap != nil:
			c.markHealthy()
			remaining, err := c.store.TTL(ctx)
			if err != nil {
				c.markDegraded(err)
				remaining = c.cfg.TTL - time.Since(snap.WrittenAt)
			}
			return snap, remaining
		default:
			// Clean miss; the key may have expired while the fallback still
			// holds data written during an outage.
			c.markHealthy()
		}
	}

	if snap, ok := c.fallback.Get(c.cfg.TTL); ok {
		return snap, c.cfg.TTL - time.Since(snap.WrittenAt)
	}
	return nil, 0
}

// Write publishes a snapshot to the best available tier: the durable store
// first, the fallback only when the store write fails.
func (c *SnapshotCache) Write(ctx context.Context, snap model.Snapshot) {
	if err := c.store.Set(ctx, snap, c.cfg.TTL); err != nil {
		c.markDegraded(err)
		c.logger.Warn("snapshot store write failed, publishing to fallback", zap.Error(err))
		c.fallback.Set(snap)
		return
	}
	c.markHealthy()
}

// GetWithSmartRefresh is the primary client read path. A valid snapshot is
// always returned immediately; when its remaining TTL is below the refresh
// threshold a background refresh is triggered without blocking the caller.
// Only a true cold cache blocks on a synchronous, single-flighted fill.
func (c *SnapshotCache) GetWithSmartRefresh(ctx context.Context) (*model.Snapshot, error) {
	snap, remaining := c.Read(ctx)
	if snap != nil {
		if remaining > 0 && remaining < c.cfg.RefreshThreshold {
			c.triggerBackgroundRefresh()
		}
		return snap, nil
	}

	v, err, _ := c.group.Do(fillKey, func() (interface{}, error) {
		return c.fill(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Snapshot), nil
}

// Refresh performs one full fetch-and-publish cycle. It is the path used by
// the scheduler and by operator-triggered refreshes.
func (c *SnapshotCache) Refresh(ctx context.Context) (int, error) {
	snap, err := c.fill(ctx)
	if err != nil {
		return 0, err
	}
	return len(snap.Tokens), nil
}

// Clear wipes both cache tiers. The fallback is always cleared; a store
// error is returned for operator visibility.
func (c *SnapshotCache) Clear(ctx context.Context) error {
	c.fallback.Clear()
	if err := c.store.Delete(ctx); err != nil {
		c.markDegraded(err)
		return fmt.Errorf("clear snapshot store: %w", err)
	}
	c.markHealthy()
	return nil
}

func (c *SnapshotCache) fill(ctx context.Context) (*model.Snapshot, error) {
	tokens, err := c.source.FetchAndNormalize(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFeedUnavailable, err)
	}
	snap := model.Snapshot{
		Tokens:    tokens,
		WrittenAt: time.Now().UTC(),
	}
	c.Write(ctx, snap)
	return &snap, nil
}

// triggerBackgroundRefresh starts an asynchronous fill. Concurrent triggers
// collapse into the in-flight one through the singleflight group.
func (c *SnapshotCache) triggerBackgroundRefresh() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RefreshTimeout)
		defer cancel()

		_, err, shared := c.group.Do(fillKey, func() (interface{}, error) {
			return c.fill(ctx)
		})
		if err != nil {
			c.logger.Warn("background refresh failed", zap.Error(err))
			return
		}
		if !shared {
			c.logger.Debug("background refresh complete")
		}
	}()
}

func (c *SnapshotCache) storeUsable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.degraded {
		return true
	}
	if time.Since(c.lastProbe) >= c.cfg.ProbeInterval {
		c.lastProbe = time.Now()
		return true
	}
	return false
}

func (c *SnapshotCache) markDegraded(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.degraded {
		c.logger.Warn("snapshot store degraded, serving from fallback", zap.Error(err))
	}
	c.degraded = true
	c.lastProbe = time.Now()
}

func (c *SnapshotCache) markHealthy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.degraded {
		c.logger.Info("snapshot store recovered")
	}
	c.degraded = false
}
