package port

import (
	"context"
	"time"

	"tokenscout/internal/domain/model"
)

// SnapshotStore is the durable cache tier. Implementations keep a single
// snapshot under one key with native expiry.
type SnapshotStore interface {
	Set(ctx context.Context, snap model.Snapshot, ttl time.Duration) error
	Get(ctx context.Context) (*model.Snapshot, error)
	TTL(ctx context.Context) (time.Duration, error)
	Delete(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// FallbackStore is the in-process cache tier used when the durable store is
// unavailable. Validity is computed by the reader since the store has no
// native expiry.
type FallbackStore interface {
	Set(snap model.Snapshot)
	Get(ttl time.Duration) (*model.Snapshot, bool)
	Clear()
}
