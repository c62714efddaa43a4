package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenscout/internal/adapter/cache"
	"tokenscout/internal/domain/model"
)

// fakeStore is a scriptable in-memory SnapshotStore standing in for redis.
type fakeStore struct {
	mu   sync.Mutex
	snap *model.Snapshot
	ttl  time.Duration

	getErr error
	setErr error
	delErr error

	getCalls atomic.Int64
	setCalls atomic.Int64
}

func (s *fakeStore) Set(ctx context.Context, snap model.Snapshot, ttl time.Duration) error {
	s.setCalls.Add(1)
	if s.setErr != nil {
		return s.setErr
	}
	s.mu.Lock()
	s.snap = &snap
	s.ttl = ttl
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Get(ctx context.Context) (*model.Snapshot, error) {
	s.getCalls.Add(1)
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *fakeStore) TTL(ctx context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl, nil
}

func (s *fakeStore) Delete(ctx context.Context) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                   { return nil }

type fakeSource struct {
	tokens []model.Token
	err    error
	delay  time.Duration
	calls  atomic.Int64
}

func (f *fakeSource) FetchAndNormalize(ctx context.Context) ([]model.Token, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

func sampleTokens() []model.Token {
	return []model.Token{
		{Address: "A", Symbol: "AAA", PriceUSD: 0.00005, MarketCapUSD: 50_000},
		{Address: "B", Symbol: "BBB", PriceUSD: 0.00004, MarketCapUSD: 40_000},
	}
}

func newTestCache(store *fakeStore, source *fakeSource, cfg CacheConfig) *SnapshotCache {
	return NewSnapshotCache(store, cache.NewMemoryStore(), source, cfg, nil)
}

func TestGetWithSmartRefresh_ColdStartFill(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{tokens: sampleTokens()}
	c := newTestCache(store, source, CacheConfig{})

	snap, err := c.GetWithSmartRefresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, sampleTokens(), snap.Tokens)
	assert.EqualValues(t, 1, source.calls.Load(), "cold start performs exactly one fetch")

	// The fill was written through to the store.
	store.mu.Lock()
	written := store.snap
	store.mu.Unlock()
	require.NotNil(t, written)
	assert.Equal(t, snap.Tokens, written.Tokens)
}

func TestGetWithSmartRefresh_ColdStartSingleFlight(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{tokens: sampleTokens(), delay: 50 * time.Millisecond}
	c := newTestCache(store, source, CacheConfig{})

	const readers = 10
	var wg sync.WaitGroup
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			snap, err := c.GetWithSmartRefresh(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, source.calls.Load(), "concurrent cold readers share one fetch")
}

func TestGetWithSmartRefresh_ColdCacheAndFeedDown(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{err: errors.New("connection refused")}
	c := newTestCache(store, source, CacheConfig{})

	snap, err := c.GetWithSmartRefresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFeedUnavailable)
	assert.Nil(t, snap)
}

func TestGetWithSmartRefresh_NearExpiryDoesNotBlock(t *testing.T) {
	store := &fakeStore{
		snap: &model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()},
		ttl:  30 * time.Second, // below the 2m refresh threshold
	}
	source := &fakeSource{tokens: sampleTokens(), delay: 200 * time.Millisecond}
	c := newTestCache(store, source, CacheConfig{})

	start := time.Now()
	snap, err := c.GetWithSmartRefresh(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Less(t, elapsed, 100*time.Millisecond, "near-expiry read must not wait for the refresh")

	// The background refresh still happens.
	require.Eventually(t, func() bool {
		return source.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGetWithSmartRefresh_FreshSnapshotNoRefresh(t *testing.T) {
	store := &fakeStore{
		snap: &model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()},
		ttl:  10 * time.Minute,
	}
	source := &fakeSource{tokens: sampleTokens()}
	c := newTestCache(store, source, CacheConfig{})

	snap, err := c.GetWithSmartRefresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, source.calls.Load(), "a fresh snapshot triggers no refresh")
}

func TestRead_StoreErrorFallsThroughToFallback(t *testing.T) {
	store := &fakeStore{setErr: errors.New("connection refused")}
	source := &fakeSource{tokens: sampleTokens()}
	fallback := cache.NewMemoryStore()
	c := NewSnapshotCache(store, fallback, source, CacheConfig{}, nil)

	// Write lands in the fallback because the store is down.
	c.Write(context.Background(), model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()})

	store.getErr = errors.New("connection refused")
	snap, remaining := c.Read(context.Background())
	require.NotNil(t, snap)
	assert.Equal(t, sampleTokens(), snap.Tokens)
	assert.Greater(t, remaining, time.Duration(0))
}

func TestRead_DegradedStoreSkipsNetworkCall(t *testing.T) {
	store := &fakeStore{getErr: errors.New("timeout")}
	source := &fakeSource{}
	fallback := cache.NewMemoryStore()
	fallback.Set(model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()})
	c := NewSnapshotCache(store, fallback, source, CacheConfig{ProbeInterval: time.Hour}, nil)

	// First read hits the store, fails, and flips the degraded flag.
	snap, _ := c.Read(context.Background())
	require.NotNil(t, snap)
	assert.EqualValues(t, 1, store.getCalls.Load())

	// Subsequent reads go straight to the fallback.
	for i := 0; i < 5; i++ {
		snap, _ = c.Read(context.Background())
		require.NotNil(t, snap)
	}
	assert.EqualValues(t, 1, store.getCalls.Load(), "degraded reads must skip the store")
}

func TestRead_DegradedStoreReprobesAfterInterval(t *testing.T) {
	store := &fakeStore{getErr: errors.New("timeout")}
	fallback := cache.NewMemoryStore()
	fallback.Set(model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()})
	c := NewSnapshotCache(store, fallback, &fakeSource{}, CacheConfig{ProbeInterval: 30 * time.Millisecond}, nil)

	c.Read(context.Background())
	require.EqualValues(t, 1, store.getCalls.Load())

	// After the probe interval the store is retried; once it answers, the
	// degraded flag clears.
	store.mu.Lock()
	store.snap = &model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()}
	store.ttl = 10 * time.Minute
	store.mu.Unlock()
	store.getErr = nil

	require.Eventually(t, func() bool {
		snap, _ := c.Read(context.Background())
		return snap != nil && store.getCalls.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestRead_NoDataAnywhere(t *testing.T) {
	c := newTestCache(&fakeStore{}, &fakeSource{}, CacheConfig{})

	snap, remaining := c.Read(context.Background())
	assert.Nil(t, snap)
	assert.Zero(t, remaining)
}

func TestRead_ExpiredFallbackIsAbsent(t *testing.T) {
	store := &fakeStore{getErr: errors.New("down")}
	fallback := cache.NewMemoryStore()
	fallback.Set(model.Snapshot{
		Tokens:    sampleTokens(),
		WrittenAt: time.Now().Add(-16 * time.Minute),
	})
	c := NewSnapshotCache(store, fallback, &fakeSource{}, CacheConfig{TTL: 15 * time.Minute}, nil)

	snap, _ := c.Read(context.Background())
	assert.Nil(t, snap, "a fallback snapshot older than TTL is absent")
}

func TestClear_WipesBothTiers(t *testing.T) {
	store := &fakeStore{
		snap: &model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()},
		ttl:  10 * time.Minute,
	}
	fallback := cache.NewMemoryStore()
	fallback.Set(model.Snapshot{Tokens: sampleTokens(), WrittenAt: time.Now().UTC()})
	c := NewSnapshotCache(store, fallback, &fakeSource{}, CacheConfig{}, nil)

	require.NoError(t, c.Clear(context.Background()))

	snap, _ := c.Read(context.Background())
	assert.Nil(t, snap)
}

func TestRefresh_ReturnsCount(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{tokens: sampleTokens()}
	c := newTestCache(store, source, CacheConfig{})

	count, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.EqualValues(t, 1, store.setCalls.Load())
}

func TestRefresh_FeedErrorNoPartialWrite(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{err: errors.New("boom")}
	c := newTestCache(store, source, CacheConfig{})

	_, err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 0, store.setCalls.Load(), "a failed fetch writes nothing")
}
