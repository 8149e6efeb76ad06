package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingStore struct {
	fetchCalls map[int]int
	puts       int
	fetchErr   error
}

func newCountingStore() *countingStore {
	return &countingStore{fetchCalls: make(map[int]int)}
}

func (m *countingStore) FetchGrid(_ context.Context, forecastTime int) (domain.Snapshot, error) {
	m.fetchCalls[forecastTime]++
	if m.fetchErr != nil {
		return domain.Snapshot{}, m.fetchErr
	}
	return domain.Snapshot{ForecastTime: forecastTime, U: []float64{float64(m.puts)}}, nil
}

func (m *countingStore) PutSnapshot(_ context.Context, _ domain.Snapshot) error {
	m.puts++
	return nil
}

// --- CachedStore tests ---

func TestCachedStore_Hit(t *testing.T) {
	inner := newCountingStore()
	metrics := observability.NewMetricsForTesting()
	c := New(inner, 4, metrics)

	s1, err := c.FetchGrid(context.Background(), 3)
	require.NoError(t, err)
	s2, err := c.FetchGrid(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Equal(t, 1, inner.fetchCalls[3], "should only call inner once")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SnapshotCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SnapshotCache.WithLabelValues("miss")), 0)
}

func TestCachedStore_ErrorsNotCached(t *testing.T) {
	inner := newCountingStore()
	inner.fetchErr = domain.ErrDataUnavailable
	c := New(inner, 4, observability.NewMetricsForTesting())

	_, err := c.FetchGrid(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)

	inner.fetchErr = nil
	_, err = c.FetchGrid(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.fetchCalls[0])
}

func TestCachedStore_PutEvictsHour(t *testing.T) {
	inner := newCountingStore()
	c := New(inner, 4, observability.NewMetricsForTesting())

	_, err := c.FetchGrid(context.Background(), 5)
	require.NoError(t, err)
	require.NoError(t, c.PutSnapshot(context.Background(), domain.Snapshot{ForecastTime: 5}))
	assert.Equal(t, 0, c.Len())

	s, err := c.FetchGrid(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, s.U, "fetch after put sees the new snapshot")
	assert.Equal(t, 2, inner.fetchCalls[5])
}

type failingPutStore struct{ countingStore }

func (m *failingPutStore) PutSnapshot(context.Context, domain.Snapshot) error {
	return errors.New("write failed")
}

func TestCachedStore_PutFailureStillEvicts(t *testing.T) {
	inner := &failingPutStore{countingStore: *newCountingStore()}
	c := New(inner, 4, observability.NewMetricsForTesting())

	_, err := c.FetchGrid(context.Background(), 1)
	require.NoError(t, err)
	require.Error(t, c.PutSnapshot(context.Background(), domain.Snapshot{ForecastTime: 1}))
	assert.Equal(t, 0, c.Len())
}

// blockingStore holds every FetchGrid until release is closed, reading the
// stored snapshot only after it is released.
type blockingStore struct {
	mu      sync.Mutex
	stored  domain.Snapshot
	reading chan struct{}
	release chan struct{}
}

func (m *blockingStore) FetchGrid(_ context.Context, _ int) (domain.Snapshot, error) {
	m.mu.Lock()
	s := m.stored
	m.mu.Unlock()
	close(m.reading)
	<-m.release
	return s, nil
}

func (m *blockingStore) PutSnapshot(_ context.Context, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = s
	return nil
}

func TestCachedStore_FetchOverlappingPutIsNotCached(t *testing.T) {
	inner := &blockingStore{
		stored:  domain.Snapshot{ForecastTime: 7, U: []float64{1}},
		reading: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(inner, 4, observability.NewMetricsForTesting())

	fetched := make(chan domain.Snapshot)
	go func() {
		s, _ := c.FetchGrid(context.Background(), 7)
		fetched <- s
	}()
	<-inner.reading
	require.NoError(t, c.PutSnapshot(context.Background(), domain.Snapshot{ForecastTime: 7, U: []float64{2}}))
	close(inner.release)

	assert.Equal(t, []float64{1}, (<-fetched).U, "in-flight fetch returns what it read")
	assert.Equal(t, 0, c.Len(), "stale read is not cached")

	inner.reading = make(chan struct{})
	s, err := c.FetchGrid(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, s.U)
	assert.Equal(t, 1, c.Len())
}

// --- eviction tests ---

func TestCachedStore_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := newCountingStore()
	c := New(inner, 2, observability.NewMetricsForTesting())
	ctx := context.Background()

	for _, hour := range []int{1, 2, 1, 3, 1, 2} {
		_, err := c.FetchGrid(ctx, hour)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, inner.fetchCalls[1], "hour 1 stays hot")
	assert.Equal(t, 2, inner.fetchCalls[2], "hour 2 evicted by hour 3")
	assert.Equal(t, 1, inner.fetchCalls[3])
	assert.Equal(t, 2, c.Len())
}

func TestCachedStore_ZeroSizeStoresNothing(t *testing.T) {
	inner := newCountingStore()
	c := New(inner, 0, observability.NewMetricsForTesting())

	for range 2 {
		_, err := c.FetchGrid(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.fetchCalls[1])
	assert.Equal(t, 0, c.Len())
	require.NoError(t, c.PutSnapshot(context.Background(), domain.Snapshot{ForecastTime: 1}))
}
