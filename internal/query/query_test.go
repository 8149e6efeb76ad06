package query_test

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
	"github.com/couchcryptid/wind-stream-service/internal/query"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct {
	snap  domain.Snapshot
	err   error
	calls int
}

func (m *mockStore) FetchGrid(_ context.Context, forecastTime int) (domain.Snapshot, error) {
	m.calls++
	if m.err != nil {
		return domain.Snapshot{}, m.err
	}
	s := m.snap
	s.ForecastTime = forecastTime
	return s, nil
}

// 3x3 grid, 1 degree spacing, NW corner at (50, 10).
func testSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	h := domain.GridHeader{La1: 50, Lo1: 10, La2: 48, Lo2: 12, Dx: 1, Dy: 1, Nx: 3, Ny: 3}
	u := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}
	v := []float64{8, 7, 6, 5, 4, 3, 2, 1, 0}
	s, err := domain.NewSnapshot(0, h, u, v)
	require.NoError(t, err)
	return s
}

func newService(store query.GridFetcher) (*query.Service, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return query.NewService(store, slog.New(slog.DiscardHandler), metrics), metrics
}

// --- ParseRequest ---

func TestParseRequest_Defaults(t *testing.T) {
	req, err := query.ParseRequest(url.Values{"bounds": {"50,10,48,12"}})
	require.NoError(t, err)
	assert.Equal(t, 0, req.ForecastTime)
	assert.Equal(t, 9, req.Zoom)
	assert.Equal(t, domain.BoundsQuery{LatN: 50, LngW: 10, LatS: 48, LngE: 12}, req.Bounds)
}

func TestParseRequest_RoundTripsValues(t *testing.T) {
	want := query.Request{Bounds: domain.BoundsQuery{LatN: 47.5, LngW: 130, LatS: 40, LngE: 140}, ForecastTime: 7, Zoom: 6}
	got, err := query.ParseRequest(want.Values())
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRequest_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		vals  url.Values
		field string
	}{
		{"missing bounds", url.Values{}, "bounds"},
		{"bad bounds", url.Values{"bounds": {"1,2"}}, "bounds"},
		{"forecast too large", url.Values{"bounds": {"1,2,3,4"}, "forecastTime": {"16"}}, "forecastTime"},
		{"forecast negative", url.Values{"bounds": {"1,2,3,4"}, "forecastTime": {"-1"}}, "forecastTime"},
		{"forecast not int", url.Values{"bounds": {"1,2,3,4"}, "forecastTime": {"1.5"}}, "forecastTime"},
		{"zoom too small", url.Values{"bounds": {"1,2,3,4"}, "zoom": {"4"}}, "zoom"},
		{"zoom too large", url.Values{"bounds": {"1,2,3,4"}, "zoom": {"14"}}, "zoom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.ParseRequest(tt.vals)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

// --- Service.Wind ---

func TestWind_FullExtent(t *testing.T) {
	store := &mockStore{snap: testSnapshot(t)}
	svc, metrics := newService(store)

	resp, err := svc.Wind(context.Background(), query.Request{
		Bounds: domain.BoundsQuery{LatN: 50, LngW: 10, LatS: 48, LngE: 12},
		Zoom:   9,
	})
	require.NoError(t, err)
	assert.Equal(t, store.snap.Header, resp.Header)
	assert.Len(t, resp.WindU, 9)
	assert.Len(t, resp.WindV, 9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.WindRequests.WithLabelValues("ok")), 0)
}

func TestWind_InvalidRequestSkipsFetch(t *testing.T) {
	store := &mockStore{snap: testSnapshot(t)}
	svc, metrics := newService(store)

	_, err := svc.Wind(context.Background(), query.Request{ForecastTime: 20, Zoom: 9})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, store.calls)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.WindRequests.WithLabelValues("invalid")), 0)
}

func TestWind_DataUnavailable(t *testing.T) {
	store := &mockStore{err: domain.ErrDataUnavailable}
	svc, metrics := newService(store)

	_, err := svc.Wind(context.Background(), query.Request{ForecastTime: 3, Zoom: 9})
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.WindRequests.WithLabelValues("unavailable")), 0)
}

func TestWind_StoreFailureIsNotPartial(t *testing.T) {
	store := &mockStore{err: errors.New("disk on fire")}
	svc, metrics := newService(store)

	resp, err := svc.Wind(context.Background(), query.Request{Zoom: 9})
	require.Error(t, err)
	assert.Nil(t, resp.WindU)
	assert.Nil(t, resp.WindV)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.WindRequests.WithLabelValues("error")), 0)
}

func TestWind_DegenerateBoundsIsValid(t *testing.T) {
	store := &mockStore{snap: testSnapshot(t)}
	svc, metrics := newService(store)

	// Entirely east of the grid: both x indices clamp to the last column.
	resp, err := svc.Wind(context.Background(), query.Request{
		Bounds: domain.BoundsQuery{LatN: 50, LngW: 30, LatS: 48, LngE: 40},
		Zoom:   9,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Header.Nx)
	assert.Equal(t, 3, resp.Header.Ny)
	assert.Equal(t, []float64{2, 5, 8}, resp.WindU)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.DegenerateBounds), 0)
}

func TestWind_ThinsBelowFullResolution(t *testing.T) {
	store := &mockStore{snap: testSnapshot(t)}
	svc, _ := newService(store)

	resp, err := svc.Wind(context.Background(), query.Request{
		Bounds: domain.BoundsQuery{LatN: 50, LngW: 10, LatS: 48, LngE: 12},
		Zoom:   8,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Header.Nx)
	assert.Equal(t, 2, resp.Header.Ny)
	assert.InDelta(t, 2.0, resp.Header.Dx, 0)
	assert.Equal(t, []float64{0, 2, 6, 8}, resp.WindU)
}
