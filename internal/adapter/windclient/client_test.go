package windclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testBounds = domain.BoundsQuery{LatN: 50, LngW: 10, LatS: 49, LngE: 11}

func testClient(baseURL string) *Client {
	return NewClient(baseURL+"/", 5*time.Second, slog.New(slog.DiscardHandler))
}

func TestClient_Wind_Success(t *testing.T) {
	want := query.Response{
		Header: domain.GridHeader{La1: 50, Lo1: 10, La2: 49, Lo2: 11, Dx: 1, Dy: 1, Nx: 2, Ny: 2},
		WindU:  []float64{1, 2, 3, 4},
		WindV:  []float64{-1, -2, -3, -4},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wind", r.URL.Path)
		assert.Equal(t, "50,10,49,11", r.URL.Query().Get("bounds"))
		assert.Equal(t, "4", r.URL.Query().Get("forecastTime"))
		assert.Equal(t, "8", r.URL.Query().Get("zoom"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(want))
	}))
	defer srv.Close()

	s, err := testClient(srv.URL).Wind(context.Background(), testBounds, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, 4, s.ForecastTime)
	assert.Equal(t, want.Header, s.Header)
	assert.Equal(t, want.WindU, s.U)
	assert.Equal(t, want.WindV, s.V)
}

func TestClient_Wind_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no data"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Wind(context.Background(), testBounds, 0, 9)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestClient_Wind_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid zoom: 3 outside [5,13]"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Wind(context.Background(), testBounds, 0, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "invalid zoom")
}

func TestClient_Wind_RejectsShortArrays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"header":{"nx":2,"ny":2},"wind_u":[1],"wind_v":[1]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Wind(context.Background(), testBounds, 0, 9)
	assert.ErrorIs(t, err, domain.ErrMalformedSnapshot)
}

func TestClient_Wind_EmptyWindowAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"header":{"nx":0,"ny":0},"wind_u":[],"wind_v":[]}`))
	}))
	defer srv.Close()

	s, err := testClient(srv.URL).Wind(context.Background(), testBounds, 0, 9)
	require.NoError(t, err)
	assert.Empty(t, s.U)
}

func TestClient_Wind_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Wind(ctx, testBounds, 0, 9)
	assert.ErrorIs(t, err, context.Canceled)
}
