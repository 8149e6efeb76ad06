package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/wind-stream-service/internal/adapter/http"
	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockWind struct {
	resp  query.Response
	err   error
	calls int
	last  query.Request
}

func (m *mockWind) Wind(_ context.Context, req query.Request) (query.Response, error) {
	m.calls++
	m.last = req
	return m.resp, m.err
}

var testResponse = query.Response{
	Header: domain.GridHeader{La1: 50, Lo1: 10, La2: 50, Lo2: 11, Dx: 1, Dy: 1, Nx: 2, Ny: 1},
	WindU:  []float64{1.5, -2},
	WindV:  []float64{0, 3},
}

func newTestServer(wind *mockWind, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", wind, &mockReadiness{err: readyErr}, slog.New(slog.DiscardHandler))
}

func get(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(&mockWind{}, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(&mockWind{}, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(&mockWind{}, fmt.Errorf("sqlite not ready")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "sqlite not ready", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(&mockWind{}, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWind_ReturnsPayload(t *testing.T) {
	wind := &mockWind{resp: testResponse}
	rec := get(newTestServer(wind, nil), "/wind?bounds=50,10,49,12&forecastTime=3&zoom=7")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, query.Request{
		Bounds:       domain.BoundsQuery{LatN: 50, LngW: 10, LatS: 49, LngE: 12},
		ForecastTime: 3,
		Zoom:         7,
	}, wind.last)

	var body query.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, testResponse, body)
	assert.Contains(t, rec.Body.String(), `"wind_u"`)
	assert.Contains(t, rec.Body.String(), `"la1"`)
}

func TestWind_JSONPCallback(t *testing.T) {
	wind := &mockWind{resp: testResponse}
	rec := get(newTestServer(wind, nil), "/wind?bounds=50,10,49,12&callback=onWind")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "onWind("), body)
	assert.True(t, strings.HasSuffix(body, ");"), body)
}

func TestWind_ValidationRejectedBeforeQuery(t *testing.T) {
	wind := &mockWind{}
	srv := newTestServer(wind, nil)

	for _, target := range []string{
		"/wind?bounds=50,10,49,12&forecastTime=16",
		"/wind?bounds=50,10,49,12&zoom=4",
		"/wind?bounds=50,10",
		"/wind",
	} {
		rec := get(srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	}
	assert.Equal(t, 0, wind.calls)
}

func TestWind_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unavailable", fmt.Errorf("fetch forecast 3: %w", domain.ErrDataUnavailable), http.StatusNotFound},
		{"validation", &domain.ValidationError{Field: "zoom", Reason: "bad"}, http.StatusBadRequest},
		{"store failure", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newTestServer(&mockWind{err: tt.err}, nil), "/wind?bounds=50,10,49,12")
			assert.Equal(t, tt.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}
