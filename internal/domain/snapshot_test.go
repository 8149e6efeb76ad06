package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallHeader = domain.GridHeader{La1: 50, Lo1: 0, La2: 49, Lo2: 1, Dx: 1, Dy: 1, Nx: 2, Ny: 2}

func TestParseSnapshot_Valid(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	payload := []byte(`{
		"forecast_time": 3,
		"header": {"la1": 50, "lo1": 0, "la2": 49, "lo2": 1, "dx": 1, "dy": 1, "nx": 2, "ny": 2},
		"wind_u": [1, 2, 3, 4],
		"wind_v": [0, 0, 0, 0]
	}`)

	s, err := domain.ParseSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, 3, s.ForecastTime)
	assert.Equal(t, smallHeader, s.Header)
	assert.Equal(t, []float64{1, 2, 3, 4}, s.U)
	assert.Equal(t, fixed, s.IngestedAt)
}

func TestParseSnapshot_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"missing forecast_time", `{"header": {"la1": 50, "lo1": 0, "la2": 49, "lo2": 1, "dx": 1, "dy": 1, "nx": 2, "ny": 2}, "wind_u": [1,2,3,4], "wind_v": [1,2,3,4]}`},
		{"missing header", `{"forecast_time": 0, "wind_u": [1], "wind_v": [1]}`},
		{"forecast_time out of range", `{"forecast_time": 16, "header": {"la1": 50, "lo1": 0, "la2": 49, "lo2": 1, "dx": 1, "dy": 1, "nx": 2, "ny": 2}, "wind_u": [1,2,3,4], "wind_v": [1,2,3,4]}`},
		{"short u", `{"forecast_time": 0, "header": {"la1": 50, "lo1": 0, "la2": 49, "lo2": 1, "dx": 1, "dy": 1, "nx": 2, "ny": 2}, "wind_u": [1,2,3], "wind_v": [1,2,3,4]}`},
		{"zero nx", `{"forecast_time": 0, "header": {"la1": 50, "lo1": 0, "la2": 49, "lo2": 1, "dx": 1, "dy": 1, "nx": 0, "ny": 2}, "wind_u": [], "wind_v": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.ParseSnapshot([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedSnapshot)
		})
	}
}

func TestSnapshot_ValidateKeepsValidationCause(t *testing.T) {
	s := domain.Snapshot{ForecastTime: -1, Header: smallHeader, U: make([]float64, 4), V: make([]float64, 4)}
	err := s.Validate()
	require.Error(t, err)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "forecastTime", ve.Field)
}

func TestGridHeader_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.GridHeader)
		ok     bool
	}{
		{"valid", func(*domain.GridHeader) {}, true},
		{"0-360 longitudes", func(h *domain.GridHeader) { h.Lo1, h.Lo2 = 200, 201 }, true},
		{"single point", func(h *domain.GridHeader) { h.Nx, h.Ny, h.La2, h.Lo2 = 1, 1, 50, 0 }, true},
		{"negative dx", func(h *domain.GridHeader) { h.Dx = -1 }, false},
		{"zero dy", func(h *domain.GridHeader) { h.Dy = 0 }, false},
		{"latitude past pole", func(h *domain.GridHeader) { h.La1 = 91 }, false},
		{"origin south of end", func(h *domain.GridHeader) { h.La1, h.La2 = 49, 50 }, false},
		{"origin east of end", func(h *domain.GridHeader) { h.Lo1, h.Lo2 = 1, 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := smallHeader
			tt.mutate(&h)
			err := h.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrMalformedSnapshot)
			}
		})
	}
}

func TestSnapshot_Stats(t *testing.T) {
	s, err := domain.NewSnapshot(0, smallHeader, []float64{3, 0, 0, 6}, []float64{4, 0, 0, 8})
	require.NoError(t, err)

	st := s.Stats()
	assert.InDelta(t, 3.75, st.Mean, 1e-12)
	assert.InDelta(t, 10.0, st.Max, 1e-12)
	assert.Equal(t, domain.SpeedStats{}, domain.Snapshot{}.Stats())
}

func TestIndexRect_Extent(t *testing.T) {
	assert.Equal(t, 3, domain.IndexRect{X1: 2, X2: 4}.Width())
	assert.Equal(t, 1, domain.IndexRect{Y1: 7, Y2: 7}.Height())
	assert.Equal(t, 0, domain.IndexRect{X1: 5, X2: 3}.Width())
}
