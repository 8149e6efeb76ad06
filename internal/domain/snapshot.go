package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Snapshot is one forecast hour of surface wind: a header plus the paired
// component arrays. Snapshots are immutable once built; readers share the
// underlying slices and must not modify them.
type Snapshot struct {
	ForecastTime int        `json:"forecast_time"`
	Header       GridHeader `json:"header"`
	U            []float64  `json:"wind_u"`
	V            []float64  `json:"wind_v"`
	IngestedAt   time.Time  `json:"ingested_at,omitzero"`
}

// NewSnapshot validates the header and both component arrays before
// assembling a snapshot.
func NewSnapshot(forecastTime int, h GridHeader, u, v []float64) (Snapshot, error) {
	s := Snapshot{ForecastTime: forecastTime, Header: h, U: u, V: v}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate checks the forecast hour, the header, and that both component
// arrays hold exactly Nx*Ny values.
func (s Snapshot) Validate() error {
	if err := ValidateForecastTime(s.ForecastTime); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if err := s.Header.Validate(); err != nil {
		return err
	}
	if len(s.U) != s.Header.Size() || len(s.V) != s.Header.Size() {
		return fmt.Errorf("%w: header %dx%d wants %d values, got u=%d v=%d",
			ErrMalformedSnapshot, s.Header.Nx, s.Header.Ny, s.Header.Size(), len(s.U), len(s.V))
	}
	return nil
}

// snapshotWire mirrors the JSON payload with pointers so missing members can
// be told apart from zero values.
type snapshotWire struct {
	ForecastTime *int        `json:"forecast_time"`
	Header       *GridHeader `json:"header"`
	U            []float64   `json:"wind_u"`
	V            []float64   `json:"wind_v"`
}

// ParseSnapshot decodes and validates a snapshot payload, stamping it with
// the ingest time.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if w.ForecastTime == nil {
		return Snapshot{}, fmt.Errorf("%w: missing forecast_time", ErrMalformedSnapshot)
	}
	if w.Header == nil {
		return Snapshot{}, fmt.Errorf("%w: missing header", ErrMalformedSnapshot)
	}

	s, err := NewSnapshot(*w.ForecastTime, *w.Header, w.U, w.V)
	if err != nil {
		return Snapshot{}, err
	}
	s.IngestedAt = clock.Now().UTC()
	return s, nil
}

// SpeedStats summarizes wind speed over a snapshot.
type SpeedStats struct {
	Mean float64
	Max  float64
}

// Stats computes mean and maximum wind speed over every grid point.
func (s Snapshot) Stats() SpeedStats {
	n := min(len(s.U), len(s.V))
	if n == 0 {
		return SpeedStats{}
	}
	speeds := make([]float64, n)
	for i := range speeds {
		speeds[i] = math.Hypot(s.U[i], s.V[i])
	}
	return SpeedStats{Mean: stat.Mean(speeds, nil), Max: floats.Max(speeds)}
}

// RawMessage is an unprocessed snapshot message from the ingest topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
