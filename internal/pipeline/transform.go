package pipeline

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
)

// SnapshotTransformer implements Transformer by parsing and validating the
// message payload.
type SnapshotTransformer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a SnapshotTransformer.
func NewTransformer(logger *slog.Logger, metrics *observability.Metrics) *SnapshotTransformer {
	return &SnapshotTransformer{logger: logger, metrics: metrics}
}

func (t *SnapshotTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.Snapshot, error) {
	snap, err := domain.ParseSnapshot(raw.Value)
	if err != nil {
		return domain.Snapshot{}, err
	}

	stats := snap.Stats()
	t.metrics.SnapshotMaxSpeed.WithLabelValues(strconv.Itoa(snap.ForecastTime)).Set(stats.Max)
	t.logger.Info("snapshot parsed",
		"forecast_time", snap.ForecastTime,
		"nx", snap.Header.Nx,
		"ny", snap.Header.Ny,
		"mean_speed", stats.Mean,
		"max_speed", stats.Max,
	)
	return snap, nil
}
