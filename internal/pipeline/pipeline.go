package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw snapshot messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Transformer turns a raw message into a validated snapshot.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawMessage) (domain.Snapshot, error)
}

// BatchLoader writes multiple snapshots to the store.
type BatchLoader interface {
	LoadBatch(ctx context.Context, snaps []domain.Snapshot) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the snapshot ingest loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   max(batchSize, 1),
	}
}

// Ready reports whether at least one snapshot has been loaded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run executes the ingest loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("ingest pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingest pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	loaded, ok := p.transformAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad parses each message, loads the latest valid snapshot of
// every forecast hour, and commits offsets. Malformed and superseded messages
// are committed too so they cannot block the partition. Returns the number of
// loaded snapshots and false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawMessage, backoff *time.Duration) (int, bool) {
	snaps := make([]domain.Snapshot, 0, len(rawBatch))
	successfulRaws := make([]domain.RawMessage, 0, len(rawBatch))

	for _, raw := range rawBatch {
		snap, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("malformed snapshot, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.IngestErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		snaps = append(snaps, snap)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(snaps) == 0 {
		return 0, true
	}

	snaps, superseded := latestPerHour(snaps)
	if err := p.loader.LoadBatch(ctx, snaps); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(snaps))
		return 0, p.backoffOrStop(ctx, backoff)
	}

	p.metrics.SnapshotsIngested.Add(float64(len(snaps)))
	p.metrics.SnapshotsSuperseded.Add(float64(superseded))
	p.logger.Debug("snapshot batch loaded",
		"forecast_hours", forecastHours(snaps),
		"grid_points", gridPoints(snaps),
		"superseded", superseded,
	)

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(snaps), true
}

// latestPerHour keeps the last snapshot of each forecast hour, ordered by
// where that last snapshot appeared, and reports how many were dropped.
func latestPerHour(snaps []domain.Snapshot) ([]domain.Snapshot, int) {
	last := make(map[int]int, len(snaps))
	for i, s := range snaps {
		last[s.ForecastTime] = i
	}
	if len(last) == len(snaps) {
		return snaps, 0
	}
	out := make([]domain.Snapshot, 0, len(last))
	for i, s := range snaps {
		if last[s.ForecastTime] == i {
			out = append(out, s)
		}
	}
	return out, len(snaps) - len(out)
}

func forecastHours(snaps []domain.Snapshot) []int {
	hours := make([]int, len(snaps))
	for i, s := range snaps {
		hours[i] = s.ForecastTime
	}
	return hours
}

func gridPoints(snaps []domain.Snapshot) int {
	n := 0
	for _, s := range snaps {
		n += len(s.U)
	}
	return n
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
