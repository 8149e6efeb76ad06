package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wind_stream"

// Metrics holds the Prometheus counters, histograms, and gauges for the API,
// the ingest pipeline, and the particle animation.
type Metrics struct {
	// Wind query metrics.
	WindRequests        *prometheus.CounterVec // labels: outcome={ok,invalid,unavailable,error}
	WindRequestDuration prometheus.Histogram
	DegenerateBounds    prometheus.Counter
	SnapshotCache       *prometheus.CounterVec // labels: result={hit,miss}

	// Ingest pipeline metrics.
	SnapshotsIngested       prometheus.Counter
	SnapshotsSuperseded     prometheus.Counter
	IngestErrors            prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	SnapshotMaxSpeed        *prometheus.GaugeVec // labels: forecast_time

	// Animation metrics.
	FramesRendered  prometheus.Counter
	FrameFaults     prometheus.Counter
	FrameDuration   prometheus.Histogram
	ParticlesActive prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.WindRequests,
		m.WindRequestDuration,
		m.DegenerateBounds,
		m.SnapshotCache,
		m.SnapshotsIngested,
		m.SnapshotsSuperseded,
		m.IngestErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.SnapshotMaxSpeed,
		m.FramesRendered,
		m.FrameFaults,
		m.FrameDuration,
		m.ParticlesActive,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		WindRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wind_requests_total",
			Help:      help("Wind queries by outcome."),
		}, []string{"outcome"}),
		WindRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wind_request_duration_seconds",
			Help:      help("Duration of a wind query from validation to extracted payload."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		DegenerateBounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_bounds_total",
			Help:      help("Wind queries whose clamped rectangle had no extent on an axis."),
		}),
		SnapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      help("Snapshot cache lookups by result."),
		}, []string{"result"}),
		SnapshotsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_ingested_total",
			Help:      help("Snapshots written to the store by the ingest pipeline."),
		}),
		SnapshotsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_superseded_total",
			Help:      help("Snapshots dropped because a later message in the same batch carried the same forecast hour."),
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      help("Snapshot messages rejected as malformed."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the ingest pipeline is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of snapshot messages per ingest batch."),
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete ingest batch."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SnapshotMaxSpeed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_max_speed",
			Help:      help("Maximum wind speed of the latest snapshot per forecast hour."),
		}, []string{"forecast_time"}),
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      help("Animation frames completed, faulted or not."),
		}),
		FrameFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_faults_total",
			Help:      help("Animation frames aborted by a fault."),
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      help("Time spent in one evolve/draw cycle."),
			Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.04, 0.08, 0.16},
		}),
		ParticlesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "particles_active",
			Help:      help("Particles owned by the running animation."),
		}),
	}
}
