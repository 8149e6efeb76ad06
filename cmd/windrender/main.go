// Command windrender animates a wind window headlessly and writes the final
// frame as a PNG. Frames are stepped on a fake clock, so the output depends
// only on the snapshot, the configuration, and the seed.
//
// Usage:
//
//	go run ./cmd/windrender -config viewer.yaml -out wind.png
//	go run ./cmd/windrender -snapshot data/forecast/snapshot_00.json -frames 200 -csv points.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wind-stream-service/internal/adapter/windclient"
	"github.com/couchcryptid/wind-stream-service/internal/config"
	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/export"
	"github.com/couchcryptid/wind-stream-service/internal/field"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
	"github.com/couchcryptid/wind-stream-service/internal/projection"
	"github.com/couchcryptid/wind-stream-service/internal/render"
	"github.com/couchcryptid/wind-stream-service/internal/stream"
	"github.com/couchcryptid/wind-stream-service/internal/subset"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "viewer YAML config (embedded defaults when empty)")
	snapshotPath := flag.String("snapshot", "", "snapshot JSON file; fetched from the API when empty")
	frames := flag.Uint64("frames", 150, "frames to animate before writing")
	seed := flag.Uint64("seed", 1, "particle seed")
	out := flag.String("out", "wind.png", "PNG output path")
	csvPath := flag.String("csv", "", "optional CSV of the window's grid points")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg, err := config.LoadViewer(*configPath)
	if err != nil {
		return err
	}
	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := observability.NewConsoleLogger(os.Stderr, level, "text")

	window, err := loadWindow(context.Background(), cfg, *snapshotPath, logger)
	if err != nil {
		return err
	}
	stats := window.Stats()
	logger.Info("window loaded",
		"forecast_time", window.ForecastTime,
		"grid", fmt.Sprintf("%dx%d", window.Header.Nx, window.Header.Ny),
		"speed_mean", stats.Mean, "speed_max", stats.Max)

	if *csvPath != "" {
		if err := writeCSV(*csvPath, window); err != nil {
			return err
		}
		logger.Info("grid points written", "path", *csvPath)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	canvas, err := animate(cfg, window, *frames, rng, logger, observability.NewMetrics())
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := canvas.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *out, err)
	}
	logger.Info("frame written", "path", *out, "frames", *frames)
	return nil
}

// loadWindow returns the configured window of a forecast, read from a local
// snapshot file or requested from the API.
func loadWindow(ctx context.Context, cfg *config.Viewer, path string, logger *slog.Logger) (domain.Snapshot, error) {
	bounds := cfg.QueryBounds()
	if path == "" {
		client := windclient.NewClient(cfg.API.URL, cfg.API.Timeout, logger)
		return client.Wind(ctx, bounds, cfg.View.ForecastTime, cfg.View.Zoom)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := domain.ParseSnapshot(data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	r := subset.Extract(snap, bounds, cfg.View.Zoom)
	if r.Degenerate {
		logger.Warn("window collapsed onto the grid edge", "bounds", bounds.String(), "rect", r.Rect)
	}
	return domain.Snapshot{ForecastTime: snap.ForecastTime, Header: r.Header, U: r.U, V: r.V}, nil
}

// animate runs frames animation frames of window on a fresh canvas the size
// of the configured window.
func animate(cfg *config.Viewer, window domain.Snapshot, frames uint64, rng *rand.Rand, logger *slog.Logger, metrics *observability.Metrics) (*render.Canvas, error) {
	f, err := field.FromSnapshot(window)
	if err != nil {
		return nil, err
	}
	w, h := cfg.Window.Width, cfg.Window.Height
	b := cfg.QueryBounds()
	proj, err := projection.ForBounds(b.LatN, b.LngW, b.LatS, b.LngE, float64(w), float64(h))
	if err != nil {
		return nil, err
	}

	opts := cfg.StreamOptions()
	clock := clockwork.NewFakeClock()
	queue := stream.NewFrameQueue(clock)
	ctrl := stream.NewController(stream.Bounds{X1: w, Y1: h}, opts, queue, rng, logger, metrics)
	ctrl.SetField(f, proj, cfg.View.Scale)

	canvas := render.NewCanvas(w, h)
	ctrl.Start(canvas, cfg.View.Density)
	for ctrl.Frames() < frames {
		clock.Advance(opts.FramePeriod)
		if queue.RunDue() == 0 {
			return nil, fmt.Errorf("animation stalled after %d frames", ctrl.Frames())
		}
	}
	ctrl.Stop()
	return canvas, nil
}

func writeCSV(path string, s domain.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, s.Header, s.U, s.V); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
