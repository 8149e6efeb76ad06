// Command genforecast generates synthetic wind forecasts on the default grid
// and writes them as snapshot JSON files, publishes them to the snapshot
// topic, or loads them straight into a SQLite store.
//
// Usage:
//
//	go run ./cmd/genforecast -hours 0-15 -out data/forecast
//	go run ./cmd/genforecast -hours 0-3 -brokers localhost:9092 -topic wind-snapshots
//	go run ./cmd/genforecast -hours 0 -sqlite wind.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	kafkaadapter "github.com/couchcryptid/wind-stream-service/internal/adapter/kafka"
	"github.com/couchcryptid/wind-stream-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
	"github.com/couchcryptid/wind-stream-service/internal/synth"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	hours := flag.String("hours", "0-15", "forecast hours: a single hour or an inclusive range like 0-15")
	seed := flag.Int64("seed", 1, "noise seed")
	nx := flag.Int("nx", synth.DefaultHeader.Nx, "grid columns")
	ny := flag.Int("ny", synth.DefaultHeader.Ny, "grid rows")
	out := flag.String("out", "", "directory to write snapshot_<hour>.json files")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers to publish to")
	topic := flag.String("topic", "wind-snapshots", "snapshot topic")
	dbPath := flag.String("sqlite", "", "SQLite store to load snapshots into")
	flag.Parse()

	if *out == "" && *brokers == "" && *dbPath == "" {
		flag.Usage()
		return fmt.Errorf("at least one of -out, -brokers, -sqlite is required")
	}

	from, to, err := parseHours(*hours)
	if err != nil {
		return err
	}

	h := synth.DefaultHeader
	h.Nx, h.Ny = *nx, *ny
	h.La2 = h.La1 - float64(h.Ny-1)*h.Dy
	h.Lo2 = h.Lo1 + float64(h.Nx-1)*h.Dx

	params := synth.DefaultParams()
	params.Seed = *seed
	gen, err := synth.New(h, params)
	if err != nil {
		return err
	}

	snaps := make([]domain.Snapshot, 0, to-from+1)
	for hour := from; hour <= to; hour++ {
		s, err := gen.Snapshot(hour)
		if err != nil {
			return fmt.Errorf("generate forecast %d: %w", hour, err)
		}
		stats := s.Stats()
		log.Printf("forecast %d: %dx%d, speed mean %.2f max %.2f m/s", hour, h.Nx, h.Ny, stats.Mean, stats.Max)
		snaps = append(snaps, s)
	}

	ctx := context.Background()
	logger := observability.NewConsoleLogger(os.Stderr, "info", "text")

	if *out != "" {
		if err := writeFiles(*out, snaps); err != nil {
			return err
		}
	}
	if *brokers != "" {
		w := kafkaadapter.NewWriter(sharedcfg.ParseBrokers(*brokers), *topic, logger)
		err := w.Publish(ctx, snaps...)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		log.Printf("published %d snapshots to %s", len(snaps), *topic)
	}
	if *dbPath != "" {
		if err := loadStore(ctx, *dbPath, snaps, logger); err != nil {
			return err
		}
	}
	return nil
}

func parseHours(s string) (from, to int, err error) {
	lo, hi, isRange := strings.Cut(s, "-")
	if from, err = strconv.Atoi(strings.TrimSpace(lo)); err != nil {
		return 0, 0, fmt.Errorf("invalid -hours %q", s)
	}
	to = from
	if isRange {
		if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return 0, 0, fmt.Errorf("invalid -hours %q", s)
		}
	}
	if err := domain.ValidateForecastTime(from); err != nil {
		return 0, 0, err
	}
	if err := domain.ValidateForecastTime(to); err != nil {
		return 0, 0, err
	}
	if to < from {
		return 0, 0, fmt.Errorf("invalid -hours %q: range is reversed", s)
	}
	return from, to, nil
}

func writeFiles(dir string, snaps []domain.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, s := range snaps {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal forecast %d: %w", s.ForecastTime, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("snapshot_%02d.json", s.ForecastTime))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("wrote %s (%d bytes)", path, len(data))
	}
	return nil
}

func loadStore(ctx context.Context, path string, snaps []domain.Snapshot, logger *slog.Logger) error {
	store, err := sqlite.Open(ctx, path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, s := range snaps {
		if err := store.PutSnapshot(ctx, s); err != nil {
			return err
		}
	}
	logger.Info("loaded snapshots", "path", path, "count", len(snaps))
	return nil
}
