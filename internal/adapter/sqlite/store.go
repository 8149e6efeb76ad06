// Package sqlite stores forecast snapshots in SQLite, one row per forecast
// hour and wind component.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS wind_components (
	forecast_time INTEGER NOT NULL,
	component     TEXT    NOT NULL CHECK (component IN ('u', 'v')),
	header        TEXT    NOT NULL,
	data          TEXT    NOT NULL,
	ingested_at   TEXT    NOT NULL,
	PRIMARY KEY (forecast_time, component)
)`

// Store is a pooled snapshot store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	// busy_timeout is per connection, so it goes in the DSN to reach every pooled one.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite %s: %w", path, err)
		}
	}

	logger.Info("snapshot store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// PutSnapshot replaces both components of a forecast hour atomically.
func (s *Store) PutSnapshot(ctx context.Context, snap domain.Snapshot) error {
	header, err := json.Marshal(snap.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	ingestedAt := snap.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range []struct {
		name string
		data []float64
	}{{"u", snap.U}, {"v", snap.V}} {
		data, err := json.Marshal(c.data)
		if err != nil {
			return fmt.Errorf("encode %s component: %w", c.name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wind_components (forecast_time, component, header, data, ingested_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (forecast_time, component) DO UPDATE SET
				header = excluded.header,
				data = excluded.data,
				ingested_at = excluded.ingested_at`,
			snap.ForecastTime, c.name, string(header), string(data), ingestedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("upsert forecast %d %s: %w", snap.ForecastTime, c.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit forecast %d: %w", snap.ForecastTime, err)
	}
	return nil
}

type component struct {
	header     domain.GridHeader
	data       []float64
	ingestedAt time.Time
}

// FetchGrid loads the u and v components of a forecast hour concurrently and
// joins them. Either component missing is ErrDataUnavailable; components
// written under different headers are rejected.
func (s *Store) FetchGrid(ctx context.Context, forecastTime int) (domain.Snapshot, error) {
	var u, v component
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		u, err = s.fetchComponent(gctx, forecastTime, "u")
		return err
	})
	g.Go(func() (err error) {
		v, err = s.fetchComponent(gctx, forecastTime, "v")
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	if u.header != v.header {
		return domain.Snapshot{}, fmt.Errorf("%w: forecast %d u and v headers differ", domain.ErrMalformedSnapshot, forecastTime)
	}
	snap, err := domain.NewSnapshot(forecastTime, u.header, u.data, v.data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("forecast %d: %w", forecastTime, err)
	}
	snap.IngestedAt = u.ingestedAt
	return snap, nil
}

func (s *Store) fetchComponent(ctx context.Context, forecastTime int, name string) (component, error) {
	var header, data, ingestedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT header, data, ingested_at FROM wind_components WHERE forecast_time = ? AND component = ?`,
		forecastTime, name,
	).Scan(&header, &data, &ingestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return component{}, fmt.Errorf("forecast %d %s: %w", forecastTime, name, domain.ErrDataUnavailable)
	}
	if err != nil {
		return component{}, fmt.Errorf("query forecast %d %s: %w", forecastTime, name, err)
	}

	var c component
	if err := json.Unmarshal([]byte(header), &c.header); err != nil {
		return component{}, fmt.Errorf("%w: forecast %d %s header: %w", domain.ErrMalformedSnapshot, forecastTime, name, err)
	}
	if err := json.Unmarshal([]byte(data), &c.data); err != nil {
		return component{}, fmt.Errorf("%w: forecast %d %s data: %w", domain.ErrMalformedSnapshot, forecastTime, name, err)
	}
	if c.ingestedAt, err = time.Parse(time.RFC3339Nano, ingestedAt); err != nil {
		s.logger.Warn("unparseable ingest time", "forecast_time", forecastTime, "component", name, "error", err)
	}
	return c, nil
}

// ForecastTimes lists the forecast hours with both components stored.
func (s *Store) ForecastTimes(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT forecast_time FROM wind_components
		GROUP BY forecast_time HAVING COUNT(*) = 2
		ORDER BY forecast_time`)
	if err != nil {
		return nil, fmt.Errorf("list forecast times: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var t int
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan forecast time: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite not ready: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
