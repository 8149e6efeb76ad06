package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
)

// SnapshotWriter persists one forecast hour.
type SnapshotWriter interface {
	PutSnapshot(ctx context.Context, s domain.Snapshot) error
}

// StoreLoader implements BatchLoader over a snapshot store.
type StoreLoader struct {
	store SnapshotWriter
}

// NewStoreLoader creates a loader writing to store.
func NewStoreLoader(store SnapshotWriter) *StoreLoader {
	return &StoreLoader{store: store}
}

// LoadBatch writes the snapshots in order, stopping at the first failure.
func (l *StoreLoader) LoadBatch(ctx context.Context, snaps []domain.Snapshot) error {
	for _, s := range snaps {
		if err := l.store.PutSnapshot(ctx, s); err != nil {
			return fmt.Errorf("load forecast %d: %w", s.ForecastTime, err)
		}
	}
	return nil
}
