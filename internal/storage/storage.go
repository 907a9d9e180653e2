package storage

import (
	"context"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// SnapshotStore persists the full engine state between runs.
type SnapshotStore interface {
	// LoadSnapshot reports false when nothing has been saved yet.
	LoadSnapshot(ctx context.Context) (model.Snapshot, bool, error)
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
}

// Discard drops every record.
type Discard struct{}

func (Discard) PutLogBatch(context.Context, []model.LogRecord) error { return nil }

// Fanout writes every batch to each sink in order and stops at the first
// failure.
type Fanout []Storage

func (f Fanout) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	for _, s := range f {
		if err := s.PutLogBatch(ctx, logs); err != nil {
			return err
		}
	}
	return nil
}
