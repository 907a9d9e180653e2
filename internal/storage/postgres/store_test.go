package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"engine_events", "pairs", "engine_snapshots", "pool_window_metrics"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema is missing table %s", table)
		}
	}
}

func TestSnapshotTableRequiresName(t *testing.T) {
	table := (&Store{}).Snapshots("")
	if _, _, err := table.LoadSnapshot(context.Background()); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
