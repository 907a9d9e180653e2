package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/storage"
)

//go:embed schema.sql
var schema string

var (
	_ storage.Storage       = (*Store)(nil)
	_ storage.SnapshotStore = (*SnapshotTable)(nil)
)

// Store provides Postgres persistence for engine events, pair listings and
// snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutLogBatch inserts engine events. A record at an existing (block, log
// index) replaces it: the block number is reused only when the snapshot of
// the earlier call was never saved.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, log := range logs {
		batch.Queue(`
			INSERT INTO engine_events (
				chain_id, block_number, log_index, tx_hash, address, topics, data, op, ts, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (chain_id, block_number, log_index)
			DO UPDATE SET
				tx_hash = EXCLUDED.tx_hash,
				address = EXCLUDED.address,
				topics = EXCLUDED.topics,
				data = EXCLUDED.data,
				op = EXCLUDED.op,
				ts = EXCLUDED.ts,
				created_at = now()
		`,
			int64(log.ChainID),
			int64(log.BlockNumber),
			int64(log.LogIndex),
			log.TxHash,
			log.Address,
			log.Topics,
			log.Data,
			log.Op,
			int64(log.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range logs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPairs inserts or refreshes pair listings.
func (s *Store) UpsertPairs(ctx context.Context, chainID uint64, pairs []model.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pair := range pairs {
		batch.Queue(`
			INSERT INTO pairs (
				chain_id, pair_address, pair_index, token0, token1, reserve0, reserve1, total_supply,
				fee_numerator, fee_denominator, implementation, symbol, created_ts, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (chain_id, pair_address)
			DO UPDATE SET
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				total_supply = EXCLUDED.total_supply,
				updated_at = now()
		`,
			int64(chainID),
			pair.Address,
			int64(pair.Index),
			pair.Token0,
			pair.Token1,
			pair.Reserve0,
			pair.Reserve1,
			pair.TotalSupply,
			int64(pair.FeeNumerator),
			int64(pair.FeeDenominator),
			pair.Implementation,
			pair.Symbol,
			int64(pair.CreatedAt),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pairs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				chain_id, pool_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, mint_count, burn_count, volume0, volume1, fee0, fee1,
				fee_rate0, fee_rate1, tvl0, tvl1, apr, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
			ON CONFLICT (chain_id, pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				mint_count = EXCLUDED.mint_count,
				burn_count = EXCLUDED.burn_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				tvl0 = EXCLUDED.tvl0,
				tvl1 = EXCLUDED.tvl1,
				apr = EXCLUDED.apr,
				updated_at = now()
		`,
			int64(m.ChainID),
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.MintCount),
			int64(m.BurnCount),
			m.Volume0,
			m.Volume1,
			m.Fee0,
			m.Fee1,
			m.FeeRate0,
			m.FeeRate1,
			m.TVL0,
			m.TVL1,
			m.APR,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Snapshots returns a snapshot store over the engine_snapshots row name.
func (s *Store) Snapshots(name string) *SnapshotTable {
	return &SnapshotTable{store: s, name: name}
}

// SnapshotTable keeps one named engine snapshot as JSONB.
type SnapshotTable struct {
	store *Store
	name  string
}

func (t *SnapshotTable) LoadSnapshot(ctx context.Context) (model.Snapshot, bool, error) {
	if t.name == "" {
		return model.Snapshot{}, false, fmt.Errorf("snapshot name required")
	}
	var data []byte
	row := t.store.pool.QueryRow(ctx, `SELECT snapshot FROM engine_snapshots WHERE name=$1`, t.name)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("parse snapshot %s: %w", t.name, err)
	}
	if snap.Version != model.SnapshotVersion {
		return model.Snapshot{}, false, fmt.Errorf("snapshot %s version %d, want %d", t.name, snap.Version, model.SnapshotVersion)
	}
	return snap, true, nil
}

func (t *SnapshotTable) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	if t.name == "" {
		return fmt.Errorf("snapshot name required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = t.store.pool.Exec(ctx, `
		INSERT INTO engine_snapshots (name, sequence, snapshot, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET sequence = EXCLUDED.sequence, snapshot = EXCLUDED.snapshot, updated_at = now()
	`, t.name, int64(snap.Sequence), data)
	return err
}
