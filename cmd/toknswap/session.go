package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/config"
	"github.com/kaym0/UniswapV2-Rework/internal/engine"
	"github.com/kaym0/UniswapV2-Rework/internal/storage"
	"github.com/kaym0/UniswapV2-Rework/internal/storage/postgres"
)

// session is one CLI invocation against the persisted engine: it loads the
// snapshot, runs a command and saves the snapshot back.
type session struct {
	ctx    context.Context
	cfg    config.Config
	logger *zap.Logger
	engine *engine.Engine

	snapshots storage.SnapshotStore
	pg        *postgres.Store
	closers   []func()
}

type sessionOptions struct {
	// fresh builds a new engine instead of loading the saved one.
	fresh    bool
	engine   engine.Config
	registry prometheus.Registerer
}

func openSession(cmd *cobra.Command, opts sessionOptions) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &session{ctx: ctx, cfg: cfg, logger: logger}
	s.closers = append(s.closers, stop, func() { _ = logger.Sync() })

	var sinks storage.Fanout
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.pg = store
		s.snapshots = store.Snapshots(cfg.SnapshotName)
		sinks = append(sinks, store)
	} else {
		s.snapshots = storage.NewFileSnapshotStore(cfg.StateFile)
	}
	if cfg.Events != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Events))
	}

	deps := engine.Deps{Sink: sinks, Registerer: opts.registry, Logger: logger}
	if err := s.load(opts, deps); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) load(opts sessionOptions, deps engine.Deps) error {
	snap, found, err := s.snapshots.LoadSnapshot(s.ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	ecfg := opts.engine
	ecfg.ChainID = s.cfg.ChainID
	if ecfg.PairSuffix == "" {
		ecfg.PairSuffix = s.cfg.PairSuffix
	}

	switch {
	case opts.fresh && found:
		return fmt.Errorf("state already initialized at sequence %d", snap.Sequence)
	case opts.fresh:
		if ecfg.Deployer, err = s.Caller(); err != nil {
			return err
		}
		s.engine, err = engine.New(s.ctx, ecfg, deps)
	case !found:
		return fmt.Errorf("no engine state found; run `toknswap init` first")
	default:
		s.engine, err = engine.Open(s.ctx, ecfg, deps, snap)
	}
	if err != nil {
		return err
	}

	s.logger.Debug("session opened",
		zap.Uint64("chain_id", s.cfg.ChainID),
		zap.Uint64("sequence", s.engine.Sequence()),
		zap.String("pg_dsn", redactDSN(s.cfg.PgDSN)),
		zap.String("state_file", s.cfg.StateFile),
	)
	return nil
}

// Save persists the engine snapshot, and the pair listing when Postgres is
// configured.
func (s *session) Save() error {
	snap := s.engine.Snapshot()
	if err := s.snapshots.SaveSnapshot(s.ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if s.pg != nil {
		if err := s.pg.UpsertPairs(s.ctx, s.cfg.ChainID, s.engine.Pairs()); err != nil {
			return fmt.Errorf("upsert pairs: %w", err)
		}
	}
	s.logger.Debug("snapshot saved", zap.Uint64("sequence", snap.Sequence))
	return nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Caller is the --from address.
func (s *session) Caller() (common.Address, error) {
	if s.cfg.From == "" {
		return common.Address{}, fmt.Errorf("--from is required")
	}
	return config.ParseAddress(s.cfg.From)
}

func (s *session) Deadline() (uint64, error) {
	return config.ParseDeadline(s.cfg.Deadline, time.Now())
}

// mutate runs fn against a loaded engine and saves the result.
func mutate(cmd *cobra.Command, fn func(s *session, caller common.Address) (interface{}, error)) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	caller, err := s.Caller()
	if err != nil {
		return err
	}
	out, err := fn(s, caller)
	if err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return printJSON(cmd, out)
}

// view runs fn against a loaded engine without saving.
func view(cmd *cobra.Command, fn func(s *session) (interface{}, error)) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := fn(s)
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}
