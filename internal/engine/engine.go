// Package engine is the single entry point to the exchange. It owns the
// host ledger and every component on top of it and runs each call as one
// atomic unit: the call either commits with its events written to the sink,
// or every effect it had is rolled back.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/chain"
	"github.com/kaym0/UniswapV2-Rework/internal/dex"
	"github.com/kaym0/UniswapV2-Rework/internal/factory"
	"github.com/kaym0/UniswapV2-Rework/internal/liquidity"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/router"
	"github.com/kaym0/UniswapV2-Rework/internal/storage"
)

const (
	wrappedName   = "Wrapped Ether"
	wrappedSymbol = "WETH"
)

// Config fixes the identity of a fresh engine. Two engines built from equal
// configs deploy everything at the same addresses.
type Config struct {
	ChainID uint64
	// Deployer owns the factory and deploys the built-in contracts.
	Deployer      common.Address
	PairSuffix    string
	Fee           amm.Fee
	MinimumShares *uint256.Int
	// Now supplies block time. Defaults to the wall clock.
	Now func() time.Time
}

func (c *Config) setDefaults() error {
	if c.Deployer == (common.Address{}) {
		return fmt.Errorf("engine: deployer is required")
	}
	if c.Fee == (amm.Fee{}) {
		c.Fee = amm.DefaultFee
	}
	if err := c.Fee.Validate(); err != nil {
		return err
	}
	if c.MinimumShares == nil {
		c.MinimumShares = uint256.NewInt(amm.MinimumShares)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Deps are the engine's outside collaborators. All are optional.
type Deps struct {
	Sink       storage.Storage
	Registerer prometheus.Registerer
	Logger     *zap.Logger
}

// Addresses lists the built-in contracts.
type Addresses struct {
	Deployer       common.Address `json:"deployer"`
	Factory        common.Address `json:"factory"`
	Router         common.Address `json:"router"`
	Liquidity      common.Address `json:"liquidity"`
	Wrapped        common.Address `json:"wrapped"`
	Implementation common.Address `json:"implementation"`
}

type Engine struct {
	mu sync.RWMutex

	cfg     Config
	sink    storage.Storage
	codec   *dex.EventCodec
	metrics *Metrics
	logger  *zap.Logger

	state     *chain.State
	wrapped   *chain.Wrapped
	factory   *factory.Factory
	router    *router.Router
	liquidity *liquidity.Manager

	sequence uint64
	pending  []model.TypedEvent
}

func newEngine(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	codec, err := dex.NewEventCodec()
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(deps.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	if deps.Sink == nil {
		deps.Sink = storage.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		sink:    deps.Sink,
		codec:   codec,
		metrics: metrics,
		logger:  deps.Logger,
		state:   chain.NewState(),
	}, nil
}

// New deploys the wrapped-native token, factory, router, liquidity manager
// and a default pool implementation from cfg.Deployer.
func New(ctx context.Context, cfg Config, deps Deps) (*Engine, error) {
	e, err := newEngine(cfg, deps)
	if err != nil {
		return nil, err
	}
	err = e.execute(ctx, OpInit, func() error {
		deployer := e.cfg.Deployer
		wrapped, err := e.state.DeployWrappedNative(deployer, wrappedName, wrappedSymbol)
		if err != nil {
			return err
		}
		factoryAddr := e.state.NextAddress(deployer)
		routerAddr := e.state.NextAddress(deployer)
		liquidityAddr := e.state.NextAddress(deployer)
		if err := e.wire(wrapped, factory.New(e.state, factoryAddr, deployer, e), routerAddr, liquidityAddr); err != nil {
			return err
		}

		impl, err := e.factory.DeployImplementation(deployer, e.cfg.Fee, e.cfg.MinimumShares)
		if err != nil {
			return err
		}
		if err := e.factory.SetImplementation(deployer, impl); err != nil {
			return err
		}
		if e.cfg.PairSuffix != "" {
			return e.factory.UpdatePairSuffix(deployer, e.cfg.PairSuffix)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap engine: %w", err)
	}
	e.logger.Info("engine bootstrapped",
		zap.Uint64("chain_id", e.cfg.ChainID),
		zap.String("factory", e.factory.Address().Hex()),
		zap.String("router", e.router.Address().Hex()),
		zap.String("liquidity", e.liquidity.Address().Hex()),
		zap.String("wrapped", e.wrapped.Address().Hex()),
	)
	return e, nil
}

func (e *Engine) wire(wrapped *chain.Wrapped, f *factory.Factory, routerAddr, liquidityAddr common.Address) error {
	r, err := router.New(router.Config{
		Address: routerAddr,
		Pairs:   f,
		Tokens:  e.state,
		Wrapped: wrapped,
		Native:  e.state,
		Clock:   e.state,
	})
	if err != nil {
		return err
	}
	m, err := liquidity.New(liquidity.Config{
		Address: liquidityAddr,
		Factory: f,
		Tokens:  e.state,
		Wrapped: wrapped,
		Native:  e.state,
		Clock:   e.state,
	})
	if err != nil {
		return err
	}
	e.wrapped, e.factory, e.router, e.liquidity = wrapped, f, r, m
	return nil
}

// Emit buffers an event of the running call. It implements pool.Emitter.
func (e *Engine) Emit(ev model.TypedEvent) {
	e.pending = append(e.pending, ev)
}

// execute runs fn as one atomic call named op.
func (e *Engine) execute(ctx context.Context, op string, fn func() error) error {
	timer := prometheus.NewTimer(e.metrics.duration.WithLabelValues(op))
	defer timer.ObserveDuration()

	e.mu.Lock()
	defer e.mu.Unlock()

	if now := uint64(e.cfg.Now().Unix()); now > e.state.Now() {
		e.state.SetTime(now)
	}
	snap := e.state.Snapshot()
	e.pending = e.pending[:0]

	err := fn()
	var written int
	if err == nil {
		written, err = e.flush(ctx, op)
	}
	e.metrics.calls.WithLabelValues(op, resultLabel(err)).Inc()

	if err != nil {
		e.state.RevertToSnapshot(snap)
		e.pending = e.pending[:0]
		e.logger.Debug("call reverted", zap.String("op", op), zap.Error(err))
		return err
	}

	e.state.Commit()
	e.sequence++
	e.metrics.events.Add(float64(written))
	if e.factory != nil {
		e.metrics.pairs.Set(float64(e.factory.AllPairsLength()))
	}
	e.logger.Debug("call committed",
		zap.String("op", op),
		zap.Uint64("sequence", e.sequence),
		zap.Int("events", written),
	)
	return nil
}

// flush encodes the buffered events as the logs of call number sequence+1
// and hands them to the sink.
func (e *Engine) flush(ctx context.Context, op string) (int, error) {
	if len(e.pending) == 0 {
		return 0, nil
	}
	block := e.sequence + 1
	txHash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%d/%d/%s", e.cfg.ChainID, block, op))).Hex()
	ingestedAt := time.Now().UTC().Format(time.RFC3339Nano)

	records := make([]model.LogRecord, 0, len(e.pending))
	for i, ev := range e.pending {
		ev.ChainID = e.cfg.ChainID
		ev.BlockNumber = block
		ev.TxHash = txHash
		ev.LogIndex = uint64(i)
		if ev.Timestamp == 0 {
			ev.Timestamp = e.state.Now()
		}
		record, err := e.codec.Encode(ev)
		if err != nil {
			return 0, fmt.Errorf("encode event: %w", err)
		}
		record.Op = op
		record.IngestedAt = ingestedAt
		records = append(records, record)
	}
	if err := e.sink.PutLogBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("write events: %w", err)
	}
	return len(records), nil
}

// Addresses returns the built-in contract addresses.
func (e *Engine) Addresses() Addresses {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Addresses{
		Deployer:       e.cfg.Deployer,
		Factory:        e.factory.Address(),
		Router:         e.router.Address(),
		Liquidity:      e.liquidity.Address(),
		Wrapped:        e.wrapped.Address(),
		Implementation: e.factory.Config().Implementation,
	}
}

func (e *Engine) ChainID() uint64 { return e.cfg.ChainID }

// Sequence is the number of committed calls.
func (e *Engine) Sequence() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sequence
}
