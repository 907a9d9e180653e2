package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/chain"
	"github.com/kaym0/UniswapV2-Rework/internal/factory"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// Snapshot captures everything needed to reopen the engine with Open.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := model.Snapshot{
		Version:   model.SnapshotVersion,
		ChainID:   e.cfg.ChainID,
		Sequence:  e.sequence,
		Deployer:  e.cfg.Deployer.Hex(),
		Wrapped:   e.wrapped.Address().Hex(),
		Router:    e.router.Address().Hex(),
		Liquidity: e.liquidity.Address().Hex(),
		Chain:     e.state.Export(),
		Factory:   e.factory.State(),
	}
	for _, p := range e.factory.Pools() {
		snap.Pools = append(snap.Pools, p.State())
	}
	return snap
}

// Open rebuilds an engine from a snapshot taken by Snapshot. cfg.ChainID
// must match the snapshot; the deployer is taken from the snapshot.
func Open(ctx context.Context, cfg Config, deps Deps, snap model.Snapshot) (*Engine, error) {
	if snap.Version != model.SnapshotVersion {
		return nil, fmt.Errorf("open engine: snapshot version %d, want %d", snap.Version, model.SnapshotVersion)
	}
	if snap.ChainID != cfg.ChainID {
		return nil, fmt.Errorf("open engine: snapshot is for chain %d, not %d", snap.ChainID, cfg.ChainID)
	}
	if !common.IsHexAddress(snap.Deployer) {
		return nil, fmt.Errorf("open engine: invalid deployer %q", snap.Deployer)
	}
	cfg.Deployer = common.HexToAddress(snap.Deployer)

	e, err := newEngine(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.restore(snap); err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	e.logger.Info("engine opened",
		zap.Uint64("chain_id", e.cfg.ChainID),
		zap.Uint64("sequence", e.sequence),
		zap.Int("pairs", e.factory.AllPairsLength()),
	)
	return e, nil
}

func (e *Engine) restore(snap model.Snapshot) error {
	if err := e.state.Import(snap.Chain); err != nil {
		return err
	}
	erc20, err := e.state.Token(common.HexToAddress(snap.Wrapped))
	if err != nil {
		return fmt.Errorf("wrapped token: %w", err)
	}
	wrapped, ok := erc20.(*chain.Wrapped)
	if !ok {
		return fmt.Errorf("token %s is not the wrapped native token", snap.Wrapped)
	}
	f, err := factory.Restore(e.state, e, snap.Factory, snap.Pools)
	if err != nil {
		return err
	}
	if err := e.wire(wrapped, f, common.HexToAddress(snap.Router), common.HexToAddress(snap.Liquidity)); err != nil {
		return err
	}
	e.state.Commit()
	e.sequence = snap.Sequence
	e.metrics.pairs.Set(float64(f.AllPairsLength()))
	return nil
}
