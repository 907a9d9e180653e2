// Package liquidity deposits into and withdraws from factory pools at the
// current reserve ratio, with caller-supplied minimums.
package liquidity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/pool"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

// Factory is the part of *factory.Factory the manager needs.
type Factory interface {
	Pair(a, b common.Address) (*pool.Pool, bool)
	CreatePair(caller, a, b common.Address) (common.Address, error)
}

type Config struct {
	Address common.Address
	Factory Factory
	Tokens  token.Resolver
	Wrapped token.WrappedNative
	Native  token.Native
	Clock   token.Clock
}

// Manager is stateless; every call re-reads the pool it touches.
type Manager struct {
	address common.Address
	factory Factory
	tokens  token.Resolver
	wrapped token.WrappedNative
	native  token.Native
	clock   token.Clock
}

func New(cfg Config) (*Manager, error) {
	switch {
	case cfg.Factory == nil:
		return nil, fmt.Errorf("liquidity: factory is nil")
	case cfg.Tokens == nil:
		return nil, fmt.Errorf("liquidity: token resolver is nil")
	case cfg.Wrapped == nil:
		return nil, fmt.Errorf("liquidity: wrapped native is nil")
	case cfg.Native == nil:
		return nil, fmt.Errorf("liquidity: native ledger is nil")
	case cfg.Clock == nil:
		return nil, fmt.Errorf("liquidity: clock is nil")
	}
	return &Manager{
		address: cfg.Address,
		factory: cfg.Factory,
		tokens:  cfg.Tokens,
		wrapped: cfg.Wrapped,
		native:  cfg.Native,
		clock:   cfg.Clock,
	}, nil
}

func (m *Manager) Address() common.Address { return m.address }

// AddResult reports what a deposit actually used and minted.
type AddResult struct {
	Pool    common.Address
	AmountA *uint256.Int
	AmountB *uint256.Int
	Shares  *uint256.Int
}

// RemoveResult reports what a withdrawal paid out.
type RemoveResult struct {
	Pool    common.Address
	AmountA *uint256.Int
	AmountB *uint256.Int
}

// AddLiquidity deposits up to (desiredA, desiredB) at the pool's current
// ratio and mints shares to `to`. The pool is created if missing.
func (m *Manager) AddLiquidity(caller, tokenA, tokenB common.Address, desiredA, desiredB, minA, minB *uint256.Int, to common.Address, deadline uint64) (AddResult, error) {
	if err := amm.EnsureDeadline(deadline, m.clock.Now()); err != nil {
		return AddResult{}, err
	}
	p, err := m.poolFor(tokenA, tokenB)
	if err != nil {
		return AddResult{}, err
	}
	amountA, amountB, err := optimalAmounts(p, tokenA, desiredA, desiredB, minA, minB)
	if err != nil {
		return AddResult{}, err
	}

	if err := m.pull(tokenA, caller, p.Address(), amountA); err != nil {
		return AddResult{}, err
	}
	if err := m.pull(tokenB, caller, p.Address(), amountB); err != nil {
		return AddResult{}, err
	}
	shares, err := p.Mint(m.address, to)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Pool: p.Address(), AmountA: amountA, AmountB: amountB, Shares: shares}, nil
}

// AddLiquidityETH pairs tok with native value. value is the desired native
// amount; the unused part is refunded to caller.
func (m *Manager) AddLiquidityETH(caller, tok common.Address, value, desiredToken, minToken, minETH *uint256.Int, to common.Address, deadline uint64) (AddResult, error) {
	if err := amm.EnsureDeadline(deadline, m.clock.Now()); err != nil {
		return AddResult{}, err
	}
	wrapped := m.wrapped.Address()
	p, err := m.poolFor(tok, wrapped)
	if err != nil {
		return AddResult{}, err
	}
	amountToken, amountETH, err := optimalAmounts(p, tok, desiredToken, value, minToken, minETH)
	if err != nil {
		return AddResult{}, err
	}

	if err := m.pull(tok, caller, p.Address(), amountToken); err != nil {
		return AddResult{}, err
	}
	if err := m.native.TransferNative(caller, m.address, value); err != nil {
		return AddResult{}, err
	}
	if err := m.wrapped.Deposit(m.address, amountETH); err != nil {
		return AddResult{}, err
	}
	if err := m.wrapped.Transfer(m.address, p.Address(), amountETH); err != nil {
		return AddResult{}, fmt.Errorf("add liquidity: %w", err)
	}
	shares, err := p.Mint(m.address, to)
	if err != nil {
		return AddResult{}, err
	}
	if refund := new(uint256.Int).Sub(value, amountETH); !refund.IsZero() {
		if err := m.native.TransferNative(m.address, caller, refund); err != nil {
			return AddResult{}, fmt.Errorf("refund: %w", err)
		}
	}
	return AddResult{Pool: p.Address(), AmountA: amountToken, AmountB: amountETH, Shares: shares}, nil
}

// RemoveLiquidity burns shares of caller's (tokenA, tokenB) position and
// pays the underlying tokens to `to`. Caller must have approved the manager
// on the pool's share token.
func (m *Manager) RemoveLiquidity(caller, tokenA, tokenB common.Address, shares, minA, minB *uint256.Int, to common.Address, deadline uint64) (RemoveResult, error) {
	if err := amm.EnsureDeadline(deadline, m.clock.Now()); err != nil {
		return RemoveResult{}, err
	}
	return m.remove(caller, tokenA, tokenB, shares, minA, minB, to)
}

// RemoveLiquidityETH is RemoveLiquidity against the (tok, wrapped native)
// pool with the wrapped side paid out as native value.
func (m *Manager) RemoveLiquidityETH(caller, tok common.Address, shares, minToken, minETH *uint256.Int, to common.Address, deadline uint64) (RemoveResult, error) {
	if err := amm.EnsureDeadline(deadline, m.clock.Now()); err != nil {
		return RemoveResult{}, err
	}
	res, err := m.remove(caller, tok, m.wrapped.Address(), shares, minToken, minETH, m.address)
	if err != nil {
		return RemoveResult{}, err
	}

	erc20, err := m.tokens.Token(tok)
	if err != nil {
		return RemoveResult{}, err
	}
	if err := erc20.Transfer(m.address, to, res.AmountA); err != nil {
		return RemoveResult{}, fmt.Errorf("remove liquidity: %w", err)
	}
	if err := m.wrapped.Withdraw(m.address, res.AmountB); err != nil {
		return RemoveResult{}, err
	}
	if err := m.native.TransferNative(m.address, to, res.AmountB); err != nil {
		return RemoveResult{}, fmt.Errorf("remove liquidity: %w", err)
	}
	return res, nil
}

func (m *Manager) remove(caller, tokenA, tokenB common.Address, shares, minA, minB *uint256.Int, to common.Address) (RemoveResult, error) {
	if _, _, err := amm.SortTokens(tokenA, tokenB); err != nil {
		return RemoveResult{}, err
	}
	p, ok := m.factory.Pair(tokenA, tokenB)
	if !ok {
		return RemoveResult{}, fmt.Errorf("no pool for %s/%s: %w", tokenA.Hex(), tokenB.Hex(), amm.ErrInsufficientLiquidity)
	}
	if err := p.TransferFrom(m.address, caller, p.Address(), shares); err != nil {
		return RemoveResult{}, fmt.Errorf("remove liquidity: %w", err)
	}
	amount0, amount1, err := p.Burn(m.address, to)
	if err != nil {
		return RemoveResult{}, err
	}

	amountA, amountB := amount0, amount1
	if p.Token0() != tokenA {
		amountA, amountB = amount1, amount0
	}
	if amountA.Lt(minA) {
		return RemoveResult{}, fmt.Errorf("%w: got %s, want at least %s", amm.ErrInsufficientAmountA, amountA.Dec(), minA.Dec())
	}
	if amountB.Lt(minB) {
		return RemoveResult{}, fmt.Errorf("%w: got %s, want at least %s", amm.ErrInsufficientAmountB, amountB.Dec(), minB.Dec())
	}
	return RemoveResult{Pool: p.Address(), AmountA: amountA, AmountB: amountB}, nil
}

func (m *Manager) poolFor(tokenA, tokenB common.Address) (*pool.Pool, error) {
	if _, _, err := amm.SortTokens(tokenA, tokenB); err != nil {
		return nil, err
	}
	if p, ok := m.factory.Pair(tokenA, tokenB); ok {
		return p, nil
	}
	if _, err := m.factory.CreatePair(m.address, tokenA, tokenB); err != nil {
		return nil, err
	}
	p, _ := m.factory.Pair(tokenA, tokenB)
	return p, nil
}

func (m *Manager) pull(tok, from, to common.Address, amount *uint256.Int) error {
	erc20, err := m.tokens.Token(tok)
	if err != nil {
		return err
	}
	if err := erc20.TransferFrom(m.address, from, to, amount); err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}
	return nil
}

// optimalAmounts picks the largest deposit within the desired amounts that
// keeps the pool's reserve ratio. An empty pool takes the desired amounts
// as they are.
func optimalAmounts(p *pool.Pool, tokenA common.Address, desiredA, desiredB, minA, minB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	reserve0, reserve1 := p.ReserveBalances()
	reserveA, reserveB := reserve0, reserve1
	if p.Token0() != tokenA {
		reserveA, reserveB = reserve1, reserve0
	}

	if reserveA.IsZero() && reserveB.IsZero() {
		if desiredA.Lt(minA) {
			return nil, nil, fmt.Errorf("%w: desired %s below minimum %s", amm.ErrInsufficientAmountA, desiredA.Dec(), minA.Dec())
		}
		if desiredB.Lt(minB) {
			return nil, nil, fmt.Errorf("%w: desired %s below minimum %s", amm.ErrInsufficientAmountB, desiredB.Dec(), minB.Dec())
		}
		return new(uint256.Int).Set(desiredA), new(uint256.Int).Set(desiredB), nil
	}

	optimalB, err := amm.Quote(desiredA, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !optimalB.Gt(desiredB) {
		if optimalB.Lt(minB) {
			return nil, nil, fmt.Errorf("%w: optimal %s below minimum %s", amm.ErrInsufficientAmountB, optimalB.Dec(), minB.Dec())
		}
		return new(uint256.Int).Set(desiredA), optimalB, nil
	}

	optimalA, err := amm.Quote(desiredB, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if optimalA.Gt(desiredA) || optimalA.Lt(minA) {
		return nil, nil, fmt.Errorf("%w: optimal %s outside [%s, %s]", amm.ErrInsufficientAmountA, optimalA.Dec(), minA.Dec(), desiredA.Dec())
	}
	return optimalA, new(uint256.Int).Set(desiredB), nil
}
