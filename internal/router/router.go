// Package router prices and executes multi-hop swaps across factory pools.
// It holds no pool state: every call reads reserves fresh from the pools
// it touches.
package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/pool"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

// Pairs resolves an unordered token pair to its pool. *factory.Factory
// satisfies it.
type Pairs interface {
	Pair(a, b common.Address) (*pool.Pool, bool)
}

// Config wires the router to its collaborators.
type Config struct {
	// Address is the account the router acts as when it moves tokens.
	Address common.Address
	Pairs   Pairs
	Tokens  token.Resolver
	Wrapped token.WrappedNative
	Native  token.Native
	Clock   token.Clock
}

type Router struct {
	address common.Address
	pairs   Pairs
	tokens  token.Resolver
	wrapped token.WrappedNative
	native  token.Native
	clock   token.Clock
}

func New(cfg Config) (*Router, error) {
	switch {
	case cfg.Pairs == nil:
		return nil, fmt.Errorf("router: pairs is nil")
	case cfg.Tokens == nil:
		return nil, fmt.Errorf("router: token resolver is nil")
	case cfg.Wrapped == nil:
		return nil, fmt.Errorf("router: wrapped native is nil")
	case cfg.Native == nil:
		return nil, fmt.Errorf("router: native ledger is nil")
	case cfg.Clock == nil:
		return nil, fmt.Errorf("router: clock is nil")
	}
	return &Router{
		address: cfg.Address,
		pairs:   cfg.Pairs,
		tokens:  cfg.Tokens,
		wrapped: cfg.Wrapped,
		native:  cfg.Native,
		clock:   cfg.Clock,
	}, nil
}

func (r *Router) Address() common.Address { return r.address }

// Wrapped returns the wrapped-native token address used by the ETH variants.
func (r *Router) Wrapped() common.Address { return r.wrapped.Address() }

// Quote returns the amount of B worth amountA at the given reserves.
func (r *Router) Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	return amm.Quote(amountA, reserveA, reserveB)
}

// Reserves returns the reserves of the (a, b) pool oriented as (a, b).
func (r *Router) Reserves(a, b common.Address) (*uint256.Int, *uint256.Int, error) {
	_, reserveA, reserveB, err := r.hop(a, b)
	return reserveA, reserveB, err
}

func (r *Router) hop(a, b common.Address) (*pool.Pool, *uint256.Int, *uint256.Int, error) {
	if _, _, err := amm.SortTokens(a, b); err != nil {
		return nil, nil, nil, err
	}
	p, ok := r.pairs.Pair(a, b)
	if !ok {
		return nil, nil, nil, fmt.Errorf("no pool for %s/%s: %w", a.Hex(), b.Hex(), amm.ErrInsufficientLiquidity)
	}
	reserve0, reserve1 := p.ReserveBalances()
	if p.Token0() == a {
		return p, reserve0, reserve1, nil
	}
	return p, reserve1, reserve0, nil
}

// GetAmountsOut chains GetAmountOut along path, each hop priced at its own
// pool's fee. amounts[0] is amountIn.
func (r *Router) GetAmountsOut(amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: %d tokens", amm.ErrInvalidPath, len(path))
	}
	amounts := make([]*uint256.Int, len(path))
	amounts[0] = new(uint256.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		p, reserveIn, reserveOut, err := r.hop(path[i], path[i+1])
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		out, err := amm.GetAmountOut(amounts[i], reserveIn, reserveOut, p.Fee())
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// GetAmountsIn walks path backwards computing the input each hop needs,
// rounded up. amounts[len(path)-1] is amountOut.
func (r *Router) GetAmountsIn(amountOut *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: %d tokens", amm.ErrInvalidPath, len(path))
	}
	amounts := make([]*uint256.Int, len(path))
	amounts[len(amounts)-1] = new(uint256.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		p, reserveIn, reserveOut, err := r.hop(path[i-1], path[i])
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i-1, err)
		}
		in, err := amm.GetAmountIn(amounts[i], reserveIn, reserveOut, p.Fee())
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i-1, err)
		}
		amounts[i-1] = in
	}
	return amounts, nil
}

// SwapExactTokensForTokens sells exactly amountIn of path[0] for at least
// amountOutMin of the last token.
func (r *Router) SwapExactTokensForTokens(caller common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	if err := amm.EnsureDeadline(deadline, r.clock.Now()); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsOut(amountIn, path)
	if err != nil {
		return nil, err
	}
	if err := checkMinOut(amounts, amountOutMin); err != nil {
		return nil, err
	}
	if err := r.pullInput(caller, amounts[0], path); err != nil {
		return nil, err
	}
	if err := r.swap(amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapTokensForExactTokens buys exactly amountOut of the last token paying
// at most amountInMax of path[0].
func (r *Router) SwapTokensForExactTokens(caller common.Address, amountOut, amountInMax *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	if err := amm.EnsureDeadline(deadline, r.clock.Now()); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if err := checkMaxIn(amounts, amountInMax); err != nil {
		return nil, err
	}
	if err := r.pullInput(caller, amounts[0], path); err != nil {
		return nil, err
	}
	if err := r.swap(amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactETHForTokens wraps all of value and sells it along path, which
// must start at the wrapped-native token.
func (r *Router) SwapExactETHForTokens(caller common.Address, value, amountOutMin *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	if err := amm.EnsureDeadline(deadline, r.clock.Now()); err != nil {
		return nil, err
	}
	if err := r.requireWrappedAt(path, 0); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsOut(value, path)
	if err != nil {
		return nil, err
	}
	if err := checkMinOut(amounts, amountOutMin); err != nil {
		return nil, err
	}
	if err := r.native.TransferNative(caller, r.address, value); err != nil {
		return nil, err
	}
	if err := r.wrapInto(amounts[0], path); err != nil {
		return nil, err
	}
	if err := r.swap(amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapETHForExactTokens buys exactly amountOut of the last token with native
// value, refunding whatever part of value the route did not need.
func (r *Router) SwapETHForExactTokens(caller common.Address, value, amountOut *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	if err := amm.EnsureDeadline(deadline, r.clock.Now()); err != nil {
		return nil, err
	}
	if err := r.requireWrappedAt(path, 0); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if err := checkMaxIn(amounts, value); err != nil {
		return nil, err
	}
	if err := r.native.TransferNative(caller, r.address, value); err != nil {
		return nil, err
	}
	if err := r.wrapInto(amounts[0], path); err != nil {
		return nil, err
	}
	if err := r.swap(amounts, path, to); err != nil {
		return nil, err
	}
	if refund := new(uint256.Int).Sub(value, amounts[0]); !refund.IsZero() {
		if err := r.native.TransferNative(r.address, caller, refund); err != nil {
			return nil, fmt.Errorf("refund: %w", err)
		}
	}
	return amounts, nil
}

// SwapTokensForExactETH buys exactly amountOut of native value, paying at
// most amountInMax of path[0]. path must end at the wrapped-native token.
func (r *Router) SwapTokensForExactETH(caller common.Address, amountOut, amountInMax *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	if err := amm.EnsureDeadline(deadline, r.clock.Now()); err != nil {
		return nil, err
	}
	if err := r.requireWrappedAt(path, len(path)-1); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if err := checkMaxIn(amounts, amountInMax); err != nil {
		return nil, err
	}
	if err := r.pullInput(caller, amounts[0], path); err != nil {
		return nil, err
	}
	if err := r.swap(amounts, path, r.address); err != nil {
		return nil, err
	}
	if err := r.unwrapTo(amounts[len(amounts)-1], to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactTokensForETH sells exactly amountIn of path[0] for at least
// amountOutMin of native value.
func (r *Router) SwapExactTokensForETH(caller common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	if err := amm.EnsureDeadline(deadline, r.clock.Now()); err != nil {
		return nil, err
	}
	if err := r.requireWrappedAt(path, len(path)-1); err != nil {
		return nil, err
	}
	amounts, err := r.GetAmountsOut(amountIn, path)
	if err != nil {
		return nil, err
	}
	if err := checkMinOut(amounts, amountOutMin); err != nil {
		return nil, err
	}
	if err := r.pullInput(caller, amounts[0], path); err != nil {
		return nil, err
	}
	if err := r.swap(amounts, path, r.address); err != nil {
		return nil, err
	}
	if err := r.unwrapTo(amounts[len(amounts)-1], to); err != nil {
		return nil, err
	}
	return amounts, nil
}

func checkMinOut(amounts []*uint256.Int, amountOutMin *uint256.Int) error {
	out := amounts[len(amounts)-1]
	if out.Lt(amountOutMin) {
		return fmt.Errorf("output %s below minimum %s: %w", out.Dec(), amountOutMin.Dec(), amm.ErrInsufficientOutput)
	}
	return nil
}

func checkMaxIn(amounts []*uint256.Int, amountInMax *uint256.Int) error {
	if amounts[0].Gt(amountInMax) {
		return fmt.Errorf("input %s above maximum %s: %w", amounts[0].Dec(), amountInMax.Dec(), amm.ErrExcessiveInput)
	}
	return nil
}

func (r *Router) requireWrappedAt(path []common.Address, i int) error {
	if len(path) < 2 {
		return fmt.Errorf("%w: %d tokens", amm.ErrInvalidPath, len(path))
	}
	if path[i] != r.wrapped.Address() {
		return fmt.Errorf("%w: path[%d] is %s, want wrapped native %s", amm.ErrInvalidPath, i, path[i].Hex(), r.wrapped.Address().Hex())
	}
	return nil
}

// pullInput moves the first hop's input from caller into the first pool
// under the router's allowance.
func (r *Router) pullInput(caller common.Address, amount *uint256.Int, path []common.Address) error {
	erc20, err := r.tokens.Token(path[0])
	if err != nil {
		return err
	}
	first, _ := r.pairs.Pair(path[0], path[1])
	if err := erc20.TransferFrom(r.address, caller, first.Address(), amount); err != nil {
		return fmt.Errorf("pull input: %w", err)
	}
	return nil
}

// wrapInto converts amount of the router's native balance and sends it to
// the first pool.
func (r *Router) wrapInto(amount *uint256.Int, path []common.Address) error {
	if err := r.wrapped.Deposit(r.address, amount); err != nil {
		return err
	}
	first, _ := r.pairs.Pair(path[0], path[1])
	if err := r.wrapped.Transfer(r.address, first.Address(), amount); err != nil {
		return fmt.Errorf("wrap: %w", err)
	}
	return nil
}

func (r *Router) unwrapTo(amount *uint256.Int, to common.Address) error {
	if err := r.wrapped.Withdraw(r.address, amount); err != nil {
		return err
	}
	if err := r.native.TransferNative(r.address, to, amount); err != nil {
		return fmt.Errorf("unwrap: %w", err)
	}
	return nil
}

// swap executes each hop, sending intermediate outputs straight into the
// next pool and the final output to `to`.
func (r *Router) swap(amounts []*uint256.Int, path []common.Address, to common.Address) error {
	for i := 0; i < len(path)-1; i++ {
		input, output := path[i], path[i+1]
		p, ok := r.pairs.Pair(input, output)
		if !ok {
			return fmt.Errorf("hop %d: %w", i, amm.ErrInsufficientLiquidity)
		}

		amount0Out, amount1Out := new(uint256.Int), new(uint256.Int).Set(amounts[i+1])
		if p.Token0() != input {
			amount0Out, amount1Out = amount1Out, amount0Out
		}

		recipient := to
		if i < len(path)-2 {
			next, ok := r.pairs.Pair(output, path[i+2])
			if !ok {
				return fmt.Errorf("hop %d: %w", i+1, amm.ErrInsufficientLiquidity)
			}
			recipient = next.Address()
		}
		if err := p.Swap(r.address, amount0Out, amount1Out, recipient); err != nil {
			return fmt.Errorf("hop %d: %w", i, err)
		}
	}
	return nil
}
