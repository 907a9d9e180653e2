package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/factory"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/pool"
)

// Read-only calls share the read lock and never touch the journal.

func (e *Engine) GetPair(tokenA, tokenB common.Address) common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.factory.GetPair(tokenA, tokenB)
}

func (e *Engine) AllPairs() []common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.factory.AllPairs()
}

// Pairs lists every pool in creation order.
func (e *Engine) Pairs() []model.Pair {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pools := e.factory.Pools()
	out := make([]model.Pair, 0, len(pools))
	for i, p := range pools {
		out = append(out, pairView(uint64(i), p))
	}
	return out
}

// Pair describes the pool of the unordered pair (tokenA, tokenB).
func (e *Engine) Pair(tokenA, tokenB common.Address) (model.Pair, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.factory.Pair(tokenA, tokenB)
	if !ok {
		return model.Pair{}, false
	}
	for i, addr := range e.factory.AllPairs() {
		if addr == p.Address() {
			return pairView(uint64(i), p), true
		}
	}
	return pairView(0, p), true
}

func pairView(index uint64, p *pool.Pool) model.Pair {
	reserve0, reserve1 := p.ReserveBalances()
	fee := p.Fee()
	return model.Pair{
		Address:        p.Address().Hex(),
		Index:          index,
		Token0:         p.Token0().Hex(),
		Token1:         p.Token1().Hex(),
		Name0:          p.Name0(),
		Name1:          p.Name1(),
		Symbol0:        p.Symbol0(),
		Symbol1:        p.Symbol1(),
		Reserve0:       reserve0.Dec(),
		Reserve1:       reserve1.Dec(),
		TotalSupply:    p.TotalSupply().Dec(),
		FeeNumerator:   fee.Numerator,
		FeeDenominator: fee.Denominator,
		Implementation: p.Implementation().Address.Hex(),
		Symbol:         p.Symbol(),
		CreatedAt:      p.CreatedAt(),
	}
}

func (e *Engine) ComputeAddress(impl, tokenA, tokenB common.Address) (common.Address, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.factory.ComputeAddress(impl, tokenA, tokenB)
}

func (e *Engine) FactoryConfig() factory.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.factory.Config()
}

func (e *Engine) Implementations() []pool.Implementation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.factory.Implementations()
}

func (e *Engine) GetAmountsOut(amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.router.GetAmountsOut(amountIn, path)
}

func (e *Engine) GetAmountsIn(amountOut *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.router.GetAmountsIn(amountOut, path)
}

// Quote prices amountA of tokenA in tokenB at the pool's current reserves.
func (e *Engine) Quote(amountA *uint256.Int, tokenA, tokenB common.Address) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	reserveA, reserveB, err := e.router.Reserves(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	return amm.Quote(amountA, reserveA, reserveB)
}

// Reserves returns the (tokenA, tokenB) pool reserves in argument order.
func (e *Engine) Reserves(tokenA, tokenB common.Address) (*uint256.Int, *uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.router.Reserves(tokenA, tokenB)
}

// BalanceOf returns holder's balance of any registered token, pool shares
// included.
func (e *Engine) BalanceOf(tokenAddr, holder common.Address) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	erc20, err := e.state.Token(tokenAddr)
	if err != nil {
		return nil, err
	}
	return erc20.BalanceOf(holder), nil
}

func (e *Engine) Allowance(tokenAddr, owner, spender common.Address) (*uint256.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	erc20, err := e.state.Token(tokenAddr)
	if err != nil {
		return nil, err
	}
	return erc20.Allowance(owner, spender), nil
}

func (e *Engine) NativeBalance(holder common.Address) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.NativeBalance(holder)
}

// Tokens lists deployed and imported tokens. Pool share tokens are listed
// by Pairs.
func (e *Engine) Tokens() []model.TokenMeta {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Tokens()
}

// Token returns the metadata of a registered token or pool share token.
func (e *Engine) Token(addr common.Address) (model.TokenMeta, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	erc20, err := e.state.Token(addr)
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("token %s: %w", addr.Hex(), err)
	}
	return model.TokenMeta{
		Address:  erc20.Address().Hex(),
		Decimals: erc20.Decimals(),
		Symbol:   erc20.Symbol(),
		Name:     erc20.Name(),
	}, nil
}

// Now is the current block time.
func (e *Engine) Now() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Now()
}
