package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/chain"
	"github.com/kaym0/UniswapV2-Rework/internal/liquidity"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/pool"
	"github.com/kaym0/UniswapV2-Rework/internal/router"
)

// Operation names, used as the op metric label and LogRecord.Op.
const (
	OpInit                     = "init"
	OpDeployToken              = "deploy_token"
	OpImportToken              = "import_token"
	OpMintToken                = "mint_token"
	OpFund                     = "fund"
	OpApprove                  = "approve"
	OpTransfer                 = "transfer"
	OpWrap                     = "wrap"
	OpUnwrap                   = "unwrap"
	OpCreatePair               = "create_pair"
	OpDeployImplementation     = "deploy_implementation"
	OpSetImplementation        = "set_implementation"
	OpUpdateFeeTo              = "update_fee_to"
	OpUpdatePairSuffix         = "update_pair_suffix"
	OpTransferOwnership        = "transfer_ownership"
	OpAddLiquidity             = "add_liquidity"
	OpAddLiquidityETH          = "add_liquidity_eth"
	OpRemoveLiquidity          = "remove_liquidity"
	OpRemoveLiquidityETH       = "remove_liquidity_eth"
	OpSwapExactTokensForTokens = "swap_exact_tokens_for_tokens"
	OpSwapTokensForExactTokens = "swap_tokens_for_exact_tokens"
	OpSwapExactETHForTokens    = "swap_exact_eth_for_tokens"
	OpSwapETHForExactTokens    = "swap_eth_for_exact_tokens"
	OpSwapTokensForExactETH    = "swap_tokens_for_exact_eth"
	OpSwapExactTokensForETH    = "swap_exact_tokens_for_eth"
	OpSkim                     = "skim"
	OpSync                     = "sync"
)

// DeployToken creates a plain ERC20 at caller's next CREATE address.
func (e *Engine) DeployToken(ctx context.Context, caller common.Address, name, symbol string, decimals uint8) (model.TokenMeta, error) {
	var meta model.TokenMeta
	err := e.execute(ctx, OpDeployToken, func() error {
		tok, err := e.state.DeployToken(caller, name, symbol, decimals)
		if err != nil {
			return err
		}
		meta = tok.Meta()
		return nil
	})
	return meta, err
}

// ImportToken registers a token at a fixed address, typically mirrored
// from a live chain.
func (e *Engine) ImportToken(ctx context.Context, meta model.TokenMeta) (model.TokenMeta, error) {
	var out model.TokenMeta
	err := e.execute(ctx, OpImportToken, func() error {
		tok, err := e.state.ImportToken(meta)
		if err != nil {
			return err
		}
		out = tok.Meta()
		return nil
	})
	return out, err
}

// MintToken is the faucet of plain tokens. Pool shares and the wrapped
// native token cannot be minted this way.
func (e *Engine) MintToken(ctx context.Context, tokenAddr, to common.Address, amount *uint256.Int) error {
	return e.execute(ctx, OpMintToken, func() error {
		erc20, err := e.state.Token(tokenAddr)
		if err != nil {
			return err
		}
		tok, ok := erc20.(*chain.Token)
		if !ok {
			return fmt.Errorf("%w: %s cannot be minted", amm.ErrValidation, tokenAddr.Hex())
		}
		return tok.Mint(to, amount)
	})
}

// Fund credits native value to holder.
func (e *Engine) Fund(ctx context.Context, holder common.Address, amount *uint256.Int) error {
	return e.execute(ctx, OpFund, func() error {
		return e.state.Fund(holder, amount)
	})
}

// Approve sets spender's allowance over owner's balance of tokenAddr. Pool
// share tokens are approved the same way.
func (e *Engine) Approve(ctx context.Context, owner, tokenAddr, spender common.Address, amount *uint256.Int) error {
	return e.execute(ctx, OpApprove, func() error {
		erc20, err := e.state.Token(tokenAddr)
		if err != nil {
			return err
		}
		return erc20.Approve(owner, spender, amount)
	})
}

func (e *Engine) Transfer(ctx context.Context, from, tokenAddr, to common.Address, amount *uint256.Int) error {
	return e.execute(ctx, OpTransfer, func() error {
		erc20, err := e.state.Token(tokenAddr)
		if err != nil {
			return err
		}
		return erc20.Transfer(from, to, amount)
	})
}

// Wrap converts holder's native value into wrapped tokens.
func (e *Engine) Wrap(ctx context.Context, holder common.Address, amount *uint256.Int) error {
	return e.execute(ctx, OpWrap, func() error {
		return e.wrapped.Deposit(holder, amount)
	})
}

func (e *Engine) Unwrap(ctx context.Context, holder common.Address, amount *uint256.Int) error {
	return e.execute(ctx, OpUnwrap, func() error {
		return e.wrapped.Withdraw(holder, amount)
	})
}

func (e *Engine) CreatePair(ctx context.Context, caller, tokenA, tokenB common.Address) (common.Address, error) {
	var addr common.Address
	err := e.execute(ctx, OpCreatePair, func() error {
		var err error
		addr, err = e.factory.CreatePair(caller, tokenA, tokenB)
		return err
	})
	return addr, err
}

func (e *Engine) DeployImplementation(ctx context.Context, caller common.Address, fee amm.Fee, minimumShares *uint256.Int) (common.Address, error) {
	var addr common.Address
	err := e.execute(ctx, OpDeployImplementation, func() error {
		var err error
		addr, err = e.factory.DeployImplementation(caller, fee, minimumShares)
		return err
	})
	return addr, err
}

func (e *Engine) SetImplementation(ctx context.Context, caller, impl common.Address) error {
	return e.execute(ctx, OpSetImplementation, func() error {
		return e.factory.SetImplementation(caller, impl)
	})
}

func (e *Engine) UpdateFeeTo(ctx context.Context, caller, feeTo common.Address) error {
	return e.execute(ctx, OpUpdateFeeTo, func() error {
		return e.factory.UpdateFeeTo(caller, feeTo)
	})
}

func (e *Engine) UpdatePairSuffix(ctx context.Context, caller common.Address, suffix string) error {
	return e.execute(ctx, OpUpdatePairSuffix, func() error {
		return e.factory.UpdatePairSuffix(caller, suffix)
	})
}

func (e *Engine) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	return e.execute(ctx, OpTransferOwnership, func() error {
		return e.factory.TransferOwnership(caller, newOwner)
	})
}

func (e *Engine) AddLiquidity(ctx context.Context, caller, tokenA, tokenB common.Address, desiredA, desiredB, minA, minB *uint256.Int, to common.Address, deadline uint64) (liquidity.AddResult, error) {
	var res liquidity.AddResult
	err := e.execute(ctx, OpAddLiquidity, func() error {
		var err error
		res, err = e.liquidity.AddLiquidity(caller, tokenA, tokenB, desiredA, desiredB, minA, minB, to, deadline)
		return err
	})
	return res, err
}

func (e *Engine) AddLiquidityETH(ctx context.Context, caller, tok common.Address, value, desiredToken, minToken, minETH *uint256.Int, to common.Address, deadline uint64) (liquidity.AddResult, error) {
	var res liquidity.AddResult
	err := e.execute(ctx, OpAddLiquidityETH, func() error {
		var err error
		res, err = e.liquidity.AddLiquidityETH(caller, tok, value, desiredToken, minToken, minETH, to, deadline)
		return err
	})
	return res, err
}

func (e *Engine) RemoveLiquidity(ctx context.Context, caller, tokenA, tokenB common.Address, shares, minA, minB *uint256.Int, to common.Address, deadline uint64) (liquidity.RemoveResult, error) {
	var res liquidity.RemoveResult
	err := e.execute(ctx, OpRemoveLiquidity, func() error {
		var err error
		res, err = e.liquidity.RemoveLiquidity(caller, tokenA, tokenB, shares, minA, minB, to, deadline)
		return err
	})
	return res, err
}

func (e *Engine) RemoveLiquidityETH(ctx context.Context, caller, tok common.Address, shares, minToken, minETH *uint256.Int, to common.Address, deadline uint64) (liquidity.RemoveResult, error) {
	var res liquidity.RemoveResult
	err := e.execute(ctx, OpRemoveLiquidityETH, func() error {
		var err error
		res, err = e.liquidity.RemoveLiquidityETH(caller, tok, shares, minToken, minETH, to, deadline)
		return err
	})
	return res, err
}

// swapFunc is the shape shared by the six router swaps as method
// expressions, so the router is read under the engine lock.
type swapFunc func(r *router.Router, caller common.Address, amount, bound *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error)

func (e *Engine) swap(ctx context.Context, op string, fn swapFunc, caller common.Address, amount, bound *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	var amounts []*uint256.Int
	err := e.execute(ctx, op, func() error {
		var err error
		amounts, err = fn(e.router, caller, amount, bound, path, to, deadline)
		return err
	})
	return amounts, err
}

func (e *Engine) SwapExactTokensForTokens(ctx context.Context, caller common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	return e.swap(ctx, OpSwapExactTokensForTokens, (*router.Router).SwapExactTokensForTokens, caller, amountIn, amountOutMin, path, to, deadline)
}

func (e *Engine) SwapTokensForExactTokens(ctx context.Context, caller common.Address, amountOut, amountInMax *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	return e.swap(ctx, OpSwapTokensForExactTokens, (*router.Router).SwapTokensForExactTokens, caller, amountOut, amountInMax, path, to, deadline)
}

func (e *Engine) SwapExactETHForTokens(ctx context.Context, caller common.Address, value, amountOutMin *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	return e.swap(ctx, OpSwapExactETHForTokens, (*router.Router).SwapExactETHForTokens, caller, value, amountOutMin, path, to, deadline)
}

func (e *Engine) SwapETHForExactTokens(ctx context.Context, caller common.Address, value, amountOut *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	return e.swap(ctx, OpSwapETHForExactTokens, (*router.Router).SwapETHForExactTokens, caller, value, amountOut, path, to, deadline)
}

func (e *Engine) SwapTokensForExactETH(ctx context.Context, caller common.Address, amountOut, amountInMax *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	return e.swap(ctx, OpSwapTokensForExactETH, (*router.Router).SwapTokensForExactETH, caller, amountOut, amountInMax, path, to, deadline)
}

func (e *Engine) SwapExactTokensForETH(ctx context.Context, caller common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, to common.Address, deadline uint64) ([]*uint256.Int, error) {
	return e.swap(ctx, OpSwapExactTokensForETH, (*router.Router).SwapExactTokensForETH, caller, amountIn, amountOutMin, path, to, deadline)
}

// Skim sends pair's balances above its reserves to `to`.
func (e *Engine) Skim(ctx context.Context, pair, to common.Address) error {
	return e.execute(ctx, OpSkim, func() error {
		p, err := e.poolAt(pair)
		if err != nil {
			return err
		}
		return p.Skim(to)
	})
}

// Sync sets pair's reserves to its balances.
func (e *Engine) Sync(ctx context.Context, pair common.Address) error {
	return e.execute(ctx, OpSync, func() error {
		p, err := e.poolAt(pair)
		if err != nil {
			return err
		}
		return p.Sync()
	})
}

func (e *Engine) poolAt(addr common.Address) (*pool.Pool, error) {
	p, ok := e.factory.PoolAt(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a pool", amm.ErrValidation, addr.Hex())
	}
	return p, nil
}
