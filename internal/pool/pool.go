// Package pool implements the constant-product liquidity pool: two token
// reserves, an ERC20 share ledger, mint/burn/swap and reserve
// reconciliation.
package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

// ShareDecimals is the precision of every pool share token.
const ShareDecimals = 18

// Host is the ledger a pool reads token balances from and keeps its share
// ledger in. Share balances are stored under the pool's own address as the
// asset. *chain.State satisfies it.
type Host interface {
	token.Resolver
	token.Clock
	Record(undo func())
	Balance(asset, holder common.Address) *uint256.Int
	Supply(asset common.Address) *uint256.Int
	Mint(asset, holder common.Address, amount *uint256.Int) error
	Burn(asset, holder common.Address, amount *uint256.Int) error
	Move(asset, from, to common.Address, amount *uint256.Int) error
	Allowance(asset, owner, spender common.Address) *uint256.Int
	SetAllowance(asset, owner, spender common.Address, amount *uint256.Int)
	SpendAllowance(asset, owner, spender common.Address, amount *uint256.Int) error
}

// FeeSource reports where protocol fees go. A zero address turns them off.
type FeeSource interface {
	FeeTo() common.Address
}

// Emitter receives pool events.
type Emitter interface {
	Emit(ev model.TypedEvent)
}

type nopEmitter struct{}

func (nopEmitter) Emit(model.TypedEvent) {}

type noFee struct{}

func (noFee) FeeTo() common.Address { return common.Address{} }

// Implementation is the template a pool is instantiated from.
type Implementation struct {
	Address       common.Address
	Fee           amm.Fee
	MinimumShares *uint256.Int
}

// Config wires a pool to its environment.
type Config struct {
	Address        common.Address
	Factory        common.Address
	Implementation Implementation
	Name           string
	Symbol         string
	Host           Host
	Fees           FeeSource
	Events         Emitter
}

// Pool is a two-token constant-product pool. It is not safe for concurrent
// use; the engine serializes calls.
type Pool struct {
	host   Host
	fees   FeeSource
	events Emitter

	address common.Address
	factory common.Address
	impl    Implementation
	name    string
	symbol  string

	token0 token.ERC20
	token1 token.ERC20

	reserve0           *uint256.Int
	reserve1           *uint256.Int
	blockTimestampLast uint64
	kLast              *uint256.Int
	createdAt          uint64

	locked bool
}

// New creates an uninitialized pool.
func New(cfg Config) (*Pool, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("pool host is nil")
	}
	if err := cfg.Implementation.Fee.Validate(); err != nil {
		return nil, err
	}
	if cfg.Implementation.MinimumShares == nil {
		cfg.Implementation.MinimumShares = uint256.NewInt(amm.MinimumShares)
	}
	if cfg.Fees == nil {
		cfg.Fees = noFee{}
	}
	if cfg.Events == nil {
		cfg.Events = nopEmitter{}
	}

	return &Pool{
		host:     cfg.Host,
		fees:     cfg.Fees,
		events:   cfg.Events,
		address:  cfg.Address,
		factory:  cfg.Factory,
		impl:     cfg.Implementation,
		name:     cfg.Name,
		symbol:   cfg.Symbol,
		reserve0: new(uint256.Int),
		reserve1: new(uint256.Int),
		kLast:    new(uint256.Int),
	}, nil
}

// Initialize binds the pool to its canonical token pair. Only the factory
// may call it, and only once.
func (p *Pool) Initialize(caller, token0, token1 common.Address) error {
	if caller != p.factory {
		return fmt.Errorf("initialize pool %s: %w", p.address.Hex(), amm.ErrUnauthorized)
	}
	if p.token0 != nil {
		return fmt.Errorf("%w: pool %s already initialized", amm.ErrValidation, p.address.Hex())
	}
	t0, err := p.host.Token(token0)
	if err != nil {
		return fmt.Errorf("%w: token0: %w", amm.ErrValidation, err)
	}
	t1, err := p.host.Token(token1)
	if err != nil {
		return fmt.Errorf("%w: token1: %w", amm.ErrValidation, err)
	}

	p.token0, p.token1 = t0, t1
	p.createdAt = p.host.Now()
	p.host.Record(func() {
		p.token0, p.token1 = nil, nil
		p.createdAt = 0
	})
	return nil
}

func (p *Pool) lock() error {
	if p.locked {
		return fmt.Errorf("pool %s: %w", p.address.Hex(), amm.ErrLocked)
	}
	if p.token0 == nil {
		return fmt.Errorf("%w: pool %s not initialized", amm.ErrValidation, p.address.Hex())
	}
	p.locked = true
	return nil
}

func (p *Pool) unlock() {
	p.locked = false
}

// Mint issues shares to `to` for the tokens transferred to the pool since
// the last reserve update.
func (p *Pool) Mint(caller, to common.Address) (*uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, err
	}
	defer p.unlock()

	reserve0, reserve1 := p.ReserveBalances()
	balance0, balance1 := p.Balances()
	amount0, err := amm.Sub(balance0, reserve0)
	if err != nil {
		return nil, fmt.Errorf("mint: token0 balance below reserve: %w", err)
	}
	amount1, err := amm.Sub(balance1, reserve1)
	if err != nil {
		return nil, fmt.Errorf("mint: token1 balance below reserve: %w", err)
	}

	feeOn, err := p.mintFee(reserve0, reserve1)
	if err != nil {
		return nil, err
	}

	totalSupply := p.TotalSupply()
	var liquidity *uint256.Int
	if totalSupply.IsZero() {
		product, err := amm.Mul(amount0, amount1)
		if err != nil {
			return nil, fmt.Errorf("mint: %w", err)
		}
		root := new(uint256.Int).Sqrt(product)
		if !root.Gt(p.impl.MinimumShares) {
			return nil, fmt.Errorf("mint: initial deposit of %s/%s: %w", amount0.Dec(), amount1.Dec(), amm.ErrInsufficientLiquidity)
		}
		liquidity = root.Sub(root, p.impl.MinimumShares)
		if err := p.mintShares(common.Address{}, p.impl.MinimumShares); err != nil {
			return nil, err
		}
	} else {
		if reserve0.IsZero() || reserve1.IsZero() {
			return nil, fmt.Errorf("mint: empty reserves: %w", amm.ErrInsufficientLiquidity)
		}
		shares0, err := amm.MulDiv(amount0, totalSupply, reserve0)
		if err != nil {
			return nil, fmt.Errorf("mint: %w", err)
		}
		shares1, err := amm.MulDiv(amount1, totalSupply, reserve1)
		if err != nil {
			return nil, fmt.Errorf("mint: %w", err)
		}
		liquidity = amm.Min(shares0, shares1)
	}
	if liquidity.IsZero() {
		return nil, fmt.Errorf("mint: no shares for %s/%s: %w", amount0.Dec(), amount1.Dec(), amm.ErrInsufficientLiquidity)
	}

	if err := p.mintShares(to, liquidity); err != nil {
		return nil, err
	}
	if err := p.update(balance0, balance1); err != nil {
		return nil, err
	}
	if feeOn {
		p.setKLast(new(uint256.Int).Mul(p.reserve0, p.reserve1))
	}

	p.emit(model.EventMint, model.MintEventData{
		Sender:  caller.Hex(),
		Amount0: amount0.Dec(),
		Amount1: amount1.Dec(),
	})
	return liquidity, nil
}

// Burn redeems the shares held by the pool itself and pays the underlying
// tokens to `to`. Callers transfer shares to the pool first.
func (p *Pool) Burn(caller, to common.Address) (*uint256.Int, *uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	reserve0, reserve1 := p.ReserveBalances()
	balance0, balance1 := p.Balances()
	liquidity := p.BalanceOf(p.address)

	feeOn, err := p.mintFee(reserve0, reserve1)
	if err != nil {
		return nil, nil, err
	}

	totalSupply := p.TotalSupply()
	if totalSupply.IsZero() {
		return nil, nil, fmt.Errorf("burn: no shares outstanding: %w", amm.ErrInsufficientLiquidity)
	}
	amount0, err := amm.MulDiv(liquidity, balance0, totalSupply)
	if err != nil {
		return nil, nil, fmt.Errorf("burn: %w", err)
	}
	amount1, err := amm.MulDiv(liquidity, balance1, totalSupply)
	if err != nil {
		return nil, nil, fmt.Errorf("burn: %w", err)
	}
	if amount0.IsZero() || amount1.IsZero() {
		return nil, nil, fmt.Errorf("burn: %s shares redeem nothing: %w", liquidity.Dec(), amm.ErrInsufficientLiquidity)
	}

	if err := p.burnShares(p.address, liquidity); err != nil {
		return nil, nil, err
	}
	if err := p.token0.Transfer(p.address, to, amount0); err != nil {
		return nil, nil, fmt.Errorf("burn: %w", err)
	}
	if err := p.token1.Transfer(p.address, to, amount1); err != nil {
		return nil, nil, fmt.Errorf("burn: %w", err)
	}

	balance0, balance1 = p.Balances()
	if err := p.update(balance0, balance1); err != nil {
		return nil, nil, err
	}
	if feeOn {
		p.setKLast(new(uint256.Int).Mul(p.reserve0, p.reserve1))
	}

	p.emit(model.EventBurn, model.BurnEventData{
		Sender:  caller.Hex(),
		Amount0: amount0.Dec(),
		Amount1: amount1.Dec(),
		To:      to.Hex(),
	})
	return amount0, amount1, nil
}

// Swap sends the requested outputs to `to`, then requires the tokens paid
// in to keep the fee-adjusted constant product from decreasing.
func (p *Pool) Swap(caller common.Address, amount0Out, amount1Out *uint256.Int, to common.Address) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if amount0Out.IsZero() && amount1Out.IsZero() {
		return fmt.Errorf("swap: %w", amm.ErrInsufficientOutput)
	}
	reserve0, reserve1 := p.ReserveBalances()
	if !amount0Out.Lt(reserve0) || !amount1Out.Lt(reserve1) {
		return fmt.Errorf("swap: outputs %s/%s against reserves %s/%s: %w",
			amount0Out.Dec(), amount1Out.Dec(), reserve0.Dec(), reserve1.Dec(), amm.ErrInsufficientLiquidity)
	}
	if to == p.token0.Address() || to == p.token1.Address() {
		return fmt.Errorf("swap: %w: %s is a pool token", amm.ErrInvalidRecipient, to.Hex())
	}

	if !amount0Out.IsZero() {
		if err := p.token0.Transfer(p.address, to, amount0Out); err != nil {
			return fmt.Errorf("swap: %w", err)
		}
	}
	if !amount1Out.IsZero() {
		if err := p.token1.Transfer(p.address, to, amount1Out); err != nil {
			return fmt.Errorf("swap: %w", err)
		}
	}

	balance0, balance1 := p.Balances()
	amount0In := amountIn(balance0, reserve0, amount0Out)
	amount1In := amountIn(balance1, reserve1, amount1Out)
	if amount0In.IsZero() && amount1In.IsZero() {
		return fmt.Errorf("swap: %w", amm.ErrInsufficientInput)
	}
	if err := amm.CheckInvariant(balance0, balance1, amount0In, amount1In, reserve0, reserve1, p.impl.Fee); err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	if err := p.update(balance0, balance1); err != nil {
		return err
	}

	p.emit(model.EventSwap, model.SwapEventData{
		Sender:     caller.Hex(),
		Amount0In:  amount0In.Dec(),
		Amount1In:  amount1In.Dec(),
		Amount0Out: amount0Out.Dec(),
		Amount1Out: amount1Out.Dec(),
		To:         to.Hex(),
	})
	return nil
}

// amountIn is what arrived on top of the reserve left after the output.
func amountIn(balance, reserve, out *uint256.Int) *uint256.Int {
	remaining := new(uint256.Int).Sub(reserve, out)
	if balance.Gt(remaining) {
		return remaining.Sub(balance, remaining)
	}
	return new(uint256.Int)
}

// Skim sends any balances above the reserves to `to`.
func (p *Pool) Skim(to common.Address) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	balance0, balance1 := p.Balances()
	excess0, err := amm.Sub(balance0, p.reserve0)
	if err != nil {
		return fmt.Errorf("skim: %w", err)
	}
	excess1, err := amm.Sub(balance1, p.reserve1)
	if err != nil {
		return fmt.Errorf("skim: %w", err)
	}
	if !excess0.IsZero() {
		if err := p.token0.Transfer(p.address, to, excess0); err != nil {
			return fmt.Errorf("skim: %w", err)
		}
	}
	if !excess1.IsZero() {
		if err := p.token1.Transfer(p.address, to, excess1); err != nil {
			return fmt.Errorf("skim: %w", err)
		}
	}
	return nil
}

// Sync sets the reserves to the current balances.
func (p *Pool) Sync() error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	balance0, balance1 := p.Balances()
	return p.update(balance0, balance1)
}

// mintFee mints the protocol's cut of fee growth since the last liquidity
// event: totalSupply*(sqrt(k)-sqrt(kLast)) / (5*sqrt(k)+sqrt(kLast)).
func (p *Pool) mintFee(reserve0, reserve1 *uint256.Int) (bool, error) {
	feeTo := p.fees.FeeTo()
	feeOn := feeTo != (common.Address{})
	if !feeOn {
		if !p.kLast.IsZero() {
			p.setKLast(new(uint256.Int))
		}
		return false, nil
	}
	if p.kLast.IsZero() {
		return true, nil
	}

	rootK := new(uint256.Int).Sqrt(new(uint256.Int).Mul(reserve0, reserve1))
	rootKLast := new(uint256.Int).Sqrt(p.kLast)
	if !rootK.Gt(rootKLast) {
		return true, nil
	}

	growth := new(uint256.Int).Sub(rootK, rootKLast)
	denominator := new(uint256.Int).Mul(rootK, uint256.NewInt(5))
	denominator.Add(denominator, rootKLast)
	liquidity, err := amm.MulDiv(p.TotalSupply(), growth, denominator)
	if err != nil {
		return true, fmt.Errorf("protocol fee: %w", err)
	}
	if !liquidity.IsZero() {
		if err := p.mintShares(feeTo, liquidity); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (p *Pool) update(balance0, balance1 *uint256.Int) error {
	if !amm.FitsReserve(balance0) || !amm.FitsReserve(balance1) {
		return fmt.Errorf("update reserves %s/%s: %w", balance0.Dec(), balance1.Dec(), amm.ErrOverflow)
	}

	prev0, prev1, prevTS := p.reserve0, p.reserve1, p.blockTimestampLast
	p.host.Record(func() {
		p.reserve0, p.reserve1, p.blockTimestampLast = prev0, prev1, prevTS
	})
	p.reserve0 = new(uint256.Int).Set(balance0)
	p.reserve1 = new(uint256.Int).Set(balance1)
	p.blockTimestampLast = p.host.Now()

	p.emit(model.EventSync, model.SyncEventData{
		Reserve0: p.reserve0.Dec(),
		Reserve1: p.reserve1.Dec(),
	})
	return nil
}

func (p *Pool) setKLast(k *uint256.Int) {
	prev := p.kLast
	p.host.Record(func() { p.kLast = prev })
	p.kLast = k
}

func (p *Pool) emit(name string, data interface{}) {
	p.events.Emit(model.TypedEvent{
		Address:   p.address.Hex(),
		EventName: name,
		Timestamp: p.host.Now(),
		Decoded:   data,
	})
}

// Token0 returns the lower-ordered token.
func (p *Pool) Token0() common.Address { return tokenAddress(p.token0) }

// Token1 returns the higher-ordered token.
func (p *Pool) Token1() common.Address { return tokenAddress(p.token1) }

func tokenAddress(t token.ERC20) common.Address {
	if t == nil {
		return common.Address{}
	}
	return t.Address()
}

// Initialized reports whether Initialize has run.
func (p *Pool) Initialized() bool { return p.token0 != nil }

// Factory returns the address allowed to initialize the pool.
func (p *Pool) Factory() common.Address { return p.factory }

// Implementation returns the template the pool was created from.
func (p *Pool) Implementation() Implementation { return p.impl }

// Fee returns the swap fee.
func (p *Pool) Fee() amm.Fee { return p.impl.Fee }

// ReserveBalances returns copies of the reserves as of the last update.
func (p *Pool) ReserveBalances() (*uint256.Int, *uint256.Int) {
	return new(uint256.Int).Set(p.reserve0), new(uint256.Int).Set(p.reserve1)
}

// Reserves returns the reserves and the time they were last updated.
func (p *Pool) Reserves() (*uint256.Int, *uint256.Int, uint64) {
	r0, r1 := p.ReserveBalances()
	return r0, r1, p.blockTimestampLast
}

// Balances returns the pool's current token balances.
func (p *Pool) Balances() (*uint256.Int, *uint256.Int) {
	if p.token0 == nil {
		return new(uint256.Int), new(uint256.Int)
	}
	return p.token0.BalanceOf(p.address), p.token1.BalanceOf(p.address)
}

// KLast is reserve0*reserve1 after the most recent liquidity event while
// the protocol fee is on.
func (p *Pool) KLast() *uint256.Int { return new(uint256.Int).Set(p.kLast) }

// Name0 returns token0's name, or "" before Initialize.
func (p *Pool) Name0() string { return tokenMeta(p.token0).name }

// Name1 returns token1's name, or "" before Initialize.
func (p *Pool) Name1() string { return tokenMeta(p.token1).name }

// Symbol0 returns token0's symbol, or "" before Initialize.
func (p *Pool) Symbol0() string { return tokenMeta(p.token0).symbol }

// Symbol1 returns token1's symbol, or "" before Initialize.
func (p *Pool) Symbol1() string { return tokenMeta(p.token1).symbol }

// Decimals0 returns token0's decimals, or 0 before Initialize.
func (p *Pool) Decimals0() uint8 { return tokenMeta(p.token0).decimals }

// Decimals1 returns token1's decimals, or 0 before Initialize.
func (p *Pool) Decimals1() uint8 { return tokenMeta(p.token1).decimals }

// CreatedAt is the block time of Initialize.
func (p *Pool) CreatedAt() uint64 { return p.createdAt }

type metadata struct {
	name     string
	symbol   string
	decimals uint8
}

func tokenMeta(t token.ERC20) metadata {
	if t == nil {
		return metadata{}
	}
	return metadata{name: t.Name(), symbol: t.Symbol(), decimals: t.Decimals()}
}
