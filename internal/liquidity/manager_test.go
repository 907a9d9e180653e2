package liquidity

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/chain"
	"github.com/kaym0/UniswapV2-Rework/internal/factory"
	"github.com/kaym0/UniswapV2-Rework/internal/pool"
)

var (
	deployer    = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	managerAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	user        = common.HexToAddress("0x0000000000000000000000000000000000000001")
	recipient   = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

const now = 1_700_000_000

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func zero() *uint256.Int { return new(uint256.Int) }

type fixture struct {
	state   *chain.State
	factory *factory.Factory
	manager *Manager
	wrapped *chain.Wrapped
	a, b    *chain.Token
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := chain.NewState()
	st.SetTime(now)
	f := factory.New(st, factoryAddr, deployer, nil)
	impl, err := f.DeployImplementation(deployer, amm.DefaultFee, u(10))
	require.NoError(t, err)
	require.NoError(t, f.SetImplementation(deployer, impl))
	wrapped, err := st.DeployWrappedNative(deployer, "Wrapped Ether", "WETH")
	require.NoError(t, err)

	fx := &fixture{state: st, factory: f, wrapped: wrapped}
	for _, dst := range []**chain.Token{&fx.a, &fx.b} {
		tok, err := st.DeployToken(deployer, "Token", "TKN", 18)
		require.NoError(t, err)
		require.NoError(t, tok.Mint(user, u(1_000_000_000)))
		require.NoError(t, tok.Approve(user, managerAddr, new(uint256.Int).SetAllOne()))
		*dst = tok
	}
	require.NoError(t, st.Fund(user, u(1_000_000_000)))

	fx.manager, err = New(Config{
		Address: managerAddr,
		Factory: f,
		Tokens:  st,
		Wrapped: wrapped,
		Native:  st,
		Clock:   st,
	})
	require.NoError(t, err)
	return fx
}

func (fx *fixture) pool(t *testing.T, x, y common.Address) *pool.Pool {
	t.Helper()
	p, ok := fx.factory.Pair(x, y)
	require.True(t, ok)
	return p
}

func reservesOf(p *pool.Pool, tokenA common.Address) (*uint256.Int, *uint256.Int) {
	r0, r1 := p.ReserveBalances()
	if p.Token0() == tokenA {
		return r0, r1
	}
	return r1, r0
}

func TestAddLiquidityCreatesPool(t *testing.T) {
	fx := newFixture(t)
	a, b := fx.a.Address(), fx.b.Address()

	res, err := fx.manager.AddLiquidity(user, a, b, u(100), u(100), u(100), u(100), user, now+60)
	require.NoError(t, err)

	p := fx.pool(t, a, b)
	assert.Equal(t, p.Address(), res.Pool)
	reserveA, reserveB := reservesOf(p, a)
	assert.Equal(t, u(100), reserveA)
	assert.Equal(t, u(100), reserveB)
	// floor(sqrt(100*100)) - 10 locked shares
	assert.Equal(t, u(90), res.Shares)
	assert.Equal(t, u(90), p.BalanceOf(user))
	assert.Equal(t, u(10), p.BalanceOf(common.Address{}))
	assert.Equal(t, 1, fx.factory.AllPairsLength())
}

func TestAddLiquidityUsesReserveRatio(t *testing.T) {
	fx := newFixture(t)
	a, b := fx.a.Address(), fx.b.Address()
	_, err := fx.manager.AddLiquidity(user, a, b, u(1000), u(2000), zero(), zero(), user, now)
	require.NoError(t, err)

	testCases := []struct {
		name               string
		desiredA, desiredB uint64
	}{
		{name: "token B is bound", desiredA: 100, desiredB: 500},
		{name: "token A is bound", desiredA: 500, desiredB: 200},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := fx.pool(t, a, b)
			reserveA, reserveB := reservesOf(p, a)
			supply := p.TotalSupply()

			res, err := fx.manager.AddLiquidity(user, a, b, u(tc.desiredA), u(tc.desiredB), zero(), zero(), recipient, now)
			require.NoError(t, err)

			// The ratio is 1:2, so both cases deposit B = 2*A.
			assert.Equal(t, new(uint256.Int).Mul(res.AmountA, u(2)), res.AmountB)
			wantShares := new(uint256.Int).Div(new(uint256.Int).Mul(res.AmountA, supply), reserveA)
			assert.Equal(t, wantShares, res.Shares)

			afterA, afterB := reservesOf(p, a)
			assert.Equal(t, new(uint256.Int).Add(reserveA, res.AmountA), afterA)
			assert.Equal(t, new(uint256.Int).Add(reserveB, res.AmountB), afterB)
		})
	}
}

func TestAddLiquidityMinimums(t *testing.T) {
	fx := newFixture(t)
	a, b := fx.a.Address(), fx.b.Address()
	_, err := fx.manager.AddLiquidity(user, a, b, u(1000), u(2000), zero(), zero(), user, now)
	require.NoError(t, err)

	_, err = fx.manager.AddLiquidity(user, a, b, u(100), u(500), zero(), u(300), user, now)
	require.ErrorIs(t, err, amm.ErrInsufficientAmountB)
	require.ErrorIs(t, err, amm.ErrValidation)

	_, err = fx.manager.AddLiquidity(user, a, b, u(500), u(200), u(150), zero(), user, now)
	require.ErrorIs(t, err, amm.ErrInsufficientAmountA)

	_, err = fx.manager.AddLiquidity(user, fx.wrapped.Address(), a, u(10), u(10), u(11), zero(), user, now)
	require.ErrorIs(t, err, amm.ErrInsufficientAmountA)
}

func TestAddLiquidityRejectsBadPairs(t *testing.T) {
	fx := newFixture(t)
	a := fx.a.Address()

	_, err := fx.manager.AddLiquidity(user, a, a, u(100), u(100), zero(), zero(), user, now)
	require.ErrorIs(t, err, amm.ErrIdenticalTokens)

	_, err = fx.manager.AddLiquidity(user, a, common.Address{}, u(100), u(100), zero(), zero(), user, now)
	require.ErrorIs(t, err, amm.ErrZeroToken)
	assert.Equal(t, 0, fx.factory.AllPairsLength())
}

func TestRemoveLiquidity(t *testing.T) {
	fx := newFixture(t)
	a, b := fx.a.Address(), fx.b.Address()
	added, err := fx.manager.AddLiquidity(user, a, b, u(10_000), u(40_000), zero(), zero(), user, now)
	require.NoError(t, err)
	p := fx.pool(t, a, b)

	_, err = fx.manager.RemoveLiquidity(user, a, b, added.Shares, zero(), zero(), recipient, now)
	require.Error(t, err, "manager has no share allowance yet")

	require.NoError(t, p.Approve(user, managerAddr, added.Shares))
	res, err := fx.manager.RemoveLiquidity(user, a, b, added.Shares, u(9_000), u(36_000), recipient, now)
	require.NoError(t, err)

	assert.False(t, res.AmountA.Gt(added.AmountA))
	assert.False(t, res.AmountB.Gt(added.AmountB))
	assert.Equal(t, res.AmountA, fx.a.BalanceOf(recipient))
	assert.Equal(t, res.AmountB, fx.b.BalanceOf(recipient))
	assert.True(t, p.BalanceOf(user).IsZero())
	assert.True(t, p.Allowance(user, managerAddr).IsZero())
}

func TestRemoveLiquidityMinimums(t *testing.T) {
	fx := newFixture(t)
	a, b := fx.a.Address(), fx.b.Address()
	added, err := fx.manager.AddLiquidity(user, a, b, u(10_000), u(10_000), zero(), zero(), user, now)
	require.NoError(t, err)
	p := fx.pool(t, a, b)
	require.NoError(t, p.Approve(user, managerAddr, new(uint256.Int).SetAllOne()))

	_, err = fx.manager.RemoveLiquidity(user, a, b, added.Shares, u(10_000), zero(), user, now)
	require.ErrorIs(t, err, amm.ErrInsufficientAmountA)
	require.ErrorIs(t, err, amm.ErrValidation)
}

func TestRemoveLiquidityMissingPool(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.manager.RemoveLiquidity(user, fx.a.Address(), fx.b.Address(), u(1), zero(), zero(), user, now)
	require.ErrorIs(t, err, amm.ErrInsufficientLiquidity)
}

func TestLiquidityETH(t *testing.T) {
	fx := newFixture(t)
	a, w := fx.a.Address(), fx.wrapped.Address()

	first, err := fx.manager.AddLiquidityETH(user, a, u(4000), u(1000), zero(), zero(), user, now)
	require.NoError(t, err)
	assert.Equal(t, u(1000), first.AmountA)
	assert.Equal(t, u(4000), first.AmountB)

	nativeBefore := fx.state.NativeBalance(user)
	second, err := fx.manager.AddLiquidityETH(user, a, u(1000), u(100), zero(), zero(), user, now)
	require.NoError(t, err)
	assert.Equal(t, u(100), second.AmountA)
	assert.Equal(t, u(400), second.AmountB)
	assert.Equal(t, new(uint256.Int).Sub(nativeBefore, u(400)), fx.state.NativeBalance(user), "unused value is refunded")
	assert.True(t, fx.state.NativeBalance(managerAddr).IsZero())

	p := fx.pool(t, a, w)
	reserveToken, reserveETH := reservesOf(p, a)
	assert.Equal(t, u(1100), reserveToken)
	assert.Equal(t, u(4400), reserveETH)

	require.NoError(t, p.Approve(user, managerAddr, second.Shares))
	res, err := fx.manager.RemoveLiquidityETH(user, a, second.Shares, zero(), zero(), recipient, now)
	require.NoError(t, err)
	assert.Equal(t, res.AmountA, fx.a.BalanceOf(recipient))
	assert.Equal(t, res.AmountB, fx.state.NativeBalance(recipient))
	assert.True(t, fx.wrapped.BalanceOf(managerAddr).IsZero())
	assert.True(t, fx.a.BalanceOf(managerAddr).IsZero())
	assert.Equal(t, fx.wrapped.TotalSupply(), fx.state.NativeBalance(w))
}

func TestExpiredDeadlineChangesNothing(t *testing.T) {
	fx := newFixture(t)
	a, b := fx.a.Address(), fx.b.Address()
	past := uint64(now - 1)
	journal := fx.state.JournalLength()

	_, err := fx.manager.AddLiquidity(user, a, b, u(100), u(100), zero(), zero(), user, past)
	require.ErrorIs(t, err, amm.ErrExpired)
	_, err = fx.manager.AddLiquidityETH(user, a, u(100), u(100), zero(), zero(), user, past)
	require.ErrorIs(t, err, amm.ErrExpired)
	_, err = fx.manager.RemoveLiquidity(user, a, b, u(1), zero(), zero(), user, past)
	require.ErrorIs(t, err, amm.ErrValidation)
	_, err = fx.manager.RemoveLiquidityETH(user, a, u(1), zero(), zero(), user, past)
	require.ErrorIs(t, err, amm.ErrValidation)

	assert.Equal(t, journal, fx.state.JournalLength())
	assert.Equal(t, 0, fx.factory.AllPairsLength())
}
