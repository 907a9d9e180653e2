package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/dex"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

var (
	deployer  = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	user      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	recipient = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

const (
	chainID = 31337
	now     = 1_700_000_000
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func zero() *uint256.Int { return new(uint256.Int) }

func unlimited() *uint256.Int { return new(uint256.Int).SetAllOne() }

type recordingSink struct {
	mu      sync.Mutex
	fail    bool
	batches [][]model.LogRecord
}

func (s *recordingSink) PutLogBatch(_ context.Context, logs []model.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.batches = append(s.batches, append([]model.LogRecord(nil), logs...))
	return nil
}

func (s *recordingSink) last() []model.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

type fixture struct {
	engine *Engine
	sink   *recordingSink
	reg    *prometheus.Registry
	a, b   common.Address
}

func testConfig() Config {
	return Config{
		ChainID:       chainID,
		Deployer:      deployer,
		PairSuffix:    "TLP",
		MinimumShares: u(10),
		Now:           func() time.Time { return time.Unix(now, 0) },
	}
}

// newFixture deploys two tokens, funds user and approves the router and
// liquidity manager for both.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	sink := &recordingSink{}
	reg := prometheus.NewRegistry()
	e, err := New(ctx, testConfig(), Deps{Sink: sink, Registerer: reg})
	require.NoError(t, err)

	fx := &fixture{engine: e, sink: sink, reg: reg}
	addrs := e.Addresses()
	for _, dst := range []*common.Address{&fx.a, &fx.b} {
		meta, err := e.DeployToken(ctx, user, "Token", "TKN", 18)
		require.NoError(t, err)
		tok := common.HexToAddress(meta.Address)
		require.NoError(t, e.MintToken(ctx, tok, user, u(1_000_000_000)))
		require.NoError(t, e.Approve(ctx, user, tok, addrs.Router, unlimited()))
		require.NoError(t, e.Approve(ctx, user, tok, addrs.Liquidity, unlimited()))
		*dst = tok
	}
	require.NoError(t, e.Fund(ctx, user, u(1_000_000_000)))
	require.NoError(t, e.Approve(ctx, user, addrs.Wrapped, addrs.Router, unlimited()))
	return fx
}

func (fx *fixture) seed(t *testing.T, amountA, amountB uint64) common.Address {
	t.Helper()
	res, err := fx.engine.AddLiquidity(context.Background(), user, fx.a, fx.b, u(amountA), u(amountB), zero(), zero(), user, now+60)
	require.NoError(t, err)
	return res.Pool
}

func TestBootstrapAddresses(t *testing.T) {
	fx := newFixture(t)
	addrs := fx.engine.Addresses()

	assert.Equal(t, crypto.CreateAddress(deployer, 0), addrs.Wrapped)
	assert.Equal(t, crypto.CreateAddress(deployer, 1), addrs.Factory)
	assert.Equal(t, crypto.CreateAddress(deployer, 2), addrs.Router)
	assert.Equal(t, crypto.CreateAddress(deployer, 3), addrs.Liquidity)
	assert.Equal(t, crypto.CreateAddress(deployer, 4), addrs.Implementation)

	cfg := fx.engine.FactoryConfig()
	assert.Equal(t, deployer, cfg.Owner)
	assert.Equal(t, "TLP", cfg.PairSuffix)
	assert.Equal(t, uint64(chainID), fx.engine.ChainID())
}

func TestNewRequiresDeployer(t *testing.T) {
	_, err := New(context.Background(), Config{ChainID: chainID}, Deps{})
	require.Error(t, err)
}

func TestAddLiquidityThenSwap(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.engine.AddLiquidity(ctx, user, fx.a, fx.b, u(100), u(100), u(100), u(100), user, now+60)
	require.NoError(t, err)
	assert.Equal(t, u(90), res.Shares)

	pair, ok := fx.engine.Pair(fx.a, fx.b)
	require.True(t, ok)
	assert.Equal(t, res.Pool.Hex(), pair.Address)
	assert.Equal(t, "100", pair.TotalSupply)
	assert.Equal(t, "TKN-TKN-TLP", pair.Symbol)

	quoted, err := fx.engine.GetAmountsOut(u(5), []common.Address{fx.a, fx.b})
	require.NoError(t, err)
	assert.Equal(t, u(4), quoted[1])

	amounts, err := fx.engine.SwapExactTokensForTokens(ctx, user, u(5), u(4), []common.Address{fx.a, fx.b}, recipient, now+60)
	require.NoError(t, err)
	assert.Equal(t, []*uint256.Int{u(5), u(4)}, amounts)

	reserveA, reserveB, err := fx.engine.Reserves(fx.a, fx.b)
	require.NoError(t, err)
	assert.Equal(t, u(105), reserveA)
	assert.Equal(t, u(96), reserveB)

	got, err := fx.engine.BalanceOf(fx.b, recipient)
	require.NoError(t, err)
	assert.Equal(t, u(4), got)
}

func TestExpiredDeadlineChangesNothing(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t, 10_000, 10_000)
	ctx := context.Background()
	e := fx.engine
	w := e.Addresses().Wrapped
	path := []common.Address{fx.a, fx.b}
	toETH := []common.Address{fx.a, w}
	fromETH := []common.Address{w, fx.a}
	const past = now - 1

	before, err := json.Marshal(e.Snapshot())
	require.NoError(t, err)
	sequence := e.Sequence()

	calls := map[string]func() error{
		OpAddLiquidity: func() error {
			_, err := e.AddLiquidity(ctx, user, fx.a, fx.b, u(1), u(1), zero(), zero(), user, past)
			return err
		},
		OpAddLiquidityETH: func() error {
			_, err := e.AddLiquidityETH(ctx, user, fx.a, u(1), u(1), zero(), zero(), user, past)
			return err
		},
		OpRemoveLiquidity: func() error {
			_, err := e.RemoveLiquidity(ctx, user, fx.a, fx.b, u(1), zero(), zero(), user, past)
			return err
		},
		OpRemoveLiquidityETH: func() error {
			_, err := e.RemoveLiquidityETH(ctx, user, fx.a, u(1), zero(), zero(), user, past)
			return err
		},
		OpSwapExactTokensForTokens: func() error {
			_, err := e.SwapExactTokensForTokens(ctx, user, u(10), zero(), path, user, past)
			return err
		},
		OpSwapTokensForExactTokens: func() error {
			_, err := e.SwapTokensForExactTokens(ctx, user, u(10), unlimited(), path, user, past)
			return err
		},
		OpSwapExactETHForTokens: func() error {
			_, err := e.SwapExactETHForTokens(ctx, user, u(10), zero(), fromETH, user, past)
			return err
		},
		OpSwapETHForExactTokens: func() error {
			_, err := e.SwapETHForExactTokens(ctx, user, u(10), u(1), fromETH, user, past)
			return err
		},
		OpSwapTokensForExactETH: func() error {
			_, err := e.SwapTokensForExactETH(ctx, user, u(1), unlimited(), toETH, user, past)
			return err
		},
		OpSwapExactTokensForETH: func() error {
			_, err := e.SwapExactTokensForETH(ctx, user, u(10), zero(), toETH, user, past)
			return err
		},
	}
	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			require.ErrorIs(t, call(), amm.ErrValidation)
		})
	}

	after, err := json.Marshal(e.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, sequence, e.Sequence())
}

func TestFailedCallRevertsEveryEffect(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, testConfig(), Deps{})
	require.NoError(t, err)
	liq := e.Addresses().Liquidity

	var tokens []common.Address
	for i := 0; i < 2; i++ {
		meta, err := e.DeployToken(ctx, user, "Token", "TKN", 18)
		require.NoError(t, err)
		tok := common.HexToAddress(meta.Address)
		require.NoError(t, e.MintToken(ctx, tok, user, u(1_000)))
		tokens = append(tokens, tok)
	}
	// Only the first token is approved, so the second pull fails after the
	// pool was created and the first transfer went through.
	require.NoError(t, e.Approve(ctx, user, tokens[0], liq, unlimited()))
	sequence := e.Sequence()

	_, err = e.AddLiquidity(ctx, user, tokens[0], tokens[1], u(100), u(100), zero(), zero(), user, now)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	assert.Empty(t, e.AllPairs())
	assert.Equal(t, common.Address{}, e.GetPair(tokens[0], tokens[1]))
	balance, err := e.BalanceOf(tokens[0], user)
	require.NoError(t, err)
	assert.Equal(t, u(1_000), balance)
	assert.Equal(t, sequence, e.Sequence())
	assert.Zero(t, e.state.JournalLength())

	// The next call derives the same pool address the failed one would have.
	addr, err := e.CreatePair(ctx, user, tokens[0], tokens[1])
	require.NoError(t, err)
	want, err := e.ComputeAddress(e.Addresses().Implementation, tokens[0], tokens[1])
	require.NoError(t, err)
	assert.Equal(t, want, addr)
}

func TestSinkFailureRevertsCall(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	sequence := fx.engine.Sequence()

	fx.sink.fail = true
	_, err := fx.engine.CreatePair(ctx, user, fx.a, fx.b)
	require.Error(t, err)
	assert.Equal(t, common.Address{}, fx.engine.GetPair(fx.a, fx.b))
	assert.Equal(t, sequence, fx.engine.Sequence())

	fx.sink.fail = false
	_, err = fx.engine.CreatePair(ctx, user, fx.a, fx.b)
	require.NoError(t, err)
	assert.Equal(t, sequence+1, fx.engine.Sequence())
}

func TestEventsReachSink(t *testing.T) {
	fx := newFixture(t)
	pair := fx.seed(t, 1_000, 1_000)

	records := fx.sink.last()
	require.NotEmpty(t, records)
	codec, err := dex.NewEventCodec()
	require.NoError(t, err)

	var names []string
	for i, rec := range records {
		assert.Equal(t, uint64(chainID), rec.ChainID)
		assert.Equal(t, fx.engine.Sequence(), rec.BlockNumber)
		assert.Equal(t, records[0].TxHash, rec.TxHash)
		assert.Equal(t, uint64(i), rec.LogIndex)
		assert.Equal(t, OpAddLiquidity, rec.Op)
		assert.Equal(t, uint64(now), rec.Timestamp)

		ev, err := codec.Decode(rec)
		require.NoError(t, err)
		names = append(names, ev.EventName)
	}
	assert.Equal(t, model.EventPairCreated, names[0])
	assert.Contains(t, names, model.EventTransfer)
	assert.Contains(t, names, model.EventSync)
	assert.Equal(t, model.EventMint, names[len(names)-1])

	last := records[len(records)-1]
	assert.Equal(t, pair.Hex(), common.HexToAddress(last.Address).Hex())
}

func TestReentrantPoolCallReverts(t *testing.T) {
	fx := newFixture(t)
	pairAddr := fx.seed(t, 10_000, 10_000)
	ctx := context.Background()
	p, ok := fx.engine.factory.PoolAt(pairAddr)
	require.True(t, ok)

	var inner error
	fx.engine.state.OnTransfer(fx.b, func(from, to common.Address, amount *uint256.Int) error {
		if from != pairAddr {
			return nil
		}
		out0, out1 := zero(), u(1)
		if p.Token0() == fx.b {
			out0, out1 = u(1), zero()
		}
		inner = p.Swap(to, out0, out1, to)
		return inner
	})
	defer fx.engine.state.OnTransfer(fx.b, nil)

	_, err := fx.engine.SwapExactTokensForTokens(ctx, user, u(100), zero(), []common.Address{fx.a, fx.b}, recipient, now)
	require.ErrorIs(t, err, amm.ErrLocked)
	require.ErrorIs(t, inner, amm.ErrLocked)

	reserveA, reserveB, err := fx.engine.Reserves(fx.a, fx.b)
	require.NoError(t, err)
	assert.Equal(t, u(10_000), reserveA)
	assert.Equal(t, u(10_000), reserveB)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.engine.metrics.calls.WithLabelValues(OpSwapExactTokensForTokens, "locked")))
}

func TestConcurrentSwapsSerialize(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t, 1_000_000, 1_000_000)
	ctx := context.Background()
	sequence := fx.engine.Sequence()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := fx.engine.SwapExactTokensForTokens(ctx, user, u(100), zero(), []common.Address{fx.a, fx.b}, recipient, now)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, _ = fx.engine.GetAmountsOut(u(100), []common.Address{fx.a, fx.b})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, sequence+workers, fx.engine.Sequence())
	reserveA, reserveB, err := fx.engine.Reserves(fx.a, fx.b)
	require.NoError(t, err)
	assert.Equal(t, u(1_000_000+workers*100), reserveA)
	received, err := fx.engine.BalanceOf(fx.b, recipient)
	require.NoError(t, err)
	assert.Equal(t, u(1_000_000), new(uint256.Int).Add(reserveB, received))
}

func TestSnapshotOpenRoundTrip(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t, 50_000, 80_000)
	ctx := context.Background()
	require.NoError(t, fx.engine.UpdateFeeTo(ctx, deployer, recipient))

	raw, err := json.Marshal(fx.engine.Snapshot())
	require.NoError(t, err)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	reopened, err := Open(ctx, Config{ChainID: chainID, Now: testConfig().Now}, Deps{}, snap)
	require.NoError(t, err)
	assert.Equal(t, fx.engine.Addresses(), reopened.Addresses())
	assert.Equal(t, fx.engine.Sequence(), reopened.Sequence())
	assert.Equal(t, fx.engine.Pairs(), reopened.Pairs())

	again, err := json.Marshal(reopened.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))

	path := []common.Address{fx.a, fx.b}
	want, err := fx.engine.SwapExactTokensForTokens(ctx, user, u(1_000), zero(), path, recipient, now)
	require.NoError(t, err)
	got, err := reopened.SwapExactTokensForTokens(ctx, user, u(1_000), zero(), path, recipient, now)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenRejectsForeignSnapshot(t *testing.T) {
	fx := newFixture(t)
	snap := fx.engine.Snapshot()

	_, err := Open(context.Background(), Config{ChainID: chainID + 1}, Deps{}, snap)
	require.Error(t, err)

	snap.Version = model.SnapshotVersion + 1
	_, err = Open(context.Background(), Config{ChainID: chainID}, Deps{}, snap)
	require.Error(t, err)
}

func TestMetricsCountCalls(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.CreatePair(ctx, user, fx.a, fx.b)
	require.NoError(t, err)
	_, err = fx.engine.CreatePair(ctx, user, fx.b, fx.a)
	require.ErrorIs(t, err, amm.ErrPairExists)
	err = fx.engine.UpdateFeeTo(ctx, user, user)
	require.ErrorIs(t, err, amm.ErrUnauthorized)

	calls := fx.engine.metrics.calls
	assert.Equal(t, 1.0, testutil.ToFloat64(calls.WithLabelValues(OpCreatePair, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(calls.WithLabelValues(OpCreatePair, "pair_exists")))
	assert.Equal(t, 1.0, testutil.ToFloat64(calls.WithLabelValues(OpUpdateFeeTo, "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.engine.metrics.pairs))

	count, err := testutil.GatherAndCount(fx.reg, "toknswap_engine_calls_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestSkimAndSyncNeedPool(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.ErrorIs(t, fx.engine.Sync(ctx, fx.a), amm.ErrValidation)

	pair := fx.seed(t, 1_000, 1_000)
	require.NoError(t, fx.engine.Transfer(ctx, user, fx.a, pair, u(50)))
	require.NoError(t, fx.engine.Skim(ctx, pair, recipient))
	got, err := fx.engine.BalanceOf(fx.a, recipient)
	require.NoError(t, err)
	assert.Equal(t, u(50), got)

	require.NoError(t, fx.engine.Transfer(ctx, user, fx.b, pair, u(25)))
	require.NoError(t, fx.engine.Sync(ctx, pair))
	_, reserveB, err := fx.engine.Reserves(fx.a, fx.b)
	require.NoError(t, err)
	assert.Equal(t, u(1_025), reserveB)
}

func TestMintTokenRejectsWrapped(t *testing.T) {
	fx := newFixture(t)
	err := fx.engine.MintToken(context.Background(), fx.engine.Addresses().Wrapped, user, u(1))
	require.ErrorIs(t, err, amm.ErrValidation)
}
