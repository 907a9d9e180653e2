package factory

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/chain"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

var (
	deployer    = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	owner       = common.HexToAddress("0x0000000000000000000000000000000000000001")
	stranger    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f0")
)

type recorder struct {
	events []model.TypedEvent
}

func (r *recorder) Emit(ev model.TypedEvent) { r.events = append(r.events, ev) }

func (r *recorder) last(name string) (model.TypedEvent, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EventName == name {
			return r.events[i], true
		}
	}
	return model.TypedEvent{}, false
}

type fixture struct {
	state   *chain.State
	factory *Factory
	events  *recorder
	impl    common.Address
	a, b, c common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := chain.NewState()
	st.SetTime(1_700_000_000)
	events := &recorder{}
	f := New(st, factoryAddr, owner, events)

	impl, err := f.DeployImplementation(owner, amm.DefaultFee, nil)
	require.NoError(t, err)
	require.NoError(t, f.SetImplementation(owner, impl))

	fx := &fixture{state: st, factory: f, events: events, impl: impl}
	for i, sym := range []string{"AAA", "BBB", "CCC"} {
		tok, err := st.DeployToken(deployer, sym+" token", sym, 18)
		require.NoError(t, err)
		switch i {
		case 0:
			fx.a = tok.Address()
		case 1:
			fx.b = tok.Address()
		case 2:
			fx.c = tok.Address()
		}
	}
	return fx
}

func TestComputeAddressIsSymmetricAndDeterministic(t *testing.T) {
	impl := common.HexToAddress("0x1234000000000000000000000000000000004321")
	a := common.HexToAddress("0x1000000000000000000000000000000000000000")
	b := common.HexToAddress("0x2000000000000000000000000000000000000000")

	ab, err := ComputeAddress(factoryAddr, impl, a, b)
	require.NoError(t, err)
	ba, err := ComputeAddress(factoryAddr, impl, b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	other, err := ComputeAddress(factoryAddr, common.HexToAddress("0x99"), a, b)
	require.NoError(t, err)
	assert.NotEqual(t, ab, other)

	_, err = ComputeAddress(factoryAddr, impl, a, a)
	require.ErrorIs(t, err, amm.ErrIdenticalTokens)
	_, err = ComputeAddress(factoryAddr, impl, common.Address{}, a)
	require.ErrorIs(t, err, amm.ErrZeroToken)
}

func TestCloneInitCodeEmbedsImplementation(t *testing.T) {
	impl := common.HexToAddress("0xbebebebebebebebebebebebebebebebebebebebe")
	code := CloneInitCode(impl)
	require.Len(t, code, 55)
	assert.Equal(t, impl.Bytes(), code[20:40])
}

func TestCreatePairMatchesComputeAddress(t *testing.T) {
	fx := newFixture(t)

	predicted, err := fx.factory.ComputeAddress(fx.impl, fx.b, fx.a)
	require.NoError(t, err)
	addr, err := fx.factory.CreatePair(stranger, fx.b, fx.a)
	require.NoError(t, err)
	assert.Equal(t, predicted, addr)

	assert.Equal(t, addr, fx.factory.GetPair(fx.a, fx.b))
	assert.Equal(t, addr, fx.factory.GetPair(fx.b, fx.a))
	assert.Equal(t, common.Address{}, fx.factory.GetPair(fx.a, fx.c))
	assert.Equal(t, []common.Address{addr}, fx.factory.AllPairs())

	p, ok := fx.factory.PoolAt(addr)
	require.True(t, ok)
	assert.True(t, p.Initialized())
	assert.Equal(t, fx.impl, p.Implementation().Address)

	shares, err := fx.state.Token(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, shares.Address())

	ev, ok := fx.events.last(model.EventPairCreated)
	require.True(t, ok)
	data := ev.Decoded.(model.PairCreatedEventData)
	assert.Equal(t, addr.Hex(), data.Pair)
	assert.Equal(t, uint64(1), data.Length)
}

func TestCreatePairRejectsDuplicates(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.factory.CreatePair(owner, fx.a, fx.b)
	require.NoError(t, err)
	_, err = fx.factory.CreatePair(owner, fx.b, fx.a)
	require.ErrorIs(t, err, amm.ErrPairExists)
	assert.Equal(t, 1, fx.factory.AllPairsLength())

	_, err = fx.factory.CreatePair(owner, fx.a, fx.a)
	require.ErrorIs(t, err, amm.ErrIdenticalTokens)
	_, err = fx.factory.CreatePair(owner, fx.a, common.Address{})
	require.ErrorIs(t, err, amm.ErrZeroToken)
	_, err = fx.factory.CreatePair(owner, fx.a, common.HexToAddress("0xdead"))
	require.ErrorIs(t, err, amm.ErrValidation)
	assert.Equal(t, 1, fx.factory.AllPairsLength())
}

func TestCreatePairRequiresImplementation(t *testing.T) {
	st := chain.NewState()
	f := New(st, factoryAddr, owner, nil)
	a, err := st.DeployToken(deployer, "A", "A", 18)
	require.NoError(t, err)
	b, err := st.DeployToken(deployer, "B", "B", 18)
	require.NoError(t, err)

	_, err = f.CreatePair(owner, a.Address(), b.Address())
	require.ErrorIs(t, err, amm.ErrValidation)
}

func TestAdminRequiresOwner(t *testing.T) {
	fx := newFixture(t)
	f := fx.factory

	require.ErrorIs(t, f.SetImplementation(stranger, fx.impl), amm.ErrUnauthorized)
	require.ErrorIs(t, f.UpdateFeeTo(stranger, stranger), amm.ErrUnauthorized)
	require.ErrorIs(t, f.UpdatePairSuffix(stranger, "X"), amm.ErrUnauthorized)
	require.ErrorIs(t, f.TransferOwnership(stranger, stranger), amm.ErrUnauthorized)
	require.ErrorIs(t, f.TransferOwnership(owner, common.Address{}), amm.ErrValidation)
	require.ErrorIs(t, f.SetImplementation(owner, common.HexToAddress("0xabc")), amm.ErrValidation)

	before := f.Config().Version
	require.NoError(t, f.UpdateFeeTo(owner, stranger))
	require.NoError(t, f.UpdatePairSuffix(owner, "TLP"))
	require.NoError(t, f.TransferOwnership(owner, stranger))
	cfg := f.Config()
	assert.Equal(t, before+3, cfg.Version)
	assert.Equal(t, stranger, cfg.FeeTo)
	assert.Equal(t, stranger, f.FeeTo())
	assert.Equal(t, "TLP", cfg.PairSuffix)
	assert.Equal(t, stranger, f.Owner())
	require.ErrorIs(t, f.UpdateFeeTo(owner, owner), amm.ErrUnauthorized)

	ev, ok := fx.events.last(model.EventConfigUpdated)
	require.True(t, ok)
	assert.Equal(t, cfg.Version, ev.Decoded.(model.ConfigUpdatedEventData).Version)
}

func TestDeployImplementationValidates(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.factory.DeployImplementation(stranger, amm.Fee{Numerator: 1, Denominator: 1}, nil)
	require.ErrorIs(t, err, amm.ErrInvalidFee)
	_, err = fx.factory.DeployImplementation(stranger, amm.DefaultFee, new(uint256.Int))
	require.ErrorIs(t, err, amm.ErrValidation)
	assert.Len(t, fx.factory.Implementations(), 1)
}

func TestSetImplementationAffectsOnlyNewPairs(t *testing.T) {
	fx := newFixture(t)
	f := fx.factory

	first, err := f.CreatePair(owner, fx.a, fx.b)
	require.NoError(t, err)

	cheap := amm.Fee{Numerator: 1, Denominator: 1000}
	impl2, err := f.DeployImplementation(owner, cheap, uint256.NewInt(10))
	require.NoError(t, err)
	require.NoError(t, f.SetImplementation(owner, impl2))

	second, err := f.CreatePair(owner, fx.a, fx.c)
	require.NoError(t, err)

	p1, _ := f.PoolAt(first)
	p2, _ := f.PoolAt(second)
	assert.Equal(t, amm.DefaultFee, p1.Fee())
	assert.Equal(t, cheap, p2.Fee())
	assert.Equal(t, fx.impl, p1.Implementation().Address)
	assert.Equal(t, impl2, p2.Implementation().Address)
}

func TestShareLabelsUseSuffix(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.factory.UpdatePairSuffix(owner, "TLP"))

	addr, err := fx.factory.CreatePair(owner, fx.a, fx.b)
	require.NoError(t, err)
	p, _ := fx.factory.PoolAt(addr)
	assert.Contains(t, p.Name(), "TLP")
	assert.Contains(t, p.Symbol(), "-TLP")
}

func TestCreatePairRevertsWithState(t *testing.T) {
	fx := newFixture(t)
	snap := fx.state.Snapshot()

	addr, err := fx.factory.CreatePair(owner, fx.a, fx.b)
	require.NoError(t, err)
	fx.state.RevertToSnapshot(snap)

	assert.Equal(t, 0, fx.factory.AllPairsLength())
	assert.Equal(t, common.Address{}, fx.factory.GetPair(fx.a, fx.b))
	_, err = fx.state.Token(addr)
	require.Error(t, err)

	again, err := fx.factory.CreatePair(owner, fx.a, fx.b)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
}

func TestStateRestore(t *testing.T) {
	fx := newFixture(t)
	addr, err := fx.factory.CreatePair(owner, fx.a, fx.b)
	require.NoError(t, err)
	require.NoError(t, fx.factory.UpdateFeeTo(owner, stranger))

	p, _ := fx.factory.PoolAt(addr)
	st := fx.factory.State()

	restoredChain := chain.NewState()
	require.NoError(t, restoredChain.Import(fx.state.Export()))
	restored, err := Restore(restoredChain, nil, st, []model.PoolState{p.State()})
	require.NoError(t, err)

	assert.Equal(t, fx.factory.Config(), restored.Config())
	assert.Equal(t, fx.factory.AllPairs(), restored.AllPairs())
	assert.Equal(t, addr, restored.GetPair(fx.b, fx.a))
	assert.Len(t, restored.Implementations(), 1)

	_, err = Restore(chain.NewState(), nil, st, nil)
	require.Error(t, err)
}
