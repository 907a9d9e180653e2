// Package factory creates constant-product pools at deterministic addresses
// and indexes them by canonical token pair.
package factory

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/pool"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

// Host extends the pool ledger with contract deployment.
type Host interface {
	pool.Host
	Register(erc20 token.ERC20) error
	NextAddress(deployer common.Address) common.Address
}

// Config is the versioned admin record. Version grows by one on every
// change.
type Config struct {
	Version        uint64
	Owner          common.Address
	Implementation common.Address
	FeeTo          common.Address
	PairSuffix     string
}

type pairKey struct {
	token0 common.Address
	token1 common.Address
}

// Factory owns every pool it created. It is not safe for concurrent use.
type Factory struct {
	host    Host
	events  pool.Emitter
	address common.Address
	config  Config

	implementations map[common.Address]pool.Implementation
	implOrder       []common.Address

	pairs     map[pairKey]*pool.Pool
	byAddress map[common.Address]*pool.Pool
	all       []*pool.Pool
}

// New creates a factory at address owned by owner.
func New(host Host, address, owner common.Address, events pool.Emitter) *Factory {
	if events == nil {
		events = nopEmitter{}
	}
	return &Factory{
		host:            host,
		events:          events,
		address:         address,
		config:          Config{Version: 1, Owner: owner},
		implementations: make(map[common.Address]pool.Implementation),
		pairs:           make(map[pairKey]*pool.Pool),
		byAddress:       make(map[common.Address]*pool.Pool),
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(model.TypedEvent) {}

// Address is the factory's own address, the CREATE2 deployer of its pools.
func (f *Factory) Address() common.Address { return f.address }

// Config returns a copy of the admin record.
func (f *Factory) Config() Config { return f.config }

// FeeTo implements pool.FeeSource.
func (f *Factory) FeeTo() common.Address { return f.config.FeeTo }

func (f *Factory) Owner() common.Address { return f.config.Owner }

// DeployImplementation registers a new pool template with the given fee and
// minimum share lock. Anyone may deploy; only the owner may select it.
func (f *Factory) DeployImplementation(caller common.Address, fee amm.Fee, minimumShares *uint256.Int) (common.Address, error) {
	if err := fee.Validate(); err != nil {
		return common.Address{}, err
	}
	if minimumShares == nil {
		minimumShares = uint256.NewInt(amm.MinimumShares)
	}
	if minimumShares.IsZero() {
		return common.Address{}, fmt.Errorf("%w: minimum shares must be positive", amm.ErrValidation)
	}

	addr := f.host.NextAddress(caller)
	f.implementations[addr] = pool.Implementation{
		Address:       addr,
		Fee:           fee,
		MinimumShares: new(uint256.Int).Set(minimumShares),
	}
	f.implOrder = append(f.implOrder, addr)
	f.host.Record(func() {
		delete(f.implementations, addr)
		f.implOrder = f.implOrder[:len(f.implOrder)-1]
	})
	return addr, nil
}

// Implementation returns a registered template.
func (f *Factory) Implementation(addr common.Address) (pool.Implementation, bool) {
	impl, ok := f.implementations[addr]
	return impl, ok
}

// Implementations lists registered templates in deployment order.
func (f *Factory) Implementations() []pool.Implementation {
	out := make([]pool.Implementation, 0, len(f.implOrder))
	for _, addr := range f.implOrder {
		out = append(out, f.implementations[addr])
	}
	return out
}

// SetImplementation selects the template for pools created from now on.
// Existing pools keep theirs.
func (f *Factory) SetImplementation(caller, impl common.Address) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}
	if _, ok := f.implementations[impl]; !ok {
		return fmt.Errorf("%w: unknown implementation %s", amm.ErrValidation, impl.Hex())
	}
	f.updateConfig(func(c *Config) { c.Implementation = impl })
	return nil
}

// UpdateFeeTo sets the protocol fee recipient. The zero address disables
// the protocol fee.
func (f *Factory) UpdateFeeTo(caller, feeTo common.Address) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}
	f.updateConfig(func(c *Config) { c.FeeTo = feeTo })
	return nil
}

// UpdatePairSuffix sets the label appended to new share token names.
func (f *Factory) UpdatePairSuffix(caller common.Address, suffix string) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}
	f.updateConfig(func(c *Config) { c.PairSuffix = suffix })
	return nil
}

func (f *Factory) TransferOwnership(caller, newOwner common.Address) error {
	if err := f.onlyOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner is the zero address", amm.ErrValidation)
	}
	f.updateConfig(func(c *Config) { c.Owner = newOwner })
	return nil
}

func (f *Factory) onlyOwner(caller common.Address) error {
	if caller != f.config.Owner {
		return fmt.Errorf("%s is not the factory owner: %w", caller.Hex(), amm.ErrUnauthorized)
	}
	return nil
}

func (f *Factory) updateConfig(mutate func(*Config)) {
	prev := f.config
	f.host.Record(func() { f.config = prev })

	next := prev
	mutate(&next)
	next.Version = prev.Version + 1
	f.config = next

	f.events.Emit(model.TypedEvent{
		Address:   f.address.Hex(),
		EventName: model.EventConfigUpdated,
		Timestamp: f.host.Now(),
		Decoded: model.ConfigUpdatedEventData{
			Version:        next.Version,
			Owner:          next.Owner.Hex(),
			Implementation: next.Implementation.Hex(),
			FeeTo:          next.FeeTo.Hex(),
			PairSuffix:     next.PairSuffix,
		},
	})
}

// CreatePair deploys a pool for the unordered pair (a, b) from the current
// implementation.
func (f *Factory) CreatePair(caller, a, b common.Address) (common.Address, error) {
	token0, token1, err := amm.SortTokens(a, b)
	if err != nil {
		return common.Address{}, err
	}
	key := pairKey{token0, token1}
	if existing, ok := f.pairs[key]; ok {
		return common.Address{}, fmt.Errorf("pair %s/%s at %s: %w", token0.Hex(), token1.Hex(), existing.Address().Hex(), amm.ErrPairExists)
	}
	impl, ok := f.implementations[f.config.Implementation]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: implementation not set", amm.ErrValidation)
	}
	erc0, err := f.host.Token(token0)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", amm.ErrValidation, err)
	}
	erc1, err := f.host.Token(token1)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", amm.ErrValidation, err)
	}

	addr, err := ComputeAddress(f.address, impl.Address, token0, token1)
	if err != nil {
		return common.Address{}, err
	}
	name, symbol := shareLabels(erc0.Symbol(), erc1.Symbol(), f.config.PairSuffix)
	p, err := pool.New(pool.Config{
		Address:        addr,
		Factory:        f.address,
		Implementation: impl,
		Name:           name,
		Symbol:         symbol,
		Host:           f.host,
		Fees:           f,
		Events:         f.events,
	})
	if err != nil {
		return common.Address{}, err
	}
	if err := f.host.Register(p); err != nil {
		return common.Address{}, fmt.Errorf("create pair: %w", err)
	}
	if err := p.Initialize(f.address, token0, token1); err != nil {
		return common.Address{}, err
	}
	f.index(p)

	f.events.Emit(model.TypedEvent{
		Address:   f.address.Hex(),
		EventName: model.EventPairCreated,
		Timestamp: f.host.Now(),
		Decoded: model.PairCreatedEventData{
			Token0:         token0.Hex(),
			Token1:         token1.Hex(),
			Pair:           addr.Hex(),
			Implementation: impl.Address.Hex(),
			Length:         uint64(len(f.all)),
		},
	})
	return addr, nil
}

func (f *Factory) index(p *pool.Pool) {
	key := pairKey{p.Token0(), p.Token1()}
	f.pairs[key] = p
	f.byAddress[p.Address()] = p
	f.all = append(f.all, p)
	f.host.Record(func() {
		delete(f.pairs, key)
		delete(f.byAddress, p.Address())
		f.all = f.all[:len(f.all)-1]
	})
}

func shareLabels(symbol0, symbol1, suffix string) (string, string) {
	if suffix == "" {
		suffix = "LP"
	}
	return fmt.Sprintf("%s/%s %s", symbol0, symbol1, suffix), fmt.Sprintf("%s-%s-%s", symbol0, symbol1, suffix)
}

// GetPair returns the pool address for the unordered pair, or the zero
// address if none exists.
func (f *Factory) GetPair(a, b common.Address) common.Address {
	if p, ok := f.Pair(a, b); ok {
		return p.Address()
	}
	return common.Address{}
}

// Pair returns the pool for the unordered pair.
func (f *Factory) Pair(a, b common.Address) (*pool.Pool, bool) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	p, ok := f.pairs[pairKey{a, b}]
	return p, ok
}

// PoolAt returns the pool deployed at addr.
func (f *Factory) PoolAt(addr common.Address) (*pool.Pool, bool) {
	p, ok := f.byAddress[addr]
	return p, ok
}

// AllPairs returns every pool address in creation order.
func (f *Factory) AllPairs() []common.Address {
	out := make([]common.Address, 0, len(f.all))
	for _, p := range f.all {
		out = append(out, p.Address())
	}
	return out
}

func (f *Factory) AllPairsLength() int { return len(f.all) }

// Pools returns every pool in creation order.
func (f *Factory) Pools() []*pool.Pool {
	return append([]*pool.Pool(nil), f.all...)
}

// ComputeAddress predicts the address CreatePair would give (a, b) under
// impl without deploying anything.
func (f *Factory) ComputeAddress(impl, a, b common.Address) (common.Address, error) {
	return ComputeAddress(f.address, impl, a, b)
}

// State captures the factory for persistence. Pool contents are captured
// separately.
func (f *Factory) State() model.FactoryState {
	st := model.FactoryState{
		Address: f.address.Hex(),
		Config: model.FactoryConfig{
			Version:        f.config.Version,
			Owner:          f.config.Owner.Hex(),
			Implementation: f.config.Implementation.Hex(),
			FeeTo:          f.config.FeeTo.Hex(),
			PairSuffix:     f.config.PairSuffix,
		},
	}
	for _, addr := range f.AllPairs() {
		st.Pairs = append(st.Pairs, addr.Hex())
	}
	for _, impl := range f.Implementations() {
		st.Implementations = append(st.Implementations, pool.ImplementationState(impl))
	}
	return st
}

// Restore rebuilds a factory and its pools. pools must hold one state per
// address listed in st.Pairs.
func Restore(host Host, events pool.Emitter, st model.FactoryState, pools []model.PoolState) (*Factory, error) {
	f := New(host, common.HexToAddress(st.Address), common.HexToAddress(st.Config.Owner), events)
	f.config = Config{
		Version:        st.Config.Version,
		Owner:          common.HexToAddress(st.Config.Owner),
		Implementation: common.HexToAddress(st.Config.Implementation),
		FeeTo:          common.HexToAddress(st.Config.FeeTo),
		PairSuffix:     st.Config.PairSuffix,
	}

	for _, implState := range st.Implementations {
		impl, err := pool.ImplementationFromState(implState)
		if err != nil {
			return nil, err
		}
		f.implementations[impl.Address] = impl
		f.implOrder = append(f.implOrder, impl.Address)
	}

	byAddress := make(map[string]model.PoolState, len(pools))
	for _, ps := range pools {
		byAddress[common.HexToAddress(ps.Address).Hex()] = ps
	}
	for _, addr := range st.Pairs {
		ps, ok := byAddress[common.HexToAddress(addr).Hex()]
		if !ok {
			return nil, fmt.Errorf("restore factory: missing state for pool %s", addr)
		}
		p, err := pool.Restore(pool.Config{Host: host, Fees: f, Events: f.events}, ps)
		if err != nil {
			return nil, err
		}
		if err := host.Register(p); err != nil {
			return nil, fmt.Errorf("restore factory: %w", err)
		}
		f.index(p)
	}
	return f, nil
}
