package chain

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

// NativeAsset keys native balances in the ledger.
var NativeAsset = common.Address{}

// TransferHook runs after an asset moves between accounts. A non-nil error
// fails the transfer.
type TransferHook func(from, to common.Address, amount *uint256.Int) error

type balanceKey struct {
	asset  common.Address
	holder common.Address
}

type allowanceKey struct {
	asset   common.Address
	owner   common.Address
	spender common.Address
}

// State is the journaled host ledger the engine executes against: balances
// of every asset (native included), allowances, token registry, deployer
// nonces and block time. Every mutation appends an undo entry so a whole
// call can be rolled back with RevertToSnapshot.
//
// State is not safe for concurrent use.
type State struct {
	balances   map[balanceKey]*uint256.Int
	supplies   map[common.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	tokens     map[common.Address]token.ERC20
	metas      map[common.Address]model.TokenMeta
	nonces     map[common.Address]uint64
	hooks      map[common.Address]TransferHook
	time       uint64

	journal []func()
}

func NewState() *State {
	return &State{
		balances:   make(map[balanceKey]*uint256.Int),
		supplies:   make(map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		tokens:     make(map[common.Address]token.ERC20),
		metas:      make(map[common.Address]model.TokenMeta),
		nonces:     make(map[common.Address]uint64),
		hooks:      make(map[common.Address]TransferHook),
	}
}

// Record appends undo to the journal. Components with their own fields use
// it to take part in snapshots.
func (s *State) Record(undo func()) {
	s.journal = append(s.journal, undo)
}

// Snapshot returns an identifier for the current journal position.
func (s *State) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot undoes every change recorded after id, newest first.
func (s *State) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		panic(fmt.Sprintf("revision id %d cannot be reverted (journal length %d)", id, len(s.journal)))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:id]
}

// Commit discards the journal. Snapshots taken before Commit become invalid.
func (s *State) Commit() {
	s.journal = s.journal[:0]
}

// JournalLength is the number of undo entries pending.
func (s *State) JournalLength() int {
	return len(s.journal)
}

// Now implements token.Clock.
func (s *State) Now() uint64 {
	return s.time
}

// SetTime moves the block clock. It is not journaled.
func (s *State) SetTime(ts uint64) {
	s.time = ts
}

// NextAddress derives a contract address for deployer the way CREATE does and
// bumps the deployer's nonce.
func (s *State) NextAddress(deployer common.Address) common.Address {
	nonce := s.nonces[deployer]
	s.nonces[deployer] = nonce + 1
	s.Record(func() { s.setNonce(deployer, nonce) })
	return crypto.CreateAddress(deployer, nonce)
}

func (s *State) setNonce(deployer common.Address, nonce uint64) {
	if nonce == 0 {
		delete(s.nonces, deployer)
		return
	}
	s.nonces[deployer] = nonce
}

// Register makes erc20 resolvable by address.
func (s *State) Register(erc20 token.ERC20) error {
	addr := erc20.Address()
	if _, ok := s.tokens[addr]; ok {
		return fmt.Errorf("register token %s: address in use", addr.Hex())
	}
	s.tokens[addr] = erc20
	s.Record(func() { delete(s.tokens, addr) })
	return nil
}

// Token implements token.Resolver.
func (s *State) Token(addr common.Address) (token.ERC20, error) {
	erc20, ok := s.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", token.ErrUnknownToken, addr.Hex())
	}
	return erc20, nil
}

// Tokens lists metadata of deployed and imported tokens, ordered by address.
func (s *State) Tokens() []model.TokenMeta {
	out := make([]model.TokenMeta, 0, len(s.metas))
	for _, meta := range s.metas {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// OnTransfer installs a hook fired after every movement of asset.
func (s *State) OnTransfer(asset common.Address, hook TransferHook) {
	if hook == nil {
		delete(s.hooks, asset)
		return
	}
	s.hooks[asset] = hook
}

// Balance returns a copy of holder's balance of asset.
func (s *State) Balance(asset, holder common.Address) *uint256.Int {
	if v, ok := s.balances[balanceKey{asset, holder}]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

// Supply returns the outstanding amount of asset.
func (s *State) Supply(asset common.Address) *uint256.Int {
	if v, ok := s.supplies[asset]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (s *State) setBalance(asset, holder common.Address, v *uint256.Int) {
	key := balanceKey{asset, holder}
	prev, had := s.balances[key]
	s.Record(func() {
		if had {
			s.balances[key] = prev
		} else {
			delete(s.balances, key)
		}
	})
	if v.IsZero() {
		delete(s.balances, key)
		return
	}
	s.balances[key] = new(uint256.Int).Set(v)
}

func (s *State) setSupply(asset common.Address, v *uint256.Int) {
	prev, had := s.supplies[asset]
	s.Record(func() {
		if had {
			s.supplies[asset] = prev
		} else {
			delete(s.supplies, asset)
		}
	})
	s.supplies[asset] = new(uint256.Int).Set(v)
}

// Mint credits amount of asset to holder and grows its supply.
func (s *State) Mint(asset, holder common.Address, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(s.Supply(asset), amount)
	if overflow {
		return fmt.Errorf("mint %s: supply overflow", asset.Hex())
	}
	s.setSupply(asset, supply)
	s.setBalance(asset, holder, new(uint256.Int).Add(s.Balance(asset, holder), amount))
	return nil
}

// Burn debits amount of asset from holder and shrinks its supply.
func (s *State) Burn(asset, holder common.Address, amount *uint256.Int) error {
	balance := s.Balance(asset, holder)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, burning %s",
			token.ErrInsufficientBalance, holder.Hex(), balance.Dec(), asset.Hex(), amount.Dec())
	}
	s.setBalance(asset, holder, balance.Sub(balance, amount))
	s.setSupply(asset, new(uint256.Int).Sub(s.Supply(asset), amount))
	return nil
}

// Move transfers amount of asset from one holder to another and fires the
// asset's transfer hook.
func (s *State) Move(asset, from, to common.Address, amount *uint256.Int) error {
	balance := s.Balance(asset, from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, moving %s",
			token.ErrInsufficientBalance, from.Hex(), balance.Dec(), asset.Hex(), amount.Dec())
	}
	if from != to {
		s.setBalance(asset, from, balance.Sub(balance, amount))
		s.setBalance(asset, to, new(uint256.Int).Add(s.Balance(asset, to), amount))
	}
	if hook, ok := s.hooks[asset]; ok {
		if err := hook(from, to, amount); err != nil {
			return fmt.Errorf("transfer hook: %w", err)
		}
	}
	return nil
}

// Allowance returns the amount spender may move on owner's behalf.
func (s *State) Allowance(asset, owner, spender common.Address) *uint256.Int {
	if v, ok := s.allowances[allowanceKey{asset, owner, spender}]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (s *State) SetAllowance(asset, owner, spender common.Address, amount *uint256.Int) {
	key := allowanceKey{asset, owner, spender}
	prev, had := s.allowances[key]
	s.Record(func() {
		if had {
			s.allowances[key] = prev
		} else {
			delete(s.allowances, key)
		}
	})
	if amount.IsZero() {
		delete(s.allowances, key)
		return
	}
	s.allowances[key] = new(uint256.Int).Set(amount)
}

// SpendAllowance consumes amount of spender's allowance. The maximum
// uint256 allowance is never decremented.
func (s *State) SpendAllowance(asset, owner, spender common.Address, amount *uint256.Int) error {
	if owner == spender {
		return nil
	}
	allowed := s.Allowance(asset, owner, spender)
	if isInfinite(allowed) {
		return nil
	}
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s may spend %s of %s for %s, needs %s",
			token.ErrInsufficientAllowance, spender.Hex(), allowed.Dec(), asset.Hex(), owner.Hex(), amount.Dec())
	}
	s.SetAllowance(asset, owner, spender, allowed.Sub(allowed, amount))
	return nil
}

func isInfinite(v *uint256.Int) bool {
	return v.Eq(new(uint256.Int).SetAllOne())
}

// NativeBalance implements token.Native.
func (s *State) NativeBalance(holder common.Address) *uint256.Int {
	return s.Balance(NativeAsset, holder)
}

// TransferNative implements token.Native.
func (s *State) TransferNative(from, to common.Address, amount *uint256.Int) error {
	if err := s.Move(NativeAsset, from, to, amount); err != nil {
		return fmt.Errorf("transfer native: %w", err)
	}
	return nil
}

// Fund credits native value to holder out of thin air.
func (s *State) Fund(holder common.Address, amount *uint256.Int) error {
	return s.Mint(NativeAsset, holder, amount)
}

// Export captures the ledger as a serializable record. Tokens whose metadata
// is not held by the state (pool share tokens) are restored by their owners.
func (s *State) Export() model.ChainState {
	out := model.ChainState{
		Time:   s.time,
		Tokens: s.Tokens(),
	}

	for key, v := range s.balances {
		out.Balances = append(out.Balances, model.BalanceEntry{
			Asset:  key.asset.Hex(),
			Holder: key.holder.Hex(),
			Amount: v.Dec(),
		})
	}
	sort.Slice(out.Balances, func(i, j int) bool {
		if out.Balances[i].Asset != out.Balances[j].Asset {
			return out.Balances[i].Asset < out.Balances[j].Asset
		}
		return out.Balances[i].Holder < out.Balances[j].Holder
	})

	for asset, v := range s.supplies {
		out.Supplies = append(out.Supplies, model.SupplyEntry{Asset: asset.Hex(), Amount: v.Dec()})
	}
	sort.Slice(out.Supplies, func(i, j int) bool { return out.Supplies[i].Asset < out.Supplies[j].Asset })

	for key, v := range s.allowances {
		out.Allowances = append(out.Allowances, model.AllowanceEntry{
			Asset:   key.asset.Hex(),
			Owner:   key.owner.Hex(),
			Spender: key.spender.Hex(),
			Amount:  v.Dec(),
		})
	}
	sort.Slice(out.Allowances, func(i, j int) bool {
		a, b := out.Allowances[i], out.Allowances[j]
		if a.Asset != b.Asset {
			return a.Asset < b.Asset
		}
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Spender < b.Spender
	})

	deployers := make([]common.Address, 0, len(s.nonces))
	for d := range s.nonces {
		deployers = append(deployers, d)
	}
	sort.Slice(deployers, func(i, j int) bool { return bytes.Compare(deployers[i][:], deployers[j][:]) < 0 })
	for _, d := range deployers {
		out.Nonces = append(out.Nonces, model.NonceEntry{Deployer: d.Hex(), Nonce: s.nonces[d]})
	}

	return out
}

// Import replaces the ledger with a previously exported record and clears
// the journal.
func (s *State) Import(in model.ChainState) error {
	fresh := NewState()
	fresh.time = in.Time
	fresh.hooks = s.hooks

	for _, b := range in.Balances {
		amount, err := parseAmount(b.Amount)
		if err != nil {
			return fmt.Errorf("import balance %s/%s: %w", b.Asset, b.Holder, err)
		}
		fresh.balances[balanceKey{common.HexToAddress(b.Asset), common.HexToAddress(b.Holder)}] = amount
	}
	for _, sup := range in.Supplies {
		amount, err := parseAmount(sup.Amount)
		if err != nil {
			return fmt.Errorf("import supply %s: %w", sup.Asset, err)
		}
		fresh.supplies[common.HexToAddress(sup.Asset)] = amount
	}
	for _, a := range in.Allowances {
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return fmt.Errorf("import allowance %s/%s: %w", a.Owner, a.Spender, err)
		}
		key := allowanceKey{common.HexToAddress(a.Asset), common.HexToAddress(a.Owner), common.HexToAddress(a.Spender)}
		fresh.allowances[key] = amount
	}
	for _, n := range in.Nonces {
		fresh.nonces[common.HexToAddress(n.Deployer)] = n.Nonce
	}

	*s = *fresh
	for _, meta := range in.Tokens {
		if err := s.attach(meta); err != nil {
			return err
		}
	}
	s.Commit()
	return nil
}

func parseAmount(v string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", v, err)
	}
	return amount, nil
}
