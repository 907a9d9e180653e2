package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

// Token kinds stored in TokenMeta.Kind.
const (
	KindERC20         = "erc20"
	KindWrappedNative = "wrapped_native"
)

// Token is an ERC20 whose ledger is the host State.
type Token struct {
	state *State
	meta  model.TokenMeta
	addr  common.Address
}

var _ token.ERC20 = (*Token)(nil)

// DeployToken creates a token at the next CREATE address of deployer.
func (s *State) DeployToken(deployer common.Address, name, symbol string, decimals uint8) (*Token, error) {
	addr := s.NextAddress(deployer)
	meta := model.TokenMeta{
		Address:  addr.Hex(),
		Decimals: decimals,
		Symbol:   symbol,
		Name:     name,
		Kind:     KindERC20,
	}
	if err := s.attach(meta); err != nil {
		return nil, err
	}
	tok, _ := s.tokens[addr].(*Token)
	return tok, nil
}

// DeployWrappedNative creates the wrapped-native token at the next CREATE
// address of deployer.
func (s *State) DeployWrappedNative(deployer common.Address, name, symbol string) (*Wrapped, error) {
	addr := s.NextAddress(deployer)
	meta := model.TokenMeta{
		Address:  addr.Hex(),
		Decimals: 18,
		Symbol:   symbol,
		Name:     name,
		Kind:     KindWrappedNative,
	}
	if err := s.attach(meta); err != nil {
		return nil, err
	}
	w, _ := s.tokens[addr].(*Wrapped)
	return w, nil
}

// ImportToken registers a token at a fixed address, typically with metadata
// fetched from a live chain.
func (s *State) ImportToken(meta model.TokenMeta) (*Token, error) {
	if meta.Kind == "" {
		meta.Kind = KindERC20
	}
	if meta.Kind != KindERC20 {
		return nil, fmt.Errorf("import token %s: unsupported kind %q", meta.Address, meta.Kind)
	}
	if !common.IsHexAddress(meta.Address) {
		return nil, fmt.Errorf("import token: invalid address %q", meta.Address)
	}
	meta.Address = common.HexToAddress(meta.Address).Hex()
	if err := s.attach(meta); err != nil {
		return nil, err
	}
	tok, _ := s.tokens[common.HexToAddress(meta.Address)].(*Token)
	return tok, nil
}

func (s *State) attach(meta model.TokenMeta) error {
	addr := common.HexToAddress(meta.Address)
	base := &Token{state: s, meta: meta, addr: addr}

	var erc20 token.ERC20
	switch meta.Kind {
	case KindERC20, "":
		erc20 = base
	case KindWrappedNative:
		erc20 = &Wrapped{Token: base}
	default:
		return fmt.Errorf("attach token %s: unknown kind %q", meta.Address, meta.Kind)
	}

	if err := s.Register(erc20); err != nil {
		return err
	}
	s.metas[addr] = meta
	s.Record(func() { delete(s.metas, addr) })
	return nil
}

func (t *Token) Address() common.Address { return t.addr }
func (t *Token) Name() string            { return t.meta.Name }
func (t *Token) Symbol() string          { return t.meta.Symbol }
func (t *Token) Decimals() uint8         { return t.meta.Decimals }
func (t *Token) Meta() model.TokenMeta   { return t.meta }

func (t *Token) TotalSupply() *uint256.Int {
	return t.state.Supply(t.addr)
}

func (t *Token) BalanceOf(holder common.Address) *uint256.Int {
	return t.state.Balance(t.addr, holder)
}

func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	return t.state.Allowance(t.addr, owner, spender)
}

func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) error {
	t.state.SetAllowance(t.addr, owner, spender, amount)
	return nil
}

func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	if err := t.state.Move(t.addr, from, to, amount); err != nil {
		return fmt.Errorf("%s transfer: %w", t.meta.Symbol, err)
	}
	return nil
}

func (t *Token) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	if err := t.state.SpendAllowance(t.addr, from, spender, amount); err != nil {
		return fmt.Errorf("%s transferFrom: %w", t.meta.Symbol, err)
	}
	return t.Transfer(from, to, amount)
}

// Mint is the test-token faucet.
func (t *Token) Mint(to common.Address, amount *uint256.Int) error {
	return t.state.Mint(t.addr, to, amount)
}

// Wrapped is the wrapped-native token. Its own address holds the native
// value backing the supply.
type Wrapped struct {
	*Token
}

var _ token.WrappedNative = (*Wrapped)(nil)

// Deposit moves value of native asset from from into the wrapper and mints
// the same amount of wrapped tokens to from.
func (w *Wrapped) Deposit(from common.Address, value *uint256.Int) error {
	if err := w.state.TransferNative(from, w.addr, value); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	return w.state.Mint(w.addr, from, value)
}

// Withdraw burns amount of holder's wrapped tokens and pays the native value
// back to holder.
func (w *Wrapped) Withdraw(holder common.Address, amount *uint256.Int) error {
	if err := w.state.Burn(w.addr, holder, amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	if err := w.state.TransferNative(w.addr, holder, amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	return nil
}
