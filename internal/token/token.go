// Package token declares the fungible-token collaborators the engine calls
// into. Implementations live elsewhere (see internal/chain).
package token

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnknownToken          = errors.New("unknown token")
)

// ERC20 is the fungible-token surface used by pools, the router and the
// liquidity manager. Every mutating call names the account acting.
type ERC20 interface {
	Address() common.Address
	Name() string
	Symbol() string
	Decimals() uint8
	TotalSupply() *uint256.Int
	BalanceOf(holder common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Approve(owner, spender common.Address, amount *uint256.Int) error
	Transfer(from, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
}

// WrappedNative is an ERC20 backed one-to-one by the native asset.
type WrappedNative interface {
	ERC20
	// Deposit mints wrapped tokens to from for native value already sent to
	// the token's address.
	Deposit(from common.Address, value *uint256.Int) error
	// Withdraw burns amount from holder and returns native value to holder.
	Withdraw(holder common.Address, amount *uint256.Int) error
}

// Resolver maps a token address to its implementation.
type Resolver interface {
	Token(addr common.Address) (ERC20, error)
}

// Native moves the chain's native asset between accounts.
type Native interface {
	NativeBalance(holder common.Address) *uint256.Int
	TransferNative(from, to common.Address, amount *uint256.Int) error
}

// Clock reports the current block time in unix seconds.
type Clock interface {
	Now() uint64
}
