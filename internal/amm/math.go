package amm

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MinimumShares is locked to the zero address on a pool's first mint.
const MinimumShares = 1000

// MaxReserve is the largest value a pool reserve may hold (2^112 - 1).
var MaxReserve = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 112), uint256.NewInt(1))

// Fee is a swap fee rate expressed as Numerator/Denominator of the input.
type Fee struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultFee is 0.3%.
var DefaultFee = Fee{Numerator: 3, Denominator: 1000}

// Validate reports whether the fee is a proper fraction.
func (f Fee) Validate() error {
	if f.Denominator == 0 || f.Numerator >= f.Denominator {
		return fmt.Errorf("%w: %d/%d", ErrInvalidFee, f.Numerator, f.Denominator)
	}
	return nil
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// retained is the fraction of the input that survives the fee (D - N).
func (f Fee) retained() *uint256.Int {
	return uint256.NewInt(f.Denominator - f.Numerator)
}

// SortTokens returns a and b in canonical (byte) order.
func SortTokens(a, b common.Address) (common.Address, common.Address, error) {
	if a == b {
		return common.Address{}, common.Address{}, ErrIdenticalTokens
	}
	token0, token1 := a, b
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		token0, token1 = b, a
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroToken
	}
	return token0, token1, nil
}

// EnsureDeadline fails with ErrExpired when now is past deadline.
func EnsureDeadline(deadline, now uint64) error {
	if deadline < now {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, now)
	}
	return nil
}

// GetAmountOut returns the maximum output for amountIn against the given
// reserves, rounded down.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, fee Fee) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrInsufficientInput
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	amountInWithFee, err := Mul(amountIn, fee.retained())
	if err != nil {
		return nil, err
	}
	numerator, err := Mul(amountInWithFee, reserveOut)
	if err != nil {
		return nil, err
	}
	denominator, err := Mul(reserveIn, uint256.NewInt(fee.Denominator))
	if err != nil {
		return nil, err
	}
	if denominator, err = Add(denominator, amountInWithFee); err != nil {
		return nil, err
	}

	return new(uint256.Int).Div(numerator, denominator), nil
}

// GetAmountIn returns the minimum input that yields at least amountOut
// against the given reserves. The quotient is rounded up, so
// GetAmountIn(GetAmountOut(x)) never exceeds x.
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, fee Fee) (*uint256.Int, error) {
	if amountOut == nil || amountOut.IsZero() {
		return nil, ErrInsufficientOutput
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	if !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("%w: output %s exceeds reserve %s", ErrInsufficientLiquidity, amountOut.Dec(), reserveOut.Dec())
	}

	numerator, err := Mul(reserveIn, amountOut)
	if err != nil {
		return nil, err
	}
	if numerator, err = Mul(numerator, uint256.NewInt(fee.Denominator)); err != nil {
		return nil, err
	}
	denominator, err := Mul(new(uint256.Int).Sub(reserveOut, amountOut), fee.retained())
	if err != nil {
		return nil, err
	}

	quotient, remainder := new(uint256.Int).DivMod(numerator, denominator, new(uint256.Int))
	if !remainder.IsZero() {
		quotient.AddUint64(quotient, 1)
	}
	return quotient, nil
}

// Quote returns the amount of B equal in value to amountA at the ratio
// reserveB/reserveA, rounded down.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || amountA.IsZero() {
		return nil, ErrInsufficientInput
	}
	if reserveA == nil || reserveB == nil || reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	return MulDiv(amountA, reserveB, reserveA)
}

// CheckInvariant verifies the fee-adjusted constant product after a swap:
//
//	(b0*D - in0*N) * (b1*D - in1*N) >= r0 * r1 * D^2
//
// The products are evaluated in math/big so no intermediate can overflow.
func CheckInvariant(balance0, balance1, amount0In, amount1In, reserve0, reserve1 *uint256.Int, fee Fee) error {
	d := new(big.Int).SetUint64(fee.Denominator)
	n := new(big.Int).SetUint64(fee.Numerator)

	adjusted := func(balance, amountIn *uint256.Int) *big.Int {
		v := new(big.Int).Mul(balance.ToBig(), d)
		return v.Sub(v, new(big.Int).Mul(amountIn.ToBig(), n))
	}

	left := new(big.Int).Mul(adjusted(balance0, amount0In), adjusted(balance1, amount1In))
	right := new(big.Int).Mul(reserve0.ToBig(), reserve1.ToBig())
	right.Mul(right, new(big.Int).Mul(d, d))

	if left.Cmp(right) < 0 {
		return ErrInvariantViolation
	}
	return nil
}

// Mul returns x*y or ErrOverflow.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// Add returns x+y or ErrOverflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// Sub returns x-y or ErrOverflow when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// MulDiv returns floor(x*y/d). The product is taken at 512 bits, so only a
// quotient that does not fit 256 bits overflows.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrOverflow)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x.Dec(), y.Dec(), d.Dec())
	}
	return z, nil
}

// Min returns the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x
	}
	return y
}

// FitsReserve reports whether v can be stored as a reserve.
func FitsReserve(v *uint256.Int) bool {
	return !v.Gt(MaxReserve)
}
