package amm

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestGetAmountOut(t *testing.T) {
	testCases := []struct {
		name       string
		amountIn   *uint256.Int
		reserveIn  *uint256.Int
		reserveOut *uint256.Int
		want       *uint256.Int
		wantErr    error
	}{
		{
			name:       "small swap against 100/100",
			amountIn:   u(5),
			reserveIn:  u(100),
			reserveOut: u(100),
			// floor(5*997*100 / (100*1000 + 5*997)) = 498500 / 104985
			want: u(4),
		},
		{
			name:       "large reserves",
			amountIn:   u(1_000_000),
			reserveIn:  u(1_000_000_000),
			reserveOut: u(2_000_000_000),
			want:       u(1_992_013),
		},
		{
			name:       "zero input",
			amountIn:   u(0),
			reserveIn:  u(100),
			reserveOut: u(100),
			wantErr:    ErrInsufficientInput,
		},
		{
			name:       "empty reserve",
			amountIn:   u(10),
			reserveIn:  u(0),
			reserveOut: u(100),
			wantErr:    ErrInsufficientLiquidity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetAmountOut(tc.amountIn, tc.reserveIn, tc.reserveOut, DefaultFee)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.Dec(), got.Dec())
		})
	}
}

func TestGetAmountInRoundsUp(t *testing.T) {
	// 100*4*1000 / (96*997) = 400000 / 95712 = 4.17...
	got, err := GetAmountIn(u(4), u(100), u(100), DefaultFee)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Uint64())

	// exact division must not add one
	fee := Fee{Numerator: 0, Denominator: 1}
	got, err = GetAmountIn(u(50), u(100), u(100), fee)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got.Uint64())
}

func TestGetAmountInErrors(t *testing.T) {
	_, err := GetAmountIn(u(0), u(100), u(100), DefaultFee)
	require.ErrorIs(t, err, ErrInsufficientOutput)

	_, err = GetAmountIn(u(100), u(100), u(100), DefaultFee)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = GetAmountIn(u(1), u(0), u(100), DefaultFee)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestRoundTripNeverFavoursCaller(t *testing.T) {
	reserves := [][2]uint64{{100, 100}, {1_000, 37}, {123_456_789, 987_654}, {10, 1_000_000}}
	for _, r := range reserves {
		rIn, rOut := u(r[0]), u(r[1])
		for x := uint64(1); x < 400; x += 7 {
			out, err := GetAmountOut(u(x), rIn, rOut, DefaultFee)
			require.NoError(t, err)
			if !out.IsZero() {
				in, err := GetAmountIn(out, rIn, rOut, DefaultFee)
				require.NoError(t, err)
				assert.False(t, in.Gt(u(x)), "in(out(%d)) = %s against %v", x, in.Dec(), r)
			}

			if x < r[1] {
				in, err := GetAmountIn(u(x), rIn, rOut, DefaultFee)
				require.NoError(t, err)
				back, err := GetAmountOut(in, rIn, rOut, DefaultFee)
				require.NoError(t, err)
				assert.False(t, back.Lt(u(x)), "out(in(%d)) = %s against %v", x, back.Dec(), r)
			}
		}
	}
}

func TestQuote(t *testing.T) {
	got, err := Quote(u(10), u(100), u(250))
	require.NoError(t, err)
	assert.Equal(t, uint64(25), got.Uint64())

	_, err = Quote(u(0), u(100), u(250))
	require.ErrorIs(t, err, ErrValidation)

	_, err = Quote(u(1), u(0), u(250))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestCheckInvariant(t *testing.T) {
	// after swapping 5 in for 4 out against 100/100
	require.NoError(t, CheckInvariant(u(105), u(96), u(5), u(0), u(100), u(100), DefaultFee))

	// taking 5 out for 5 in does not cover the fee
	err := CheckInvariant(u(105), u(95), u(5), u(0), u(100), u(100), DefaultFee)
	require.ErrorIs(t, err, ErrInvariantViolation)
}

func TestSortTokens(t *testing.T) {
	a := common.HexToAddress("0x2000000000000000000000000000000000000000")
	b := common.HexToAddress("0x1000000000000000000000000000000000000000")

	t0, t1, err := SortTokens(a, b)
	require.NoError(t, err)
	assert.Equal(t, b, t0)
	assert.Equal(t, a, t1)

	_, _, err = SortTokens(a, a)
	require.ErrorIs(t, err, ErrIdenticalTokens)
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = SortTokens(common.Address{}, a)
	require.ErrorIs(t, err, ErrZeroToken)
}

func TestEnsureDeadline(t *testing.T) {
	require.NoError(t, EnsureDeadline(100, 100))
	require.NoError(t, EnsureDeadline(101, 100))
	require.ErrorIs(t, EnsureDeadline(99, 100), ErrValidation)
}

func TestFeeValidate(t *testing.T) {
	require.NoError(t, DefaultFee.Validate())
	require.ErrorIs(t, Fee{Numerator: 1, Denominator: 0}.Validate(), ErrInvalidFee)
	require.ErrorIs(t, Fee{Numerator: 5, Denominator: 5}.Validate(), ErrInvalidFee)
}

func TestCheckedArithmetic(t *testing.T) {
	max := new(uint256.Int).SetAllOne()

	_, err := Mul(max, u(2))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = Add(max, u(1))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = Sub(u(1), u(2))
	require.ErrorIs(t, err, ErrOverflow)

	got, err := MulDiv(max, u(3), u(6))
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Rsh(max, 1).Dec(), got.Dec())

	assert.True(t, FitsReserve(MaxReserve))
	assert.False(t, FitsReserve(new(uint256.Int).AddUint64(MaxReserve, 1)))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "validation", Kind(ErrExpired))
	assert.Equal(t, "insufficient_liquidity", Kind(errors.Join(errors.New("hop 1"), ErrInsufficientLiquidity)))
	assert.Equal(t, "other", Kind(errors.New("boom")))
}
