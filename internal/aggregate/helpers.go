package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// computeFeeRates is the fee of each side as a fraction of that side's
// reserve.
func computeFeeRates(fee0, fee1, reserve0, reserve1 *big.Int) (*string, *string) {
	var feeRate0, feeRate1 *string
	if rate := computeRateFromInt(fee0, reserve0); rate != "" {
		feeRate0 = &rate
	}
	if rate := computeRateFromInt(fee1, reserve1); rate != "" {
		feeRate1 = &rate
	}
	return feeRate0, feeRate1
}

func computeRateFromInt(fee, tvl *big.Int) string {
	if fee == nil || tvl == nil || tvl.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, tvl)
	return rat.FloatString(ratioScale)
}

// computeAPR annualizes the window yield. Both sides of a constant-product
// pool hold equal value, so the yield is the mean of the two fee rates; a
// missing side counts as zero.
func computeAPR(feeRate0, feeRate1 *string, windowSeconds uint64) *string {
	if windowSeconds == 0 || (feeRate0 == nil && feeRate1 == nil) {
		return nil
	}
	sum := new(big.Rat)
	for _, rate := range []*string{feeRate0, feeRate1} {
		if rate == nil {
			continue
		}
		r, ok := new(big.Rat).SetString(*rate)
		if !ok {
			return nil
		}
		sum.Add(sum, r)
	}
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	apr := new(big.Rat).Mul(sum, yearSeconds)
	apr.Quo(apr, big.NewRat(2*int64(windowSeconds), 1))
	val := apr.FloatString(ratioScale)
	return &val
}
