package aggregate

import (
	"fmt"
	"math/big"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	ChainID     uint64
	PoolAddress string
	Pool        PoolInfo
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	MintCount   uint64
	BurnCount   uint64
	Volume0     *big.Int
	Volume1     *big.Int
	Fee0        *big.Int
	Fee1        *big.Int
	Reserve0    *big.Int
	Reserve1    *big.Int
	FirstBlock  uint64
	LastBlock   uint64
}

// NewAccumulator opens a window for the pool that emitted event. reserve0
// and reserve1 carry the pool's reserves over from its previous window and
// may be nil.
func NewAccumulator(event model.TypedEvent, pool PoolInfo, windowStart, windowEnd uint64, reserve0, reserve1 *big.Int) *Accumulator {
	return &Accumulator{
		ChainID:     event.ChainID,
		PoolAddress: event.Address,
		Pool:        pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		FirstBlock:  event.BlockNumber,
		LastBlock:   event.BlockNumber,
	}
}

func (a *Accumulator) AddEvent(event model.TypedEvent) error {
	if event.BlockNumber > a.LastBlock {
		a.LastBlock = event.BlockNumber
	}
	if event.BlockNumber < a.FirstBlock {
		a.FirstBlock = event.BlockNumber
	}

	switch data := event.Decoded.(type) {
	case model.SwapEventData:
		return a.applySwap(data)
	case model.SyncEventData:
		return a.applySync(data)
	case model.MintEventData:
		a.MintCount++
	case model.BurnEventData:
		a.BurnCount++
	}
	return nil
}

// applySwap counts the input side of a swap as volume. The fee is charged
// on the input at the pool's implementation rate.
func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	in0, err := parseBigInt(swap.Amount0In)
	if err != nil {
		return err
	}
	in1, err := parseBigInt(swap.Amount1In)
	if err != nil {
		return err
	}

	a.Volume0.Add(a.Volume0, in0)
	a.Volume1.Add(a.Volume1, in1)
	a.Fee0.Add(a.Fee0, feeFromAmount(in0, a.Pool.FeeNumerator, a.Pool.FeeDenominator))
	a.Fee1.Add(a.Fee1, feeFromAmount(in1, a.Pool.FeeNumerator, a.Pool.FeeDenominator))
	a.SwapCount++
	return nil
}

func (a *Accumulator) applySync(sync model.SyncEventData) error {
	r0, err := parseBigInt(sync.Reserve0)
	if err != nil {
		return err
	}
	r1, err := parseBigInt(sync.Reserve1)
	if err != nil {
		return err
	}
	a.Reserve0, a.Reserve1 = r0, r1
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func feeFromAmount(amountIn *big.Int, numerator, denominator uint64) *big.Int {
	if amountIn == nil || denominator == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amountIn, new(big.Int).SetUint64(numerator))
	return fee.Div(fee, new(big.Int).SetUint64(denominator))
}
