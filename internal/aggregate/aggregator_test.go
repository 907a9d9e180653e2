package aggregate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

const (
	poolAddr  = "0x00000000000000000000000000000000000000Aa"
	otherPool = "0x00000000000000000000000000000000000000Bb"
)

func testPools() map[string]PoolInfo {
	return map[string]PoolInfo{
		poolKey(poolAddr): {FeeNumerator: 3, FeeDenominator: 1000},
	}
}

func ev(ts, block uint64, addr string, name string, data interface{}) model.TypedEvent {
	return model.TypedEvent{
		ChainID:     31337,
		BlockNumber: block,
		Address:     addr,
		EventName:   name,
		Timestamp:   ts,
		Decoded:     data,
	}
}

func swapIn(amount0In, amount1In string) model.SwapEventData {
	return model.SwapEventData{Amount0In: amount0In, Amount1In: amount1In, Amount0Out: "0", Amount1Out: "0"}
}

func TestRunSplitsWindows(t *testing.T) {
	events := []model.TypedEvent{
		ev(1000, 1, poolAddr, model.EventSync, model.SyncEventData{Reserve0: "1000", Reserve1: "1000"}),
		ev(1000, 1, poolAddr, model.EventMint, model.MintEventData{Amount0: "1000", Amount1: "1000"}),
		ev(1050, 2, poolAddr, model.EventSync, model.SyncEventData{Reserve0: "2000", Reserve1: "501"}),
		ev(1050, 2, poolAddr, model.EventSwap, swapIn("1000", "0")),
		ev(1120, 3, poolAddr, model.EventSync, model.SyncEventData{Reserve0: "1001", Reserve1: "2501"}),
		ev(1120, 3, poolAddr, model.EventSwap, swapIn("0", "2000")),
		ev(1130, 4, poolAddr, model.EventTransfer, model.TransferEventData{Value: "5"}),
		ev(1130, 4, otherPool, model.EventSwap, swapIn("7", "0")),
	}

	out, err := NewAggregator(Config{WindowSeconds: 100}, testPools(), nil).Run(events)
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, int64(1000), first.WindowStart.Unix())
	assert.Equal(t, int64(1100), first.WindowEnd.Unix())
	assert.Equal(t, uint64(1), first.SwapCount)
	assert.Equal(t, uint64(1), first.MintCount)
	assert.Equal(t, "1000", first.Volume0)
	assert.Equal(t, "0", first.Volume1)
	assert.Equal(t, "3", first.Fee0)
	assert.Equal(t, "0", first.Fee1)
	require.NotNil(t, first.TVL0)
	assert.Equal(t, "2000", *first.TVL0)
	assert.Equal(t, "501", *first.TVL1)
	require.NotNil(t, first.FeeRate0)
	assert.Equal(t, "0.001500000000000000", *first.FeeRate0)
	require.NotNil(t, first.APR)
	assert.Equal(t, "236.520000000000000000", *first.APR)
	assert.Equal(t, uint64(1), first.FirstBlock)
	assert.Equal(t, uint64(2), first.LastBlock)

	second := out[1]
	assert.Equal(t, int64(1100), second.WindowStart.Unix())
	assert.Equal(t, "2000", second.Volume1)
	assert.Equal(t, "6", second.Fee1)
	assert.Equal(t, "1001", *second.TVL0)
	assert.Equal(t, uint64(3), second.LastBlock)
}

func TestRunCarriesReservesAcrossFrom(t *testing.T) {
	events := []model.TypedEvent{
		ev(1000, 1, poolAddr, model.EventSync, model.SyncEventData{Reserve0: "500", Reserve1: "800"}),
		ev(1000, 1, poolAddr, model.EventSwap, swapIn("50", "0")),
		ev(1200, 2, poolAddr, model.EventSwap, swapIn("4000", "0")),
	}

	out, err := NewAggregator(Config{WindowSeconds: 100, From: 1100}, testPools(), nil).Run(events)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1200), out[0].WindowStart.Unix())
	assert.Equal(t, "4000", out[0].Volume0)
	assert.Equal(t, "12", out[0].Fee0)
	require.NotNil(t, out[0].TVL0)
	assert.Equal(t, "500", *out[0].TVL0)
	assert.Equal(t, "800", *out[0].TVL1)
}

func TestRunWithoutReservesLeavesTVLEmpty(t *testing.T) {
	events := []model.TypedEvent{ev(10, 1, poolAddr, model.EventSwap, swapIn("1000", "0"))}

	out, err := NewAggregator(Config{WindowSeconds: 60}, testPools(), nil).Run(events)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].TVL0)
	assert.Nil(t, out[0].FeeRate0)
	assert.Nil(t, out[0].APR)
	assert.Equal(t, int64(0), out[0].WindowStart.Unix())
}

func TestRunRequiresWindow(t *testing.T) {
	_, err := NewAggregator(Config{}, testPools(), nil).Run(nil)
	require.Error(t, err)
}

func TestPoolsFromPairs(t *testing.T) {
	pairs := []model.Pair{{
		Address:        poolAddr,
		Token0:         "0x0000000000000000000000000000000000000001",
		Token1:         "0x0000000000000000000000000000000000000002",
		FeeNumerator:   25,
		FeeDenominator: 10000,
	}}
	tokens := []model.TokenMeta{{Address: "0x0000000000000000000000000000000000000001", Decimals: 6}}

	pools := PoolsFromPairs(pairs, tokens)
	info, ok := pools[poolKey(poolAddr)]
	require.True(t, ok)
	assert.Equal(t, uint8(6), info.Decimals0)
	assert.Equal(t, uint8(18), info.Decimals1)
	assert.Equal(t, uint64(25), info.FeeNumerator)
}

func TestFormatTokenAmount(t *testing.T) {
	cases := []struct {
		name     string
		value    int64
		decimals uint8
		want     string
	}{
		{name: "zero decimals", value: 1234, decimals: 0, want: "1234"},
		{name: "six decimals", value: 1234567, decimals: 6, want: "1.234567"},
		{name: "negative", value: -5, decimals: 1, want: "-0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatTokenAmount(big.NewInt(tc.value), tc.decimals))
		})
	}
}
