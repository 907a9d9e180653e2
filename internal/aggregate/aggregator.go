package aggregate

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// PoolInfo is what the aggregator needs to know about a pool to price its
// events.
type PoolInfo struct {
	Token0         string
	Token1         string
	Decimals0      uint8
	Decimals1      uint8
	FeeNumerator   uint64
	FeeDenominator uint64
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	// From skips events with an earlier timestamp. Reserves seen before From
	// still seed the TVL of the first window.
	From uint64
}

// Aggregator aggregates typed pool events into window metrics.
type Aggregator struct {
	cfg          Config
	pools        map[string]PoolInfo
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	reserves     map[string][2]*big.Int
}

func NewAggregator(cfg Config, pools map[string]PoolInfo, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		pools:        pools,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		reserves:     make(map[string][2]*big.Int),
	}
}

// PoolsFromPairs builds the pool table from a pair listing, taking token
// decimals from tokens. Unknown tokens count as 18 decimals.
func PoolsFromPairs(pairs []model.Pair, tokens []model.TokenMeta) map[string]PoolInfo {
	decimals := make(map[string]uint8, len(tokens))
	for _, tok := range tokens {
		decimals[poolKey(tok.Address)] = tok.Decimals
	}
	lookup := func(addr string) uint8 {
		if d, ok := decimals[poolKey(addr)]; ok {
			return d
		}
		return 18
	}

	out := make(map[string]PoolInfo, len(pairs))
	for _, p := range pairs {
		out[poolKey(p.Address)] = PoolInfo{
			Token0:         p.Token0,
			Token1:         p.Token1,
			Decimals0:      lookup(p.Token0),
			Decimals1:      lookup(p.Token1),
			FeeNumerator:   p.FeeNumerator,
			FeeDenominator: p.FeeDenominator,
		}
	}
	return out
}

// Run aggregates events, which must be in emission order, and returns one
// metrics row per pool window ordered by window start and pool address.
func (a *Aggregator) Run(events []model.TypedEvent) ([]model.PoolWindowMetrics, error) {
	if a.cfg.WindowSeconds == 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}

	var out []model.PoolWindowMetrics
	var total, skipped, failed int
	for _, event := range events {
		total++
		if !poolEvent(event) {
			skipped++
			continue
		}
		key := poolKey(event.Address)
		pool, ok := a.pools[key]
		if !ok {
			skipped++
			continue
		}

		if event.Timestamp < a.cfg.From {
			if sync, ok := event.Decoded.(model.SyncEventData); ok {
				r0, err0 := parseBigInt(sync.Reserve0)
				r1, err1 := parseBigInt(sync.Reserve1)
				if err0 == nil && err1 == nil {
					a.reserves[key] = [2]*big.Int{r0, r1}
				}
			}
			skipped++
			continue
		}

		start := windowStart(event.Timestamp, a.cfg.WindowSeconds)
		acc := a.accumulators[key]
		if acc != nil && acc.WindowStart != start {
			out = append(out, a.flush(key, acc))
			acc = nil
		}
		if acc == nil {
			prev := a.reserves[key]
			acc = NewAccumulator(event, pool, start, start+a.cfg.WindowSeconds, prev[0], prev[1])
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(event); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", event.Address), zap.String("event", event.EventName))
			continue
		}
	}

	for key, acc := range a.accumulators {
		out = append(out, a.flush(key, acc))
	}
	a.accumulators = make(map[string]*Accumulator)

	sort.Slice(out, func(i, j int) bool {
		if !out[i].WindowStart.Equal(out[j].WindowStart) {
			return out[i].WindowStart.Before(out[j].WindowStart)
		}
		return poolKey(out[i].PoolAddress) < poolKey(out[j].PoolAddress)
	})

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", len(out)),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return out, nil
}

func (a *Aggregator) flush(key string, acc *Accumulator) model.PoolWindowMetrics {
	a.reserves[key] = [2]*big.Int{acc.Reserve0, acc.Reserve1}

	d0, d1 := acc.Pool.Decimals0, acc.Pool.Decimals1
	m := model.PoolWindowMetrics{
		ChainID:        acc.ChainID,
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		MintCount:      acc.MintCount,
		BurnCount:      acc.BurnCount,
		Volume0:        formatTokenAmount(acc.Volume0, d0),
		Volume1:        formatTokenAmount(acc.Volume1, d1),
		Fee0:           formatTokenAmount(acc.Fee0, d0),
		Fee1:           formatTokenAmount(acc.Fee1, d1),
		FirstBlock:     acc.FirstBlock,
		LastBlock:      acc.LastBlock,
	}
	if acc.Reserve0 != nil && acc.Reserve1 != nil {
		tvl0 := formatTokenAmount(acc.Reserve0, d0)
		tvl1 := formatTokenAmount(acc.Reserve1, d1)
		m.TVL0, m.TVL1 = &tvl0, &tvl1
	}
	m.FeeRate0, m.FeeRate1 = computeFeeRates(acc.Fee0, acc.Fee1, acc.Reserve0, acc.Reserve1)
	m.APR = computeAPR(m.FeeRate0, m.FeeRate1, a.cfg.WindowSeconds)
	return m
}

func poolEvent(event model.TypedEvent) bool {
	switch event.EventName {
	case model.EventSwap, model.EventSync, model.EventMint, model.EventBurn:
		return true
	}
	return false
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}
