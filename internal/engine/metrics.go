package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   prometheus.Counter
	pairs    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toknswap",
			Subsystem: "engine",
			Name:      "calls_total",
			Help:      "Engine calls by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "toknswap",
			Subsystem: "engine",
			Name:      "call_duration_seconds",
			Help:      "Engine call latency, including the event sink.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"op"}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toknswap",
			Subsystem: "engine",
			Name:      "events_total",
			Help:      "Events written to the sink by committed calls.",
		}),
		pairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "toknswap",
			Subsystem: "engine",
			Name:      "pairs",
			Help:      "Pools created by the factory.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.calls, m.duration, m.events, m.pairs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// resultLabel classifies err for the result label.
func resultLabel(err error) string {
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, token.ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, token.ErrUnknownToken):
		return "unknown_token"
	default:
		return amm.Kind(err)
	}
}
