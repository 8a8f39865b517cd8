package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type bufferMetrics struct {
	sharesMinted       *prometheus.CounterVec
	sharesBurned       *prometheus.CounterVec
	conversions        *prometheus.CounterVec
	overflowRejected   prometheus.Counter
	settlementFailures prometheus.Counter
}

var (
	bufferMetricsOnce sync.Once
	bufferRegistry    *bufferMetrics
)

// Buffer returns the metrics registry tracking buffer accounting events.
func Buffer() *bufferMetrics {
	bufferMetricsOnce.Do(func() {
		bufferRegistry = &bufferMetrics{
			sharesMinted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vault",
				Subsystem: "buffer",
				Name:      "shares_minted_total",
				Help:      "Count of share issuances segmented by buffer pair.",
			}, []string{"pair"}),
			sharesBurned: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vault",
				Subsystem: "buffer",
				Name:      "shares_burned_total",
				Help:      "Count of share burns segmented by buffer pair.",
			}, []string{"pair"}),
			conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vault",
				Subsystem: "buffer",
				Name:      "conversions_total",
				Help:      "Count of settled conversions segmented by direction and liquidity source.",
			}, []string{"direction", "source"}),
			overflowRejected: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vault",
				Subsystem: "buffer",
				Name:      "overflow_rejected_total",
				Help:      "Count of balance updates rejected for exceeding the packed field width.",
			}),
			settlementFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vault",
				Subsystem: "buffer",
				Name:      "settlement_failures_total",
				Help:      "Count of adapter calls rejected by settlement verification.",
			}),
		}
		prometheus.MustRegister(
			bufferRegistry.sharesMinted,
			bufferRegistry.sharesBurned,
			bufferRegistry.conversions,
			bufferRegistry.overflowRejected,
			bufferRegistry.settlementFailures,
		)
	})
	return bufferRegistry
}

// RecordSharesMinted increments the mint counter for the supplied buffer pair.
func (m *bufferMetrics) RecordSharesMinted(pair string) {
	if m == nil {
		return
	}
	m.sharesMinted.WithLabelValues(normalizePair(pair)).Inc()
}

// RecordSharesBurned increments the burn counter for the supplied buffer pair.
func (m *bufferMetrics) RecordSharesBurned(pair string) {
	if m == nil {
		return
	}
	m.sharesBurned.WithLabelValues(normalizePair(pair)).Inc()
}

// RecordConversion increments the conversion counter for a settled wrap or
// unwrap.
func (m *bufferMetrics) RecordConversion(direction, source string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(direction, source).Inc()
}

// RecordOverflowRejected counts a balance update aborted by the packed codec.
func (m *bufferMetrics) RecordOverflowRejected() {
	if m == nil {
		return
	}
	m.overflowRejected.Inc()
}

// RecordSettlementFailure counts an adapter call rejected because measured
// balance deltas did not cover the claimed amounts.
func (m *bufferMetrics) RecordSettlementFailure() {
	if m == nil {
		return
	}
	m.settlementFailures.Inc()
}

func normalizePair(pair string) string {
	normalized := strings.TrimSpace(strings.ToUpper(pair))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}
