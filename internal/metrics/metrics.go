// Package metrics exposes Prometheus instrumentation for the expense service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records service-level counters and latencies.
type Metrics struct {
	expensesCreated  *prometheus.CounterVec
	assemblyFailures *prometheus.CounterVec
	splitFallbacks   prometheus.Counter
	expenseAmount    prometheus.Histogram
	settlements      prometheus.Counter
	rpcDuration      *prometheus.HistogramVec
}

// New registers the service metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		expensesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenses_created_total",
				Help: "Total number of expenses assembled and stored",
			},
			[]string{"strategy", "type"},
		),
		assemblyFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_assembly_failures_total",
				Help: "Total number of expense submissions rejected during assembly",
			},
			[]string{"reason"},
		),
		splitFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "expense_split_fallbacks_total",
				Help: "Total number of submissions split equally because no split was provided",
			},
		),
		expenseAmount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "expense_amount",
				Help:    "Distribution of stored expense totals",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		settlements: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "settlements_recorded_total",
				Help: "Total number of settlements recorded",
			},
		),
		rpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rpc_duration_milliseconds",
				Help:    "RPC handling duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"procedure", "code"},
		),
	}
}

// ExpenseCreated records a stored expense.
func (m *Metrics) ExpenseCreated(strategy, expenseType string, amount float64) {
	m.expensesCreated.WithLabelValues(strategy, expenseType).Inc()
	m.expenseAmount.Observe(amount)
}

// AssemblyFailed records a rejected submission.
func (m *Metrics) AssemblyFailed(reason string) {
	m.assemblyFailures.WithLabelValues(reason).Inc()
}

// SplitFallback records an equal-split fallback.
func (m *Metrics) SplitFallback() {
	m.splitFallbacks.Inc()
}

// ObserveRPC records the duration of one RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.rpcDuration.WithLabelValues(procedure, code).Observe(float64(d.Milliseconds()))
}

// SettlementRecorded records a stored settlement.
func (m *Metrics) SettlementRecorded() {
	m.settlements.Inc()
}
