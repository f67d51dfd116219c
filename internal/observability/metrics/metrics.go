package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures ledger and settlement health signals.
type Metrics struct {
	earningsCreated      *prometheus.CounterVec
	earningsPromoted     prometheus.Counter
	withdrawalRequests   *prometheus.CounterVec
	withdrawalSettled    *prometheus.CounterVec
	allocationSplits     prometheus.Counter
	allocationDuration   prometheus.Histogram
	notificationFailures prometheus.Counter
	commissionFallbacks  prometheus.Counter
}

var (
	once     sync.Once
	instance *Metrics
)

// New returns the singleton ledger metrics registry. Instruments are
// registered once on the default prometheus registerer so repeated fx
// graphs (tests) do not collide.
func New() *Metrics {
	once.Do(func() {
		m := &Metrics{
			earningsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "urbanease_earnings_created_total",
				Help: "Provider earning records created, by source booking status path.",
			}, []string{"trigger"}),
			earningsPromoted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "urbanease_earnings_promoted_total",
				Help: "Earnings promoted pending->available by maturation sweeps.",
			}),
			withdrawalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "urbanease_withdrawal_requests_total",
				Help: "Withdrawal requests, by outcome.",
			}, []string{"outcome"}),
			withdrawalSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "urbanease_withdrawals_settled_total",
				Help: "Withdrawals finalized by an administrator, by decision.",
			}, []string{"decision"}),
			allocationSplits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "urbanease_allocation_splits_total",
				Help: "Earning entries split during withdrawal allocation.",
			}),
			allocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "urbanease_allocation_duration_seconds",
				Help:    "Withdrawal allocation transaction duration.",
				Buckets: prometheus.DefBuckets,
			}),
			notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "urbanease_notification_failures_total",
				Help: "Provider notifications that failed to send.",
			}),
			commissionFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "urbanease_commission_fallbacks_total",
				Help: "Commission resolutions that fell back to the default rate.",
			}),
		}

		prometheus.MustRegister(
			m.earningsCreated,
			m.earningsPromoted,
			m.withdrawalRequests,
			m.withdrawalSettled,
			m.allocationSplits,
			m.allocationDuration,
			m.notificationFailures,
			m.commissionFallbacks,
		)
		instance = m
	})
	return instance
}

func (m *Metrics) RecordEarningCreated(trigger string) {
	if m == nil {
		return
	}
	m.earningsCreated.WithLabelValues(trigger).Inc()
}

func (m *Metrics) RecordEarningsPromoted(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.earningsPromoted.Add(float64(count))
}

func (m *Metrics) RecordWithdrawalRequest(outcome string) {
	if m == nil {
		return
	}
	m.withdrawalRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordWithdrawalSettled(decision string) {
	if m == nil {
		return
	}
	m.withdrawalSettled.WithLabelValues(decision).Inc()
}

func (m *Metrics) RecordAllocationSplit() {
	if m == nil {
		return
	}
	m.allocationSplits.Inc()
}

func (m *Metrics) ObserveAllocationDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.allocationDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordNotificationFailure() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}

func (m *Metrics) RecordCommissionFallback() {
	if m == nil {
		return
	}
	m.commissionFallbacks.Inc()
}
