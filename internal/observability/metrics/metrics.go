// Package metrics registers Prometheus counters for weighing operations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "padihub_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	receiptsTotal *prometheus.CounterVec

	weighFinalizeTotal   *prometheus.CounterVec
	weighFinalizeLatency *prometheus.HistogramVec

	splitsTotal      prometheus.Counter
	saleAssemblies   *prometheus.CounterVec
	bulkRunsTotal    *prometheus.CounterVec
	bulkReceiptsSeen prometheus.Counter

	sessionsOpen prometheus.Gauge
)

// Init registers all metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		receiptsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "receipts_total",
				Help: "Total receipts created by type",
			},
			[]string{"type"},
		)

		weighFinalizeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "weigh_finalize_total",
				Help: "Total weighing finalizations by result",
			},
			[]string{"result"},
		)
		weighFinalizeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "weigh_finalize_latency_seconds",
				Help:    "Weighing finalization latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		splitsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "receipt_splits_total",
				Help: "Total receipt splits performed",
			},
		)
		saleAssemblies = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sale_assemblies_total",
				Help: "Total sale assemblies by result",
			},
			[]string{"result"},
		)

		bulkRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bulk_runs_total",
				Help: "Total bulk deduction runs by result",
			},
			[]string{"result"},
		)
		bulkReceiptsSeen = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "bulk_receipts_processed_total",
				Help: "Total receipts processed by bulk deduction runs",
			},
		)

		sessionsOpen = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "weigh_sessions_open",
				Help: "Currently open weighing sessions",
			},
		)

		prometheus.MustRegister(
			receiptsTotal,
			weighFinalizeTotal,
			weighFinalizeLatency,
			splitsTotal,
			saleAssemblies,
			bulkRunsTotal,
			bulkReceiptsSeen,
			sessionsOpen,
		)
	})
}

// IncReceipt increments the receipt counter for a type.
func IncReceipt(receiptType string) {
	if receiptsTotal != nil {
		receiptsTotal.WithLabelValues(receiptType).Inc()
	}
}

// ObserveFinalize records finalization latency and result.
func ObserveFinalize(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if weighFinalizeTotal != nil {
		weighFinalizeTotal.WithLabelValues(result).Inc()
	}
	if weighFinalizeLatency != nil {
		weighFinalizeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddSplits increments the split counter.
func AddSplits(count int) {
	if count <= 0 {
		return
	}
	if splitsTotal != nil {
		splitsTotal.Add(float64(count))
	}
}

// IncSaleAssembly increments the sale assembly counter.
func IncSaleAssembly(result string) {
	if result == "" {
		result = resultSuccess
	}
	if saleAssemblies != nil {
		saleAssemblies.WithLabelValues(result).Inc()
	}
}

// ObserveBulkRun records a bulk deduction run.
func ObserveBulkRun(result string, processed int) {
	if result == "" {
		result = resultSuccess
	}
	if bulkRunsTotal != nil {
		bulkRunsTotal.WithLabelValues(result).Inc()
	}
	if bulkReceiptsSeen != nil && processed > 0 {
		bulkReceiptsSeen.Add(float64(processed))
	}
}

// SetOpenSessions sets the open session gauge.
func SetOpenSessions(n int) {
	if sessionsOpen != nil {
		sessionsOpen.Set(float64(n))
	}
}

// Exported result constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
