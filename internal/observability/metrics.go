// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Feed metrics
	TradesProcessed prometheus.Counter
	TradesRejected  *prometheus.CounterVec
	FeedReconnects  prometheus.Counter
	MessageLatency  prometheus.Histogram

	// Aggregation metrics
	SnapshotsComputed prometheus.Counter
	TrackedMints      prometheus.Gauge

	// Rule engine metrics
	ActiveRules   prometheus.Gauge
	RuleReloads   *prometheus.CounterVec
	RulesExcluded prometheus.Counter
	TriggersFired prometheus.Counter

	// Persistence metrics
	SinkErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "signal_engine"
	}

	return &Metrics{
		TradesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "trades_processed_total",
			Help:      "Total number of trades parsed and ingested",
		}),
		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "trades_rejected_total",
			Help:      "Total number of feed messages dropped by reason",
		}, []string{"reason"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect attempts",
		}),
		MessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "message_handling_seconds",
			Help:      "Time spent handling one feed message end to end",
			Buckets:   prometheus.DefBuckets,
		}),

		SnapshotsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "snapshots_computed_total",
			Help:      "Total number of stat snapshots computed",
		}),
		TrackedMints: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "tracked_mints",
			Help:      "Number of mints with window state",
		}),

		ActiveRules: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "active_rules",
			Help:      "Number of rules in the active set",
		}),
		RuleReloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "reloads_total",
			Help:      "Total number of rule reload cycles by status",
		}, []string{"status"}),
		RulesExcluded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "excluded_total",
			Help:      "Total number of rules excluded for unparseable expressions",
		}),
		TriggersFired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "triggers_fired_total",
			Help:      "Total number of rule triggers fired post-cooldown",
		}),

		SinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "sink_errors_total",
			Help:      "Total number of background persistence failures",
		}, []string{"store", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTradeProcessed increments the trades processed counter.
func RecordTradeProcessed() {
	DefaultMetrics.TradesProcessed.Inc()
}

// RecordTradeRejected records a dropped feed message.
func RecordTradeRejected(reason string) {
	DefaultMetrics.TradesRejected.WithLabelValues(reason).Inc()
}

// RecordReconnect increments the feed reconnect counter.
func RecordReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// ObserveMessageLatency records end-to-end handling time for one message.
func ObserveMessageLatency(seconds float64) {
	DefaultMetrics.MessageLatency.Observe(seconds)
}

// RecordSnapshotComputed increments the snapshots computed counter.
func RecordSnapshotComputed() {
	DefaultMetrics.SnapshotsComputed.Inc()
}

// UpdateTrackedMints updates the tracked mints gauge.
func UpdateTrackedMints(n int) {
	DefaultMetrics.TrackedMints.Set(float64(n))
}

// RecordRuleReload records a reload cycle outcome and active set size.
func RecordRuleReload(status string, activeRules int) {
	DefaultMetrics.RuleReloads.WithLabelValues(status).Inc()
	if status == "ok" {
		DefaultMetrics.ActiveRules.Set(float64(activeRules))
	}
}

// RecordRuleExcluded increments the excluded rules counter.
func RecordRuleExcluded() {
	DefaultMetrics.RulesExcluded.Inc()
}

// RecordTriggerFired increments the triggers fired counter.
func RecordTriggerFired() {
	DefaultMetrics.TriggersFired.Inc()
}

// RecordSinkError records a background persistence failure.
func RecordSinkError(store, operation string) {
	DefaultMetrics.SinkErrors.WithLabelValues(store, operation).Inc()
}
