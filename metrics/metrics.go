// Package metrics exposes the run counters and gauges, and pushes them to a Prometheus
// Pushgateway when one is configured.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds every pricebook metric. A CLI run is short lived, so they are pushed rather
// than scraped.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Outcome of each active instrument.
	QuotesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebook_quotes_total",
			Help: "Instruments reconciled, by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // outcome = "priced" | "missing" | "suppressed" | "invalid"
	)

	// Calls to each quote tier.
	TierAttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebook_tier_attempts_total",
			Help: "Quote tier lookups, by tier and result.",
		},
		[]string{"tier", "result"}, // result = "hit" | "miss"
	)

	StaleQuotesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pricebook_stale_quotes_total",
			Help: "Prices accepted although the provider dated them differently from the run date.",
		},
	)

	RowsWritten = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pricebook_rows_written",
			Help: "Records merged into each table by the last run.",
		},
		[]string{"table"},
	)

	LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricebook_last_run_timestamp",
			Help: "Timestamp (unix seconds) of the last completed run.",
		},
	)

	RunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricebook_run_duration_seconds",
			Help: "Duration of the last run in seconds.",
		},
	)
)

// IncQuote counts an instrument outcome.
func IncQuote(kind, outcome string) { QuotesTotal.WithLabelValues(kind, outcome).Inc() }

// IncTier counts a tier lookup.
func IncTier(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	TierAttemptsTotal.WithLabelValues(tier, result).Inc()
}

// ObserveRun records the end of a run started at start.
func ObserveRun(start time.Time) {
	RunDuration.Set(time.Since(start).Seconds())
	LastRunTimestamp.SetToCurrentTime()
}

// Push sends the registry to the Pushgateway at url under job.
func Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(Registry).PushContext(ctx)
}
