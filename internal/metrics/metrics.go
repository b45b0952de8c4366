// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal    *prometheus.CounterVec
	retriesExhaustedTotal prometheus.Counter
	pagesScannedTotal     prometheus.Counter
	lessonsTotal          *prometheus.CounterVec
	runsTotal             *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lessons_fetch_attempts_total",
				Help: "Total page fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		retriesExhaustedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lessons_fetch_retries_exhausted_total",
				Help: "Total fetches that failed after exhausting the retry budget.",
			},
		)

		pagesScannedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lessons_pages_scanned_total",
				Help: "Total listing pages scanned.",
			},
		)

		lessonsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lessons_records_total",
				Help: "Total item URLs processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lessons_runs_total",
				Help: "Total crawl runs, labeled by final status.",
			},
			[]string{"status"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt records one fetch attempt with result "ok" or "error".
func ObserveFetchAttempt(result string) {
	fetchAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveRetriesExhausted records a fetch that used up its whole budget.
func ObserveRetriesExhausted() {
	retriesExhaustedTotal.Inc()
}

// ObservePageScanned records one scanned listing page.
func ObservePageScanned() {
	pagesScannedTotal.Inc()
}

// ObserveLesson records one processed item URL with outcome
// "added", "skipped" or "failed".
func ObserveLesson(outcome string) {
	lessonsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun records a finished run with status "completed" or "failed".
func ObserveRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}
