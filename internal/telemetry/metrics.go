// Package telemetry registers the Prometheus metrics exposed on the debug router.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	pollCycles       prometheus.Counter
	streamsNotified  prometheus.Counter
	dispatchFailures prometheus.Counter

	cycleDuration prometheus.Observer

	ledgerSize   prometheus.Gauge
	watchedGames prometheus.Gauge
)

// Init registers metrics (idempotent). The accessors below no-op until it ran,
// so instrumented code works in any wiring order.
func Init() {
	once.Do(func() {
		pollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "monitor_poll_cycles_total", Help: "Number of completed poll cycles"})
		streamsNotified = promauto.NewCounter(prometheus.CounterOpts{Name: "monitor_streams_notified_total", Help: "Number of streams reported to the chat"})
		dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "monitor_dispatch_failures_total", Help: "Number of message units that failed to send"})
		cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "monitor_cycle_duration_seconds", Help: "Poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		ledgerSize = promauto.NewGauge(prometheus.GaugeOpts{Name: "monitor_ledger_size", Help: "Identity keys in the notification ledger"})
		watchedGames = promauto.NewGauge(prometheus.GaugeOpts{Name: "monitor_watched_games", Help: "Game ids currently watched"})
	})
}

// IncPollCycles counts one completed poll cycle.
func IncPollCycles() {
	if pollCycles != nil {
		pollCycles.Inc()
	}
}

// AddStreamsNotified counts streams reported to the chat.
func AddStreamsNotified(n int) {
	if streamsNotified != nil {
		streamsNotified.Add(float64(n))
	}
}

// IncDispatchFailures counts one message unit that failed to send.
func IncDispatchFailures() {
	if dispatchFailures != nil {
		dispatchFailures.Inc()
	}
}

// ObserveCycleDuration records one poll cycle's wall-clock seconds.
func ObserveCycleDuration(seconds float64) {
	if cycleDuration != nil {
		cycleDuration.Observe(seconds)
	}
}

// SetLedgerSize records the current ledger cardinality.
func SetLedgerSize(n int) {
	if ledgerSize != nil {
		ledgerSize.Set(float64(n))
	}
}

// SetWatchedGames records the current watch list size.
func SetWatchedGames(n int) {
	if watchedGames != nil {
		watchedGames.Set(float64(n))
	}
}
