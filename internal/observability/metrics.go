// Package observability exposes Prometheus metrics for the bot.
//
// Primary metrics updated during operation:
//   - bot_signals_total{side}            counts generated signals
//   - bot_signal_exits_total{reason}     exits split by reason (stop_loss|tp3)
//   - bot_tp_hits_total{level}           take-profit level hits
//   - bot_open_signals                   open signal gauge
//   - bot_last_signal_pnl_percent        PnL of the most recently closed signal
//   - bot_scans_total                    completed scan cycles
//   - bot_scan_duration_seconds          duration of the last scan cycle
//   - bot_symbols_skipped_total          symbols skipped during scans
//
// All metrics register in init() and are served at /metrics by the API server.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Signals generated",
		},
		[]string{"side"}, // LONG|SHORT
	)

	signalExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signal_exits_total",
			Help: "Signals closed split by exit reason",
		},
		[]string{"reason"}, // stop_loss|tp3
	)

	tpHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_tp_hits_total",
			Help: "Take-profit hits by level",
		},
		[]string{"level"}, // 1|2|3
	)

	openSignals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_open_signals",
			Help: "Signals currently open",
		},
	)

	lastSignalPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_last_signal_pnl_percent",
			Help: "PnL percent of the most recently closed signal",
		},
	)

	scansCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_scans_total",
			Help: "Completed market scan cycles",
		},
	)

	scanDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_scan_duration_seconds",
			Help: "Duration of the last scan cycle in seconds",
		},
	)

	symbolsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_symbols_skipped_total",
			Help: "Symbols skipped during scans for missing or short data",
		},
	)
)

func init() {
	prometheus.MustRegister(signalsGenerated, signalExits, tpHits)
	prometheus.MustRegister(openSignals, lastSignalPnL)
	prometheus.MustRegister(scansCompleted, scanDuration, symbolsSkipped)
}

func IncSignalGenerated(side string)  { signalsGenerated.WithLabelValues(side).Inc() }
func IncSignalExit(reason string)     { signalExits.WithLabelValues(reason).Inc() }
func IncTPHit(level string)           { tpHits.WithLabelValues(level).Inc() }
func SetOpenSignals(n int)            { openSignals.Set(float64(n)) }
func SetLastSignalPnL(pnl float64)    { lastSignalPnL.Set(pnl) }
func IncScanCompleted()               { scansCompleted.Inc() }
func SetScanDuration(seconds float64) { scanDuration.Set(seconds) }
func AddSymbolsSkipped(n int)         { symbolsSkipped.Add(float64(n)) }
