package scanner

import "time"

// ScanResult aggregates the outcome of one scan cycle
type ScanResult struct {
	ScanID           string        `json:"scan_id"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Duration         time.Duration `json:"duration"`
	SymbolsScanned   int           `json:"symbols_scanned"`
	SymbolsSkipped   int           `json:"symbols_skipped"`
	SignalsGenerated int           `json:"signals_generated"`
}

// Config holds scanner configuration
type Config struct {
	Enabled          bool          `json:"enabled"`
	ScanInterval     time.Duration `json:"scan_interval"`
	KlineInterval    string        `json:"kline_interval"`
	LookbackBars     int           `json:"lookback_bars"`
	UniverseSize     int           `json:"universe_size"`
	MaxSignalsPerRun int           `json:"max_signals_per_run"`
	WorkerCount      int           `json:"worker_count"`
}

// DefaultConfig returns the stock scanner settings: a four-hour sweep over
// the top 20 futures pairs on 4h candles.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		ScanInterval:     4 * time.Hour,
		KlineInterval:    "4h",
		LookbackBars:     200,
		UniverseSize:     20,
		MaxSignalsPerRun: 5,
		WorkerCount:      4,
	}
}
