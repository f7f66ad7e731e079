package database

import "time"

// Signal status constants
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// SignalRecord is a persisted trade signal and its lifecycle state. The hit
// flags are monotonic: once set they are never reset, which guarantees each
// target fires at most one event over the record's lifetime.
type SignalRecord struct {
	ID         int64      `json:"id"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	EntryA     float64    `json:"entry_a"`
	EntryB     *float64   `json:"entry_b,omitempty"`
	Stop       float64    `json:"stop"`
	TP1        float64    `json:"tp1"`
	TP2        float64    `json:"tp2"`
	TP3        float64    `json:"tp3"`
	Confidence float64    `json:"confidence"`
	Status     string     `json:"status"`
	PnL        *float64   `json:"pnl,omitempty"`
	TP1Hit     bool       `json:"tp1_hit"`
	TP2Hit     bool       `json:"tp2_hit"`
	TP3Hit     bool       `json:"tp3_hit"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// IsLong reports whether the signal is a long position.
func (s *SignalRecord) IsLong() bool {
	return s.Side == "LONG"
}

// SymbolPerformance aggregates closed-signal results for one symbol.
type SymbolPerformance struct {
	Symbol   string  `json:"symbol"`
	Total    int     `json:"total"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	TotalPnL float64 `json:"total_pnl"`
}
