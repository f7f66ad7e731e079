package tracker

import (
	"time"

	"crypto-signal-bot/internal/database"
)

// EventType identifies a lifecycle transition of a tracked signal.
type EventType string

const (
	EventStopLoss EventType = "STOP_LOSS"
	EventTP1      EventType = "TP1"
	EventTP2      EventType = "TP2"
	EventTP3Full  EventType = "TP3_FULL"
)

// Event is one stop or take-profit transition. Signal is a snapshot of the
// record at the time of the check, Price the market price that triggered the
// transition, and PnL the realized percentage computed against the level
// price and the weighted entry.
type Event struct {
	Type   EventType              `json:"type"`
	Signal *database.SignalRecord `json:"signal"`
	Price  float64                `json:"price"`
	PnL    float64                `json:"pnl"`
	At     time.Time              `json:"at"`
}

// Closes reports whether this event type terminates the position.
func (e *Event) Closes() bool {
	return e.Type == EventStopLoss || e.Type == EventTP3Full
}
