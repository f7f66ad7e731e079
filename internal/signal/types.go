// Package signal contains the rule-based scorer and the signal builder that
// fuses technical scoring with the ML prediction into concrete trade levels.
package signal

import "errors"

// ErrInsufficientData indicates the feature frame is too short to score.
// Callers treat it as "no signal, skip".
var ErrInsufficientData = errors.New("insufficient data for scoring")

// Side is the trade direction of a signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ScoreResult holds the rule-based point totals for one frame.
type ScoreResult struct {
	BullishScore  int
	BearishScore  int
	TrendStrength float64
	NetScore      int
	Confidence    float64
}

// Prediction is the ML classifier's directional read for one frame.
// Direction is +1 (up), -1 (down) or 0 (unknown).
type Prediction struct {
	Direction  int
	Confidence float64
}

// Signal is a fully constructed trade signal. EntryB is nil when averaging
// is disabled.
type Signal struct {
	Symbol     string
	Side       Side
	EntryA     float64
	EntryB     *float64
	Stop       float64
	TP1        float64
	TP2        float64
	TP3        float64
	Confidence float64
}
