package signal

import (
	"errors"
	"math"
	"testing"

	"crypto-signal-bot/internal/indicators"
)

// neutralRow returns a row that scores zero on every rule except the MACD
// lean, which always awards one point to a side (bearish when flat).
func neutralRow() indicators.Row {
	return indicators.Row{
		Open:        100,
		Close:       100,
		RSI:         50,
		MACD:        0,
		MACDSignal:  0,
		SMA20:       100,
		SMA50:       100,
		BBUpper:     110,
		BBLower:     90,
		StochK:      50,
		StochD:      50,
		VolumeRatio: 1.0,
		ADX:         25,
	}
}

func frameOf(prev, last indicators.Row) []indicators.Row {
	return []indicators.Row{prev, last}
}

func TestScoreInsufficientData(t *testing.T) {
	s := NewScorer()
	_, err := s.Score([]indicators.Row{neutralRow()})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("Score on one row: err = %v, want ErrInsufficientData", err)
	}
}

func TestScoreRules(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(prev, last *indicators.Row)
		wantBullish int
		wantBearish int
	}{
		{
			name:        "flat market scores only the macd lean",
			mutate:      func(prev, last *indicators.Row) {},
			wantBullish: 0,
			wantBearish: 1,
		},
		{
			name: "oversold rsi",
			mutate: func(prev, last *indicators.Row) {
				last.RSI = 25
			},
			wantBullish: 2,
			wantBearish: 1,
		},
		{
			name: "overbought rsi",
			mutate: func(prev, last *indicators.Row) {
				last.RSI = 75
			},
			wantBullish: 0,
			wantBearish: 3,
		},
		{
			name: "weak rsi lean low",
			mutate: func(prev, last *indicators.Row) {
				last.RSI = 40
			},
			wantBullish: 1,
			wantBearish: 1,
		},
		{
			name: "fresh bullish macd crossover",
			mutate: func(prev, last *indicators.Row) {
				prev.MACD, prev.MACDSignal = -1, 0
				last.MACD, last.MACDSignal = 1, 0
			},
			wantBullish: 2,
			wantBearish: 0,
		},
		{
			name: "macd already leading bullish",
			mutate: func(prev, last *indicators.Row) {
				prev.MACD, prev.MACDSignal = 1, 0
				last.MACD, last.MACDSignal = 1, 0
			},
			wantBullish: 1,
			wantBearish: 0,
		},
		{
			name: "fresh bearish macd crossover",
			mutate: func(prev, last *indicators.Row) {
				prev.MACD, prev.MACDSignal = 1, 0
				last.MACD, last.MACDSignal = -1, 0
			},
			wantBullish: 0,
			wantBearish: 2,
		},
		{
			name: "bullish ma stack",
			mutate: func(prev, last *indicators.Row) {
				last.Close = 110
				last.SMA20 = 105
				last.SMA50 = 100
			},
			wantBullish: 2,
			wantBearish: 1,
		},
		{
			name: "bearish ma stack",
			mutate: func(prev, last *indicators.Row) {
				last.Close = 90
				last.SMA20 = 95
				last.SMA50 = 100
			},
			wantBullish: 0,
			wantBearish: 3,
		},
		{
			name: "close below lower band reads bullish",
			mutate: func(prev, last *indicators.Row) {
				last.Close = 85
				last.BBLower = 90
				// Keep the MA stack neutral at the new price.
				last.SMA20 = 85
				last.SMA50 = 85
			},
			wantBullish: 2,
			wantBearish: 1,
		},
		{
			name: "stochastic reversal out of oversold",
			mutate: func(prev, last *indicators.Row) {
				last.StochK = 15
				last.StochD = 10
			},
			wantBullish: 1,
			wantBearish: 1,
		},
		{
			name: "volume spike on an up bar",
			mutate: func(prev, last *indicators.Row) {
				last.VolumeRatio = 2.0
				last.Open = 99
				last.Close = 100
			},
			wantBullish: 1,
			wantBearish: 1,
		},
		{
			name: "volume spike on a down bar",
			mutate: func(prev, last *indicators.Row) {
				last.VolumeRatio = 2.0
				last.Open = 101
				last.Close = 100
			},
			wantBullish: 0,
			wantBearish: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := neutralRow()
			last := neutralRow()
			tt.mutate(&prev, &last)

			got, err := NewScorer().Score(frameOf(prev, last))
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got.BullishScore != tt.wantBullish || got.BearishScore != tt.wantBearish {
				t.Errorf("scores = %d/%d, want %d/%d",
					got.BullishScore, got.BearishScore, tt.wantBullish, tt.wantBearish)
			}
			if got.NetScore != tt.wantBullish-tt.wantBearish {
				t.Errorf("NetScore = %d, want %d", got.NetScore, tt.wantBullish-tt.wantBearish)
			}
		})
	}
}

func TestScoreConfidence(t *testing.T) {
	prev := neutralRow()
	last := neutralRow()
	// Oversold RSI (+2 bull) against the flat-MACD bearish lean (+1).
	last.RSI = 25

	got, err := NewScorer().Score(frameOf(prev, last))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := 1.0 / 3.0
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, want)
	}
}

func TestScoreNeutralADXSubstitution(t *testing.T) {
	prev := neutralRow()
	last := neutralRow()
	last.ADX = math.NaN()

	got, err := NewScorer().Score(frameOf(prev, last))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got.TrendStrength != 20 {
		t.Errorf("TrendStrength = %v, want the neutral default 20", got.TrendStrength)
	}
}
