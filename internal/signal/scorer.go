package signal

import (
	"math"

	"crypto-signal-bot/internal/indicators"
)

// Point weights of the scoring rules.
const (
	strongSignalPoints = 2
	weakSignalPoints   = 1

	rsiOversold   = 30
	rsiOverbought = 70
	rsiWeakLow    = 45
	rsiWeakHigh   = 55

	stochOversold   = 20
	stochOverbought = 80

	volumeSpikeRatio = 1.5

	// neutralTrendStrength substitutes for an unavailable ADX reading.
	neutralTrendStrength = 20
)

// Scorer computes a deterministic bullish/bearish point total from the most
// recent two rows of a feature frame.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates the scoring rules against the last two rows of the frame.
// It returns ErrInsufficientData when fewer than two rows are available.
func (s *Scorer) Score(frame []indicators.Row) (ScoreResult, error) {
	if len(frame) < 2 {
		return ScoreResult{}, ErrInsufficientData
	}

	last := frame[len(frame)-1]
	prev := frame[len(frame)-2]

	bullish := 0
	bearish := 0

	// RSI zones: extremes score double, the lean zones score single.
	switch {
	case last.RSI < rsiOversold:
		bullish += strongSignalPoints
	case last.RSI > rsiOverbought:
		bearish += strongSignalPoints
	case last.RSI < rsiWeakLow:
		bullish += weakSignalPoints
	case last.RSI > rsiWeakHigh:
		bearish += weakSignalPoints
	}

	// MACD vs signal line: a fresh crossover scores double, otherwise the
	// side MACD currently leads scores single.
	switch {
	case last.MACD > last.MACDSignal && prev.MACD <= prev.MACDSignal:
		bullish += strongSignalPoints
	case last.MACD < last.MACDSignal && prev.MACD >= prev.MACDSignal:
		bearish += strongSignalPoints
	case last.MACD > last.MACDSignal:
		bullish += weakSignalPoints
	default:
		bearish += weakSignalPoints
	}

	// Moving-average stack.
	if last.Close > last.SMA20 && last.SMA20 > last.SMA50 {
		bullish += strongSignalPoints
	} else if last.Close < last.SMA20 && last.SMA20 < last.SMA50 {
		bearish += strongSignalPoints
	}

	// Bollinger breakout, read as mean reversion.
	if last.Close < last.BBLower {
		bullish += strongSignalPoints
	} else if last.Close > last.BBUpper {
		bearish += strongSignalPoints
	}

	// Stochastic reversal out of an extreme zone.
	if last.StochK < stochOversold && last.StochK > last.StochD {
		bullish += weakSignalPoints
	} else if last.StochK > stochOverbought && last.StochK < last.StochD {
		bearish += weakSignalPoints
	}

	// Volume confirmation in the bar's own direction.
	if last.VolumeRatio > volumeSpikeRatio {
		if last.Close > last.Open {
			bullish += weakSignalPoints
		} else {
			bearish += weakSignalPoints
		}
	}

	trendStrength := last.ADX
	if math.IsNaN(trendStrength) {
		trendStrength = neutralTrendStrength
	}

	total := bullish + bearish
	if total < 1 {
		total = 1
	}

	return ScoreResult{
		BullishScore:  bullish,
		BearishScore:  bearish,
		TrendStrength: trendStrength,
		NetScore:      bullish - bearish,
		Confidence:    math.Abs(float64(bullish-bearish)) / float64(total),
	}, nil
}
