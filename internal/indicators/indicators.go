// Package indicators turns raw candlestick history into a feature frame:
// time-ordered rows carrying OHLCV plus derived trend, momentum, volatility
// and volume indicators. Warm-up rows that lack enough history for an
// indicator carry NaN and are dropped by Attach before decisioning.
package indicators

import (
	"math"
	"time"

	"crypto-signal-bot/internal/binance"
)

// Default indicator periods.
const (
	RSIPeriod        = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	StochPeriod      = 14
	StochSignal      = 3
	BBPeriod         = 20
	BBStdDev         = 2.0
	ATRPeriod        = 14
	ADXPeriod        = 14
	VolumeSMAPeriod  = 20
)

// Row is a single bar extended with indicator values.
type Row struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64

	SMA10 float64
	SMA20 float64
	SMA50 float64
	EMA12 float64
	EMA26 float64

	MACD       float64
	MACDSignal float64
	MACDHist   float64

	RSI    float64
	StochK float64
	StochD float64

	BBUpper  float64
	BBMiddle float64
	BBLower  float64
	BBPctB   float64

	ATR        float64
	ATRPercent float64
	ADX        float64

	VolumeSMA   float64
	VolumeRatio float64
}

// Attach computes all indicator series over the given klines and returns the
// rows where every field (ADX excepted, see below) resolved to a real value.
// ADX needs the longest warm-up of the set; a row whose ADX is still NaN is
// kept, and consumers fall back to a neutral trend-strength reading.
func Attach(klines []binance.Kline) []Row {
	n := len(klines)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, k := range klines {
		closes[i] = k.Close
		highs[i] = k.High
		lows[i] = k.Low
		volumes[i] = k.Volume
	}

	sma10 := SMA(closes, 10)
	sma20 := SMA(closes, 20)
	sma50 := SMA(closes, 50)
	ema12 := EMA(closes, MACDFastPeriod)
	ema26 := EMA(closes, MACDSlowPeriod)
	macd, macdSignal, macdHist := MACD(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	rsi := RSI(closes, RSIPeriod)
	stochK, stochD := Stochastic(highs, lows, closes, StochPeriod, StochSignal)
	bbUpper, bbMiddle, bbLower := BollingerBands(closes, BBPeriod, BBStdDev)
	atr := ATR(highs, lows, closes, ATRPeriod)
	adx := ADX(highs, lows, closes, ADXPeriod)
	volSMA := SMA(volumes, VolumeSMAPeriod)

	rows := make([]Row, 0, n)
	for i, k := range klines {
		r := Row{
			OpenTime:   time.UnixMilli(k.OpenTime),
			Open:       k.Open,
			High:       k.High,
			Low:        k.Low,
			Close:      k.Close,
			Volume:     k.Volume,
			SMA10:      sma10[i],
			SMA20:      sma20[i],
			SMA50:      sma50[i],
			EMA12:      ema12[i],
			EMA26:      ema26[i],
			MACD:       macd[i],
			MACDSignal: macdSignal[i],
			MACDHist:   macdHist[i],
			RSI:        rsi[i],
			StochK:     stochK[i],
			StochD:     stochD[i],
			BBUpper:    bbUpper[i],
			BBMiddle:   bbMiddle[i],
			BBLower:    bbLower[i],
			ATR:        atr[i],
			ADX:        adx[i],
			VolumeSMA:  volSMA[i],
		}

		if bandWidth := r.BBUpper - r.BBLower; bandWidth != 0 {
			r.BBPctB = (k.Close - r.BBLower) / bandWidth
		} else {
			r.BBPctB = math.NaN()
		}
		if k.Close != 0 {
			r.ATRPercent = r.ATR / k.Close * 100
		} else {
			r.ATRPercent = math.NaN()
		}
		if r.VolumeSMA != 0 {
			r.VolumeRatio = k.Volume / r.VolumeSMA
		} else {
			r.VolumeRatio = math.NaN()
		}

		if r.complete() {
			rows = append(rows, r)
		}
	}
	return rows
}

// complete reports whether every decision-relevant field holds a real value.
func (r Row) complete() bool {
	for _, v := range []float64{
		r.SMA10, r.SMA20, r.SMA50, r.EMA12, r.EMA26,
		r.MACD, r.MACDSignal, r.MACDHist,
		r.RSI, r.StochK, r.StochD,
		r.BBUpper, r.BBMiddle, r.BBLower, r.BBPctB,
		r.ATR, r.ATRPercent,
		r.VolumeSMA, r.VolumeRatio,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SMA returns the simple moving average series. Positions without enough
// history are NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the exponential moving average series seeded with an SMA.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	n := len(values)
	macd = nanSeries(n)
	signalLine = nanSeries(n)
	hist = nanSeries(n)

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	for i := 0; i < n; i++ {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// Signal line is an EMA over the defined portion of the MACD line.
	start := slow - 1
	if start >= n {
		return macd, signalLine, hist
	}
	sigPart := EMA(macd[start:], signal)
	for i, v := range sigPart {
		signalLine[start+i] = v
	}
	for i := 0; i < n; i++ {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signalLine[i]) {
			hist[i] = macd[i] - signalLine[i]
		}
	}
	return macd, signalLine, hist
}

// RSI returns the Wilder-smoothed relative strength index series.
func RSI(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Stochastic returns the fast %K and its %D signal line.
func Stochastic(highs, lows, closes []float64, period, signal int) (k, d []float64) {
	n := len(closes)
	k = nanSeries(n)
	if period <= 0 || n < period {
		return k, nanSeries(n)
	}
	for i := period - 1; i < n; i++ {
		hh := highs[i]
		ll := lows[i]
		for j := i - period + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = (closes[i] - ll) / (hh - ll) * 100
	}

	d = nanSeries(n)
	start := period - 1
	dPart := SMA(k[start:], signal)
	for i, v := range dPart {
		d[start+i] = v
	}
	return k, d
}

// BollingerBands returns the upper, middle and lower bands.
func BollingerBands(values []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	n := len(values)
	middle = SMA(values, period)
	upper = nanSeries(n)
	lower = nanSeries(n)
	if period <= 0 || n < period {
		return upper, middle, lower
	}
	for i := period - 1; i < n; i++ {
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			diff := values[j] - middle[i]
			variance += diff * diff
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + stdDev*sd
		lower[i] = middle[i] - stdDev*sd
	}
	return upper, middle, lower
}

// ATR returns the Wilder-smoothed average true range series.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSeries(n)
	if period <= 0 || n < period+1 {
		return out
	}

	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		tr[i] = trueRange(highs[i], lows[i], closes[i-1])
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out[period] = atr
	for i := period + 1; i < n; i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}

func trueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if d := math.Abs(high - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// ADX returns the Wilder average directional index series. The first value
// appears after 2*period bars.
func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSeries(n)
	if period <= 0 || n < 2*period+1 {
		return out
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(highs[i], lows[i], closes[i-1])
	}

	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := nanSeries(n)
	dx[period] = dxValue(smPlus, smMinus, smTR)
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx[i] = dxValue(smPlus, smMinus, smTR)
	}

	sum := 0.0
	for i := period; i < 2*period; i++ {
		sum += dx[i]
	}
	adx := sum / float64(period)
	out[2*period-1] = adx
	for i := 2 * period; i < n; i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		out[i] = adx
	}
	return out
}

func dxValue(plusDM, minusDM, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	plusDI := plusDM / tr * 100
	minusDI := minusDM / tr * 100
	if plusDI+minusDI == 0 {
		return 0
	}
	return math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
