package indicators

import (
	"math"
	"testing"

	"crypto-signal-bot/internal/binance"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Errorf("expected NaN during warm-up, got %v, %v", out[0], out[1])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(out[i+2], w) {
			t.Errorf("SMA[%d] = %v, want %v", i+2, out[i+2], w)
		}
	}
}

func TestSMAShortInput(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Errorf("SMA[%d] = %v, want NaN for input shorter than period", i, v)
		}
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	out := EMA(values, 3)

	// First defined value is the SMA of the first period.
	if !almostEqual(out[2], 2) {
		t.Fatalf("EMA seed = %v, want 2", out[2])
	}
	// multiplier = 2/(3+1) = 0.5
	if !almostEqual(out[3], (4-2)*0.5+2) {
		t.Errorf("EMA[3] = %v, want 3", out[3])
	}
}

func TestRSIAllGains(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i + 1)
	}
	out := RSI(values, 14)
	if !almostEqual(out[14], 100) {
		t.Errorf("RSI of monotonic gains = %v, want 100", out[14])
	}
}

func TestRSIRange(t *testing.T) {
	values := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22}
	out := RSI(values, 14)
	for i := 14; i < len(out); i++ {
		if out[i] < 0 || out[i] > 100 {
			t.Errorf("RSI[%d] = %v, out of range", i, out[i])
		}
	}
}

func TestStochastic(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = float64(100 + i)
		lows[i] = float64(90 + i)
		closes[i] = highs[i] // close at the period high
	}
	k, _ := Stochastic(highs, lows, closes, 14, 3)
	if !almostEqual(k[n-1], 100) {
		t.Errorf("stoch %%K at period high = %v, want 100", k[n-1])
	}
}

func TestStochasticFlatRange(t *testing.T) {
	n := 16
	flat := make([]float64, n)
	for i := range flat {
		flat[i] = 50
	}
	k, _ := Stochastic(flat, flat, flat, 14, 3)
	if !almostEqual(k[n-1], 50) {
		t.Errorf("stoch %%K on a flat range = %v, want 50", k[n-1])
	}
}

func TestBollingerBands(t *testing.T) {
	n := 25
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	upper, middle, lower := BollingerBands(values, 20, 2.0)
	last := n - 1
	if math.IsNaN(upper[last]) || math.IsNaN(lower[last]) {
		t.Fatal("bands undefined after warm-up")
	}
	if !(lower[last] < middle[last] && middle[last] < upper[last]) {
		t.Errorf("band ordering violated: %v %v %v", lower[last], middle[last], upper[last])
	}
	if !almostEqual(upper[last]-middle[last], middle[last]-lower[last]) {
		t.Error("bands not symmetric around the middle")
	}
}

func TestATRConstantRange(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 105
		lows[i] = 100
		closes[i] = 102
	}
	out := ATR(highs, lows, closes, 14)
	if !almostEqual(out[n-1], 5) {
		t.Errorf("ATR of a constant 5-point range = %v, want 5", out[n-1])
	}
}

func TestADXStrongTrend(t *testing.T) {
	n := 60
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = float64(102 + 2*i)
		lows[i] = float64(100 + 2*i)
		closes[i] = float64(101 + 2*i)
	}
	out := ADX(highs, lows, closes, 14)
	if math.IsNaN(out[n-1]) {
		t.Fatal("ADX undefined after warm-up")
	}
	if out[n-1] < 50 {
		t.Errorf("ADX of a clean uptrend = %v, want a strong reading", out[n-1])
	}
}

func TestADXWarmUp(t *testing.T) {
	n := 40
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = float64(102 + i)
		lows[i] = float64(100 + i)
		closes[i] = float64(101 + i)
	}
	out := ADX(highs, lows, closes, 14)
	for i := 0; i < 2*14-1; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("ADX[%d] = %v, want NaN during warm-up", i, out[i])
		}
	}
	if math.IsNaN(out[2*14-1]) {
		t.Error("ADX missing at the first defined index")
	}
}

func testKlines(n int) []binance.Kline {
	klines := make([]binance.Kline, n)
	for i := 0; i < n; i++ {
		// A gently oscillating uptrend keeps every indicator well defined.
		base := 100 + float64(i)*0.5 + 3*math.Sin(float64(i)/4)
		klines[i] = binance.Kline{
			OpenTime: int64(i) * 60_000,
			Open:     base - 0.2,
			High:     base + 1,
			Low:      base - 1,
			Close:    base,
			Volume:   1000 + 50*math.Sin(float64(i)/3),
		}
	}
	return klines
}

func TestAttachDropsWarmUpRows(t *testing.T) {
	n := 120
	rows := Attach(testKlines(n))

	// SMA50 has the longest warm-up among the required fields: the first
	// complete row is at index 49.
	want := n - 49
	if len(rows) != want {
		t.Fatalf("Attach returned %d rows, want %d", len(rows), want)
	}

	last := rows[len(rows)-1]
	for name, v := range map[string]float64{
		"SMA50":       last.SMA50,
		"MACDSignal":  last.MACDSignal,
		"RSI":         last.RSI,
		"StochD":      last.StochD,
		"BBPctB":      last.BBPctB,
		"ATRPercent":  last.ATRPercent,
		"VolumeRatio": last.VolumeRatio,
	} {
		if math.IsNaN(v) {
			t.Errorf("%s is NaN on a kept row", name)
		}
	}
}

func TestAttachRowOrdering(t *testing.T) {
	rows := Attach(testKlines(55))
	if len(rows) == 0 {
		t.Fatal("expected kept rows")
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].OpenTime.After(rows[i-1].OpenTime) {
			t.Fatal("rows out of order")
		}
	}
}

func TestAttachEmptyInput(t *testing.T) {
	if rows := Attach(nil); rows != nil {
		t.Errorf("Attach(nil) = %v, want nil", rows)
	}
}
