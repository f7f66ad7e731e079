package ml

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/indicators"
)

// mlRow builds a row whose feature vector is fully defined.
func mlRow(close float64) indicators.Row {
	return indicators.Row{
		Close:      close,
		RSI:        50,
		MACD:       0.1,
		MACDHist:   0.05,
		ADX:        25,
		StochK:     50,
		BBPctB:     0.5,
		ATRPercent: 2,
	}
}

func risingFrame(n int) []indicators.Row {
	rows := make([]indicators.Row, n)
	for i := range rows {
		rows[i] = mlRow(100 + float64(i))
	}
	return rows
}

func fallingFrame(n int) []indicators.Row {
	rows := make([]indicators.Row, n)
	for i := range rows {
		rows[i] = mlRow(200 - float64(i))
	}
	return rows
}

func TestPredictNeutralOnShortHistory(t *testing.T) {
	p := NewPredictor(nil, zerolog.Nop())

	got := p.Predict(risingFrame(10))
	if got.Direction != 0 || got.Confidence != 0 {
		t.Errorf("Predict on short history = %+v, want neutral", got)
	}
	if p.Trained() {
		t.Error("model must stay unfit after a failed training pass")
	}
}

func TestFitRequiresMinimumRows(t *testing.T) {
	p := NewPredictor(nil, zerolog.Nop())
	err := p.Fit(risingFrame(20))
	if !errors.Is(err, ErrInsufficientTrainingData) {
		t.Fatalf("Fit err = %v, want ErrInsufficientTrainingData", err)
	}
}

func TestPredictLearnsUptrend(t *testing.T) {
	p := NewPredictor(nil, zerolog.Nop())

	got := p.Predict(risingFrame(80))
	if !p.Trained() {
		t.Fatal("lazy fit did not run")
	}
	if got.Direction != 1 {
		t.Errorf("Direction = %d, want 1 after training on rising closes", got.Direction)
	}
	if got.Confidence <= 0.5 {
		t.Errorf("Confidence = %v, want above 0.5", got.Confidence)
	}
}

func TestPredictLearnsDowntrend(t *testing.T) {
	p := NewPredictor(nil, zerolog.Nop())

	got := p.Predict(fallingFrame(80))
	if got.Direction != -1 {
		t.Errorf("Direction = %d, want -1 after training on falling closes", got.Direction)
	}
}

func TestPredictTieResolvesDown(t *testing.T) {
	// A zero model puts exactly 0.5 on each class; the tie must resolve to
	// the down class.
	store := NewFileStore(filepath.Join(t.TempDir(), "model.json"))
	if err := store.Save(ModelState{Weights: make([]float64, 7)}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p := NewPredictor(store, zerolog.Nop())
	if !p.Trained() {
		t.Fatal("state restore failed")
	}

	got := p.Predict([]indicators.Row{mlRow(100)})
	if got.Direction != -1 {
		t.Errorf("Direction = %d, want -1 on an exact tie", got.Direction)
	}
	if math.Abs(got.Confidence-0.5) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}
}

func TestPredictNeutralOnIncompleteFeatures(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "model.json"))
	if err := store.Save(ModelState{Weights: make([]float64, 7), Bias: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p := NewPredictor(store, zerolog.Nop())

	bad := mlRow(100)
	bad.BBPctB = math.NaN()
	got := p.Predict([]indicators.Row{bad})
	if got.Direction != 0 || got.Confidence != 0 {
		t.Errorf("Predict with NaN feature = %+v, want neutral", got)
	}
}

func TestFitPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	p := NewPredictor(NewFileStore(path), zerolog.Nop())
	if err := p.Fit(risingFrame(80)); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	restored := NewPredictor(NewFileStore(path), zerolog.Nop())
	if !restored.Trained() {
		t.Fatal("restored predictor is unfit")
	}

	got := restored.Predict([]indicators.Row{mlRow(500)})
	if got.Direction != 1 {
		t.Errorf("restored Direction = %d, want 1", got.Direction)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load on a missing file: %v", err)
	}
	if ok {
		t.Error("ok = true for a missing file")
	}
}
