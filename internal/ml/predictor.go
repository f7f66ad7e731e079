// Package ml provides the directional price classifier: a small logistic
// model over a fixed indicator feature set, trained lazily on the first
// prediction request and persisted across restarts through a ModelStore.
package ml

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/indicators"
	"crypto-signal-bot/internal/signal"
)

const (
	// featureCount is the fixed width of the model input:
	// rsi, macd, macd_histogram, adx, stoch_k, bb_pband, atr_percent.
	featureCount = 7

	// minTrainingRows is the minimum number of labeled rows required to fit.
	minTrainingRows = 50

	learningRate   = 0.05
	trainingEpochs = 60
)

// Predictor wraps the classifier behind the signal.Predictor contract.
// Predict never fails hard: any problem degrades to direction 0 with zero
// confidence.
type Predictor struct {
	mu      sync.Mutex
	weights []float64
	bias    float64
	trained bool

	store  ModelStore
	logger zerolog.Logger
}

// NewPredictor creates a predictor and attempts to restore fitted state from
// the store. A load failure is not fatal; the model simply starts unfit.
func NewPredictor(store ModelStore, logger zerolog.Logger) *Predictor {
	p := &Predictor{
		weights: make([]float64, featureCount),
		store:   store,
		logger:  logger.With().Str("component", "MLPredictor").Logger(),
	}

	if store != nil {
		state, ok, err := store.Load()
		if err != nil {
			p.logger.Warn().Err(err).Msg("failed to load model state")
		} else if ok && len(state.Weights) == featureCount {
			p.weights = state.Weights
			p.bias = state.Bias
			p.trained = true
			p.logger.Info().Time("trained_at", state.TrainedAt).Msg("model state restored")
		}
	}
	return p
}

// Predict returns the directional class and confidence for the latest row of
// the frame. An unfit model triggers one training pass over the frame's
// history; when that cannot produce a usable model the prediction is neutral.
func (p *Predictor) Predict(frame []indicators.Row) signal.Prediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.trained {
		p.logger.Info().Msg("model not trained, fitting on available history")
		if err := p.fitLocked(frame); err != nil {
			p.logger.Warn().Err(err).Msg("training failed")
			return signal.Prediction{Direction: 0, Confidence: 0}
		}
	}

	if len(frame) == 0 {
		return signal.Prediction{Direction: 0, Confidence: 0}
	}

	features, ok := featureVector(frame[len(frame)-1])
	if !ok {
		p.logger.Warn().Msg("feature vector incomplete, skipping prediction")
		return signal.Prediction{Direction: 0, Confidence: 0}
	}

	probUp := p.probabilityLocked(features)
	probDown := 1 - probUp

	// Strict comparison: an exact tie resolves to the down class, matching
	// the historical behavior of this strategy.
	direction := -1
	confidence := probDown
	if probUp > probDown {
		direction = 1
		confidence = probUp
	}

	return signal.Prediction{Direction: direction, Confidence: confidence}
}

// Fit trains the model on the given frame and persists the result. The label
// of each row is whether the next bar's close is higher; the final row has no
// resolved label and is dropped.
func (p *Predictor) Fit(frame []indicators.Row) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fitLocked(frame)
}

// Trained reports whether the model currently holds a fitted state.
func (p *Predictor) Trained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trained
}

func (p *Predictor) fitLocked(frame []indicators.Row) error {
	features, labels := buildDataset(frame)
	if len(features) < minTrainingRows {
		return ErrInsufficientTrainingData
	}

	weights := make([]float64, featureCount)
	bias := 0.0
	for epoch := 0; epoch < trainingEpochs; epoch++ {
		for i := range features {
			z := bias
			for j, w := range weights {
				z += w * features[i][j]
			}
			grad := sigmoid(z) - labels[i]
			for j := range weights {
				weights[j] -= learningRate * grad * features[i][j]
			}
			bias -= learningRate * grad
		}
	}

	p.weights = weights
	p.bias = bias
	p.trained = true

	state := ModelState{Weights: weights, Bias: bias, TrainedAt: time.Now().UTC()}
	if p.store != nil {
		if err := p.store.Save(state); err != nil {
			p.logger.Error().Err(err).Msg("failed to persist model state")
		}
	}
	p.logger.Info().Int("rows", len(features)).Msg("model trained")
	return nil
}

func (p *Predictor) probabilityLocked(features []float64) float64 {
	z := p.bias
	for i, w := range p.weights {
		z += w * features[i]
	}
	return sigmoid(z)
}

// buildDataset extracts (features, labels) pairs from the frame. Rows with an
// incomplete feature vector are skipped.
func buildDataset(frame []indicators.Row) ([][]float64, []float64) {
	var features [][]float64
	var labels []float64
	for i := 0; i+1 < len(frame); i++ {
		f, ok := featureVector(frame[i])
		if !ok {
			continue
		}
		label := 0.0
		if frame[i+1].Close > frame[i].Close {
			label = 1.0
		}
		features = append(features, f)
		labels = append(labels, label)
	}
	return features, labels
}

// featureVector builds the normalized model input from one row. The second
// return value is false when any required feature is missing or not a number.
func featureVector(r indicators.Row) ([]float64, bool) {
	if r.Close == 0 {
		return nil, false
	}
	f := []float64{
		r.RSI / 100,
		r.MACD / r.Close,
		r.MACDHist / r.Close,
		r.ADX / 100,
		r.StochK / 100,
		r.BBPctB,
		r.ATRPercent / 100,
	}
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
	}
	return f, true
}

// sigmoid returns 1/(1+e^-x) with clamping for numerical stability.
func sigmoid(x float64) float64 {
	if x > 20 {
		return 1
	}
	if x < -20 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}
