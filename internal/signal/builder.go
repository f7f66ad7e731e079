package signal

import (
	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/indicators"
)

// minUsableRows is the minimum frame length the builder accepts after
// indicator attachment.
const minUsableRows = 10

// Predictor produces a directional prediction from a feature frame.
type Predictor interface {
	Predict(frame []indicators.Row) Prediction
}

// BuilderConfig holds the gating thresholds and level multipliers.
type BuilderConfig struct {
	MinConfidence     float64 `json:"min_confidence"`
	MinTrendStrength  float64 `json:"min_trend_strength"`
	ATRMultiplierSL   float64 `json:"atr_multiplier_sl"`
	ATRMultiplierTP1  float64 `json:"atr_multiplier_tp1"`
	ATRMultiplierTP2  float64 `json:"atr_multiplier_tp2"`
	ATRMultiplierTP3  float64 `json:"atr_multiplier_tp3"`
	EnableAveraging   bool    `json:"enable_averaging"`
	AveragingDistance float64 `json:"averaging_distance"`
}

// DefaultBuilderConfig returns the stock thresholds and multipliers.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MinConfidence:     0.65,
		MinTrendStrength:  20,
		ATRMultiplierSL:   1.5,
		ATRMultiplierTP1:  2.5,
		ATRMultiplierTP2:  4.0,
		ATRMultiplierTP3:  6.0,
		EnableAveraging:   true,
		AveragingDistance: 0.02,
	}
}

// Builder fuses the scorer and predictor outputs and constructs trade levels.
type Builder struct {
	scorer    *Scorer
	predictor Predictor
	config    BuilderConfig
	logger    zerolog.Logger
}

func NewBuilder(scorer *Scorer, predictor Predictor, cfg BuilderConfig, logger zerolog.Logger) *Builder {
	return &Builder{
		scorer:    scorer,
		predictor: predictor,
		config:    cfg,
		logger:    logger.With().Str("component", "SignalBuilder").Logger(),
	}
}

// Generate evaluates the gate sequence for one symbol and returns a signal,
// or nil when any gate rejects. Gate failures are logged at debug level and
// never returned as errors.
func (b *Builder) Generate(frame []indicators.Row, symbol string) *Signal {
	if len(frame) < minUsableRows {
		b.logger.Debug().Str("symbol", symbol).Int("rows", len(frame)).
			Msg("not enough usable rows after indicator attachment")
		return nil
	}

	strength, err := b.scorer.Score(frame)
	if err != nil {
		b.logger.Debug().Str("symbol", symbol).Err(err).Msg("scoring failed")
		return nil
	}

	pred := b.predictor.Predict(frame)

	combined := (strength.Confidence + pred.Confidence) / 2
	if combined < b.config.MinConfidence {
		b.logger.Debug().Str("symbol", symbol).Float64("confidence", combined).
			Float64("min", b.config.MinConfidence).Msg("confidence below threshold")
		return nil
	}

	if strength.TrendStrength < b.config.MinTrendStrength {
		b.logger.Debug().Str("symbol", symbol).Float64("adx", strength.TrendStrength).
			Float64("min", b.config.MinTrendStrength).Msg("trend too weak")
		return nil
	}

	// The predictor and the rule engine must agree on direction; a zero net
	// score counts as disagreement.
	if (pred.Direction == 1 && strength.NetScore <= 0) ||
		(pred.Direction == -1 && strength.NetScore >= 0) ||
		pred.Direction == 0 {
		b.logger.Debug().Str("symbol", symbol).Int("net_score", strength.NetScore).
			Int("ml_direction", pred.Direction).Msg("rule engine and model disagree")
		return nil
	}

	last := frame[len(frame)-1]
	price := last.Close
	atr := last.ATR

	side := SideLong
	if pred.Direction == -1 {
		side = SideShort
	}

	sig := &Signal{
		Symbol:     symbol,
		Side:       side,
		EntryA:     price,
		Confidence: combined,
	}

	slDist := atr * b.config.ATRMultiplierSL
	tp1Dist := atr * b.config.ATRMultiplierTP1
	tp2Dist := atr * b.config.ATRMultiplierTP2
	tp3Dist := atr * b.config.ATRMultiplierTP3

	if side == SideLong {
		if b.config.EnableAveraging {
			entryB := price * (1 - b.config.AveragingDistance)
			sig.EntryB = &entryB
		}
		sig.Stop = price - slDist
		sig.TP1 = price + tp1Dist
		sig.TP2 = price + tp2Dist
		sig.TP3 = price + tp3Dist
	} else {
		if b.config.EnableAveraging {
			entryB := price * (1 + b.config.AveragingDistance)
			sig.EntryB = &entryB
		}
		sig.Stop = price + slDist
		sig.TP1 = price - tp1Dist
		sig.TP2 = price - tp2Dist
		sig.TP3 = price - tp3Dist
	}

	b.logger.Info().Str("symbol", symbol).Str("side", string(side)).
		Float64("confidence", combined).Float64("entry", sig.EntryA).
		Float64("stop", sig.Stop).Float64("tp1", sig.TP1).
		Msg("signal generated")

	return sig
}
