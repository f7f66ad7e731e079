// Package tracker advances open signals through their lifecycle: it checks
// live prices against stop and take-profit levels, mutates the persisted
// record, and reports each transition exactly once.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/database"
)

// SignalStore is the persistence surface the tracker mutates. The store is
// the single source of truth for position state.
type SignalStore interface {
	GetOpenSignals(ctx context.Context) ([]*database.SignalRecord, error)
	MarkTPHit(ctx context.Context, id int64, level int) error
	CloseSignal(ctx context.Context, id int64, pnl float64) error
}

// PriceSource provides the latest traded price per symbol.
type PriceSource interface {
	GetCurrentPrice(symbol string) (float64, error)
}

// Notifier delivers a formatted report of one event. Delivery is best-effort;
// a failure never rolls back the state mutation that preceded it.
type Notifier interface {
	SendEvent(event *Event) error
}

// Config holds the tranche weights used for the blended entry price.
type Config struct {
	EntryWeightA float64 `json:"entry_weight_a"`
	EntryWeightB float64 `json:"entry_weight_b"`
}

// DefaultConfig returns the stock 70/30 tranche split.
func DefaultConfig() Config {
	return Config{EntryWeightA: 0.7, EntryWeightB: 0.3}
}

// Tracker is the per-signal lifecycle state machine.
type Tracker struct {
	store    SignalStore
	prices   PriceSource
	notifier Notifier
	config   Config
	logger   zerolog.Logger

	// priceCache holds one price per symbol for the current cycle only.
	priceCache map[string]float64
}

func NewTracker(store SignalStore, prices PriceSource, notifier Notifier, cfg Config, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		prices:   prices,
		notifier: notifier,
		config:   cfg,
		logger:   logger.With().Str("component", "SignalTracker").Logger(),
	}
}

// CheckAll runs one check cycle over every open signal and returns the events
// that fired. A price-fetch failure excludes that symbol's signals from the
// cycle; a store mutation failure aborts the cycle and is returned along with
// the events emitted so far.
func (t *Tracker) CheckAll(ctx context.Context) ([]*Event, error) {
	open, err := t.store.GetOpenSignals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load open signals: %w", err)
	}
	if len(open) == 0 {
		t.logger.Debug().Msg("no open signals to check")
		return nil, nil
	}

	t.refreshPrices(open)

	var events []*Event
	for _, sig := range open {
		price, ok := t.priceCache[sig.Symbol]
		if !ok {
			continue
		}

		fired, err := t.checkSignal(ctx, sig, price)
		events = append(events, fired...)
		if err != nil {
			return events, err
		}
	}
	return events, nil
}

// refreshPrices rebuilds the per-cycle price cache for the distinct symbols
// among the open signals. Fetch failures are logged and leave the symbol out.
func (t *Tracker) refreshPrices(open []*database.SignalRecord) {
	t.priceCache = make(map[string]float64)
	for _, sig := range open {
		if _, done := t.priceCache[sig.Symbol]; done {
			continue
		}
		price, err := t.prices.GetCurrentPrice(sig.Symbol)
		if err != nil {
			t.logger.Warn().Str("symbol", sig.Symbol).Err(err).
				Msg("price fetch failed, skipping symbol this cycle")
			continue
		}
		t.priceCache[sig.Symbol] = price
	}
}

// checkSignal evaluates one open signal against the cached price. The stop is
// checked first and ends the evaluation; the three targets are otherwise
// checked in order, each firing at most once per signal lifetime.
func (t *Tracker) checkSignal(ctx context.Context, sig *database.SignalRecord, price float64) ([]*Event, error) {
	isLong := sig.IsLong()
	weightedEntry := t.weightedEntry(sig)

	if stopHit(isLong, price, sig.Stop) {
		pnl := calculatePnL(weightedEntry, sig.Stop, isLong)
		if err := t.store.CloseSignal(ctx, sig.ID, pnl); err != nil {
			return nil, err
		}
		sig.Status = database.StatusClosed
		event := t.emit(EventStopLoss, sig, price, pnl)
		t.logger.Info().Str("symbol", sig.Symbol).Int64("id", sig.ID).
			Float64("pnl", pnl).Msg("stop loss hit, signal closed")
		return []*Event{event}, nil
	}

	var events []*Event

	if tpHit(isLong, price, sig.TP1) && !sig.TP1Hit {
		pnl := calculatePnL(weightedEntry, sig.TP1, isLong)
		if err := t.store.MarkTPHit(ctx, sig.ID, 1); err != nil {
			return events, err
		}
		sig.TP1Hit = true
		events = append(events, t.emit(EventTP1, sig, price, pnl))
		t.logger.Info().Str("symbol", sig.Symbol).Int64("id", sig.ID).
			Float64("pnl", pnl).Msg("TP1 reached")
	}

	if tpHit(isLong, price, sig.TP2) && !sig.TP2Hit {
		pnl := calculatePnL(weightedEntry, sig.TP2, isLong)
		if err := t.store.MarkTPHit(ctx, sig.ID, 2); err != nil {
			return events, err
		}
		sig.TP2Hit = true
		events = append(events, t.emit(EventTP2, sig, price, pnl))
		t.logger.Info().Str("symbol", sig.Symbol).Int64("id", sig.ID).
			Float64("pnl", pnl).Msg("TP2 reached")
	}

	if tpHit(isLong, price, sig.TP3) && !sig.TP3Hit {
		pnl := calculatePnL(weightedEntry, sig.TP3, isLong)
		if err := t.store.MarkTPHit(ctx, sig.ID, 3); err != nil {
			return events, err
		}
		if err := t.store.CloseSignal(ctx, sig.ID, pnl); err != nil {
			return events, err
		}
		sig.TP3Hit = true
		sig.Status = database.StatusClosed
		events = append(events, t.emit(EventTP3Full, sig, price, pnl))
		t.logger.Info().Str("symbol", sig.Symbol).Int64("id", sig.ID).
			Float64("pnl", pnl).Msg("TP3 reached, signal closed")
	}

	return events, nil
}

// emit builds the event and delivers its notification. Notification failures
// are logged and swallowed; the state mutation already happened.
func (t *Tracker) emit(eventType EventType, sig *database.SignalRecord, price, pnl float64) *Event {
	snapshot := *sig
	event := &Event{
		Type:   eventType,
		Signal: &snapshot,
		Price:  price,
		PnL:    pnl,
		At:     time.Now().UTC(),
	}
	if t.notifier != nil {
		if err := t.notifier.SendEvent(event); err != nil {
			t.logger.Warn().Str("symbol", sig.Symbol).Str("event", string(eventType)).
				Err(err).Msg("notification delivery failed")
		}
	}
	return event
}

// weightedEntry blends the two entry tranches, or returns the primary entry
// when no averaging entry exists.
func (t *Tracker) weightedEntry(sig *database.SignalRecord) float64 {
	if sig.EntryB == nil {
		return sig.EntryA
	}
	return sig.EntryA*t.config.EntryWeightA + *sig.EntryB*t.config.EntryWeightB
}

func stopHit(isLong bool, price, stop float64) bool {
	if isLong {
		return price <= stop
	}
	return price >= stop
}

func tpHit(isLong bool, price, target float64) bool {
	if isLong {
		return price >= target
	}
	return price <= target
}

// calculatePnL returns the realized percentage against the weighted entry.
// With a far averaging entry the stop-loss PnL can come out positive; that
// mirrors how the blended cost basis actually behaves and is intentional.
func calculatePnL(weightedEntry, exit float64, isLong bool) float64 {
	if isLong {
		return (exit - weightedEntry) / weightedEntry * 100
	}
	return (weightedEntry - exit) / weightedEntry * 100
}
