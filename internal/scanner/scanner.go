// Package scanner orchestrates the periodic sweep over the instrument
// universe: it fetches history per symbol, runs the signal builder, persists
// and announces each new signal, and caps how many signals one cycle may
// publish.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/database"
	"crypto-signal-bot/internal/indicators"
	"crypto-signal-bot/internal/signal"
)

// minBarsForScan is the minimum raw history a symbol must return before it is
// worth attaching indicators.
const minBarsForScan = 50

// scanCycleTimeout bounds one full sweep.
const scanCycleTimeout = 5 * time.Minute

// MarketData fetches candlestick history per symbol.
type MarketData interface {
	GetKlines(symbol, interval string, limit int) ([]binance.Kline, error)
}

// UniverseSource yields the symbols to scan.
type UniverseSource interface {
	Symbols(ctx context.Context, limit int) ([]string, error)
}

// Generator turns one symbol's feature frame into a signal, or nil.
type Generator interface {
	Generate(frame []indicators.Row, symbol string) *signal.Signal
}

// SignalStore persists newly generated signals.
type SignalStore interface {
	CreateSignal(ctx context.Context, sig *database.SignalRecord) error
}

// Notifier announces a newly opened signal.
type Notifier interface {
	SendSignal(sig *database.SignalRecord) error
}

// Scanner runs the scan loop across the symbol universe
type Scanner struct {
	market    MarketData
	universe  UniverseSource
	generator Generator
	store     SignalStore
	notifier  Notifier
	config    Config
	logger    zerolog.Logger

	onSignal   func(*database.SignalRecord)
	onScanDone func(*ScanResult)

	stopChan   chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	scanning   bool
	lastResult *ScanResult
}

// NewScanner creates a new scanner instance
func NewScanner(
	market MarketData,
	universe UniverseSource,
	generator Generator,
	store SignalStore,
	notifier Notifier,
	config Config,
	logger zerolog.Logger,
) *Scanner {
	return &Scanner{
		market:    market,
		universe:  universe,
		generator: generator,
		store:     store,
		notifier:  notifier,
		config:    config,
		logger:    logger.With().Str("component", "Scanner").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// OnSignal registers a hook invoked for each persisted signal. Must be set
// before Start.
func (sc *Scanner) OnSignal(fn func(*database.SignalRecord)) {
	sc.onSignal = fn
}

// OnScanDone registers a hook invoked after each completed cycle. Must be set
// before Start.
func (sc *Scanner) OnScanDone(fn func(*ScanResult)) {
	sc.onScanDone = fn
}

// Start begins the background scan loop
func (sc *Scanner) Start() {
	if !sc.config.Enabled {
		sc.logger.Info().Msg("scanner is disabled")
		return
	}

	sc.wg.Add(1)
	go sc.runScanLoop()
	sc.logger.Info().Dur("interval", sc.config.ScanInterval).Msg("scanner started")
}

// runScanLoop executes scans at configured intervals
func (sc *Scanner) runScanLoop() {
	defer sc.wg.Done()

	ticker := time.NewTicker(sc.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately
	sc.scan()

	for {
		select {
		case <-ticker.C:
			sc.scan()
		case <-sc.stopChan:
			sc.logger.Info().Msg("scanner stopped")
			return
		}
	}
}

// Scan executes a single scan cycle (public method for manual triggering).
// Returns the cycle result, or nil when a scan was already in progress.
func (sc *Scanner) Scan() *ScanResult {
	return sc.scan()
}

// scan executes a single scan cycle. At most one cycle runs at a time.
func (sc *Scanner) scan() *ScanResult {
	sc.mu.Lock()
	if sc.scanning {
		sc.mu.Unlock()
		sc.logger.Warn().Msg("scan already in progress, skipping")
		return nil
	}
	sc.scanning = true
	sc.mu.Unlock()
	defer func() {
		sc.mu.Lock()
		sc.scanning = false
		sc.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), scanCycleTimeout)
	defer cancel()

	startTime := time.Now()
	scanID := uuid.NewString()
	log := sc.logger.With().Str("scan_id", scanID).Logger()
	log.Info().Msg("starting market scan")

	symbols, err := sc.universe.Symbols(ctx, sc.config.UniverseSize)
	if err != nil || len(symbols) == 0 {
		log.Warn().Err(err).Msg("universe lookup failed, using fallback symbols")
		symbols = binance.FallbackSymbols()
	}

	var (
		published int
		skipped   int
		countMu   sync.Mutex
	)

	symbolChan := make(chan string, len(symbols))
	var wg sync.WaitGroup

	for i := 0; i < sc.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolChan {
				select {
				case <-ctx.Done():
					countMu.Lock()
					skipped++
					countMu.Unlock()
					continue
				default:
				}

				// Reserve a publish slot before evaluating so concurrent
				// workers can never exceed the per-run cap. A symbol that
				// does not publish releases its slot and counts as skipped,
				// keeping published+skipped equal to the universe size.
				countMu.Lock()
				if published >= sc.config.MaxSignalsPerRun {
					skipped++
					countMu.Unlock()
					continue
				}
				published++
				countMu.Unlock()

				if !sc.scanSymbol(ctx, symbol, log) {
					countMu.Lock()
					published--
					skipped++
					countMu.Unlock()
				}
			}
		}()
	}

	for _, symbol := range symbols {
		symbolChan <- symbol
	}
	close(symbolChan)
	wg.Wait()

	result := &ScanResult{
		ScanID:           scanID,
		StartTime:        startTime,
		EndTime:          time.Now(),
		Duration:         time.Since(startTime),
		SymbolsScanned:   len(symbols),
		SymbolsSkipped:   skipped,
		SignalsGenerated: published,
	}

	sc.mu.Lock()
	sc.lastResult = result
	sc.mu.Unlock()

	if sc.onScanDone != nil {
		sc.onScanDone(result)
	}

	log.Info().Dur("duration", result.Duration).Int("symbols", len(symbols)).
		Int("signals", published).Msg("scan completed")
	return result
}

// scanSymbol evaluates one symbol and publishes its signal if one is
// generated. Fetch failures and rejected gates are not errors; the symbol is
// simply skipped this cycle.
func (sc *Scanner) scanSymbol(ctx context.Context, symbol string, log zerolog.Logger) bool {
	klines, err := sc.market.GetKlines(symbol, sc.config.KlineInterval, sc.config.LookbackBars)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("history fetch failed")
		return false
	}
	if len(klines) < minBarsForScan {
		log.Debug().Str("symbol", symbol).Int("bars", len(klines)).Msg("not enough history")
		return false
	}

	frame := indicators.Attach(klines)
	sig := sc.generator.Generate(frame, symbol)
	if sig == nil {
		return false
	}

	record := &database.SignalRecord{
		Symbol:     sig.Symbol,
		Side:       string(sig.Side),
		EntryA:     sig.EntryA,
		EntryB:     sig.EntryB,
		Stop:       sig.Stop,
		TP1:        sig.TP1,
		TP2:        sig.TP2,
		TP3:        sig.TP3,
		Confidence: sig.Confidence,
	}
	if err := sc.store.CreateSignal(ctx, record); err != nil {
		log.Error().Str("symbol", symbol).Err(err).Msg("failed to persist signal")
		return false
	}

	if sc.notifier != nil {
		if err := sc.notifier.SendSignal(record); err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("signal notification failed")
		}
	}
	if sc.onSignal != nil {
		sc.onSignal(record)
	}

	log.Info().Str("symbol", symbol).Str("side", record.Side).
		Int64("id", record.ID).Msg("signal published")
	return true
}

// GetLastResult returns the most recent scan result
func (sc *Scanner) GetLastResult() *ScanResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastResult
}

// Stop gracefully shuts down the scanner
func (sc *Scanner) Stop() {
	close(sc.stopChan)
	sc.wg.Wait()
}
