package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/database"
	"crypto-signal-bot/internal/indicators"
	"crypto-signal-bot/internal/signal"
)

type fakeMarket struct {
	bars map[string]int
	errs map[string]error
}

func (m *fakeMarket) GetKlines(symbol, interval string, limit int) ([]binance.Kline, error) {
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	n := m.bars[symbol]
	klines := make([]binance.Kline, n)
	for i := range klines {
		price := 100 + float64(i)*0.1
		klines[i] = binance.Kline{
			OpenTime: int64(i) * 60_000,
			Open:     price,
			High:     price + 1,
			Low:      price - 1,
			Close:    price + 0.5,
			Volume:   1000,
		}
	}
	return klines, nil
}

type fakeUniverse struct {
	symbols []string
	err     error
}

func (u *fakeUniverse) Symbols(ctx context.Context, limit int) ([]string, error) {
	return u.symbols, u.err
}

type fakeGenerator struct {
	signalFor map[string]bool
	frames    map[string]int
}

func (g *fakeGenerator) Generate(frame []indicators.Row, symbol string) *signal.Signal {
	if g.frames == nil {
		g.frames = make(map[string]int)
	}
	g.frames[symbol] = len(frame)
	if !g.signalFor[symbol] {
		return nil
	}
	return &signal.Signal{
		Symbol:     symbol,
		Side:       signal.SideLong,
		EntryA:     100,
		Stop:       94,
		TP1:        106,
		TP2:        110,
		TP3:        116,
		Confidence: 0.8,
	}
}

type fakeSignalStore struct {
	mu      sync.Mutex
	created []*database.SignalRecord
	err     error
}

func (s *fakeSignalStore) CreateSignal(ctx context.Context, sig *database.SignalRecord) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.created = append(s.created, sig)
	s.mu.Unlock()
	return nil
}

type fakeSignalNotifier struct {
	sent []*database.SignalRecord
	err  error
}

func (n *fakeSignalNotifier) SendSignal(sig *database.SignalRecord) error {
	n.sent = append(n.sent, sig)
	return n.err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ScanInterval = time.Hour
	cfg.LookbackBars = 100
	cfg.WorkerCount = 1
	return cfg
}

func barsFor(symbols []string, n int) map[string]int {
	bars := make(map[string]int, len(symbols))
	for _, s := range symbols {
		bars[s] = n
	}
	return bars
}

func TestScanPublishesSignals(t *testing.T) {
	symbols := []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}
	market := &fakeMarket{bars: barsFor(symbols, 100)}
	gen := &fakeGenerator{signalFor: map[string]bool{"ETHUSDT": true}}
	store := &fakeSignalStore{}
	notifier := &fakeSignalNotifier{}

	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, gen, store, notifier, testConfig(), zerolog.Nop())
	result := sc.Scan()

	if result == nil {
		t.Fatal("Scan returned nil")
	}
	if result.SignalsGenerated != 1 || result.SymbolsScanned != 3 || result.SymbolsSkipped != 2 {
		t.Errorf("result = %+v, want 1 signal, 3 scanned, 2 skipped", result)
	}
	if len(store.created) != 1 || store.created[0].Symbol != "ETHUSDT" {
		t.Fatalf("created = %+v, want one ETHUSDT record", store.created)
	}
	if store.created[0].Side != "LONG" || store.created[0].Stop != 94 {
		t.Errorf("record levels not carried over: %+v", store.created[0])
	}
	if len(notifier.sent) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.sent))
	}
	if result.ScanID == "" {
		t.Error("result has no scan id")
	}
}

func TestScanDropsWarmUpBeforeGenerate(t *testing.T) {
	symbols := []string{"BTCUSDT"}
	market := &fakeMarket{bars: barsFor(symbols, 100)}
	gen := &fakeGenerator{}

	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, gen, &fakeSignalStore{}, nil, testConfig(), zerolog.Nop())
	sc.Scan()

	// 100 bars minus the 49-row warm-up of the longest moving average.
	if got := gen.frames["BTCUSDT"]; got != 51 {
		t.Errorf("frame rows = %d, want 51", got)
	}
}

func TestScanSkipsShortHistoryAndFetchFailures(t *testing.T) {
	symbols := []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}
	market := &fakeMarket{
		bars: map[string]int{"BTCUSDT": 10, "BNBUSDT": 100},
		errs: map[string]error{"ETHUSDT": errors.New("status 451")},
	}
	gen := &fakeGenerator{}

	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, gen, &fakeSignalStore{}, nil, testConfig(), zerolog.Nop())
	result := sc.Scan()

	if result.SymbolsSkipped != 3 || result.SignalsGenerated != 0 {
		t.Errorf("result = %+v, want all skipped", result)
	}
	if len(gen.frames) != 1 {
		t.Errorf("generator saw %d symbols, want only the healthy one", len(gen.frames))
	}
}

func TestScanCapsSignalsPerRun(t *testing.T) {
	symbols := []string{"AUSDT", "BUSDT", "CUSDT", "DUSDT", "EUSDT"}
	market := &fakeMarket{bars: barsFor(symbols, 100)}
	gen := &fakeGenerator{signalFor: map[string]bool{
		"AUSDT": true, "BUSDT": true, "CUSDT": true, "DUSDT": true, "EUSDT": true,
	}}
	store := &fakeSignalStore{}

	cfg := testConfig()
	cfg.MaxSignalsPerRun = 2
	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, gen, store, nil, cfg, zerolog.Nop())
	result := sc.Scan()

	if result.SignalsGenerated != 2 {
		t.Errorf("SignalsGenerated = %d, want the cap of 2", result.SignalsGenerated)
	}
	if len(store.created) != 2 {
		t.Errorf("created = %d, want 2", len(store.created))
	}
	// Symbols left unevaluated once the cap is reached still show up in the
	// cycle accounting.
	if result.SymbolsSkipped != 3 {
		t.Errorf("SymbolsSkipped = %d, want 3", result.SymbolsSkipped)
	}
}

// slowGenerator always produces a signal after a short delay, wide enough for
// every worker to be in flight at once.
type slowGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *slowGenerator) Generate(frame []indicators.Row, symbol string) *signal.Signal {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	return &signal.Signal{
		Symbol: symbol,
		Side:   signal.SideLong,
		EntryA: 100, Stop: 94, TP1: 106, TP2: 110, TP3: 116,
		Confidence: 0.8,
	}
}

func TestScanCapHoldsAcrossWorkers(t *testing.T) {
	symbols := []string{"AUSDT", "BUSDT", "CUSDT", "DUSDT", "EUSDT", "FUSDT", "GUSDT", "HUSDT"}
	market := &fakeMarket{bars: barsFor(symbols, 100)}
	store := &fakeSignalStore{}

	cfg := testConfig()
	cfg.MaxSignalsPerRun = 2
	cfg.WorkerCount = 4
	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, &slowGenerator{}, store, nil, cfg, zerolog.Nop())
	result := sc.Scan()

	if result.SignalsGenerated != 2 {
		t.Errorf("SignalsGenerated = %d, want exactly the cap of 2", result.SignalsGenerated)
	}
	if len(store.created) != 2 {
		t.Errorf("created = %d, want 2", len(store.created))
	}
	if got := result.SignalsGenerated + result.SymbolsSkipped; got != len(symbols) {
		t.Errorf("generated+skipped = %d, want the full universe of %d", got, len(symbols))
	}
}

func TestScanUsesFallbackUniverse(t *testing.T) {
	fallback := binance.FallbackSymbols()
	market := &fakeMarket{bars: barsFor(fallback, 100)}
	gen := &fakeGenerator{}

	sc := NewScanner(market, &fakeUniverse{err: errors.New("redis down")}, gen, &fakeSignalStore{}, nil, testConfig(), zerolog.Nop())
	result := sc.Scan()

	if result.SymbolsScanned != len(fallback) {
		t.Errorf("SymbolsScanned = %d, want the %d fallback symbols", result.SymbolsScanned, len(fallback))
	}
}

func TestScanStoreFailureSkipsSignal(t *testing.T) {
	symbols := []string{"BTCUSDT"}
	market := &fakeMarket{bars: barsFor(symbols, 100)}
	gen := &fakeGenerator{signalFor: map[string]bool{"BTCUSDT": true}}
	store := &fakeSignalStore{err: errors.New("insert failed")}
	notifier := &fakeSignalNotifier{}

	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, gen, store, notifier, testConfig(), zerolog.Nop())
	result := sc.Scan()

	if result.SignalsGenerated != 0 || result.SymbolsSkipped != 1 {
		t.Errorf("result = %+v, want the symbol counted as skipped", result)
	}
	if len(notifier.sent) != 0 {
		t.Error("an unpersisted signal must not be announced")
	}
}

func TestScanHooksFire(t *testing.T) {
	symbols := []string{"BTCUSDT"}
	market := &fakeMarket{bars: barsFor(symbols, 100)}
	gen := &fakeGenerator{signalFor: map[string]bool{"BTCUSDT": true}}

	var hooked []*database.SignalRecord
	var doneResult *ScanResult

	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, gen, &fakeSignalStore{}, nil, testConfig(), zerolog.Nop())
	sc.OnSignal(func(rec *database.SignalRecord) { hooked = append(hooked, rec) })
	sc.OnScanDone(func(res *ScanResult) { doneResult = res })

	result := sc.Scan()

	if len(hooked) != 1 || hooked[0].Symbol != "BTCUSDT" {
		t.Errorf("OnSignal hook saw %+v", hooked)
	}
	if doneResult != result {
		t.Error("OnScanDone hook did not receive the cycle result")
	}
}

func TestGetLastResult(t *testing.T) {
	symbols := []string{"BTCUSDT"}
	market := &fakeMarket{bars: barsFor(symbols, 100)}

	sc := NewScanner(market, &fakeUniverse{symbols: symbols}, &fakeGenerator{}, &fakeSignalStore{}, nil, testConfig(), zerolog.Nop())
	if sc.GetLastResult() != nil {
		t.Fatal("last result must start nil")
	}
	result := sc.Scan()
	if sc.GetLastResult() != result {
		t.Error("GetLastResult does not return the latest cycle")
	}
}
