package notification

import (
	"fmt"
	"strings"

	"crypto-signal-bot/internal/database"
	"crypto-signal-bot/internal/tracker"
)

// FormatSignal renders the entry plan for a freshly opened signal. Percent
// distances are relative to entry A, R multiples to the entry/stop distance.
// The tranche labels come from the same weights the tracker uses for its
// blended-entry PnL.
func FormatSignal(sig *database.SignalRecord, weights tracker.Config) string {
	var b strings.Builder

	dir := 1.0
	if !sig.IsLong() {
		dir = -1.0
	}

	fmt.Fprintf(&b, "Confidence: %.0f%%\n\n", sig.Confidence*100)

	if sig.EntryB != nil {
		fmt.Fprintf(&b, "📍 Entry A (%.0f%%): `%s`\n", weights.EntryWeightA*100, formatPrice(sig.EntryA))
		fmt.Fprintf(&b, "📍 Entry B (%.0f%%): `%s` (%+.2f%%)\n", weights.EntryWeightB*100, formatPrice(*sig.EntryB), pctFrom(sig.EntryA, *sig.EntryB))
	} else {
		fmt.Fprintf(&b, "📍 Entry: `%s`\n", formatPrice(sig.EntryA))
	}

	fmt.Fprintf(&b, "🛑 Stop: `%s` (%+.2f%%)\n\n", formatPrice(sig.Stop), pctFrom(sig.EntryA, sig.Stop))

	risk := dir * (sig.EntryA - sig.Stop)
	fmt.Fprintf(&b, "├ TP1: `%s` (%+.2f%% / %.1fR)\n", formatPrice(sig.TP1), pctFrom(sig.EntryA, sig.TP1), rMultiple(sig.EntryA, sig.TP1, risk, dir))
	fmt.Fprintf(&b, "├ TP2: `%s` (%+.2f%% / %.1fR)\n", formatPrice(sig.TP2), pctFrom(sig.EntryA, sig.TP2), rMultiple(sig.EntryA, sig.TP2, risk, dir))
	fmt.Fprintf(&b, "└ TP3: `%s` (%+.2f%% / %.1fR)", formatPrice(sig.TP3), pctFrom(sig.EntryA, sig.TP3), rMultiple(sig.EntryA, sig.TP3, risk, dir))

	return b.String()
}

// FormatEvent renders a lifecycle transition message for an open signal.
func FormatEvent(event *tracker.Event) string {
	sig := event.Signal

	switch event.Type {
	case tracker.EventStopLoss:
		return fmt.Sprintf("%s %s stopped out at `%s`\nPnL: %+.2f%%",
			sig.Symbol, sig.Side, formatPrice(event.Price), event.PnL)
	case tracker.EventTP1:
		return fmt.Sprintf("%s %s hit TP1 at `%s` (%+.2f%%)\nConsider moving stop to breakeven.",
			sig.Symbol, sig.Side, formatPrice(event.Price), event.PnL)
	case tracker.EventTP2:
		return fmt.Sprintf("%s %s hit TP2 at `%s` (%+.2f%%)\nRemaining position is risk free.",
			sig.Symbol, sig.Side, formatPrice(event.Price), event.PnL)
	case tracker.EventTP3Full:
		return fmt.Sprintf("%s %s completed the full target at `%s`\nFinal PnL: %+.2f%%",
			sig.Symbol, sig.Side, formatPrice(event.Price), event.PnL)
	default:
		return fmt.Sprintf("%s %s update at `%s` (%+.2f%%)",
			sig.Symbol, sig.Side, formatPrice(event.Price), event.PnL)
	}
}

func eventTitle(event *tracker.Event) string {
	symbol := event.Signal.Symbol
	switch event.Type {
	case tracker.EventStopLoss:
		return fmt.Sprintf("🛑 Stop Loss: %s", symbol)
	case tracker.EventTP1:
		return fmt.Sprintf("✅ TP1 Hit: %s", symbol)
	case tracker.EventTP2:
		return fmt.Sprintf("✅ TP2 Hit: %s", symbol)
	case tracker.EventTP3Full:
		return fmt.Sprintf("🎯 TP3 Hit: %s", symbol)
	default:
		return fmt.Sprintf("ℹ️ Update: %s", symbol)
	}
}

// formatPrice keeps enough precision for sub-cent pairs without padding
// large-cap quotes with trailing zeros.
func formatPrice(price float64) string {
	switch {
	case price >= 100:
		return fmt.Sprintf("%.2f", price)
	case price >= 1:
		return fmt.Sprintf("%.4f", price)
	default:
		return fmt.Sprintf("%.6f", price)
	}
}

func pctFrom(base, target float64) float64 {
	if base == 0 {
		return 0
	}
	return (target - base) / base * 100
}

func rMultiple(entry, target, risk, dir float64) float64 {
	if risk == 0 {
		return 0
	}
	return dir * (target - entry) / risk
}
