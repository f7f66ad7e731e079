// Package stats aggregates signal history into a performance report.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-signal-bot/internal/database"
)

// Source is the slice of the signal store the reporter needs.
type Source interface {
	AggregateStats(ctx context.Context) (total, wins int, sumPnL float64, err error)
	TPHitCounts(ctx context.Context) (tp1, tp2, tp3 int, err error)
	BestPerformers(ctx context.Context, limit int) ([]database.SymbolPerformance, error)
	GetOpenSignals(ctx context.Context) ([]*database.SignalRecord, error)
	SignalsOpenedSince(ctx context.Context, cutoff time.Time) (int, error)
}

// Report is a point-in-time snapshot of signal performance.
type Report struct {
	TotalClosed    int                          `json:"total_closed"`
	Wins           int                          `json:"wins"`
	Losses         int                          `json:"losses"`
	WinRate        float64                      `json:"win_rate"`
	TotalPnL       float64                      `json:"total_pnl"`
	AvgPnL         float64                      `json:"avg_pnl"`
	TP1Hits        int                          `json:"tp1_hits"`
	TP2Hits        int                          `json:"tp2_hits"`
	TP3Hits        int                          `json:"tp3_hits"`
	OpenSignals    int                          `json:"open_signals"`
	OpenedLast24h  int                          `json:"opened_last_24h"`
	BestPerformers []database.SymbolPerformance `json:"best_performers"`
	GeneratedAt    time.Time                    `json:"generated_at"`
}

// Reporter builds reports from the signal store.
type Reporter struct {
	source Source
}

// NewReporter creates a new performance reporter
func NewReporter(source Source) *Reporter {
	return &Reporter{source: source}
}

// Build assembles a full performance report.
func (r *Reporter) Build(ctx context.Context) (*Report, error) {
	total, wins, sumPnL, err := r.source.AggregateStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregate stats: %w", err)
	}

	tp1, tp2, tp3, err := r.source.TPHitCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tp hit counts: %w", err)
	}

	performers, err := r.source.BestPerformers(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to load best performers: %w", err)
	}

	open, err := r.source.GetOpenSignals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load open signals: %w", err)
	}

	recent, err := r.source.SignalsOpenedSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent signals: %w", err)
	}

	report := &Report{
		TotalClosed:    total,
		Wins:           wins,
		Losses:         total - wins,
		TotalPnL:       sumPnL,
		TP1Hits:        tp1,
		TP2Hits:        tp2,
		TP3Hits:        tp3,
		OpenSignals:    len(open),
		OpenedLast24h:  recent,
		BestPerformers: performers,
		GeneratedAt:    time.Now(),
	}
	if total > 0 {
		report.WinRate = float64(wins) / float64(total) * 100
		report.AvgPnL = sumPnL / float64(total)
	}
	return report, nil
}

// Format renders a report as a plain-text summary for the command surface.
func Format(report *Report) string {
	var b strings.Builder

	b.WriteString("📊 *Performance*\n\n")
	fmt.Fprintf(&b, "Closed signals: %d (W %d / L %d)\n", report.TotalClosed, report.Wins, report.Losses)
	fmt.Fprintf(&b, "Win rate: %.1f%%\n", report.WinRate)
	fmt.Fprintf(&b, "Total PnL: %+.2f%%\n", report.TotalPnL)
	fmt.Fprintf(&b, "Avg PnL: %+.2f%%\n\n", report.AvgPnL)
	fmt.Fprintf(&b, "TP hits: TP1 %d · TP2 %d · TP3 %d\n", report.TP1Hits, report.TP2Hits, report.TP3Hits)
	fmt.Fprintf(&b, "Open now: %d · Opened last 24h: %d\n", report.OpenSignals, report.OpenedLast24h)

	if len(report.BestPerformers) > 0 {
		b.WriteString("\n🏆 *Best symbols*\n")
		for _, p := range report.BestPerformers {
			fmt.Fprintf(&b, "%s: %+.2f%% over %d trades\n", p.Symbol, p.TotalPnL, p.Total)
		}
	}
	return b.String()
}
