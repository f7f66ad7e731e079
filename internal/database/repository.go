package database

import (
	"context"
	"fmt"
	"time"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// CreateSignal inserts a new signal record and fills in its assigned ID and
// opened timestamp.
func (r *Repository) CreateSignal(ctx context.Context, sig *SignalRecord) error {
	query := `
		INSERT INTO signals (symbol, side, entry_a, entry_b, stop, tp1, tp2, tp3, confidence, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'OPEN')
		RETURNING id, status, opened_at
	`
	return r.db.Pool.QueryRow(
		ctx, query,
		sig.Symbol, sig.Side, sig.EntryA, sig.EntryB,
		sig.Stop, sig.TP1, sig.TP2, sig.TP3, sig.Confidence,
	).Scan(&sig.ID, &sig.Status, &sig.OpenedAt)
}

// GetSignalByID retrieves a signal by ID
func (r *Repository) GetSignalByID(ctx context.Context, id int64) (*SignalRecord, error) {
	query := signalSelect + ` WHERE id = $1`
	row := r.db.Pool.QueryRow(ctx, query, id)
	return scanSignal(row)
}

// GetOpenSignals retrieves all signals still in OPEN status
func (r *Repository) GetOpenSignals(ctx context.Context) ([]*SignalRecord, error) {
	query := signalSelect + ` WHERE status = 'OPEN' ORDER BY opened_at DESC`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open signals: %w", err)
	}
	defer rows.Close()

	var signals []*SignalRecord
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// MarkTPHit sets the hit flag for one take-profit level. The flag is only
// ever flipped false to true.
func (r *Repository) MarkTPHit(ctx context.Context, id int64, level int) error {
	if level < 1 || level > 3 {
		return fmt.Errorf("invalid tp level %d", level)
	}
	query := fmt.Sprintf(`UPDATE signals SET tp%d_hit = TRUE WHERE id = $1`, level)
	_, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark tp%d hit for signal %d: %w", level, id, err)
	}
	return nil
}

// CloseSignal flips the signal to CLOSED with its realized PnL.
func (r *Repository) CloseSignal(ctx context.Context, id int64, pnl float64) error {
	query := `
		UPDATE signals
		SET status = 'CLOSED', pnl = $2, closed_at = NOW()
		WHERE id = $1 AND status = 'OPEN'
	`
	_, err := r.db.Pool.Exec(ctx, query, id, pnl)
	if err != nil {
		return fmt.Errorf("failed to close signal %d: %w", id, err)
	}
	return nil
}

// AggregateStats returns totals over closed signals: count, winners and the
// summed PnL percentage.
func (r *Repository) AggregateStats(ctx context.Context) (total, wins int, sumPnL float64, err error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl), 0)
		FROM signals
		WHERE status = 'CLOSED'
	`
	err = r.db.Pool.QueryRow(ctx, query).Scan(&total, &wins, &sumPnL)
	if err != nil {
		err = fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return total, wins, sumPnL, err
}

// TPHitCounts returns how many signals reached each take-profit level.
func (r *Repository) TPHitCounts(ctx context.Context) (tp1, tp2, tp3 int, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN tp1_hit THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tp2_hit THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tp3_hit THEN 1 ELSE 0 END), 0)
		FROM signals
	`
	err = r.db.Pool.QueryRow(ctx, query).Scan(&tp1, &tp2, &tp3)
	if err != nil {
		err = fmt.Errorf("failed to count tp hits: %w", err)
	}
	return tp1, tp2, tp3, err
}

// BestPerformers returns the most profitable symbols among closed signals.
func (r *Repository) BestPerformers(ctx context.Context, limit int) ([]SymbolPerformance, error) {
	query := `
		SELECT symbol,
		       COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0) AS wins,
		       COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0) AS losses,
		       COALESCE(SUM(pnl), 0) AS total_pnl
		FROM signals
		WHERE status = 'CLOSED'
		GROUP BY symbol
		ORDER BY total_pnl DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query best performers: %w", err)
	}
	defer rows.Close()

	var performers []SymbolPerformance
	for rows.Next() {
		var p SymbolPerformance
		if err := rows.Scan(&p.Symbol, &p.Total, &p.Wins, &p.Losses, &p.TotalPnL); err != nil {
			return nil, fmt.Errorf("failed to scan performer row: %w", err)
		}
		performers = append(performers, p)
	}
	return performers, rows.Err()
}

// SignalsOpenedSince counts signals created after the cutoff, used by the
// stats surface to scope reports to a window.
func (r *Repository) SignalsOpenedSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM signals WHERE opened_at >= $1`, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent signals: %w", err)
	}
	return count, nil
}

const signalSelect = `
	SELECT id, symbol, side, entry_a, entry_b, stop, tp1, tp2, tp3,
	       confidence, status, pnl, tp1_hit, tp2_hit, tp3_hit, opened_at, closed_at
	FROM signals`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*SignalRecord, error) {
	sig := &SignalRecord{}
	err := row.Scan(
		&sig.ID, &sig.Symbol, &sig.Side, &sig.EntryA, &sig.EntryB,
		&sig.Stop, &sig.TP1, &sig.TP2, &sig.TP3,
		&sig.Confidence, &sig.Status, &sig.PnL,
		&sig.TP1Hit, &sig.TP2Hit, &sig.TP3Hit,
		&sig.OpenedAt, &sig.ClosedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan signal row: %w", err)
	}
	return sig, nil
}
