package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// SignalStore implements domain.SignalArchive using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a new SignalStore backed by the given connection
// pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const signalSelectCols = `id, strategy, kind, route, tokens, venues, prices,
	spread_bps, notional_usd, gross_profit_usd, gas_cost_usd, flash_fee_usd,
	net_profit_usd, detected_at`

// Insert stores one published signal.
func (s *SignalStore) Insert(ctx context.Context, sig domain.Signal) error {
	const query = `
		INSERT INTO signal_history (
			id, strategy, kind, route, tokens, venues, prices,
			spread_bps, notional_usd, gross_profit_usd, gas_cost_usd,
			flash_fee_usd, net_profit_usd, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14
		)`

	_, err := s.pool.Exec(ctx, query,
		sig.ID, sig.Strategy, string(sig.Kind), sig.Route, sig.Tokens, sig.Venues, sig.Prices,
		sig.SpreadBps, sig.NotionalUSD, sig.GrossProfitUSD, sig.GasCostUSD,
		sig.FlashFeeUSD, sig.NetProfitUSD, sig.DetectedAt(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// ListBefore returns every signal detected strictly before the cutoff,
// oldest first. Used by the cold-storage archiver.
func (s *SignalStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Signal, error) {
	query := `SELECT ` + signalSelectCols + `
		FROM signal_history
		WHERE detected_at < $1
		ORDER BY detected_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals before %s: %w", before, err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// ListRecent returns the most recent signals ordered by detection time
// descending.
func (s *SignalStore) ListRecent(ctx context.Context, limit int) ([]domain.Signal, error) {
	query := `SELECT ` + signalSelectCols + `
		FROM signal_history
		ORDER BY detected_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

func scanSignals(rows pgx.Rows) ([]domain.Signal, error) {
	var out []domain.Signal
	for rows.Next() {
		var (
			sig        domain.Signal
			kind       string
			detectedAt time.Time
		)
		if err := rows.Scan(
			&sig.ID, &sig.Strategy, &kind, &sig.Route, &sig.Tokens, &sig.Venues, &sig.Prices,
			&sig.SpreadBps, &sig.NotionalUSD, &sig.GrossProfitUSD, &sig.GasCostUSD,
			&sig.FlashFeeUSD, &sig.NetProfitUSD, &detectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		sig.Kind = domain.CandidateKind(kind)
		sig.Timestamp = detectedAt.Unix()
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate signals: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.SignalArchive = (*SignalStore)(nil)
