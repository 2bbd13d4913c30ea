package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

// PatternRepo persists learned transfer patterns, keyed by the canonical
// unordered account pair.
type PatternRepo struct {
	q Querier
}

// Get returns the pattern for an account pair, or nil when none exists.
func (r *PatternRepo) Get(ctx context.Context, pair models.PairKey) (*models.TransferPattern, error) {
	row := r.q.QueryRowContext(ctx, `
	SELECT account_a, account_b, amount_min, amount_max, day_offsets,
	       occurrence_count, confidence, is_active, updated_at
	FROM transfer_patterns WHERE account_a = ? AND account_b = ?`,
		pair.A, pair.B)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Upsert inserts or replaces the pattern row for its pair key.
func (r *PatternRepo) Upsert(ctx context.Context, p *models.TransferPattern) error {
	offsets, err := json.Marshal(p.DayOffsets)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
	INSERT INTO transfer_patterns(
	 account_a, account_b, amount_min, amount_max, day_offsets,
	 occurrence_count, confidence, is_active, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT(account_a, account_b) DO UPDATE SET
	 amount_min = excluded.amount_min,
	 amount_max = excluded.amount_max,
	 day_offsets = excluded.day_offsets,
	 occurrence_count = excluded.occurrence_count,
	 confidence = excluded.confidence,
	 is_active = excluded.is_active,
	 updated_at = excluded.updated_at`,
		p.Pair.A, p.Pair.B, p.AmountMin.String(), p.AmountMax.String(),
		string(offsets), p.OccurrenceCount, p.Confidence, boolToInt(p.IsActive))
	return err
}

// ListReliable returns all patterns meeting the reliability thresholds.
func (r *PatternRepo) ListReliable(ctx context.Context) ([]*models.TransferPattern, error) {
	rows, err := r.q.QueryContext(ctx, `
	SELECT account_a, account_b, amount_min, amount_max, day_offsets,
	       occurrence_count, confidence, is_active, updated_at
	FROM transfer_patterns
	WHERE is_active = 1 AND occurrence_count >= ? AND confidence >= ?
	ORDER BY account_a, account_b`,
		models.ReliableMinOccurrences, models.ReliableMinConfidence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatterns(rows)
}

// List returns all patterns regardless of reliability.
func (r *PatternRepo) List(ctx context.Context) ([]*models.TransferPattern, error) {
	rows, err := r.q.QueryContext(ctx, `
	SELECT account_a, account_b, amount_min, amount_max, day_offsets,
	       occurrence_count, confidence, is_active, updated_at
	FROM transfer_patterns ORDER BY account_a, account_b`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatterns(rows)
}

func scanPattern(row rowScanner) (*models.TransferPattern, error) {
	var (
		p         models.TransferPattern
		amountMin string
		amountMax string
		offsets   string
		active    int
		updatedAt string
	)
	err := row.Scan(&p.Pair.A, &p.Pair.B, &amountMin, &amountMax, &offsets,
		&p.OccurrenceCount, &p.Confidence, &active, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.AmountMin, err = decimal.NewFromString(amountMin)
	if err != nil {
		return nil, err
	}
	p.AmountMax, err = decimal.NewFromString(amountMax)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(offsets), &p.DayOffsets); err != nil {
		return nil, err
	}
	p.IsActive = active != 0
	if t, err := time.Parse("2006-01-02 15:04:05", updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

func collectPatterns(rows *sql.Rows) ([]*models.TransferPattern, error) {
	var out []*models.TransferPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
