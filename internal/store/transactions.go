package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

const dateLayout = "2006-01-02"

// TransactionRepo persists ledger transactions.
type TransactionRepo struct {
	q Querier
}

const transactionColumns = `id, account_id, date, payee, amount, kind, category_id, transfer_id, external_transfer_label, inbox_dismissed`

// Insert stores a new transaction.
func (r *TransactionRepo) Insert(ctx context.Context, t *models.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO transactions(`+transactionColumns+`)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Date.Format(dateLayout), t.Payee, t.Amount.String(),
		string(t.Kind), t.CategoryID, t.TransferID, t.ExternalTransferLabel,
		boolToInt(t.TransferInboxDismissed))
	return err
}

// Update rewrites all mutable fields of an existing transaction.
func (r *TransactionRepo) Update(ctx context.Context, t *models.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
	UPDATE transactions
	SET account_id = ?, date = ?, payee = ?, amount = ?, kind = ?,
	    category_id = ?, transfer_id = ?, external_transfer_label = ?,
	    inbox_dismissed = ?, updated_at = datetime('now')
	WHERE id = ?`,
		t.AccountID, t.Date.Format(dateLayout), t.Payee, t.Amount.String(),
		string(t.Kind), t.CategoryID, t.TransferID, t.ExternalTransferLabel,
		boolToInt(t.TransferInboxDismissed), t.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a transaction row.
func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

// Get returns the transaction with the given id, or nil when absent.
func (r *TransactionRepo) Get(ctx context.Context, id string) (*models.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByTransferID returns the legs sharing a transfer id, ordered by id for
// a stable result.
func (r *TransactionRepo) GetByTransferID(ctx context.Context, transferID string) ([]*models.Transaction, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE transfer_id = ? ORDER BY id`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// CounterpartQuery describes the predicate for counterpart search. Exact
// amount equality is part of the predicate, not a scored feature: transfers
// must balance exactly.
type CounterpartQuery struct {
	ExcludeAccountID string
	ExcludeID        string
	Amount           decimal.Decimal // exact signed amount the counterpart must carry
	From             time.Time
	To               time.Time
	AllDates         bool
	Limit            int
}

// FindCounterparts returns unlinked, non-ignored, non-externalized
// transactions on other accounts whose amount exactly matches the query. Results are ordered by
// date then id so repeated queries are reproducible.
func (r *TransactionRepo) FindCounterparts(ctx context.Context, q CounterpartQuery) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
	WHERE account_id != ?
	  AND id != ?
	  AND amount = ?
	  AND kind != ?
	  AND transfer_id IS NULL
	  AND external_transfer_label IS NULL`
	args := []interface{}{q.ExcludeAccountID, q.ExcludeID, q.Amount.String(), string(models.KindIgnored)}

	if !q.AllDates {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, q.From.Format(dateLayout), q.To.Format(dateLayout))
	}
	query += ` ORDER BY date, id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// PendingReview lists transfer-flagged transactions awaiting user review:
// unlinked, not externalized, and not dismissed from the inbox.
func (r *TransactionRepo) PendingReview(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
	SELECT `+transactionColumns+` FROM transactions
	WHERE kind = ?
	  AND transfer_id IS NULL
	  AND external_transfer_label IS NULL
	  AND inbox_dismissed = 0
	ORDER BY date DESC, id`, string(models.KindTransfer))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t         models.Transaction
		date      string
		amount    string
		kind      string
		category  sql.NullString
		transfer  sql.NullString
		label     sql.NullString
		dismissed int
	)
	err := row.Scan(&t.ID, &t.AccountID, &date, &t.Payee, &amount, &kind,
		&category, &transfer, &label, &dismissed)
	if err != nil {
		return nil, err
	}

	t.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return nil, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	t.Kind = models.TransactionKind(kind)
	t.CategoryID = nullableString(category)
	t.TransferID = nullableString(transfer)
	t.ExternalTransferLabel = nullableString(label)
	t.TransferInboxDismissed = dismissed != 0
	return &t, nil
}

func collectTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
