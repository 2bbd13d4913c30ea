package store

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iammattholland/EscapeBudget-sub002/internal/models"
)

// AccountRepo persists ledger accounts.
type AccountRepo struct {
	q Querier
}

// Insert stores a new account.
func (r *AccountRepo) Insert(ctx context.Context, a *models.Account) error {
	_, err := r.q.ExecContext(ctx, `
	INSERT INTO accounts(id, name, balance, is_tracking_only)
	VALUES(?, ?, ?, ?)`,
		a.ID, a.Name, a.Balance.String(), boolToInt(a.IsTrackingOnly))
	return err
}

// Get returns the account with the given id, or nil when absent.
func (r *AccountRepo) Get(ctx context.Context, id string) (*models.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, balance, is_tracking_only FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetTrackingByName returns a tracking-only account with the given name, or
// nil when none exists. Used to reuse synthetic counterparty accounts.
func (r *AccountRepo) GetTrackingByName(ctx context.Context, name string) (*models.Account, error) {
	row := r.q.QueryRowContext(ctx, `
	SELECT id, name, balance, is_tracking_only FROM accounts
	WHERE name = ? AND is_tracking_only = 1
	ORDER BY id LIMIT 1`, name)
	return scanAccount(row)
}

// UpdateBalance overwrites an account's running balance.
func (r *AccountRepo) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`, balance.String(), id)
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

// AdjustBalance applies a signed delta to an account's running balance.
func (r *AccountRepo) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	a, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return sql.ErrNoRows
	}
	return r.UpdateBalance(ctx, id, a.Balance.Add(delta))
}

// List returns all accounts ordered by name.
func (r *AccountRepo) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, balance, is_tracking_only FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		var (
			a        models.Account
			balance  string
			tracking int
		)
		if err := rows.Scan(&a.ID, &a.Name, &balance, &tracking); err != nil {
			return nil, err
		}
		a.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, err
		}
		a.IsTrackingOnly = tracking != 0
		out = append(out, &a)
	}
	return out, rows.Err()
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		a        models.Account
		balance  string
		tracking int
	)
	err := row.Scan(&a.ID, &a.Name, &balance, &tracking)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	a.IsTrackingOnly = tracking != 0
	return &a, nil
}
