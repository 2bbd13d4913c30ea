// Package store provides SQLite persistence for the transfer engine:
// transactions, accounts, and learned transfer patterns. All mutating
// engine transitions run inside a single store transaction via WithTx.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, letting the same repo
// methods run standalone or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store owns the database handle and exposes repositories bound to it.
type Store struct {
	db *sql.DB

	Transactions *TransactionRepo
	Accounts     *AccountRepo
	Patterns     *PatternRepo
}

// Open opens the SQLite database at path, applies pending migrations, and
// returns a ready store. The connection pool is capped at one connection:
// the engine follows a single-writer discipline and SQLite rewards it.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	return newStore(db), nil
}

// OpenMemory opens a throwaway in-memory database, used by tests.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

func newStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Transactions: &TransactionRepo{q: db},
		Accounts:     &AccountRepo{q: db},
		Patterns:     &PatternRepo{q: db},
	}
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx exposes the repositories bound to one open transaction.
type Tx struct {
	Transactions *TransactionRepo
	Accounts     *AccountRepo
	Patterns     *PatternRepo
}

// WithTx runs fn inside one database transaction. The transaction commits
// only if fn returns nil; any error rolls the whole transaction back, so a
// transition either lands completely or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	tx := &Tx{
		Transactions: &TransactionRepo{q: sqlTx},
		Accounts:     &AccountRepo{q: sqlTx},
		Patterns:     &PatternRepo{q: sqlTx},
	}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}
