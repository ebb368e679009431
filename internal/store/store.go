// Package store is the SQLite-backed persistence layer. A single connection
// serializes writers; every multi-row write runs inside BEGIN ... COMMIT.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/cleared-dev/ledgerflow/internal/ledger"
)

const dateFormat = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	parent_code TEXT NOT NULL DEFAULT '',
	tax_line TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	balance TEXT NOT NULL DEFAULT '0',
	UNIQUE(company_id, code)
);

CREATE TABLE IF NOT EXISTS journal_entries (
	id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	account_code TEXT NOT NULL,
	date TEXT NOT NULL,
	debit TEXT NOT NULL,
	credit TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	linked_transaction_id TEXT NOT NULL DEFAULT '',
	PRIMARY KEY(company_id, id),
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	date TEXT NOT NULL,
	amount TEXT NOT NULL,
	description TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	counterparty_name TEXT NOT NULL DEFAULT '',
	expense_type TEXT NOT NULL DEFAULT 'one-time',
	frequency TEXT NOT NULL DEFAULT '',
	end_date TEXT,
	confidence INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	reconciled INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_transactions_company_date ON transactions(company_id, date);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	number TEXT NOT NULL,
	counterparty_name TEXT NOT NULL DEFAULT '',
	total_amount TEXT NOT NULL,
	paid_amount TEXT NOT NULL DEFAULT '0',
	balance_amount TEXT NOT NULL,
	status TEXT NOT NULL,
	due_date TEXT NOT NULL,
	UNIQUE(company_id, kind, number)
);

CREATE TABLE IF NOT EXISTS vendors (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	name TEXT NOT NULL,
	default_category TEXT NOT NULL DEFAULT '',
	UNIQUE(company_id, name)
);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQLite database holding accounts, journal entries, book
// transactions, documents and vendors for any number of companies.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	log.Debug().Str("path", path).Msg("database ready")
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn inside one database transaction. It implements ledger.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ledger.Tx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&ledgerTx{q: tx})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
