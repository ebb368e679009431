package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

const transactionColumns = `id, company_id, date, amount, description, category, counterparty_name,
	expense_type, frequency, end_date, confidence, status, reconciled`

// CreateTransaction inserts a book transaction, assigning an ID if empty.
func (s *Store) CreateTransaction(ctx context.Context, t *model.BookTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = model.StatusPendingReview
	}
	if t.ExpenseType == "" {
		t.ExpenseType = model.ExpenseOneTime
	}
	var end sql.NullString
	if t.EndDate != nil {
		end = sql.NullString{String: formatDate(*t.EndDate), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CompanyID, formatDate(t.Date), t.Amount.String(), t.Description, t.Category, t.CounterpartyName,
		string(t.ExpenseType), string(t.Frequency), end, t.Confidence, string(t.Status), t.Reconciled)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

// Transactions returns active (not cancelled) transactions dated within
// [from, to], oldest first.
func (s *Store) Transactions(ctx context.Context, companyID string, from, to time.Time) ([]model.BookTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE company_id = ? AND date >= ? AND date <= ? AND status != ?
		ORDER BY date, id`,
		companyID, formatDate(from), formatDate(to), string(model.StatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []model.BookTransaction
	for rows.Next() {
		var t model.BookTransaction
		var d, amount, expType, freq, status string
		var end sql.NullString
		if err := rows.Scan(&t.ID, &t.CompanyID, &d, &amount, &t.Description, &t.Category, &t.CounterpartyName,
			&expType, &freq, &end, &t.Confidence, &status, &t.Reconciled); err != nil {
			return nil, err
		}
		if t.Date, err = parseDate(d); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: parsing amount: %w", t.ID, err)
		}
		if end.Valid {
			e, err := parseDate(end.String)
			if err != nil {
				return nil, err
			}
			t.EndDate = &e
		}
		t.ExpenseType = model.ExpenseType(expType)
		t.Frequency = model.Frequency(freq)
		t.Status = model.EntryStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkReconciled flags a transaction as matched to a bank line.
func (s *Store) MarkReconciled(ctx context.Context, transactionID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET reconciled = 1 WHERE id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("marking %s reconciled: %w", transactionID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("marking %s reconciled: transaction not found", transactionID)
	}
	return nil
}

// SetTransactionStatus moves a transaction to status. Cancelled
// transactions stay in the table but drop out of Transactions.
func (s *Store) SetTransactionStatus(ctx context.Context, transactionID string, status model.EntryStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET status = ? WHERE id = ?`, string(status), transactionID)
	if err != nil {
		return fmt.Errorf("setting %s %s: %w", transactionID, status, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("setting %s %s: transaction not found", transactionID, status)
	}
	return nil
}
