package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// ledgerTx implements ledger.Tx over an open SQL transaction.
type ledgerTx struct {
	q querier
}

func (t *ledgerTx) Account(ctx context.Context, companyID, code string) (model.Account, bool, error) {
	return accountByCode(ctx, t.q, companyID, code)
}

func (t *ledgerTx) EntryIDs(ctx context.Context, companyID string, year, month int) ([]string, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	rows, err := t.q.QueryContext(ctx, `SELECT id FROM journal_entries WHERE company_id = ? AND id LIKE ?`, companyID, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("querying entry ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *ledgerTx) InsertEntries(ctx context.Context, entries []model.JournalEntry) error {
	for _, e := range entries {
		_, err := t.q.ExecContext(ctx, `INSERT INTO journal_entries
			(id, company_id, account_id, account_code, date, debit, credit, description, linked_transaction_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.CompanyID, e.AccountID, e.AccountCode, formatDate(e.Date),
			e.Debit.String(), e.Credit.String(), e.Description, e.LinkedTransactionID)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
	}
	return nil
}

func (t *ledgerTx) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	res, err := t.q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, balance.String(), accountID)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("updating balance: account %s not found", accountID)
	}
	return nil
}

// Entries lists a company's journal entries in posting order.
func (s *Store) Entries(ctx context.Context, companyID string) ([]model.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, company_id, account_id, account_code, date, debit, credit, description, linked_transaction_id
		FROM journal_entries WHERE company_id = ? ORDER BY date, id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		var d, debit, credit string
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.AccountID, &e.AccountCode, &d, &debit, &credit, &e.Description, &e.LinkedTransactionID); err != nil {
			return nil, err
		}
		if e.Date, err = parseDate(d); err != nil {
			return nil, err
		}
		if e.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("entry %s: parsing debit: %w", e.ID, err)
		}
		if e.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("entry %s: parsing credit: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
