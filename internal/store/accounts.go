package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

const accountColumns = "id, company_id, code, name, type, parent_code, tax_line, description, balance"

// SeedAccounts inserts the chart of accounts for a company. Codes that
// already exist are left untouched, balance included.
func (s *Store) SeedAccounts(ctx context.Context, companyID string, chart []model.Account) (int, error) {
	added := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, a := range chart {
			res, err := tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, '0')
				ON CONFLICT(company_id, code) DO NOTHING`,
				uuid.NewString(), companyID, a.Code, a.Name, string(a.Type), a.ParentCode, a.TaxLine, a.Description)
			if err != nil {
				return fmt.Errorf("inserting account %s: %w", a.Code, err)
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Accounts lists a company's accounts ordered by code.
func (s *Store) Accounts(ctx context.Context, companyID string) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id = ? ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (model.Account, error) {
	var a model.Account
	var typ, balance string
	if err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &typ, &a.ParentCode, &a.TaxLine, &a.Description, &balance); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return model.Account{}, fmt.Errorf("account %s: parsing balance %q: %w", a.Code, balance, err)
	}
	a.Balance = bal
	return a, nil
}

func accountByCode(ctx context.Context, q querier, companyID, code string) (model.Account, bool, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id = ? AND code = ?`, companyID, code)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, fmt.Errorf("reading account %s: %w", code, err)
	}
	return a, true, nil
}
