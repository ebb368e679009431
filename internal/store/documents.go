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

const documentColumns = `id, company_id, kind, number, counterparty_name, total_amount, paid_amount,
	balance_amount, status, due_date`

// CreateDocument inserts an invoice or bill. Balance and status are derived
// from the totals when left empty.
func (s *Store) CreateDocument(ctx context.Context, d *model.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = model.DocOpen
	}
	d.BalanceAmount = d.TotalAmount.Sub(d.PaidAmount)
	if d.BalanceAmount.IsNegative() {
		return fmt.Errorf("%s %s: %w", d.Kind, d.Number, model.ErrOverpayment)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CompanyID, string(d.Kind), d.Number, d.CounterpartyName, d.TotalAmount.String(),
		d.PaidAmount.String(), d.BalanceAmount.String(), string(d.Status), formatDate(d.DueDate))
	if err != nil {
		return fmt.Errorf("inserting %s %s: %w", d.Kind, d.Number, err)
	}
	return nil
}

// OpenDocuments returns the company's documents of kind that still expect payment.
func (s *Store) OpenDocuments(ctx context.Context, companyID string, kind model.DocumentKind) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE company_id = ? AND kind = ? AND status IN (?, ?, ?)
		ORDER BY due_date, number`,
		companyID, string(kind), string(model.DocOpen), string(model.DocOverdue), string(model.DocPartiallyPaid))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Document loads one document by ID.
func (s *Store) Document(ctx context.Context, id string) (model.Document, error) {
	return documentByID(ctx, s.db, id)
}

// ApplyPayment records a payment against a document atomically and
// returns the updated document.
func (s *Store) ApplyPayment(ctx context.Context, documentID string, amount decimal.Decimal) (model.Document, error) {
	var doc model.Document
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		d, err := documentByID(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if err := d.ApplyPayment(amount); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE documents SET paid_amount = ?, balance_amount = ?, status = ? WHERE id = ?`,
			d.PaidAmount.String(), d.BalanceAmount.String(), string(d.Status), d.ID)
		if err != nil {
			return fmt.Errorf("updating %s %s: %w", d.Kind, d.Number, err)
		}
		doc = d
		return nil
	})
	return doc, err
}

func documentByID(ctx context.Context, q querier, id string) (model.Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, fmt.Errorf("document %s not found", id)
	}
	return d, err
}

func scanDocument(row scanner) (model.Document, error) {
	var d model.Document
	var kind, total, paid, balance, status, due string
	if err := row.Scan(&d.ID, &d.CompanyID, &kind, &d.Number, &d.CounterpartyName, &total, &paid, &balance, &status, &due); err != nil {
		return model.Document{}, err
	}
	var err error
	if d.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return model.Document{}, fmt.Errorf("document %s: parsing total: %w", d.ID, err)
	}
	if d.PaidAmount, err = decimal.NewFromString(paid); err != nil {
		return model.Document{}, fmt.Errorf("document %s: parsing paid: %w", d.ID, err)
	}
	if d.BalanceAmount, err = decimal.NewFromString(balance); err != nil {
		return model.Document{}, fmt.Errorf("document %s: parsing balance: %w", d.ID, err)
	}
	if d.DueDate, err = parseDate(due); err != nil {
		return model.Document{}, err
	}
	d.Kind = model.DocumentKind(kind)
	d.Status = model.DocumentStatus(status)
	return d, nil
}

// CreateVendor inserts a known vendor.
func (s *Store) CreateVendor(ctx context.Context, v *model.Vendor) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO vendors (id, company_id, name, default_category) VALUES (?, ?, ?, ?)`,
		v.ID, v.CompanyID, v.Name, v.DefaultCategory)
	if err != nil {
		return fmt.Errorf("inserting vendor %s: %w", v.Name, err)
	}
	return nil
}

// Vendors lists the company's known vendors.
func (s *Store) Vendors(ctx context.Context, companyID string) ([]model.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, company_id, name, default_category FROM vendors WHERE company_id = ? ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying vendors: %w", err)
	}
	defer rows.Close()

	var out []model.Vendor
	for rows.Next() {
		var v model.Vendor
		if err := rows.Scan(&v.ID, &v.CompanyID, &v.Name, &v.DefaultCategory); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
