// Package memstore is an in-memory store with the same behaviour as the
// SQLite store. A transaction holds the store mutex for its whole duration
// and restores a snapshot if it fails.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/ledger"
	"github.com/cleared-dev/ledgerflow/internal/model"
)

type state struct {
	accounts     map[string]model.Account // by ID
	entries      []model.JournalEntry
	transactions []model.BookTransaction
	documents    map[string]model.Document
	vendors      []model.Vendor
}

func (s *state) clone() *state {
	c := &state{
		accounts:     make(map[string]model.Account, len(s.accounts)),
		entries:      append([]model.JournalEntry(nil), s.entries...),
		transactions: append([]model.BookTransaction(nil), s.transactions...),
		documents:    make(map[string]model.Document, len(s.documents)),
		vendors:      append([]model.Vendor(nil), s.vendors...),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: &state{
		accounts:  make(map[string]model.Account),
		documents: make(map[string]model.Document),
	}}
}

// WithinTx implements ledger.Store.
func (s *Store) WithinTx(_ context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(memTx{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

type memTx struct {
	st *state
}

func (t memTx) Account(_ context.Context, companyID, code string) (model.Account, bool, error) {
	a, ok := t.st.accountByCode(companyID, code)
	return a, ok, nil
}

func (t memTx) EntryIDs(_ context.Context, companyID string, year, month int) ([]string, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	var ids []string
	for _, e := range t.st.entries {
		if e.CompanyID == companyID && strings.HasPrefix(e.ID, prefix) {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (t memTx) InsertEntries(_ context.Context, entries []model.JournalEntry) error {
	t.st.entries = append(t.st.entries, entries...)
	return nil
}

func (t memTx) SetBalance(_ context.Context, accountID string, balance decimal.Decimal) error {
	a, ok := t.st.accounts[accountID]
	if !ok {
		return fmt.Errorf("updating balance: account %s not found", accountID)
	}
	a.Balance = balance
	t.st.accounts[accountID] = a
	return nil
}

func (s *state) accountByCode(companyID, code string) (model.Account, bool) {
	for _, a := range s.accounts {
		if a.CompanyID == companyID && a.Code == code {
			return a, true
		}
	}
	return model.Account{}, false
}

// SeedAccounts adds chart accounts whose codes are not present yet.
func (s *Store) SeedAccounts(_ context.Context, companyID string, chart []model.Account) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, a := range chart {
		if _, ok := s.st.accountByCode(companyID, a.Code); ok {
			continue
		}
		a.ID = uuid.NewString()
		a.CompanyID = companyID
		a.Balance = decimal.Zero
		s.st.accounts[a.ID] = a
		added++
	}
	return added, nil
}

// Accounts lists a company's accounts ordered by code.
func (s *Store) Accounts(_ context.Context, companyID string) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Account
	for _, a := range s.st.accounts {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Entries lists a company's journal entries in posting order.
func (s *Store) Entries(_ context.Context, companyID string) ([]model.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.JournalEntry
	for _, e := range s.st.entries {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateTransaction stores a copy of t, assigning an ID if empty.
func (s *Store) CreateTransaction(_ context.Context, t *model.BookTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = model.StatusPendingReview
	}
	if t.ExpenseType == "" {
		t.ExpenseType = model.ExpenseOneTime
	}
	s.st.transactions = append(s.st.transactions, *t)
	return nil
}

// Transactions returns active transactions dated within [from, to], oldest first.
func (s *Store) Transactions(_ context.Context, companyID string, from, to time.Time) ([]model.BookTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.BookTransaction
	for _, t := range s.st.transactions {
		if t.CompanyID != companyID || !t.Active() || t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// MarkReconciled flags a transaction as matched to a bank line.
func (s *Store) MarkReconciled(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.st.transactions {
		if s.st.transactions[i].ID == transactionID {
			s.st.transactions[i].Reconciled = true
			return nil
		}
	}
	return fmt.Errorf("marking %s reconciled: transaction not found", transactionID)
}

// SetTransactionStatus moves a transaction to status.
func (s *Store) SetTransactionStatus(_ context.Context, transactionID string, status model.EntryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.st.transactions {
		if s.st.transactions[i].ID == transactionID {
			s.st.transactions[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("setting %s %s: transaction not found", transactionID, status)
}

// CreateDocument stores an invoice or bill.
func (s *Store) CreateDocument(_ context.Context, d *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.st.documents[d.ID] = *d
	return nil
}

// OpenDocuments returns the company's open documents of kind ordered by due date.
func (s *Store) OpenDocuments(_ context.Context, companyID string, kind model.DocumentKind) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Document
	for _, d := range s.st.documents {
		if d.CompanyID == companyID && d.Kind == kind && d.IsOpen() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

// Document loads one document by ID.
func (s *Store) Document(_ context.Context, id string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.st.documents[id]
	if !ok {
		return model.Document{}, fmt.Errorf("document %s not found", id)
	}
	return d, nil
}

// ApplyPayment records a payment against a document.
func (s *Store) ApplyPayment(_ context.Context, documentID string, amount decimal.Decimal) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.st.documents[documentID]
	if !ok {
		return model.Document{}, fmt.Errorf("document %s not found", documentID)
	}
	if err := d.ApplyPayment(amount); err != nil {
		return model.Document{}, err
	}
	s.st.documents[documentID] = d
	return d, nil
}

// CreateVendor stores a known vendor.
func (s *Store) CreateVendor(_ context.Context, v *model.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.st.vendors {
		if existing.CompanyID == v.CompanyID && existing.Name == v.Name {
			return fmt.Errorf("inserting vendor %s: already exists", v.Name)
		}
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	s.st.vendors = append(s.st.vendors, *v)
	return nil
}

// Vendors lists the company's known vendors by name.
func (s *Store) Vendors(_ context.Context, companyID string) ([]model.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Vendor
	for _, v := range s.st.vendors {
		if v.CompanyID == companyID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
