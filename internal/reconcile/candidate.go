package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// DefaultLookbackDays bounds how far around a batch candidates are drawn.
const DefaultLookbackDays = 90

// CandidateKind says what a candidate record is.
type CandidateKind string

const (
	CandidateTransaction CandidateKind = "transaction"
	CandidateInvoice     CandidateKind = "invoice"
	CandidateBill        CandidateKind = "bill"
)

// Candidate is a book record a bank line may reconcile to. Amount is a
// positive magnitude; Direction is the bank side it is expected on.
type Candidate struct {
	ID           string
	Kind         CandidateKind
	Date         time.Time
	Amount       decimal.Decimal
	Direction    model.Direction
	Description  string
	Counterparty string
	Number       string // document number, "" for transactions
}

// IsDocument reports whether the candidate is an invoice or bill.
func (c Candidate) IsDocument() bool {
	return c.Kind == CandidateInvoice || c.Kind == CandidateBill
}

// FromTransaction builds a candidate from a booked transaction.
func FromTransaction(t model.BookTransaction) Candidate {
	return Candidate{
		ID:           t.ID,
		Kind:         CandidateTransaction,
		Date:         t.Date,
		Amount:       t.Amount.Abs(),
		Direction:    t.Direction(),
		Description:  t.Description,
		Counterparty: t.CounterpartyName,
	}
}

// FromDocument builds a candidate from an invoice or bill. The outstanding
// balance is what a payment is expected to clear, dated at the due date.
func FromDocument(d model.Document) Candidate {
	kind := CandidateInvoice
	if d.Kind == model.KindBill {
		kind = CandidateBill
	}
	return Candidate{
		ID:           d.ID,
		Kind:         kind,
		Date:         d.DueDate,
		Amount:       d.BalanceAmount,
		Direction:    d.Direction(),
		Description:  d.CounterpartyName + " " + d.Number,
		Counterparty: d.CounterpartyName,
		Number:       d.Number,
	}
}

// Window is the inclusive date range candidates must fall in.
type Window struct {
	From, To time.Time
}

// WindowFor returns the range spanning lines widened by lookbackDays on
// both sides. Documents due shortly after a payment still qualify.
func WindowFor(lines []model.RawLine, lookbackDays int) Window {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	var w Window
	for i, l := range lines {
		if i == 0 || l.Date.Before(w.From) {
			w.From = l.Date
		}
		if i == 0 || l.Date.After(w.To) {
			w.To = l.Date
		}
	}
	span := time.Duration(lookbackDays) * 24 * time.Hour
	w.From = w.From.Add(-span)
	w.To = w.To.Add(span)
	return w
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// BuildCandidates collects the records eligible for a batch: active,
// unreconciled transactions and open documents inside w. Transactions
// come first, then documents, each in input order.
func BuildCandidates(txs []model.BookTransaction, docs []model.Document, w Window) []Candidate {
	var out []Candidate
	for _, t := range txs {
		if !t.Active() || t.Reconciled || !w.Contains(t.Date) {
			continue
		}
		out = append(out, FromTransaction(t))
	}
	for _, d := range docs {
		if !d.IsOpen() || !d.BalanceAmount.IsPositive() {
			continue
		}
		// Documents without a due date are always in range.
		if !d.DueDate.IsZero() && !w.Contains(d.DueDate) {
			continue
		}
		out = append(out, FromDocument(d))
	}
	return out
}
