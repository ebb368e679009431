package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

// EventKind names a financial event the policy knows how to post.
type EventKind string

const (
	EventExpense         EventKind = "expense"
	EventRevenue         EventKind = "revenue"
	EventPaymentReceived EventKind = "payment_received"
	EventBillPayment     EventKind = "bill_payment"
)

// Event is a classified or matched financial event. Amount is the positive
// gross amount that moved through the bank.
type Event struct {
	Kind                EventKind
	CompanyID           string
	Date                time.Time
	Description         string
	Amount              decimal.Decimal
	Category            string
	LinkedTransactionID string
}

// ControlAccounts are the balance-sheet accounts every event touches.
type ControlAccounts struct {
	Bank       string
	Receivable string
	Payable    string
}

// Policy maps events to journal lines. Category accounts come from the
// vocabulary, tax handling from the regime.
type Policy struct {
	vocab    *vocab.Vocabulary
	tax      TaxRegime
	accounts ControlAccounts
}

// NewPolicy creates a Policy. A nil regime means NoTax.
func NewPolicy(v *vocab.Vocabulary, tax TaxRegime, accounts ControlAccounts) *Policy {
	if tax == nil {
		tax = NoTax{}
	}
	return &Policy{vocab: v, tax: tax, accounts: accounts}
}

// EventFor picks the event kind for a classification result.
func EventFor(t model.TransactionType) EventKind {
	switch t {
	case model.TypeInvoicePayment:
		return EventPaymentReceived
	case model.TypeBillPayment:
		return EventBillPayment
	case model.TypeIncome:
		return EventRevenue
	}
	return EventExpense
}

// Request builds the posting request for ev.
func (p *Policy) Request(ev Event) (PostRequest, error) {
	if !ev.Amount.IsPositive() {
		return PostRequest{}, fmt.Errorf("event %s: amount must be positive, got %s", ev.Kind, ev.Amount)
	}

	req := PostRequest{
		CompanyID:           ev.CompanyID,
		Date:                ev.Date,
		Description:         ev.Description,
		LinkedTransactionID: ev.LinkedTransactionID,
	}

	switch ev.Kind {
	case EventExpense:
		net, tax, taxAcct := p.tax.Split(ev.Category, ev.Amount, model.DirectionDebit)
		req.Lines = append(req.Lines, Line{AccountCode: p.vocab.AccountFor(ev.Category, model.DirectionDebit), Debit: net})
		if taxAcct != "" {
			req.Lines = append(req.Lines, Line{AccountCode: taxAcct, Debit: tax})
		}
		req.Lines = append(req.Lines, Line{AccountCode: p.accounts.Bank, Credit: ev.Amount})
	case EventRevenue:
		net, tax, taxAcct := p.tax.Split(ev.Category, ev.Amount, model.DirectionCredit)
		req.Lines = append(req.Lines, Line{AccountCode: p.accounts.Bank, Debit: ev.Amount})
		req.Lines = append(req.Lines, Line{AccountCode: p.vocab.AccountFor(ev.Category, model.DirectionCredit), Credit: net})
		if taxAcct != "" {
			req.Lines = append(req.Lines, Line{AccountCode: taxAcct, Credit: tax})
		}
	case EventPaymentReceived:
		req.Lines = []Line{
			{AccountCode: p.accounts.Bank, Debit: ev.Amount},
			{AccountCode: p.accounts.Receivable, Credit: ev.Amount},
		}
	case EventBillPayment:
		req.Lines = []Line{
			{AccountCode: p.accounts.Payable, Debit: ev.Amount},
			{AccountCode: p.accounts.Bank, Credit: ev.Amount},
		}
	default:
		return PostRequest{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return req, nil
}

// AccountCodes lists every code the policy can post to, for checking
// against the chart of accounts.
func (p *Policy) AccountCodes() []string {
	codes := []string{p.accounts.Bank, p.accounts.Receivable, p.accounts.Payable,
		p.vocab.DefaultExpAcct, p.vocab.DefaultIncAcct}
	for _, c := range p.vocab.Categories {
		codes = append(codes, c.AccountCode)
	}
	return append(codes, p.tax.Accounts()...)
}
