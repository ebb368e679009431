package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind separates receivables (invoices) from payables (bills).
type DocumentKind string

const (
	KindInvoice DocumentKind = "invoice"
	KindBill    DocumentKind = "bill"
)

// DocumentStatus is the payment state of an invoice or bill.
type DocumentStatus string

const (
	DocOpen          DocumentStatus = "open"
	DocOverdue       DocumentStatus = "overdue"
	DocPartiallyPaid DocumentStatus = "partially_paid"
	DocPaid          DocumentStatus = "paid"
	DocCancelled     DocumentStatus = "cancelled"
)

var (
	// ErrOverpayment is returned when a payment exceeds the outstanding balance.
	ErrOverpayment = errors.New("payment exceeds outstanding balance")
	// ErrDocumentClosed is returned when paying a paid or cancelled document.
	ErrDocumentClosed = errors.New("document is not open")
)

// Document is an invoice (money expected in) or a bill (money expected out).
type Document struct {
	ID               string
	CompanyID        string
	Kind             DocumentKind
	Number           string
	CounterpartyName string
	TotalAmount      decimal.Decimal
	PaidAmount       decimal.Decimal
	BalanceAmount    decimal.Decimal
	Status           DocumentStatus
	DueDate          time.Time
}

// IsOpen reports whether the document still expects payment.
func (d Document) IsOpen() bool {
	switch d.Status {
	case DocOpen, DocOverdue, DocPartiallyPaid:
		return true
	}
	return false
}

// Direction is the bank-side direction a payment of this document takes.
func (d Document) Direction() Direction {
	if d.Kind == KindBill {
		return DirectionDebit
	}
	return DirectionCredit
}

// ApplyPayment records a payment against the document, keeping
// BalanceAmount = TotalAmount - PaidAmount >= 0 and moving status forward only.
func (d *Document) ApplyPayment(amount decimal.Decimal) error {
	if !d.IsOpen() {
		return fmt.Errorf("%s %s: %w", d.Kind, d.Number, ErrDocumentClosed)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%s %s: payment must be positive, got %s", d.Kind, d.Number, amount)
	}
	paid := d.PaidAmount.Add(amount)
	if paid.GreaterThan(d.TotalAmount) {
		return fmt.Errorf("%s %s: paying %s against balance %s: %w",
			d.Kind, d.Number, amount.StringFixed(2), d.BalanceAmount.StringFixed(2), ErrOverpayment)
	}
	d.PaidAmount = paid
	d.BalanceAmount = d.TotalAmount.Sub(paid)
	if d.BalanceAmount.IsZero() {
		d.Status = DocPaid
	} else {
		d.Status = DocPartiallyPaid
	}
	return nil
}

// Vendor is a known counterparty with an optional default category.
type Vendor struct {
	ID              string
	CompanyID       string
	Name            string
	DefaultCategory string
}
