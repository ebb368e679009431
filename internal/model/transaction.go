package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of the bank account a line moved.
type Direction string

const (
	DirectionCredit Direction = "credit" // money in
	DirectionDebit  Direction = "debit"  // money out
)

// ParseDirection accepts "credit"/"debit" and the common CR/DR short forms.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "credit", "CREDIT", "Credit", "CR", "cr", "C":
		return DirectionCredit, nil
	case "debit", "DEBIT", "Debit", "DR", "dr", "D":
		return DirectionDebit, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// RawLine is one parsed bank-statement row. Amount is a positive magnitude.
type RawLine struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Direction   Direction
	Reference   string
}

// LineError reports a statement line that cannot be classified or matched.
type LineError struct {
	Field  string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the fields every consumer of a line relies on.
func (l RawLine) Validate() error {
	switch {
	case strings.TrimSpace(l.Description) == "":
		return &LineError{Field: "description", Reason: "required"}
	case !l.Amount.IsPositive():
		return &LineError{Field: "amount", Reason: fmt.Sprintf("must be positive, got %s", l.Amount)}
	case l.Date.IsZero():
		return &LineError{Field: "date", Reason: "required"}
	case l.Direction != DirectionCredit && l.Direction != DirectionDebit:
		return &LineError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", l.Direction)}
	}
	return nil
}

// Signed returns the amount with credits positive and debits negative.
func (l RawLine) Signed() decimal.Decimal {
	if l.Direction == DirectionDebit {
		return l.Amount.Neg()
	}
	return l.Amount
}

// LineFromSigned builds a RawLine from a signed amount (negative = money out).
func LineFromSigned(date time.Time, desc string, amount decimal.Decimal, ref string) RawLine {
	dir := DirectionCredit
	if amount.IsNegative() {
		dir = DirectionDebit
	}
	return RawLine{Date: date, Description: desc, Amount: amount.Abs(), Direction: dir, Reference: ref}
}

// ExpenseType distinguishes one-off from repeating transactions.
type ExpenseType string

const (
	ExpenseOneTime   ExpenseType = "one-time"
	ExpenseRecurring ExpenseType = "recurring"
)

// Frequency is a detected recurrence interval.
type Frequency string

const (
	FrequencyNone      Frequency = ""
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// BookTransaction is a persisted financial event. Amount is signed:
// positive for money in, negative for money out.
type BookTransaction struct {
	ID               string
	CompanyID        string
	Date             time.Time
	Amount           decimal.Decimal
	Description      string
	Category         string
	CounterpartyName string
	ExpenseType      ExpenseType
	Frequency        Frequency
	EndDate          *time.Time
	Confidence       int
	Status           EntryStatus
	Reconciled       bool
}

// Direction reports which side of the bank account the transaction hit.
func (t BookTransaction) Direction() Direction {
	if t.Amount.IsNegative() {
		return DirectionDebit
	}
	return DirectionCredit
}

// Active reports whether the transaction has not been soft-cancelled.
func (t BookTransaction) Active() bool {
	return t.Status != StatusCancelled
}
