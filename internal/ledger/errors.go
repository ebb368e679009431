package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrTooFewLines is returned when a post has fewer than two lines.
var ErrTooFewLines = errors.New("a journal entry needs at least two lines")

// ImbalanceError is returned when debits and credits differ by more than
// the configured tolerance.
type ImbalanceError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
	Delta  decimal.Decimal // Debit - Credit
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("journal entry does not balance: debits %s, credits %s (imbalance of %s)",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2), e.Delta.Abs().StringFixed(2))
}

// UnknownAccountError names an account code that does not exist for the company.
type UnknownAccountError struct {
	CompanyID string
	Code      string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("unknown account code %q for company %s", e.Code, e.CompanyID)
}

// LineError reports a structurally invalid line.
type LineError struct {
	Index  int
	Code   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %s", e.Index+1, e.Code, e.Reason)
}
