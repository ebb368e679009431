package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents the review state of a booked transaction.
type EntryStatus string

const (
	StatusAutoConfirmed EntryStatus = "auto-confirmed"
	StatusPendingReview EntryStatus = "pending-review"
	StatusUserConfirmed EntryStatus = "user-confirmed"
	StatusUserCorrected EntryStatus = "user-corrected"
	StatusCancelled     EntryStatus = "cancelled"
)

// JournalEntry is one leg of a balanced posting.
type JournalEntry struct {
	ID                  string // "YYYY-MM-NNNx" where x = a,b,c...
	CompanyID           string
	AccountID           string
	AccountCode         string
	Date                time.Time
	Debit               decimal.Decimal // zero if credit side
	Credit              decimal.Decimal // zero if debit side
	Description         string
	LinkedTransactionID string
}

// EntryGroup returns the base entry ID (without leg suffix).
// "2025-01-001a" -> "2025-01-001"
func (e JournalEntry) EntryGroup() string {
	id := e.ID
	i := len(id)
	for i > 0 && id[i-1] >= 'a' && id[i-1] <= 'z' {
		i--
	}
	return id[:i]
}

// Totals sums the debit and credit sides of a batch of entries.
func Totals(entries []JournalEntry) (debit, credit decimal.Decimal) {
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}
