package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// Header is the CSV header of an exported journal.
var Header = []string{"entry_id", "date", "company_id", "account_code", "description", "debit", "credit", "linked_transaction_id"}

const (
	numFields  = 8
	dateFormat = "2006-01-02"
	colEntryID = 0
	colDate    = 1
	colCompany = 2
	colAcct    = 3
	colDesc    = 4
	colDebit   = 5
	colCredit  = 6
	colLinked  = 7
)

// WriteEntries writes entries as CSV, header first.
func WriteEntries(w io.Writer, entries []model.JournalEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadEntries reads a journal CSV written by WriteEntries.
func ReadEntries(r io.Reader) ([]model.JournalEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []model.JournalEntry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MarshalEntry converts an entry to a CSV row. The zero side is left blank.
func MarshalEntry(e model.JournalEntry) []string {
	row := make([]string, numFields)
	row[colEntryID] = e.ID
	row[colDate] = e.Date.Format(dateFormat)
	row[colCompany] = e.CompanyID
	row[colAcct] = e.AccountCode
	row[colDesc] = e.Description
	if !e.Debit.IsZero() {
		row[colDebit] = e.Debit.StringFixed(2)
	}
	if !e.Credit.IsZero() {
		row[colCredit] = e.Credit.StringFixed(2)
	}
	row[colLinked] = e.LinkedTransactionID
	return row
}

// UnmarshalEntry converts a CSV row to an entry.
func UnmarshalEntry(record []string) (model.JournalEntry, error) {
	if len(record) != numFields {
		return model.JournalEntry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	var debit, credit decimal.Decimal
	if record[colDebit] != "" {
		if debit, err = decimal.NewFromString(record[colDebit]); err != nil {
			return model.JournalEntry{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}
	if record[colCredit] != "" {
		if credit, err = decimal.NewFromString(record[colCredit]); err != nil {
			return model.JournalEntry{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return model.JournalEntry{
		ID:                  record[colEntryID],
		CompanyID:           record[colCompany],
		AccountCode:         record[colAcct],
		Date:                date,
		Debit:               debit,
		Credit:              credit,
		Description:         record[colDesc],
		LinkedTransactionID: record[colLinked],
	}, nil
}
