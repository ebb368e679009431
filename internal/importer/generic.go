package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// GenericParser reads the plain statement layout
//
//	date,description,amount,type[,reference]
//
// with ISO dates. When type is empty the amount's sign decides the
// direction; otherwise the amount is taken as a magnitude.
type GenericParser struct{}

const (
	genericDateFormat = "2006-01-02"
	genericColDate    = 0
	genericColDesc    = 1
	genericColAmount  = 2
	genericColType    = 3
	genericColRef     = 4
)

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads a generic statement CSV. The header row is required.
func (p *GenericParser) Parse(r io.Reader) ([]model.RawLine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var lines []model.RawLine
	for i, rec := range records[1:] {
		if len(rec) < 4 || len(rec) > 5 {
			return nil, fmt.Errorf("row %d: expected 4 or 5 fields, got %d", i+2, len(rec))
		}
		l, err := parseGenericRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func parseGenericRow(rec []string) (model.RawLine, error) {
	date, err := time.Parse(genericDateFormat, strings.TrimSpace(rec[genericColDate]))
	if err != nil {
		return model.RawLine{}, fmt.Errorf("parsing date %q: %w", rec[genericColDate], err)
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(rec[genericColAmount]), ",", ""))
	if err != nil {
		return model.RawLine{}, fmt.Errorf("parsing amount %q: %w", rec[genericColAmount], err)
	}
	if amount.IsZero() {
		return model.RawLine{}, fmt.Errorf("zero amount")
	}

	desc := strings.TrimSpace(rec[genericColDesc])
	if desc == "" {
		return model.RawLine{}, fmt.Errorf("empty description")
	}

	var ref string
	if len(rec) > genericColRef {
		ref = strings.TrimSpace(rec[genericColRef])
	}

	typ := strings.TrimSpace(rec[genericColType])
	if typ == "" {
		return model.LineFromSigned(date, desc, amount, ref), nil
	}
	dir, err := model.ParseDirection(typ)
	if err != nil {
		return model.RawLine{}, err
	}
	return model.RawLine{Date: date, Description: desc, Amount: amount.Abs(), Direction: dir, Reference: ref}, nil
}
