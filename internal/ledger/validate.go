package ledger

import (
	"github.com/shopspring/decimal"
)

// normalize rounds every line to scale and enforces the structural rules:
// at least two lines, exactly one positive side per line, and a total
// imbalance within tolerance. A residual within tolerance is moved onto the
// last line of the lighter side so the returned lines balance exactly.
func normalize(lines []Line, scale int32, tolerance decimal.Decimal) ([]Line, error) {
	if len(lines) < 2 {
		return nil, ErrTooFewLines
	}

	out := make([]Line, len(lines))
	var debit, credit decimal.Decimal
	for i, l := range lines {
		if l.AccountCode == "" {
			return nil, &LineError{Index: i, Reason: "missing account code"}
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return nil, &LineError{Index: i, Code: l.AccountCode, Reason: "amounts must not be negative"}
		}
		l.Debit = l.Debit.Round(scale)
		l.Credit = l.Credit.Round(scale)
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return nil, &LineError{Index: i, Code: l.AccountCode, Reason: "line must have exactly one of debit or credit"}
		}
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
		out[i] = l
	}

	delta := debit.Sub(credit)
	if delta.Abs().GreaterThan(tolerance) {
		return nil, &ImbalanceError{Debit: debit, Credit: credit, Delta: delta}
	}
	if delta.IsZero() {
		return out, nil
	}

	// Credits are short when delta > 0, debits otherwise.
	for i := len(out) - 1; i >= 0; i-- {
		if delta.IsPositive() && out[i].Credit.IsPositive() {
			out[i].Credit = out[i].Credit.Add(delta)
			break
		}
		if delta.IsNegative() && out[i].Debit.IsPositive() {
			out[i].Debit = out[i].Debit.Add(delta.Neg())
			break
		}
	}
	return out, nil
}
