package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// TaxRegime splits a tax-inclusive amount into its net and tax parts.
type TaxRegime interface {
	Name() string
	// Split returns the net amount, the tax amount and the account that
	// carries the tax. account is "" when no tax applies.
	Split(category string, gross decimal.Decimal, dir model.Direction) (net, tax decimal.Decimal, account string)
	// Accounts lists every account code the regime may post to.
	Accounts() []string
}

// NoTax posts gross amounts unchanged.
type NoTax struct{}

func (NoTax) Name() string { return "none" }

func (NoTax) Split(_ string, gross decimal.Decimal, _ model.Direction) (decimal.Decimal, decimal.Decimal, string) {
	return gross, decimal.Zero, ""
}

func (NoTax) Accounts() []string { return nil }

// GST splits tax-inclusive amounts using per-category rates (percent).
// Purchases book the tax to InputAccount, sales to OutputAccount.
type GST struct {
	DefaultRate   decimal.Decimal
	Rates         map[string]decimal.Decimal
	InputAccount  string
	OutputAccount string
	Scale         int32
}

func (g GST) Name() string { return "gst" }

// Rate returns the percentage rate for category.
func (g GST) Rate(category string) decimal.Decimal {
	if r, ok := g.Rates[category]; ok {
		return r
	}
	return g.DefaultRate
}

func (g GST) Split(category string, gross decimal.Decimal, dir model.Direction) (decimal.Decimal, decimal.Decimal, string) {
	rate := g.Rate(category)
	if !rate.IsPositive() {
		return gross, decimal.Zero, ""
	}
	divisor := decimal.NewFromInt(100).Add(rate)
	net := gross.Mul(decimal.NewFromInt(100)).Div(divisor).Round(g.Scale)
	tax := gross.Sub(net)
	if !tax.IsPositive() {
		return gross, decimal.Zero, ""
	}
	if dir == model.DirectionCredit {
		return net, tax, g.OutputAccount
	}
	return net, tax, g.InputAccount
}

func (g GST) Accounts() []string {
	return []string{g.InputAccount, g.OutputAccount}
}
