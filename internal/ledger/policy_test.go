package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerflow/internal/accounts"
	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

var control = ControlAccounts{Bank: "1010", Receivable: "1200", Payable: "2010"}

func gst() GST {
	return GST{
		DefaultRate: decimal.Zero,
		Rates: map[string]decimal.Decimal{
			"Software & Subscriptions": dec("18"),
			"Meals":                    dec("5"),
			"Sales":                    dec("18"),
		},
		InputAccount:  "1300",
		OutputAccount: "2100",
		Scale:         2,
	}
}

func sumLines(lines []Line) (debit, credit decimal.Decimal) {
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

func TestPolicy_ExpenseWithGST(t *testing.T) {
	p := NewPolicy(vocab.Default(), gst(), control)

	req, err := p.Request(Event{
		Kind:      EventExpense,
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Amount:    dec("1180"),
		Category:  "Software & Subscriptions",
	})
	require.NoError(t, err)
	require.Len(t, req.Lines, 3)

	assert.Equal(t, "5300", req.Lines[0].AccountCode)
	assert.True(t, req.Lines[0].Debit.Equal(dec("1000")))
	assert.Equal(t, "1300", req.Lines[1].AccountCode)
	assert.True(t, req.Lines[1].Debit.Equal(dec("180")))
	assert.Equal(t, "1010", req.Lines[2].AccountCode)
	assert.True(t, req.Lines[2].Credit.Equal(dec("1180")))

	d, c := sumLines(req.Lines)
	assert.True(t, d.Equal(c))
}

func TestPolicy_RevenueWithGST(t *testing.T) {
	p := NewPolicy(vocab.Default(), gst(), control)

	req, err := p.Request(Event{Kind: EventRevenue, CompanyID: "acme", Date: date(2024, 6, 1), Amount: dec("590"), Category: "Sales"})
	require.NoError(t, err)
	require.Len(t, req.Lines, 3)
	assert.Equal(t, "1010", req.Lines[0].AccountCode)
	assert.Equal(t, "4010", req.Lines[1].AccountCode)
	assert.True(t, req.Lines[1].Credit.Equal(dec("500")))
	assert.Equal(t, "2100", req.Lines[2].AccountCode)
	assert.True(t, req.Lines[2].Credit.Equal(dec("90")))
}

func TestPolicy_UntaxedCategory(t *testing.T) {
	p := NewPolicy(vocab.Default(), gst(), control)

	req, err := p.Request(Event{Kind: EventExpense, CompanyID: "acme", Date: date(2024, 6, 1), Amount: dec("250"), Category: "Unknown Thing"})
	require.NoError(t, err)
	require.Len(t, req.Lines, 2, "zero default rate adds no tax line")
	assert.Equal(t, "5900", req.Lines[0].AccountCode, "unknown categories go to the default expense account")
}

func TestPolicy_GSTRoundingStaysBalanced(t *testing.T) {
	p := NewPolicy(vocab.Default(), gst(), control)

	req, err := p.Request(Event{Kind: EventExpense, CompanyID: "acme", Date: date(2024, 6, 1), Amount: dec("999.99"), Category: "Meals"})
	require.NoError(t, err)
	d, c := sumLines(req.Lines)
	assert.True(t, d.Equal(c), "debit %s credit %s", d, c)
}

func TestPolicy_NoTax(t *testing.T) {
	p := NewPolicy(vocab.Default(), nil, control)

	req, err := p.Request(Event{Kind: EventExpense, CompanyID: "acme", Date: date(2024, 6, 1), Amount: dec("1180"), Category: "Software & Subscriptions"})
	require.NoError(t, err)
	require.Len(t, req.Lines, 2)
	assert.True(t, req.Lines[0].Debit.Equal(dec("1180")))
}

func TestPolicy_Payments(t *testing.T) {
	p := NewPolicy(vocab.Default(), gst(), control)

	req, err := p.Request(Event{Kind: EventPaymentReceived, CompanyID: "acme", Date: date(2024, 6, 1), Amount: dec("11800")})
	require.NoError(t, err)
	assert.Equal(t, []Line{
		{AccountCode: "1010", Debit: dec("11800")},
		{AccountCode: "1200", Credit: dec("11800")},
	}, req.Lines)

	req, err = p.Request(Event{Kind: EventBillPayment, CompanyID: "acme", Date: date(2024, 6, 1), Amount: dec("5000")})
	require.NoError(t, err)
	assert.Equal(t, "2010", req.Lines[0].AccountCode)
	assert.Equal(t, "1010", req.Lines[1].AccountCode)
}

func TestPolicy_Errors(t *testing.T) {
	p := NewPolicy(vocab.Default(), gst(), control)

	_, err := p.Request(Event{Kind: EventExpense, Amount: decimal.Zero})
	assert.Error(t, err)

	_, err = p.Request(Event{Kind: "refund", Amount: dec("1")})
	assert.ErrorContains(t, err, "unknown event kind")
}

func TestEventFor(t *testing.T) {
	assert.Equal(t, EventPaymentReceived, EventFor(model.TypeInvoicePayment))
	assert.Equal(t, EventBillPayment, EventFor(model.TypeBillPayment))
	assert.Equal(t, EventRevenue, EventFor(model.TypeIncome))
	assert.Equal(t, EventExpense, EventFor(model.TypeExpense))
}

func TestPolicy_AccountCodesExistInDefaultChart(t *testing.T) {
	p := NewPolicy(vocab.Default(), gst(), control)
	chart := accounts.NewService(accounts.DefaultChart("private_limited"))
	assert.Empty(t, chart.Missing(p.AccountCodes()...))
}
