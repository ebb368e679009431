package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"UPI-SWIGGY-xyz", "upi swiggy xyz"},
		{"  NEFT//PAYMENT  ", "neft payment"},
		{"INV-1042", "inv 1042"},
		{"", ""},
		{"***", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestMatchKeywords_PriorityOrder(t *testing.T) {
	v := Default()

	// "amazon" is an Office Supplies keyword, "aws" is Software; Software is listed first.
	c, kw, ok := v.MatchKeywords("AMAZON AWS INVOICE", model.DirectionDebit)
	require.True(t, ok)
	assert.Equal(t, "Software & Subscriptions", c.Name)
	assert.Equal(t, "aws", kw)
}

func TestMatchKeywords_WholeWord(t *testing.T) {
	v := Default()

	// "ola" must not match inside "cola".
	_, _, ok := v.MatchKeywords("COCA COLA DISTRIBUTORS", model.DirectionDebit)
	assert.False(t, ok)

	c, _, ok := v.MatchKeywords("OLA CABS BLR", model.DirectionDebit)
	require.True(t, ok)
	assert.Equal(t, "Travel", c.Name)
}

func TestMatchKeywords_DirectionScoped(t *testing.T) {
	v := Default()

	c, _, ok := v.MatchKeywords("SB INT PD 30-06", model.DirectionCredit)
	require.True(t, ok)
	assert.Equal(t, "Interest Income", c.Name)

	_, _, ok = v.MatchKeywords("SB INT PD 30-06", model.DirectionDebit)
	assert.False(t, ok)
}

func TestLookupVendor_LongestFirst(t *testing.T) {
	v := Default()
	name, ok := v.LookupVendor("ACH AMAZON WEB SERVICES 8831")
	require.True(t, ok)
	assert.Equal(t, "Amazon Web Services", name)

	_, ok = v.LookupVendor("RANDOM SHOP")
	assert.False(t, ok)
}

func TestAccountFor(t *testing.T) {
	v := Default()
	assert.Equal(t, "5200", v.AccountFor("Meals", model.DirectionDebit))
	assert.Equal(t, "5900", v.AccountFor("Unknown", model.DirectionDebit))
	assert.Equal(t, "4090", v.AccountFor("Unknown", model.DirectionCredit))
}

func TestValidate_Errors(t *testing.T) {
	v := &Vocabulary{DefaultExpense: "x", DefaultIncome: "y", Categories: []Category{
		{Name: "A", Direction: model.DirectionDebit},
		{Name: "A", Direction: model.DirectionDebit},
	}}
	assert.ErrorContains(t, v.Validate(), "duplicate")

	v = &Vocabulary{DefaultExpense: "x", DefaultIncome: "y", Categories: []Category{{Name: "A", Direction: "up"}}}
	assert.ErrorContains(t, v.Validate(), "invalid direction")

	v = &Vocabulary{}
	assert.Error(t, v.Validate())
}

func TestYAMLLoad(t *testing.T) {
	doc := `
categories:
  - name: Coffee
    direction: debit
    account_code: "5201"
    keywords: [blue tokai, third wave]
default_expense: G&A
default_income: Other
default_expense_account: "5900"
default_income_account: "4090"
vendors:
  - pattern: blue tokai
    name: Blue Tokai
noise_tokens: [upi]
`
	var v Vocabulary
	require.NoError(t, yaml.Unmarshal([]byte(doc), &v))
	require.NoError(t, v.Validate())

	c, _, ok := v.MatchKeywords("UPI BLUE TOKAI COFFEE", model.DirectionDebit)
	require.True(t, ok)
	assert.Equal(t, "Coffee", c.Name)
	assert.Equal(t, "5201", v.AccountFor("Coffee", model.DirectionDebit))
	assert.True(t, v.IsNoise("upi"))
}
