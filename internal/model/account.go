package model

import "github.com/shopspring/decimal"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether the account grows on the debit side.
// Assets and expenses are debit-normal; liabilities, equity and revenue are credit-normal.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account is a chart-of-accounts row for one company.
type Account struct {
	ID          string
	CompanyID   string
	Code        string
	Name        string
	Type        AccountType
	ParentCode  string // "" = top-level
	TaxLine     string
	Description string
	Balance     decimal.Decimal // derived; only posting changes it
}

// BalanceDelta returns the change to the running balance caused by a
// debit/credit pair on an account of type t.
func BalanceDelta(t AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}
