package accounts

import "github.com/cleared-dev/ledgerflow/internal/model"

// DefaultChart returns the default chart of accounts for an entity type.
// Codes line up with the default vocabulary and ledger config.
func DefaultChart(entityType string) []model.Account {
	chart := baseChart()
	switch entityType {
	case "proprietorship":
		chart = append(chart, model.Account{Code: "3010", Name: "Proprietor's Capital", Type: model.AccountTypeEquity})
	default:
		chart = append(chart, model.Account{Code: "3010", Name: "Share Capital", Type: model.AccountTypeEquity})
	}
	return chart
}

func baseChart() []model.Account {
	return []model.Account{
		{Code: "1010", Name: "Bank - Current Account", Type: model.AccountTypeAsset, Description: "Primary operating account"},
		{Code: "1200", Name: "Accounts Receivable", Type: model.AccountTypeAsset, Description: "Open customer invoices"},
		{Code: "1300", Name: "GST Input Credit", Type: model.AccountTypeAsset, TaxLine: "gstr3b_4a", Description: "Input tax credit on purchases"},
		{Code: "2010", Name: "Accounts Payable", Type: model.AccountTypeLiability, Description: "Open vendor bills"},
		{Code: "2100", Name: "GST Payable", Type: model.AccountTypeLiability, TaxLine: "gstr3b_3_1", Description: "Output tax on sales"},
		{Code: "4010", Name: "Sales Revenue", Type: model.AccountTypeRevenue},
		{Code: "4020", Name: "Interest Income", Type: model.AccountTypeRevenue},
		{Code: "4090", Name: "Other Income", Type: model.AccountTypeRevenue},
		{Code: "5010", Name: "Salaries & Wages", Type: model.AccountTypeExpense},
		{Code: "5100", Name: "Rent", Type: model.AccountTypeExpense},
		{Code: "5200", Name: "Meals & Entertainment", Type: model.AccountTypeExpense},
		{Code: "5210", Name: "Travel & Conveyance", Type: model.AccountTypeExpense},
		{Code: "5300", Name: "Software & Subscriptions", Type: model.AccountTypeExpense},
		{Code: "5400", Name: "Utilities", Type: model.AccountTypeExpense},
		{Code: "5500", Name: "Professional Fees", Type: model.AccountTypeExpense},
		{Code: "5600", Name: "Advertising & Marketing", Type: model.AccountTypeExpense},
		{Code: "5700", Name: "Bank Charges", Type: model.AccountTypeExpense},
		{Code: "5800", Name: "Office Supplies", Type: model.AccountTypeExpense},
		{Code: "5850", Name: "Insurance", Type: model.AccountTypeExpense},
		{Code: "5900", Name: "General & Administrative", Type: model.AccountTypeExpense},
		{Code: "5950", Name: "Taxes & Licenses", Type: model.AccountTypeExpense},
	}
}
