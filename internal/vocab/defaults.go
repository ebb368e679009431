package vocab

import "github.com/cleared-dev/ledgerflow/internal/model"

const (
	debit  = model.DirectionDebit
	credit = model.DirectionCredit
)

// Default returns the built-in vocabulary for Indian small-business bank
// statements. Categories are ordered most specific first.
func Default() *Vocabulary {
	v := &Vocabulary{
		Categories: []Category{
			{Name: "Bank Charges", Direction: debit, AccountCode: "5700", Keywords: []string{
				"bank charges", "service charge", "sms charges", "annual fee", "min bal", "penalty", "chrgs",
			}},
			{Name: "Taxes & Licenses", Direction: debit, AccountCode: "5950", Keywords: []string{
				"gst payment", "gstin", "tds", "advance tax", "income tax", "challan", "professional tax",
			}},
			{Name: "Salaries", Direction: debit, AccountCode: "5010", Keywords: []string{
				"salary", "payroll", "wages", "stipend", "bonus",
			}},
			{Name: "Rent", Direction: debit, AccountCode: "5100", Keywords: []string{
				"rent", "lease", "coworking", "wework",
			}},
			{Name: "Software & Subscriptions", Direction: debit, AccountCode: "5300", Keywords: []string{
				"aws", "google cloud", "gcp", "github", "microsoft", "adobe", "zoom", "slack",
				"atlassian", "notion", "figma", "subscription", "saas", "digitalocean",
			}},
			{Name: "Meals", Direction: debit, AccountCode: "5200", Keywords: []string{
				"swiggy", "zomato", "restaurant", "cafe", "food", "dominos", "starbucks", "lunch", "dinner",
			}},
			{Name: "Travel", Direction: debit, AccountCode: "5210", Keywords: []string{
				"uber", "ola", "rapido", "irctc", "indigo", "vistara", "makemytrip", "airline",
				"flight", "hotel", "taxi", "fuel", "petrol",
			}},
			{Name: "Utilities", Direction: debit, AccountCode: "5400", Keywords: []string{
				"electricity", "water bill", "broadband", "airtel", "jio", "vodafone", "bescom", "internet", "recharge",
			}},
			{Name: "Professional Fees", Direction: debit, AccountCode: "5500", Keywords: []string{
				"consulting", "legal", "ca fees", "audit", "advocate", "professional fees",
			}},
			{Name: "Marketing", Direction: debit, AccountCode: "5600", Keywords: []string{
				"facebook ads", "google ads", "advertising", "marketing", "promotion", "linkedin",
			}},
			{Name: "Insurance", Direction: debit, AccountCode: "5850", Keywords: []string{
				"insurance", "premium", "lic",
			}},
			{Name: "Office Supplies", Direction: debit, AccountCode: "5800", Keywords: []string{
				"amazon", "flipkart", "stationery", "office supplies", "printer",
			}},
			{Name: "Interest Income", Direction: credit, AccountCode: "4020", Keywords: []string{
				"interest", "int pd", "sb int", "int cr",
			}},
			{Name: "Refunds", Direction: credit, AccountCode: "4090", Keywords: []string{
				"refund", "cashback", "reversal",
			}},
			{Name: "Sales", Direction: credit, AccountCode: "4010", Keywords: []string{
				"razorpay", "stripe", "paypal", "settlement", "payment received", "sales",
			}},
		},
		DefaultExpense: "General & Administrative",
		DefaultIncome:  "Other Income",
		DefaultExpAcct: "5900",
		DefaultIncAcct: "4090",
		Vendors: []VendorAlias{
			{Pattern: "swiggy", Name: "Swiggy"},
			{Pattern: "zomato", Name: "Zomato"},
			{Pattern: "amazon", Name: "Amazon"},
			{Pattern: "amazon web services", Name: "Amazon Web Services"},
			{Pattern: "aws", Name: "Amazon Web Services"},
			{Pattern: "uber", Name: "Uber"},
			{Pattern: "ola", Name: "Ola"},
			{Pattern: "github", Name: "GitHub"},
			{Pattern: "google", Name: "Google"},
			{Pattern: "airtel", Name: "Airtel"},
			{Pattern: "jio", Name: "Jio"},
			{Pattern: "irctc", Name: "IRCTC"},
			{Pattern: "flipkart", Name: "Flipkart"},
			{Pattern: "razorpay", Name: "Razorpay"},
			{Pattern: "makemytrip", Name: "MakeMyTrip"},
			{Pattern: "zoom", Name: "Zoom"},
			{Pattern: "slack", Name: "Slack"},
		},
		NoiseTokens: []string{
			"upi", "neft", "imps", "rtgs", "ach", "nach", "ecs", "pos", "ecom", "atm", "atw", "mmt",
			"inb", "ib", "ft", "trf", "transfer", "txn", "ref", "utr", "rrn", "cr", "dr", "debit", "credit",
			"card", "visa", "mastercard", "rupay", "payment", "pmt", "paid", "pay", "to", "from", "by",
			"via", "for", "online", "chq", "cheque", "the", "and", "of", "a", "an", "inv", "invoice",
			"bill", "no", "rs", "inr", "wire", "swift", "cash", "deposit", "withdrawal", "p2a", "p2m",
			"okaxis", "okhdfcbank", "okicici", "oksbi", "ybl", "paytm", "apl", "ibl", "axl",
		},
	}
	if err := v.Validate(); err != nil {
		panic("default vocabulary invalid: " + err.Error())
	}
	return v
}
