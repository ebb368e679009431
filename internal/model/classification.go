package model

// TransactionType is the kind of event a classification describes.
type TransactionType string

const (
	TypeInvoicePayment TransactionType = "invoice_payment"
	TypeBillPayment    TransactionType = "bill_payment"
	TypeIncome         TransactionType = "income"
	TypeExpense        TransactionType = "expense"
)

// ReviewThreshold is the confidence below which a result always needs review.
const ReviewThreshold = 70

// ClassificationResult is the per-call output of the classifier. It is not
// persisted directly; its fields are copied onto a BookTransaction.
type ClassificationResult struct {
	Type             TransactionType
	Category         string
	Confidence       int // 0-100
	CounterpartyName string
	NeedsReview      bool
	ExpenseType      ExpenseType
	Frequency        Frequency
	Strategy         string
	DocumentID       string // set for invoice/bill payments
	Reasoning        []string
}

// IsRecurring reports whether a recurrence interval was detected.
func (r ClassificationResult) IsRecurring() bool {
	return r.ExpenseType == ExpenseRecurring
}
