package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerflow/internal/accounts"
	"github.com/cleared-dev/ledgerflow/internal/ledger"
	"github.com/cleared-dev/ledgerflow/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.SeedAccounts(context.Background(), "acme", accounts.DefaultChart("private_limited"))
	require.NoError(t, err)
	return s
}

func balances(t *testing.T, s *Store, company string) map[string]decimal.Decimal {
	t.Helper()
	accts, err := s.Accounts(context.Background(), company)
	require.NoError(t, err)
	out := make(map[string]decimal.Decimal, len(accts))
	for _, a := range accts {
		out[a.Code] = a.Balance
	}
	return out
}

func TestSeedAccounts_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	added, err := s.SeedAccounts(ctx, "acme", accounts.DefaultChart("private_limited"))
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	accts, err := s.Accounts(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, accts, len(accounts.DefaultChart("private_limited")))
	assert.Equal(t, "1010", accts[0].Code)
	assert.NotEmpty(t, accts[0].ID)
	assert.True(t, accts[0].Balance.IsZero())
}

func TestPost_UpdatesBalancesAndEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := ledger.NewPoster(s, ledger.DefaultSettings(), zerolog.Nop())

	_, err := p.Post(ctx, ledger.PostRequest{
		CompanyID:   "acme",
		Date:        date(2024, 6, 1),
		Description: "Team lunch",
		Lines: []ledger.Line{
			{AccountCode: "5200", Debit: dec("952.38")},
			{AccountCode: "1300", Debit: dec("47.62")},
			{AccountCode: "1010", Credit: dec("1000")},
		},
	})
	require.NoError(t, err)

	_, err = p.Post(ctx, ledger.PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 3),
		Lines: []ledger.Line{
			{AccountCode: "1010", Debit: dec("11800")},
			{AccountCode: "1200", Credit: dec("11800")},
		},
	})
	require.NoError(t, err)

	b := balances(t, s, "acme")
	assert.True(t, b["5200"].Equal(dec("952.38")))
	assert.True(t, b["1300"].Equal(dec("47.62")))
	assert.True(t, b["1010"].Equal(dec("10800")))
	assert.True(t, b["1200"].Equal(dec("-11800")))

	entries, err := s.Entries(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "2024-06-001a", entries[0].ID)
	assert.Equal(t, "2024-06-002b", entries[4].ID)

	debit, credit := model.Totals(entries)
	assert.True(t, debit.Equal(credit))
}

func TestPost_RejectedLeavesNoTrace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := ledger.NewPoster(s, ledger.DefaultSettings(), zerolog.Nop())

	before := balances(t, s, "acme")

	_, err := p.Post(ctx, ledger.PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []ledger.Line{
			{AccountCode: "5200", Debit: dec("1000")},
			{AccountCode: "1010", Credit: dec("900")},
		},
	})
	var imb *ledger.ImbalanceError
	require.ErrorAs(t, err, &imb)

	_, err = p.Post(ctx, ledger.PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []ledger.Line{
			{AccountCode: "5200", Debit: dec("10")},
			{AccountCode: "7777", Credit: dec("10")},
		},
	})
	var unknown *ledger.UnknownAccountError
	require.ErrorAs(t, err, &unknown)

	entries, err := s.Entries(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, before, balances(t, s, "acme"))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx ledger.Tx) error {
		acct, ok, err := tx.Account(ctx, "acme", "5200")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.SetBalance(ctx, acct.ID, dec("123")))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, balances(t, s, "acme")["5200"].IsZero())
}

func TestTransactions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	end := date(2024, 12, 31)
	txs := []*model.BookTransaction{
		{CompanyID: "acme", Date: date(2024, 1, 5), Amount: dec("-5000"), Description: "UPI-SWIGGY", Category: "Meals", ExpenseType: model.ExpenseRecurring, Frequency: model.FrequencyMonthly, EndDate: &end},
		{CompanyID: "acme", Date: date(2024, 2, 5), Amount: dec("-5100"), Description: "UPI-SWIGGY", Category: "Meals"},
		{CompanyID: "acme", Date: date(2023, 1, 5), Amount: dec("-10"), Description: "old"},
		{CompanyID: "globex", Date: date(2024, 1, 5), Amount: dec("100"), Description: "other company"},
	}
	for _, tx := range txs {
		require.NoError(t, s.CreateTransaction(ctx, tx))
		assert.NotEmpty(t, tx.ID)
	}

	got, err := s.Transactions(ctx, "acme", date(2024, 1, 1), date(2024, 6, 30))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Meals", got[0].Category)
	assert.True(t, got[0].Amount.Equal(dec("-5000")))
	assert.Equal(t, model.FrequencyMonthly, got[0].Frequency)
	require.NotNil(t, got[0].EndDate)
	assert.True(t, got[0].EndDate.Equal(end))
	assert.Equal(t, model.StatusPendingReview, got[1].Status)
	assert.Equal(t, model.ExpenseOneTime, got[1].ExpenseType)

	require.NoError(t, s.MarkReconciled(ctx, got[0].ID))
	require.NoError(t, s.SetTransactionStatus(ctx, got[1].ID, model.StatusCancelled))

	got, err = s.Transactions(ctx, "acme", date(2024, 1, 1), date(2024, 6, 30))
	require.NoError(t, err)
	require.Len(t, got, 1, "cancelled transactions are hidden")
	assert.True(t, got[0].Reconciled)

	assert.Error(t, s.MarkReconciled(ctx, "missing"))
}

func TestDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inv := &model.Document{CompanyID: "acme", Kind: model.KindInvoice, Number: "INV-1042", CounterpartyName: "ABC Corp", TotalAmount: dec("11800"), DueDate: date(2024, 6, 3)}
	bill := &model.Document{CompanyID: "acme", Kind: model.KindBill, Number: "BILL-7", CounterpartyName: "Landlord", TotalAmount: dec("5000"), DueDate: date(2024, 6, 1)}
	require.NoError(t, s.CreateDocument(ctx, inv))
	require.NoError(t, s.CreateDocument(ctx, bill))
	assert.True(t, inv.BalanceAmount.Equal(dec("11800")))

	open, err := s.OpenDocuments(ctx, "acme", model.KindInvoice)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "INV-1042", open[0].Number)
	assert.Equal(t, model.DocOpen, open[0].Status)

	d, err := s.ApplyPayment(ctx, bill.ID, dec("3000"))
	require.NoError(t, err)
	assert.Equal(t, model.DocPartiallyPaid, d.Status)
	assert.True(t, d.BalanceAmount.Equal(dec("2000")))

	_, err = s.ApplyPayment(ctx, bill.ID, dec("2500"))
	assert.ErrorIs(t, err, model.ErrOverpayment)

	stored, err := s.Document(ctx, bill.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(dec("3000")), "failed payment must not persist")

	d, err = s.ApplyPayment(ctx, bill.ID, dec("2000"))
	require.NoError(t, err)
	assert.Equal(t, model.DocPaid, d.Status)

	open, err = s.OpenDocuments(ctx, "acme", model.KindBill)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = s.ApplyPayment(ctx, bill.ID, dec("1"))
	assert.ErrorIs(t, err, model.ErrDocumentClosed)
}

func TestVendors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateVendor(ctx, &model.Vendor{CompanyID: "acme", Name: "Swiggy", DefaultCategory: "Meals"}))
	require.NoError(t, s.CreateVendor(ctx, &model.Vendor{CompanyID: "acme", Name: "Airtel", DefaultCategory: "Utilities"}))
	assert.Error(t, s.CreateVendor(ctx, &model.Vendor{CompanyID: "acme", Name: "Swiggy"}), "names are unique per company")

	vendors, err := s.Vendors(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Airtel", vendors[0].Name)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.SeedAccounts(context.Background(), "acme", accounts.DefaultChart("private_limited"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	accts, err := s.Accounts(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotEmpty(t, accts)
}
