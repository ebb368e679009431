package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerflow/internal/accounts"
	"github.com/cleared-dev/ledgerflow/internal/model"
)

// fakeStore keeps state in maps and restores a copy when fn fails.
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]model.Account // keyed by company|code
	entries   []model.JournalEntry
	failOnSet string // account code whose SetBalance fails
}

func newFakeStore(company string) *fakeStore {
	s := &fakeStore{accounts: make(map[string]model.Account)}
	for _, a := range accounts.DefaultChart("private_limited") {
		a.CompanyID = company
		a.ID = company + "-" + a.Code
		s.accounts[company+"|"+a.Code] = a
	}
	return s
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make(map[string]model.Account, len(s.accounts))
	for k, v := range s.accounts {
		saved[k] = v
	}
	savedEntries := len(s.entries)

	if err := fn(fakeTx{s}); err != nil {
		s.accounts = saved
		s.entries = s.entries[:savedEntries]
		return err
	}
	return nil
}

func (s *fakeStore) balance(company, code string) decimal.Decimal {
	return s.accounts[company+"|"+code].Balance
}

type fakeTx struct{ s *fakeStore }

func (t fakeTx) Account(_ context.Context, companyID, code string) (model.Account, bool, error) {
	a, ok := t.s.accounts[companyID+"|"+code]
	return a, ok, nil
}

func (t fakeTx) EntryIDs(_ context.Context, companyID string, _, _ int) ([]string, error) {
	var ids []string
	for _, e := range t.s.entries {
		if e.CompanyID == companyID {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (t fakeTx) InsertEntries(_ context.Context, entries []model.JournalEntry) error {
	t.s.entries = append(t.s.entries, entries...)
	return nil
}

func (t fakeTx) SetBalance(_ context.Context, accountID string, balance decimal.Decimal) error {
	for k, a := range t.s.accounts {
		if a.ID != accountID {
			continue
		}
		if a.Code == t.s.failOnSet {
			return errors.New("disk full")
		}
		a.Balance = balance
		t.s.accounts[k] = a
		return nil
	}
	return fmt.Errorf("no account %s", accountID)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func newPoster(store Store) *Poster {
	return NewPoster(store, DefaultSettings(), zerolog.Nop())
}

func TestPost_Balanced(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	entries, err := p.Post(context.Background(), PostRequest{
		CompanyID:   "acme",
		Date:        date(2024, 6, 1),
		Description: "Team lunch",
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("1000")},
			{AccountCode: "1010", Credit: dec("1000")},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "2024-06-001a", entries[0].ID)
	assert.Equal(t, "2024-06-001b", entries[1].ID)
	assert.Equal(t, "acme-5200", entries[0].AccountID)

	debit, credit := model.Totals(entries)
	assert.True(t, debit.Equal(credit))

	assert.True(t, store.balance("acme", "5200").Equal(dec("1000")), "expense grows on debit")
	assert.True(t, store.balance("acme", "1010").Equal(dec("-1000")), "asset shrinks on credit")
}

func TestPost_CreditNormalAccounts(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	_, err := p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 2),
		Lines: []Line{
			{AccountCode: "1010", Debit: dec("590")},
			{AccountCode: "4010", Credit: dec("500")},
			{AccountCode: "2100", Credit: dec("90")},
		},
	})
	require.NoError(t, err)

	assert.True(t, store.balance("acme", "1010").Equal(dec("590")))
	assert.True(t, store.balance("acme", "4010").Equal(dec("500")), "revenue grows on credit")
	assert.True(t, store.balance("acme", "2100").Equal(dec("90")), "liability grows on credit")
}

func TestPost_Imbalance(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	_, err := p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("1000")},
			{AccountCode: "1010", Credit: dec("900")},
		},
	})
	require.Error(t, err)

	var imb *ImbalanceError
	require.ErrorAs(t, err, &imb)
	assert.True(t, imb.Delta.Equal(dec("100")))
	assert.Contains(t, err.Error(), "100.00")

	assert.Empty(t, store.entries)
	assert.True(t, store.balance("acme", "5200").IsZero())
	assert.True(t, store.balance("acme", "1010").IsZero())
}

func TestPost_UnknownAccount(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	_, err := p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("10")},
			{AccountCode: "9999", Credit: dec("10")},
		},
	})
	var unknown *UnknownAccountError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "9999", unknown.Code)
	assert.Contains(t, err.Error(), "9999")
	assert.Empty(t, store.entries)
}

func TestPost_AccountsAreScopedByCompany(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	_, err := p.Post(context.Background(), PostRequest{
		CompanyID: "globex",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("10")},
			{AccountCode: "1010", Credit: dec("10")},
		},
	})
	var unknown *UnknownAccountError
	assert.ErrorAs(t, err, &unknown)
}

func TestPost_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		check func(t *testing.T, err error)
	}{
		{
			name:  "single line",
			lines: []Line{{AccountCode: "5200", Debit: dec("10")}},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrTooFewLines) },
		},
		{
			name: "both sides",
			lines: []Line{
				{AccountCode: "5200", Debit: dec("10"), Credit: dec("10")},
				{AccountCode: "1010", Credit: dec("10")},
			},
			check: func(t *testing.T, err error) {
				var le *LineError
				assert.ErrorAs(t, err, &le)
			},
		},
		{
			name: "neither side",
			lines: []Line{
				{AccountCode: "5200"},
				{AccountCode: "1010", Credit: dec("10")},
			},
			check: func(t *testing.T, err error) {
				var le *LineError
				require.ErrorAs(t, err, &le)
				assert.Equal(t, 0, le.Index)
			},
		},
		{
			name: "negative amount",
			lines: []Line{
				{AccountCode: "5200", Debit: dec("-10")},
				{AccountCode: "1010", Credit: dec("-10")},
			},
			check: func(t *testing.T, err error) {
				var le *LineError
				assert.ErrorAs(t, err, &le)
			},
		},
		{
			name: "rounds to zero",
			lines: []Line{
				{AccountCode: "5200", Debit: dec("0.001")},
				{AccountCode: "1010", Credit: dec("0.001")},
			},
			check: func(t *testing.T, err error) {
				var le *LineError
				assert.ErrorAs(t, err, &le)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore("acme")
			_, err := newPoster(store).Post(context.Background(), PostRequest{
				CompanyID: "acme", Date: date(2024, 6, 1), Lines: tt.lines,
			})
			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, store.entries)
		})
	}
}

func TestPost_RoundingResidualAbsorbed(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	entries, err := p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("33.333")},
			{AccountCode: "5210", Debit: dec("33.333")},
			{AccountCode: "5800", Debit: dec("33.333")},
			{AccountCode: "1010", Credit: dec("100")},
		},
	})
	require.NoError(t, err)

	debit, credit := model.Totals(entries)
	assert.True(t, debit.Equal(credit), "debit %s credit %s", debit, credit)
	assert.True(t, entries[2].Debit.Equal(dec("33.34")), "last debit line takes the residual")
	assert.True(t, entries[0].Debit.Equal(dec("33.33")))
}

func TestPost_ZeroDecimalCurrency(t *testing.T) {
	store := newFakeStore("acme")
	p := NewPoster(store, Settings{Scale: 0, Tolerance: decimal.Zero}, zerolog.Nop())

	entries, err := p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("1000.4")},
			{AccountCode: "1010", Credit: dec("1000")},
		},
	})
	require.NoError(t, err)
	assert.True(t, entries[0].Debit.Equal(dec("1000")))

	_, err = p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("1001")},
			{AccountCode: "1010", Credit: dec("1000")},
		},
	})
	var imb *ImbalanceError
	assert.ErrorAs(t, err, &imb)
}

func TestPost_FailureRollsBack(t *testing.T) {
	store := newFakeStore("acme")
	store.failOnSet = "1010"
	p := newPoster(store)

	_, err := p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("50")},
			{AccountCode: "1010", Credit: dec("50")},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Empty(t, store.entries)
	assert.True(t, store.balance("acme", "5200").IsZero(), "first balance update must be undone")
}

func TestPost_SequencePerMonth(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	post := func(d time.Time) string {
		entries, err := p.Post(context.Background(), PostRequest{
			CompanyID: "acme",
			Date:      d,
			Lines: []Line{
				{AccountCode: "5200", Debit: dec("1")},
				{AccountCode: "1010", Credit: dec("1")},
			},
		})
		require.NoError(t, err)
		return entries[0].EntryGroup()
	}

	assert.Equal(t, "2024-06-001", post(date(2024, 6, 1)))
	assert.Equal(t, "2024-06-002", post(date(2024, 6, 20)))
	assert.Equal(t, "2024-07-001", post(date(2024, 7, 1)))
	assert.True(t, store.balance("acme", "5200").Equal(dec("3")))
}

func TestPost_SameAccountTwice(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	_, err := p.Post(context.Background(), PostRequest{
		CompanyID: "acme",
		Date:      date(2024, 6, 1),
		Lines: []Line{
			{AccountCode: "5200", Debit: dec("30")},
			{AccountCode: "5200", Debit: dec("20")},
			{AccountCode: "1010", Credit: dec("50")},
		},
	})
	require.NoError(t, err)
	assert.True(t, store.balance("acme", "5200").Equal(dec("50")))
}

func TestPost_ConcurrentPostsSerialize(t *testing.T) {
	store := newFakeStore("acme")
	p := newPoster(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Post(context.Background(), PostRequest{
				CompanyID: "acme",
				Date:      date(2024, 6, 1),
				Lines: []Line{
					{AccountCode: "5200", Debit: dec("10")},
					{AccountCode: "1010", Credit: dec("10")},
				},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, store.balance("acme", "5200").Equal(dec("200")))
	assert.True(t, store.balance("acme", "1010").Equal(dec("-200")))
	assert.Len(t, store.entries, 40)
}
