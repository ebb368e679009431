// Package ledger turns financial events into balanced journal entries and
// applies them, with the account balance updates, as one atomic unit.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/id"
	"github.com/cleared-dev/ledgerflow/internal/model"
)

// Line is one requested leg of a posting. Exactly one side is positive.
type Line struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// PostRequest is a batch of lines to post together.
type PostRequest struct {
	CompanyID           string
	Date                time.Time
	Description         string
	LinkedTransactionID string
	Lines               []Line
}

// Tx is the store view available inside one atomic posting unit.
type Tx interface {
	// Account resolves a code for a company. ok is false when it does not exist.
	Account(ctx context.Context, companyID, code string) (acct model.Account, ok bool, err error)
	// EntryIDs lists the journal entry IDs already used by the company in a month.
	EntryIDs(ctx context.Context, companyID string, year, month int) ([]string, error)
	InsertEntries(ctx context.Context, entries []model.JournalEntry) error
	SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
}

// Store runs fn atomically: if fn returns an error nothing it wrote is kept.
type Store interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

// Settings control rounding. Scale is the currency's decimal places and
// Tolerance the largest imbalance absorbed by rounding.
type Settings struct {
	Scale     int32
	Tolerance decimal.Decimal
}

// DefaultSettings suit two-decimal currencies.
func DefaultSettings() Settings {
	return Settings{Scale: 2, Tolerance: decimal.NewFromFloat(0.01)}
}

// Poster validates and applies journal postings.
type Poster struct {
	store    Store
	settings Settings
	log      zerolog.Logger
}

// NewPoster creates a Poster over store.
func NewPoster(store Store, settings Settings, log zerolog.Logger) *Poster {
	return &Poster{store: store, settings: settings, log: log.With().Str("component", "ledger").Logger()}
}

// Post validates req and, in one transaction, inserts its journal entries
// and updates the running balance of every referenced account. On any error
// nothing is written.
func (p *Poster) Post(ctx context.Context, req PostRequest) ([]model.JournalEntry, error) {
	if req.CompanyID == "" {
		return nil, fmt.Errorf("posting: missing company")
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("posting: missing date")
	}

	lines, err := normalize(req.Lines, p.settings.Scale, p.settings.Tolerance)
	if err != nil {
		return nil, err
	}

	var entries []model.JournalEntry
	err = p.store.WithinTx(ctx, func(tx Tx) error {
		accts := make(map[string]model.Account, len(lines))
		for _, l := range lines {
			if _, seen := accts[l.AccountCode]; seen {
				continue
			}
			acct, ok, err := tx.Account(ctx, req.CompanyID, l.AccountCode)
			if err != nil {
				return fmt.Errorf("looking up account %s: %w", l.AccountCode, err)
			}
			if !ok {
				return &UnknownAccountError{CompanyID: req.CompanyID, Code: l.AccountCode}
			}
			accts[l.AccountCode] = acct
		}

		year, month := req.Date.Year(), int(req.Date.Month())
		used, err := tx.EntryIDs(ctx, req.CompanyID, year, month)
		if err != nil {
			return fmt.Errorf("reading entry ids: %w", err)
		}
		entryID := id.FormatEntryID(year, month, id.NextSeq(used, year, month))

		entries = make([]model.JournalEntry, len(lines))
		deltas := make(map[string]decimal.Decimal)
		for i, l := range lines {
			acct := accts[l.AccountCode]
			entries[i] = model.JournalEntry{
				ID:                  id.FormatLegID(entryID, i),
				CompanyID:           req.CompanyID,
				AccountID:           acct.ID,
				AccountCode:         acct.Code,
				Date:                req.Date,
				Debit:               l.Debit,
				Credit:              l.Credit,
				Description:         req.Description,
				LinkedTransactionID: req.LinkedTransactionID,
			}
			deltas[acct.Code] = deltas[acct.Code].Add(model.BalanceDelta(acct.Type, l.Debit, l.Credit))
		}

		if err := tx.InsertEntries(ctx, entries); err != nil {
			return fmt.Errorf("inserting entries: %w", err)
		}

		// Read-increment-write per account, in line order for a stable lock order.
		for _, l := range lines {
			delta, pending := deltas[l.AccountCode]
			if !pending {
				continue
			}
			delete(deltas, l.AccountCode)
			current, _, err := tx.Account(ctx, req.CompanyID, l.AccountCode)
			if err != nil {
				return fmt.Errorf("re-reading account %s: %w", l.AccountCode, err)
			}
			if err := tx.SetBalance(ctx, current.ID, current.Balance.Add(delta)); err != nil {
				return fmt.Errorf("updating balance of %s: %w", l.AccountCode, err)
			}
		}
		return nil
	})
	if err != nil {
		p.log.Warn().Err(err).Str("company", req.CompanyID).Str("description", req.Description).Msg("posting rejected")
		return nil, err
	}

	p.log.Debug().Str("company", req.CompanyID).Str("entry", id.EntryGroup(entries[0].ID)).
		Int("lines", len(entries)).Msg("posted")
	return entries, nil
}
