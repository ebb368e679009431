// Package classifier assigns a category, counterparty and recurrence to a
// single bank transaction by running an ordered cascade of strategies. The
// first strategy that produces a result wins; the last one always does.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/extract"
	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

// Input is one transaction to classify.
type Input struct {
	CompanyID   string
	Date        time.Time
	Description string
	Amount      decimal.Decimal // positive magnitude
	Direction   model.Direction
}

// InputFromLine builds an Input from a parsed bank line.
func InputFromLine(companyID string, l model.RawLine) Input {
	return Input{CompanyID: companyID, Date: l.Date, Description: l.Description, Amount: l.Amount, Direction: l.Direction}
}

// InputError reports structurally invalid input. It is the only error
// Classify returns.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the required fields. Line fields are checked by
// model.RawLine.Validate.
func (in Input) Validate() error {
	if in.CompanyID == "" {
		return &InputError{Field: "company", Reason: "required"}
	}
	line := model.RawLine{Date: in.Date, Description: in.Description, Amount: in.Amount, Direction: in.Direction}
	var le *model.LineError
	if err := line.Validate(); errors.As(err, &le) {
		return &InputError{Field: le.Field, Reason: le.Reason}
	}
	return nil
}

// Hash is a short stable fingerprint of the input, used in logs and as the
// cache key.
func (in Input) Hash() string {
	key := strings.Join([]string{
		in.CompanyID,
		string(in.Direction),
		vocab.Normalize(in.Description),
		in.Amount.StringFixed(2),
	}, "|")
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

// Source is the read access strategies need. Implementations may fail;
// a failure is treated as a miss for the strategy that asked.
type Source interface {
	OpenDocuments(ctx context.Context, companyID string, kind model.DocumentKind) ([]model.Document, error)
	Vendors(ctx context.Context, companyID string) ([]model.Vendor, error)
	Transactions(ctx context.Context, companyID string, from, to time.Time) ([]model.BookTransaction, error)
}

// Strategy is one step of the cascade. Attempt returns ok=false on a miss
// and must record why in the attempt's reasoning either way.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, a *Attempt) (*model.ClassificationResult, bool)
}

// Attempt carries one input through the cascade along with the extracted
// entities and the reasoning trail.
type Attempt struct {
	Input
	Entities  extract.Entities
	Reasoning []string

	src Source
	log zerolog.Logger
}

// Notef appends a line to the reasoning trail.
func (a *Attempt) Notef(format string, args ...any) {
	a.Reasoning = append(a.Reasoning, fmt.Sprintf(format, args...))
}

// documentKind is the kind of open document a payment in this direction settles.
func (a *Attempt) documentKind() model.DocumentKind {
	if a.Direction == model.DirectionCredit {
		return model.KindInvoice
	}
	return model.KindBill
}

func (a *Attempt) paymentType() model.TransactionType {
	if a.Direction == model.DirectionCredit {
		return model.TypeInvoicePayment
	}
	return model.TypeBillPayment
}

func (a *Attempt) plainType() model.TransactionType {
	if a.Direction == model.DirectionCredit {
		return model.TypeIncome
	}
	return model.TypeExpense
}

func (a *Attempt) openDocuments(ctx context.Context, strategy string) ([]model.Document, bool) {
	if a.src == nil {
		a.Notef("%s: no document source", strategy)
		return nil, false
	}
	docs, err := a.src.OpenDocuments(ctx, a.CompanyID, a.documentKind())
	if err != nil {
		a.log.Warn().Err(err).Str("strategy", strategy).Str("input", a.Hash()).Msg("loading open documents")
		a.Notef("%s: could not load open %ss", strategy, a.documentKind())
		return nil, false
	}
	return docs, true
}

// Options tune the built-in strategies.
type Options struct {
	AmountDateWindowDays int
	HistoryLookbackDays  int
}

// DefaultOptions returns the standard windows.
func DefaultOptions() Options {
	return Options{AmountDateWindowDays: 30, HistoryLookbackDays: 180}
}

// DefaultStrategies builds the six-step cascade. external may be nil, in
// which case step five always misses as unavailable.
func DefaultStrategies(v *vocab.Vocabulary, opts Options, external *ExternalStrategy) []Strategy {
	if external == nil {
		external = NewExternalStrategy(Unavailable{}, ExternalOptions{}, v, zerolog.Nop())
	}
	return []Strategy{
		ReferenceStrategy{},
		AmountDateStrategy{WindowDays: opts.AmountDateWindowDays},
		CounterpartyStrategy{Vocab: v},
		HistoryStrategy{LookbackDays: opts.HistoryLookbackDays},
		external,
		KeywordStrategy{Vocab: v},
	}
}

// Classifier runs the cascade with an optional result cache.
type Classifier struct {
	src        Source
	extractor  *extract.Extractor
	strategies []Strategy
	cache      *Cache
	vocab      *vocab.Vocabulary
	log        zerolog.Logger
}

// New creates a Classifier. cache may be nil.
func New(src Source, v *vocab.Vocabulary, strategies []Strategy, cache *Cache, log zerolog.Logger) *Classifier {
	return &Classifier{
		src:        src,
		extractor:  extract.New(v),
		strategies: strategies,
		cache:      cache,
		vocab:      v,
		log:        log.With().Str("component", "classifier").Logger(),
	}
}

// Classify returns a result for any structurally valid input. Misses in
// every data-driven strategy end at the keyword fallback.
func (c *Classifier) Classify(ctx context.Context, in Input) (model.ClassificationResult, error) {
	if err := in.Validate(); err != nil {
		return model.ClassificationResult{}, err
	}

	if c.cache != nil {
		if res, ok := c.cache.Get(in); ok {
			c.log.Debug().Str("input", in.Hash()).Str("strategy", res.Strategy).Msg("cache hit")
			return res, nil
		}
	}

	a := &Attempt{
		Input:    in,
		Entities: c.extractor.Extract(in.Description),
		src:      c.src,
		log:      c.log,
	}

	var res *model.ClassificationResult
	for _, s := range c.strategies {
		r, ok := s.Attempt(ctx, a)
		if ok && r != nil {
			r.Strategy = s.Name()
			res = r
			break
		}
	}
	if res == nil {
		// Only reachable with a custom strategy list lacking a fallback.
		res = &model.ClassificationResult{
			Type:     a.plainType(),
			Category: c.vocab.DefaultCategory(in.Direction),
			Strategy: "none",
		}
		a.Notef("no strategy matched")
	}

	finish(res, a)
	c.log.Debug().Str("input", in.Hash()).Str("strategy", res.Strategy).
		Str("category", res.Category).Int("confidence", res.Confidence).Msg("classified")

	if c.cache != nil {
		c.cache.Set(in, *res)
	}
	return *res, nil
}

// finish fills the fields every result shares.
func finish(res *model.ClassificationResult, a *Attempt) {
	res.Reasoning = append([]string(nil), a.Reasoning...)
	if res.ExpenseType == "" {
		res.ExpenseType = model.ExpenseOneTime
	}
	if res.CounterpartyName == "" {
		res.CounterpartyName = a.Entities.Vendor
	}
	if res.Confidence < model.ReviewThreshold {
		res.NeedsReview = true
	}
}
