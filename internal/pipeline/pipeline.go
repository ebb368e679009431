// Package pipeline wires the classifier, matcher and poster into the two
// ingestion flows: categorizing new statement lines and reconciling lines
// against records already on the books.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/ledgerflow/internal/auditlog"
	"github.com/cleared-dev/ledgerflow/internal/classifier"
	"github.com/cleared-dev/ledgerflow/internal/ledger"
	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/reconcile"
)

// Store is everything the pipeline reads and writes.
type Store interface {
	classifier.Source
	ledger.Store
	CreateTransaction(ctx context.Context, t *model.BookTransaction) error
	SetTransactionStatus(ctx context.Context, transactionID string, status model.EntryStatus) error
	MarkReconciled(ctx context.Context, transactionID string) error
	Document(ctx context.Context, id string) (model.Document, error)
	ApplyPayment(ctx context.Context, documentID string, amount decimal.Decimal) (model.Document, error)
}

// Settings are the automation thresholds.
type Settings struct {
	AutoPost     int // minimum confidence to post a classified line
	AutoMatch    int // minimum confidence to apply a match
	LookbackDays int
	DryRun       bool // classify and match, but write nothing
}

// DefaultSettings mirror the default config.
func DefaultSettings() Settings {
	return Settings{AutoPost: model.ReviewThreshold, AutoMatch: model.ReviewThreshold, LookbackDays: reconcile.DefaultLookbackDays}
}

// Deps are the services a Pipeline drives.
type Deps struct {
	Store      Store
	Classifier *classifier.Classifier
	Matcher    *reconcile.Matcher
	Poster     *ledger.Poster
	Policy     *ledger.Policy
	Audit      auditlog.Recorder // nil discards
	Learner    Learner           // optional
}

// Learner is a classifier trained on confirmed history. Forget drops a
// company's model after new transactions are confirmed.
type Learner interface {
	Forget(companyID string)
}

// Pipeline runs ingestion and reconciliation batches.
type Pipeline struct {
	deps     Deps
	settings Settings
	now      func() time.Time
	log      zerolog.Logger
}

// New creates a Pipeline.
func New(deps Deps, settings Settings, log zerolog.Logger) *Pipeline {
	if deps.Audit == nil {
		deps.Audit = auditlog.Discard{}
	}
	return &Pipeline{
		deps:     deps,
		settings: settings,
		now:      time.Now,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// LineOutcome is what happened to one ingested line.
type LineOutcome struct {
	Line           model.RawLine
	Classification model.ClassificationResult
	Transaction    model.BookTransaction
	Entries        []model.JournalEntry
	Err            error // rejected input or a failed post; the batch continues
}

// Posted reports whether journal entries were written for the line.
func (o LineOutcome) Posted() bool { return len(o.Entries) > 0 }

// IngestReport summarizes an ingestion batch.
type IngestReport struct {
	Lines       []LineOutcome
	Posted      int
	NeedsReview int
	Rejected    int
}

// Ingest classifies each line, books it as a transaction, applies any
// invoice or bill payment it settles, and posts it when confident enough.
// A transaction is auto-confirmed only after its journal is posted.
// Lines with invalid input or failing posts are reported, not fatal; store
// failures abort the batch.
func (p *Pipeline) Ingest(ctx context.Context, companyID string, lines []model.RawLine) (IngestReport, error) {
	var rep IngestReport
	for i, l := range lines {
		out, err := p.ingestLine(ctx, companyID, l)
		if err != nil {
			return rep, fmt.Errorf("line %d: %w", i+1, err)
		}
		switch {
		case out.Err != nil && out.Transaction.ID == "":
			rep.Rejected++
		case out.Posted():
			rep.Posted++
		default:
			rep.NeedsReview++
		}
		rep.Lines = append(rep.Lines, out)
	}
	if rep.Posted > 0 && p.deps.Learner != nil {
		p.deps.Learner.Forget(companyID)
	}
	p.log.Info().Str("company", companyID).Int("lines", len(lines)).Int("posted", rep.Posted).
		Int("needs_review", rep.NeedsReview).Int("rejected", rep.Rejected).Msg("ingest complete")
	return rep, nil
}

func (p *Pipeline) ingestLine(ctx context.Context, companyID string, l model.RawLine) (LineOutcome, error) {
	out := LineOutcome{Line: l}
	in := classifier.InputFromLine(companyID, l)

	res, err := p.deps.Classifier.Classify(ctx, in)
	var inputErr *classifier.InputError
	if errors.As(err, &inputErr) {
		out.Err = err
		p.log.Warn().Str("company", companyID).Err(err).Msg("line rejected")
		return out, nil
	} else if err != nil {
		return out, fmt.Errorf("classifying: %w", err)
	}
	out.Classification = res

	// Booked pending; confirmed only once its journal is posted.
	tx := model.BookTransaction{
		CompanyID:        companyID,
		Date:             l.Date,
		Amount:           l.Signed(),
		Description:      l.Description,
		Category:         res.Category,
		CounterpartyName: res.CounterpartyName,
		ExpenseType:      res.ExpenseType,
		Frequency:        res.Frequency,
		Confidence:       res.Confidence,
		Status:           model.StatusPendingReview,
	}
	if !p.settings.DryRun {
		if err := p.deps.Store.CreateTransaction(ctx, &tx); err != nil {
			return out, fmt.Errorf("booking transaction: %w", err)
		}
	}
	out.Transaction = tx

	p.deps.Audit.Record(auditlog.Entry{
		Timestamp:  p.now(),
		CompanyID:  companyID,
		Stage:      auditlog.StageClassify,
		Decision:   res.Strategy,
		Confidence: res.Confidence,
		InputHash:  in.Hash(),
		RecordID:   tx.ID,
		Reasoning:  res.Reasoning,
	})

	if res.NeedsReview || res.Confidence < p.settings.AutoPost || p.settings.DryRun {
		return out, nil
	}

	if res.DocumentID != "" {
		if _, err := p.deps.Store.ApplyPayment(ctx, res.DocumentID, l.Amount); err != nil {
			// Overpayment or a document closed since classification: leave for review.
			out.Err = fmt.Errorf("applying payment to %s: %w", res.DocumentID, err)
			p.log.Warn().Str("company", companyID).Str("document", res.DocumentID).Err(err).Msg("payment not applied")
			return out, nil
		}
	}

	entries, err := p.post(ctx, ledger.Event{
		Kind:                ledger.EventFor(res.Type),
		CompanyID:           companyID,
		Date:                l.Date,
		Description:         l.Description,
		Amount:              l.Amount,
		Category:            res.Category,
		LinkedTransactionID: tx.ID,
	})
	if err != nil {
		out.Err = err
		return out, nil
	}
	out.Entries = entries

	if err := p.deps.Store.SetTransactionStatus(ctx, tx.ID, model.StatusAutoConfirmed); err != nil {
		return out, fmt.Errorf("confirming transaction: %w", err)
	}
	out.Transaction.Status = model.StatusAutoConfirmed
	return out, nil
}

// post builds and applies the posting for ev and records it.
func (p *Pipeline) post(ctx context.Context, ev ledger.Event) ([]model.JournalEntry, error) {
	req, err := p.deps.Policy.Request(ev)
	if err != nil {
		return nil, fmt.Errorf("building posting: %w", err)
	}
	entries, err := p.deps.Poster.Post(ctx, req)
	if err != nil {
		p.log.Warn().Str("company", ev.CompanyID).Str("event", string(ev.Kind)).Err(err).Msg("post failed")
		return nil, err
	}
	p.deps.Audit.Record(auditlog.Entry{
		Timestamp:  p.now(),
		CompanyID:  ev.CompanyID,
		Stage:      auditlog.StagePost,
		Decision:   entries[0].EntryGroup(),
		Confidence: 100,
		RecordID:   ev.LinkedTransactionID,
		Reasoning:  []string{fmt.Sprintf("%s %s %s", ev.Kind, ev.Amount.StringFixed(2), ev.Category)},
	})
	return entries, nil
}

// ReconcileReport is the outcome of one company's reconciliation batch.
// Result line indexes refer to the lines passed to Reconcile.
type ReconcileReport struct {
	CompanyID string
	reconcile.Report
	Rejected []LineRejection // invalid lines, left out of matching
	Applied  int             // match groups acted on
	Entries  []model.JournalEntry
	Errors   []error // per-record failures; the batch continues
}

// LineRejection is a statement line that failed validation.
type LineRejection struct {
	LineIndex int
	Line      model.RawLine
	Err       error // a *model.LineError
}

// Reconcile matches lines against the company's recent transactions and
// open documents. Confident matches mark transactions reconciled, and pay
// down documents with a payment journal posted for each. Invalid lines are
// reported in Rejected and take no part in matching.
func (p *Pipeline) Reconcile(ctx context.Context, companyID string, lines []model.RawLine) (ReconcileReport, error) {
	rep := ReconcileReport{CompanyID: companyID}

	valid := make([]model.RawLine, 0, len(lines))
	index := make([]int, 0, len(lines))
	for i, l := range lines {
		if err := l.Validate(); err != nil {
			rep.Rejected = append(rep.Rejected, LineRejection{LineIndex: i, Line: l, Err: err})
			p.log.Warn().Str("company", companyID).Int("line", i+1).Err(err).Msg("line rejected")
			continue
		}
		valid = append(valid, l)
		index = append(index, i)
	}

	w := reconcile.WindowFor(valid, p.settings.LookbackDays)
	txs, err := p.deps.Store.Transactions(ctx, companyID, w.From, w.To)
	if err != nil {
		return rep, fmt.Errorf("loading transactions: %w", err)
	}
	var docs []model.Document
	for _, kind := range []model.DocumentKind{model.KindInvoice, model.KindBill} {
		d, err := p.deps.Store.OpenDocuments(ctx, companyID, kind)
		if err != nil {
			return rep, fmt.Errorf("loading open %ss: %w", kind, err)
		}
		docs = append(docs, d...)
	}
	cands := reconcile.BuildCandidates(txs, docs, w)
	byID := make(map[string]reconcile.Candidate, len(cands))
	for _, c := range cands {
		byID[c.ID] = c
	}

	rep.Report = p.deps.Matcher.Match(valid, cands)
	for k := range rep.Results {
		r := &rep.Results[k]
		r.LineIndex = index[r.LineIndex]
		for j, other := range r.RelatedLines {
			r.RelatedLines[j] = index[other]
		}
	}

	// A two-line split is one group; it is keyed by its first line.
	applied := make(map[int]bool)
	for _, r := range rep.Results {
		hash := classifier.InputFromLine(companyID, r.Line).Hash()
		p.deps.Audit.Record(auditlog.Entry{
			Timestamp:  p.now(),
			CompanyID:  companyID,
			Stage:      auditlog.StageReconcile,
			Decision:   string(r.Tier),
			Confidence: r.Confidence,
			InputHash:  hash,
			RecordID:   r.MatchedRecordID,
			Reasoning:  []string{r.Reason},
		})
		if !r.Matched() || r.Confidence < p.settings.AutoMatch || p.settings.DryRun {
			continue
		}
		for _, id := range r.RecordIDs() {
			c := byID[id]
			entries, err := p.apply(ctx, companyID, r, c)
			if err != nil {
				rep.Errors = append(rep.Errors, fmt.Errorf("line %d, %s %s: %w", r.LineIndex+1, c.Kind, id, err))
				continue
			}
			applied[groupKey(r)] = true
			rep.Entries = append(rep.Entries, entries...)
		}
	}
	rep.Applied = len(applied)

	p.log.Info().Str("company", companyID).Int("lines", rep.Summary.Total).Int("rejected", len(rep.Rejected)).
		Int("auto_matched", rep.Summary.AutoMatched).Int("applied", rep.Applied).Float64("auto_match_rate", rep.Summary.AutoMatchRate).Msg("reconcile complete")
	return rep, nil
}

func groupKey(r model.MatchResult) int {
	key := r.LineIndex
	for _, i := range r.RelatedLines {
		key = min(key, i)
	}
	return key
}

// apply settles one matched record for result r.
func (p *Pipeline) apply(ctx context.Context, companyID string, r model.MatchResult, c reconcile.Candidate) ([]model.JournalEntry, error) {
	if !c.IsDocument() {
		return nil, p.deps.Store.MarkReconciled(ctx, c.ID)
	}

	// A two-record split pays each document in full; otherwise the line
	// pays what it carried, capped at what is still owed.
	amount := r.Line.Amount
	if len(r.RelatedRecords) > 0 {
		amount = c.Amount
	}
	doc, err := p.deps.Store.Document(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	amount = decimal.Min(amount, doc.BalanceAmount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s %s has nothing outstanding", doc.Kind, doc.Number)
	}
	if _, err := p.deps.Store.ApplyPayment(ctx, doc.ID, amount); err != nil {
		return nil, err
	}

	kind := ledger.EventPaymentReceived
	if doc.Kind == model.KindBill {
		kind = ledger.EventBillPayment
	}
	return p.post(ctx, ledger.Event{
		Kind:                kind,
		CompanyID:           companyID,
		Date:                r.Line.Date,
		Description:         r.Line.Description,
		Amount:              amount,
		LinkedTransactionID: doc.ID,
	})
}

// ReconcileAll reconciles several companies' batches concurrently. Each
// batch is matched sequentially; the first hard error cancels the rest.
func (p *Pipeline) ReconcileAll(ctx context.Context, batches map[string][]model.RawLine) (map[string]ReconcileReport, error) {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(map[string]ReconcileReport, len(batches))

	for companyID, lines := range batches {
		g.Go(func() error {
			rep, err := p.Reconcile(ctx, companyID, lines)
			if err != nil {
				return fmt.Errorf("company %s: %w", companyID, err)
			}
			mu.Lock()
			out[companyID] = rep
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
