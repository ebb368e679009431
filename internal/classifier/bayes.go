package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jbrukh/bayesian"

	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

// BayesianClassifier is a local External trained per company on confirmed
// transaction history. A company with fewer than two categories on a side
// gets ErrUnavailable for that side.
type BayesianClassifier struct {
	src      Source
	lookback time.Duration
	now      func() time.Time

	mu     sync.Mutex
	models map[string]*bayesModel // by company
}

type bayesModel struct {
	byDir   map[model.Direction]*bayesian.Classifier
	classes map[model.Direction][]bayesian.Class
}

// NewBayesian creates a classifier that trains lazily from src.
func NewBayesian(src Source, lookback time.Duration) *BayesianClassifier {
	return &BayesianClassifier{
		src:      src,
		lookback: lookback,
		now:      time.Now,
		models:   make(map[string]*bayesModel),
	}
}

func (b *BayesianClassifier) Name() string { return "bayesian" }

// Forget drops the trained model for a company so the next call retrains.
func (b *BayesianClassifier) Forget(companyID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.models, companyID)
}

func (b *BayesianClassifier) Classify(ctx context.Context, req ExternalRequest) (ExternalResult, error) {
	m, err := b.model(ctx, req.CompanyID)
	if err != nil {
		return ExternalResult{}, err
	}
	cl, ok := m.byDir[req.Direction]
	if !ok {
		return ExternalResult{}, fmt.Errorf("bayesian: %w: not enough %s history", ErrUnavailable, req.Direction)
	}

	tokens := bayesTokens(req.Description)
	if len(tokens) == 0 {
		return ExternalResult{}, fmt.Errorf("bayesian: no usable tokens")
	}

	b.mu.Lock()
	scores, best, strict := cl.ProbScores(tokens)
	b.mu.Unlock()

	out := ExternalResult{
		Category:   string(m.classes[req.Direction][best]),
		Confidence: int(scores[best] * 100),
		Reasoning:  fmt.Sprintf("naive Bayes over %d tokens, p=%.2f", len(tokens), scores[best]),
	}
	if !strict {
		out.Flags = append(out.Flags, "ambiguous")
	}
	return out, nil
}

func (b *BayesianClassifier) model(ctx context.Context, companyID string) (*bayesModel, error) {
	b.mu.Lock()
	m, ok := b.models[companyID]
	b.mu.Unlock()
	if ok {
		return m, nil
	}

	now := b.now()
	txs, err := b.src.Transactions(ctx, companyID, now.Add(-b.lookback), now)
	if err != nil {
		return nil, fmt.Errorf("bayesian: loading history: %w", err)
	}
	m = train(txs)

	b.mu.Lock()
	b.models[companyID] = m
	b.mu.Unlock()
	return m, nil
}

func train(txs []model.BookTransaction) *bayesModel {
	docs := map[model.Direction]map[string][][]string{
		model.DirectionCredit: {},
		model.DirectionDebit:  {},
	}
	for _, t := range txs {
		if t.Category == "" || !confirmed(t.Status) {
			continue
		}
		tokens := bayesTokens(t.Description)
		if len(tokens) == 0 {
			continue
		}
		dir := t.Direction()
		docs[dir][t.Category] = append(docs[dir][t.Category], tokens)
	}

	m := &bayesModel{
		byDir:   make(map[model.Direction]*bayesian.Classifier),
		classes: make(map[model.Direction][]bayesian.Class),
	}
	for dir, byCat := range docs {
		// NewClassifier panics with fewer than two classes.
		if len(byCat) < 2 {
			continue
		}
		var classes []bayesian.Class
		for cat := range byCat {
			classes = append(classes, bayesian.Class(cat))
		}
		sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
		cl := bayesian.NewClassifier(classes...)
		for _, c := range classes {
			for _, doc := range byCat[string(c)] {
				cl.Learn(doc, c)
			}
		}
		m.byDir[dir] = cl
		m.classes[dir] = classes
	}
	return m
}

func confirmed(s model.EntryStatus) bool {
	switch s {
	case model.StatusAutoConfirmed, model.StatusUserConfirmed, model.StatusUserCorrected:
		return true
	}
	return false
}

func bayesTokens(desc string) []string {
	var out []string
	for _, tok := range strings.Fields(vocab.Normalize(desc)) {
		if len(tok) < 2 || strings.IndexFunc(tok, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0 {
			continue
		}
		out = append(out, tok)
	}
	return out
}
