package classifier

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/extract"
	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/similarity"
	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

const (
	confidenceReference    = 95
	confidenceAmountDate   = 85
	confidenceAmountTie    = 70
	confidenceCounterparty = 75
	confidenceRecurring    = 70
	confidenceHistory      = 60
	confidenceKeyword      = 50

	counterpartyThreshold = 0.6
	historyDescThreshold  = 0.5
	minHistoryMatches     = 2
)

var (
	onePercent = decimal.NewFromFloat(0.01)
	tenPercent = decimal.NewFromFloat(0.10)
)

// withinPercent reports |a-b| <= pct * b.
func withinPercent(a, b, pct decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(b.Abs().Mul(pct))
}

func daysBetween(a, b time.Time) int {
	d := a.Sub(b).Hours() / 24
	return int(math.Round(math.Abs(d)))
}

func categoryFor(kind model.DocumentKind) string {
	if kind == model.KindInvoice {
		return "Accounts Receivable"
	}
	return "Accounts Payable"
}

// ReferenceStrategy matches an extracted invoice or bill number against the
// company's open documents.
type ReferenceStrategy struct{}

func (ReferenceStrategy) Name() string { return "reference" }

func (s ReferenceStrategy) Attempt(ctx context.Context, a *Attempt) (*model.ClassificationResult, bool) {
	number := a.Entities.DocumentNumber()
	if number == "" {
		a.Notef("reference: no invoice or bill number in description")
		return nil, false
	}
	docs, ok := a.openDocuments(ctx, s.Name())
	if !ok {
		return nil, false
	}
	key := extract.NormalizeNumber(number)
	for _, d := range docs {
		if extract.NormalizeNumber(d.Number) != key {
			continue
		}
		a.Notef("reference: %s matches open %s %s from %s", number, d.Kind, d.Number, d.CounterpartyName)
		return &model.ClassificationResult{
			Type:             a.paymentType(),
			Category:         categoryFor(d.Kind),
			Confidence:       confidenceReference,
			CounterpartyName: d.CounterpartyName,
			DocumentID:       d.ID,
		}, true
	}
	a.Notef("reference: %s does not match any open %s", number, a.documentKind())
	return nil, false
}

// AmountDateStrategy matches open documents whose outstanding balance is
// within 1% of the amount and whose due date is near the transaction date.
// A document without a due date is always in range.
type AmountDateStrategy struct {
	WindowDays int
}

func (AmountDateStrategy) Name() string { return "amount_date" }

func (s AmountDateStrategy) Attempt(ctx context.Context, a *Attempt) (*model.ClassificationResult, bool) {
	docs, ok := a.openDocuments(ctx, s.Name())
	if !ok {
		return nil, false
	}
	var hits []model.Document
	for _, d := range docs {
		if !withinPercent(a.Amount, d.BalanceAmount, onePercent) {
			continue
		}
		if s.WindowDays > 0 && !d.DueDate.IsZero() && daysBetween(a.Date, d.DueDate) > s.WindowDays {
			continue
		}
		hits = append(hits, d)
	}
	switch len(hits) {
	case 0:
		a.Notef("amount_date: no open %s within 1%% of %s", a.documentKind(), a.Amount.StringFixed(2))
		return nil, false
	case 1:
		d := hits[0]
		a.Notef("amount_date: %s %s (%s) is the only amount match", d.Kind, d.Number, d.BalanceAmount.StringFixed(2))
		return &model.ClassificationResult{
			Type:             a.paymentType(),
			Category:         categoryFor(d.Kind),
			Confidence:       confidenceAmountDate,
			CounterpartyName: d.CounterpartyName,
			DocumentID:       d.ID,
		}, true
	}

	// Tie: take the nearest due date but flag for review.
	sort.SliceStable(hits, func(i, j int) bool {
		return daysBetween(a.Date, hits[i].DueDate) < daysBetween(a.Date, hits[j].DueDate)
	})
	d := hits[0]
	a.Notef("amount_date: %d open %ss match the amount; picked %s by due date", len(hits), d.Kind, d.Number)
	return &model.ClassificationResult{
		Type:             a.paymentType(),
		Category:         categoryFor(d.Kind),
		Confidence:       confidenceAmountTie,
		CounterpartyName: d.CounterpartyName,
		DocumentID:       d.ID,
		NeedsReview:      true,
	}, true
}

// CounterpartyStrategy fuzzy-matches the description against open document
// counterparties and the company's known vendors.
type CounterpartyStrategy struct {
	Vocab *vocab.Vocabulary
}

func (CounterpartyStrategy) Name() string { return "counterparty" }

type counterpartyCandidate struct {
	name     string
	doc      *model.Document
	category string
	score    float64
}

func (s CounterpartyStrategy) Attempt(ctx context.Context, a *Attempt) (*model.ClassificationResult, bool) {
	var cands []counterpartyCandidate
	if docs, ok := a.openDocuments(ctx, s.Name()); ok {
		for i := range docs {
			cands = append(cands, counterpartyCandidate{name: docs[i].CounterpartyName, doc: &docs[i]})
		}
	}
	if a.src != nil {
		vendors, err := a.src.Vendors(ctx, a.CompanyID)
		if err != nil {
			a.log.Warn().Err(err).Str("strategy", s.Name()).Str("input", a.Hash()).Msg("loading vendors")
		}
		for _, v := range vendors {
			cands = append(cands, counterpartyCandidate{name: v.Name, category: v.DefaultCategory})
		}
	}

	var best *counterpartyCandidate
	tie := false
	for i := range cands {
		c := &cands[i]
		if c.name == "" {
			continue
		}
		c.score = similarity.Best(a.Description, c.name)
		if a.Entities.Vendor != "" {
			c.score = math.Max(c.score, similarity.Best(a.Entities.Vendor, c.name))
		}
		if c.score < counterpartyThreshold {
			continue
		}
		switch {
		case best == nil || c.score > best.score:
			best, tie = c, false
		case c.score == best.score && c.name != best.name:
			tie = true
		}
	}
	if best == nil {
		a.Notef("counterparty: no counterparty or vendor scored %.1f or more", counterpartyThreshold)
		return nil, false
	}

	res := &model.ClassificationResult{
		Confidence:       confidenceCounterparty,
		CounterpartyName: best.name,
		NeedsReview:      tie,
	}
	if best.doc != nil {
		res.Type = a.paymentType()
		res.Category = categoryFor(best.doc.Kind)
		res.DocumentID = best.doc.ID
		a.Notef("counterparty: %q resembles %s %s counterparty %s (%.2f)", a.Description, best.doc.Kind, best.doc.Number, best.name, best.score)
	} else {
		res.Type = a.plainType()
		res.Category = best.category
		if res.Category == "" {
			if c, _, ok := s.Vocab.MatchKeywords(a.Description, a.Direction); ok {
				res.Category = c.Name
			} else {
				res.Category = s.Vocab.DefaultCategory(a.Direction)
			}
		}
		a.Notef("counterparty: %q resembles known vendor %s (%.2f)", a.Description, best.name, best.score)
	}
	if tie {
		a.Notef("counterparty: several counterparties scored equally")
	}
	return res, true
}

// HistoryStrategy looks at prior transactions of similar amount and infers
// the category and, when the gaps are regular, the recurrence interval.
type HistoryStrategy struct {
	LookbackDays int
}

func (HistoryStrategy) Name() string { return "history" }

func (s HistoryStrategy) Attempt(ctx context.Context, a *Attempt) (*model.ClassificationResult, bool) {
	if a.src == nil {
		a.Notef("history: no transaction source")
		return nil, false
	}
	lookback := s.LookbackDays
	if lookback <= 0 {
		lookback = 180
	}
	from := a.Date.AddDate(0, 0, -lookback)
	txs, err := a.src.Transactions(ctx, a.CompanyID, from, a.Date)
	if err != nil {
		a.log.Warn().Err(err).Str("strategy", s.Name()).Str("input", a.Hash()).Msg("loading history")
		a.Notef("history: could not load prior transactions")
		return nil, false
	}

	var similar []model.BookTransaction
	for _, t := range txs {
		if t.Category == "" || t.Direction() != a.Direction {
			continue
		}
		if !withinPercent(t.Amount.Abs(), a.Amount, tenPercent) {
			continue
		}
		similar = append(similar, t)
	}
	if len(similar) == 0 {
		a.Notef("history: no prior %s within 10%% of %s in %d days", a.Direction, a.Amount.StringFixed(2), lookback)
		return nil, false
	}

	// Prefer the ones that also look alike, when there are any.
	var alike []model.BookTransaction
	for _, t := range similar {
		if similarity.Best(a.Description, t.Description) >= historyDescThreshold {
			alike = append(alike, t)
		}
	}
	if len(alike) > 0 {
		similar = alike
	}

	category, counterparty := mostFrequent(similar)
	res := &model.ClassificationResult{
		Type:             a.plainType(),
		Category:         category,
		Confidence:       confidenceHistory,
		CounterpartyName: counterparty,
	}

	if len(similar) >= minHistoryMatches {
		dates := make([]time.Time, 0, len(similar)+1)
		for _, t := range similar {
			dates = append(dates, t.Date)
		}
		dates = append(dates, a.Date)
		gap := meanGapDays(dates)
		if freq := bucketFrequency(gap); freq != model.FrequencyNone {
			res.Confidence = confidenceRecurring
			res.ExpenseType = model.ExpenseRecurring
			res.Frequency = freq
			a.Notef("history: %d similar transactions every %.0f days on average; %s %s", len(similar), gap, freq, category)
			return res, true
		}
		a.Notef("history: %d similar transactions with irregular gaps (%.0f days)", len(similar), gap)
	}
	a.Notef("history: most frequent category among %d similar transactions is %s", len(similar), category)
	return res, true
}

// mostFrequent returns the most common category, ties to the most recent,
// and the counterparty last seen with it.
func mostFrequent(txs []model.BookTransaction) (category, counterparty string) {
	counts := make(map[string]int)
	last := make(map[string]int)
	for i, t := range txs {
		counts[t.Category]++
		last[t.Category] = i
	}
	bestN := 0
	for cat, n := range counts {
		if n > bestN || (n == bestN && last[cat] > last[category]) {
			category, bestN = cat, n
		}
	}
	counterparty = txs[last[category]].CounterpartyName
	return category, counterparty
}

func meanGapDays(dates []time.Time) float64 {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) < 2 {
		return 0
	}
	total := dates[len(dates)-1].Sub(dates[0]).Hours() / 24
	return total / float64(len(dates)-1)
}

func bucketFrequency(gap float64) model.Frequency {
	switch {
	case gap >= 5 && gap <= 10:
		return model.FrequencyWeekly
	case gap >= 25 && gap <= 35:
		return model.FrequencyMonthly
	case gap >= 85 && gap <= 95:
		return model.FrequencyQuarterly
	case gap >= 360 && gap <= 370:
		return model.FrequencyYearly
	}
	return model.FrequencyNone
}

// KeywordStrategy is the fallback: vocabulary keyword tables in priority
// order, then the default category. It never misses.
type KeywordStrategy struct {
	Vocab *vocab.Vocabulary
}

func (KeywordStrategy) Name() string { return "keyword" }

func (s KeywordStrategy) Attempt(_ context.Context, a *Attempt) (*model.ClassificationResult, bool) {
	res := &model.ClassificationResult{Type: a.plainType(), Confidence: confidenceKeyword}
	if c, kw, ok := s.Vocab.MatchKeywords(a.Description, a.Direction); ok {
		res.Category = c.Name
		a.Notef("keyword: %q matched category %s", kw, c.Name)
	} else {
		res.Category = s.Vocab.DefaultCategory(a.Direction)
		a.Notef("keyword: no keyword matched; defaulting to %s", res.Category)
	}
	return res, true
}
