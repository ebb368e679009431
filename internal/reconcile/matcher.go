// Package reconcile pairs bank-statement lines with existing book records
// (transactions, open invoices and bills) in strict tier order.
package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/extract"
	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/similarity"
	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

// Rules are the per-tier tolerances. Percentages are fractions (0.02 = 2%).
type Rules struct {
	ExactAmount     decimal.Decimal
	ExactDays       int
	ExactSimilarity float64
	FuzzyPct        decimal.Decimal
	FuzzyDays       int
	FuzzySimilarity float64
	PatternPct      decimal.Decimal
	PatternDays     int
	SplitPct        decimal.Decimal
	SplitDays       int
}

// DefaultRules returns the standard tier tolerances.
func DefaultRules() Rules {
	return Rules{
		ExactAmount:     decimal.NewFromInt(1),
		ExactDays:       1,
		ExactSimilarity: 0.9,
		FuzzyPct:        decimal.RequireFromString("0.02"),
		FuzzyDays:       3,
		FuzzySimilarity: 0.7,
		PatternPct:      decimal.RequireFromString("0.05"),
		PatternDays:     7,
		SplitPct:        decimal.RequireFromString("0.01"),
		SplitDays:       3,
	}
}

// Matcher runs the tiered batch match.
type Matcher struct {
	extractor *extract.Extractor
	rules     Rules
	log       zerolog.Logger
}

// NewMatcher creates a Matcher. A nil vocabulary uses vocab.Default().
func NewMatcher(v *vocab.Vocabulary, rules Rules, log zerolog.Logger) *Matcher {
	return &Matcher{
		extractor: extract.New(v),
		rules:     rules,
		log:       log.With().Str("component", "matcher").Logger(),
	}
}

// Report is the outcome of one batch.
type Report struct {
	Results []model.MatchResult
	Summary Summary
}

// Match produces one result per line, in line order. Lines are processed
// sequentially and each candidate is consumed by at most one match group.
func (m *Matcher) Match(lines []model.RawLine, candidates []Candidate) Report {
	b := &batch{
		rules:      m.rules,
		lines:      lines,
		candidates: candidates,
		entities:   make([]extract.Entities, len(lines)),
		consumed:   make([]bool, len(candidates)),
	}
	for i, l := range lines {
		b.entities[i] = m.extractor.Extract(l.Description)
	}

	results := make([]model.MatchResult, len(lines))
	for i := range lines {
		results[i] = b.matchLine(i)
	}
	b.pairLines(results)

	s := Summarize(results)
	m.log.Debug().Int("lines", s.Total).Int("candidates", len(candidates)).
		Int("auto_matched", s.AutoMatched).Float64("auto_match_rate", s.AutoMatchRate).Msg("batch matched")
	return Report{Results: results, Summary: s}
}

type batch struct {
	rules      Rules
	lines      []model.RawLine
	candidates []Candidate
	entities   []extract.Entities
	consumed   []bool
}

// open returns the indexes of unconsumed candidates on side dir.
func (b *batch) open(dir model.Direction) []int {
	var out []int
	for j, c := range b.candidates {
		if !b.consumed[j] && c.Direction == dir {
			out = append(out, j)
		}
	}
	return out
}

func (b *batch) matchLine(i int) model.MatchResult {
	line := b.lines[i]
	res := model.MatchResult{Line: line, LineIndex: i, Tier: model.TierUnmatched}

	tiers := []struct {
		tier model.MatchTier
		find func(int) (int, string)
	}{
		{model.TierExact, b.exact},
		{model.TierFuzzy, b.fuzzy},
		{model.TierPattern, b.pattern},
	}
	for _, t := range tiers {
		if j, reason := t.find(i); j >= 0 {
			b.consumed[j] = true
			res.MatchedRecordID = b.candidates[j].ID
			res.Tier = t.tier
			res.Confidence = t.tier.Confidence()
			res.Reason = reason
			return res
		}
	}
	if j, k, reason := b.splitRecords(i); j >= 0 {
		b.consumed[j] = true
		b.consumed[k] = true
		res.MatchedRecordID = b.candidates[j].ID
		res.RelatedRecords = []string{b.candidates[k].ID}
		res.Tier = model.TierSplit
		res.Confidence = model.TierSplit.Confidence()
		res.Reason = reason
		return res
	}
	res.Reason = "no candidate satisfied any tier; needs manual reconciliation"
	return res
}

func (b *batch) exact(i int) (int, string) {
	line := b.lines[i]
	number := extract.NormalizeNumber(b.entities[i].DocumentNumber())
	best, bestScore, reason := -1, 0.0, ""
	for _, j := range b.open(line.Direction) {
		c := b.candidates[j]
		if line.Amount.Sub(c.Amount).Abs().GreaterThan(b.rules.ExactAmount) {
			continue
		}
		if number != "" && c.IsDocument() && extract.NormalizeNumber(c.Number) == number {
			// A document number match beats any description score.
			if bestScore < 2 {
				best, bestScore = j, 2
				reason = fmt.Sprintf("exact: %s number %s and amount %s", c.Kind, c.Number, c.Amount.StringFixed(2))
			}
			continue
		}
		if daysApart(line.Date, c.Date) > b.rules.ExactDays {
			continue
		}
		sim := similarity.Score(line.Description, c.Description)
		if sim >= b.rules.ExactSimilarity && sim > bestScore {
			best, bestScore = j, sim
			reason = fmt.Sprintf("exact: amount %s, %d days apart, description similarity %.2f",
				c.Amount.StringFixed(2), daysApart(line.Date, c.Date), sim)
		}
	}
	return best, reason
}

func (b *batch) fuzzy(i int) (int, string) {
	line := b.lines[i]
	best, bestScore := -1, 0.0
	for _, j := range b.open(line.Direction) {
		c := b.candidates[j]
		if !withinPct(c.Amount, line.Amount, b.rules.FuzzyPct) || daysApart(line.Date, c.Date) > b.rules.FuzzyDays {
			continue
		}
		if sim := similarity.Score(line.Description, c.Description); sim >= b.rules.FuzzySimilarity && sim > bestScore {
			best, bestScore = j, sim
		}
	}
	if best < 0 {
		return -1, ""
	}
	c := b.candidates[best]
	return best, fmt.Sprintf("fuzzy: amount %s within %s%%, %d days apart, description similarity %.2f",
		c.Amount.StringFixed(2), pct(b.rules.FuzzyPct), daysApart(line.Date, c.Date), bestScore)
}

func (b *batch) pattern(i int) (int, string) {
	line := b.lines[i]
	tokens := vendorTokens(b.entities[i].Vendor)
	if len(tokens) == 0 {
		return -1, ""
	}
	best := -1
	var bestDelta decimal.Decimal
	var hit string
	for _, j := range b.open(line.Direction) {
		c := b.candidates[j]
		if c.Counterparty == "" {
			continue
		}
		if !withinPct(c.Amount, line.Amount, b.rules.PatternPct) || daysApart(line.Date, c.Date) > b.rules.PatternDays {
			continue
		}
		tok, ok := sharedToken(tokens, c.Counterparty)
		if !ok {
			continue
		}
		delta := line.Amount.Sub(c.Amount).Abs()
		if best < 0 || delta.LessThan(bestDelta) {
			best, bestDelta, hit = j, delta, tok
		}
	}
	if best < 0 {
		return -1, ""
	}
	c := b.candidates[best]
	return best, fmt.Sprintf("pattern: vendor %q found in counterparty %q, amount %s within %s%%",
		hit, c.Counterparty, c.Amount.StringFixed(2), pct(b.rules.PatternPct))
}

// splitRecords looks for the first pair of open candidates near line i
// whose amounts add up to the line.
func (b *batch) splitRecords(i int) (int, int, string) {
	line := b.lines[i]
	var near []int
	for _, j := range b.open(line.Direction) {
		if daysApart(line.Date, b.candidates[j].Date) <= b.rules.SplitDays {
			near = append(near, j)
		}
	}
	for x := 0; x < len(near); x++ {
		for y := x + 1; y < len(near); y++ {
			cj, ck := b.candidates[near[x]], b.candidates[near[y]]
			sum := cj.Amount.Add(ck.Amount)
			if withinPct(sum, line.Amount, b.rules.SplitPct) {
				return near[x], near[y], fmt.Sprintf("split: %s + %s = %s covers line amount %s",
					cj.Amount.StringFixed(2), ck.Amount.StringFixed(2), sum.StringFixed(2), line.Amount.StringFixed(2))
			}
		}
	}
	return -1, -1, ""
}

// pairLines runs after the per-line pass: two unmatched lines close in
// date whose sum equals one open candidate form a split group.
func (b *batch) pairLines(results []model.MatchResult) {
	for i := range results {
		if results[i].Tier != model.TierUnmatched {
			continue
		}
		for k := i + 1; k < len(results); k++ {
			if results[k].Tier != model.TierUnmatched {
				continue
			}
			li, lk := b.lines[i], b.lines[k]
			if li.Direction != lk.Direction || daysApart(li.Date, lk.Date) > b.rules.SplitDays {
				continue
			}
			sum := li.Amount.Add(lk.Amount)
			j := -1
			for _, c := range b.open(li.Direction) {
				if withinPct(sum, b.candidates[c].Amount, b.rules.SplitPct) {
					j = c
					break
				}
			}
			if j < 0 {
				continue
			}
			b.consumed[j] = true
			c := b.candidates[j]
			reason := fmt.Sprintf("split: lines %d and %d (%s + %s) cover %s %s",
				i, k, li.Amount.StringFixed(2), lk.Amount.StringFixed(2), c.Kind, c.Amount.StringFixed(2))
			for _, pair := range [][2]int{{i, k}, {k, i}} {
				r := &results[pair[0]]
				r.MatchedRecordID = c.ID
				r.RelatedLines = []int{pair[1]}
				r.Tier = model.TierSplit
				r.Confidence = model.TierSplit.Confidence()
				r.Reason = reason
			}
			break
		}
	}
}

// withinPct reports |amount-target| <= target*pct.
func withinPct(amount, target, pct decimal.Decimal) bool {
	return amount.Sub(target).Abs().LessThanOrEqual(target.Mul(pct))
}

func pct(frac decimal.Decimal) string {
	return frac.Mul(decimal.NewFromInt(100)).String()
}

// daysApart counts whole calendar days between a and b. A zero date is
// infinitely far from everything.
func daysApart(a, b time.Time) int {
	if a.IsZero() || b.IsZero() {
		return math.MaxInt
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	d := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Sub(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
	if d < 0 {
		d = -d
	}
	return int(d / (24 * time.Hour))
}

func vendorTokens(vendor string) []string {
	var out []string
	for _, w := range strings.Fields(vocab.Normalize(vendor)) {
		if len(w) >= 3 {
			out = append(out, w)
		}
	}
	return out
}

func sharedToken(tokens []string, name string) (string, bool) {
	words := strings.Fields(vocab.Normalize(name))
	for _, t := range tokens {
		for _, w := range words {
			if w == t {
				return t, true
			}
		}
	}
	return "", false
}
