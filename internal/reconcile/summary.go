package reconcile

import "github.com/cleared-dev/ledgerflow/internal/model"

// Summary is the batch-level statistics of a match run.
type Summary struct {
	Total         int
	AutoMatched   int
	Unmatched     int
	AutoMatchRate float64 // 0..1
	ByTier        map[model.MatchTier]int
}

// Summarize counts results per tier.
func Summarize(results []model.MatchResult) Summary {
	s := Summary{Total: len(results), ByTier: make(map[model.MatchTier]int, len(model.Tiers))}
	for _, t := range model.Tiers {
		s.ByTier[t] = 0
	}
	for _, r := range results {
		s.ByTier[r.Tier]++
		if r.Matched() {
			s.AutoMatched++
		} else {
			s.Unmatched++
		}
	}
	if s.Total > 0 {
		s.AutoMatchRate = float64(s.AutoMatched) / float64(s.Total)
	}
	return s
}
