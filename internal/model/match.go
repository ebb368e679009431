package model

// MatchTier names the rule that produced a match, strongest first.
type MatchTier string

const (
	TierExact     MatchTier = "exact"
	TierFuzzy     MatchTier = "fuzzy"
	TierPattern   MatchTier = "pattern"
	TierSplit     MatchTier = "split"
	TierUnmatched MatchTier = "unmatched"
)

// Tiers lists every tier in descending confidence order.
var Tiers = []MatchTier{TierExact, TierFuzzy, TierPattern, TierSplit, TierUnmatched}

// Confidence returns the fixed confidence assigned to a tier.
func (t MatchTier) Confidence() int {
	switch t {
	case TierExact:
		return 98
	case TierFuzzy:
		return 85
	case TierPattern:
		return 75
	case TierSplit:
		return 70
	}
	return 0
}

// MatchResult pairs one bank line with the book record it reconciles to.
type MatchResult struct {
	Line            RawLine
	LineIndex       int
	MatchedRecordID string   // "" when unmatched
	RelatedRecords  []string // second record of a one-line/two-record split
	RelatedLines    []int    // other line indexes sharing a two-line/one-record split
	Tier            MatchTier
	Confidence      int
	Reason          string
}

// Matched reports whether the line was paired with any record.
func (m MatchResult) Matched() bool {
	return m.Tier != TierUnmatched && m.MatchedRecordID != ""
}

// RecordIDs returns every book record this result consumed.
func (m MatchResult) RecordIDs() []string {
	if m.MatchedRecordID == "" {
		return nil
	}
	return append([]string{m.MatchedRecordID}, m.RelatedRecords...)
}
