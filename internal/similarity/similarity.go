// Package similarity scores how alike two strings are on a 0..1 scale.
// Every function is symmetric and returns 1 for identical input.
package similarity

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// LongThreshold is the normalized length above which Score switches from
// edit distance to word overlap.
const LongThreshold = 48

// Ratio is 1 - editDistance/maxLen over case-folded alphanumerics.
func Ratio(a, b string) float64 {
	na, nb := compact(a), compact(b)
	if na == nb {
		return 1
	}
	la, lb := len([]rune(na)), len([]rune(nb))
	longest := max(la, lb)
	if longest == 0 || la == 0 || lb == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(d)/float64(longest)
}

// WordOverlap is the Jaccard index of the two strings' word sets.
func WordOverlap(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := intersection(wa, wb)
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

// Containment is |A∩B| / min(|A|,|B|) over word sets: 1 when every word
// of the shorter string appears in the longer one.
func Containment(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	return float64(intersection(wa, wb)) / float64(min(len(wa), len(wb)))
}

// Score picks the cheaper word-overlap measure for long strings and edit
// distance otherwise.
func Score(a, b string) float64 {
	if len([]rune(compact(a))) > LongThreshold || len([]rune(compact(b))) > LongThreshold {
		return WordOverlap(a, b)
	}
	return Ratio(a, b)
}

// Best is the maximum of Ratio, WordOverlap and Containment. Use it when a
// short name is compared against a longer free-text description.
func Best(a, b string) float64 {
	return max(Ratio(a, b), WordOverlap(a, b), Containment(a, b))
}

func compact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func wordSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func intersection(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
