// Package vocab holds the injectable vocabulary shared by extraction,
// classification and posting: category keyword tables in priority order,
// the category-to-account mapping, known vendor aliases and the noise
// tokens stripped from bank descriptions.
package vocab

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cleared-dev/ledgerflow/internal/model"
)

// Category is one keyword table. Earlier categories win ties.
type Category struct {
	Name        string          `yaml:"name"`
	Direction   model.Direction `yaml:"direction"`
	AccountCode string          `yaml:"account_code"`
	Keywords    []string        `yaml:"keywords"`
}

// VendorAlias maps a lower-case description fragment to a canonical vendor name.
type VendorAlias struct {
	Pattern string `yaml:"pattern"`
	Name    string `yaml:"name"`
}

// Vocabulary is the full set of tables. Build one with Default or load it
// from config; it is read-only after construction.
type Vocabulary struct {
	Categories      []Category    `yaml:"categories"`
	DefaultExpense  string        `yaml:"default_expense"`
	DefaultIncome   string        `yaml:"default_income"`
	DefaultExpAcct  string        `yaml:"default_expense_account"`
	DefaultIncAcct  string        `yaml:"default_income_account"`
	Vendors         []VendorAlias `yaml:"vendors"`
	NoiseTokens     []string      `yaml:"noise_tokens"`
	noise           map[string]bool
	sortedVendors   []VendorAlias
	categoryByName  map[string]Category
	normalizedCache map[string][]string
}

// Validate checks the tables and prepares lookup indexes. It must be called
// after loading from YAML; Default calls it already.
func (v *Vocabulary) Validate() error {
	if v.DefaultExpense == "" || v.DefaultIncome == "" {
		return fmt.Errorf("vocabulary: default_expense and default_income are required")
	}
	v.categoryByName = make(map[string]Category, len(v.Categories))
	v.normalizedCache = make(map[string][]string, len(v.Categories))
	for _, c := range v.Categories {
		if c.Name == "" {
			return fmt.Errorf("vocabulary: category with empty name")
		}
		if c.Direction != model.DirectionCredit && c.Direction != model.DirectionDebit {
			return fmt.Errorf("vocabulary: category %q has invalid direction %q", c.Name, c.Direction)
		}
		if _, dup := v.categoryByName[c.Name]; dup {
			return fmt.Errorf("vocabulary: duplicate category %q", c.Name)
		}
		v.categoryByName[c.Name] = c
		kws := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			if n := Normalize(kw); n != "" {
				kws = append(kws, n)
			}
		}
		v.normalizedCache[c.Name] = kws
	}

	v.noise = make(map[string]bool, len(v.NoiseTokens))
	for _, t := range v.NoiseTokens {
		v.noise[strings.ToLower(t)] = true
	}

	// Longest pattern first so "amazon web services" beats "amazon".
	v.sortedVendors = append([]VendorAlias(nil), v.Vendors...)
	sort.SliceStable(v.sortedVendors, func(i, j int) bool {
		a, b := v.sortedVendors[i].Pattern, v.sortedVendors[j].Pattern
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return nil
}

// Category returns the named category.
func (v *Vocabulary) Category(name string) (Category, bool) {
	c, ok := v.categoryByName[name]
	return c, ok
}

// DefaultCategory returns the fallback category name for a direction.
func (v *Vocabulary) DefaultCategory(dir model.Direction) string {
	if dir == model.DirectionCredit {
		return v.DefaultIncome
	}
	return v.DefaultExpense
}

// AccountFor maps a category to its account code, falling back to the
// default expense or income account for unknown categories.
func (v *Vocabulary) AccountFor(category string, dir model.Direction) string {
	if c, ok := v.categoryByName[category]; ok && c.AccountCode != "" {
		return c.AccountCode
	}
	if dir == model.DirectionCredit {
		return v.DefaultIncAcct
	}
	return v.DefaultExpAcct
}

// MatchKeywords returns the first category, in table order, whose keyword
// appears as a whole word sequence in desc. Only categories for dir are tried.
func (v *Vocabulary) MatchKeywords(desc string, dir model.Direction) (Category, string, bool) {
	padded := " " + Normalize(desc) + " "
	for _, c := range v.Categories {
		if c.Direction != dir {
			continue
		}
		for _, kw := range v.normalizedCache[c.Name] {
			if strings.Contains(padded, " "+kw+" ") {
				return c, kw, true
			}
		}
	}
	return Category{}, "", false
}

// LookupVendor returns the canonical name of the first known vendor alias
// found in desc.
func (v *Vocabulary) LookupVendor(desc string) (string, bool) {
	padded := " " + Normalize(desc) + " "
	for _, a := range v.sortedVendors {
		p := Normalize(a.Pattern)
		if p != "" && strings.Contains(padded, " "+p+" ") {
			return a.Name, true
		}
	}
	return "", false
}

// IsNoise reports whether a lower-case token is a transaction prefix,
// suffix or filler word.
func (v *Vocabulary) IsNoise(token string) bool {
	return v.noise[token]
}

// Normalize lower-cases s and collapses every run of non-alphanumerics to a
// single space.
func Normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
