// Package rules holds the keyword rule tables the categorization engine
// matches transactions against. Rule sets are immutable once built and are
// passed into the engine explicitly, so families and tests can supply
// their own tables instead of relying on hidden module state.
package rules

import (
	"sort"
	"strings"
)

// Rule maps a keyword set to a target category name pattern with a weight.
// The score of a rule against a transaction is
// (matched keywords / total keywords) * weight.
type Rule struct {
	Keywords        []string
	CategoryPattern string
	Weight          float64
}

// fallbackEntry pairs a provider hint keyword with its category pattern.
type fallbackEntry struct {
	hint    string
	pattern string
}

// RuleSet is an ordered rule table plus an ordered provider-category
// fallback table.
type RuleSet struct {
	rules    []Rule
	fallback []fallbackEntry
}

// New builds an immutable RuleSet from a rule table and a provider-category
// fallback mapping (provider hint keyword -> category name pattern). The
// inputs are copied; keywords and patterns are lowercased. Fallback entries
// are kept sorted by hint so resolution order is deterministic.
func New(table []Rule, fallback map[string]string) *RuleSet {
	rs := &RuleSet{
		rules:    make([]Rule, 0, len(table)),
		fallback: make([]fallbackEntry, 0, len(fallback)),
	}
	for _, r := range table {
		keywords := make([]string, len(r.Keywords))
		for i, k := range r.Keywords {
			keywords[i] = strings.ToLower(k)
		}
		rs.rules = append(rs.rules, Rule{
			Keywords:        keywords,
			CategoryPattern: strings.ToLower(r.CategoryPattern),
			Weight:          r.Weight,
		})
	}
	for hint, pattern := range fallback {
		rs.fallback = append(rs.fallback, fallbackEntry{
			hint:    strings.ToLower(hint),
			pattern: strings.ToLower(pattern),
		})
	}
	sort.Slice(rs.fallback, func(i, j int) bool {
		return rs.fallback[i].hint < rs.fallback[j].hint
	})
	return rs
}

// Rules returns the ordered rule table.
func (rs *RuleSet) Rules() []Rule {
	return rs.rules
}

// FallbackPattern resolves a provider category hint to a category name
// pattern by case-insensitive substring match against the fallback hints.
// Entries are checked in sorted hint order, so a hint matching more than
// one entry always resolves the same way.
func (rs *RuleSet) FallbackPattern(providerCategory string) (string, bool) {
	hint := strings.ToLower(providerCategory)
	if hint == "" {
		return "", false
	}
	for _, entry := range rs.fallback {
		if strings.Contains(hint, entry.hint) {
			return entry.pattern, true
		}
	}
	return "", false
}

// Default returns the stock rule table used when a family has not
// configured its own.
func Default() *RuleSet {
	return New(defaultTable, defaultFallback)
}

var defaultTable = []Rule{
	{Keywords: []string{"grocery", "market", "food", "supermarket"}, CategoryPattern: "groceries", Weight: 0.9},
	{Keywords: []string{"restaurant", "cafe", "coffee", "pizza", "burger"}, CategoryPattern: "dining", Weight: 0.85},
	{Keywords: []string{"gas", "fuel", "shell", "chevron", "exxon"}, CategoryPattern: "transport", Weight: 0.85},
	{Keywords: []string{"uber", "lyft", "transit", "parking", "toll"}, CategoryPattern: "transport", Weight: 0.8},
	{Keywords: []string{"electric", "water", "gas bill", "utility", "internet"}, CategoryPattern: "utilities", Weight: 0.9},
	{Keywords: []string{"rent", "mortgage", "landlord", "property"}, CategoryPattern: "housing", Weight: 0.95},
	{Keywords: []string{"insurance", "premium", "policy"}, CategoryPattern: "insurance", Weight: 0.9},
	{Keywords: []string{"pharmacy", "doctor", "dental", "clinic", "hospital"}, CategoryPattern: "health", Weight: 0.85},
	{Keywords: []string{"netflix", "spotify", "hulu", "subscription", "streaming"}, CategoryPattern: "entertainment", Weight: 0.8},
	{Keywords: []string{"amazon", "target", "walmart", "store"}, CategoryPattern: "shopping", Weight: 0.7},
	{Keywords: []string{"school", "tuition", "daycare", "books"}, CategoryPattern: "education", Weight: 0.85},
	{Keywords: []string{"payroll", "salary", "direct deposit"}, CategoryPattern: "income", Weight: 0.9},
}

var defaultFallback = map[string]string{
	"food and drink": "dining",
	"groceries":      "groceries",
	"travel":         "transport",
	"transportation": "transport",
	"rent":           "housing",
	"utilities":      "utilities",
	"medical":        "health",
	"recreation":     "entertainment",
	"shops":          "shopping",
	"transfer":       "income",
}
