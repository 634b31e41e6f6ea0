// Package venue maps free-text activity titles to canonical venue names.
package venue

import (
	"regexp"
	"strings"
	"unicode"

	"courtstats/internal/catalog"
)

// Tier records which rule produced a classification.
type Tier string

const (
	TierBracket  Tier = "bracket"
	TierKeyword  Tier = "keyword"
	TierFallback Tier = "fallback"
)

// bracketPattern matches 【organizer·venue】 in a whitespace-free title.
var bracketPattern = regexp.MustCompile(`【([^·】]+)·([^】]+)】`)

// Match explains a classification.
type Match struct {
	Venue string `json:"venue"`
	Tier  Tier   `json:"tier"`
	Alias string `json:"alias,omitempty"`
}

// Classifier resolves titles against an ordered alias table. It is safe for
// concurrent use.
type Classifier struct {
	venues   []catalog.Venue
	fallback string
}

// NewClassifier builds a classifier from the catalog's venue table. Aliases
// are expected in normalised form (see catalog.Parse).
func NewClassifier(c catalog.Catalog) *Classifier {
	venues := make([]catalog.Venue, len(c.Venues))
	copy(venues, c.Venues)
	return &Classifier{venues: venues, fallback: c.FallbackVenue}
}

// Fallback is the catch-all venue name.
func (c *Classifier) Fallback() string {
	return c.fallback
}

// Classify returns the canonical venue for title. It never fails.
func (c *Classifier) Classify(title string) string {
	return c.Explain(title).Venue
}

// Explain classifies title and reports the tier and alias that matched.
func (c *Classifier) Explain(title string) Match {
	normalized := normalize(title)
	if normalized == "" {
		return Match{Venue: c.fallback, Tier: TierFallback}
	}

	if m := bracketPattern.FindStringSubmatch(normalized); m != nil {
		if name, alias, ok := c.lookup(strings.ToLower(m[2])); ok {
			return Match{Venue: name, Tier: TierBracket, Alias: alias}
		}
	}

	if name, alias, ok := c.lookup(strings.ToLower(normalized)); ok {
		return Match{Venue: name, Tier: TierKeyword, Alias: alias}
	}

	return Match{Venue: c.fallback, Tier: TierFallback}
}

// lookup scans venues in declaration order for an alias contained in s.
func (c *Classifier) lookup(s string) (name, alias string, ok bool) {
	for _, v := range c.venues {
		for _, a := range v.Aliases {
			if a != "" && strings.Contains(s, a) {
				return v.Name, a, true
			}
		}
	}
	return "", "", false
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
