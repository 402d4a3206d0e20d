// Package synth turns session memories into the consolidated memory document:
// deduplication, rendering and the pipeline that ties them to the store.
package synth

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/raphaelgruber/memsynth/internal/models"
)

// DefaultCap is the per-category cap used when none is configured.
const DefaultCap = 15

// Similarity decides whether two normalized contents state the same fact.
type Similarity interface {
	IsDuplicate(a, b string) bool
}

// Containment treats equal contents as duplicates, and contents that both
// exceed MinLength characters when either contains the other. Short phrases
// only collapse on exact match.
type Containment struct {
	MinLength int
}

// IsDuplicate implements Similarity.
func (c Containment) IsDuplicate(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) > c.MinLength && utf8.RuneCountInString(b) > c.MinLength {
		return strings.Contains(a, b) || strings.Contains(b, a)
	}
	return false
}

// DefaultSimilarity is lexical containment gated at 20 characters.
var DefaultSimilarity Similarity = Containment{MinLength: 20}

// Normalize prepares content for comparison: trimmed and lowercased.
func Normalize(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}

// Bucket is the deduplicated, capped, newest-first list for one category.
type Bucket struct {
	Category string
	Entries  []models.EnrichedEntry
}

// Dedupe groups entries by category and keeps, per category, at most
// capPerCategory entries that are pairwise distinct under sim, preferring the
// most recent. Categories are returned in the order they first appear in
// entries. A non-positive cap means DefaultCap; a nil sim means
// DefaultSimilarity.
func Dedupe(entries []models.EnrichedEntry, capPerCategory int, sim Similarity) []Bucket {
	if capPerCategory <= 0 {
		capPerCategory = DefaultCap
	}
	if sim == nil {
		sim = DefaultSimilarity
	}

	var order []string
	groups := make(map[string][]models.EnrichedEntry)
	for _, e := range entries {
		if _, ok := groups[e.Category]; !ok {
			order = append(order, e.Category)
		}
		groups[e.Category] = append(groups[e.Category], e)
	}

	buckets := make([]Bucket, 0, len(order))
	for _, category := range order {
		buckets = append(buckets, Bucket{
			Category: category,
			Entries:  dedupeCategory(groups[category], capPerCategory, sim),
		})
	}
	return buckets
}

// dedupeCategory handles one category's entries. Zero timestamps sort last.
func dedupeCategory(entries []models.EnrichedEntry, capPerCategory int, sim Similarity) []models.EnrichedEntry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b models.EnrichedEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	var seen []string
	unique := make([]models.EnrichedEntry, 0, min(len(sorted), capPerCategory))
	for _, e := range sorted {
		if len(unique) >= capPerCategory {
			break
		}
		content := Normalize(e.Content)
		if slices.ContainsFunc(seen, func(s string) bool { return sim.IsDuplicate(content, s) }) {
			continue
		}
		seen = append(seen, content)
		unique = append(unique, e)
	}
	return unique
}
