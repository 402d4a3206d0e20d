package synth

import (
	"strings"
	"time"
	"unicode"

	"github.com/raphaelgruber/memsynth/internal/config"
)

// DefaultTitle heads every rendered document.
const DefaultTitle = "Memory"

// TimestampLayout formats the "Last synthesized" line.
const TimestampLayout = "2006-01-02 15:04"

// DefaultOrder lists the categories rendered first, in this order.
var DefaultOrder = []string{
	config.CategoryWorkContext,
	config.CategoryOngoingProjects,
	config.CategoryPreferences,
	config.CategoryTechnicalStyle,
	config.CategoryToolsAndWorkflows,
}

// DefaultDisplayNames overrides headings that title-casing gets wrong.
var DefaultDisplayNames = map[string]string{
	config.CategoryToolsAndWorkflows: "Tools & Workflows",
}

// Renderer produces the memory document. Output depends only on its fields,
// the buckets and the timestamp.
type Renderer struct {
	Title        string
	Order        []string
	DisplayNames map[string]string
}

// NewRenderer returns a renderer with the default title, order and names.
func NewRenderer() *Renderer {
	return &Renderer{
		Title:        DefaultTitle,
		Order:        DefaultOrder,
		DisplayNames: DefaultDisplayNames,
	}
}

// Render writes the document for buckets as of now.
func (r *Renderer) Render(buckets []Bucket, now time.Time) string {
	lines := []string{
		"# " + r.Title,
		"",
		"*Last synthesized: " + now.Format(TimestampLayout) + "*",
		"",
	}

	for _, b := range r.Arrange(buckets) {
		lines = append(lines, "## "+r.DisplayName(b.Category))
		for _, e := range b.Entries {
			lines = append(lines, "- "+e.Content)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// Arrange returns the non-empty buckets in document order: categories from
// r.Order first, then the rest in their given order.
func (r *Renderer) Arrange(buckets []Bucket) []Bucket {
	byCategory := make(map[string]Bucket, len(buckets))
	for _, b := range buckets {
		byCategory[b.Category] = b
	}

	arranged := make([]Bucket, 0, len(buckets))
	emitted := make(map[string]bool, len(buckets))
	for _, category := range r.Order {
		b, ok := byCategory[category]
		if !ok || len(b.Entries) == 0 || emitted[category] {
			continue
		}
		arranged = append(arranged, b)
		emitted[category] = true
	}
	for _, b := range buckets {
		if len(b.Entries) == 0 || emitted[b.Category] {
			continue
		}
		arranged = append(arranged, b)
		emitted[b.Category] = true
	}
	return arranged
}

// DisplayName returns the heading for a category.
func (r *Renderer) DisplayName(category string) string {
	if name, ok := r.DisplayNames[category]; ok {
		return name
	}
	return TitleCase(strings.ReplaceAll(category, "_", " "))
}

// TitleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "ongoing projects" becomes "Ongoing Projects" and
// "API keys" becomes "Api Keys".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
