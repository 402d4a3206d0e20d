// Package parser reads a rendered memory document back into its structure.
package parser

import (
	"bufio"
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrNotMemoryDocument is returned for text without a level-one title.
var ErrNotMemoryDocument = errors.New("not a memory document")

var (
	headingRegex   = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	timestampRegex = regexp.MustCompile(`^\*Last synthesized:\s*(.+?)\*$`)
)

// timestampLayout matches the layout the renderer writes.
const timestampLayout = "2006-01-02 15:04"

// MemoryDocument is a parsed memory document.
type MemoryDocument struct {
	Title string
	// LastSynthesized is zero when the document carries no timestamp line.
	LastSynthesized time.Time
	Sections        []Section
}

// Section is one category heading and its bullets.
type Section struct {
	Heading string
	Items   []string
	// Line number of the heading, 1-based.
	Line int
}

// ParseMemoryDocument parses text written by the renderer. Bullet lines
// ("- ...") become items; other non-blank lines inside a section continue the
// previous item.
func ParseMemoryDocument(content string) (*MemoryDocument, error) {
	doc := &MemoryDocument{}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current *Section
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if match := headingRegex.FindStringSubmatch(line); match != nil {
			heading := strings.TrimSpace(match[2])
			if len(match[1]) == 1 {
				if doc.Title == "" {
					doc.Title = heading
				}
				continue
			}
			doc.Sections = append(doc.Sections, Section{Heading: heading, Line: lineNum})
			current = &doc.Sections[len(doc.Sections)-1]
			continue
		}

		if current == nil {
			if match := timestampRegex.FindStringSubmatch(strings.TrimSpace(line)); match != nil {
				if t, err := time.ParseInLocation(timestampLayout, match[1], time.Local); err == nil {
					doc.LastSynthesized = t
				}
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "- "):
			current.Items = append(current.Items, strings.TrimPrefix(line, "- "))
		case strings.TrimSpace(line) != "" && len(current.Items) > 0:
			last := &current.Items[len(current.Items)-1]
			*last += "\n" + line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if doc.Title == "" {
		return nil, ErrNotMemoryDocument
	}
	return doc, nil
}

// Section returns the section with the given heading, or nil.
func (d *MemoryDocument) Section(heading string) *Section {
	for i := range d.Sections {
		if d.Sections[i].Heading == heading {
			return &d.Sections[i]
		}
	}
	return nil
}

// Count returns the total number of items across sections.
func (d *MemoryDocument) Count() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Items)
	}
	return n
}
