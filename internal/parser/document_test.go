package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `# Memory

*Last synthesized: 2025-06-01 09:05*

## Work Context
- works on billing

## Preferences
- prefers tabs
- uses vim
  for everything

## Tools & Workflows
- uses make
`

func TestParseMemoryDocument(t *testing.T) {
	doc, err := ParseMemoryDocument(sampleDocument)
	require.NoError(t, err)

	assert.Equal(t, "Memory", doc.Title)
	assert.True(t, time.Date(2025, 6, 1, 9, 5, 0, 0, time.Local).Equal(doc.LastSynthesized))

	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "Work Context", doc.Sections[0].Heading)
	assert.Equal(t, 5, doc.Sections[0].Line)
	assert.Equal(t, []string{"works on billing"}, doc.Sections[0].Items)

	prefs := doc.Section("Preferences")
	require.NotNil(t, prefs)
	assert.Equal(t, []string{"prefers tabs", "uses vim\n  for everything"}, prefs.Items)

	assert.NotNil(t, doc.Section("Tools & Workflows"))
	assert.Nil(t, doc.Section("Missing"))
	assert.Equal(t, 4, doc.Count())
}

func TestParseMemoryDocument_NoTimestamp(t *testing.T) {
	doc, err := ParseMemoryDocument("# Memory\n\n## Preferences\n- a\n")
	require.NoError(t, err)
	assert.True(t, doc.LastSynthesized.IsZero())
	assert.Equal(t, 1, doc.Count())
}

func TestParseMemoryDocument_HeaderOnly(t *testing.T) {
	doc, err := ParseMemoryDocument("# Memory\n\n*Last synthesized: 2025-06-01 09:05*\n")
	require.NoError(t, err)
	assert.Empty(t, doc.Sections)
}

func TestParseMemoryDocument_NotADocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"plain text", "previous document\n"},
		{"only sections", strings.Join([]string{"## Preferences", "- a"}, "\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMemoryDocument(tt.content)
			assert.ErrorIs(t, err, ErrNotMemoryDocument)
		})
	}
}
