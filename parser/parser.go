// Package parser extracts plain text from document files. Each format has
// its own parser; the registry maps file extensions to parsers.
package parser

import (
	"context"
	"strings"
)

// ParseResult is what a parser produces from a document file.
type ParseResult struct {
	Sections []Section // Ordered sections extracted from the document
	Metadata map[string]string
}

// Section represents a logical section of a parsed document.
type Section struct {
	Heading    string
	Content    string
	Level      int // Heading level (1=top, 2=sub, etc.)
	PageNumber int
	Type       string // "section", "table", "definition", "requirement", "paragraph"
	Metadata   map[string]string
}

// Text joins all section content into one document string, headings
// included, in section order.
func (r *ParseResult) Text() string {
	var b strings.Builder
	for _, s := range r.Sections {
		if s.Heading != "" {
			b.WriteString(s.Heading)
			b.WriteString("\n")
		}
		b.WriteString(s.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}
