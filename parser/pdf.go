package parser

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts text from PDF files page by page. Heading detection
// is tuned for Chinese and English technical documents.
type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	sections := make([]Section, 0)

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		sections = append(sections, splitPageIntoSections(text, i)...)
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("no extractable text in PDF")
	}

	return &ParseResult{Sections: sections}, nil
}

// splitPageIntoSections breaks page text into logical sections at heading
// boundaries.
func splitPageIntoSections(text string, pageNum int) []Section {
	lines := strings.Split(text, "\n")
	var sections []Section
	var currentContent strings.Builder
	var currentHeading string
	currentLevel := 0

	flush := func() {
		if currentContent.Len() == 0 {
			return
		}
		content := strings.TrimSpace(currentContent.String())
		sections = append(sections, Section{
			Heading:    currentHeading,
			Content:    content,
			Level:      currentLevel,
			PageNumber: pageNum,
			Type:       classifySectionType(currentHeading, content),
		})
		currentContent.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if currentContent.Len() > 0 {
				currentContent.WriteString("\n")
			}
			continue
		}

		if isLikelyHeading(trimmed) {
			flush()
			currentHeading = trimmed
			currentLevel = detectHeadingLevel(trimmed)
		} else {
			if currentContent.Len() > 0 {
				currentContent.WriteString("\n")
			}
			currentContent.WriteString(trimmed)
		}
	}
	flush()

	// If no sections were created, return the whole page as one section
	if len(sections) == 0 && strings.TrimSpace(text) != "" {
		sections = append(sections, Section{
			Content:    text,
			PageNumber: pageNum,
			Type:       "paragraph",
		})
	}

	return sections
}

func isLikelyHeading(line string) bool {
	runes := []rune(line)
	if len(runes) > 60 {
		return false
	}

	// Numbered section like "1.", "1.1", "3.9.1", "7.3.1.2"
	if len(line) > 0 && line[0] >= '0' && line[0] <= '9' &&
		strings.Contains(line[:min(10, len(line))], ".") {
		return true
	}

	// Chinese chapter markers: 第一章, 第3节, 附录A
	if strings.HasPrefix(line, "第") &&
		(strings.Contains(line, "章") || strings.Contains(line, "节") || strings.Contains(line, "部分")) {
		return true
	}
	if strings.HasPrefix(line, "附录") {
		return true
	}

	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "section ") || strings.HasPrefix(lower, "chapter ") ||
		strings.HasPrefix(lower, "appendix ") || strings.HasPrefix(lower, "annex ") {
		return true
	}

	// Short all-caps ASCII lines
	if len(runes) > 2 && isUpperASCII(line) {
		return true
	}

	return false
}

func isUpperASCII(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func detectHeadingLevel(heading string) int {
	// Count dots in numbering to determine depth
	parts := strings.SplitN(heading, " ", 2)
	if len(parts) > 0 {
		dots := strings.Count(parts[0], ".")
		if dots > 0 {
			return dots
		}
	}
	if strings.Contains(heading, "章") || isUpperASCII(heading) {
		return 1
	}
	return 2
}

func classifySectionType(heading, content string) string {
	headingLower := strings.ToLower(heading)
	contentLower := strings.ToLower(content)

	if strings.Contains(headingLower, "definition") || strings.Contains(headingLower, "glossary") ||
		strings.Contains(heading, "定义") || strings.Contains(heading, "术语") {
		return "definition"
	}
	if strings.Contains(headingLower, "requirement") || strings.Contains(heading, "要求") ||
		strings.Contains(contentLower, "shall") || strings.Contains(content, "应满足") {
		return "requirement"
	}
	if strings.Contains(headingLower, "table") || strings.Contains(heading, "表") {
		return "table"
	}
	// Structural table detection via content: tabs/pipes indicate actual table formatting
	if strings.Count(content, "\t") > 3 || strings.Count(content, "|") > 3 {
		return "table"
	}
	if strings.Contains(headingLower, "annex") || strings.Contains(heading, "附录") {
		return "annex"
	}
	return "section"
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
