// Package segment cleans raw document text and splits it into sentences
// ready for candidate filtering.
package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	wsPattern        = regexp.MustCompile(`\s+`)
	pageNumPattern   = regexp.MustCompile(`(?i)page\s*\d+`)
	pageDashPattern  = regexp.MustCompile(`-\s*\d+\s*-`)
	copyrightPattern = regexp.MustCompile(`(?i)copyright.*?\d{4}`)
	rightsPattern    = regexp.MustCompile(`(?i)all rights reserved`)
	dotRunPattern    = regexp.MustCompile(`\.{3,}`)
	dashRunPattern   = regexp.MustCompile(`-{4,}`)
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	emailPattern     = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// Clean strips page markers, boilerplate, URLs, and email addresses, and
// collapses runs of whitespace. The output feeds the candidate filter,
// not a renderer.
func Clean(text string) string {
	text = wsPattern.ReplaceAllString(text, " ")
	text = pageNumPattern.ReplaceAllString(text, "")
	text = pageDashPattern.ReplaceAllString(text, "")
	text = copyrightPattern.ReplaceAllString(text, "")
	text = rightsPattern.ReplaceAllString(text, "")
	text = dotRunPattern.ReplaceAllString(text, "...")
	text = dashRunPattern.ReplaceAllString(text, "---")
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Fragments at or below this rune count are noise (stray list numbers,
// orphaned headings) and are dropped before the sentence budget applies.
const minSentenceRunes = 10

// Sentences splits text at sentence terminators. CJK terminators always end
// a sentence; an ASCII period only ends one when it is not inside a number
// or standard code (IEEE 1474.1, GB/T 28807-2012) and is followed by a
// space or end of text. The terminator stays attached to its sentence.
// Fragments of minSentenceRunes runes or fewer are discarded.
func Sentences(text string) []string {
	var out []string
	var b strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)

		end := false
		switch r {
		case '。', '！', '？', '；', '!', '?':
			end = true
		case '.':
			var prev, next rune
			if i > 0 {
				prev = runes[i-1]
			}
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			if !(unicode.IsDigit(prev) && unicode.IsDigit(next)) &&
				(next == 0 || unicode.IsSpace(next)) {
				end = true
			}
		}

		if end {
			if s := strings.TrimSpace(b.String()); utf8.RuneCountInString(s) > minSentenceRunes {
				out = append(out, s)
			}
			b.Reset()
		}
	}

	if s := strings.TrimSpace(b.String()); utf8.RuneCountInString(s) > minSentenceRunes {
		out = append(out, s)
	}
	return out
}
