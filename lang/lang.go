// Package lang classifies text as Chinese or English from character ratios.
package lang

import "unicode"

// Language is a detected document language.
type Language string

const (
	Chinese Language = "zh"
	English Language = "en"
)

// cjkThreshold is the CJK ratio above which text is treated as Chinese.
// Technical Chinese documents are dense with Latin abbreviations (CBTC, ZC),
// so the threshold is deliberately low.
const cjkThreshold = 0.3

// Detect returns the dominant language of text. It counts CJK ideographs
// against Latin letters; text with no letters at all defaults to English.
// Detect is total and deterministic.
func Detect(text string) Language {
	var cjk, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}

	total := cjk + latin
	if total == 0 {
		return English
	}
	if float64(cjk)/float64(total) > cjkThreshold {
		return Chinese
	}
	return English
}
