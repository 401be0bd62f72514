// Package filter decides which sentences are worth escalating to the
// extraction oracle and scores them for batch ordering. Filtering typically
// drops 80%+ of sentences, which is where the oracle cost saving comes from.
package filter

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/davepan/kgraph/lang"
	"github.com/davepan/kgraph/ner"
)

// Config controls candidate selection thresholds and keyword lists.
type Config struct {
	MinSentenceLength int `json:"min_sentence_length" yaml:"min_sentence_length"` // runes
	MaxSentenceLength int `json:"max_sentence_length" yaml:"max_sentence_length"` // runes
	MinEntities       int `json:"min_entities" yaml:"min_entities"`

	// Language-specific relation keywords. A sentence must contain at
	// least one to qualify.
	KeywordsZH []string `json:"keywords_zh" yaml:"keywords_zh"`
	KeywordsEN []string `json:"keywords_en" yaml:"keywords_en"`
}

// DefaultConfig returns the thresholds and curated keyword lists covering
// composition, purpose, basis, connection, control, transmission,
// compliance, and identity verbs.
func DefaultConfig() Config {
	return Config{
		MinSentenceLength: 10,
		MaxSentenceLength: 500,
		MinEntities:       2,
		KeywordsZH: []string{
			"包括", "包含", "含有", "由", "组成",
			"用于", "应用于", "适用于", "服务于",
			"基于", "依据", "根据", "按照",
			"连接", "接口", "通信", "传输",
			"控制", "管理", "运行", "操作",
			"实现", "提供", "支持",
			"发送", "接收", "传送",
			"规定", "要求", "明确", "说明",
			"符合", "遵循", "满足",
			"是", "为", "属于", "隶属于",
		},
		KeywordsEN: []string{
			"include", "contain", "comprise", "consist",
			"use", "apply", "employ", "serve",
			"base", "derive", "build", "follow",
			"connect", "link", "interface", "communicate",
			"control", "manage", "operate", "run",
			"implement", "provide", "support",
			"send", "receive", "transmit",
			"specify", "require", "define",
			"comply", "conform", "satisfy",
			"is", "are", "belong",
		},
	}
}

// Candidate is a sentence that passed filtering, with its priority score.
type Candidate struct {
	Text     string        `json:"text"`
	Language lang.Language `json:"language"`
	Priority int           `json:"priority"`
}

// Uppercase runs signal technical jargon (CBTC, ZC, RSSP).
var jargonPattern = regexp.MustCompile(`[A-Z]{2,}`)

// Standard references bump priority: sentences citing norms tend to carry
// compliance relations.
var standardRefPattern = regexp.MustCompile(`GB/T|ISO|IEC|标准|规范`)

// Filter selects and scores candidate sentences.
type Filter struct {
	cfg Config
	ner *ner.Extractor
}

// New returns a Filter using the given extractor for entity counting.
// Zero-value config fields take defaults.
func New(cfg Config, extractor *ner.Extractor) *Filter {
	def := DefaultConfig()
	if cfg.MinSentenceLength == 0 {
		cfg.MinSentenceLength = def.MinSentenceLength
	}
	if cfg.MaxSentenceLength == 0 {
		cfg.MaxSentenceLength = def.MaxSentenceLength
	}
	if cfg.MinEntities == 0 {
		cfg.MinEntities = def.MinEntities
	}
	if len(cfg.KeywordsZH) == 0 {
		cfg.KeywordsZH = def.KeywordsZH
	}
	if len(cfg.KeywordsEN) == 0 {
		cfg.KeywordsEN = def.KeywordsEN
	}
	if extractor == nil {
		extractor = ner.New(ner.DefaultConfig())
	}
	return &Filter{cfg: cfg, ner: extractor}
}

// IsCandidate reports whether a sentence is worth an oracle call: length
// within bounds, at least MinEntities distinct mentions, and at least one
// relation keyword for the sentence language.
func (f *Filter) IsCandidate(sentence string, language lang.Language) bool {
	n := utf8.RuneCountInString(sentence)
	if n < f.cfg.MinSentenceLength || n > f.cfg.MaxSentenceLength {
		return false
	}
	if f.ner.DistinctCount(sentence) < f.cfg.MinEntities {
		return false
	}
	return f.hasRelationKeyword(sentence, language)
}

func (f *Filter) hasRelationKeyword(sentence string, language lang.Language) bool {
	keywords := f.cfg.KeywordsEN
	if language == lang.Chinese {
		keywords = f.cfg.KeywordsZH
	}
	lower := strings.ToLower(sentence)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Priority scores a sentence in [0,10]. Base 5, plus entity density,
// technical jargon, and standard references.
func (f *Filter) Priority(sentence string, language lang.Language) int {
	score := 5

	switch n := f.ner.DistinctCount(sentence); {
	case n >= 4:
		score += 3
	case n == 3:
		score += 2
	case n == 2:
		score += 1
	}

	if jargonPattern.MatchString(sentence) {
		score += 2
	}
	if standardRefPattern.MatchString(sentence) {
		score += 1
	}

	if score > 10 {
		score = 10
	}
	return score
}

// Filter returns the candidates among sentences, in input order.
func (f *Filter) Filter(sentences []string, language lang.Language) []Candidate {
	var out []Candidate
	for _, s := range sentences {
		if !f.IsCandidate(s, language) {
			continue
		}
		out = append(out, Candidate{
			Text:     s,
			Language: language,
			Priority: f.Priority(s, language),
		})
	}
	return out
}

// Batches orders candidates by descending priority (stable with respect to
// input order) and groups them into batches of at most size sentences, so
// the extraction budget is spent on the most information-dense sentences
// first.
func Batches(candidates []Candidate, size int) [][]Candidate {
	if size <= 0 {
		size = 10
	}
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	var batches [][]Candidate
	for start := 0; start < len(sorted); start += size {
		end := start + size
		if end > len(sorted) {
			end = len(sorted)
		}
		batches = append(batches, sorted[start:end])
	}
	return batches
}
