// Package ner finds candidate entity mentions in technical text using
// rule-based patterns: uppercase abbreviations, standard codes, and Chinese
// compound nouns ending in a domain suffix keyword.
package ner

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// EntityType classifies a mention.
type EntityType string

const (
	TypeTech     EntityType = "TECH"
	TypeSystem   EntityType = "SYSTEM"
	TypeStandard EntityType = "STANDARD"
	TypeUnknown  EntityType = "UNKNOWN"
)

// Mention is a single entity occurrence within a text span. Start and End
// are byte offsets into the input. Mentions from different rules may
// overlap; deduplication is the caller's responsibility.
type Mention struct {
	Text  string     `json:"text"`
	Type  EntityType `json:"type"`
	Start int        `json:"start"`
	End   int        `json:"end"`
}

// Config controls the pattern rules.
type Config struct {
	// SystemSuffixes are the domain keywords that terminate a Chinese
	// compound noun (system, device, controller, ...).
	SystemSuffixes []string `json:"system_suffixes" yaml:"system_suffixes"`

	// MaxSystemRunes caps the total length of a SYSTEM mention.
	MaxSystemRunes int `json:"max_system_runes" yaml:"max_system_runes"`
}

// DefaultConfig returns the rule configuration tuned for rail-signalling
// specification documents.
func DefaultConfig() Config {
	return Config{
		SystemSuffixes: []string{
			"系统", "设备", "装置", "控制器", "监控", "平台", "接口",
			"协议", "模块", "单元", "终端", "服务器", "工作站", "子系统",
		},
		MaxSystemRunes: 15,
	}
}

// Technical abbreviations: maximal runs of uppercase letters, optionally
// hyphen-joined with alphanumerics (CBTC, ZC, MIL-STD style identifiers).
var abbrevPattern = regexp.MustCompile(`\b[A-Z]{2,}(?:-[A-Z0-9]+)?\b`)

// Standard codes: GB/T, TB/T, IEC, IEEE, EN followed by a numeric
// identifier, optional sub-version and year suffix.
var standardPattern = regexp.MustCompile(`(?:GB/?T?|TB/?T?|IEC|IEEE|EN)\s*[0-9]+(?:[.-][0-9]+)*(?:[-—][0-9]{4})?`)

// Extractor matches entity mentions with patterns compiled once at
// construction. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	cfg      Config
	abbrev   *regexp.Regexp
	standard *regexp.Regexp
	system   []*regexp.Regexp
}

// New builds an Extractor from cfg. Zero-value fields take defaults.
func New(cfg Config) *Extractor {
	if len(cfg.SystemSuffixes) == 0 {
		cfg.SystemSuffixes = DefaultConfig().SystemSuffixes
	}
	if cfg.MaxSystemRunes == 0 {
		cfg.MaxSystemRunes = DefaultConfig().MaxSystemRunes
	}

	system := make([]*regexp.Regexp, 0, len(cfg.SystemSuffixes))
	for _, suffix := range cfg.SystemSuffixes {
		// 2-10 CJK characters immediately preceding the suffix keyword.
		system = append(system, regexp.MustCompile(fmt.Sprintf(`\p{Han}{2,10}?%s`, regexp.QuoteMeta(suffix))))
	}

	return &Extractor{
		cfg:      cfg,
		abbrev:   abbrevPattern,
		standard: standardPattern,
		system:   system,
	}
}

// Extract returns all mentions found in text, applying each rule
// independently and unioning the results.
func (e *Extractor) Extract(text string) []Mention {
	var mentions []Mention

	for _, loc := range e.abbrev.FindAllStringIndex(text, -1) {
		mentions = append(mentions, Mention{
			Text:  text[loc[0]:loc[1]],
			Type:  TypeTech,
			Start: loc[0],
			End:   loc[1],
		})
	}

	for _, loc := range e.standard.FindAllStringIndex(text, -1) {
		mentions = append(mentions, Mention{
			Text:  text[loc[0]:loc[1]],
			Type:  TypeStandard,
			Start: loc[0],
			End:   loc[1],
		})
	}

	for _, p := range e.system {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			name := text[loc[0]:loc[1]]
			if utf8.RuneCountInString(name) > e.cfg.MaxSystemRunes {
				continue
			}
			mentions = append(mentions, Mention{
				Text:  name,
				Type:  TypeSystem,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}

	return mentions
}

// DistinctCount returns the number of distinct mention texts in text.
// The candidate filter uses this as its entity-count threshold.
func (e *Extractor) DistinctCount(text string) int {
	seen := make(map[string]struct{})
	for _, m := range e.Extract(text) {
		seen[m.Text] = struct{}{}
	}
	return len(seen)
}
