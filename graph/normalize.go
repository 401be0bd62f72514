package graph

import "strings"

// defaultEntityPrefixes are demonstrative prefixes stripped from entity
// names so "该系统" and "系统" resolve to the same entity.
var defaultEntityPrefixes = []string{
	"该", "本", "所述", "上述",
	"the aforementioned ", "the above-mentioned ", "above-mentioned ",
	"the said ", "said ",
}

// defaultRelationSynonyms collapses near-synonym relation verbs onto one
// canonical label per relation family.
var defaultRelationSynonyms = map[string]string{
	// Composition
	"包含":          "包括",
	"包括有":         "包括",
	"由...组成":      "包括",
	"contains":    "includes",
	"comprises":   "includes",
	"consists of": "includes",
	// Purpose
	"应用于":        "用于",
	"适用于":        "用于",
	"applied to": "used for",
	"applies to": "used for",
	// Basis / compliance
	"依据":           "基于",
	"遵循":           "基于",
	"符合":           "基于",
	"according to": "based on",
	"complies with": "based on",
	"conforms to":  "based on",
}

// Normalizer canonicalizes entity names and relation labels. It is built
// once per graph and holds no mutable state.
type Normalizer struct {
	prefixes []string
	synonyms map[string]string
}

// NewNormalizer returns a Normalizer with the given overrides; nil or empty
// arguments fall back to the built-in lists.
func NewNormalizer(prefixes []string, synonyms map[string]string) *Normalizer {
	if len(prefixes) == 0 {
		prefixes = defaultEntityPrefixes
	}
	if len(synonyms) == 0 {
		synonyms = defaultRelationSynonyms
	}
	return &Normalizer{prefixes: prefixes, synonyms: synonyms}
}

// Entity collapses whitespace and strips demonstrative prefixes. The
// prefix list is applied in order, each at most once.
func (n *Normalizer) Entity(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}

	for _, prefix := range n.prefixes {
		if len(name) < len(prefix) {
			continue
		}
		if strings.EqualFold(name[:len(prefix)], prefix) {
			name = name[len(prefix):]
		}
	}
	return strings.TrimSpace(name)
}

// Relation collapses whitespace and maps synonyms to their canonical label.
func (n *Normalizer) Relation(relation string) string {
	relation = strings.Join(strings.Fields(relation), " ")
	if relation == "" {
		return ""
	}
	if canonical, ok := n.synonyms[strings.ToLower(relation)]; ok {
		return canonical
	}
	if canonical, ok := n.synonyms[relation]; ok {
		return canonical
	}
	return relation
}
