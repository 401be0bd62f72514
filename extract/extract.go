// Package extract turns candidate sentences into validated relation triples
// by prompting an LLM in batches. Responses are treated as untrusted:
// malformed JSON, wrapper objects, and junk triples are recovered from or
// dropped without failing the batch.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/davepan/kgraph/lang"
	"github.com/davepan/kgraph/llm"
)

// Triple is a validated (subject, relation, object) extraction, with the
// candidate sentence it was matched back to, when one could be identified.
type Triple struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
	Context  string `json:"context,omitempty"`
}

const defaultCacheSize = 256

// Oracle extracts relation triples from sentence batches via an LLM
// provider. Identical batches hit an in-memory LRU cache instead of the
// provider, which matters when the same document is reprocessed.
type Oracle struct {
	chat        llm.Provider
	temperature float64
	cache       *lru.Cache[string, []Triple]
}

// NewOracle creates an oracle backed by the given chat provider.
func NewOracle(chat llm.Provider, cacheSize int) *Oracle {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, _ := lru.New[string, []Triple](cacheSize)
	return &Oracle{chat: chat, temperature: 0.1, cache: cache}
}

// ExtractBatch prompts the LLM with a batch of sentences and returns the
// validated triples plus the number of raw triples discarded by validation.
func (o *Oracle) ExtractBatch(ctx context.Context, sentences []string, language lang.Language) ([]Triple, int, error) {
	if len(sentences) == 0 {
		return nil, 0, nil
	}

	key := batchKey(sentences, language)
	if cached, ok := o.cache.Get(key); ok {
		return cached, 0, nil
	}

	resp, err := o.chat.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(sentences, language)},
		},
		Temperature:    o.temperature,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, 0, fmt.Errorf("extraction llm chat: %w", err)
	}

	triples, discarded, err := parseTriples(resp.Content)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing extraction result: %w", err)
	}

	for i := range triples {
		triples[i].Context = matchContext(triples[i], sentences)
	}

	o.cache.Add(key, triples)
	return triples, discarded, nil
}

func batchKey(sentences []string, language lang.Language) string {
	h := sha256.New()
	h.Write([]byte(language))
	for _, s := range sentences {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSONArray finds a JSON array in the LLM response text. It handles
// common quirks: markdown code blocks, prose around the JSON, and wrapper
// objects like {"relations": [...]} whose inner array is recovered by the
// bracket scan.
func extractJSONArray(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}

	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "[") {
		return raw, nil
	}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON array found in response")
}

// parseTriples decodes and validates the raw LLM output. A triple survives
// when all three fields are present after trimming, the relation is
// non-empty, and subject and object are longer than one rune. Single-rune
// names are almost always extraction noise (stray characters, list
// markers). The second return value counts discarded triples.
func parseTriples(raw string) ([]Triple, int, error) {
	jsonStr, err := extractJSONArray(raw)
	if err != nil {
		return nil, 0, err
	}

	var decoded []Triple
	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		return nil, 0, fmt.Errorf("unmarshalling triples: %w", err)
	}

	valid := make([]Triple, 0, len(decoded))
	discarded := 0
	for _, t := range decoded {
		t.Subject = strings.TrimSpace(t.Subject)
		t.Relation = strings.TrimSpace(t.Relation)
		t.Object = strings.TrimSpace(t.Object)

		if t.Relation == "" ||
			utf8.RuneCountInString(t.Subject) <= 1 ||
			utf8.RuneCountInString(t.Object) <= 1 {
			discarded++
			continue
		}
		valid = append(valid, t)
	}
	return valid, discarded, nil
}

// matchContext finds the first batch sentence mentioning the subject, or
// failing that the object. Triples the model synthesized across sentences
// get no context.
func matchContext(t Triple, sentences []string) string {
	for _, s := range sentences {
		if strings.Contains(s, t.Subject) {
			return s
		}
	}
	for _, s := range sentences {
		if strings.Contains(s, t.Object) {
			return s
		}
	}
	return ""
}
