// Package graph assembles validated relation triples into a deduplicated
// knowledge graph with normalized entities, and serializes the result.
//
// All rejection paths are silent: the triple stream comes from an LLM and
// is inherently noisy, so invalid input degrades the graph gracefully
// instead of halting the pipeline.
package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/davepan/kgraph/ner"
)

// MergeStrategy selects how MergeSimilarEntities decides that two names
// refer to the same entity.
type MergeStrategy string

const (
	// MergePrefix groups names by a shared 3-rune prefix and merges
	// substring variants.
	MergePrefix MergeStrategy = "prefix"

	// MergeLevenshtein additionally requires normalized Levenshtein
	// similarity at or above the configured threshold. Opt-in.
	MergeLevenshtein MergeStrategy = "levenshtein"
)

// Entity is a node in the knowledge graph, keyed by its normalized name.
type Entity struct {
	Name      string         `json:"name"`
	Type      ner.EntityType `json:"type"`
	Frequency int            `json:"frequency"`
	Contexts  []string       `json:"contexts"`
}

// Triple is a directed, labelled edge between two entities.
type Triple struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
	Context  string `json:"context"`
}

// TopEntity is an entry in the most-frequent-entities statistic.
type TopEntity struct {
	Name      string         `json:"name"`
	Type      ner.EntityType `json:"type"`
	Frequency int            `json:"frequency"`
}

// Statistics summarizes a graph.
type Statistics struct {
	NumEntities      int         `json:"num_entities"`
	NumRelations     int         `json:"num_relations"`
	NumRelationTypes int         `json:"num_relation_types"`
	RelationTypes    []string    `json:"relation_types"`
	TopEntities      []TopEntity `json:"top_entities"`
}

// Document is the serialized form of a graph.
type Document struct {
	Entities   []Entity   `json:"entities"`
	Relations  []Triple   `json:"relations"`
	Statistics Statistics `json:"statistics"`
}

// Config controls normalization, merging, and statistics.
type Config struct {
	// EntityPrefixes overrides the demonstrative prefixes stripped during
	// entity normalization.
	EntityPrefixes []string `json:"entity_prefixes" yaml:"entity_prefixes"`

	// RelationSynonyms overrides the synonym-to-canonical relation table.
	RelationSynonyms map[string]string `json:"relation_synonyms" yaml:"relation_synonyms"`

	// MergeStrategy selects the entity merge heuristic. Default prefix.
	MergeStrategy MergeStrategy `json:"merge_strategy" yaml:"merge_strategy"`

	// MaxContexts caps the context history stored per entity.
	MaxContexts int `json:"max_contexts" yaml:"max_contexts"`

	// TopEntities is the N reported by Statistics.
	TopEntities int `json:"top_entities" yaml:"top_entities"`
}

type tripleKey struct {
	subject  string
	relation string
	object   string
}

// Graph is a knowledge graph under construction. It is built per document
// or per run, mutated by a single writer, then serialized and discarded.
// Entity iteration order is insertion order, which keeps merge results and
// serialized output deterministic.
type Graph struct {
	cfg  Config
	norm *Normalizer

	entities      map[string]*Entity
	order         []string // entity names in insertion order
	relations     []Triple
	relationTypes map[string]struct{}
	seen          map[tripleKey]struct{}
}

// New creates an empty graph. Zero-value config fields take defaults.
func New(cfg Config) *Graph {
	if cfg.MergeStrategy == "" {
		cfg.MergeStrategy = MergePrefix
	}
	if cfg.MaxContexts == 0 {
		cfg.MaxContexts = 20
	}
	if cfg.TopEntities == 0 {
		cfg.TopEntities = 10
	}
	return &Graph{
		cfg:           cfg,
		norm:          NewNormalizer(cfg.EntityPrefixes, cfg.RelationSynonyms),
		entities:      make(map[string]*Entity),
		relationTypes: make(map[string]struct{}),
		seen:          make(map[tripleKey]struct{}),
	}
}

// AddEntity inserts or updates an entity. A repeat insertion increments the
// frequency and records the context if novel; the original type is kept.
// Names that normalize to empty are dropped silently.
func (g *Graph) AddEntity(name string, typ ner.EntityType, context string) {
	name = g.norm.Entity(name)
	if name == "" {
		return
	}

	if e, ok := g.entities[name]; ok {
		e.Frequency++
		g.appendContext(e, context)
		return
	}

	e := &Entity{Name: name, Type: typ, Frequency: 1}
	if typ == "" {
		e.Type = ner.TypeUnknown
	}
	if context != "" {
		e.Contexts = []string{context}
	}
	g.entities[name] = e
	g.order = append(g.order, name)
}

func (g *Graph) appendContext(e *Entity, context string) {
	if context == "" || len(e.Contexts) >= g.cfg.MaxContexts {
		return
	}
	for _, c := range e.Contexts {
		if c == context {
			return
		}
	}
	e.Contexts = append(e.Contexts, context)
}

// AddRelation validates, deduplicates, and appends a triple, creating
// subject and object entities as needed. Empty fields after normalization,
// self-loops, and repeat triples are silent no-ops.
func (g *Graph) AddRelation(subject, relation, object, context string) {
	subject = g.norm.Entity(subject)
	object = g.norm.Entity(object)
	relation = g.norm.Relation(relation)

	if subject == "" || object == "" || relation == "" {
		return
	}
	if subject == object {
		return
	}

	key := tripleKey{subject, relation, object}
	if _, ok := g.seen[key]; ok {
		return
	}
	g.seen[key] = struct{}{}

	g.AddEntity(subject, ner.TypeUnknown, context)
	g.AddEntity(object, ner.TypeUnknown, context)

	g.relations = append(g.relations, Triple{
		Subject:  subject,
		Relation: relation,
		Object:   object,
		Context:  context,
	})
	g.relationTypes[relation] = struct{}{}
}

// NumEntities returns the number of distinct entities.
func (g *Graph) NumEntities() int { return len(g.entities) }

// NumRelations returns the number of accepted triples.
func (g *Graph) NumRelations() int { return len(g.relations) }

// Entity returns the entity with the given normalized name, or nil.
func (g *Graph) Entity(name string) *Entity {
	return g.entities[g.norm.Entity(name)]
}

// Entities returns all entities in insertion order.
func (g *Graph) Entities() []Entity {
	out := make([]Entity, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, *g.entities[name])
	}
	return out
}

// Relations returns all accepted triples in acceptance order.
func (g *Graph) Relations() []Triple {
	out := make([]Triple, len(g.relations))
	copy(out, g.relations)
	return out
}

// Statistics computes summary counts, the sorted relation-type list, and
// the top-N most frequent entities.
func (g *Graph) Statistics() Statistics {
	types := make([]string, 0, len(g.relationTypes))
	for t := range g.relationTypes {
		types = append(types, t)
	}
	sort.Strings(types)

	return Statistics{
		NumEntities:      len(g.entities),
		NumRelations:     len(g.relations),
		NumRelationTypes: len(g.relationTypes),
		RelationTypes:    types,
		TopEntities:      g.topEntities(g.cfg.TopEntities),
	}
}

func (g *Graph) topEntities(n int) []TopEntity {
	names := make([]string, len(g.order))
	copy(names, g.order)
	sort.SliceStable(names, func(i, j int) bool {
		return g.entities[names[i]].Frequency > g.entities[names[j]].Frequency
	})
	if len(names) > n {
		names = names[:n]
	}

	out := make([]TopEntity, 0, len(names))
	for _, name := range names {
		e := g.entities[name]
		out = append(out, TopEntity{Name: e.Name, Type: e.Type, Frequency: e.Frequency})
	}
	return out
}

// ToDocument converts the graph to its serialized form.
func (g *Graph) ToDocument() Document {
	return Document{
		Entities:   g.Entities(),
		Relations:  g.Relations(),
		Statistics: g.Statistics(),
	}
}

// Save writes the graph as an indented UTF-8 JSON document.
func (g *Graph) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating graph file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.ToDocument()); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return nil
}

// LoadDocument reads a previously saved graph document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding graph file: %w", err)
	}
	return &doc, nil
}
