// Package kgraph builds knowledge graphs from Chinese and English
// technical documents. The pipeline runs in three stages: rule-based
// candidate filtering narrows the document to sentences worth spending
// LLM tokens on, batched LLM calls extract relation triples from those
// candidates, and the graph assembler normalizes, deduplicates, and
// merges the results.
package kgraph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davepan/kgraph/extract"
	"github.com/davepan/kgraph/filter"
	"github.com/davepan/kgraph/graph"
	"github.com/davepan/kgraph/lang"
	"github.com/davepan/kgraph/llm"
	"github.com/davepan/kgraph/ner"
	"github.com/davepan/kgraph/parser"
	"github.com/davepan/kgraph/segment"
	"github.com/davepan/kgraph/store"
)

// Metadata summarizes a processing run.
type Metadata struct {
	Language       lang.Language `json:"language"`
	TotalSentences int           `json:"total_sentences"`
	Candidates     int           `json:"candidate_sentences"`
	FilterRate     string        `json:"filter_rate"`
}

// Result is the outcome of processing one document.
type Result struct {
	Graph    graph.Document `json:"graph"`
	Metadata Metadata       `json:"metadata"`
	Stats    extract.Stats  `json:"extraction"`
}

// Engine is the main entry point for the extraction pipeline.
type Engine interface {
	// Process runs the full pipeline over raw document text.
	Process(ctx context.Context, text string) (*Result, error)

	// ProcessFile parses a document file and runs the pipeline over it.
	ProcessFile(ctx context.Context, path string) (*Result, error)

	// ProcessDir processes every supported file in a directory.
	// Per-file failures are logged and skipped; the map holds results
	// keyed by file path.
	ProcessDir(ctx context.Context, dir string) (map[string]*Result, error)

	// Store returns the underlying store, or nil when persistence is off.
	Store() *store.Store

	// Close releases engine resources.
	Close() error
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	ner      *ner.Extractor
	filter   *filter.Filter
	runner   *extract.Runner
	embedLLM llm.Provider
	parsers  *parser.Registry
	store    *store.Store
}

// New creates an extraction engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractor := ner.New(cfg.NER)
	e := &engine{
		cfg:     cfg,
		ner:     extractor,
		filter:  filter.New(cfg.Filter, extractor),
		parsers: parser.NewRegistry(),
	}

	if cfg.UseLLM {
		chatLLM, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating chat provider: %w", err)
		}
		oracle := extract.NewOracle(chatLLM, cfg.CacheSize)
		e.runner = extract.NewRunner(oracle, cfg.Concurrency, cfg.BatchSize, cfg.BatchTimeout)
	}

	if cfg.DBPath != "" {
		s, err := store.New(cfg.DBPath, cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		e.store = s

		if cfg.Embedding.Provider != "" {
			embedLLM, err := llm.NewProvider(cfg.Embedding)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("creating embedding provider: %w", err)
			}
			e.embedLLM = embedLLM
		}
	}

	return e, nil
}

// Process runs the full pipeline over raw document text.
func (e *engine) Process(ctx context.Context, text string) (*Result, error) {
	start := time.Now()

	cleaned := segment.Clean(text)
	sentences := segment.Sentences(cleaned)
	if e.cfg.MaxSentences > 0 && len(sentences) > e.cfg.MaxSentences {
		slog.Info("process: sentence cap applied",
			"sentences", len(sentences), "cap", e.cfg.MaxSentences)
		sentences = sentences[:e.cfg.MaxSentences]
	}
	if len(sentences) == 0 {
		return nil, ErrEmptyDocument
	}

	language := lang.Detect(cleaned)
	candidates := e.filter.Filter(sentences, language)

	slog.Info("process: candidates selected",
		"language", language, "sentences", len(sentences),
		"candidates", len(candidates))

	var (
		triples []extract.Triple
		stats   extract.Stats
	)
	if e.cfg.UseLLM && e.runner != nil && len(candidates) > 0 {
		triples, stats = e.runner.Run(ctx, candidates, language)
	}

	g := e.buildGraph(sentences, triples)

	// Strict mode flags a misconfigured oracle, not a document that never
	// produced candidates in the first place.
	if e.cfg.Strict && e.cfg.UseLLM && len(candidates) > 0 && g.NumRelations() == 0 {
		return nil, ErrNoTriples
	}

	result := &Result{
		Graph: g.ToDocument(),
		Metadata: Metadata{
			Language:       language,
			TotalSentences: len(sentences),
			Candidates:     len(candidates),
			FilterRate:     filterRate(len(sentences), len(candidates)),
		},
		Stats: stats,
	}

	slog.Info("process: done",
		"entities", result.Graph.Statistics.NumEntities,
		"relations", result.Graph.Statistics.NumRelations,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return result, nil
}

// buildGraph assembles the graph: typed entities from the rule-based
// extractor first, then the LLM triples, then the merge pass.
func (e *engine) buildGraph(sentences []string, triples []extract.Triple) *graph.Graph {
	g := graph.New(e.cfg.Graph)

	seen := make(map[string]bool)
	for _, sent := range sentences {
		for _, m := range e.ner.Extract(sent) {
			if seen[m.Text] {
				continue
			}
			seen[m.Text] = true
			g.AddEntity(m.Text, m.Type, "")
		}
	}

	for _, t := range triples {
		g.AddRelation(t.Subject, t.Relation, t.Object, t.Context)
	}

	if e.cfg.MergeEntities {
		merged := g.MergeSimilarEntities(e.cfg.SimilarityThreshold)
		if merged > 0 {
			slog.Debug("process: entities merged", "merged", merged)
		}
	}

	return g
}

// ProcessFile parses a document file and runs the pipeline over it.
// With persistence on, the document record, graph, and run statistics
// are written to the store.
func (e *engine) ProcessFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	p, err := e.parsers.ForPath(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	parsed, err := p.Parse(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	result, err := e.Process(ctx, parsed.Text())
	if err != nil {
		return nil, err
	}

	if e.store != nil {
		if err := e.persist(ctx, absPath, result); err != nil {
			return nil, fmt.Errorf("persisting result: %w", err)
		}
	}

	return result, nil
}

// ProcessDir processes every supported file in a directory.
func (e *engine) ProcessDir(ctx context.Context, dir string) (map[string]*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	results := make(map[string]*Result)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, perr := e.parsers.ForPath(path); perr != nil {
			return nil
		}

		result, perr := e.ProcessFile(ctx, path)
		if perr != nil {
			slog.Warn("processdir: file failed", "path", path, "error", perr)
			return nil
		}
		results[path] = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return results, nil
}

// persist writes the document record, graph, run statistics, and optional
// entity embeddings to the store.
func (e *engine) persist(ctx context.Context, absPath string, result *Result) error {
	hash, err := fileHash(absPath)
	if err != nil {
		return fmt.Errorf("hashing file: %w", err)
	}

	docID, err := e.store.UpsertDocument(ctx, store.Document{
		Path:        absPath,
		Filename:    filepath.Base(absPath),
		Format:      trimExt(absPath),
		ContentHash: hash,
		Language:    string(result.Metadata.Language),
		Status:      "processed",
	})
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	if err := e.store.SaveGraph(ctx, docID, result.Graph); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}

	if err := e.store.LogRun(ctx, store.RunRecord{
		DocumentID:    docID,
		Language:      string(result.Metadata.Language),
		Sentences:     result.Metadata.TotalSentences,
		Candidates:    result.Metadata.Candidates,
		Batches:       result.Stats.Batches,
		FailedBatches: result.Stats.FailedBatches,
		Triples:       result.Stats.Triples,
		Discarded:     result.Stats.Discarded,
	}); err != nil {
		return fmt.Errorf("logging run: %w", err)
	}

	if e.embedLLM != nil {
		if err := e.embedEntities(ctx, docID); err != nil {
			// Embeddings are an enrichment, not part of the graph.
			slog.Warn("persist: entity embedding failed", "error", err)
		}
	}

	return nil
}

// embedEntities computes and stores embeddings for a document's entity
// names in one provider call.
func (e *engine) embedEntities(ctx context.Context, docID int64) error {
	entities, err := e.store.GetEntities(ctx, docID)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	names := make([]string, len(entities))
	for i, ent := range entities {
		names[i] = ent.Name
	}

	vectors, err := e.embedLLM.Embed(ctx, names)
	if err != nil {
		return err
	}
	if len(vectors) != len(entities) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(entities))
	}

	for i, ent := range entities {
		if err := e.store.UpsertEntityEmbedding(ctx, ent.ID, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// Store returns the underlying store, or nil when persistence is off.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

func filterRate(total, candidates int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", (1-float64(candidates)/float64(total))*100)
}

func trimExt(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
