package kgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davepan/kgraph/filter"
	"github.com/davepan/kgraph/graph"
	"github.com/davepan/kgraph/llm"
	"github.com/davepan/kgraph/ner"
)

// Config holds all configuration for the extraction engine.
type Config struct {
	// LLM is the chat provider used for relation extraction.
	LLM llm.Config `json:"llm" yaml:"llm"`

	// Embedding optionally configures a provider for entity-name
	// embeddings. Unused unless a store is attached.
	Embedding llm.Config `json:"embedding" yaml:"embedding"`

	// UseLLM toggles the extraction stage. With it off, processing stops
	// after candidate filtering and the graph stays empty.
	UseLLM bool `json:"use_llm" yaml:"use_llm"`

	// Strict makes Process fail with ErrNoTriples when extraction ran
	// but produced an empty graph.
	Strict bool `json:"strict" yaml:"strict"`

	// BatchSize is the number of candidate sentences per LLM call.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Concurrency caps parallel LLM calls.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// BatchTimeout caps how long a single batch extraction can take.
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout"`

	// MaxSentences caps how many cleaned sentences enter the pipeline.
	MaxSentences int `json:"max_sentences" yaml:"max_sentences"`

	// SimilarityThreshold is used by the edit-distance merge strategy.
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// MergeEntities runs the post-build entity merge pass.
	MergeEntities bool `json:"merge_entities" yaml:"merge_entities"`

	// DBPath enables SQLite persistence when non-empty.
	DBPath string `json:"db_path" yaml:"db_path"`

	// EmbeddingDim must match the embedding model when persistence and
	// embeddings are both enabled.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// CacheSize is the LRU capacity for cached batch responses.
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// NER overrides entity recognition settings.
	NER ner.Config `json:"ner" yaml:"ner"`

	// Filter overrides candidate filtering settings.
	Filter filter.Config `json:"filter" yaml:"filter"`

	// Graph overrides graph construction settings.
	Graph graph.Config `json:"graph" yaml:"graph"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
func DefaultConfig() Config {
	return Config{
		LLM: llm.Config{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: llm.Config{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		UseLLM:              true,
		BatchSize:           10,
		Concurrency:         4,
		BatchTimeout:        90 * time.Second,
		MaxSentences:        500,
		SimilarityThreshold: 0.8,
		MergeEntities:       true,
		EmbeddingDim:        768,
		CacheSize:           256,
	}
}

// LoadConfig reads a YAML or JSON config file and overlays it on the
// defaults. The format is chosen by file extension.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return cfg, fmt.Errorf("%w: unknown config format %q", ErrInvalidConfig, filepath.Ext(path))
	}

	return cfg, cfg.Validate()
}

// Validate checks configuration values that would only fail deep inside a
// run otherwise.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch_size must not be negative", ErrInvalidConfig)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrInvalidConfig)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.UseLLM && c.LLM.Provider == "" {
		return fmt.Errorf("%w: llm provider required when use_llm is set", ErrInvalidConfig)
	}
	return nil
}
