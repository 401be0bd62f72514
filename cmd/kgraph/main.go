package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/davepan/kgraph"
	"github.com/davepan/kgraph/graph"
)

func main() {
	input := flag.String("input", "", "Input file or directory to process")
	out := flag.String("out", "output", "Output directory for graph JSON files")
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	noLLM := flag.Bool("no-llm", false, "Skip LLM extraction (candidates and rule entities only)")
	strict := flag.Bool("strict", false, "Fail when a document yields no triples")
	dbPath := flag.String("db", "", "SQLite database path (enables persistence)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	// Optional .env for API keys.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	if *input == "" {
		slog.Error("missing -input")
		flag.Usage()
		os.Exit(2)
	}

	cfg := kgraph.DefaultConfig()
	if *configPath != "" {
		loaded, err := kgraph.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyEnv(&cfg)

	if *noLLM {
		cfg.UseLLM = false
	}
	if *strict {
		cfg.Strict = true
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	engine, err := kgraph.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	info, err := os.Stat(*input)
	if err != nil {
		slog.Error("reading input", "path", *input, "error", err)
		os.Exit(1)
	}

	if info.IsDir() {
		results, err := engine.ProcessDir(ctx, *input)
		if err != nil {
			slog.Error("processing directory", "error", err)
			os.Exit(1)
		}
		if len(results) == 0 {
			slog.Error("no supported documents found", "dir", *input)
			os.Exit(1)
		}
		for path, result := range results {
			if err := writeResult(*out, path, result); err != nil {
				slog.Error("writing result", "path", path, "error", err)
				os.Exit(1)
			}
		}
		if err := writeSummary(*out, results); err != nil {
			slog.Error("writing summary", "error", err)
			os.Exit(1)
		}
		slog.Info("done", "documents", len(results), "output", *out)
		return
	}

	result, err := engine.ProcessFile(ctx, *input)
	if err != nil {
		slog.Error("processing file", "path", *input, "error", err)
		os.Exit(1)
	}
	if err := writeResult(*out, *input, result); err != nil {
		slog.Error("writing result", "error", err)
		os.Exit(1)
	}
	slog.Info("done",
		"entities", result.Graph.Statistics.NumEntities,
		"relations", result.Graph.Statistics.NumRelations,
		"output", *out)
}

// applyEnv overlays provider settings from environment variables.
func applyEnv(cfg *kgraph.Config) {
	if v := os.Getenv("KGRAPH_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("KGRAPH_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("KGRAPH_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("KGRAPH_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("KGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	// Fallback: well-known provider env vars for API keys.
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "deepseek":
			cfg.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
		case "dashscope":
			cfg.LLM.APIKey = os.Getenv("DASHSCOPE_API_KEY")
		}
	}
}

// writeResult serializes one processing result next to its siblings in the
// output directory, named after the source file.
func writeResult(outDir, srcPath string, result *kgraph.Result) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	path := filepath.Join(outDir, base+"_graph.json")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Entities   []graph.Entity   `json:"entities"`
		Relations  []graph.Triple   `json:"relations"`
		Metadata   kgraph.Metadata  `json:"metadata"`
		Statistics graph.Statistics `json:"statistics"`
	}{
		Entities:   result.Graph.Entities,
		Relations:  result.Graph.Relations,
		Metadata:   result.Metadata,
		Statistics: result.Graph.Statistics,
	})
}

// writeSummary aggregates per-document counts into a single run summary
// for directory runs.
func writeSummary(outDir string, results map[string]*kgraph.Result) error {
	type docSummary struct {
		Path      string `json:"path"`
		Language  string `json:"language"`
		Entities  int    `json:"entities"`
		Relations int    `json:"relations"`
	}

	docs := make([]docSummary, 0, len(results))
	totalEntities, totalRelations := 0, 0
	for path, result := range results {
		docs = append(docs, docSummary{
			Path:      path,
			Language:  string(result.Metadata.Language),
			Entities:  result.Graph.Statistics.NumEntities,
			Relations: result.Graph.Statistics.NumRelations,
		})
		totalEntities += result.Graph.Statistics.NumEntities
		totalRelations += result.Graph.Statistics.NumRelations
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })

	f, err := os.Create(filepath.Join(outDir, "summary.json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Documents      []docSummary `json:"documents"`
		TotalEntities  int          `json:"total_entities"`
		TotalRelations int          `json:"total_relations"`
	}{
		Documents:      docs,
		TotalEntities:  totalEntities,
		TotalRelations: totalRelations,
	})
}
