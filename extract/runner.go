package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davepan/kgraph/filter"
	"github.com/davepan/kgraph/lang"
)

// defaultConcurrency is the default semaphore size for parallel batch calls.
const defaultConcurrency = 4

// defaultBatchSize is the number of sentences sent per LLM call.
const defaultBatchSize = 10

// defaultBatchTimeout caps how long a single batch extraction can take.
const defaultBatchTimeout = 90 * time.Second

// Stats summarizes a runner pass.
type Stats struct {
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
	Triples       int `json:"triples"`
	Discarded     int `json:"discarded"`
}

// Runner drives the oracle over all candidate batches with bounded
// concurrency. Batch failures are soft: a failed batch contributes zero
// triples and the pass continues.
type Runner struct {
	oracle      *Oracle
	concurrency int
	batchSize   int
	timeout     time.Duration
}

// NewRunner creates a runner. Non-positive settings take defaults.
func NewRunner(oracle *Oracle, concurrency, batchSize int, timeout time.Duration) *Runner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if timeout <= 0 {
		timeout = defaultBatchTimeout
	}
	return &Runner{
		oracle:      oracle,
		concurrency: concurrency,
		batchSize:   batchSize,
		timeout:     timeout,
	}
}

// Run extracts triples from all candidates, highest priority first.
// Results come back in batch order regardless of completion order, so a
// given input always produces the same triple sequence.
func (r *Runner) Run(ctx context.Context, candidates []filter.Candidate, language lang.Language) ([]Triple, Stats) {
	batches := filter.Batches(candidates, r.batchSize)
	if len(batches) == 0 {
		return nil, Stats{}
	}

	slog.Info("extract: processing batches",
		"candidates", len(candidates), "batches", len(batches),
		"batch_size", r.batchSize, "concurrency", r.concurrency)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, r.concurrency)
		results   = make([][]Triple, len(batches))
		stats     = Stats{Batches: len(batches)}
		runStart  = time.Now()
		completed int
	)

	for i, batch := range batches {
		sentences := make([]string, len(batch))
		for j, c := range batch {
			sentences[j] = c.Text
		}

		wg.Add(1)
		go func(idx int, sentences []string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				stats.FailedBatches++
				mu.Unlock()
				return
			}

			batchCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			batchStart := time.Now()
			triples, discarded, err := r.oracle.ExtractBatch(batchCtx, sentences, language)
			if err != nil {
				slog.Warn("extract: batch failed",
					"batch", idx, "sentences", len(sentences), "error", err,
					"elapsed", time.Since(batchStart).Round(time.Millisecond))
				mu.Lock()
				stats.FailedBatches++
				completed++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = triples
			stats.Triples += len(triples)
			stats.Discarded += discarded
			completed++
			n := completed
			mu.Unlock()

			slog.Info("extract: batch processed",
				"progress", fmt.Sprintf("%d/%d", n, len(batches)),
				"triples", len(triples), "discarded", discarded,
				"elapsed", time.Since(batchStart).Round(time.Millisecond),
				"total_elapsed", time.Since(runStart).Round(time.Millisecond))
		}(i, sentences)
	}

	wg.Wait()

	if stats.FailedBatches > 0 {
		slog.Warn("extract: run completed with failures",
			"succeeded", stats.Batches-stats.FailedBatches,
			"failed", stats.FailedBatches, "total", stats.Batches)
	}

	var all []Triple
	for _, batch := range results {
		all = append(all, batch...)
	}
	return all, stats
}
