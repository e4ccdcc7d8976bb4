package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/primecart/catalog-client/pkg/catalog"
	"github.com/rs/zerolog/log"
)

// maxChunkSize is the upstream per-call ID limit.
const maxChunkSize = 10

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel lookups.
	// Keep it small: every chunk spends rate limit budget.
	MaxConcurrency int
	// Timeout per chunk fetch.
	Timeout time.Duration
	// ChunkSize is the number of IDs per lookup, capped at the API limit.
	ChunkSize int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 3,
		Timeout:        15 * time.Second,
		ChunkSize:      maxChunkSize,
	}
}

// ItemGetter is the interface the catalog client implements for chunked
// item lookups.
type ItemGetter interface {
	GetItems(ctx context.Context, itemIDs []string) (*catalog.ItemsResult, error)
}

// chunkResult represents the result of fetching a single chunk.
type chunkResult struct {
	Index int
	Items map[string]catalog.Item
	Error error
}

// Fetcher handles parallel fetching of large item ID lists.
type Fetcher struct {
	getter ItemGetter
	config Config
}

// NewFetcher creates a new batch fetcher.
func NewFetcher(getter ItemGetter, config Config) *Fetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.ChunkSize <= 0 || config.ChunkSize > maxChunkSize {
		config.ChunkSize = maxChunkSize
	}

	return &Fetcher{
		getter: getter,
		config: config,
	}
}

// FetchAll fetches details for an arbitrary number of item IDs by splitting
// them into API-sized chunks and running the lookups through a worker pool.
// Returns every item fetched so far plus an error when a chunk failed.
func (f *Fetcher) FetchAll(ctx context.Context, itemIDs []string) (map[string]catalog.Item, error) {
	start := time.Now()

	ids := dedupe(itemIDs)
	if len(ids) == 0 {
		return map[string]catalog.Item{}, nil
	}

	chunks := split(ids, f.config.ChunkSize)

	log.Info().
		Int("item_count", len(ids)).
		Int("chunks", len(chunks)).
		Msg("Starting batch item fetch")

	// Single chunk optimization
	if len(chunks) == 1 {
		fetchCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()

		result, err := f.getter.GetItems(fetchCtx, chunks[0])
		if err != nil {
			return map[string]catalog.Item{}, fmt.Errorf("fetch chunk: %w", err)
		}

		log.Info().
			Int("items", len(result.Items)).
			Dur("duration", time.Since(start)).
			Msg("Batch fetch complete (single chunk)")
		return result.Items, nil
	}

	merged := make(map[string]catalog.Item, len(ids))

	// Create channels
	chunkQueue := make(chan int, len(chunks))
	results := make(chan chunkResult, len(chunks))
	errs := make(chan error, f.config.MaxConcurrency)

	// Fill chunk queue
	for i := range chunks {
		chunkQueue <- i
	}
	close(chunkQueue)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < f.config.MaxConcurrency; i++ {
		wg.Add(1)
		go f.worker(ctx, chunks, chunkQueue, results, errs, &wg, i)
	}

	// Close results channel when all workers are done
	go func() {
		wg.Wait()
		close(results)
		close(errs)
	}()

	// Collect results
	fetchedChunks := 0
	for result := range results {
		for asin, item := range result.Items {
			merged[asin] = item
		}
		fetchedChunks++

		// Progress logging every 10 chunks
		if fetchedChunks%10 == 0 {
			log.Info().
				Int("fetched", fetchedChunks).
				Int("total", len(chunks)).
				Msg("Batch fetch progress")
		}
	}

	// Check for errors
	select {
	case err := <-errs:
		if err != nil {
			log.Warn().
				Err(err).
				Int("fetched_chunks", fetchedChunks).
				Int("total_chunks", len(chunks)).
				Msg("Worker error - returning partial results")
			return merged, fmt.Errorf("worker error (partial data: %d/%d chunks): %w", fetchedChunks, len(chunks), err)
		}
	default:
	}

	// Workers stop silently on cancellation, surface it to the caller
	if err := ctx.Err(); err != nil {
		return merged, fmt.Errorf("batch fetch cancelled (partial data: %d/%d chunks): %w", fetchedChunks, len(chunks), err)
	}

	log.Info().
		Int("items", len(merged)).
		Int("chunks", fetchedChunks).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return merged, nil
}

// worker processes chunks from the queue.
func (f *Fetcher) worker(ctx context.Context, chunks [][]string, chunkQueue <-chan int, results chan<- chunkResult, errs chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	chunksProcessed := 0

	for idx := range chunkQueue {
		// Check context cancellation
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("chunks_processed", chunksProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		// Fetch chunk with timeout
		chunkCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
		result, err := f.getter.GetItems(chunkCtx, chunks[idx])
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("chunk", idx).
				Msg("Chunk fetch failed")

			// Non-blocking error send
			select {
			case errs <- err:
			default:
			}
			return
		}

		// Send result
		select {
		case results <- chunkResult{Index: idx, Items: result.Items}:
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("chunks_processed", chunksProcessed).
				Msg("Worker stopping (context cancelled after fetch)")
			return
		}

		chunksProcessed++
	}

	if chunksProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("chunks_processed", chunksProcessed).
			Msg("Worker completed")
	}
}

// dedupe removes duplicate IDs while preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// split cuts ids into chunks of at most size entries.
func split(ids []string, size int) [][]string {
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
