// Package batch provides parallel chunked fetching for large item ID lists.
//
// The catalog API accepts at most ten item IDs per lookup. This package
// implements a worker pool pattern to split bigger lists into API-sized
// chunks and fetch them in parallel, while the client's own rate limiter
// keeps the request rate inside budget.
//
// Example usage:
//
//	config := batch.DefaultConfig()
//	fetcher := batch.NewFetcher(catalogClient, config)
//	items, err := fetcher.FetchAll(ctx, itemIDs)
//
// The batch fetcher:
//   - Deduplicates IDs so no chunk spends budget twice
//   - Spawns a worker pool (default 3 workers)
//   - Distributes chunks across workers
//   - Collects results with progress logging
//   - Handles errors gracefully (returns partial data)
package batch
