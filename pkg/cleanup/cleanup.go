// Package cleanup sweeps expired memories out of the store and purges the
// attachments they referenced.
package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memoirhq/memoir/pkg/blob"
	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/storage"
)

var defaultNumWorkers uint = 3

// Config is the configuration options for the cleanup runner.
type Config struct {
	// Store is the memory store to sweep.
	Store storage.Driver

	// Blobs is the optional attachment store. When nil, attachment purge
	// is skipped.
	Blobs blob.Store

	// NumWorkers is the number of concurrent purge workers (defaults to 3).
	NumWorkers uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Result reports what one cleanup run did.
type Result struct {
	Swept  int
	Purged int
	Failed int
}

// Runner performs cleanup runs.
type Runner struct {
	store   storage.Driver
	blobs   blob.Store
	workers uint
	log     *zap.Logger
}

// NewRunner creates a cleanup runner.
func NewRunner(c *Config) *Runner {
	workers := c.NumWorkers
	if workers == 0 {
		workers = defaultNumWorkers
	}

	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Runner{
		store:   c.Store,
		blobs:   c.Blobs,
		workers: workers,
		log:     log,
	}
}

// Run sweeps every record expired as of ref and purges their attachments.
// Purge failures are logged and counted, never fatal; the records are
// already gone from the store.
func (r *Runner) Run(ctx context.Context, ref time.Time) (*Result, error) {
	ref = memory.Truncate(ref)

	swept, err := r.store.SweepExpired(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("sweep expired memories: %w", err)
	}

	result := &Result{Swept: len(swept)}
	r.log.Info("swept expired memories",
		zap.Int("count", len(swept)),
		zap.String("ref", memory.FormatDate(ref)),
	)

	if r.blobs == nil {
		return result, nil
	}

	var urls []string
	for _, rec := range swept {
		urls = append(urls, rec.Memory.Attachments...)
	}
	if len(urls) == 0 {
		return result, nil
	}

	purged, failed := r.purge(ctx, urls)
	result.Purged = purged
	result.Failed = failed
	return result, nil
}

// purge deletes attachment URLs with a bounded pool of workers.
func (r *Runner) purge(ctx context.Context, urls []string) (purged, failed int) {
	queue := make(chan string)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	wg.Add(int(r.workers))
	for range r.workers {
		go func() {
			defer wg.Done()
			for url := range queue {
				if err := r.blobs.Delete(ctx, url); err != nil {
					r.log.Warn("attachment purge failed",
						zap.String("url", url),
						zap.Error(err),
					)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				purged++
				mu.Unlock()
			}
		}()
	}

	for _, url := range urls {
		queue <- url
	}
	close(queue)
	wg.Wait()

	return purged, failed
}
