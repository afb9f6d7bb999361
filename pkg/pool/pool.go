// Package pool provides the bounded worker pool used by every batch
// coordinator. Items are independent: each one reads one input and writes
// one output, so a failed item never affects its siblings. Failures are
// counted, not propagated.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSkipped marks an item that was intentionally not processed, for
// example a download target that already exists locally. Skipped items
// are counted separately from failures.
var ErrSkipped = errors.New("item skipped")

// Item is one independent unit of work
type Item func(ctx context.Context) error

// Summary is the fail-soft accumulator every batch operation reports
type Summary struct {
	Succeeded int64
	Failed    int64
	Skipped   int64
}

// Add merges another summary into this one
func (s *Summary) Add(other Summary) {
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// Total returns the number of items accounted for
func (s *Summary) Total() int64 {
	return s.Succeeded + s.Failed + s.Skipped
}

// Run executes items with at most workers in flight. Cancelling the
// context stops new items from being dispatched; in-flight items finish
// or fail on their own. The returned summary covers dispatched items
// only, so partial counts remain valid after cancellation.
func Run(ctx context.Context, workers int, items []Item) Summary {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	var (
		succeeded int64
		failed    int64
		skipped   int64
		wg        sync.WaitGroup
		sem       = make(chan struct{}, workers)
	)

	for _, item := range items {
		select {
		case <-ctx.Done():
			wg.Wait()
			return Summary{Succeeded: succeeded, Failed: failed, Skipped: skipped}
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(fn Item) {
			defer wg.Done()
			defer func() { <-sem }()

			switch err := fn(ctx); {
			case err == nil:
				atomic.AddInt64(&succeeded, 1)
			case errors.Is(err, ErrSkipped):
				atomic.AddInt64(&skipped, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
		}(item)
	}

	wg.Wait()
	return Summary{Succeeded: succeeded, Failed: failed, Skipped: skipped}
}
