package tasks

import (
	"context"
	"sync"
)

// mapConcurrently fans items out over a bounded worker pool and reassembles
// the results in input order, so downstream accounting stays deterministic
// even though workers complete out of order.
//
// fn must capture its own failure mode in Out; the pool never aborts early
// except on context cancellation, in which case remaining slots keep their
// zero value.
func mapConcurrently[In, Out any](ctx context.Context, workers int, items []In, fn func(ctx context.Context, index int, item In) Out) []Out {
	results := make([]Out, len(items))
	if len(items) == 0 {
		return results
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	type job struct {
		index int
		item  In
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = fn(ctx, j.index, j.item)
			}
		}()
	}

feed:
	for i, item := range items {
		select {
		case jobs <- job{index: i, item: item}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
