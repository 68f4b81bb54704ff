package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapConcurrently(t *testing.T) {
	t.Run("Preserves Input Order", func(t *testing.T) {
		items := []int{5, 3, 8, 1, 9, 2, 7}

		results := mapConcurrently(t.Context(), 4, items, func(ctx context.Context, index int, item int) int {
			// Stagger completion so workers finish out of order.
			time.Sleep(time.Duration(item) * time.Millisecond)
			return item * 10
		})

		if len(results) != len(items) {
			t.Fatalf("expected %d results, got %d", len(items), len(results))
		}
		for i, item := range items {
			if results[i] != item*10 {
				t.Errorf("result[%d] = %d, expected %d", i, results[i], item*10)
			}
		}
	})

	t.Run("Bounds Concurrency", func(t *testing.T) {
		const workers = 3
		var current, peak atomic.Int32

		items := make([]int, 20)
		mapConcurrently(t.Context(), workers, items, func(ctx context.Context, index int, item int) int {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			return 0
		})

		if peak.Load() > workers {
			t.Errorf("observed %d concurrent workers, expected at most %d", peak.Load(), workers)
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		results := mapConcurrently(t.Context(), 4, nil, func(ctx context.Context, index int, item int) int {
			t.Error("expected fn not to be called")
			return 0
		})
		if len(results) != 0 {
			t.Errorf("expected empty results, got %d", len(results))
		}
	})

	t.Run("Zero Workers Still Runs", func(t *testing.T) {
		results := mapConcurrently(t.Context(), 0, []int{1, 2}, func(ctx context.Context, index int, item int) int {
			return item
		})
		if results[0] != 1 || results[1] != 2 {
			t.Errorf("unexpected results %v", results)
		}
	})

	t.Run("Cancellation Stops Feeding", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())

		var started atomic.Int32
		var once sync.Once
		items := make([]int, 100)
		results := mapConcurrently(ctx, 1, items, func(ctx context.Context, index int, item int) int {
			started.Add(1)
			once.Do(cancel)
			return 1
		})

		if int(started.Load()) == len(items) {
			t.Error("expected cancellation to stop the feed early")
		}
		// Unprocessed slots keep their zero value.
		if results[len(results)-1] != 0 {
			t.Error("expected trailing slots to stay zero")
		}
	})
}
