package worker

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestPool_RunsAllTasks(t *testing.T) {
	pool := NewPool[int](context.Background(), 4)

	var executed int32
	for i := 0; i < 20; i++ {
		i := i
		pool.Submit(func(ctx context.Context) int {
			atomic.AddInt32(&executed, 1)
			return i
		})
	}

	results := pool.Wait()
	if len(results) != 20 {
		t.Errorf("expected 20 results, got %d", len(results))
	}
	if executed != 20 {
		t.Errorf("expected 20 executions, got %d", executed)
	}

	seen := make(map[int]bool)
	for _, r := range results {
		seen[r] = true
	}
	if len(seen) != 20 {
		t.Errorf("expected 20 distinct results, got %d", len(seen))
	}
}

func TestPool_ZeroWorkersStillRuns(t *testing.T) {
	pool := NewPool[string](context.Background(), 0)
	pool.Submit(func(ctx context.Context) string { return "ok" })
	results := pool.Wait()
	if len(results) != 1 || results[0] != "ok" {
		t.Errorf("results = %v", results)
	}
}

func TestPool_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool[int](ctx, 2)
	for i := 0; i < 10; i++ {
		pool.Submit(func(ctx context.Context) int { return 1 })
	}
	results := pool.Wait()
	if len(results) != 0 {
		t.Errorf("expected no results after cancellation, got %d", len(results))
	}
}
