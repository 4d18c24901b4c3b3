// Package worker provides the bounded concurrency primitives for batch
// verification: a fixed-size goroutine pool and a per-domain rate limiter.
package worker

import (
	"context"
	"sync"
)

// Task is one unit of work producing a result of type R.
type Task[R any] func(ctx context.Context) R

// Pool runs tasks on a fixed number of goroutines. A pool serves one batch:
// submit everything, then Wait. It is not reusable after Wait.
type Pool[R any] struct {
	workers int
	tasks   chan Task[R]
	wg      sync.WaitGroup

	mu      sync.Mutex
	results []R
}

// NewPool creates and starts a pool of the given width.
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool[R]{
		workers: workers,
		tasks:   make(chan Task[R], workers*2),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	return p
}

func (p *Pool[R]) run(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.tasks {
		if ctx.Err() != nil {
			// Keep draining so Submit never blocks forever; cancelled
			// tasks simply produce no result.
			continue
		}
		r := task(ctx)
		p.mu.Lock()
		p.results = append(p.results, r)
		p.mu.Unlock()
	}
}

// Submit queues a task. Blocks when all workers are busy and the buffer is
// full, which keeps memory bounded for large batches.
func (p *Pool[R]) Submit(task Task[R]) {
	p.tasks <- task
}

// Wait closes the queue, waits for all in-flight tasks, and returns the
// results in completion order.
func (p *Pool[R]) Wait() []R {
	close(p.tasks)
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}
