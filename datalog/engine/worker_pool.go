package engine

import (
	"runtime"
	"sync"
)

// WorkerPool provides generic parallel execution with a worker pool.
// Rule variants within one iteration are embarrassingly parallel: no
// variant mutates another relation's state, so candidate sets can be
// computed concurrently and merged at the iteration boundary.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool
// workerCount: number of worker goroutines (0 = use NumCPU)
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// ExecuteParallel executes operation on all inputs using the pool.
// Results are returned in the same order as inputs (order-preserving).
func (p *WorkerPool) ExecuteParallel(
	inputs []interface{},
	operation func(interface{}) interface{},
) []interface{} {
	if len(inputs) == 0 {
		return []interface{}{}
	}

	results := make([]interface{}, len(inputs))
	jobs := make(chan int, len(inputs))

	var wg sync.WaitGroup
	workers := p.workerCount
	if workers > len(inputs) {
		workers = len(inputs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = operation(inputs[idx])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// GetWorkerCount returns the number of worker goroutines
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}
