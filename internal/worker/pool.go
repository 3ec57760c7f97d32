// worker/pool.go
package worker

import "sync"

type Job[T any] func() T

type Result[T any] struct {
	JobID  string
	Output T
}

// Pool runs submitted jobs on a fixed number of goroutines. Results arrive in
// completion order, not submission order. Call Close after the last Submit;
// Results is closed once every job has finished.
type Pool[T any] struct {
	jobs    chan jobWrapper[T]
	results chan Result[T]

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type jobWrapper[T any] struct {
	id string
	fn Job[T]
}

func NewPool[T any](workerCount int, bufferSize int) *Pool[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool[T]{
		jobs:    make(chan jobWrapper[T], bufferSize),
		results: make(chan Result[T], bufferSize),
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		output := job.fn()
		p.results <- Result[T]{
			JobID:  job.id,
			Output: output,
		}
	}
}

// Submit blocks when the job buffer is full. It must not be called after Close.
func (p *Pool[T]) Submit(id string, fn Job[T]) {
	p.jobs <- jobWrapper[T]{id: id, fn: fn}
}

// Close stops accepting jobs. Safe to call more than once.
func (p *Pool[T]) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
}

func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

// Map runs fn for every id on a pool of workerCount goroutines and returns
// the outputs keyed by id.
func Map[T any](workerCount int, ids []string, fn func(id string) T) map[string]T {
	p := NewPool[T](workerCount, len(ids))
	for _, id := range ids {
		id := id
		p.Submit(id, func() T { return fn(id) })
	}
	p.Close()

	out := make(map[string]T, len(ids))
	for r := range p.Results() {
		out[r.JobID] = r.Output
	}
	return out
}
