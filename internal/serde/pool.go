// Package serde runs JSON encoding and decoding on dedicated OS threads
// instead of the regular goroutine scheduler. Discord IPC payloads are
// small, but a busy client can have many in flight at once; pinning the
// (de)serialization work to its own bounded pool of OS-thread-locked
// workers keeps a burst of JSON marshaling from stalling unrelated
// goroutines that happen to land on the same P. Submission is bounded
// by golang.org/x/sync/semaphore rather than a channel semaphore so
// Submit can participate in context cancellation.
package serde

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Submit once the pool has been shut down.
var ErrPoolClosed = errors.New("serde: pool closed")

// Job is one unit of work submitted to a Pool: run fn on a pool worker
// and deliver its result.
type Job[T any] struct {
	fn     func() (T, error)
	result chan jobResult[T]
}

type jobResult[T any] struct {
	value T
	err   error
}

// Pool runs jobs on a fixed set of OS-thread-locked goroutines. Submit
// blocks until a worker slot is free, the context is canceled, or the
// pool is closed.
type Pool[T any] struct {
	jobs     chan Job[T]
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	once     sync.Once
	closed   chan struct{}
	inFlight atomic.Int64
}

// NewPool starts a pool of numWorkers OS-thread-locked goroutines, each
// consuming jobs from a channel of the given buffer size. numWorkers is
// clamped to at least 1 and chanBuffer to at least 0 (unbuffered).
func NewPool[T any](numWorkers, chanBuffer int) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if chanBuffer < 0 {
		chanBuffer = 0
	}

	p := &Pool[T]{
		jobs:   make(chan Job[T], chanBuffer),
		sem:    semaphore.NewWeighted(int64(chanBuffer + numWorkers)),
		closed: make(chan struct{}),
	}

	p.wg.Add(numWorkers)
	for range numWorkers {
		go p.worker()
	}
	return p
}

// worker pins itself to its OS thread for as long as it runs and
// services jobs until the pool is closed. JSON
// marshaling of arbitrarily attacker-shaped Discord payloads is CPU-bound
// work; keeping it off threads the Go scheduler reuses for network polling
// avoids head-of-line blocking on unrelated goroutines.
func (p *Pool[T]) worker() {
	defer p.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.inFlight.Add(1)
			value, err := job.fn()
			p.inFlight.Add(-1)
			job.result <- jobResult[T]{value: value, err: err}
		case <-p.closed:
			return
		}
	}
}

// Submit runs fn on a pool worker and returns its result. It blocks until
// a slot under the pool's weighted semaphore is available, ctx is
// canceled, or the pool is closed.
func (p *Pool[T]) Submit(ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("serde: acquire pool slot: %w", err)
	}
	defer p.sem.Release(1)

	job := Job[T]{fn: fn, result: make(chan jobResult[T], 1)}

	select {
	case p.jobs <- job:
	case <-p.closed:
		return zero, ErrPoolClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Depth reports the number of jobs buffered in the channel awaiting a
// free worker, and the number currently executing.
func (p *Pool[T]) Depth() (queued, inFlight int) {
	return len(p.jobs), int(p.inFlight.Load())
}

// Close stops accepting new work and waits for in-flight jobs to finish.
// Jobs already queued in the channel buffer but not yet picked up by a
// worker are abandoned. A Submit racing with Close either returns
// ErrPoolClosed or, if its job lands in the channel buffer, waits until
// its ctx is done and returns the context's error.
func (p *Pool[T]) Close() {
	p.once.Do(func() {
		close(p.closed)
	})
	p.wg.Wait()
}
