// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable pool of workers for
// kernels written in single-program-multiple-data style: every worker runs
// the same function with its own worker id and computes a static share of
// the result.
//
// A Pool is created once and reused across many kernel invocations,
// eliminating per-call goroutine spawning:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	for _, layer := range layers {
//	    pool.Run(func(workerID, numWorkers int) {
//	        computeShare(layer, workerID, numWorkers)
//	    })
//	}
//
// Run returns only when every worker has finished, which is the barrier
// between kernel phases. Kernels with several phases inside one Run use a
// Barrier.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single parallel operation to execute.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}

	// Spawn persistent workers
	for range numWorkers {
		go p.worker()
	}

	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// Run executes fn once per worker, passing worker ids 0..NumWorkers()-1,
// and blocks until all of them return.
//
// All NumWorkers() calls may be running at the same time, so fn may block
// on a Barrier shared by the workers. Overlapping Run calls on the same pool
// must not use such barriers: a worker busy in one call is not available to
// the other.
func (p *Pool) Run(fn func(workerID, numWorkers int)) {
	n := p.numWorkers
	if n == 1 {
		fn(0, 1)
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)

	if p.closed.Load() {
		// Workers are gone: fall back to one goroutine per worker id so
		// barriers inside fn still make progress.
		for i := range n {
			go func() {
				defer wg.Done()
				fn(i, n)
			}()
		}
		wg.Wait()
		return
	}

	for i := range n {
		p.workC <- workItem{
			fn: func() {
				fn(i, n)
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}

// ParallelFor splits [0, n) into contiguous chunks, one per worker, and
// calls fn(start, end) for every non-empty chunk. It blocks until all
// chunks are done. On a closed pool fn runs once over the whole range.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := min(p.numWorkers, n)
	if workers == 1 || p.closed.Load() {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	p.Run(func(workerID, _ int) {
		if start := workerID * chunk; start < n {
			fn(start, min(start+chunk, n))
		}
	})
}
