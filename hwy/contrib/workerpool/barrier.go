// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import "sync"

// Barrier is a reusable rendezvous point for a fixed number of workers:
// Wait blocks until all of them have called it, then releases them
// together. The same Barrier can be waited on again for the next phase.
type Barrier struct {
	n     int
	mu    sync.Mutex
	cond  sync.Cond
	count int
	phase uint64
}

// NewBarrier returns a barrier for n workers. n must be positive.
func NewBarrier(n int) *Barrier {
	if n <= 0 {
		panic("workerpool: barrier needs at least one worker")
	}
	b := &Barrier{n: n}
	b.cond = sync.Cond{L: &b.mu}
	return b
}

// Size returns the number of workers the barrier waits for.
func (b *Barrier) Size() int {
	return b.n
}

// Wait blocks until all workers of the current phase have called Wait.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	phase := b.phase
	b.count++
	if b.count == b.n {
		b.count = 0
		b.phase++
		b.cond.Broadcast()
		return
	}
	for phase == b.phase {
		b.cond.Wait()
	}
}
