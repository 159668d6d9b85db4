// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

package tiling

import "github.com/ajroetker/go-vkernels/hwy"

// Accumulator is a register-tile accumulator: one vector register per
// output row of a block, zeroed at the start of each block×tile pass and
// drained to the output once at its end.
//
// An Accumulator belongs to a single worker; it is allocated once and
// reused for every tile the worker visits.
type Accumulator[T hwy.Lanes] struct {
	lanes []hwy.Vec[T]
}

// NewAccumulator allocates bs registers of capacity lanes each. capacity
// must be at least the widest vector length the accumulator will run at.
func NewAccumulator[T hwy.Lanes](bs BlockSize, capacity int) *Accumulator[T] {
	lanes := make([]hwy.Vec[T], bs)
	for i := range lanes {
		lanes[i] = hwy.NewVec[T](capacity)
	}
	return &Accumulator[T]{lanes: lanes}
}

// BlockSize returns the number of accumulator registers.
func (acc *Accumulator[T]) BlockSize() BlockSize {
	return BlockSize(len(acc.lanes))
}

// Lane returns the accumulator register of row r of the block.
func (acc *Accumulator[T]) Lane(r int) hwy.Vec[T] {
	return acc.lanes[r]
}

// Reset zeroes the active lanes of all registers.
func (acc *Accumulator[T]) Reset(u *hwy.VectorUnit) {
	for _, v := range acc.lanes {
		hwy.Zero(u, v)
	}
}

// MulAcc performs one rank-1 update on the first rows registers:
// lane r += scalars[r] * b.
func (acc *Accumulator[T]) MulAcc(u *hwy.VectorUnit, scalars []T, b hwy.Vec[T], rows int) {
	for r, s := range scalars[:rows] {
		hwy.MulAddScalar(u, acc.lanes[r], s, b)
	}
}

// Drain stores the first rows registers into c, register r at c[r*stride:].
func (acc *Accumulator[T]) Drain(u *hwy.VectorUnit, c []T, stride, rows int) {
	for r := range rows {
		hwy.Store(u, acc.lanes[r], c[r*stride:])
	}
}

// DrainTo is Drain for outputs of a narrower element type E.
func DrainTo[E, T hwy.Lanes](u *hwy.VectorUnit, acc *Accumulator[T], c []E, stride, rows int, demote func(T) E) {
	for r := range rows {
		hwy.StoreDemote(u, acc.lanes[r], c[r*stride:], demote)
	}
}
