// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package fft implements a radix-2 decimation-in-frequency FFT over
// split real and imaginary arrays, vectorized along the butterfly span.
//
// A Plan holds the twiddle factors and the bit-reversal table for one
// transform size and can be shared by any number of goroutines:
//
//	plan, err := fft.NewPlan[float32](1024)
//	if err != nil { ... }
//	plan.Forward(hwy.NewHardwareVectorUnit(), re, im, outRe, outIm)
//
// ForwardWorker splits every stage across cooperating workers which
// synchronize on a workerpool.Barrier between stages.
package fft

import (
	"math"
	"math/bits"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/tiling"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
)

// Plan is a precomputed transform of a fixed power-of-two size.
type Plan[T hwy.Floats] struct {
	n int

	// Twiddles of the stage with span h (h = n/2, n/4, ..., 1) start at
	// offset n-2h: w_j = exp(-iπ j/h) for j < h. n-1 entries in total.
	twRe, twIm []T

	// rev[k] is k with its log2(n) low bits reversed.
	rev []int
}

// NewPlan returns a plan for transforms of n points. n must be a power of
// two and at least 2.
func NewPlan[T hwy.Floats](n int) (*Plan[T], error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, errors.Errorf("fft: size must be a power of two >= 2, got %d", n)
	}
	p := &Plan[T]{
		n:    n,
		twRe: make([]T, n-1),
		twIm: make([]T, n-1),
		rev:  make([]int, n),
	}
	for h := n / 2; h >= 1; h /= 2 {
		off := twiddleOffset(n, h)
		for j := range h {
			sin, cos := math.Sincos(-math.Pi * float64(j) / float64(h))
			p.twRe[off+j] = T(cos)
			p.twIm[off+j] = T(sin)
		}
	}
	shift := bits.UintSize - bits.TrailingZeros(uint(n))
	for k := range p.rev {
		p.rev[k] = int(bits.Reverse(uint(k)) >> shift)
	}
	return p, nil
}

// Size returns the number of points of the transform.
func (p *Plan[T]) Size() int {
	return p.n
}

// Forward computes the discrete Fourier transform of (re, im) into
// (outRe, outIm), in natural order. The inputs are left unchanged.
func (p *Plan[T]) Forward(u *hwy.VectorUnit, re, im, outRe, outIm []T) {
	p.check("Forward", re, im, outRe, outIm)
	p.ForwardWorker(u, nil, re, im, outRe, outIm, 0, 1)
}

// Inverse computes the inverse transform of (re, im) into (outRe, outIm),
// scaled by 1/n so that Inverse(Forward(x)) == x.
func (p *Plan[T]) Inverse(u *hwy.VectorUnit, re, im, outRe, outIm []T) {
	p.check("Inverse", re, im, outRe, outIm)
	r := newRegs[T](u.VLMax(hwy.SEWOf[T](), hwy.M1))

	// ifft(x) = conj(fft(conj(x))) / n
	p.copyIn(u, r, re, im, outRe, outIm, true, 0, 1)
	p.transform(u, r, nil, outRe, outIm, 0, 1)
	scale := 1 / T(p.n)
	sew := hwy.SEWOf[T]()
	for j := 0; j < p.n; {
		vl := u.SetVL(sew, hwy.M1, p.n-j)
		hwy.Load(u, r.aRe, outRe[j:])
		hwy.Load(u, r.aIm, outIm[j:])
		hwy.MulScalar(u, r.aRe, scale, r.aRe)
		hwy.MulScalar(u, r.aIm, -scale, r.aIm)
		hwy.Store(u, r.aRe, outRe[j:])
		hwy.Store(u, r.aIm, outIm[j:])
		j += vl
	}
}

// ForwardWorker computes worker workerID's share of Forward when
// numWorkers workers transform the same arrays. Every worker must call it
// with the same arrays and the same barrier, which must have been created
// for numWorkers parties. bar may be nil only if numWorkers is 1.
//
// The output is complete once every worker has returned.
func (p *Plan[T]) ForwardWorker(u *hwy.VectorUnit, bar *workerpool.Barrier, re, im, outRe, outIm []T, workerID, numWorkers int) {
	r := newRegs[T](u.VLMax(hwy.SEWOf[T](), hwy.M1))
	p.copyIn(u, r, re, im, outRe, outIm, false, workerID, numWorkers)
	p.transform(u, r, bar, outRe, outIm, workerID, numWorkers)
}

// ParallelForward runs Forward with every worker of pool cooperating.
func (p *Plan[T]) ParallelForward(pool *workerpool.Pool, re, im, outRe, outIm []T) {
	p.ParallelForwardVLEN(pool, hwy.HardwareVLEN(), re, im, outRe, outIm)
}

// ParallelForwardVLEN is ParallelForward on simulated vector units of vlen
// bits.
func (p *Plan[T]) ParallelForwardVLEN(pool *workerpool.Pool, vlen int, re, im, outRe, outIm []T) {
	p.check("ParallelForward", re, im, outRe, outIm)
	if err := hwy.ValidateVLEN(vlen); err != nil {
		exceptions.Panicf("ParallelForward: %v", err)
	}
	n := pool.NumWorkers()
	klog.V(2).Infof("ParallelForward: %d points, %d stages on %d workers (vlen %d)",
		p.n, bits.TrailingZeros(uint(p.n)), n, vlen)
	bar := workerpool.NewBarrier(n)
	pool.Run(func(workerID, numWorkers int) {
		p.ForwardWorker(hwy.NewVectorUnit(vlen), bar, re, im, outRe, outIm, workerID, numWorkers)
	})
}

// copyIn copies the worker's share of the input into the output arrays,
// negating the imaginary part if conj is set.
func (p *Plan[T]) copyIn(u *hwy.VectorUnit, r *regs[T], re, im, outRe, outIm []T, conj bool, workerID, numWorkers int) {
	chunk := tiling.CeilDiv(p.n, numWorkers)
	start, end := workerID*chunk, min((workerID+1)*chunk, p.n)
	sew := hwy.SEWOf[T]()
	for j := start; j < end; {
		vl := u.SetVL(sew, hwy.M1, end-j)
		hwy.Load(u, r.aRe, re[j:])
		hwy.Load(u, r.aIm, im[j:])
		if conj {
			hwy.Neg(u, r.aIm, r.aIm)
		}
		hwy.Store(u, r.aRe, outRe[j:])
		hwy.Store(u, r.aIm, outIm[j:])
		j += vl
	}
}

// transform runs the butterfly stages in place and reorders the result.
//
// Each stage of span h has n/(2h) groups, each split into tiles of the
// vector length. The (group, tile) pairs are dealt round-robin to the
// workers, which wait for each other before the next stage reads what
// this one wrote.
func (p *Plan[T]) transform(u *hwy.VectorUnit, r *regs[T], bar *workerpool.Barrier, xRe, xIm []T, workerID, numWorkers int) {
	sew := hwy.SEWOf[T]()
	tileWidth := u.VLMax(sew, hwy.M1)
	for h := p.n / 2; h >= 1; h /= 2 {
		wait(bar)
		tw := twiddleOffset(p.n, h)
		tilesPerGroup := tiling.CeilDiv(h, tileWidth)
		items := (p.n / (2 * h)) * tilesPerGroup
		for item := workerID; item < items; item += numWorkers {
			group, tile := item/tilesPerGroup, item%tilesPerGroup
			j := tile * tileWidth
			u.SetVL(sew, hwy.M1, h-j)
			base := group*2*h + j
			r.butterfly(u, xRe[base:], xIm[base:], xRe[base+h:], xIm[base+h:], p.twRe[tw+j:], p.twIm[tw+j:])
		}
	}
	wait(bar)

	// Bit reversal is an involution: swap each pair once, from its
	// lower index.
	for k := workerID; k < p.n; k += numWorkers {
		if j := p.rev[k]; k < j {
			xRe[k], xRe[j] = xRe[j], xRe[k]
			xIm[k], xIm[j] = xIm[j], xIm[k]
		}
	}
}

func wait(bar *workerpool.Barrier) {
	if bar != nil {
		bar.Wait()
	}
}

func (p *Plan[T]) check(name string, re, im, outRe, outIm []T) {
	for _, s := range [][]T{re, im, outRe, outIm} {
		if len(s) < p.n {
			exceptions.Panicf("%s: slices must hold %d points, got %d", name, p.n, len(s))
		}
	}
}

func twiddleOffset(n, h int) int {
	return n - 2*h
}

// regs are one worker's vector registers.
type regs[T hwy.Floats] struct {
	aRe, aIm, bRe, bIm hwy.Vec[T]
	wRe, wIm           hwy.Vec[T]
	tRe, tIm           hwy.Vec[T]
}

func newRegs[T hwy.Floats](capacity int) *regs[T] {
	return &regs[T]{
		aRe: hwy.NewVec[T](capacity), aIm: hwy.NewVec[T](capacity),
		bRe: hwy.NewVec[T](capacity), bIm: hwy.NewVec[T](capacity),
		wRe: hwy.NewVec[T](capacity), wIm: hwy.NewVec[T](capacity),
		tRe: hwy.NewVec[T](capacity), tIm: hwy.NewVec[T](capacity),
	}
}

// butterfly computes, for the active lanes,
//
//	a' = a + b
//	b' = (a - b) * w
func (r *regs[T]) butterfly(u *hwy.VectorUnit, aRe, aIm, bRe, bIm, wRe, wIm []T) {
	hwy.Load(u, r.aRe, aRe)
	hwy.Load(u, r.aIm, aIm)
	hwy.Load(u, r.bRe, bRe)
	hwy.Load(u, r.bIm, bIm)
	hwy.Load(u, r.wRe, wRe)
	hwy.Load(u, r.wIm, wIm)

	hwy.Sub(u, r.tRe, r.aRe, r.bRe)
	hwy.Sub(u, r.tIm, r.aIm, r.bIm)
	hwy.Add(u, r.aRe, r.aRe, r.bRe)
	hwy.Add(u, r.aIm, r.aIm, r.bIm)

	// (tRe + i tIm) * (wRe + i wIm)
	hwy.Mul(u, r.bRe, r.tRe, r.wRe)
	hwy.NegMulAdd(u, r.bRe, r.tIm, r.wIm)
	hwy.Mul(u, r.bIm, r.tRe, r.wIm)
	hwy.MulAdd(u, r.bIm, r.tIm, r.wRe)

	hwy.Store(u, r.aRe, aRe)
	hwy.Store(u, r.aIm, aIm)
	hwy.Store(u, r.bRe, bRe)
	hwy.Store(u, r.bIm, bIm)
}
