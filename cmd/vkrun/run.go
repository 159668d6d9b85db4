// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"math/bits"
	"math/rand"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/conv"
	"github.com/ajroetker/go-vkernels/hwy/contrib/fft"
	"github.com/ajroetker/go-vkernels/hwy/contrib/matmul"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
	"github.com/ajroetker/go-vkernels/internal/verify"
)

// Config selects the kernel to run and its problem size.
type Config struct {
	Kernel     string
	M, N, P    int
	Channels   int
	FilterSize int
	FFTSize    int
	Workers    int
	VLEN       int
	Seed       int64
	Tolerance  float64
	Repeat     int
}

// Report is the outcome of a checked run.
type Report struct {
	Kernel  string
	Workers int
	VLEN    int

	// Bytes is the size of the operands and result, Ops the number of
	// multiply-accumulates of one run.
	Bytes int64
	Ops   int64

	Best, Total time.Duration
	Runs        int
}

func (r *Report) String() string {
	// Runs faster than the timer resolution report no rate.
	rate := "n/a"
	if r.Best > 0 {
		rate = humanize.SIWithDigits(float64(r.Ops)/r.Best.Seconds(), 2, "MAC/s")
	}
	return fmt.Sprintf("%s: %s operands, %s MACs, %d workers, vlen %d: best %s of %d runs (%s), check passed",
		r.Kernel, humanize.Bytes(uint64(r.Bytes)), humanize.Comma(r.Ops), r.Workers, r.VLEN,
		r.Best, r.Runs, rate)
}

// runner prepares inputs for a kernel and returns the timed step, the
// check of its output and the operand sizes.
type runner func(cfg Config, pool *workerpool.Pool, rng *rand.Rand) (step func(), check func(tol float64) error, bytes, ops int64, err error)

type kernelSpec struct {
	run runner

	// tol is the default absolute tolerance of the check.
	tol float64
}

var kernels = map[string]kernelSpec{
	"matmul":     {run: runMatMul, tol: 1e-3},
	"matmul-f16": {run: runMatMulFloat16, tol: 0.5},
	"conv2d":     {run: runConv2D},
	"conv3d":     {run: runConv3D},
	"fft":        {run: runFFT, tol: 1e-3},
}

func kernelNames() []string {
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run executes cfg.Kernel cfg.Repeat times and checks the last result.
func Run(cfg Config) (*Report, error) {
	spec, found := kernels[cfg.Kernel]
	if !found {
		return nil, errors.Errorf("unknown kernel %q, valid kernels: %v", cfg.Kernel, kernelNames())
	}
	if cfg.VLEN == 0 {
		cfg.VLEN = hwy.HardwareVLEN()
	} else if err := hwy.ValidateVLEN(cfg.VLEN); err != nil {
		return nil, err
	}
	if cfg.Repeat <= 0 {
		cfg.Repeat = 1
	}
	tol := cfg.Tolerance
	if tol == 0 {
		tol = spec.tol
	}

	pool := workerpool.New(cfg.Workers)
	defer pool.Close()
	rng := rand.New(rand.NewSource(cfg.Seed))

	var (
		step   func()
		check  func(float64) error
		report = &Report{Kernel: cfg.Kernel, Workers: pool.NumWorkers(), VLEN: cfg.VLEN}
		err    error
	)
	// Contract violations in the kernels panic; report them as errors.
	if perr := exceptions.TryCatch[error](func() {
		step, check, report.Bytes, report.Ops, err = spec.run(cfg, pool, rng)
		if err != nil {
			return
		}
		for range cfg.Repeat {
			start := time.Now()
			step()
			elapsed := time.Since(start)
			if report.Runs == 0 || elapsed < report.Best {
				report.Best = elapsed
			}
			report.Total += elapsed
			report.Runs++
		}
	}); perr != nil {
		return nil, errors.Wrapf(perr, "%s", cfg.Kernel)
	}
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("%s: %d runs in %s", cfg.Kernel, report.Runs, report.Total)
	if err := check(tol); err != nil {
		return nil, errors.WithMessagef(err, "%s: check failed", cfg.Kernel)
	}
	return report, nil
}

func randomFloats(rng *rand.Rand, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}

type flagValue struct {
	name  string
	value int
}

// checkPositive reports the first non-positive value, in the order given.
func checkPositive(values ...flagValue) error {
	for _, v := range values {
		if v.value <= 0 {
			return errors.Errorf("-%s must be positive, got %d", v.name, v.value)
		}
	}
	return nil
}

func runMatMul(cfg Config, pool *workerpool.Pool, rng *rand.Rand) (func(), func(float64) error, int64, int64, error) {
	m, n, p := cfg.M, cfg.N, cfg.P
	if err := checkPositive(flagValue{"m", m}, flagValue{"n", n}, flagValue{"p", p}); err != nil {
		return nil, nil, 0, 0, err
	}
	a := randomFloats(rng, m*n)
	b := randomFloats(rng, n*p)
	c := make([]float32, m*p)
	step := func() { matmul.ParallelMatMulVLEN(pool, cfg.VLEN, c, a, b, m, n, p) }
	check := func(tol float64) error {
		want := make([]float32, m*p)
		verify.ReferenceMatMul(pool, want, a, b, m, n, p)
		return verify.CheckRows(c, verify.RowChecksums(want, m, p), m, p, tol)
	}
	return step, check, int64(4 * (m*n + n*p + m*p)), int64(m) * int64(n) * int64(p), nil
}

func runMatMulFloat16(cfg Config, pool *workerpool.Pool, rng *rand.Rand) (func(), func(float64) error, int64, int64, error) {
	m, n, p := cfg.M, cfg.N, cfg.P
	if err := checkPositive(flagValue{"m", m}, flagValue{"n", n}, flagValue{"p", p}); err != nil {
		return nil, nil, 0, 0, err
	}
	toHalf := func(s []float32) []float16.Float16 {
		h := make([]float16.Float16, len(s))
		for i, x := range s {
			h[i] = float16.Fromfloat32(x)
		}
		return h
	}
	a := toHalf(randomFloats(rng, m*n))
	b := toHalf(randomFloats(rng, n*p))
	c := make([]float16.Float16, m*p)
	step := func() { matmul.ParallelMatMulFloat16VLEN(pool, cfg.VLEN, c, a, b, m, n, p) }
	check := func(tol float64) error {
		toSingle := func(h []float16.Float16) []float32 {
			s := make([]float32, len(h))
			for i, x := range h {
				s[i] = x.Float32()
			}
			return s
		}
		a32, b32 := toSingle(a), toSingle(b)
		want := make([]float32, m*p)
		verify.ReferenceMatMul(pool, want, a32, b32, m, n, p)
		return verify.CheckRows(toSingle(c), verify.RowChecksums(want, m, p), m, p, tol)
	}
	return step, check, int64(2 * (m*n + n*p + m*p)), int64(m) * int64(n) * int64(p), nil
}

func runConv2D(cfg Config, pool *workerpool.Pool, rng *rand.Rand) (func(), func(float64) error, int64, int64, error) {
	cfg.Channels = 1
	return runConv3D(cfg, pool, rng)
}

func runConv3D(cfg Config, pool *workerpool.Pool, rng *rand.Rand) (func(), func(float64) error, int64, int64, error) {
	s := conv.Shape{Channels: cfg.Channels, Rows: cfg.M, Cols: cfg.P, FilterSize: cfg.FilterSize}
	if err := checkPositive(
		flagValue{"ch", s.Channels}, flagValue{"m", s.Rows}, flagValue{"p", s.Cols}, flagValue{"fsz", s.FilterSize}); err != nil {
		return nil, nil, 0, 0, err
	}
	// Integer operands: the check is exact.
	in := make([]int32, s.InputLen())
	f := make([]int32, s.FilterLen())
	for i := range in {
		in[i] = int32(rng.Intn(256) - 128)
	}
	for i := range f {
		f[i] = int32(rng.Intn(16) - 8)
	}
	o := make([]int32, s.OutputLen())
	step := func() {
		conv.ParallelConv3DVLEN(pool, cfg.VLEN, o, in, f, s.Channels, s.Rows, s.Cols, s.FilterSize)
	}
	check := func(tol float64) error {
		want := make([]int32, s.OutputLen())
		verify.ReferenceConv3D(want, in, f, s.Channels, s.Rows, s.Cols, s.FilterSize)
		return verify.CheckClose(o, want, tol)
	}
	bytes := int64(4 * (s.InputLen() + s.FilterLen() + s.OutputLen()))
	return step, check, bytes, int64(s.OutputLen()) * int64(s.FilterLen()), nil
}

func runFFT(cfg Config, pool *workerpool.Pool, rng *rand.Rand) (func(), func(float64) error, int64, int64, error) {
	plan, err := fft.NewPlan[float32](cfg.FFTSize)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	n := plan.Size()
	re, im := randomFloats(rng, n), randomFloats(rng, n)
	outRe, outIm := make([]float32, n), make([]float32, n)
	step := func() { plan.ParallelForwardVLEN(pool, cfg.VLEN, re, im, outRe, outIm) }
	check := func(tol float64) error {
		// The inverse transform must give the signal back.
		backRe, backIm := make([]float32, n), make([]float32, n)
		plan.Inverse(hwy.NewVectorUnit(cfg.VLEN), outRe, outIm, backRe, backIm)
		if err := verify.CheckClose(backRe, re, tol); err != nil {
			return errors.WithMessage(err, "real part")
		}
		return errors.WithMessage(verify.CheckClose(backIm, im, tol), "imaginary part")
	}
	// NewPlan accepted n, so it is a power of two.
	stages := int64(bits.TrailingZeros(uint(n)))
	return step, check, int64(16 * n), int64(n/2) * stages, nil
}
