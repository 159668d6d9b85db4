// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

package conv

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/tiling"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
	"github.com/ajroetker/go-vkernels/internal/verify"
)

const sentinel = int32(-99999)

func randomInput(rng *rand.Rand, s Shape) (in, f []int32) {
	in = make([]int32, s.InputLen())
	f = make([]int32, s.FilterLen())
	for i := range in {
		in[i] = int32(rng.Intn(21) - 10)
	}
	for i := range f {
		f[i] = int32(rng.Intn(7) - 3)
	}
	return in, f
}

func TestShape(t *testing.T) {
	s := Shape{Channels: 3, Rows: 8, Cols: 10, FilterSize: 7}
	assert.Equal(t, 14, s.InputRows())
	assert.Equal(t, 16, s.InputCols())
	assert.Equal(t, 3*14*16, s.InputLen())
	assert.Equal(t, 3*49, s.FilterLen())
	assert.Equal(t, 80, s.OutputLen())
}

func TestConv2DBox(t *testing.T) {
	// A 3x3 box filter over a 4x4 input of ones.
	in := make([]float32, 16)
	f := make([]float32, 9)
	for i := range in {
		in[i] = 1
	}
	for i := range f {
		f[i] = 1
	}
	o := make([]float32, 4)
	Conv2D(o, in, f, 2, 2, 3)
	assert.Equal(t, []float32{9, 9, 9, 9}, o)
}

func TestConv3D(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, vlen := range []int{32, 128, 512} {
		for _, ch := range []int{1, 3} {
			for _, fsz := range []int{1, 3, 7} {
				for _, r := range []int{1, 2, 5, 8, 13, 32} {
					for _, c := range []int{1, 6, 17} {
						s := Shape{Channels: ch, Rows: r, Cols: c, FilterSize: fsz}
						in, f := randomInput(rng, s)
						want := make([]int32, s.OutputLen())
						verify.ReferenceConv3D(want, in, f, ch, r, c, fsz)

						o := make([]int32, s.OutputLen())
						Conv3DWorker(hwy.NewVectorUnit(vlen), o, in, f, ch, r, c, fsz, 0, 1)
						require.Equal(t, want, o, "vlen=%d %+v", vlen, s)
					}
				}
			}
		}
	}
}

func TestConvAllBlockSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	s := Shape{Channels: 2, Rows: 11, Cols: 9, FilterSize: 3}
	in, f := randomInput(rng, s)
	want := make([]int32, s.OutputLen())
	verify.ReferenceConv3D(want, in, f, s.Channels, s.Rows, s.Cols, s.FilterSize)

	for _, bs := range tiling.BlockSizes {
		o := make([]int32, s.OutputLen())
		sweep(hwy.NewVectorUnit(64), o, in, f, s, 0, 1, bs, hwy.M1)
		require.Equal(t, want, o, "block %s", bs)
	}
}

func TestConvWorkersDisjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := Shape{Channels: 2, Rows: 16, Cols: 20, FilterSize: 3}
	in, f := randomInput(rng, s)
	want := make([]int32, s.OutputLen())
	verify.ReferenceConv3D(want, in, f, s.Channels, s.Rows, s.Cols, s.FilterSize)

	for _, workers := range []int{2, 3, 4, 8, 12} {
		writers := make([]int, s.OutputLen())
		merged := make([]int32, s.OutputLen())
		for w := range workers {
			o := make([]int32, s.OutputLen())
			for i := range o {
				o[i] = sentinel
			}
			Worker(hwy.NewVectorUnit(128), o, in, f, s, w, workers)
			for i, x := range o {
				if x != sentinel {
					writers[i]++
					merged[i] = x
				}
			}
		}
		for i, n := range writers {
			require.Equal(t, 1, n, "workers=%d: element %d written %d times", workers, i, n)
		}
		require.Equal(t, want, merged, "workers=%d", workers)
	}
}

func TestParallelConv3D(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, workers := range []int{1, 4, 7} {
		pool := workerpool.New(workers)
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			const ch, r, c, fsz = 3, 24, 31, 7
			s := Shape{Channels: ch, Rows: r, Cols: c, FilterSize: fsz}
			in := make([]float64, s.InputLen())
			f := make([]float64, s.FilterLen())
			for i := range in {
				in[i] = rng.Float64()*2 - 1
			}
			for i := range f {
				f[i] = rng.Float64()*2 - 1
			}
			want := make([]float64, s.OutputLen())
			verify.ReferenceConv3D(want, in, f, ch, r, c, fsz)

			o := make([]float64, s.OutputLen())
			ParallelConv3D(pool, o, in, f, ch, r, c, fsz)
			require.NoError(t, verify.CheckClose(o, want, 1e-9))

			ParallelConv3DVLEN(pool, 64, o, in, f, ch, r, c, fsz)
			require.NoError(t, verify.CheckClose(o, want, 1e-9))
		})
		pool.Close()
	}
}

func TestConvContractPanics(t *testing.T) {
	o := make([]int32, 4)
	in := make([]int32, 16)
	f := make([]int32, 9)
	require.NoError(t, exceptions.TryCatch[error](func() { Conv2D(o, in, f, 2, 2, 3) }))

	err := exceptions.TryCatch[error](func() { Conv2D(o, in, f, 2, 2, 0) })
	require.ErrorContains(t, err, "dimensions must be positive")

	err = exceptions.TryCatch[error](func() { Conv3D(o, in, f, 2, 2, 2, 3) })
	require.ErrorContains(t, err, "input slice too short")

	err = exceptions.TryCatch[error](func() { Conv2D(o[:3], in, f, 2, 2, 3) })
	require.ErrorContains(t, err, "output slice too short")
}

func TestParallelConv3DInvalidVLEN(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()
	o := make([]int32, 4)
	in := make([]int32, 16)
	f := make([]int32, 9)
	err := exceptions.TryCatch[error](func() { ParallelConv3DVLEN(pool, 100, o, in, f, 1, 2, 2, 3) })
	require.ErrorContains(t, err, "ParallelConv3D: VLEN 100 is not a power of two")
}

func BenchmarkConv3D(b *testing.B) {
	for _, fsz := range []int{3, 7} {
		s := Shape{Channels: 3, Rows: 64, Cols: 64, FilterSize: fsz}
		in := make([]float32, s.InputLen())
		f := make([]float32, s.FilterLen())
		o := make([]float32, s.OutputLen())
		for i := range in {
			in[i] = float32(i%9) - 4
		}
		for i := range f {
			f[i] = float32(i%3) - 1
		}
		b.Run(fmt.Sprintf("%dx%d", fsz, fsz), func(b *testing.B) {
			u := hwy.NewVectorUnit(512)
			for i := 0; i < b.N; i++ {
				Worker(u, o, in, f, s, 0, 1)
			}
		})
	}
}
