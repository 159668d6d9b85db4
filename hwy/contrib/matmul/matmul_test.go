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

package matmul

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/tiling"
	"github.com/ajroetker/go-vkernels/internal/verify"
)

var testVLENs = []int{32, 64, 128, 256, 512}

func randomInts[T hwy.SignedInts](rng *rand.Rand, n int) []T {
	s := make([]T, n)
	for i := range s {
		s[i] = T(rng.Intn(19) - 9)
	}
	return s
}

func TestMatMulSmall(t *testing.T) {
	// 2x3 * 3x2 = 2x2
	a := []float32{1, 2, 3, 4, 5, 6}
	b := []float32{7, 8, 9, 10, 11, 12}
	c := make([]float32, 4)

	MatMul(c, a, b, 2, 3, 2)
	assert.Equal(t, []float32{58, 64, 139, 154}, c)
}

func TestMatMul8x8Scaled(t *testing.T) {
	// Single worker, M=8: two row blocks of 4.
	const size = 8
	bs, _ := BlockSizeFor(size, 1)
	require.Equal(t, tiling.Block4, bs)

	identity3 := make([]int32, size*size)
	threes := make([]int32, size*size)
	ones := make([]int32, size*size)
	for i := range size {
		identity3[i*size+i] = 3
	}
	for i := range ones {
		threes[i] = 3
		ones[i] = 1
	}

	for _, vlen := range testVLENs {
		u := hwy.NewVectorUnit(vlen)

		c := make([]int32, size*size)
		tw := MatMulOn(u, c, identity3, ones, size, size, size)
		assert.LessOrEqual(t, tw, u.VLMax(hwy.E32, hwy.M4))
		for i, x := range c {
			require.Equal(t, int32(3), x, "vlen=%d c[%d]", vlen, i)
		}

		MatMulOn(u, c, threes, ones, size, size, size)
		for i, x := range c {
			require.Equal(t, int32(3*size), x, "vlen=%d c[%d]", vlen, i)
		}
	}
}

func TestMatMulIntegerExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, vlen := range testVLENs {
		for _, m := range []int{1, 2, 3, 4, 5, 8, 9, 16, 17, 31} {
			for _, n := range []int{1, 2, 5, 8} {
				for _, p := range []int{1, 3, 7, 16, 33} {
					name := fmt.Sprintf("vlen=%d/%dx%dx%d", vlen, m, n, p)
					a := randomInts[int32](rng, m*n)
					b := randomInts[int32](rng, n*p)
					want := make([]int32, m*p)
					verify.ReferenceMatMul(nil, want, a, b, m, n, p)

					c := make([]int32, m*p)
					MatMulOn(hwy.NewVectorUnit(vlen), c, a, b, m, n, p)
					require.Equal(t, want, c, name)
				}
			}
		}
	}
}

func TestMatMulAllBlockSizes(t *testing.T) {
	// Every block size gives the same product, whatever the selector would
	// have picked for M.
	rng := rand.New(rand.NewSource(7))
	const m, n, p = 21, 6, 19
	a := randomInts[int64](rng, m*n)
	b := randomInts[int64](rng, n*p)
	want := make([]int64, m*p)
	verify.ReferenceMatMul(nil, want, a, b, m, n, p)

	for _, bs := range tiling.BlockSizes {
		for _, lmul := range []hwy.LMUL{hwy.MF2, hwy.M1, hwy.M2} {
			u := hwy.NewVectorUnit(128)
			c := make([]int64, m*p)
			sweep(u, c, a, b, m, n, p, 0, 1, hwy.E64, bs, lmul, NewRowBlockKernel[int64])
			require.Equal(t, want, c, "%s %s", bs, lmul)
		}
	}
}

func TestMatMulWrapsLikeElementType(t *testing.T) {
	// int8 accumulation overflows the way int8 arithmetic does.
	a := []int8{100, 100}
	b := []int8{1, 1}
	c := make([]int8, 1)
	MatMulOn(hwy.NewVectorUnit(64), c, a, b, 1, 2, 1)
	assert.Equal(t, int8(-56), c[0])
}

func TestMatMulFloat(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, vlen := range testVLENs {
		const m, n, p = 24, 37, 29
		a := make([]float32, m*n)
		b := make([]float32, n*p)
		for i := range a {
			a[i] = rng.Float32()*2 - 1
		}
		for i := range b {
			b[i] = rng.Float32()*2 - 1
		}
		want := make([]float64, m*p)
		a64 := make([]float64, m*n)
		b64 := make([]float64, n*p)
		for i, x := range a {
			a64[i] = float64(x)
		}
		for i, x := range b {
			b64[i] = float64(x)
		}
		verify.ReferenceMatMul(nil, want, a64, b64, m, n, p)

		c := make([]float32, m*p)
		MatMulOn(hwy.NewVectorUnit(vlen), c, a, b, m, n, p)
		got := make([]float64, m*p)
		for i, x := range c {
			got[i] = float64(x)
		}
		require.NoError(t, verify.CheckClose(got, want, 1e-4), "vlen=%d", vlen)
	}
}

func TestMatMulIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const m, n, p = 19, 9, 23
	a := randomInts[int32](rng, m*n)
	b := randomInts[int32](rng, n*p)
	aCopy := append([]int32(nil), a...)
	bCopy := append([]int32(nil), b...)

	u := hwy.NewVectorUnit(128)
	first := make([]int32, m*p)
	MatMulOn(u, first, a, b, m, n, p)

	// Re-run over a dirty C: no state survives between calls and C is
	// overwritten rather than accumulated into.
	second := append([]int32(nil), first...)
	MatMulOn(u, second, a, b, m, n, p)
	MatMulOn(u, second, a, b, m, n, p)
	assert.Equal(t, first, second)
	assert.Equal(t, aCopy, a, "A was modified")
	assert.Equal(t, bCopy, b, "B was modified")
}

func TestMatMulEdgeTile(t *testing.T) {
	// P not a multiple of the tile width: the last tile is clamped and
	// nothing is written past the end of C.
	const m, n, p, guard = 8, 3, 37, 16
	u := hwy.NewVectorUnit(128)
	bs, lmul := BlockSizeFor(m, 1)
	tw := u.VLMax(hwy.E32, lmul)
	require.NotZero(t, p%tw, "test needs a partial tile")

	asg := tiling.Partition(m, p, bs, tw, 1, 0)
	var last tiling.Tile
	for tile := range asg.Tiles() {
		last = tile
	}
	assert.Equal(t, p%tw, last.Cols)
	assert.Equal(t, p, last.Col+last.Cols)

	a := make([]int32, m*n)
	b := make([]int32, n*p)
	for i := range a {
		a[i] = 1
	}
	for i := range b {
		b[i] = int32(i % p)
	}
	c := make([]int32, m*p+guard)
	for i := range c {
		c[i] = sentinel
	}
	got := MatMulOn(u, c[:m*p], a, b, m, n, p)
	assert.Equal(t, tw, got)
	for i := range m {
		for j := range p {
			require.Equal(t, int32(n*j), c[i*p+j], "c[%d][%d]", i, j)
		}
	}
	for i := m * p; i < len(c); i++ {
		require.Equal(t, sentinel, c[i], "wrote past C at %d", i)
	}
}

// TestMatMulWorkersDisjoint runs every worker of a multi-worker
// multiplication on its own copy of C and checks each element is written
// by exactly one worker, with the right value.
func TestMatMulWorkersDisjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	shapes := []struct{ m, n, p int }{
		{16, 4, 20}, {8, 5, 9}, {32, 3, 40}, {17, 2, 33}, {64, 4, 16}, {3, 3, 3},
	}
	for _, shape := range shapes {
		for _, workers := range []int{1, 2, 3, 4, 8, 16} {
			for _, vlen := range []int{64, 256} {
				m, n, p := shape.m, shape.n, shape.p
				name := fmt.Sprintf("%dx%dx%d/workers=%d/vlen=%d", m, n, p, workers, vlen)
				a := randomInts[int32](rng, m*n)
				b := randomInts[int32](rng, n*p)
				want := make([]int32, m*p)
				verify.ReferenceMatMul(nil, want, a, b, m, n, p)

				writers := make([]int, m*p)
				merged := make([]int32, m*p)
				for w := range workers {
					c := make([]int32, m*p)
					for i := range c {
						c[i] = sentinel
					}
					MatMulWorker(hwy.NewVectorUnit(vlen), c, a, b, m, n, p, w, workers)
					for i, x := range c {
						if x != sentinel {
							writers[i]++
							merged[i] = x
						}
					}
				}
				for i, nw := range writers {
					require.Equal(t, 1, nw, "%s: element %d written by %d workers", name, i, nw)
				}
				require.Equal(t, want, merged, name)
			}
		}
	}
}

func TestMatMulFloat16(t *testing.T) {
	const m, n, p = 12, 16, 10
	a := make([]float16.Float16, m*n)
	b := make([]float16.Float16, n*p)
	for i := range a {
		a[i] = float16.Fromfloat32(float32(i%5) * 0.25)
	}
	for i := range b {
		b[i] = float16.Fromfloat32(float32(i%3) - 1)
	}

	want := make([]float32, m*p)
	for i := range m {
		for j := range p {
			var sum float32
			for k := range n {
				sum += a[i*n+k].Float32() * b[k*p+j].Float32()
			}
			want[i*p+j] = sum
		}
	}

	c := make([]float16.Float16, m*p)
	MatMulFloat16(c, a, b, m, n, p)
	got := make([]float32, m*p)
	for i, x := range c {
		got[i] = x.Float32()
	}
	// Products are exact in float32 and sums fit in float16: no rounding.
	require.NoError(t, verify.CheckClose(got, want, 0))
	require.NoError(t, verify.CheckRows(got, verify.RowChecksums(want, m, p), m, p, 0.001))
}

func TestMatMulContractPanics(t *testing.T) {
	a := make([]int32, 4)
	c := make([]int32, 4)

	err := exceptions.TryCatch[error](func() { MatMul(c, a, a, 2, 2, 2) })
	require.NoError(t, err)

	err = exceptions.TryCatch[error](func() { MatMul(c, a, a, 0, 2, 2) })
	require.ErrorContains(t, err, "dimensions must be positive")

	err = exceptions.TryCatch[error](func() { MatMul(c, a, a, 2, 3, 2) })
	require.ErrorContains(t, err, "A slice too short")

	err = exceptions.TryCatch[error](func() { MatMul(c[:3], a, a, 2, 2, 2) })
	require.ErrorContains(t, err, "C slice too short")
}

func BenchmarkMatMul(b *testing.B) {
	for _, size := range []int{16, 64, 128} {
		a := make([]float32, size*size)
		bm := make([]float32, size*size)
		c := make([]float32, size*size)
		for i := range a {
			a[i] = float32(i%7) - 3
			bm[i] = float32(i%5) - 2
		}
		b.Run(fmt.Sprintf("%d", size), func(b *testing.B) {
			u := hwy.NewVectorUnit(512)
			for i := 0; i < b.N; i++ {
				MatMulOn(u, c, a, bm, size, size, size)
			}
		})
	}
}
