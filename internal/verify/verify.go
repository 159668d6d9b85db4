// Package verify checks kernel outputs against references: a naive matrix
// product, per-row checksums within an absolute tolerance, and element-wise
// comparison of floating-point results.
package verify

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
)

// RowMismatchError reports the first output row whose checksum is off.
type RowMismatchError struct {
	Row       int
	Got, Want float64
	Tolerance float64
}

func (e *RowMismatchError) Error() string {
	return fmt.Sprintf("row %d: checksum %g, expected %g (tolerance %g)", e.Row, e.Got, e.Want, e.Tolerance)
}

// ElementMismatchError reports the first element outside the tolerance.
type ElementMismatchError struct {
	Index     int
	Got, Want float64
	Tolerance float64
}

func (e *ElementMismatchError) Error() string {
	return fmt.Sprintf("index %d: got %g, expected %g (tolerance %g)", e.Index, e.Got, e.Want, e.Tolerance)
}

// ReferenceMatMul computes C = A * B with the naive triple loop, in the
// element type's own arithmetic. If pool is not nil rows are split across
// its workers.
func ReferenceMatMul[T hwy.Lanes](pool *workerpool.Pool, c, a, b []T, m, n, p int) {
	rows := func(start, end int) {
		for i := start; i < end; i++ {
			for j := range p {
				var sum T
				for k := range n {
					sum += a[i*n+k] * b[k*p+j]
				}
				c[i*p+j] = sum
			}
		}
	}
	if pool == nil {
		rows(0, m)
		return
	}
	pool.ParallelFor(m, rows)
}

// ReferenceConv3D computes the r×c valid correlation of a ch-channel
// (r+fsz-1)×(c+fsz-1) input with a ch×fsz×fsz filter, summed over
// channels, with the naive loop nest.
func ReferenceConv3D[T hwy.Lanes](o, in, f []T, ch, r, c, fsz int) {
	ih, iw := r+fsz-1, c+fsz-1
	for i := range r {
		for j := range c {
			var sum T
			for k := range ch {
				for fr := range fsz {
					for fc := range fsz {
						sum += f[(k*fsz+fr)*fsz+fc] * in[(k*ih+i+fr)*iw+j+fc]
					}
				}
			}
			o[i*c+j] = sum
		}
	}
}

// RowChecksums returns the sum of each row of the m×p matrix c.
func RowChecksums[T hwy.Lanes](c []T, m, p int) []float64 {
	sums := make([]float64, m)
	for i := range m {
		for _, x := range c[i*p : (i+1)*p] {
			sums[i] += float64(x)
		}
	}
	return sums
}

// CheckRows compares the row sums of the m×p matrix c against checksum and
// returns a *RowMismatchError, with stack, for the first row that differs
// by more than tol.
func CheckRows[T hwy.Lanes](c []T, checksum []float64, m, p int, tol float64) error {
	if len(checksum) < m {
		return errors.Errorf("checksum has %d rows, matrix has %d", len(checksum), m)
	}
	for i, got := range RowChecksums(c, m, p) {
		if math.Abs(got-checksum[i]) > tol || math.IsNaN(got) {
			return errors.WithStack(&RowMismatchError{Row: i, Got: got, Want: checksum[i], Tolerance: tol})
		}
	}
	return nil
}

// CheckClose compares got and want element-wise and returns an
// *ElementMismatchError, with stack, for the first element that differs by
// more than tol.
func CheckClose[T hwy.Lanes](got, want []T, tol float64) error {
	if len(got) != len(want) {
		return errors.Errorf("length mismatch: got %d elements, expected %d", len(got), len(want))
	}
	for i := range got {
		g, w := float64(got[i]), float64(want[i])
		if math.Abs(g-w) > tol || math.IsNaN(g) != math.IsNaN(w) {
			return errors.WithStack(&ElementMismatchError{Index: i, Got: g, Want: w, Tolerance: tol})
		}
	}
	return nil
}
