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

package hwy

import "math"

// This file provides pure Go implementations of the vector operations.
// Every operation processes the first u.VL() lanes of its operands and
// leaves the remaining lanes untouched (tail-undisturbed). Operands must
// have a capacity of at least u.VL(); memory operands must hold at least
// u.VL() elements. Violations panic with an index out of range.

// Zero sets the active lanes of v to zero.
func Zero[T Lanes](u *VectorUnit, v Vec[T]) {
	clear(v.data[:u.vl])
}

// Broadcast sets the active lanes of v to value.
func Broadcast[T Lanes](u *VectorUnit, v Vec[T], value T) {
	d := v.data[:u.vl]
	for i := range d {
		d[i] = value
	}
}

// Load performs a unit-stride load of u.VL() elements from src into dst.
func Load[T Lanes](u *VectorUnit, dst Vec[T], src []T) {
	copy(dst.data[:u.vl], src[:u.vl])
}

// Store performs a unit-stride store of the active lanes of v into dst.
func Store[T Lanes](u *VectorUnit, v Vec[T], dst []T) {
	copy(dst[:u.vl], v.data[:u.vl])
}

// LoadPromote loads u.VL() narrow elements from src, converting each to the
// wider lane type of dst.
func LoadPromote[E, A Lanes](u *VectorUnit, dst Vec[A], src []E, promote func(E) A) {
	d := dst.data[:u.vl]
	s := src[:u.vl]
	for i := range d {
		d[i] = promote(s[i])
	}
}

// StoreDemote stores the active lanes of v into dst, converting each to the
// narrower element type of dst.
func StoreDemote[E, A Lanes](u *VectorUnit, v Vec[A], dst []E, demote func(A) E) {
	d := dst[:u.vl]
	s := v.data[:u.vl]
	for i := range d {
		d[i] = demote(s[i])
	}
}

// MulAddScalar computes acc += s * b lane-wise (a vector-scalar
// multiply-accumulate). For float32 and float64 lanes the product is not
// rounded before the addition. float64 lanes round the sum once. float32
// lanes compute the sum with a float64 FMA and round it again to float32,
// which matches a single-rounded float32 FMA except when the float64 sum
// lands exactly halfway between two float32 values.
func MulAddScalar[T Lanes](u *VectorUnit, acc Vec[T], s T, b Vec[T]) {
	vl := u.vl
	switch accData := any(acc.data[:vl]).(type) {
	case []float32:
		bData := any(b.data[:vl]).([]float32)
		sv := float64(any(s).(float32))
		for i := range accData {
			accData[i] = float32(math.FMA(sv, float64(bData[i]), float64(accData[i])))
		}
	case []float64:
		bData := any(b.data[:vl]).([]float64)
		sv := any(s).(float64)
		for i := range accData {
			accData[i] = math.FMA(sv, bData[i], accData[i])
		}
	default:
		a := acc.data[:vl]
		bData := b.data[:vl]
		for i := range a {
			a[i] += s * bData[i]
		}
	}
}

// MulAdd computes acc += a * b lane-wise (vector-vector multiply-accumulate).
// Floating-point lanes are rounded as in MulAddScalar.
func MulAdd[T Lanes](u *VectorUnit, acc, a, b Vec[T]) {
	vl := u.vl
	switch accData := any(acc.data[:vl]).(type) {
	case []float32:
		aData := any(a.data[:vl]).([]float32)
		bData := any(b.data[:vl]).([]float32)
		for i := range accData {
			accData[i] = float32(math.FMA(float64(aData[i]), float64(bData[i]), float64(accData[i])))
		}
	case []float64:
		aData := any(a.data[:vl]).([]float64)
		bData := any(b.data[:vl]).([]float64)
		for i := range accData {
			accData[i] = math.FMA(aData[i], bData[i], accData[i])
		}
	default:
		c := acc.data[:vl]
		aData, bData := a.data[:vl], b.data[:vl]
		for i := range c {
			c[i] += aData[i] * bData[i]
		}
	}
}

// NegMulAdd computes acc -= a * b lane-wise, rounded as in MulAddScalar.
func NegMulAdd[T Lanes](u *VectorUnit, acc, a, b Vec[T]) {
	vl := u.vl
	switch accData := any(acc.data[:vl]).(type) {
	case []float32:
		aData := any(a.data[:vl]).([]float32)
		bData := any(b.data[:vl]).([]float32)
		for i := range accData {
			accData[i] = float32(math.FMA(-float64(aData[i]), float64(bData[i]), float64(accData[i])))
		}
	case []float64:
		aData := any(a.data[:vl]).([]float64)
		bData := any(b.data[:vl]).([]float64)
		for i := range accData {
			accData[i] = math.FMA(-aData[i], bData[i], accData[i])
		}
	default:
		c := acc.data[:vl]
		aData, bData := a.data[:vl], b.data[:vl]
		for i := range c {
			c[i] -= aData[i] * bData[i]
		}
	}
}

// Add computes dst = a + b lane-wise. dst may alias a or b.
func Add[T Lanes](u *VectorUnit, dst, a, b Vec[T]) {
	d := dst.data[:u.vl]
	aData, bData := a.data[:u.vl], b.data[:u.vl]
	for i := range d {
		d[i] = aData[i] + bData[i]
	}
}

// Sub computes dst = a - b lane-wise. dst may alias a or b.
func Sub[T Lanes](u *VectorUnit, dst, a, b Vec[T]) {
	d := dst.data[:u.vl]
	aData, bData := a.data[:u.vl], b.data[:u.vl]
	for i := range d {
		d[i] = aData[i] - bData[i]
	}
}

// Mul computes dst = a * b lane-wise. dst may alias a or b.
func Mul[T Lanes](u *VectorUnit, dst, a, b Vec[T]) {
	d := dst.data[:u.vl]
	aData, bData := a.data[:u.vl], b.data[:u.vl]
	for i := range d {
		d[i] = aData[i] * bData[i]
	}
}

// MulScalar computes dst = s * a lane-wise. dst may alias a.
func MulScalar[T Lanes](u *VectorUnit, dst Vec[T], s T, a Vec[T]) {
	d := dst.data[:u.vl]
	aData := a.data[:u.vl]
	for i := range d {
		d[i] = s * aData[i]
	}
}

// Neg computes dst = -a lane-wise. dst may alias a.
func Neg[T SignedInts | Floats](u *VectorUnit, dst, a Vec[T]) {
	d := dst.data[:u.vl]
	aData := a.data[:u.vl]
	for i := range d {
		d[i] = -aData[i]
	}
}

// ReduceSum sums the active lanes.
func ReduceSum[T Lanes](u *VectorUnit, v Vec[T]) T {
	var sum T
	for _, x := range v.data[:u.vl] {
		sum += x
	}
	return sum
}
