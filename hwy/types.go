// Package hwy models a variable-length vector unit: the lane types it
// operates on, the active vector configuration (element width, register
// grouping and vector length) and the handful of vector operations the
// kernels in hwy/contrib are written against.
//
// The hardware keeps one active configuration per core, set by a width
// negotiation and implicitly consumed by every later vector instruction.
// Here that state lives in a VectorUnit value which is passed explicitly to
// every kernel, so tests can run the same kernels at any simulated width:
//
//	u := hwy.NewVectorUnit(256)              // VLEN = 256 bits
//	vl := u.SetVL(hwy.E32, hwy.M1, len(data)) // at most 8 int32 lanes
//	v := hwy.NewVec[int32](u.VLMax(hwy.E32, hwy.M1))
//	u.Load(v, data)
//	u.Store(v, out)
//
// Use NewHardwareVectorUnit to run with the width detected for this machine.
package hwy

// Floats is a constraint for floating-point types.
type Floats interface {
	~float32 | ~float64
}

// SignedInts is a constraint for signed integer types.
type SignedInts interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// UnsignedInts is a constraint for unsigned integer types.
type UnsignedInts interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Integers is a constraint for all integer types.
type Integers interface {
	SignedInts | UnsignedInts
}

// Lanes is a constraint for all types that can be stored in vector lanes.
//
// Half-precision types such as float16.Float16 satisfy Lanes through their
// uint16 representation. They can be moved with LoadPromote and StoreDemote
// but must not be used with arithmetic operations directly.
type Lanes interface {
	Floats | Integers
}

// Vec is a vector register. Its capacity is fixed when allocated (the
// VLMAX of the configuration it is meant for) and operations only touch the
// first vl lanes of the VectorUnit they run on.
//
// Vec values share their backing storage, so copying a Vec aliases the
// register rather than duplicating it.
type Vec[T Lanes] struct {
	data []T
}

// NewVec allocates a register able to hold capacity lanes.
func NewVec[T Lanes](capacity int) Vec[T] {
	return Vec[T]{data: make([]T, capacity)}
}

// Cap returns the number of lanes the register can hold.
func (v Vec[T]) Cap() int {
	return len(v.data)
}

// Data returns the underlying slice representation of the vector.
// This is primarily for testing and should not be used in performance-critical code.
func (v Vec[T]) Data() []T {
	return v.data
}
