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

import (
	"fmt"
	"unsafe"
)

// SEW is the selected element width of the vector unit, in bits.
type SEW int

const (
	E8  SEW = 8
	E16 SEW = 16
	E32 SEW = 32
	E64 SEW = 64
)

// String returns the assembler spelling of the element width, e.g. "e32".
func (s SEW) String() string {
	return fmt.Sprintf("e%d", int(s))
}

// SEWOf returns the element width of T.
func SEWOf[T Lanes]() SEW {
	var zero T
	return SEW(unsafe.Sizeof(zero) * 8)
}

// LMUL is the register grouping: how many architectural registers form one
// operand. Fractional groupings use part of a single register.
type LMUL int

// LMUL values are stored in eighths of a register.
const (
	MF8 LMUL = 1
	MF4 LMUL = 2
	MF2 LMUL = 4
	M1  LMUL = 8
	M2  LMUL = 16
	M4  LMUL = 32
	M8  LMUL = 64
)

// String returns the assembler spelling of the grouping, e.g. "m2" or "mf2".
func (l LMUL) String() string {
	if l >= M1 {
		return fmt.Sprintf("m%d", int(l/M1))
	}
	return fmt.Sprintf("mf%d", int(M1/l))
}

// Registers returns how many architectural registers one operand occupies.
// Fractional groupings still occupy a whole register.
func (l LMUL) Registers() int {
	return max(1, int(l/M1))
}

// NumRegisters is the size of the architectural vector register file.
const NumRegisters = 32

// VectorUnit holds the active vector configuration of one core.
//
// SetVL negotiates the vector length for an element width and grouping;
// every operation afterwards processes exactly VL lanes. A VectorUnit must
// not be shared between goroutines: each worker owns its own, as each core
// owns its own configuration registers.
type VectorUnit struct {
	vlen int
	sew  SEW
	lmul LMUL
	vl   int
}

// NewVectorUnit returns a unit with vlen-bit registers. The initial
// configuration is e32/m1 with vl = 0.
//
// It panics if vlen is not a power of two in [MinVLEN, MaxVLEN].
func NewVectorUnit(vlen int) *VectorUnit {
	if err := ValidateVLEN(vlen); err != nil {
		panic(err)
	}
	return &VectorUnit{vlen: vlen, sew: E32, lmul: M1}
}

// NewHardwareVectorUnit returns a unit using HardwareVLEN.
func NewHardwareVectorUnit() *VectorUnit {
	return NewVectorUnit(HardwareVLEN())
}

// VLEN returns the register width in bits.
func (u *VectorUnit) VLEN() int {
	return u.vlen
}

// VLMax returns the largest vector length for the given element width and
// grouping: VLEN * LMUL / SEW, never less than 1.
func (u *VectorUnit) VLMax(sew SEW, lmul LMUL) int {
	return max(1, u.vlen*int(lmul)/(int(sew)*int(M1)))
}

// SetVL sets the active configuration and returns the number of lanes
// usable for a request of avl elements: min(avl, VLMax(sew, lmul)).
//
// avl must be positive.
func (u *VectorUnit) SetVL(sew SEW, lmul LMUL, avl int) int {
	u.sew, u.lmul = sew, lmul
	u.vl = min(avl, u.VLMax(sew, lmul))
	return u.vl
}

// VL returns the active vector length.
func (u *VectorUnit) VL() int {
	return u.vl
}

// SEW returns the active element width.
func (u *VectorUnit) SEW() SEW {
	return u.sew
}

// LMUL returns the active register grouping.
func (u *VectorUnit) LMUL() LMUL {
	return u.lmul
}

// String describes the active configuration in vsetvli syntax.
func (u *VectorUnit) String() string {
	return fmt.Sprintf("vlen=%d vl=%d %s,%s", u.vlen, u.vl, u.sew, u.lmul)
}
