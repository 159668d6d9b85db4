// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

package tiling

import (
	"fmt"

	"github.com/ajroetker/go-vkernels/hwy"
)

// BlockSize is the number of output rows computed together, one
// accumulator register each, sharing a single pass over the reduction
// dimension.
type BlockSize int

const (
	Block2 BlockSize = 2
	Block4 BlockSize = 4
	Block8 BlockSize = 8
)

// MaxBlockSize is the largest supported BlockSize.
const MaxBlockSize = int(Block8)

// PipelineDepth is the number of operand buffers rotated by the pipelined
// kernels: one is consumed by multiply-accumulates while the next one is
// being loaded.
const PipelineDepth = 2

// BlockSizes lists the supported block sizes in increasing order.
var BlockSizes = []BlockSize{Block2, Block4, Block8}

// String returns e.g. "4x".
func (bs BlockSize) String() string {
	return fmt.Sprintf("%dx", int(bs))
}

// Valid reports whether bs is one of the supported block sizes.
func (bs BlockSize) Valid() bool {
	return bs == Block2 || bs == Block4 || bs == Block8
}

// SelectBlockSize picks the register blocking for an output with m rows
// computed by the given number of workers.
//
// With several workers: m ≤ 8 uses 2 rows, m ≤ 16 uses 4, anything larger 8.
// A single worker has no partition overhead to amortize, so its thresholds
// are one level lower: m ≤ 4 uses 2 rows, m ≤ 8 uses 4, anything larger 8.
// Smaller blocks under multi-core execution keep every worker supplied with
// at least one full block.
func SelectBlockSize(m, workers int) BlockSize {
	if workers > 1 {
		switch {
		case m <= 8:
			return Block2
		case m <= 16:
			return Block4
		default:
			return Block8
		}
	}
	switch {
	case m <= 4:
		return Block2
	case m <= 8:
		return Block4
	default:
		return Block8
	}
}

// Grouping returns the register grouping used to negotiate the column tile
// width for a block size. Multi-worker runs use narrower groupings so the
// tiles are spread over more workers.
func Grouping(bs BlockSize, m, workers int) hwy.LMUL {
	single := workers <= 1
	switch bs {
	case Block2:
		if single {
			return hwy.M2
		}
		return hwy.M1
	case Block4:
		if single {
			return hwy.M4
		}
		return hwy.MF2
	default:
		if single || m != 32 {
			return hwy.M2
		}
		return hwy.M1
	}
}

// RegistersUsed returns how many architectural vector registers a
// pipelined kernel with bs accumulators occupies at grouping lmul.
func RegistersUsed(bs BlockSize, lmul hwy.LMUL) int {
	return (int(bs) + PipelineDepth) * lmul.Registers()
}

// FitsRegisterFile reports whether the accumulators and pipeline buffers
// fit without spilling.
func FitsRegisterFile(bs BlockSize, lmul hwy.LMUL) bool {
	return RegistersUsed(bs, lmul) <= hwy.NumRegisters
}
