// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

package tiling

import (
	"fmt"
	"iter"

	"golang.org/x/exp/constraints"
)

// CeilDiv returns ceil(a / b) for positive b.
func CeilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// Tile is one (row block, column tile) pair of the output. Rows and Cols are
// already clamped to the matrix edges.
type Tile struct {
	Row, Rows int
	Col, Cols int
}

// String returns e.g. "[8:12, 16:20]".
func (t Tile) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", t.Row, t.Row+t.Rows, t.Col, t.Col+t.Cols)
}

// Assignment is the static share of an M×P output visited by one worker:
// row blocks RowStart, RowStart+RowStride, ... below M, crossed with column
// tiles ColStart, ColStart+ColStride, ... below P.
//
// It is computed once per kernel invocation and never changes afterwards.
type Assignment struct {
	WorkerID   int
	NumWorkers int

	M, P      int
	BlockSize BlockSize
	TileWidth int

	RowStart, RowStride int
	ColStart, ColStride int
}

// Partition assigns worker workerID of numWorkers its share of an m×p
// output, tiled in row blocks of bs rows and column tiles of tileWidth
// columns.
//
// Workers are laid out as a grid of row lanes by column groups. With
// R = ceil(m/bs) row blocks, there are G = max(1, numWorkers/R) column
// groups and L = min(numWorkers, R) row lanes. Worker w < L*G walks row
// lane w mod L, i.e. row blocks starting at (w mod L)*bs with stride bs*L,
// over column group w / L, i.e. tiles starting at (w / L)*tileWidth with
// stride tileWidth*G. Workers sharing a row block therefore interleave over
// disjoint column tiles. When numWorkers ≤ R this is the plain round-robin
// row split: row blocks start at w*bs with stride bs*numWorkers and every
// worker sweeps all columns.
//
// Workers left over (w ≥ L*G) are idle: their RowStart is m and Tiles
// yields nothing.
//
// Over all workerID in [0, numWorkers) the tiles cover every output element
// exactly once. m, p, tileWidth and numWorkers must be positive.
func Partition(m, p int, bs BlockSize, tileWidth, numWorkers, workerID int) Assignment {
	rowBlocks := CeilDiv(m, int(bs))
	groups := max(1, numWorkers/rowBlocks)
	lanes := min(numWorkers, rowBlocks)

	a := Assignment{
		WorkerID:   workerID,
		NumWorkers: numWorkers,
		M:          m,
		P:          p,
		BlockSize:  bs,
		TileWidth:  tileWidth,
		RowStride:  int(bs) * lanes,
		ColStride:  tileWidth * groups,
	}
	if workerID >= lanes*groups {
		a.RowStart = m
		a.ColStart = p
		return a
	}
	a.RowStart = (workerID % lanes) * int(bs)
	a.ColStart = (workerID / lanes) * tileWidth
	return a
}

// Idle reports whether the worker has no tiles to compute.
func (a Assignment) Idle() bool {
	return a.RowStart >= a.M || a.ColStart >= a.P
}

// Tiles yields the worker's tiles, column tile outermost so that a kernel
// negotiates the vector length once per column tile and reuses it for all
// of its row blocks.
func (a Assignment) Tiles() iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		if a.Idle() {
			return
		}
		bs := int(a.BlockSize)
		for col := a.ColStart; col < a.P; col += a.ColStride {
			cols := min(a.P-col, a.TileWidth)
			for row := a.RowStart; row < a.M; row += a.RowStride {
				if !yield(Tile{Row: row, Rows: min(a.M-row, bs), Col: col, Cols: cols}) {
					return
				}
			}
		}
	}
}

// NumTiles returns how many tiles Tiles yields.
func (a Assignment) NumTiles() int {
	if a.Idle() {
		return 0
	}
	return CeilDiv(a.M-a.RowStart, a.RowStride) * CeilDiv(a.P-a.ColStart, a.ColStride)
}

// String describes the assignment for logging.
func (a Assignment) String() string {
	return fmt.Sprintf("worker %d/%d: rows %d+%d·k, cols %d+%d·k (%s, tile %d)",
		a.WorkerID, a.NumWorkers, a.RowStart, a.RowStride, a.ColStart, a.ColStride, a.BlockSize, a.TileWidth)
}
