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

// Package tiling holds the pieces shared by the blocked kernels in
// hwy/contrib: the register-blocking policy, the static work partition
// across cooperating workers, and the register-resident accumulator set.
//
// A kernel invocation on worker w of n looks like:
//
//	bs := tiling.SelectBlockSize(m, n)
//	tw := u.SetVL(sew, tiling.Grouping(bs, m, n), p)   // tile width
//	acc := tiling.NewAccumulator[T](bs, tw)
//	for tile := range tiling.Partition(m, p, bs, tw, n, w).Tiles() {
//	    u.SetVL(sew, lmul, tile.Cols)                  // clamp right edge
//	    acc.Reset(u)
//	    ... multiply-accumulate into acc.Lane(r) ...
//	    acc.Drain(u, c[tile.Row*p+tile.Col:], p, tile.Rows)
//	}
//
// Partitions computed for different workers of the same invocation never
// share an output element, so the kernels write their outputs without
// synchronization.
package tiling
