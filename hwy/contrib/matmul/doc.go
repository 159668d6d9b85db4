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

// Package matmul provides a blocked, vector-length-adaptive matrix
// multiplication for variable-length vector units.
//
// For every column tile the kernel negotiates the vector length with the
// unit, then streams 2, 4 or 8 rows of A against the B tile, holding one
// accumulator register per output row for the whole reduction. Loads of
// the next B row are pipelined against the multiply-accumulates of the
// current one. Several workers can share one multiplication: each gets a
// static, disjoint share of the output, so no locks are taken.
//
// Example usage:
//
//	// C = A * B where A is MxN, B is NxP, C is MxP
//	a := make([]int32, M*N) // row-major
//	b := make([]int32, N*P) // row-major
//	c := make([]int32, M*P) // output, row-major
//
//	matmul.MatMul(c, a, b, M, N, P)
//
// Multi-worker, on a persistent pool:
//
//	pool := workerpool.New(4)
//	defer pool.Close()
//	matmul.ParallelMatMul(pool, c, a, b, M, N, P)
//
// Or, driving the workers yourself (each with its own VectorUnit):
//
//	tileWidth := matmul.MatMulWorker(u, c, a, b, M, N, P, workerID, numWorkers)
package matmul
