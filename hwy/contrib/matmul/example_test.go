// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

package matmul_test

import (
	"fmt"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/matmul"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
)

func ExampleMatMul() {
	// 2x3 * 3x2
	a := []float32{1, 2, 3, 4, 5, 6}
	b := []float32{7, 8, 9, 10, 11, 12}
	c := make([]float32, 4)
	matmul.MatMul(c, a, b, 2, 3, 2)
	fmt.Println(c)
	// Output: [58 64 139 154]
}

func ExampleMatMulOn() {
	// A 64-bit register holds two int32 lanes at M1. Two rows on a single
	// worker use 2-row blocks grouped M2, so tiles are 4 columns wide.
	u := hwy.NewVectorUnit(64)
	a := []int32{1, 0, 0, 1}
	b := make([]int32, 2*10)
	for i := range b {
		b[i] = int32(i)
	}
	c := make([]int32, 2*10)
	tileWidth := matmul.MatMulOn(u, c, a, b, 2, 2, 10)
	fmt.Println(tileWidth, c[:10])
	// Output: 4 [0 1 2 3 4 5 6 7 8 9]
}

func ExampleParallelMatMul() {
	pool := workerpool.New(4)
	defer pool.Close()

	const n = 4
	a := make([]int32, n*n)
	b := make([]int32, n*n)
	for i := range n {
		a[i*n+i] = 3
	}
	for i := range b {
		b[i] = 1
	}
	c := make([]int32, n*n)
	matmul.ParallelMatMul(pool, c, a, b, n, n, n)
	fmt.Println(c[:n])
	// Output: [3 3 3 3]
}
