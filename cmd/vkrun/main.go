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

// Command vkrun runs one kernel on random inputs, checks the result against
// a reference implementation and reports the timing.
//
// Usage:
//
//	vkrun -kernel matmul -m 64 -n 64 -p 64 -workers 4
//	vkrun -kernel conv3d -ch 3 -m 32 -p 32 -fsz 7 -vlen 512
//	vkrun -kernel fft -nfft 4096 -workers 8 -v 2
//
// The vector width defaults to the one detected for this machine
// (overridable with HWY_VLEN). -v 2 logs the blocking plan of every run.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"k8s.io/klog/v2"
)

var (
	kernel  = flag.String("kernel", "matmul", "Kernel to run ("+strings.Join(kernelNames(), ",")+")")
	dimM    = flag.Int("m", 64, "Rows of the output")
	dimN    = flag.Int("n", 64, "Reduction length (matmul)")
	dimP    = flag.Int("p", 64, "Columns of the output")
	chans   = flag.Int("ch", 3, "Input channels (conv3d)")
	fsz     = flag.Int("fsz", 3, "Filter size (conv2d, conv3d)")
	nfft    = flag.Int("nfft", 1024, "Transform size, a power of two (fft)")
	workers = flag.Int("workers", 1, "Number of cooperating workers, 0 for GOMAXPROCS")
	vlen    = flag.Int("vlen", 0, "Simulated vector register width in bits, 0 for the hardware width")
	seed    = flag.Int64("seed", 1, "Random seed for the inputs")
	tol     = flag.Float64("tol", 0, "Absolute tolerance of the check, 0 for the kernel's default")
	repeat  = flag.Int("repeat", 1, "Number of timed runs")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg := Config{
		Kernel:     *kernel,
		M:          *dimM,
		N:          *dimN,
		P:          *dimP,
		Channels:   *chans,
		FilterSize: *fsz,
		FFTSize:    *nfft,
		Workers:    *workers,
		VLEN:       *vlen,
		Seed:       *seed,
		Tolerance:  *tol,
		Repeat:     *repeat,
	}
	report, err := Run(cfg)
	if err != nil {
		klog.Exitf("vkrun: %+v", err)
	}
	fmt.Fprintln(os.Stdout, report)
	klog.Flush()
}
