//go:build arm64

package hwy

import "golang.org/x/sys/cpu"

func init() {
	// ARM64 (AArch64) always has NEON (ASIMD) available.
	// SVE implementations may be wider, but the vector length is only
	// readable from inside the SVE instruction set, so we stay at 128 bits
	// and let HWY_VLEN override.
	if cpu.ARM64.HasASIMD {
		detectedVLEN, detectedName = 128, "neon"
	}
	if cpu.ARM64.HasSVE {
		detectedName = "sve"
	}
}
