//go:build !amd64 && !arm64

package hwy

func init() {
	// Other architectures (riscv64 included) run the scalar model at the
	// default width. riscv64 exposes no vlenb through x/sys/cpu, so the real
	// width has to come from HWY_VLEN.
	detectedVLEN, detectedName = DefaultVLEN, "scalar"
}
