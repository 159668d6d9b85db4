package hwy

import (
	"math/bits"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	// MinVLEN is the smallest vector register width accepted, in bits.
	MinVLEN = 32

	// MaxVLEN is the largest vector register width accepted, in bits.
	MaxVLEN = 65536

	// DefaultVLEN is used when no wider unit is detected. It matches the
	// 128-bit registers of SSE/NEON and the minimum VLEN of the V extension.
	DefaultVLEN = 128
)

var (
	hardwareOnce sync.Once
	hardwareVLEN int
	hardwareName string
)

// detectedVLEN and detectedName are set by init() in dispatch_*.go files.
var (
	detectedVLEN = DefaultVLEN
	detectedName = "scalar"
)

// HardwareVLEN returns the vector register width, in bits, used by
// NewHardwareVectorUnit.
//
// The HWY_VLEN environment variable takes precedence; otherwise the width
// detected for this CPU is used, or DefaultVLEN when HWY_NO_SIMD is set.
// An invalid HWY_VLEN is ignored.
func HardwareVLEN() int {
	hardwareOnce.Do(func() {
		env, envSet := os.LookupEnv("HWY_VLEN")
		hardwareVLEN, hardwareName = resolveVLEN(detectedVLEN, detectedName, NoSimdEnv(), env, envSet)
	})
	return hardwareVLEN
}

// resolveVLEN applies the HWY_NO_SIMD and HWY_VLEN overrides to the
// detected width.
func resolveVLEN(detected int, name string, noSimd bool, env string, envSet bool) (int, string) {
	vlen := detected
	if noSimd {
		vlen, name = DefaultVLEN, "scalar"
	}
	if envSet {
		if v, err := ParseVLEN(env); err == nil {
			vlen, name = v, "env"
		}
	}
	return vlen, name
}

// HardwareName returns a human-readable name for where HardwareVLEN came
// from. For example: "avx512", "neon", "env", "scalar".
func HardwareName() string {
	HardwareVLEN()
	return hardwareName
}

// NoSimdEnv checks if the HWY_NO_SIMD environment variable is set.
// When set, the detected width is ignored and DefaultVLEN is used.
func NoSimdEnv() bool {
	val := os.Getenv("HWY_NO_SIMD")
	if val == "" {
		return false
	}
	// Any non-empty value is considered true, but also parse as bool
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// ParseVLEN parses a vector register width in bits. It must be a power of
// two between MinVLEN and MaxVLEN.
func ParseVLEN(s string) (int, error) {
	vlen, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid VLEN %q", s)
	}
	if err := ValidateVLEN(vlen); err != nil {
		return 0, err
	}
	return vlen, nil
}

// ValidateVLEN returns an error if vlen is not a usable register width.
func ValidateVLEN(vlen int) error {
	if vlen < MinVLEN || vlen > MaxVLEN {
		return errors.Errorf("VLEN %d out of range [%d, %d]", vlen, MinVLEN, MaxVLEN)
	}
	if bits.OnesCount(uint(vlen)) != 1 {
		return errors.Errorf("VLEN %d is not a power of two", vlen)
	}
	return nil
}
