//go:build fastmath

package effects

import "github.com/meko-christian/algo-approx"

// mathSqrt computes sqrt(x) using fast approximation. Only used for level
// metering.
func mathSqrt(x float64) float64 {
	return approx.FastSqrt(x)
}
