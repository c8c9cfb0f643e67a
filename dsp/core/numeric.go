package core

import (
	"fmt"
	"math"
)

const denormalFloor = 1e-30

// Clamp limits value to [lo, hi]. Swapped bounds are reordered.
func Clamp(value, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Min(math.Max(value, lo), hi)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// CheckRange returns an error naming the quantity when value is not a finite
// number inside [min, max].
func CheckRange(name string, value, min, max float64) error {
	if !IsFinite(value) || value < min || value > max {
		return fmt.Errorf("%s must be in [%g, %g]: %g", name, min, max, value)
	}
	return nil
}

// FlushDenormals returns 0 for magnitudes below 1e-30 and x otherwise.
func FlushDenormals(x float64) float64 {
	if math.Abs(x) < denormalFloor {
		return 0
	}
	return x
}

// LinearToDB converts an RMS or peak amplitude to dBFS. Zero maps to -Inf,
// negative input to NaN.
func LinearToDB(linear float64) float64 {
	switch {
	case linear < 0:
		return math.NaN()
	case linear == 0:
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}
