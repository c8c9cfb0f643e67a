package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-blockstream/dsp/core"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine[T core.Sample](freqHz, sampleRate, amplitude float64, length int) []T {
	out := make([]T, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = T(amplitude * math.Sin(step*float64(i)))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise[T core.Sample](seed int64, amplitude float64, length int) []T {
	out := make([]T, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = T((rng.Float64()*2 - 1) * amplitude)
	}
	return out
}

// Ramp returns length samples counting up from start.
func Ramp[T core.Sample](start, length int) []T {
	out := make([]T, length)
	for i := range out {
		out[i] = T(start + i)
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse[T core.Sample](length, pos int) []T {
	out := make([]T, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC[T core.Sample](value float64, length int) []T {
	out := make([]T, length)
	for i := range out {
		out[i] = T(value)
	}
	return out
}

// Chunks splits signal into consecutive slices of size n; the last chunk
// may be shorter. The chunks alias signal.
func Chunks[T core.Sample](signal []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	out := make([][]T, 0, (len(signal)+n-1)/n)
	for len(signal) > 0 {
		k := min(n, len(signal))
		out = append(out, signal[:k])
		signal = signal[k:]
	}
	return out
}
