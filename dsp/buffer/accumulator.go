package buffer

import (
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/core"
)

// Accumulator is a block-sized staging buffer with a valid-sample count.
type Accumulator struct {
	samples []float32
	count   int
}

// NewAccumulator returns an empty accumulator holding exactly capacity samples.
func NewAccumulator(capacity int) (*Accumulator, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("accumulator capacity must be > 0: %d", capacity)
	}
	return &Accumulator{samples: make([]float32, capacity)}, nil
}

// AccumulatorFromSlice wraps buf as backing storage without copying.
// The capacity is len(buf) and the accumulator starts empty.
func AccumulatorFromSlice(buf []float32) *Accumulator {
	return &Accumulator{samples: buf}
}

// Samples returns the whole backing slice, including invalid tail samples.
func (a *Accumulator) Samples() []float32 { return a.samples }

// Cap returns the block size the accumulator fills up to.
func (a *Accumulator) Cap() int { return len(a.samples) }

// Len returns the number of valid samples currently held.
func (a *Accumulator) Len() int { return a.count }

// Free returns how many samples can be appended before the buffer is full.
func (a *Accumulator) Free() int { return len(a.samples) - a.count }

// Full reports whether a complete block is ready.
func (a *Accumulator) Full() bool { return a.count > 0 && a.count == len(a.samples) }

// Append copies samples behind the valid region.
//
// The caller must never append more than Free() samples; doing so panics.
func (a *Accumulator) Append(samples []float32) {
	if len(samples) > a.Free() {
		panic(fmt.Sprintf("buffer: accumulator overflow: count=%d append=%d capacity=%d",
			a.count, len(samples), len(a.samples)))
	}
	copy(a.samples[a.count:], samples)
	a.count += len(samples)
}

// Block returns the first Cap() samples. Only meaningful when Full.
func (a *Accumulator) Block() []float32 { return a.samples }

// Consume drops the n oldest samples and moves the remaining valid samples
// to the front.
func (a *Accumulator) Consume(n int) {
	if n < 0 || n > a.count {
		panic(fmt.Sprintf("buffer: accumulator consume %d of %d", n, a.count))
	}
	rest := a.count - n
	copy(a.samples[:rest], a.samples[n:a.count])
	a.count = rest
}

// Reset discards all valid samples.
func (a *Accumulator) Reset() {
	core.Zero(a.samples)
	a.count = 0
}
