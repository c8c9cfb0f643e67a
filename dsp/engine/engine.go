// Package engine is the boundary between the quantum/block adaptation
// layer and the block engines it drives.
//
// An Adapter owns one engine handle. The adaptation layer calls Configure
// once per session on the control side, Run once per full block on the
// audio side and SetParameter between two blocks. Run never allocates.
package engine

import (
	"errors"
	"math"
)

// Kind distinguishes the two adapter variants the adaptation layer knows
// about.
type Kind int

const (
	// KindPitch analyses the block and passes it through unchanged.
	KindPitch Kind = iota
	// KindEffect processes the block in place.
	KindEffect
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPitch:
		return "pitch"
	case KindEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// DefaultBlockSize returns the block size a session uses for kind when
// none is requested: 1024 samples for pitch analysis, 128 for effects.
func DefaultBlockSize(k Kind) int {
	if k == KindPitch {
		return 1024
	}
	return 128
}

var (
	// ErrNotConfigured is returned by adapter calls that need an engine
	// handle before Configure succeeded.
	ErrNotConfigured = errors.New("engine: not configured")
	// ErrUnknownEngine is returned for engine names missing from a Registry.
	ErrUnknownEngine = errors.New("engine: unknown engine")
	// ErrUnsupportedParameter is returned when a parameter does not apply
	// to an adapter kind, or when a parameter name cannot be parsed.
	ErrUnsupportedParameter = errors.New("engine: unsupported parameter")
)

// Config is the session configuration an adapter is created from.
type Config struct {
	SampleRate float64
	BlockSize  int
	// Params holds initial parameter values. Missing entries use the
	// engine defaults.
	Params map[Parameter]float64
}

// Param returns the initial value of p, or def if it is missing or not
// finite.
func (c Config) Param(p Parameter, def float64) float64 {
	if c.Params == nil {
		return def
	}
	v, ok := c.Params[p]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// SideChannel carries per-block results next to the audio.
type SideChannel struct {
	// Pitch is the detected frequency in Hz; 0 means no pitch.
	Pitch float32
	// Levels holds input and output RMS when HasLevels is set.
	Levels    [2]float32
	HasLevels bool
}

// Reset clears all results.
func (s *SideChannel) Reset() {
	*s = SideChannel{}
}

// Adapter is the single point of contact with one engine.
type Adapter interface {
	// Kind reports the adapter variant.
	Kind() Kind
	// Configure creates the engine handle, replacing any previous one.
	Configure(cfg Config) error
	// Run processes exactly one block. Effect adapters rewrite block in
	// place; pitch adapters leave it untouched.
	Run(block []float32, side *SideChannel)
	// SetParameter changes a live parameter. It does not allocate.
	SetParameter(p Parameter, value float64) error
	// Close releases the engine handle.
	Close() error
}
