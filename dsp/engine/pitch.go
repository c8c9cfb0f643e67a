package engine

import (
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/effects/pitch"
)

// Pitch adapts pitch.Detector. The block passes through unchanged and the
// detected frequency is reported through the side channel.
type Pitch struct {
	det *pitch.Detector
}

// NewPitch returns an unconfigured pitch adapter.
func NewPitch() *Pitch {
	return &Pitch{}
}

// Kind implements Adapter.
func (a *Pitch) Kind() Kind { return KindPitch }

// Configure implements Adapter.
func (a *Pitch) Configure(cfg Config) error {
	det, err := pitch.NewDetector(cfg.SampleRate, cfg.BlockSize)
	if err != nil {
		return fmt.Errorf("configure pitch engine: %w", err)
	}
	if err := det.SetPowerThreshold(cfg.Param(ParamPowerThreshold, pitch.DefaultPowerThreshold)); err != nil {
		return fmt.Errorf("configure pitch engine: %w", err)
	}
	if err := det.SetClarityThreshold(cfg.Param(ParamClarityThreshold, pitch.DefaultClarityThreshold)); err != nil {
		return fmt.Errorf("configure pitch engine: %w", err)
	}
	a.det = det
	return nil
}

// Run implements Adapter.
func (a *Pitch) Run(block []float32, side *SideChannel) {
	if a.det == nil {
		return
	}
	side.Pitch = a.det.Detect(block)
}

// SetParameter implements Adapter.
func (a *Pitch) SetParameter(p Parameter, value float64) error {
	if err := Validate(KindPitch, p, value); err != nil {
		return err
	}
	if a.det == nil {
		return ErrNotConfigured
	}
	switch p {
	case ParamPowerThreshold:
		return a.det.SetPowerThreshold(value)
	case ParamClarityThreshold:
		return a.det.SetClarityThreshold(value)
	default:
		return ErrUnsupportedParameter
	}
}

// Close implements Adapter.
func (a *Pitch) Close() error {
	a.det = nil
	return nil
}
