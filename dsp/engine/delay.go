package engine

import (
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/effects"
)

// Delay adapts effects.Delay. The block is processed in place and its
// input and output RMS are reported through the side channel.
type Delay struct {
	fx *effects.Delay
}

// NewDelay returns an unconfigured delay adapter.
func NewDelay() *Delay {
	return &Delay{}
}

// Kind implements Adapter.
func (a *Delay) Kind() Kind { return KindEffect }

// Configure implements Adapter.
func (a *Delay) Configure(cfg Config) error {
	if cfg.BlockSize <= 0 {
		return fmt.Errorf("configure delay engine: block size must be > 0: %d", cfg.BlockSize)
	}
	fx, err := effects.NewDelay(cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("configure delay engine: %w", err)
	}
	if err := fx.SetTime(cfg.Param(ParamDelayLength, effects.DefaultDelayTimeSeconds)); err != nil {
		return fmt.Errorf("configure delay engine: %w", err)
	}
	if err := fx.SetMix(cfg.Param(ParamWetAmount, effects.DefaultDelayMix)); err != nil {
		return fmt.Errorf("configure delay engine: %w", err)
	}
	if err := fx.SetFeedback(cfg.Param(ParamFeedback, effects.DefaultDelayFeedback)); err != nil {
		return fmt.Errorf("configure delay engine: %w", err)
	}
	a.fx = fx
	return nil
}

// Run implements Adapter.
func (a *Delay) Run(block []float32, side *SideChannel) {
	if a.fx == nil {
		return
	}
	in, out := a.fx.ProcessBlock(block)
	side.Levels = [2]float32{in, out}
	side.HasLevels = true
}

// SetParameter implements Adapter. Delay length changes glide instead of
// jumping.
func (a *Delay) SetParameter(p Parameter, value float64) error {
	if err := Validate(KindEffect, p, value); err != nil {
		return err
	}
	if a.fx == nil {
		return ErrNotConfigured
	}
	switch p {
	case ParamWetAmount:
		return a.fx.SetMix(value)
	case ParamFeedback:
		return a.fx.SetFeedback(value)
	case ParamDelayLength:
		return a.fx.SetTargetTime(value)
	default:
		return ErrUnsupportedParameter
	}
}

// Close implements Adapter.
func (a *Delay) Close() error {
	a.fx = nil
	return nil
}
