package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-blockstream/dsp/core"
	"github.com/cwbudde/algo-blockstream/dsp/delay"
)

// Delay defaults and limits.
const (
	DefaultDelayTimeSeconds = 0.2
	DefaultDelayFeedback    = 0.5
	DefaultDelayMix         = 0.5
	MinDelayTimeSeconds     = 0.001
	MaxDelayTimeSeconds     = 2.0
	MaxDelayFeedback        = 0.99
)

const (
	// Time constant of the delay-length smoother.
	delaySmoothingSeconds = 0.01
	delaySnapEpsilon      = 1e-6
)

// Delay is a feedback delay with dry/wet mix and a smoothed delay length.
//
// SetTime snaps the delay length immediately and is meant for static
// configuration. SetTargetTime glides towards the new length with a one-pole
// smoother so that live changes do not click.
type Delay struct {
	sampleRate   float64
	delaySeconds float64
	feedback     float64
	mix          float64

	line    *delay.Line
	current float64
	target  float64
	smooth  float64
}

// NewDelay creates a delay with practical defaults.
func NewDelay(sampleRate float64) (*Delay, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	d := &Delay{
		sampleRate:   sampleRate,
		delaySeconds: DefaultDelayTimeSeconds,
		feedback:     DefaultDelayFeedback,
		mix:          DefaultDelayMix,
	}
	if err := d.reconfigure(); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSampleRate updates sample rate. It reallocates the delay line and
// clears its history.
func (d *Delay) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	d.sampleRate = sampleRate
	return d.reconfigure()
}

// SetTime sets delay time in seconds without smoothing.
func (d *Delay) SetTime(seconds float64) error {
	if err := checkDelayTime(seconds); err != nil {
		return err
	}
	d.delaySeconds = seconds
	d.target = seconds * d.sampleRate
	d.current = d.target
	return nil
}

// SetTargetTime sets delay time in seconds; the effective length glides
// towards it while audio is processed.
func (d *Delay) SetTargetTime(seconds float64) error {
	if err := checkDelayTime(seconds); err != nil {
		return err
	}
	d.delaySeconds = seconds
	d.target = seconds * d.sampleRate
	return nil
}

// SetFeedback sets feedback amount in [0, 0.99].
func (d *Delay) SetFeedback(feedback float64) error {
	if err := core.CheckRange("delay feedback", feedback, 0, MaxDelayFeedback); err != nil {
		return err
	}
	d.feedback = feedback
	return nil
}

// SetMix sets wet amount in [0, 1].
func (d *Delay) SetMix(mix float64) error {
	if err := core.CheckRange("delay mix", mix, 0, 1); err != nil {
		return err
	}
	d.mix = mix
	return nil
}

// Reset clears delay state and snaps the length to its target.
func (d *Delay) Reset() {
	d.line.Reset()
	d.current = d.target
}

// ProcessSample processes one sample.
func (d *Delay) ProcessSample(input float64) float64 {
	if d.current != d.target {
		d.current += (d.target - d.current) * d.smooth
		if math.Abs(d.target-d.current) < delaySnapEpsilon {
			d.current = d.target
		}
	}

	delayed := d.line.ReadFractional(d.current)
	d.line.Write(core.FlushDenormals(input + delayed*d.feedback))

	return input*(1-d.mix) + delayed*d.mix
}

// ProcessInPlace applies delay to buf in place.
func (d *Delay) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = d.ProcessSample(buf[i])
	}
}

// ProcessBlock applies delay to a float32 block in place and returns the
// RMS level of the block before and after processing.
func (d *Delay) ProcessBlock(buf []float32) (inputLevel, outputLevel float32) {
	if len(buf) == 0 {
		return 0, 0
	}
	var inSq, outSq float64
	for i, x := range buf {
		in := float64(x)
		out := d.ProcessSample(in)
		inSq += in * in
		outSq += out * out
		buf[i] = float32(out)
	}
	n := float64(len(buf))
	return float32(mathSqrt(inSq / n)), float32(mathSqrt(outSq / n))
}

// SampleRate returns sample rate in Hz.
func (d *Delay) SampleRate() float64 { return d.sampleRate }

// Time returns the requested delay time in seconds.
func (d *Delay) Time() float64 { return d.delaySeconds }

// CurrentDelaySamples returns the effective, possibly still gliding, delay
// length in samples.
func (d *Delay) CurrentDelaySamples() float64 { return d.current }

// Feedback returns feedback amount in [0, 0.99].
func (d *Delay) Feedback() float64 { return d.feedback }

// Mix returns wet amount in [0, 1].
func (d *Delay) Mix() float64 { return d.mix }

func (d *Delay) reconfigure() error {
	size := int(math.Ceil(MaxDelayTimeSeconds*d.sampleRate)) + 4
	line, err := delay.New(size)
	if err != nil {
		return fmt.Errorf("delay line: %w", err)
	}
	d.line = line
	d.smooth = 1 - math.Exp(-1/(delaySmoothingSeconds*d.sampleRate))
	d.target = d.delaySeconds * d.sampleRate
	d.current = d.target
	return nil
}

func checkDelayTime(seconds float64) error {
	if seconds < MinDelayTimeSeconds || seconds > MaxDelayTimeSeconds || !core.IsFinite(seconds) {
		return fmt.Errorf("delay time must be in [%f, %f]: %f",
			MinDelayTimeSeconds, MaxDelayTimeSeconds, seconds)
	}
	return nil
}
