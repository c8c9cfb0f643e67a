package pitch

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-blockstream/dsp/core"
)

const (
	// DefaultPowerThreshold is the minimum sum of squares a block needs
	// before a pitch is searched for.
	DefaultPowerThreshold = 5.0
	// DefaultClarityThreshold is the minimum normalized correlation of the
	// chosen peak.
	DefaultClarityThreshold = 0.6

	// keyMaximumCutoff selects the first key maximum within this fraction
	// of the highest one.
	keyMaximumCutoff = 0.9
)

// Detector estimates the fundamental frequency of a block with the McLeod
// pitch method.
//
// The normalized square difference function (NSDF) is built from an
// FFT autocorrelation zero-padded to at least twice the block size, so no
// circular wrap-around leaks into the lags. All scratch is allocated by
// NewDetector; Detect does not allocate.
type Detector struct {
	sampleRate       float64
	size             int
	powerThreshold   float64
	clarityThreshold float64

	plan     *algofft.Plan[complex128]
	spectrum []complex128
	signal   []float64
	re       []float64
	im       []float64
	power    []float64
	acf      []float64
	nsdf     []float64
	peaks    []int
}

// NewDetector returns a detector for blocks of size samples.
func NewDetector(sampleRate float64, size int) (*Detector, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("pitch sample rate must be > 0: %f", sampleRate)
	}
	if size < 4 {
		return nil, fmt.Errorf("pitch block size must be >= 4: %d", size)
	}

	fftSize := core.NextPowerOfTwo(2 * size)
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("pitch fft plan: %w", err)
	}

	return &Detector{
		sampleRate:       sampleRate,
		size:             size,
		powerThreshold:   DefaultPowerThreshold,
		clarityThreshold: DefaultClarityThreshold,
		plan:             plan,
		spectrum:         make([]complex128, fftSize),
		signal:           make([]float64, size),
		re:               make([]float64, fftSize),
		im:               make([]float64, fftSize),
		power:            make([]float64, fftSize),
		acf:              make([]float64, size),
		nsdf:             make([]float64, size),
		peaks:            make([]int, 0, size/2+1),
	}, nil
}

// SampleRate returns sample rate in Hz.
func (d *Detector) SampleRate() float64 { return d.sampleRate }

// Size returns the analysis block size.
func (d *Detector) Size() int { return d.size }

// PowerThreshold returns the minimum block energy.
func (d *Detector) PowerThreshold() float64 { return d.powerThreshold }

// ClarityThreshold returns the minimum peak clarity.
func (d *Detector) ClarityThreshold() float64 { return d.clarityThreshold }

// SetPowerThreshold sets the minimum sum of squares for detection.
func (d *Detector) SetPowerThreshold(v float64) error {
	if v < 0 || !core.IsFinite(v) {
		return fmt.Errorf("pitch power threshold must be >= 0: %f", v)
	}
	d.powerThreshold = v
	return nil
}

// SetClarityThreshold sets the minimum clarity in [0, 1].
func (d *Detector) SetClarityThreshold(v float64) error {
	if err := core.CheckRange("pitch clarity threshold", v, 0, 1); err != nil {
		return err
	}
	d.clarityThreshold = v
	return nil
}

// Detect returns the detected frequency in Hz, or 0 when the block is too
// quiet or has no clear periodicity. Samples beyond Size are ignored. The
// lowest detectable frequency is 2*SampleRate/Size.
func (d *Detector) Detect(block []float32) float32 {
	n := core.Widen(d.signal, block)
	if n < 4 {
		return 0
	}
	x := d.signal[:n]

	energy := 0.0
	for _, v := range x {
		energy += v * v
	}
	if energy < d.powerThreshold || energy == 0 {
		return 0
	}

	if !d.autocorrelate(x, energy) {
		return 0
	}
	d.normalize(x, energy)

	tau, clarity := d.pickPeak(n)
	if tau <= 0 || clarity < d.clarityThreshold {
		return 0
	}
	return float32(d.sampleRate / tau)
}

// autocorrelate fills acf[:len(x)] with the linear autocorrelation of x,
// scaled so that acf[0] equals energy.
func (d *Detector) autocorrelate(x []float64, energy float64) bool {
	for i := range d.spectrum {
		if i < len(x) {
			d.spectrum[i] = complex(x[i], 0)
		} else {
			d.spectrum[i] = 0
		}
	}
	if err := d.plan.Forward(d.spectrum, d.spectrum); err != nil {
		return false
	}

	for i, c := range d.spectrum {
		d.re[i] = real(c)
		d.im[i] = imag(c)
	}
	vecmath.Power(d.power, d.re, d.im)
	for i, p := range d.power {
		d.spectrum[i] = complex(p, 0)
	}

	if err := d.plan.Inverse(d.spectrum, d.spectrum); err != nil {
		return false
	}

	r0 := real(d.spectrum[0])
	if r0 <= 0 || !core.IsFinite(r0) {
		return false
	}
	for i := range x {
		d.re[i] = real(d.spectrum[i])
	}
	vecmath.ScaleBlock(d.acf[:len(x)], d.re[:len(x)], energy/r0)
	return true
}

// normalize turns acf into the NSDF n'(tau) = 2 r(tau) / m(tau), with m
// updated incrementally from the block edges.
func (d *Detector) normalize(x []float64, energy float64) {
	n := len(x)
	m := 2 * energy
	for tau := 0; tau < n; tau++ {
		if m > 0 {
			d.nsdf[tau] = 2 * d.acf[tau] / m
		} else {
			d.nsdf[tau] = 0
		}
		m -= x[tau]*x[tau] + x[n-1-tau]*x[n-1-tau]
	}
}

// pickPeak collects one key maximum per positive lobe of the NSDF and
// returns the interpolated lag and clarity of the first one that reaches
// keyMaximumCutoff of the highest.
func (d *Detector) pickPeak(n int) (float64, float64) {
	// Lags past n/2 overlap too few samples to be trusted.
	nsdf := d.nsdf[:n/2+1]
	n = len(nsdf)
	d.peaks = d.peaks[:0]

	tau := 1
	for tau < n && nsdf[tau] > 0 {
		tau++
	}

	best := -1
	for tau < n {
		for tau < n && nsdf[tau] <= 0 {
			tau++
		}
		if tau >= n {
			break
		}
		peak := tau
		for tau < n && nsdf[tau] > 0 {
			if nsdf[tau] > nsdf[peak] {
				peak = tau
			}
			tau++
		}
		d.peaks = append(d.peaks, peak)
		if best < 0 || nsdf[peak] > nsdf[best] {
			best = peak
		}
	}
	if best < 0 {
		return 0, 0
	}

	cutoff := keyMaximumCutoff * nsdf[best]
	chosen := best
	for _, p := range d.peaks {
		if nsdf[p] >= cutoff {
			chosen = p
			break
		}
	}

	return interpolate(nsdf, chosen)
}

// interpolate fits a parabola through the peak and its neighbours.
func interpolate(y []float64, p int) (float64, float64) {
	if p <= 0 || p >= len(y)-1 {
		return float64(p), y[p]
	}
	a, b, c := y[p-1], y[p], y[p+1]
	den := a - 2*b + c
	if den == 0 {
		return float64(p), b
	}
	delta := 0.5 * (a - c) / den
	return float64(p) + delta, b - 0.25*(a-c)*delta
}
