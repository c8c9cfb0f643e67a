package effects

import (
	"math"
	"testing"
)

func TestNewDelayValidation(t *testing.T) {
	for _, sr := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewDelay(sr); err == nil {
			t.Fatalf("expected error for sample rate %v", sr)
		}
	}
}

func TestDelayDefaults(t *testing.T) {
	d, err := NewDelay(44100)
	if err != nil {
		t.Fatalf("NewDelay: %v", err)
	}
	if d.Time() != 0.2 || d.Feedback() != 0.5 || d.Mix() != 0.5 {
		t.Fatalf("defaults: time=%v feedback=%v mix=%v", d.Time(), d.Feedback(), d.Mix())
	}
	if got, want := d.CurrentDelaySamples(), 0.2*44100; math.Abs(got-want) > 1e-9 {
		t.Fatalf("CurrentDelaySamples() = %v, want %v", got, want)
	}
}

func TestDelaySetterValidation(t *testing.T) {
	d, err := NewDelay(48000)
	if err != nil {
		t.Fatalf("NewDelay: %v", err)
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{name: "time too short", fn: func() error { return d.SetTime(0) }},
		{name: "time too long", fn: func() error { return d.SetTargetTime(2.5) }},
		{name: "feedback negative", fn: func() error { return d.SetFeedback(-0.1) }},
		{name: "feedback unstable", fn: func() error { return d.SetFeedback(1) }},
		{name: "mix above one", fn: func() error { return d.SetMix(1.5) }},
		{name: "mix nan", fn: func() error { return d.SetMix(math.NaN()) }},
		{name: "sample rate", fn: func() error { return d.SetSampleRate(-48000) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// TestDelay_SetTargetTime_RampsGradually verifies that calling SetTargetTime
// causes the effective delay to change incrementally, not in a single jump.
func TestDelay_SetTargetTime_RampsGradually(t *testing.T) {
	const sampleRate = 1000.0

	d, err := NewDelay(sampleRate)
	if err != nil {
		t.Fatalf("NewDelay: %v", err)
	}

	if err := d.SetTime(0.25); err != nil {
		t.Fatalf("SetTime: %v", err)
	}

	startSamples := d.CurrentDelaySamples()

	if err := d.SetTargetTime(0.01); err != nil {
		t.Fatalf("SetTargetTime: %v", err)
	}

	buf := make([]float64, 10)
	d.ProcessInPlace(buf)

	current := d.CurrentDelaySamples()
	if current >= startSamples {
		t.Errorf("delay did not ramp: current=%v, start=%v", current, startSamples)
	}

	targetSamples := 0.01 * sampleRate
	if current <= targetSamples {
		t.Errorf("delay reached target too fast: current=%v, target=%v", current, targetSamples)
	}
}

// TestDelay_SetTargetTime_ConvergesToTarget verifies that after processing
// enough samples the effective delay equals the requested target.
func TestDelay_SetTargetTime_ConvergesToTarget(t *testing.T) {
	const sampleRate = 1000.0

	d, err := NewDelay(sampleRate)
	if err != nil {
		t.Fatalf("NewDelay: %v", err)
	}

	if err := d.SetTime(0.25); err != nil {
		t.Fatalf("SetTime: %v", err)
	}

	targetSeconds := 0.01
	if err := d.SetTargetTime(targetSeconds); err != nil {
		t.Fatalf("SetTargetTime: %v", err)
	}

	buf := make([]float64, 500)
	d.ProcessInPlace(buf)

	want := targetSeconds * sampleRate
	if got := d.CurrentDelaySamples(); math.Abs(got-want) > 0.5 {
		t.Errorf("did not converge: got=%v, want=%v", got, want)
	}
}

func TestDelay_SetTime_SnapsImmediately(t *testing.T) {
	const sampleRate = 1000.0

	d, err := NewDelay(sampleRate)
	if err != nil {
		t.Fatalf("NewDelay: %v", err)
	}

	if err := d.SetTime(0.25); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	if err := d.SetTime(0.01); err != nil {
		t.Fatalf("SetTime 0.01: %v", err)
	}

	if got, want := d.CurrentDelaySamples(), 10.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("SetTime did not snap: got=%v, want=%v", got, want)
	}
}

func TestDelayImpulseEchoes(t *testing.T) {
	const sampleRate = 1000.0

	d, err := NewDelay(sampleRate)
	if err != nil {
		t.Fatalf("NewDelay: %v", err)
	}
	if err := d.SetTime(0.01); err != nil {
		t.Fatal(err)
	}
	if err := d.SetFeedback(0.5); err != nil {
		t.Fatal(err)
	}
	if err := d.SetMix(1); err != nil {
		t.Fatal(err)
	}

	buf := make([]float64, 40)
	buf[0] = 1
	d.ProcessInPlace(buf)

	if math.Abs(buf[0]) > 1e-12 {
		t.Fatalf("fully wet output at t=0: got %v want 0", buf[0])
	}
	if math.Abs(buf[10]-1) > 1e-9 {
		t.Fatalf("first echo: got %v want 1", buf[10])
	}
	if math.Abs(buf[20]-0.5) > 1e-9 {
		t.Fatalf("second echo: got %v want 0.5", buf[20])
	}
}

func TestDelayProcessInPlaceMatchesSample(t *testing.T) {
	d1, err := NewDelay(48000)
	if err != nil {
		t.Fatalf("NewDelay() error = %v", err)
	}

	d2, err := NewDelay(48000)
	if err != nil {
		t.Fatalf("NewDelay() error = %v", err)
	}

	input := make([]float64, 128)
	for i := range input {
		input[i] = math.Sin(2 * math.Pi * float64(i) / 29)
	}

	want := make([]float64, len(input))
	copy(want, input)

	for i := range want {
		want[i] = d1.ProcessSample(want[i])
	}

	got := make([]float64, len(input))
	copy(got, input)
	d2.ProcessInPlace(got)

	for i := range got {
		if diff := math.Abs(got[i] - want[i]); diff > 1e-12 {
			t.Fatalf("sample %d mismatch: got=%g want=%g diff=%g", i, got[i], want[i], diff)
		}
	}
}

func TestDelayProcessBlockLevels(t *testing.T) {
	d, err := NewDelay(1000)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetMix(0); err != nil {
		t.Fatal(err)
	}

	buf := make([]float32, 64)
	for i := range buf {
		buf[i] = 0.5
	}

	in, out := d.ProcessBlock(buf)
	if math.Abs(float64(in)-0.5) > 1e-6 {
		t.Fatalf("input level = %v, want 0.5", in)
	}
	if math.Abs(float64(out)-0.5) > 1e-6 {
		t.Fatalf("dry-only output level = %v, want 0.5", out)
	}
	for i, v := range buf {
		if v != 0.5 {
			t.Fatalf("buf[%d] = %v, want dry passthrough", i, v)
		}
	}

	if in, out := d.ProcessBlock(nil); in != 0 || out != 0 {
		t.Fatalf("empty block levels = (%v, %v), want zeros", in, out)
	}
}

func TestDelayResetClearsHistory(t *testing.T) {
	d, err := NewDelay(1000)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetTime(0.005); err != nil {
		t.Fatal(err)
	}
	_ = d.SetMix(1)

	buf := []float64{1, 1, 1, 1, 1}
	d.ProcessInPlace(buf)
	d.Reset()

	out := make([]float64, 10)
	d.ProcessInPlace(out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v after Reset, want 0", i, v)
		}
	}
}

func BenchmarkDelayProcessBlock(b *testing.B) {
	d, _ := NewDelay(48000)
	buf := make([]float32, 128)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		d.ProcessBlock(buf)
	}
}
