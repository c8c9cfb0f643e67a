package pitch

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-blockstream/internal/testutil"
)

func TestNewDetectorValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		size       int
	}{
		{name: "zero rate", sampleRate: 0, size: 1024},
		{name: "nan rate", sampleRate: math.NaN(), size: 1024},
		{name: "tiny block", sampleRate: 44100, size: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDetector(tt.sampleRate, tt.size); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDetectSine(t *testing.T) {
	const sampleRate = 44100.0

	tests := []struct {
		freq float64
		size int
	}{
		{freq: 440, size: 1024},
		{freq: 220, size: 2048},
		{freq: 1000, size: 1024},
		{freq: 330, size: 1000},
	}

	for _, tt := range tests {
		d, err := NewDetector(sampleRate, tt.size)
		if err != nil {
			t.Fatalf("NewDetector: %v", err)
		}
		block := testutil.DeterministicSine[float32](tt.freq, sampleRate, 0.5, tt.size)
		got := d.Detect(block)
		if math.Abs(float64(got)-tt.freq) > 2 {
			t.Errorf("Detect(%v Hz, N=%d) = %v", tt.freq, tt.size, got)
		}
	}
}

func TestDetectSilenceReturnsZero(t *testing.T) {
	d, err := NewDetector(44100, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Detect(make([]float32, 1024)); got != 0 {
		t.Fatalf("Detect(silence) = %v, want 0", got)
	}
}

func TestDetectPowerGate(t *testing.T) {
	d, err := NewDetector(44100, 1024)
	if err != nil {
		t.Fatal(err)
	}
	// Sum of squares is about 0.5 * 0.05^2 * 1024 = 1.28.
	quiet := testutil.DeterministicSine[float32](440, 44100, 0.05, 1024)
	if got := d.Detect(quiet); got != 0 {
		t.Fatalf("quiet block: got %v, want 0", got)
	}

	if err := d.SetPowerThreshold(1); err != nil {
		t.Fatal(err)
	}
	if got := d.Detect(quiet); math.Abs(float64(got)-440) > 2 {
		t.Fatalf("quiet block with lowered gate: got %v, want ~440", got)
	}
}

func TestDetectNoiseHasNoClearPitch(t *testing.T) {
	d, err := NewDetector(44100, 1024)
	if err != nil {
		t.Fatal(err)
	}
	noise := testutil.DeterministicNoise[float32](7, 1, 1024)
	if got := d.Detect(noise); got != 0 {
		t.Fatalf("Detect(noise) = %v, want 0", got)
	}
}

func TestDetectShortBlock(t *testing.T) {
	d, err := NewDetector(44100, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Detect([]float32{1, -1}); got != 0 {
		t.Fatalf("Detect(short) = %v, want 0", got)
	}
}

func TestDetectorThresholdSetters(t *testing.T) {
	d, err := NewDetector(48000, 512)
	if err != nil {
		t.Fatal(err)
	}
	if d.PowerThreshold() != DefaultPowerThreshold || d.ClarityThreshold() != DefaultClarityThreshold {
		t.Fatalf("defaults: power=%v clarity=%v", d.PowerThreshold(), d.ClarityThreshold())
	}
	if err := d.SetPowerThreshold(-1); err == nil {
		t.Fatal("expected error for negative power threshold")
	}
	if err := d.SetClarityThreshold(1.1); err == nil {
		t.Fatal("expected error for clarity above 1")
	}
	if err := d.SetClarityThreshold(0.8); err != nil {
		t.Fatal(err)
	}
	if d.ClarityThreshold() != 0.8 {
		t.Fatalf("ClarityThreshold() = %v, want 0.8", d.ClarityThreshold())
	}
}

func TestDetectDoesNotAllocate(t *testing.T) {
	d, err := NewDetector(44100, 1024)
	if err != nil {
		t.Fatal(err)
	}
	block := testutil.DeterministicSine[float32](440, 44100, 0.5, 1024)
	allocs := testing.AllocsPerRun(10, func() {
		d.Detect(block)
	})
	if allocs != 0 {
		t.Fatalf("Detect allocated %v times per run", allocs)
	}
}

func BenchmarkDetect1024(b *testing.B) {
	d, err := NewDetector(44100, 1024)
	if err != nil {
		b.Fatal(err)
	}
	block := testutil.DeterministicSine[float32](440, 44100, 0.5, 1024)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		d.Detect(block)
	}
}
