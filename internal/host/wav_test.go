package host

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-blockstream/internal/testutil"
)

func TestWAVRoundTrip(t *testing.T) {
	for _, depth := range []int{16, 24, 32} {
		path := filepath.Join(t.TempDir(), "tone.wav")
		want := testutil.DeterministicSine[float32](440, 22050, 0.7, 2205)

		if err := WriteWAV(path, want, 22050, depth); err != nil {
			t.Fatalf("%d bit: WriteWAV: %v", depth, err)
		}
		got, sr, err := ReadWAV(path)
		if err != nil {
			t.Fatalf("%d bit: ReadWAV: %v", depth, err)
		}
		if sr != 22050 {
			t.Errorf("%d bit: sample rate = %d, want 22050", depth, sr)
		}
		testutil.RequireSliceNearlyEqual(t, got, want, 1e-4)
	}
}

func TestEncodeWAVClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWAV(path, []float32{2, -2, 0.5}, 8000, 0); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	got, _, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float32{1, -1, 0.5}, 1e-4)
}

func TestEncodeWAVRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := WriteWAV(path, nil, 0, 16); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if err := WriteWAV(path, nil, 44100, 12); err == nil {
		t.Error("expected error for 12 bit")
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 16000},
		Data:           []int{16384, 0, -16384, -16384, 8192, 24576},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, sr, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if sr != 16000 {
		t.Errorf("sample rate = %d, want 16000", sr)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float32{0.25, -0.5, 0.5}, 1e-6)
}

func TestDecodeWAVInvalid(t *testing.T) {
	if _, _, err := DecodeWAV(bytes.NewReader([]byte("not a wav file at all"))); err == nil {
		t.Error("expected error")
	}
	if _, _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}
