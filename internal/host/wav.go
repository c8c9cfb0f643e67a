package host

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-blockstream/dsp/core"
)

// DefaultBitDepth is the PCM bit depth WriteWAV uses for bitDepth 0.
const DefaultBitDepth = 16

// DecodeWAV decodes a PCM WAV stream into mono float32 samples in [-1, 1].
// Multichannel input is averaged down to one channel.
func DecodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("host: invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("host: decode wav: %w", err)
	}
	if buf == nil {
		return nil, 0, errors.New("host: empty wav buffer")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = DefaultBitDepth
	}
	scale := 1 / float32(int(1)<<(bitDepth-1))

	channels := int(dec.NumChans)
	if channels <= 0 {
		channels = 1
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := range out {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += buf.Data[i*channels+ch]
		}
		out[i] = float32(sum) * scale / float32(channels)
	}

	sampleRate := int(dec.SampleRate)
	if sampleRate == 0 && buf.Format != nil {
		sampleRate = buf.Format.SampleRate
	}
	if sampleRate <= 0 {
		return nil, 0, errors.New("host: wav file without sample rate")
	}
	return out, sampleRate, nil
}

// EncodeWAV writes samples as a mono PCM WAV stream. Samples outside
// [-1, 1] are clipped.
func EncodeWAV(w io.WriteSeeker, samples []float32, sampleRate, bitDepth int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("host: sample rate must be > 0: %d", sampleRate)
	}
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("host: unsupported bit depth: %d", bitDepth)
	}

	peak := float64(int(1)<<(bitDepth-1) - 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(core.Clamp(float64(s), -1, 1) * peak)
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("host: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("host: finalize wav: %w", err)
	}
	return nil
}

// ReadWAV reads a WAV file. See DecodeWAV.
func ReadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("host: %w", err)
	}
	defer f.Close()

	return DecodeWAV(f)
}

// WriteWAV writes a mono WAV file. See EncodeWAV.
func WriteWAV(path string, samples []float32, sampleRate, bitDepth int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("host: %w", cerr)
		}
	}()

	return EncodeWAV(f, samples, sampleRate, bitDepth)
}
