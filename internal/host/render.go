package host

import (
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/core"
	"github.com/cwbudde/algo-blockstream/dsp/quantum"
)

// Processor is the callback surface a host drives.
type Processor interface {
	OnAudioCallback(in, out []float32) bool
	Latency() int
}

type poller interface {
	Poll(fn func(quantum.Notification)) int
}

// Render feeds input through p in callbacks of quantum samples and returns
// the output stream. The tail is flushed with silence so the result holds
// len(input)+p.Latency() samples, unless the session ends first.
//
// When p can be polled, queued notifications are delivered to its notifier
// after every callback, so p must not also be driven by a Controller.
func Render(p Processor, input []float32, quantum int) ([]float32, error) {
	if quantum <= 0 {
		return nil, fmt.Errorf("host: quantum must be > 0: %d", quantum)
	}

	total := len(input) + p.Latency()
	out := make([]float32, total)
	in := make([]float32, quantum)
	poll, _ := p.(poller)

	for pos := 0; pos < total; pos += quantum {
		n := min(quantum, total-pos)
		copied := 0
		if pos < len(input) {
			copied = core.CopyInto(in[:n], input[pos:])
		}
		clear(in[copied:n])

		ok := p.OnAudioCallback(in[:n], out[pos:pos+n])
		if poll != nil {
			poll.Poll(nil)
		}
		if !ok {
			return out[:pos], nil
		}
	}
	return out, nil
}

// RenderAligned is Render with the processor latency removed, so that
// output[i] corresponds to input[i].
func RenderAligned(p Processor, input []float32, quantum int) ([]float32, error) {
	latency := p.Latency()
	out, err := Render(p, input, quantum)
	if err != nil {
		return nil, err
	}
	if len(out) <= latency {
		return nil, nil
	}
	return out[latency:], nil
}
