package quantum

import (
	"go.uber.org/zap"

	"github.com/cwbudde/algo-blockstream/dsp/core"
	"github.com/cwbudde/algo-blockstream/dsp/engine"
)

const defaultMailboxSize = 64

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used on the control path. The callback never
// logs.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRegistry sets the engine registry ModuleReady resolves names in.
func WithRegistry(r *engine.Registry) Option {
	return func(p *Processor) {
		if r != nil {
			p.registry = r
		}
	}
}

// WithNotifier sets the receiver of outbound notifications. Control-side
// notifications are delivered on the goroutine handling the event,
// callback notifications on the goroutine calling Poll, so fn must be safe
// for concurrent use when those differ.
func WithNotifier(fn func(Notification)) Option {
	return func(p *Processor) {
		p.notify = fn
	}
}

// WithDefaults sets the session values used for zero Initialize fields.
// Without an explicit block size the engine kind decides (see
// engine.DefaultBlockSize). An explicit max quantum is also a floor: a
// smaller requested MaxQuantum is raised to it.
func WithDefaults(opts ...core.ProcessorOption) Option {
	return func(p *Processor) {
		p.defaults = core.ApplyProcessorOptions(opts...)

		var set core.ProcessorConfig
		for _, opt := range opts {
			if opt != nil {
				opt(&set)
			}
		}
		p.blockSize = set.BlockSize
		p.quantumMin = set.MaxQuantum
	}
}

// WithMailboxSize sets the capacity of the control and notification rings.
// It is rounded up to a power of two.
func WithMailboxSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.mailbox = core.NextPowerOfTwo(n)
		}
	}
}
