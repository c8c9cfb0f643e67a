package quantum

import (
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/buffer"
	"github.com/cwbudde/algo-blockstream/dsp/engine"
)

// session is everything one Initialize builds. It is created and released
// on the control side and owned by the callback while installed.
type session struct {
	engineName   string
	sampleRate   float64
	blockSize    int
	maxQuantum   int
	latency      int
	reportLevels bool

	acc     *buffer.Accumulator
	queue   *buffer.DelayQueue
	adapter engine.Adapter
	side    engine.SideChannel
}

// prefillFor returns the delay queue pre-fill for a block size and the
// largest quantum.
//
// With P samples pre-filled, live-length plus accumulator count equals P
// at every callback boundary. The accumulator holds at most B-1 samples
// between callbacks, so a drain of q never underflows while P >= B-1+q,
// and the queue never holds more than P samples.
func prefillFor(kind engine.Kind, blockSize, maxQuantum int) int {
	if kind == engine.KindEffect {
		return blockSize + max(blockSize, maxQuantum)
	}
	return blockSize + maxQuantum
}

func newSession(pool *buffer.Pool, name string, adapter engine.Adapter, init Initialize) (*session, error) {
	latency := prefillFor(adapter.Kind(), init.BlockSize, init.MaxQuantum)

	queue, err := buffer.DelayQueueFromSlice(pool.Get(latency), latency)
	if err != nil {
		return nil, fmt.Errorf("quantum: delay queue: %w", err)
	}

	return &session{
		engineName:   name,
		sampleRate:   init.SampleRate,
		blockSize:    init.BlockSize,
		maxQuantum:   init.MaxQuantum,
		latency:      latency,
		reportLevels: init.ReportLevels,
		acc:          buffer.AccumulatorFromSlice(pool.Get(init.BlockSize)),
		queue:        queue,
		adapter:      adapter,
	}, nil
}

// release closes the engine and returns the buffers to pool.
func (s *session) release(pool *buffer.Pool) error {
	err := s.adapter.Close()
	pool.Put(s.acc.Samples())
	pool.Put(s.queue.Samples())
	s.acc = nil
	s.queue = nil
	return err
}
