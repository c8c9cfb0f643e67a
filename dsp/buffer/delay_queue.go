package buffer

import "fmt"

// DelayQueue is a fixed-capacity FIFO of processed samples.
//
// It is filled a block at a time and drained a quantum at a time. The queue
// starts with prefill zero samples, which sets the constant output latency
// of the pipeline.
type DelayQueue struct {
	samples []float32
	live    int
}

// NewDelayQueue allocates a queue of the given capacity and seeds it with
// prefill samples of silence.
func NewDelayQueue(capacity, prefill int) (*DelayQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("delay queue capacity must be > 0: %d", capacity)
	}
	return DelayQueueFromSlice(make([]float32, capacity), prefill)
}

// DelayQueueFromSlice uses buf as backing storage without copying and
// seeds it with prefill samples of silence.
func DelayQueueFromSlice(buf []float32, prefill int) (*DelayQueue, error) {
	if prefill < 0 || prefill > len(buf) {
		return nil, fmt.Errorf("delay queue prefill must be in [0, %d]: %d", len(buf), prefill)
	}
	q := &DelayQueue{samples: buf}
	q.Reset(prefill)
	return q, nil
}

// Samples returns the whole backing slice.
func (q *DelayQueue) Samples() []float32 { return q.samples }

// Cap returns the queue capacity in samples.
func (q *DelayQueue) Cap() int { return len(q.samples) }

// Len returns the live length.
func (q *DelayQueue) Len() int { return q.live }

// PushBlock appends block at the tail. Exceeding the capacity panics.
func (q *DelayQueue) PushBlock(block []float32) {
	if q.live+len(block) > len(q.samples) {
		panic(fmt.Sprintf("buffer: delay queue overflow: live=%d push=%d capacity=%d",
			q.live, len(block), len(q.samples)))
	}
	copy(q.samples[q.live:], block)
	q.live += len(block)
}

// Drain copies the len(dst) oldest samples into dst and shifts the rest of
// the live region to the front. Draining more than Len() panics.
func (q *DelayQueue) Drain(dst []float32) {
	n := len(dst)
	if n > q.live {
		panic(fmt.Sprintf("buffer: delay queue underflow: live=%d drain=%d", q.live, n))
	}
	copy(dst, q.samples[:n])
	copy(q.samples, q.samples[n:q.live])
	q.live -= n
}

// Reset clears the queue and seeds it with prefill samples of silence.
func (q *DelayQueue) Reset(prefill int) {
	if prefill < 0 || prefill > len(q.samples) {
		panic(fmt.Sprintf("buffer: delay queue prefill %d outside [0, %d]", prefill, len(q.samples)))
	}
	for i := range q.samples {
		q.samples[i] = 0
	}
	q.live = prefill
}
