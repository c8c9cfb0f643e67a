// Package spsc provides a bounded single-producer/single-consumer ring that
// is safe to use from a real-time audio callback: Push and Pop never block
// and never allocate.
package spsc

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-blockstream/dsp/core"
)

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Ring is a lock-free SPSC queue of fixed capacity.
//
// Each slot carries a sequence tag. A slot is writable when its tag equals
// the producer cursor and readable when it equals the consumer cursor + 1.
// Exactly one goroutine may call Push and exactly one may call Pop.
type Ring[T any] struct {
	_    [64]byte
	head uint64 // consumer cursor
	_    [56]byte
	tail uint64 // producer cursor
	_    [56]byte

	mask uint64
	step uint64
	buf  []slot[T]
}

// New returns a ring with the given capacity, which must be a power of two.
func New[T any](size int) (*Ring[T], error) {
	if !core.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("spsc: size must be > 0 and a power of two: %d", size)
	}
	r := &Ring[T]{
		mask: uint64(size - 1),
		step: uint64(size),
		buf:  make([]slot[T], size),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r, nil
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Push enqueues v. It reports false when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	t := r.tail
	s := &r.buf[t&r.mask]
	if s.seq.Load() != t {
		return false
	}
	s.val = v
	s.seq.Store(t + 1)
	r.tail = t + 1
	return true
}

// Pop dequeues the oldest value. It reports false when the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	h := r.head
	s := &r.buf[h&r.mask]
	if s.seq.Load() != h+1 {
		return zero, false
	}
	v := s.val
	s.val = zero
	s.seq.Store(h + r.step)
	r.head = h + 1
	return v, true
}
