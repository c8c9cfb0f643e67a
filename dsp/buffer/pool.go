package buffer

import (
	"sync"

	"github.com/cwbudde/algo-blockstream/dsp/core"
)

type slab struct {
	data []float32
}

// Pool provides sync.Pool-based reuse of sample storage so that sessions
// built and retired on the control path do not reallocate every time.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool ready for use.
func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &slab{}
			},
		},
	}
}

// Get returns a zeroed slice with the requested length.
// Callers should return it via Put once no longer referenced.
func (p *Pool) Get(length int) []float32 {
	if length < 0 {
		length = 0
	}
	buf := core.EnsureLen(p.pool.Get().(*slab).data, length)
	core.Zero(buf)
	return buf
}

// Put returns storage to the pool for reuse.
// The caller must not use buf after calling Put.
func (p *Pool) Put(buf []float32) {
	if cap(buf) == 0 {
		return
	}
	p.pool.Put(&slab{data: buf[:0]})
}
