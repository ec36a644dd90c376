// Package bufpool provides pooled byte slices for inbound frames and read
// payloads.
//
// Buffers are grouped into power-of-two size classes between MinSize and
// MaxSize. Requests above MaxSize are allocated directly and never pooled
// so one oversized transfer does not pin memory.
//
// Usage:
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"math/bits"
	"sync"
)

const (
	// MinSize is the smallest pooled class (4KiB).
	MinSize = 4 << 10

	// MaxSize is the largest pooled class (4MiB).
	MaxSize = 4 << 20
)

// Pool is a set of sync.Pools, one per power-of-two size class.
type Pool struct {
	minShift int
	classes  []sync.Pool
}

// NewPool creates a pool serving classes from minSize up to maxSize. Both
// are rounded up to a power of two; non-positive values select the
// package defaults.
func NewPool(minSize, maxSize int) *Pool {
	if minSize <= 0 {
		minSize = MinSize
	}
	if maxSize < minSize {
		maxSize = MaxSize
	}

	minShift := shiftFor(minSize)
	maxShift := shiftFor(maxSize)

	p := &Pool{
		minShift: minShift,
		classes:  make([]sync.Pool, maxShift-minShift+1),
	}
	for i := range p.classes {
		size := 1 << (minShift + i)
		p.classes[i].New = func() any {
			b := make([]byte, size)
			return &b
		}
	}
	return p
}

// shiftFor returns the exponent of the smallest power of two >= n.
func shiftFor(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func (p *Pool) class(size int) int {
	s := shiftFor(size) - p.minShift
	if s < 0 {
		return 0
	}
	return s
}

// Get returns a slice of length size. Its capacity is the size class and
// may exceed size. The caller must hand it back with Put when done.
func (p *Pool) Get(size int) []byte {
	if size < 0 {
		size = 0
	}
	c := p.class(size)
	if c >= len(p.classes) {
		return make([]byte, size)
	}
	bp := p.classes[c].Get().(*[]byte)
	return (*bp)[:size]
}

// Put returns buf to its size class. Buffers whose capacity is not an
// exact class size (direct allocations, foreign slices) are dropped.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	if c == 0 || c&(c-1) != 0 {
		return
	}
	idx := shiftFor(c) - p.minShift
	if idx < 0 || idx >= len(p.classes) {
		return
	}
	buf = buf[:c]
	p.classes[idx].Put(&buf)
}

var global = NewPool(MinSize, MaxSize)

// Get returns a buffer of length size from the package-level pool.
func Get(size int) []byte {
	return global.Get(size)
}

// Put returns a buffer obtained from Get to the package-level pool.
func Put(buf []byte) {
	global.Put(buf)
}
