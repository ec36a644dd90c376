package backend

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
)

// MemoryInput is an InputStream over an in-memory snapshot of a file. It is
// used by backends that load whole values on open (badger).
type MemoryInput struct {
	data   []byte
	pos    atomic.Int64
	closed atomic.Bool
}

// NewMemoryInput returns a stream reading data from offset 0. data is not
// copied.
func NewMemoryInput(data []byte) *MemoryInput {
	return &MemoryInput{data: data}
}

func (m *MemoryInput) Read(p []byte) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	off := m.pos.Load()
	n, err := m.ReadAt(p, off)
	m.pos.Add(int64(n))
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (m *MemoryInput) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryInput) Seek(off int64) (int64, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return m.pos.Load(), ErrInvalidOffset
	}
	m.pos.Store(off)
	return off, nil
}

func (m *MemoryInput) Offset() int64 { return m.pos.Load() }

func (m *MemoryInput) Close() error {
	if m.closed.Swap(true) {
		return ErrClosed
	}
	return nil
}

// CommitFunc persists the full content of a buffered file.
type CommitFunc func(data []byte) error

// BufferedOutput is an OutputStream that accumulates writes in memory and
// hands the full content to a CommitFunc on Flush and Close. Object and KV
// stores that cannot append in place use it.
type BufferedOutput struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	written atomic.Int64
	dirty   bool
	closed  bool
	commit  CommitFunc
}

// NewBufferedOutput returns an empty stream committing through fn. sizeHint
// preallocates the buffer when positive.
func NewBufferedOutput(sizeHint int, fn CommitFunc) *BufferedOutput {
	o := &BufferedOutput{commit: fn, dirty: true}
	if sizeHint > 0 {
		o.buf.Grow(sizeHint)
	}
	return o
}

func (o *BufferedOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, ErrClosed
	}
	n, _ := o.buf.Write(p)
	o.written.Add(int64(n))
	o.dirty = true
	return n, nil
}

func (o *BufferedOutput) Offset() int64 { return o.written.Load() }

// Flush commits the content written so far. A flush with nothing new since
// the last commit is a no-op.
func (o *BufferedOutput) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	return o.flushLocked()
}

func (o *BufferedOutput) flushLocked() error {
	if !o.dirty {
		return nil
	}
	if err := o.commit(o.buf.Bytes()); err != nil {
		return err
	}
	o.dirty = false
	return nil
}

// Close commits pending content and releases the buffer. A failed commit
// still closes the stream.
func (o *BufferedOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.closed = true
	err := o.flushLocked()
	o.buf = bytes.Buffer{}
	return err
}
