package wire

import (
	"encoding/binary"
	"io"
	"math"
	"net"
)

// MaxStringLen is the longest string a str field can carry.
const MaxStringLen = math.MaxUint16

// CommBuf is a message buffer built back-to-front. Fields are prepended,
// so the last field prepended is the first on the wire; a response is
// assembled by prepending its fields in reverse order and finally the
// envelope header with Encapsulate.
//
// A CommBuf may carry an extension payload (Ext) that is written after the
// primary bytes without being copied into them. Read responses attach the
// data buffer this way.
type CommBuf struct {
	buf     []byte
	start   int
	ext     []byte
	release func()
}

// NewCommBuf returns an empty buffer with room for size bytes of fields
// plus an envelope header.
func NewCommBuf(size int) *CommBuf {
	n := size + HeaderSize
	return &CommBuf{buf: make([]byte, n), start: n}
}

// reserve makes room for n more bytes in front and returns the slice to
// fill.
func (c *CommBuf) reserve(n int) []byte {
	if c.start < n {
		used := len(c.buf) - c.start
		grown := make([]byte, 2*(used+n)+HeaderSize)
		newStart := len(grown) - used
		copy(grown[newStart:], c.buf[c.start:])
		c.buf, c.start = grown, newStart
	}
	c.start -= n
	return c.buf[c.start : c.start+n]
}

// PrependUint8 prepends one byte.
func (c *CommBuf) PrependUint8(v uint8) { c.reserve(1)[0] = v }

// PrependUint16 prepends a little-endian uint16.
func (c *CommBuf) PrependUint16(v uint16) {
	binary.LittleEndian.PutUint16(c.reserve(2), v)
}

// PrependInt32 prepends a little-endian int32.
func (c *CommBuf) PrependInt32(v int32) {
	binary.LittleEndian.PutUint32(c.reserve(4), uint32(v))
}

// PrependUint32 prepends a little-endian uint32.
func (c *CommBuf) PrependUint32(v uint32) {
	binary.LittleEndian.PutUint32(c.reserve(4), v)
}

// PrependInt64 prepends a little-endian int64.
func (c *CommBuf) PrependInt64(v int64) {
	binary.LittleEndian.PutUint64(c.reserve(8), uint64(v))
}

// PrependBytes prepends raw bytes.
func (c *CommBuf) PrependBytes(b []byte) {
	copy(c.reserve(len(b)), b)
}

// PrependString prepends a str field. Strings longer than MaxStringLen are
// truncated.
func (c *CommBuf) PrependString(s string) {
	if len(s) > MaxStringLen {
		s = s[:MaxStringLen]
	}
	copy(c.reserve(len(s)), s)
	c.PrependUint16(uint16(len(s)))
}

// SetExt attaches an extension payload written after the primary bytes.
// release, if non-nil, is called once by Release.
func (c *CommBuf) SetExt(data []byte, release func()) {
	c.ext = data
	c.release = release
}

// Primary returns the prepended bytes, header included once encapsulated.
func (c *CommBuf) Primary() []byte { return c.buf[c.start:] }

// Ext returns the extension payload.
func (c *CommBuf) Ext() []byte { return c.ext }

// Len returns the total encoded length, primary plus ext.
func (c *CommBuf) Len() int {
	return len(c.buf) - c.start + len(c.ext)
}

// Bytes returns the whole message in one contiguous slice. It copies when
// an ext payload is attached.
func (c *CommBuf) Bytes() []byte {
	if len(c.ext) == 0 {
		return c.Primary()
	}
	out := make([]byte, 0, c.Len())
	out = append(out, c.Primary()...)
	return append(out, c.ext...)
}

// Encapsulate prepends the envelope header h with TotalLen set to the
// final message length.
func (c *CommBuf) Encapsulate(h Header) {
	h.HeaderLen = HeaderSize
	h.TotalLen = uint32(c.Len() + HeaderSize)
	h.Put(c.reserve(HeaderSize))
}

// WriteTo writes the primary bytes followed by ext, using a vectored write
// when w is a net.Conn.
func (c *CommBuf) WriteTo(w io.Writer) (int64, error) {
	if len(c.ext) == 0 {
		n, err := w.Write(c.Primary())
		return int64(n), err
	}
	bufs := net.Buffers{c.Primary(), c.ext}
	return bufs.WriteTo(w)
}

// Release runs the release hook attached with SetExt, at most once.
func (c *CommBuf) Release() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.ext = nil
}
