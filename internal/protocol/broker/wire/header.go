package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	// Version is the only envelope version this package speaks.
	Version uint8 = 1

	// HeaderSize is the encoded size of Header.
	HeaderSize = 16
)

// Header flags.
const (
	// FlagRequest marks a client request. Responses clear it.
	FlagRequest uint16 = 0x0001
)

// Header is the transport envelope preceding every message:
//
//	[version:uint8][headerLen:uint8][flags:uint16][id:uint32][gid:uint32][totalLen:uint32]
//
// ID correlates a response with its request. GID is an opaque group id the
// client may use to order related requests; the broker echoes it.
// TotalLen covers the header and the body.
type Header struct {
	Version   uint8
	HeaderLen uint8
	Flags     uint16
	ID        uint32
	GID       uint32
	TotalLen  uint32
}

// NewRequestHeader returns a request header for message id.
func NewRequestHeader(id, gid uint32) Header {
	return Header{
		Version:   Version,
		HeaderLen: HeaderSize,
		Flags:     FlagRequest,
		ID:        id,
		GID:       gid,
	}
}

// IsRequest reports whether FlagRequest is set.
func (h Header) IsRequest() bool {
	return h.Flags&FlagRequest != 0
}

// BodyLen returns TotalLen minus the header.
func (h Header) BodyLen() int {
	return int(h.TotalLen) - int(h.HeaderLen)
}

// Response returns the header for the reply to h: same id and gid, request
// flag cleared. TotalLen is filled in by CommBuf.Encapsulate.
func (h Header) Response() Header {
	return Header{
		Version:   Version,
		HeaderLen: HeaderSize,
		Flags:     h.Flags &^ FlagRequest,
		ID:        h.ID,
		GID:       h.GID,
	}
}

// Put encodes h into b, which must be at least HeaderSize bytes.
func (h Header) Put(b []byte) {
	b[0] = h.Version
	b[1] = h.HeaderLen
	binary.LittleEndian.PutUint16(b[2:], h.Flags)
	binary.LittleEndian.PutUint32(b[4:], h.ID)
	binary.LittleEndian.PutUint32(b[8:], h.GID)
	binary.LittleEndian.PutUint32(b[12:], h.TotalLen)
}

// DecodeHeader parses and validates an envelope. maxFrame bounds TotalLen;
// zero disables the check.
func DecodeHeader(b []byte, maxFrame uint32) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrBadHeader, len(b), HeaderSize)
	}

	h := Header{
		Version:   b[0],
		HeaderLen: b[1],
		Flags:     binary.LittleEndian.Uint16(b[2:]),
		ID:        binary.LittleEndian.Uint32(b[4:]),
		GID:       binary.LittleEndian.Uint32(b[8:]),
		TotalLen:  binary.LittleEndian.Uint32(b[12:]),
	}

	switch {
	case h.Version != Version:
		return h, fmt.Errorf("%w: version %d", ErrBadHeader, h.Version)
	case h.HeaderLen != HeaderSize:
		return h, fmt.Errorf("%w: header length %d", ErrBadHeader, h.HeaderLen)
	case h.TotalLen < HeaderSize:
		return h, fmt.Errorf("%w: total length %d", ErrBadHeader, h.TotalLen)
	case maxFrame > 0 && h.TotalLen > maxFrame:
		return h, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, h.TotalLen, maxFrame)
	}
	return h, nil
}
