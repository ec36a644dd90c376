package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderResponseEchoesIDs(t *testing.T) {
	req := NewRequestHeader(42, 9)
	resp := req.Response()

	assert.Equal(t, uint32(42), resp.ID)
	assert.Equal(t, uint32(9), resp.GID)
	assert.False(t, resp.IsRequest())
	assert.Equal(t, Version, resp.Version)
}

func TestEncapsulateSetsTotalLen(t *testing.T) {
	buf := EncodeHandle(CmdOpen, 1)
	body := buf.Len()
	buf.Encapsulate(NewRequestHeader(3, 0).Response())

	h, err := DecodeHeader(buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(body+HeaderSize), h.TotalLen)
	assert.Equal(t, body, h.BodyLen())
	assert.Equal(t, uint32(3), h.ID)
}

func TestDecodeHeaderValidation(t *testing.T) {
	good := make([]byte, HeaderSize)
	NewRequestHeader(1, 0).Put(good)
	good[12] = HeaderSize // TotalLen = 16

	tests := []struct {
		name    string
		mutate  func(b []byte) []byte
		max     uint32
		wantErr error
	}{
		{"ok", func(b []byte) []byte { return b }, 0, nil},
		{"short", func(b []byte) []byte { return b[:10] }, 0, ErrBadHeader},
		{"version", func(b []byte) []byte { b[0] = 2; return b }, 0, ErrBadHeader},
		{"header length", func(b []byte) []byte { b[1] = 20; return b }, 0, ErrBadHeader},
		{"total below header", func(b []byte) []byte { b[12] = 4; return b }, 0, ErrBadHeader},
		{"too large", func(b []byte) []byte { b[13] = 1; return b }, 64, ErrFrameTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), good...)
			_, err := DecodeHeader(tt.mutate(b), tt.max)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCommandAndStatusNames(t *testing.T) {
	assert.Equal(t, "READ", CmdRead.String())
	assert.Equal(t, "CMD(99)", Command(99).String())
	assert.True(t, CmdPread.Served())
	assert.False(t, CmdRename.Served())
	assert.Equal(t, "BAD_FILE_HANDLE", StatusBadFileHandle.String())
	assert.Equal(t, "STATUS(0x00030000)", Status(0x30000).String())
	assert.Equal(t, StatusProtocolError, StatusTruncatedMessage)
}
