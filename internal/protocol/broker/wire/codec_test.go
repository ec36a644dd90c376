package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSuccessLayout(t *testing.T) {
	buf := EncodeSuccess(CmdRead, StatusOK, 7, 1024, 5, []byte("hello"), nil)

	want := new(bytes.Buffer)
	_ = binary.Write(want, binary.LittleEndian, int32(0))
	_ = binary.Write(want, binary.LittleEndian, uint16(CmdRead))
	_ = binary.Write(want, binary.LittleEndian, int32(7))
	_ = binary.Write(want, binary.LittleEndian, int64(1024))
	_ = binary.Write(want, binary.LittleEndian, int32(5))

	assert.Equal(t, want.Bytes(), buf.Primary())
	assert.Equal(t, []byte("hello"), buf.Ext())
	assert.Equal(t, want.Len()+5, buf.Len())
}

func TestEncodeSuccessRoundTrip(t *testing.T) {
	buf := EncodeSuccess(CmdRead, StatusOK, 7, 1024, 5, []byte("hello"), nil)

	resp, err := DecodeResponse(CmdRead, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, CmdRead, resp.Command)
	assert.Equal(t, int32(7), resp.Handle)
	assert.Equal(t, int64(1024), resp.Offset)
	assert.Equal(t, int32(5), resp.Count)
	assert.Equal(t, []byte("hello"), resp.Payload)
	assert.NoError(t, resp.Err())
}

func TestEncodeSuccessPayloadOnlyWhenCountPositive(t *testing.T) {
	for _, count := range []int32{0, -1} {
		released := 0
		buf := EncodeSuccess(CmdRead, StatusOK, 1, 6, count, make([]byte, 8), func() { released++ })

		assert.Nil(t, buf.Ext())
		assert.Equal(t, 1, released, "unused payload must be released immediately")

		resp, err := DecodeResponse(CmdRead, buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, count, resp.Count)
		assert.Empty(t, resp.Payload)
	}
}

func TestEncodeSuccessTrimsPayloadToCount(t *testing.T) {
	buf := EncodeSuccess(CmdPread, StatusOK, 2, 0, 3, []byte("abcdef"), nil)
	assert.Equal(t, []byte("abc"), buf.Ext())
}

func TestEncodeErrorRoundTrip(t *testing.T) {
	buf := EncodeError(CmdRead, StatusBadFileHandle, "no such handle 42")
	assert.Nil(t, buf.Ext())

	resp, err := DecodeResponse(CmdRead, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, StatusBadFileHandle, resp.Status)
	assert.Equal(t, CmdRead, resp.Command)
	assert.Equal(t, "no such handle 42", resp.Message)

	var se *StatusError
	require.ErrorAs(t, resp.Err(), &se)
	assert.Equal(t, StatusBadFileHandle, se.Status)
	assert.ErrorIs(t, resp.Err(), &StatusError{Status: StatusBadFileHandle})
}

func TestErrorFrameSkipsCommandCheck(t *testing.T) {
	buf := EncodeError(CmdStatus, StatusUnknownCommand, "x")
	resp, err := DecodeResponse(CmdRead, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, StatusUnknownCommand, resp.Status)
}

func TestDecodeResponseCommandMismatch(t *testing.T) {
	_, err := DecodeResponse(CmdRead, EncodeStatus().Bytes())
	assert.ErrorIs(t, err, ErrCommandMismatch)
}

func TestSiblingResponses(t *testing.T) {
	tests := []struct {
		name  string
		cmd   Command
		buf   *CommBuf
		check func(t *testing.T, r *Response)
	}{
		{"open", CmdOpen, EncodeHandle(CmdOpen, 3), func(t *testing.T, r *Response) {
			assert.Equal(t, int32(3), r.Handle)
		}},
		{"write", CmdWrite, EncodeWrite(4, 10, 6), func(t *testing.T, r *Response) {
			assert.Equal(t, int32(4), r.Handle)
			assert.Equal(t, int64(10), r.Offset)
			assert.Equal(t, int32(6), r.Count)
			assert.Nil(t, r.Payload)
		}},
		{"seek", CmdSeek, EncodeSeek(5, 99), func(t *testing.T, r *Response) {
			assert.Equal(t, int32(5), r.Handle)
			assert.Equal(t, int64(99), r.Offset)
		}},
		{"length", CmdLength, EncodeLength(1 << 40), func(t *testing.T, r *Response) {
			assert.Equal(t, int64(1<<40), r.Length)
		}},
		{"status", CmdStatus, EncodeStatus(), func(t *testing.T, r *Response) {
			assert.Equal(t, StatusOK, r.Status)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse(tt.cmd, tt.buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, resp.Command)
			tt.check(t, resp)
		})
	}
}

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		req    Request
		decode func(*Reader) (Request, error)
	}{
		{&OpenRequest{BufferSize: 4096, Name: "/data/a.txt"}, func(r *Reader) (Request, error) { return DecodeOpenRequest(r) }},
		{&CreateRequest{Overwrite: true, BufferSize: 0, Name: "/b"}, func(r *Reader) (Request, error) { return DecodeCreateRequest(r) }},
		{&CloseRequest{Handle: 9}, func(r *Reader) (Request, error) { return DecodeCloseRequest(r) }},
		{&ReadRequest{Handle: 1, Amount: 4}, func(r *Reader) (Request, error) { return DecodeReadRequest(r) }},
		{&WriteRequest{Handle: 2, Amount: 3, Data: []byte("xyz")}, func(r *Reader) (Request, error) { return DecodeWriteRequest(r) }},
		{&SeekRequest{Handle: 3, Offset: 1 << 33}, func(r *Reader) (Request, error) { return DecodeSeekRequest(r) }},
		{&LengthRequest{Name: "/c"}, func(r *Reader) (Request, error) { return DecodeLengthRequest(r) }},
		{&PreadRequest{Handle: 4, Offset: 12, Amount: 100}, func(r *Reader) (Request, error) { return DecodePreadRequest(r) }},
		{&FlushRequest{Handle: 5}, func(r *Reader) (Request, error) { return DecodeFlushRequest(r) }},
	}
	for _, tt := range tests {
		t.Run(tt.req.Command().String(), func(t *testing.T) {
			frame := EncodeRequest(NewRequestHeader(77, 1), tt.req).Bytes()

			h, err := DecodeHeader(frame, 0)
			require.NoError(t, err)
			assert.True(t, h.IsRequest())
			assert.Equal(t, uint32(77), h.ID)
			assert.Equal(t, uint32(len(frame)), h.TotalLen)

			r := NewReader(frame[HeaderSize:])
			cmd, err := DecodeCommand(r)
			require.NoError(t, err)
			assert.Equal(t, tt.req.Command(), cmd)

			got, err := tt.decode(r)
			require.NoError(t, err)
			assert.Equal(t, tt.req, got)
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestStatusRequestHasNoFields(t *testing.T) {
	frame := EncodeRequest(NewRequestHeader(1, 0), &StatusRequest{}).Bytes()
	assert.Len(t, frame, HeaderSize+2)
}

func TestDecodeTruncated(t *testing.T) {
	body := []byte{7, 0, 0, 0, 4, 0, 0} // handle + 3 of 4 amount bytes

	_, err := DecodeReadRequest(NewReader(body))
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	_, err = DecodePreadRequest(NewReader(make([]byte, 15)))
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	_, err = DecodeOpenRequest(NewReader([]byte{0, 0, 0, 0, 5, 0, 'a'}))
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	// Write announcing more data than present.
	w := NewCommBuf(12)
	w.PrependBytes([]byte("ab"))
	w.PrependInt32(3)
	w.PrependInt32(1)
	_, err = DecodeWriteRequest(NewReader(w.Primary()))
	assert.ErrorIs(t, err, ErrTruncatedMessage)
}

func TestDecodeWriteNegativeAmount(t *testing.T) {
	w := NewCommBuf(8)
	w.PrependInt32(-1)
	w.PrependInt32(1)
	req, err := DecodeWriteRequest(NewReader(w.Primary()))
	require.NoError(t, err)
	assert.Equal(t, int32(-1), req.Amount)
	assert.Nil(t, req.Data)
}

func TestReaderStringKeepsPositionOnFailure(t *testing.T) {
	r := NewReader([]byte{4, 0, 'a', 'b'})
	_, err := r.String("name")
	require.True(t, errors.Is(err, ErrTruncatedMessage))
	assert.Equal(t, 4, r.Remaining())
}

func TestPrependOrder(t *testing.T) {
	c := NewCommBuf(0)
	c.PrependUint16(0x0201)
	c.PrependUint8(0xff)
	c.PrependString("hi")
	assert.Equal(t, []byte{2, 0, 'h', 'i', 0xff, 0x01, 0x02}, c.Primary())
}

func TestCommBufGrows(t *testing.T) {
	c := NewCommBuf(1)
	for i := int64(1); i <= 4; i++ {
		c.PrependInt64(i)
	}
	r := NewReader(c.Primary())
	for want := int64(4); want >= 1; want-- {
		v, err := r.Int64("v")
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestReleaseRunsOnce(t *testing.T) {
	n := 0
	c := NewCommBuf(0)
	c.SetExt([]byte("x"), func() { n++ })
	c.Release()
	c.Release()
	assert.Equal(t, 1, n)
	assert.Nil(t, c.Ext())
}

func TestWriteToConcatenatesExt(t *testing.T) {
	buf := EncodeSuccess(CmdRead, StatusOK, 1, 0, 3, []byte("abc"), nil)
	buf.Encapsulate(NewRequestHeader(5, 6).Response())

	var out bytes.Buffer
	n, err := buf.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, buf.Bytes(), out.Bytes())
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("abc")))
}
