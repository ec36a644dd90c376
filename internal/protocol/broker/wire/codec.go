package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ============================================================================
// Reader
// ============================================================================

// Reader decodes fixed-layout fields from a message body. Every method
// fails with ErrTruncatedMessage when fewer bytes remain than the field
// needs, leaving the position unchanged.
type Reader struct {
	b   []byte
	off int
}

// NewReader returns a Reader over b. b is not copied.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.b) - r.off }

func (r *Reader) take(n int, field string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d remain", ErrTruncatedMessage, field, n, r.Remaining())
	}
	b := r.b[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32(field string) (int32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64(field string) (int64, error) {
	b, err := r.take(8, field)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// String reads a str field. The result does not alias the body.
func (r *Reader) String(field string) (string, error) {
	save := r.off
	n, err := r.Uint16(field)
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n), field)
	if err != nil {
		r.off = save
		return "", err
	}
	return string(b), nil
}

// Bytes reads n raw bytes. The result aliases the body.
func (r *Reader) Bytes(n int, field string) ([]byte, error) {
	return r.take(n, field)
}

// Rest returns all unread bytes.
func (r *Reader) Rest() []byte {
	b := r.b[r.off:]
	r.off = len(r.b)
	return b
}

// ============================================================================
// Requests
// ============================================================================

// Request is a decoded or to-be-encoded request body, excluding the
// leading command code.
type Request interface {
	Command() Command
	size() int
	prepend(c *CommBuf)
}

// OpenRequest opens an existing file for reading.
type OpenRequest struct {
	BufferSize int32
	Name       string
}

// CreateRequest opens a file for writing.
type CreateRequest struct {
	Overwrite  bool
	BufferSize int32
	Name       string
}

// CloseRequest closes a handle.
type CloseRequest struct {
	Handle int32
}

// ReadRequest reads up to Amount bytes at the stream position.
type ReadRequest struct {
	Handle int32
	Amount int32
}

// WriteRequest appends Data to the stream. Amount is the announced data
// length; Data is nil when Amount is negative.
type WriteRequest struct {
	Handle int32
	Amount int32
	Data   []byte
}

// SeekRequest moves the stream position of a read handle.
type SeekRequest struct {
	Handle int32
	Offset int64
}

// LengthRequest asks for the size of a file by name.
type LengthRequest struct {
	Name string
}

// PreadRequest reads at an explicit offset without moving the position.
type PreadRequest struct {
	Handle int32
	Offset int64
	Amount int32
}

// StatusRequest is a liveness probe.
type StatusRequest struct{}

// FlushRequest makes a write handle's data durable.
type FlushRequest struct {
	Handle int32
}

func (*OpenRequest) Command() Command   { return CmdOpen }
func (*CreateRequest) Command() Command { return CmdCreate }
func (*CloseRequest) Command() Command  { return CmdClose }
func (*ReadRequest) Command() Command   { return CmdRead }
func (*WriteRequest) Command() Command  { return CmdWrite }
func (*SeekRequest) Command() Command   { return CmdSeek }
func (*LengthRequest) Command() Command { return CmdLength }
func (*PreadRequest) Command() Command  { return CmdPread }
func (*StatusRequest) Command() Command { return CmdStatus }
func (*FlushRequest) Command() Command  { return CmdFlush }

func (r *OpenRequest) size() int   { return 4 + 2 + len(r.Name) }
func (r *CreateRequest) size() int { return 2 + 4 + 2 + len(r.Name) }
func (*CloseRequest) size() int    { return 4 }
func (*ReadRequest) size() int     { return 8 }
func (r *WriteRequest) size() int  { return 8 + len(r.Data) }
func (*SeekRequest) size() int     { return 12 }
func (r *LengthRequest) size() int { return 2 + len(r.Name) }
func (*PreadRequest) size() int    { return 16 }
func (*StatusRequest) size() int   { return 0 }
func (*FlushRequest) size() int    { return 4 }

func (r *OpenRequest) prepend(c *CommBuf) {
	c.PrependString(r.Name)
	c.PrependInt32(r.BufferSize)
}

func (r *CreateRequest) prepend(c *CommBuf) {
	c.PrependString(r.Name)
	c.PrependInt32(r.BufferSize)
	var ow uint16
	if r.Overwrite {
		ow = 1
	}
	c.PrependUint16(ow)
}

func (r *CloseRequest) prepend(c *CommBuf) { c.PrependInt32(r.Handle) }

func (r *ReadRequest) prepend(c *CommBuf) {
	c.PrependInt32(r.Amount)
	c.PrependInt32(r.Handle)
}

func (r *WriteRequest) prepend(c *CommBuf) {
	c.PrependBytes(r.Data)
	c.PrependInt32(r.Amount)
	c.PrependInt32(r.Handle)
}

func (r *SeekRequest) prepend(c *CommBuf) {
	c.PrependInt64(r.Offset)
	c.PrependInt32(r.Handle)
}

func (r *LengthRequest) prepend(c *CommBuf) { c.PrependString(r.Name) }

func (r *PreadRequest) prepend(c *CommBuf) {
	c.PrependInt32(r.Amount)
	c.PrependInt64(r.Offset)
	c.PrependInt32(r.Handle)
}

func (*StatusRequest) prepend(*CommBuf) {}

func (r *FlushRequest) prepend(c *CommBuf) { c.PrependInt32(r.Handle) }

// EncodeRequest builds a complete request frame: envelope, command code
// and fields.
func EncodeRequest(h Header, req Request) *CommBuf {
	c := NewCommBuf(2 + req.size())
	req.prepend(c)
	c.PrependUint16(uint16(req.Command()))
	c.Encapsulate(h)
	return c
}

// DecodeCommand reads the leading command code of a request body.
func DecodeCommand(r *Reader) (Command, error) {
	v, err := r.Uint16("command")
	return Command(v), err
}

// DecodeOpenRequest decodes an Open body.
func DecodeOpenRequest(r *Reader) (*OpenRequest, error) {
	bs, err := r.Int32("bufferSize")
	if err != nil {
		return nil, err
	}
	name, err := r.String("name")
	if err != nil {
		return nil, err
	}
	return &OpenRequest{BufferSize: bs, Name: name}, nil
}

// DecodeCreateRequest decodes a Create body.
func DecodeCreateRequest(r *Reader) (*CreateRequest, error) {
	ow, err := r.Uint16("overwrite")
	if err != nil {
		return nil, err
	}
	bs, err := r.Int32("bufferSize")
	if err != nil {
		return nil, err
	}
	name, err := r.String("name")
	if err != nil {
		return nil, err
	}
	return &CreateRequest{Overwrite: ow != 0, BufferSize: bs, Name: name}, nil
}

func decodeHandle(r *Reader) (int32, error) {
	return r.Int32("handle")
}

// DecodeCloseRequest decodes a Close body.
func DecodeCloseRequest(r *Reader) (*CloseRequest, error) {
	h, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	return &CloseRequest{Handle: h}, nil
}

// DecodeFlushRequest decodes a Flush body.
func DecodeFlushRequest(r *Reader) (*FlushRequest, error) {
	h, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	return &FlushRequest{Handle: h}, nil
}

// DecodeReadRequest decodes a Read body: [handle:int32][amount:int32].
func DecodeReadRequest(r *Reader) (*ReadRequest, error) {
	if r.Remaining() < 8 {
		return nil, fmt.Errorf("%w: read needs 8 bytes, %d remain", ErrTruncatedMessage, r.Remaining())
	}
	h, _ := decodeHandle(r)
	amount, _ := r.Int32("amount")
	return &ReadRequest{Handle: h, Amount: amount}, nil
}

// DecodeWriteRequest decodes a Write body. The data slice aliases the body.
func DecodeWriteRequest(r *Reader) (*WriteRequest, error) {
	h, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	amount, err := r.Int32("amount")
	if err != nil {
		return nil, err
	}
	req := &WriteRequest{Handle: h, Amount: amount}
	if amount < 0 {
		return req, nil
	}
	if req.Data, err = r.Bytes(int(amount), "data"); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeSeekRequest decodes a Seek body.
func DecodeSeekRequest(r *Reader) (*SeekRequest, error) {
	h, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	off, err := r.Int64("offset")
	if err != nil {
		return nil, err
	}
	return &SeekRequest{Handle: h, Offset: off}, nil
}

// DecodeLengthRequest decodes a Length body.
func DecodeLengthRequest(r *Reader) (*LengthRequest, error) {
	name, err := r.String("name")
	if err != nil {
		return nil, err
	}
	return &LengthRequest{Name: name}, nil
}

// DecodePreadRequest decodes a Pread body.
func DecodePreadRequest(r *Reader) (*PreadRequest, error) {
	if r.Remaining() < 16 {
		return nil, fmt.Errorf("%w: pread needs 16 bytes, %d remain", ErrTruncatedMessage, r.Remaining())
	}
	h, _ := decodeHandle(r)
	off, _ := r.Int64("offset")
	amount, _ := r.Int32("amount")
	return &PreadRequest{Handle: h, Offset: off, Amount: amount}, nil
}

// ============================================================================
// Responses
// ============================================================================

// EncodeSuccess builds a Read or Pread success body:
//
//	[status:int32][command:uint16][handle:int32][offset:int64][count:int32][payload]
//
// The payload is attached as ext only when count > 0; release is called
// once the frame has been sent.
func EncodeSuccess(cmd Command, status Status, handle int32, offset int64, count int32, payload []byte, release func()) *CommBuf {
	c := NewCommBuf(4 + 2 + 4 + 8 + 4)
	c.PrependInt32(count)
	c.PrependInt64(offset)
	c.PrependInt32(handle)
	c.PrependUint16(uint16(cmd))
	c.PrependInt32(int32(status))
	if count > 0 {
		c.SetExt(payload[:count], release)
	} else if release != nil {
		release()
	}
	return c
}

// EncodeHandle builds the body of an Open, Create, Close or Flush success.
func EncodeHandle(cmd Command, handle int32) *CommBuf {
	c := NewCommBuf(4 + 2 + 4)
	c.PrependInt32(handle)
	c.PrependUint16(uint16(cmd))
	c.PrependInt32(int32(StatusOK))
	return c
}

// EncodeWrite builds a Write success body with the pre-write offset and the
// number of bytes written.
func EncodeWrite(handle int32, offset int64, count int32) *CommBuf {
	c := NewCommBuf(4 + 2 + 4 + 8 + 4)
	c.PrependInt32(count)
	c.PrependInt64(offset)
	c.PrependInt32(handle)
	c.PrependUint16(uint16(CmdWrite))
	c.PrependInt32(int32(StatusOK))
	return c
}

// EncodeSeek builds a Seek success body.
func EncodeSeek(handle int32, offset int64) *CommBuf {
	c := NewCommBuf(4 + 2 + 4 + 8)
	c.PrependInt64(offset)
	c.PrependInt32(handle)
	c.PrependUint16(uint16(CmdSeek))
	c.PrependInt32(int32(StatusOK))
	return c
}

// EncodeLength builds a Length success body.
func EncodeLength(length int64) *CommBuf {
	c := NewCommBuf(4 + 2 + 8)
	c.PrependInt64(length)
	c.PrependUint16(uint16(CmdLength))
	c.PrependInt32(int32(StatusOK))
	return c
}

// EncodeStatus builds a Status success body.
func EncodeStatus() *CommBuf {
	c := NewCommBuf(4 + 2)
	c.PrependUint16(uint16(CmdStatus))
	c.PrependInt32(int32(StatusOK))
	return c
}

// EncodeError builds an error body: [status][command][message:str]. No
// payload is ever attached.
func EncodeError(cmd Command, status Status, message string) *CommBuf {
	c := NewCommBuf(4 + 2 + 2 + len(message))
	c.PrependString(message)
	c.PrependUint16(uint16(cmd))
	c.PrependInt32(int32(status))
	return c
}

// Response is a decoded response body. Which fields are meaningful
// depends on Command and Status.
type Response struct {
	Status  Status
	Command Command
	Message string // error responses only

	Handle  int32
	Offset  int64
	Count   int32  // Read, Pread, Write; negative means end of stream
	Length  int64  // Length
	Payload []byte // Read, Pread when Count > 0
}

// Err returns a *StatusError for non-OK responses and nil otherwise.
func (r *Response) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return &StatusError{Status: r.Status, Msg: r.Message}
}

// ErrCommandMismatch is returned when a success response echoes a command
// other than the one requested.
var ErrCommandMismatch = errors.New("response command mismatch")

// DecodeResponse decodes a response body (envelope already stripped) to a
// request for cmd. The payload aliases body.
func DecodeResponse(cmd Command, body []byte) (*Response, error) {
	r := NewReader(body)

	st, err := r.Int32("status")
	if err != nil {
		return nil, err
	}
	c, err := DecodeCommand(r)
	if err != nil {
		return nil, err
	}
	resp := &Response{Status: Status(st), Command: c}

	if resp.Status != StatusOK {
		if resp.Message, err = r.String("message"); err != nil {
			return nil, err
		}
		return resp, nil
	}
	if c != cmd {
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrCommandMismatch, cmd, c)
	}

	switch c {
	case CmdOpen, CmdCreate, CmdClose, CmdFlush:
		resp.Handle, err = r.Int32("handle")
	case CmdRead, CmdPread, CmdWrite:
		err = decodeIOResponse(r, resp)
	case CmdSeek:
		if resp.Handle, err = r.Int32("handle"); err == nil {
			resp.Offset, err = r.Int64("offset")
		}
	case CmdLength:
		resp.Length, err = r.Int64("length")
	case CmdStatus:
	default:
		err = fmt.Errorf("decode response: unsupported command %s", c)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeIOResponse(r *Reader, resp *Response) error {
	var err error
	if resp.Handle, err = r.Int32("handle"); err != nil {
		return err
	}
	if resp.Offset, err = r.Int64("offset"); err != nil {
		return err
	}
	if resp.Count, err = r.Int32("count"); err != nil {
		return err
	}
	if resp.Command != CmdWrite && resp.Count > 0 {
		resp.Payload, err = r.Bytes(int(resp.Count), "payload")
	}
	return err
}
