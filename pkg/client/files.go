package client

import (
	"context"
	"io"

	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
)

// Open opens name for reading and returns its handle.
func (c *Client) Open(ctx context.Context, name string, bufferSize int32) (int32, error) {
	resp, err := c.Do(ctx, &wire.OpenRequest{BufferSize: bufferSize, Name: name})
	if err != nil {
		return 0, err
	}
	return resp.Handle, nil
}

// Create opens name for writing and returns its handle.
func (c *Client) Create(ctx context.Context, name string, overwrite bool, bufferSize int32) (int32, error) {
	resp, err := c.Do(ctx, &wire.CreateRequest{Overwrite: overwrite, BufferSize: bufferSize, Name: name})
	if err != nil {
		return 0, err
	}
	return resp.Handle, nil
}

// CloseHandle closes an open handle.
func (c *Client) CloseHandle(ctx context.Context, handle int32) error {
	_, err := c.Do(ctx, &wire.CloseRequest{Handle: handle})
	return err
}

// ReadResult is the outcome of Read or Pread.
type ReadResult struct {
	// Offset is the stream position the data starts at.
	Offset int64
	Data   []byte
	// EOF is set when the broker reported end of stream.
	EOF bool
}

func readResult(resp *wire.Response) *ReadResult {
	return &ReadResult{Offset: resp.Offset, Data: resp.Payload, EOF: resp.Count < 0}
}

// Read reads up to amount bytes at the handle's current position.
func (c *Client) Read(ctx context.Context, handle, amount int32) (*ReadResult, error) {
	resp, err := c.Do(ctx, &wire.ReadRequest{Handle: handle, Amount: amount})
	if err != nil {
		return nil, err
	}
	return readResult(resp), nil
}

// Pread reads up to amount bytes at offset without moving the position.
func (c *Client) Pread(ctx context.Context, handle int32, offset int64, amount int32) (*ReadResult, error) {
	resp, err := c.Do(ctx, &wire.PreadRequest{Handle: handle, Offset: offset, Amount: amount})
	if err != nil {
		return nil, err
	}
	return readResult(resp), nil
}

// Write appends data and returns the offset it was written at.
func (c *Client) Write(ctx context.Context, handle int32, data []byte) (int64, error) {
	resp, err := c.Do(ctx, &wire.WriteRequest{Handle: handle, Amount: int32(len(data)), Data: data})
	if err != nil {
		return 0, err
	}
	return resp.Offset, nil
}

// Seek moves a read handle to offset.
func (c *Client) Seek(ctx context.Context, handle int32, offset int64) (int64, error) {
	resp, err := c.Do(ctx, &wire.SeekRequest{Handle: handle, Offset: offset})
	if err != nil {
		return 0, err
	}
	return resp.Offset, nil
}

// Flush makes buffered writes on handle durable.
func (c *Client) Flush(ctx context.Context, handle int32) error {
	_, err := c.Do(ctx, &wire.FlushRequest{Handle: handle})
	return err
}

// Length returns the size of name.
func (c *Client) Length(ctx context.Context, name string) (int64, error) {
	resp, err := c.Do(ctx, &wire.LengthRequest{Name: name})
	if err != nil {
		return 0, err
	}
	return resp.Length, nil
}

// Status pings the broker.
func (c *Client) Status(ctx context.Context) error {
	_, err := c.Do(ctx, &wire.StatusRequest{})
	return err
}

// ReadFile streams the whole of name into w using chunk-sized reads.
func (c *Client) ReadFile(ctx context.Context, name string, w io.Writer, chunk int32) (int64, error) {
	h, err := c.Open(ctx, name, chunk)
	if err != nil {
		return 0, err
	}
	defer func() { _ = c.CloseHandle(ctx, h) }()

	var total int64
	for {
		res, err := c.Read(ctx, h, chunk)
		if err != nil {
			return total, err
		}
		if res.EOF {
			return total, nil
		}
		n, err := w.Write(res.Data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

// WriteFile creates name and copies r into it in chunk-sized writes.
func (c *Client) WriteFile(ctx context.Context, name string, r io.Reader, overwrite bool, chunk int32) (int64, error) {
	h, err := c.Create(ctx, name, overwrite, chunk)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, chunk)
	var total int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := c.Write(ctx, h, buf[:n]); err != nil {
				_ = c.CloseHandle(ctx, h)
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = c.CloseHandle(ctx, h)
			return total, rerr
		}
	}

	if err := c.Flush(ctx, h); err != nil {
		_ = c.CloseHandle(ctx, h)
		return total, err
	}
	return total, c.CloseHandle(ctx, h)
}
