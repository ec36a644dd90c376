// Package client is a Go client for the broker wire protocol. A Client
// multiplexes concurrent calls over one TCP connection and matches
// responses to requests by envelope id.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
)

// ErrClosed is returned by calls on a closed client or after the
// connection failed.
var ErrClosed = errors.New("client closed")

// Options configures Dial.
type Options struct {
	// DialTimeout bounds connection establishment. Zero means 10s.
	DialTimeout time.Duration

	// MaxFrameSize bounds inbound responses. Zero disables the check.
	MaxFrameSize uint32
}

type reply struct {
	body []byte
	err  error
}

// Client is a broker connection. It is safe for concurrent use.
type Client struct {
	conn    net.Conn
	maxSize uint32
	nextID  atomic.Uint32

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint32]chan reply
	err     error // set once the read loop stops

	done chan struct{}
}

// Dial connects to the broker at addr.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial broker %s: %w", addr, err)
	}
	return New(conn, opts), nil
}

// New wraps an established connection.
func New(conn net.Conn, opts Options) *Client {
	c := &Client{
		conn:    conn,
		maxSize: opts.MaxFrameSize,
		pending: make(map[uint32]chan reply),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close closes the connection. Outstanding calls fail with ErrClosed.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)

	var err error
	for {
		var hdr wire.Header
		var body []byte
		if hdr, body, err = c.readFrame(); err != nil {
			break
		}
		c.mu.Lock()
		ch, ok := c.pending[hdr.ID]
		delete(c.pending, hdr.ID)
		c.mu.Unlock()
		if ok {
			ch <- reply{body: body}
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = ErrClosed
	}
	c.mu.Lock()
	c.err = err
	for id, ch := range c.pending {
		ch <- reply{err: err}
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

func (c *Client) readFrame() (wire.Header, []byte, error) {
	var raw [wire.HeaderSize]byte
	if _, err := io.ReadFull(c.conn, raw[:]); err != nil {
		return wire.Header{}, nil, err
	}
	hdr, err := wire.DecodeHeader(raw[:], c.maxSize)
	if err != nil {
		return hdr, nil, err
	}
	body := make([]byte, hdr.BodyLen())
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return hdr, nil, fmt.Errorf("read response body: %w", err)
	}
	return hdr, body, nil
}

// Do sends req and waits for its response. A non-OK status is returned as
// both the response and a *wire.StatusError.
func (c *Client) Do(ctx context.Context, req wire.Request) (*wire.Response, error) {
	id := c.nextID.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.send(ctx, wire.EncodeRequest(wire.NewRequestHeader(id, 0), req)); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		resp, err := wire.DecodeResponse(req.Command(), r.body)
		if err != nil {
			return nil, err
		}
		return resp, resp.Err()
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, buf *wire.CommBuf) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := buf.WriteTo(c.conn); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return nil
}

func (c *Client) forget(id uint32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
