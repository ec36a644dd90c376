package client

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
)

// fakeBroker reads n requests from conn and answers them in reverse order.
func fakeBroker(t *testing.T, conn net.Conn, n int, answer func(wire.Header, []byte) *wire.CommBuf) {
	t.Helper()
	go func() {
		type req struct {
			hdr  wire.Header
			body []byte
		}
		var reqs []req
		for i := 0; i < n; i++ {
			raw := make([]byte, wire.HeaderSize)
			if _, err := io.ReadFull(conn, raw); err != nil {
				return
			}
			hdr, err := wire.DecodeHeader(raw, 0)
			if err != nil {
				return
			}
			body := make([]byte, hdr.BodyLen())
			if _, err := io.ReadFull(conn, body); err != nil {
				return
			}
			reqs = append(reqs, req{hdr, body})
		}
		for i := len(reqs) - 1; i >= 0; i-- {
			buf := answer(reqs[i].hdr, reqs[i].body)
			buf.Encapsulate(reqs[i].hdr.Response())
			if _, err := buf.WriteTo(conn); err != nil {
				return
			}
		}
	}()
}

func pipe(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	c := New(local, Options{})
	t.Cleanup(func() {
		_ = c.Close()
		_ = remote.Close()
	})
	return c, remote
}

func TestResponsesMatchedByID(t *testing.T) {
	c, remote := pipe(t)
	fakeBroker(t, remote, 2, func(_ wire.Header, body []byte) *wire.CommBuf {
		req, err := wire.DecodeLengthRequest(skipCommand(body))
		require.NoError(t, err)
		return wire.EncodeLength(int64(len(req.Name)))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		n   int64
		err error
	}
	short := make(chan result, 1)
	go func() {
		n, err := c.Length(ctx, "/a")
		short <- result{n, err}
	}()
	// Make sure "/a" is sent first so the fake answers it last.
	time.Sleep(50 * time.Millisecond)

	n, err := c.Length(ctx, "/longer")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	r := <-short
	require.NoError(t, r.err)
	assert.Equal(t, int64(2), r.n)
}

func TestErrorStatusReturned(t *testing.T) {
	c, remote := pipe(t)
	fakeBroker(t, remote, 1, func(wire.Header, []byte) *wire.CommBuf {
		return wire.EncodeError(wire.CmdOpen, wire.StatusFileNotFound, "no such file")
	})

	_, err := c.Open(context.Background(), "/missing", 0)
	var se *wire.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, wire.StatusFileNotFound, se.Status)
	assert.Contains(t, err.Error(), "no such file")
}

func TestReadReportsEOF(t *testing.T) {
	c, remote := pipe(t)
	fakeBroker(t, remote, 1, func(wire.Header, []byte) *wire.CommBuf {
		return wire.EncodeSuccess(wire.CmdRead, wire.StatusOK, 3, 6, -1, nil, nil)
	})

	res, err := c.Read(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.True(t, res.EOF)
	assert.Equal(t, int64(6), res.Offset)
	assert.Empty(t, res.Data)
}

func TestPendingCallsFailWhenConnectionDrops(t *testing.T) {
	c, remote := pipe(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Length(context.Background(), "/f")
		errCh <- err
	}()

	// Consume the request, then hang up without answering.
	raw := make([]byte, wire.HeaderSize)
	_, err := io.ReadFull(remote, raw)
	require.NoError(t, err)
	require.NoError(t, remote.Close())

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("call did not fail")
	}

	_, err = c.Length(context.Background(), "/f")
	assert.Error(t, err)
}

func TestContextCancelAbandonsCall(t *testing.T) {
	c, remote := pipe(t)
	go func() { _, _ = io.Copy(io.Discard, remote) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Status(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.pending)
}

func skipCommand(body []byte) *wire.Reader {
	r := wire.NewReader(body)
	_, _ = wire.DecodeCommand(r)
	return r
}
