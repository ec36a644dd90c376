package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/fsbroker/internal/bytesize"
	"github.com/marmos91/fsbroker/internal/logger"
	protocol "github.com/marmos91/fsbroker/internal/protocol/broker"
	"github.com/marmos91/fsbroker/internal/protocol/broker/handlers"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/internal/telemetry"
	"github.com/marmos91/fsbroker/pkg/bufpool"
)

// connection serves one client. Frames are read in order on the serve
// goroutine; each request then runs on its own goroutine, so responses may
// be written out of order and are matched to requests by envelope id.
type connection struct {
	server *Server
	conn   net.Conn
	id     string
	addr   string

	requestSem chan struct{}
	wg         sync.WaitGroup // in-flight requests
	writeMu    sync.Mutex     // responses must not interleave
}

func newConnection(s *Server, conn net.Conn) *connection {
	return &connection{
		server:     s,
		conn:       conn,
		id:         uuid.NewString(),
		addr:       conn.RemoteAddr().String(),
		requestSem: make(chan struct{}, s.config.MaxRequestsPerConnection),
	}
}

func (c *connection) serve() {
	defer c.close()

	for {
		select {
		case <-c.server.shutdown:
			logger.Debug("Connection closed due to server shutdown", logger.ConnectionID(c.id))
			return
		default:
		}

		hdr, body, err := c.readFrame()
		if err != nil {
			c.logReadError(err)
			return
		}
		if body == nil {
			continue
		}

		c.requestSem <- struct{}{}
		c.wg.Add(1)
		go c.process(hdr, body)
	}
}

// readFrame reads one envelope and its body. The body is a pooled buffer
// the caller must return with bufpool.Put. A frame that is not a request is
// skipped and reported with a nil body.
func (c *connection) readFrame() (wire.Header, []byte, error) {
	timeouts := c.server.config.Timeouts
	if timeouts.Idle > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeouts.Idle)); err != nil {
			return wire.Header{}, nil, fmt.Errorf("set idle deadline: %w", err)
		}
	}

	var raw [wire.HeaderSize]byte
	if _, err := io.ReadFull(c.conn, raw[:]); err != nil {
		return wire.Header{}, nil, err
	}

	if timeouts.Read > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeouts.Read)); err != nil {
			return wire.Header{}, nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	hdr, err := wire.DecodeHeader(raw[:], uint32(c.server.config.MaxFrameSize))
	if err != nil {
		// The stream cannot be resynchronised after a bad envelope. Tell
		// the client why before hanging up.
		c.rejectFrame(hdr, err)
		return hdr, nil, err
	}

	n := hdr.BodyLen()
	if !hdr.IsRequest() {
		logger.Warn("Discarding non-request frame",
			logger.ConnectionID(c.id),
			"id", hdr.ID,
			"size", bytesize.ByteSize(n))
		if _, err := io.CopyN(io.Discard, c.conn, int64(n)); err != nil {
			return hdr, nil, err
		}
		return hdr, nil, nil
	}

	body := bufpool.Get(n)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		bufpool.Put(body)
		return hdr, nil, fmt.Errorf("read body: %w", err)
	}
	return hdr, body, nil
}

func (c *connection) rejectFrame(hdr wire.Header, err error) {
	logger.Warn("Malformed frame header",
		logger.ClientAddr(c.addr),
		logger.ConnectionID(c.id),
		logger.Err(err))

	res := handlers.ErrorFrame(protocol.NoCommand, err)
	res.Buf.Encapsulate(hdr.Response())
	c.send(context.Background(), protocol.NoCommand, res.Buf)
	res.Buf.Release()
}

func (c *connection) logReadError(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("Connection closed by client", logger.ConnectionID(c.id))
	case errors.Is(err, wire.ErrBadHeader), errors.Is(err, wire.ErrFrameTooLarge):
		// already logged by rejectFrame
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.Debug("Connection timed out", logger.ConnectionID(c.id), logger.Err(err))
	default:
		logger.Debug("Error reading frame", logger.ConnectionID(c.id), logger.Err(err))
	}
}

// process runs one request through the dispatcher and sends its response.
func (c *connection) process(hdr wire.Header, body []byte) {
	defer c.finishRequest(hdr.ID)
	defer bufpool.Put(body)

	start := time.Now()
	m := c.server.metrics

	ctx, span := telemetry.StartRequestSpan(c.server.requestCtx, c.id, hdr.ID,
		telemetry.ClientAddr(c.addr),
		telemetry.BodySize(len(body)))
	defer span.End()

	lc := logger.NewLogContext(c.addr)
	lc.ConnectionID = c.id
	lc.RequestID = hdr.ID
	lc = lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	cmd := peekCommand(body)
	if m != nil {
		m.RecordRequestStart(cmd.String())
		defer m.RecordRequestEnd(cmd.String())
	}

	res := protocol.Dispatch(&handlers.RequestContext{
		Context:      logger.WithContext(ctx, lc.WithCommand(cmd.String())),
		ClientAddr:   c.addr,
		ConnectionID: c.id,
	}, c.server.handler, body)

	span.SetAttributes(
		telemetry.Command(res.Command.String()),
		telemetry.Status(uint32(res.Status)),
		telemetry.StatusMsg(res.Status.String()))

	res.Buf.Encapsulate(hdr.Response())
	c.send(ctx, res.Command, res.Buf)
	res.Buf.Release()

	if m != nil {
		name := res.Command.String()
		if res.BytesRead > 0 {
			m.RecordBytesTransferred(name, "read", uint64(res.BytesRead))
		}
		if res.BytesWritten > 0 {
			m.RecordBytesTransferred(name, "write", uint64(res.BytesWritten))
		}
		m.SetOpenHandles(c.server.handler.Table.Len())
		m.RecordRequest(name, time.Since(start), res.Status.String())
	}

	logger.DebugCtx(ctx, "Request served",
		logger.Command(res.Command.String()),
		logger.Status(int32(res.Status)),
		logger.DurationMs(lc.DurationMs()))
}

// send hands buf to the server's sender. A failed send is logged and
// counted; no second response is attempted.
func (c *connection) send(ctx context.Context, cmd wire.Command, buf *wire.CommBuf) {
	if err := c.server.sender.SendResponse(c.addr, buf); err != nil {
		logger.WarnCtx(ctx, "Failed to send response",
			logger.Command(cmd.String()),
			logger.ClientAddr(c.addr),
			logger.Err(err))
		telemetry.RecordError(ctx, err)
		if c.server.metrics != nil {
			c.server.metrics.RecordSendFailure(cmd.String())
		}
	}
}

// write serialises buf onto the socket under the write timeout.
func (c *connection) write(buf *wire.CommBuf) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if t := c.server.config.Timeouts.Write; t > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := buf.WriteTo(c.conn); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (c *connection) finishRequest(id uint32) {
	<-c.requestSem
	c.wg.Done()

	if r := recover(); r != nil {
		logger.Error("Panic in request goroutine",
			logger.ConnectionID(c.id),
			"id", id,
			"error", r,
			"stack", string(debug.Stack()))
	}
}

// close waits for in-flight requests, closes the handles this connection
// still owns and then the socket.
func (c *connection) close() {
	if r := recover(); r != nil {
		logger.Error("Panic in connection handler",
			logger.ConnectionID(c.id),
			"error", r,
			"stack", string(debug.Stack()))
	}

	c.wg.Wait()

	lc := logger.NewLogContext(c.addr)
	lc.ConnectionID = c.id
	c.server.handler.CloseOwned(&handlers.RequestContext{
		Context:      logger.WithContext(context.Background(), lc),
		ClientAddr:   c.addr,
		ConnectionID: c.id,
	})

	_ = c.conn.Close()
}

// peekCommand returns the command code of body without consuming it.
func peekCommand(body []byte) wire.Command {
	cmd, err := wire.DecodeCommand(wire.NewReader(body))
	if err != nil {
		return protocol.NoCommand
	}
	return cmd
}
