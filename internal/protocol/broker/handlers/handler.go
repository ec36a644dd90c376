// Package handlers implements the broker command handlers. Each handler
// takes a decoded request, works against the open-file table and the
// backend filesystem, and returns a Result holding the encoded response.
// Handlers never return errors: every failure is turned into an error
// frame here and logged.
package handlers

import (
	"context"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/openfile"
)

// Handler serves broker commands against one backend filesystem.
type Handler struct {
	// Table holds every open handle. Shared by all connections.
	Table *openfile.Table

	// FS is the filesystem handles are opened on.
	FS backend.FileSystem

	// MaxIOSize caps the amount a single Read, Pread or Write may move.
	// Zero means no cap.
	MaxIOSize int32
}

// New returns a Handler over fs with an empty table.
func New(fs backend.FileSystem, maxIOSize int32) *Handler {
	return &Handler{
		Table:     openfile.NewTable(),
		FS:        fs,
		MaxIOSize: maxIOSize,
	}
}

// RequestContext carries per-request state into a handler.
type RequestContext struct {
	// Context is detached from connection shutdown; a request that has
	// started runs to completion.
	Context context.Context

	// ClientAddr is the remote address of the connection. It owns every
	// handle opened through it.
	ClientAddr string

	// ConnectionID identifies the connection in logs.
	ConnectionID string
}

// Result is the outcome of one handler call.
type Result struct {
	// Buf is the encoded response body, not yet encapsulated.
	Buf *wire.CommBuf

	// Status duplicates the status inside Buf for metrics and logging.
	Status wire.Status

	// BytesRead is set by Read and Pread.
	BytesRead int

	// BytesWritten is set by Write.
	BytesWritten int
}

func ok(buf *wire.CommBuf) *Result {
	return &Result{Buf: buf, Status: wire.StatusOK}
}

// fail logs err and returns the error frame for cmd.
func fail(ctx *RequestContext, cmd wire.Command, err error) *Result {
	status, msg := Classify(err)

	args := []any{
		logger.Command(cmd.String()),
		logger.Status(int32(status)),
		logger.Err(err),
	}
	if status == wire.StatusIOError {
		logger.ErrorCtx(ctx.Context, "Request failed", args...)
	} else {
		logger.WarnCtx(ctx.Context, "Request rejected", args...)
	}

	return &Result{Buf: wire.EncodeError(cmd, status, msg), Status: status}
}

// ErrorFrame builds an error result without logging. The dispatcher uses
// it for failures that happen before a handler runs.
func ErrorFrame(cmd wire.Command, err error) *Result {
	status, msg := Classify(err)
	return &Result{Buf: wire.EncodeError(cmd, status, msg), Status: status}
}

func (h *Handler) lookup(id int32) (*openfile.Handle, error) {
	fh, found := h.Table.Lookup(id)
	if !found {
		return nil, wire.NewStatusError(wire.StatusBadFileHandle, nil, "no open file with handle %d", id)
	}
	return fh, nil
}

func (h *Handler) checkAmount(amount int32) error {
	if amount < 0 {
		return wire.NewStatusError(wire.StatusInvalidArgument, nil, "negative amount %d", amount)
	}
	if h.MaxIOSize > 0 && amount > h.MaxIOSize {
		return wire.NewStatusError(wire.StatusInvalidArgument, nil, "amount %d exceeds limit %d", amount, h.MaxIOSize)
	}
	return nil
}

func withHandle(ctx *RequestContext, id int32) *RequestContext {
	lc := logger.FromContext(ctx.Context)
	if lc == nil {
		return ctx
	}
	c := *ctx
	c.Context = logger.WithContext(ctx.Context, lc.WithHandle(id))
	return &c
}
