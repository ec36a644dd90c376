package handlers

import (
	"fmt"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
)

// Write serves WRITE: append req.Data at the handle's current position.
// The response carries the position before the write and the number of
// bytes written.
func (h *Handler) Write(ctx *RequestContext, req *wire.WriteRequest) *Result {
	ctx = withHandle(ctx, req.Handle)

	fh, err := h.lookup(req.Handle)
	if err != nil {
		return fail(ctx, wire.CmdWrite, err)
	}
	if fh.Output == nil {
		return fail(ctx, wire.CmdWrite, wire.NewStatusError(wire.StatusIOError, nil,
			"handle %d is not open for writing", req.Handle))
	}
	if err := h.checkAmount(req.Amount); err != nil {
		return fail(ctx, wire.CmdWrite, err)
	}

	offset := fh.Output.Offset()
	n, err := fh.Output.Write(req.Data)
	if err != nil {
		return fail(ctx, wire.CmdWrite, fmt.Errorf("write %s: %w", fh.Path, err))
	}

	logger.DebugCtx(ctx.Context, "WRITE",
		logger.Path(fh.Path),
		logger.Offset(offset),
		logger.BytesWritten(n))

	return &Result{
		Buf:          wire.EncodeWrite(req.Handle, offset, int32(n)),
		Status:       wire.StatusOK,
		BytesWritten: n,
	}
}

// Flush serves FLUSH: make everything written through the handle durable
// in the backend.
func (h *Handler) Flush(ctx *RequestContext, req *wire.FlushRequest) *Result {
	ctx = withHandle(ctx, req.Handle)

	fh, err := h.lookup(req.Handle)
	if err != nil {
		return fail(ctx, wire.CmdFlush, err)
	}
	if fh.Output == nil {
		return fail(ctx, wire.CmdFlush, wire.NewStatusError(wire.StatusIOError, nil,
			"handle %d is not open for writing", req.Handle))
	}
	if err := fh.Output.Flush(); err != nil {
		return fail(ctx, wire.CmdFlush, fmt.Errorf("flush %s: %w", fh.Path, err))
	}

	logger.DebugCtx(ctx.Context, "FLUSH", logger.Path(fh.Path), logger.Offset(fh.Output.Offset()))
	return ok(wire.EncodeHandle(wire.CmdFlush, req.Handle))
}
