package handlers

import (
	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/bufpool"
)

// Pread serves PREAD: a positional read at req.Offset. The stream position
// is not moved. The response echoes the requested offset.
func (h *Handler) Pread(ctx *RequestContext, req *wire.PreadRequest) *Result {
	ctx = withHandle(ctx, req.Handle)

	fh, err := h.lookup(req.Handle)
	if err != nil {
		return fail(ctx, wire.CmdPread, err)
	}
	if fh.Input == nil {
		return fail(ctx, wire.CmdPread, wire.NewStatusError(wire.StatusIOError, nil,
			"handle %d is not open for reading", req.Handle))
	}
	if req.Offset < 0 {
		return fail(ctx, wire.CmdPread, wire.NewStatusError(wire.StatusInvalidArgument, nil,
			"negative offset %d", req.Offset))
	}
	if err := h.checkAmount(req.Amount); err != nil {
		return fail(ctx, wire.CmdPread, err)
	}

	buf := bufpool.Get(int(req.Amount))
	n, err := fh.Input.ReadAt(buf, req.Offset)
	count, err := readCount(n, err, len(buf))
	if err != nil {
		bufpool.Put(buf)
		return fail(ctx, wire.CmdPread, err)
	}

	logger.DebugCtx(ctx.Context, "PREAD",
		logger.Path(fh.Path),
		logger.Offset(req.Offset),
		logger.Count(count))

	return &Result{
		Buf:       wire.EncodeSuccess(wire.CmdPread, wire.StatusOK, req.Handle, req.Offset, count, buf, func() { bufpool.Put(buf) }),
		Status:    wire.StatusOK,
		BytesRead: max(int(count), 0),
	}
}
