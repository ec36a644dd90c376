package handlers

import (
	"errors"
	"io"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/bufpool"
)

// Read serves READ: read up to req.Amount bytes from the handle's current
// position.
//
// The response carries the position before the read and the number of
// bytes read. A short read is a success. At end of stream the count is -1
// and no payload is attached.
//
// The data buffer comes from bufpool and travels as the response's ext
// payload; it is returned to the pool when the frame is released.
func (h *Handler) Read(ctx *RequestContext, req *wire.ReadRequest) *Result {
	ctx = withHandle(ctx, req.Handle)

	fh, err := h.lookup(req.Handle)
	if err != nil {
		return fail(ctx, wire.CmdRead, err)
	}
	if fh.Input == nil {
		return fail(ctx, wire.CmdRead, wire.NewStatusError(wire.StatusIOError, nil,
			"handle %d is not open for reading", req.Handle))
	}
	if err := h.checkAmount(req.Amount); err != nil {
		return fail(ctx, wire.CmdRead, err)
	}

	offset := fh.Input.Offset()
	buf := bufpool.Get(int(req.Amount))

	n, err := fh.Input.Read(buf)
	count, err := readCount(n, err, len(buf))
	if err != nil {
		bufpool.Put(buf)
		return fail(ctx, wire.CmdRead, err)
	}

	logger.DebugCtx(ctx.Context, "READ",
		logger.Path(fh.Path),
		logger.Offset(offset),
		logger.Count(count))

	return &Result{
		Buf:       wire.EncodeSuccess(wire.CmdRead, wire.StatusOK, req.Handle, offset, count, buf, func() { bufpool.Put(buf) }),
		Status:    wire.StatusOK,
		BytesRead: max(int(count), 0),
	}
}

// readCount folds a Read or ReadAt result into the wire count. Bytes
// returned alongside an error are still reported; the error resurfaces on
// the next call. End of stream with nothing read is -1.
func readCount(n int, err error, asked int) (int32, error) {
	switch {
	case n > 0:
		return int32(n), nil
	case errors.Is(err, io.EOF) && asked > 0:
		return -1, nil
	case errors.Is(err, io.EOF):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return 0, nil
}
