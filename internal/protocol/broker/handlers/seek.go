package handlers

import (
	"fmt"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
)

// Seek serves SEEK: move a read handle's position. Seeking past the end is
// allowed; the next Read reports end of stream.
func (h *Handler) Seek(ctx *RequestContext, req *wire.SeekRequest) *Result {
	ctx = withHandle(ctx, req.Handle)

	fh, err := h.lookup(req.Handle)
	if err != nil {
		return fail(ctx, wire.CmdSeek, err)
	}
	if fh.Input == nil {
		return fail(ctx, wire.CmdSeek, wire.NewStatusError(wire.StatusIOError, nil,
			"handle %d is not open for reading", req.Handle))
	}
	if req.Offset < 0 {
		return fail(ctx, wire.CmdSeek, wire.NewStatusError(wire.StatusInvalidArgument, nil,
			"negative offset %d", req.Offset))
	}

	pos, err := fh.Input.Seek(req.Offset)
	if err != nil {
		return fail(ctx, wire.CmdSeek, fmt.Errorf("seek %s: %w", fh.Path, err))
	}

	logger.DebugCtx(ctx.Context, "SEEK", logger.Path(fh.Path), logger.Offset(pos))
	return ok(wire.EncodeSeek(req.Handle, pos))
}
