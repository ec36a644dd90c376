package handlers

import (
	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
)

// Length serves LENGTH: the size in bytes of the named file.
func (h *Handler) Length(ctx *RequestContext, req *wire.LengthRequest) *Result {
	n, err := h.FS.Length(ctx.Context, req.Name)
	if err != nil {
		return fail(ctx, wire.CmdLength, err)
	}

	logger.DebugCtx(ctx.Context, "LENGTH", logger.Path(req.Name), "length", n)
	return ok(wire.EncodeLength(n))
}

// Status serves STATUS, a liveness probe with an empty success body.
func (h *Handler) Status(_ *RequestContext, _ *wire.StatusRequest) *Result {
	return ok(wire.EncodeStatus())
}
