package handlers

import (
	"time"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/openfile"
)

// Open serves OPEN: open an existing file for reading and register a new
// handle owned by the requesting connection.
func (h *Handler) Open(ctx *RequestContext, req *wire.OpenRequest) *Result {
	in, err := h.FS.OpenRead(ctx.Context, req.Name, int(req.BufferSize))
	if err != nil {
		return fail(ctx, wire.CmdOpen, err)
	}

	id := h.Table.Insert(&openfile.Handle{
		Path:    req.Name,
		Owner:   ctx.ClientAddr,
		Input:   in,
		Created: time.Now(),
	})

	logger.InfoCtx(ctx.Context, "Opened for reading",
		logger.Path(req.Name),
		logger.Handle(id))
	return ok(wire.EncodeHandle(wire.CmdOpen, id))
}

// Create serves CREATE: open a file for writing, creating it if needed.
// Without the overwrite flag an existing file is an error.
func (h *Handler) Create(ctx *RequestContext, req *wire.CreateRequest) *Result {
	out, err := h.FS.OpenWrite(ctx.Context, req.Name, backend.WriteOptions{
		Overwrite:  req.Overwrite,
		BufferSize: int(req.BufferSize),
	})
	if err != nil {
		return fail(ctx, wire.CmdCreate, err)
	}

	id := h.Table.Insert(&openfile.Handle{
		Path:    req.Name,
		Owner:   ctx.ClientAddr,
		Output:  out,
		Created: time.Now(),
	})

	logger.InfoCtx(ctx.Context, "Opened for writing",
		logger.Path(req.Name),
		logger.Handle(id),
		"overwrite", req.Overwrite)
	return ok(wire.EncodeHandle(wire.CmdCreate, id))
}

// Close serves CLOSE: detach the handle from the table and close its
// stream. Once detached the id is gone even if closing the stream fails.
func (h *Handler) Close(ctx *RequestContext, req *wire.CloseRequest) *Result {
	ctx = withHandle(ctx, req.Handle)

	fh, found := h.Table.Remove(req.Handle)
	if !found {
		return fail(ctx, wire.CmdClose, wire.NewStatusError(wire.StatusBadFileHandle, nil,
			"no open file with handle %d", req.Handle))
	}
	if err := fh.Close(); err != nil {
		return fail(ctx, wire.CmdClose, err)
	}

	logger.InfoCtx(ctx.Context, "Closed", logger.Path(fh.Path))
	return ok(wire.EncodeHandle(wire.CmdClose, req.Handle))
}

// CloseOwned closes every handle owned by clientAddr. The transport calls
// it when a connection goes away. It returns the number of handles closed.
func (h *Handler) CloseOwned(ctx *RequestContext) int {
	handles := h.Table.RemoveAll(ctx.ClientAddr)
	for _, fh := range handles {
		if err := fh.Close(); err != nil {
			logger.WarnCtx(ctx.Context, "Closing orphaned handle failed",
				logger.Handle(fh.ID),
				logger.Path(fh.Path),
				logger.Err(err))
		}
	}
	if len(handles) > 0 {
		logger.InfoCtx(ctx.Context, "Closed handles of departed connection", "count", len(handles))
	}
	return len(handles)
}
