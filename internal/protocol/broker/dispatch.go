// Package broker routes decoded broker requests to their command handlers.
//
// The transport hands Dispatch a request body (envelope stripped). Dispatch
// reads the command code, decodes the command's fixed layout, runs the
// handler and always returns exactly one response. Decode failures,
// unknown commands and handler panics all become error frames.
package broker

import (
	"fmt"
	"runtime/debug"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/handlers"
	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
)

// NoCommand is echoed in the error frame for a body too short to carry a
// command code.
const NoCommand wire.Command = 0xffff

// HandlerResult is the response to one request plus the metadata the
// transport needs for logging and metrics.
type HandlerResult struct {
	*handlers.Result

	// Command is the decoded command code, NoCommand if none was present.
	Command wire.Command
}

// Dispatch serves one request body. It never returns nil and never panics.
func Dispatch(ctx *handlers.RequestContext, h *handlers.Handler, body []byte) (result *HandlerResult) {
	r := wire.NewReader(body)

	cmd, err := wire.DecodeCommand(r)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Request without command code", logger.Err(err))
		return &HandlerResult{Result: handlers.ErrorFrame(NoCommand, err), Command: NoCommand}
	}

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorCtx(ctx.Context, "Panic in command handler",
				logger.Command(cmd.String()),
				"panic", p,
				"stack", string(debug.Stack()))
			result = &HandlerResult{
				Result:  handlers.ErrorFrame(cmd, wire.NewStatusError(wire.StatusIOError, nil, "internal error: %v", p)),
				Command: cmd,
			}
		}
	}()

	return &HandlerResult{Result: route(ctx, h, cmd, r), Command: cmd}
}

// route is the exhaustive switch over served commands.
func route(ctx *handlers.RequestContext, h *handlers.Handler, cmd wire.Command, r *wire.Reader) *handlers.Result {
	switch cmd {
	case wire.CmdOpen:
		return serve(ctx, cmd, r, wire.DecodeOpenRequest, h.Open)
	case wire.CmdCreate:
		return serve(ctx, cmd, r, wire.DecodeCreateRequest, h.Create)
	case wire.CmdClose:
		return serve(ctx, cmd, r, wire.DecodeCloseRequest, h.Close)
	case wire.CmdRead:
		return serve(ctx, cmd, r, wire.DecodeReadRequest, h.Read)
	case wire.CmdWrite:
		return serve(ctx, cmd, r, wire.DecodeWriteRequest, h.Write)
	case wire.CmdSeek:
		return serve(ctx, cmd, r, wire.DecodeSeekRequest, h.Seek)
	case wire.CmdLength:
		return serve(ctx, cmd, r, wire.DecodeLengthRequest, h.Length)
	case wire.CmdPread:
		return serve(ctx, cmd, r, wire.DecodePreadRequest, h.Pread)
	case wire.CmdStatus:
		return h.Status(ctx, &wire.StatusRequest{})
	case wire.CmdFlush:
		return serve(ctx, cmd, r, wire.DecodeFlushRequest, h.Flush)
	}

	logger.WarnCtx(ctx.Context, "Unknown command", logger.Command(cmd.String()))
	return handlers.ErrorFrame(cmd, wire.NewStatusError(wire.StatusUnknownCommand, nil,
		"unknown command %s", cmd))
}

// serve decodes the request for cmd and runs handle. A body shorter than
// the command's layout is answered with a protocol error and never
// reaches the handler.
func serve[R any](
	ctx *handlers.RequestContext,
	cmd wire.Command,
	r *wire.Reader,
	decode func(*wire.Reader) (R, error),
	handle func(*handlers.RequestContext, R) *handlers.Result,
) *handlers.Result {
	req, err := decode(r)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Malformed request",
			logger.Command(cmd.String()),
			logger.Err(err))
		return handlers.ErrorFrame(cmd, fmt.Errorf("decode %s: %w", cmd, err))
	}
	return handle(ctx, req)
}
