package handlers

import (
	"errors"
	"io/fs"

	"github.com/marmos91/fsbroker/internal/protocol/broker/wire"
	"github.com/marmos91/fsbroker/pkg/backend"
)

// Classify maps err to the wire status and message of its error frame.
// A *wire.StatusError anywhere in the chain wins; otherwise backend and
// io/fs sentinels are matched with errors.Is. Anything unrecognised is an
// I/O error.
func Classify(err error) (wire.Status, string) {
	if err == nil {
		return wire.StatusOK, ""
	}

	var se *wire.StatusError
	if errors.As(err, &se) {
		return se.Status, se.Message()
	}

	var status wire.Status
	switch {
	case errors.Is(err, wire.ErrTruncatedMessage), errors.Is(err, wire.ErrBadHeader),
		errors.Is(err, wire.ErrFrameTooLarge):
		status = wire.StatusProtocolError
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		status = wire.StatusFileNotFound
	case errors.Is(err, backend.ErrInvalidPath):
		status = wire.StatusBadFilename
	case errors.Is(err, backend.ErrPermission), errors.Is(err, fs.ErrPermission):
		status = wire.StatusPermissionDenied
	case errors.Is(err, backend.ErrInvalidOffset):
		status = wire.StatusInvalidArgument
	default:
		status = wire.StatusIOError
	}
	return status, err.Error()
}
