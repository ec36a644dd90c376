package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys. Use these consistently so broker logs can be queried
// by handle, command and connection.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Protocol
	KeyCommand   = "command"    // READ, WRITE, OPEN, ...
	KeyHandle    = "handle"     // open file handle id
	KeyStatus    = "status"     // wire status code
	KeyStatusMsg = "status_msg" // human-readable status
	KeyRequestID = "request_id" // envelope request id

	// Filesystem
	KeyPath    = "path"
	KeyBackend = "backend"
	KeyLength  = "length"

	// I/O
	KeyOffset       = "offset"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyEOF          = "eof"

	// Connection
	KeyClientAddr   = "client_addr"
	KeyConnectionID = "connection_id"
	KeyAddress      = "address"

	// Metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// Command returns a slog.Attr for a command name.
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// Handle returns a slog.Attr for an open file handle id.
func Handle(id int32) slog.Attr {
	return slog.Int(KeyHandle, int(id))
}

// Status returns a slog.Attr for a wire status code, rendered in hex.
func Status(code int32) slog.Attr {
	return slog.String(KeyStatus, statusHex(code))
}

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Offset returns a slog.Attr for a stream offset.
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Count returns a slog.Attr for a requested byte count.
func Count(c int32) slog.Attr {
	return slog.Int(KeyCount, int(c))
}

// BytesRead returns a slog.Attr for bytes actually read.
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for bytes actually written.
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// ClientAddr returns a slog.Attr for a remote address.
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// ConnectionID returns a slog.Attr for a transport connection id.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func statusHex(code int32) string {
	return fmt.Sprintf("0x%08x", uint32(code))
}
