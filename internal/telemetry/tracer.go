package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for broker spans. Keys follow OpenTelemetry semantic
// conventions where one exists.
const (
	AttrClientAddr   = "client.address"
	AttrConnectionID = "broker.connection_id"
	AttrRequestID    = "broker.request_id"
	AttrCommand      = "broker.command"
	AttrHandle       = "broker.handle"
	AttrStatus       = "broker.status"
	AttrStatusMsg    = "broker.status_msg"
	AttrBodySize     = "broker.body_size"

	AttrPath         = "fs.path"
	AttrOffset       = "fs.offset"
	AttrCount        = "fs.count"
	AttrBytesRead    = "fs.bytes_read"
	AttrBytesWritten = "fs.bytes_written"

	AttrBackend   = "backend.type"
	AttrOperation = "backend.operation"
)

// Span names.
const (
	SpanBrokerRequest = "broker.request"
	SpanBackendOp     = "backend.op"
)

// ClientAddr returns an attribute for the remote address of a connection.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ConnectionID returns an attribute for the per-connection identifier.
func ConnectionID(id string) attribute.KeyValue {
	return attribute.String(AttrConnectionID, id)
}

// RequestID returns an attribute for the envelope id of a request.
func RequestID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrRequestID, int64(id))
}

// Command returns an attribute for the command name.
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// Handle returns an attribute for an open-file handle.
func Handle(h uint32) attribute.KeyValue {
	return attribute.Int64(AttrHandle, int64(h))
}

// Status returns an attribute for the numeric response status.
func Status(code uint32) attribute.KeyValue {
	return attribute.Int64(AttrStatus, int64(code))
}

// StatusMsg returns an attribute for the response status name.
func StatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// BodySize returns an attribute for the request body length.
func BodySize(n int) attribute.KeyValue {
	return attribute.Int(AttrBodySize, n)
}

// Path returns an attribute for a file path.
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// Offset returns an attribute for a stream offset.
func Offset(off int64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, off)
}

// Count returns an attribute for a requested byte count.
func Count(n int32) attribute.KeyValue {
	return attribute.Int64(AttrCount, int64(n))
}

// BytesRead returns an attribute for bytes returned to the client.
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// BytesWritten returns an attribute for bytes accepted from the client.
func BytesWritten(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesWritten, n)
}

// Backend returns an attribute for the backend type.
func Backend(name string) attribute.KeyValue {
	return attribute.String(AttrBackend, name)
}

// Operation returns an attribute for a backend operation name.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// StartRequestSpan starts the server span for one broker request.
func StartRequestSpan(ctx context.Context, connID string, reqID uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		ConnectionID(connID),
		RequestID(reqID),
	}, attrs...)

	return StartSpan(ctx, SpanBrokerRequest,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(all...))
}

// StartBackendSpan starts a span around a storage backend operation.
func StartBackendSpan(ctx context.Context, backend, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		Backend(backend),
		Operation(op),
	}, attrs...)

	return StartSpan(ctx, SpanBackendOp+"."+op, trace.WithAttributes(all...))
}
