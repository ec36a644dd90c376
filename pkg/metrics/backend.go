package metrics

import (
	"time"
)

// BackendMetrics records backend filesystem operations.
type BackendMetrics interface {
	// ObserveOperation records an operation ("open_read", "open_write",
	// "length", "read", "write", "flush", "close") with its duration and
	// outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes moved by a stream operation.
	RecordBytes(operation string, bytes int64)
}

// NewBackendMetrics returns the Prometheus-backed BackendMetrics for the
// named backend, or nil if metrics are not enabled.
func NewBackendMetrics(backend string) BackendMetrics {
	if !IsEnabled() || newPrometheusBackendMetrics == nil {
		return nil
	}
	return newPrometheusBackendMetrics(backend)
}

var newPrometheusBackendMetrics func(backend string) BackendMetrics

// RegisterBackendMetricsConstructor registers the Prometheus constructor.
func RegisterBackendMetricsConstructor(constructor func(backend string) BackendMetrics) {
	newPrometheusBackendMetrics = constructor
}

// ObserveOperation records an operation on m. m may be nil.
//
//	start := time.Now()
//	n, err := fs.Length(ctx, name)
//	metrics.ObserveOperation(m, "length", time.Since(start), err)
func ObserveOperation(m BackendMetrics, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(operation, duration, err)
	}
}

// RecordBytes records bytes on m. m may be nil.
func RecordBytes(m BackendMetrics, operation string, bytes int64) {
	if m != nil {
		m.RecordBytes(operation, bytes)
	}
}
