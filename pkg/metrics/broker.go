package metrics

import (
	"time"
)

// BrokerMetrics provides observability for the broker transport and its
// command handlers.
//
// Pass nil to disable metrics collection with zero overhead.
type BrokerMetrics interface {
	// RecordRequest records a completed command with its duration and
	// result status name ("OK", "BAD_FILE_HANDLE", ...).
	RecordRequest(command string, duration time.Duration, status string)

	// RecordRequestStart increments the in-flight gauge for command.
	RecordRequestStart(command string)

	// RecordRequestEnd decrements the in-flight gauge for command.
	RecordRequestEnd(command string)

	// RecordBytesTransferred records payload bytes moved by READ, PREAD or
	// WRITE. direction is "read" or "write".
	RecordBytesTransferred(command string, direction string, bytes uint64)

	// RecordSendFailure counts a response that could not be delivered.
	RecordSendFailure(command string)

	// SetOpenHandles updates the open-file table size.
	SetOpenHandles(count int)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed after the
	// shutdown timeout expired.
	RecordConnectionForceClosed()
}

// NewBrokerMetrics returns the Prometheus-backed BrokerMetrics, or nil if
// metrics are not enabled.
//
//	metrics.InitRegistry()
//	srv := broker.New(cfg, handler, metrics.NewBrokerMetrics())
func NewBrokerMetrics() BrokerMetrics {
	if !IsEnabled() || newPrometheusBrokerMetrics == nil {
		return nil
	}
	return newPrometheusBrokerMetrics()
}

// newPrometheusBrokerMetrics is set by pkg/metrics/prometheus. The
// indirection avoids an import cycle.
var newPrometheusBrokerMetrics func() BrokerMetrics

// RegisterBrokerMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterBrokerMetricsConstructor(constructor func() BrokerMetrics) {
	newPrometheusBrokerMetrics = constructor
}
