// Package prometheus implements the pkg/metrics interfaces on
// prometheus/client_golang. Importing it registers the constructors used
// by metrics.NewBrokerMetrics and metrics.NewBackendMetrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/fsbroker/pkg/metrics"
)

func init() {
	metrics.RegisterBrokerMetricsConstructor(func() metrics.BrokerMetrics { return NewBrokerMetrics() })
	metrics.RegisterBackendMetricsConstructor(func(backend string) metrics.BackendMetrics { return NewBackendMetrics(backend) })
}

// brokerMetrics is the Prometheus implementation of metrics.BrokerMetrics.
type brokerMetrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestsInFlight  *prometheus.GaugeVec
	bytesTransferred  *prometheus.CounterVec
	sendFailures      *prometheus.CounterVec
	openHandles       prometheus.Gauge
	activeConnections prometheus.Gauge
	connsAccepted     prometheus.Counter
	connsClosed       prometheus.Counter
	connsForceClosed  prometheus.Counter
}

// NewBrokerMetrics creates the broker metrics on the process registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBrokerMetrics() *brokerMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}
	return newBrokerMetrics(reg)
}

func newBrokerMetrics(reg prometheus.Registerer) *brokerMetrics {
	f := promauto.With(reg)
	return &brokerMetrics{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsbroker_requests_total",
				Help: "Total number of broker commands by command and status",
			},
			[]string{"command", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "fsbroker_request_duration_milliseconds",
				Help: "Duration of broker commands in milliseconds",
				Buckets: []float64{
					0.1, // in-memory handle operations
					0.5,
					1,
					5,
					10,
					50, // local disk reads
					100,
					500, // object store round trips
					1000,
					5000,
				},
			},
			[]string{"command"},
		),
		requestsInFlight: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fsbroker_requests_in_flight",
				Help: "Number of broker commands currently executing",
			},
			[]string{"command"},
		),
		bytesTransferred: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsbroker_bytes_transferred_total",
				Help: "Payload bytes moved by READ, PREAD and WRITE",
			},
			[]string{"command", "direction"},
		),
		sendFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsbroker_response_send_failures_total",
				Help: "Responses that could not be written to the client",
			},
			[]string{"command"},
		),
		openHandles: f.NewGauge(prometheus.GaugeOpts{
			Name: "fsbroker_open_handles",
			Help: "Number of handles in the open-file table",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "fsbroker_active_connections",
			Help: "Number of client connections currently open",
		}),
		connsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "fsbroker_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		connsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "fsbroker_connections_closed_total",
			Help: "Total number of closed client connections",
		}),
		connsForceClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "fsbroker_connections_force_closed_total",
			Help: "Connections closed because the shutdown timeout expired",
		}),
	}
}

func (m *brokerMetrics) RecordRequest(command string, duration time.Duration, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(command, status).Inc()
	m.requestDuration.WithLabelValues(command).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *brokerMetrics) RecordRequestStart(command string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(command).Inc()
}

func (m *brokerMetrics) RecordRequestEnd(command string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(command).Dec()
}

func (m *brokerMetrics) RecordBytesTransferred(command string, direction string, bytes uint64) {
	if m == nil || bytes == 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(command, direction).Add(float64(bytes))
}

func (m *brokerMetrics) RecordSendFailure(command string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(command).Inc()
}

func (m *brokerMetrics) SetOpenHandles(count int) {
	if m == nil {
		return
	}
	m.openHandles.Set(float64(count))
}

func (m *brokerMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *brokerMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connsAccepted.Inc()
}

func (m *brokerMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connsClosed.Inc()
}

func (m *brokerMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connsForceClosed.Inc()
}
