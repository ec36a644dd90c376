package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/fsbroker/pkg/metrics"
)

// backendMetrics is the Prometheus implementation of metrics.BackendMetrics.
// One set of vectors is shared by every backend; the backend name is a
// label.
type backendMetrics struct {
	backend    string
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
}

var (
	backendVecsMu sync.Mutex
	backendVecs   = map[prometheus.Registerer]*backendMetrics{}
)

// NewBackendMetrics returns backend metrics labelled with backend.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBackendMetrics(backend string) *backendMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	backendVecsMu.Lock()
	defer backendVecsMu.Unlock()

	shared, ok := backendVecs[reg]
	if !ok {
		shared = newBackendVecs(reg)
		backendVecs[reg] = shared
	}
	m := *shared
	m.backend = backend
	return &m
}

func newBackendVecs(reg prometheus.Registerer) *backendMetrics {
	m := &backendMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsbroker_backend_operations_total",
				Help: "Total number of backend operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "fsbroker_backend_operation_duration_milliseconds",
				Help: "Duration of backend operations in milliseconds",
				Buckets: []float64{
					0.1,
					1,
					10,
					50,
					100,
					500,
					1000,
					5000,
					30000,
				},
			},
			[]string{"backend", "operation"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsbroker_backend_bytes_total",
				Help: "Bytes moved through backend streams",
			},
			[]string{"backend", "operation"},
		),
	}
	reg.MustRegister(m.operations, m.duration, m.bytes)
	return m
}

func (m *backendMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.operations.WithLabelValues(m.backend, operation, status).Inc()
	m.duration.WithLabelValues(m.backend, operation).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *backendMetrics) RecordBytes(operation string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.bytes.WithLabelValues(m.backend, operation).Add(float64(bytes))
}
