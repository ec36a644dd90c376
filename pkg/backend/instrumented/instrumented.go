// Package instrumented wraps a backend.FileSystem so every operation and
// stream call is recorded in metrics.BackendMetrics. Filesystem-level
// operations also get a tracing span.
package instrumented

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/marmos91/fsbroker/internal/telemetry"
	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/metrics"
)

// FileSystem decorates a backend with metrics.
type FileSystem struct {
	inner   backend.FileSystem
	metrics metrics.BackendMetrics
}

var (
	_ backend.FileSystem    = (*FileSystem)(nil)
	_ backend.HealthChecker = (*FileSystem)(nil)
)

// Wrap returns fs decorated with m. When m is nil fs is returned as is.
func Wrap(fs backend.FileSystem, m metrics.BackendMetrics) backend.FileSystem {
	if m == nil {
		return fs
	}
	return &FileSystem{inner: fs, metrics: m}
}

// Unwrap returns the decorated filesystem.
func (f *FileSystem) Unwrap() backend.FileSystem { return f.inner }

func (f *FileSystem) Name() string { return f.inner.Name() }

func (f *FileSystem) OpenRead(ctx context.Context, name string, bufferSize int) (backend.InputStream, error) {
	ctx, span := telemetry.StartBackendSpan(ctx, f.inner.Name(), "open_read", telemetry.Path(name))
	defer span.End()

	start := time.Now()
	in, err := f.inner.OpenRead(ctx, name, bufferSize)
	f.metrics.ObserveOperation("open_read", time.Since(start), err)
	telemetry.RecordError(ctx, err)
	if err != nil {
		return nil, err
	}
	return &inputStream{InputStream: in, m: f.metrics}, nil
}

func (f *FileSystem) OpenWrite(ctx context.Context, name string, opts backend.WriteOptions) (backend.OutputStream, error) {
	ctx, span := telemetry.StartBackendSpan(ctx, f.inner.Name(), "open_write", telemetry.Path(name))
	defer span.End()

	start := time.Now()
	out, err := f.inner.OpenWrite(ctx, name, opts)
	f.metrics.ObserveOperation("open_write", time.Since(start), err)
	telemetry.RecordError(ctx, err)
	if err != nil {
		return nil, err
	}
	return &outputStream{OutputStream: out, m: f.metrics}, nil
}

func (f *FileSystem) Length(ctx context.Context, name string) (int64, error) {
	ctx, span := telemetry.StartBackendSpan(ctx, f.inner.Name(), "length", telemetry.Path(name))
	defer span.End()

	start := time.Now()
	n, err := f.inner.Length(ctx, name)
	f.metrics.ObserveOperation("length", time.Since(start), err)
	telemetry.RecordError(ctx, err)
	return n, err
}

// Healthcheck forwards to the wrapped backend when it supports health
// checks and reports healthy otherwise.
func (f *FileSystem) Healthcheck(ctx context.Context) error {
	if hc, ok := f.inner.(backend.HealthChecker); ok {
		return hc.Healthcheck(ctx)
	}
	return nil
}

func (f *FileSystem) Close() error { return f.inner.Close() }

type inputStream struct {
	backend.InputStream
	m metrics.BackendMetrics
}

func (s *inputStream) Read(p []byte) (int, error) {
	start := time.Now()
	n, err := s.InputStream.Read(p)
	s.m.ObserveOperation("read", time.Since(start), ignoreEOF(err))
	s.m.RecordBytes("read", int64(n))
	return n, err
}

func (s *inputStream) ReadAt(p []byte, off int64) (int, error) {
	start := time.Now()
	n, err := s.InputStream.ReadAt(p, off)
	s.m.ObserveOperation("read_at", time.Since(start), ignoreEOF(err))
	s.m.RecordBytes("read_at", int64(n))
	return n, err
}

type outputStream struct {
	backend.OutputStream
	m metrics.BackendMetrics
}

func (s *outputStream) Write(p []byte) (int, error) {
	start := time.Now()
	n, err := s.OutputStream.Write(p)
	s.m.ObserveOperation("write", time.Since(start), err)
	s.m.RecordBytes("write", int64(n))
	return n, err
}

func (s *outputStream) Flush() error {
	start := time.Now()
	err := s.OutputStream.Flush()
	s.m.ObserveOperation("flush", time.Since(start), err)
	return err
}

func (s *outputStream) Close() error {
	start := time.Now()
	err := s.OutputStream.Close()
	s.m.ObserveOperation("close", time.Since(start), err)
	return err
}

// ignoreEOF keeps end of stream out of the error counters.
func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
