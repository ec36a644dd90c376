package instrumented

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/backend/backendtest"
	"github.com/marmos91/fsbroker/pkg/backend/memory"
)

type recorder struct {
	mu     sync.Mutex
	ops    map[string]int
	errors map[string]int
	bytes  map[string]int64
}

func newRecorder() *recorder {
	return &recorder{ops: map[string]int{}, errors: map[string]int{}, bytes: map[string]int64{}}
}

func (r *recorder) ObserveOperation(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op]++
	if err != nil {
		r.errors[op]++
	}
}

func (r *recorder) RecordBytes(op string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes[op] += n
}

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.FileSystem {
		return Wrap(memory.New(), newRecorder())
	})
}

func TestWrapNilMetricsReturnsInner(t *testing.T) {
	fs := memory.New()
	assert.Same(t, backend.FileSystem(fs), Wrap(fs, nil))
}

func TestRecordsOperations(t *testing.T) {
	rec := newRecorder()
	fs := Wrap(memory.New(), rec)
	ctx := context.Background()

	backendtest.WriteFile(t, fs, "/a", []byte("hello"))

	in, err := fs.OpenRead(ctx, "/a", 0)
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := in.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, err = in.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, in.Close())

	_, err = fs.OpenRead(ctx, "/missing", 0)
	require.Error(t, err)

	_, err = fs.Length(ctx, "/a")
	require.NoError(t, err)

	assert.Equal(t, 2, rec.ops["open_read"])
	assert.Equal(t, 1, rec.errors["open_read"])
	assert.Equal(t, 2, rec.ops["read"])
	assert.Zero(t, rec.errors["read"], "EOF is not an error")
	assert.Equal(t, int64(5), rec.bytes["read"])
	assert.Equal(t, int64(5), rec.bytes["write"])
	assert.Equal(t, 1, rec.ops["open_write"])
	assert.Equal(t, 1, rec.ops["length"])
}

func TestHealthcheckWithoutSupport(t *testing.T) {
	fs := Wrap(memory.New(), newRecorder())
	hc, ok := fs.(backend.HealthChecker)
	require.True(t, ok)
	assert.NoError(t, hc.Healthcheck(context.Background()))
}
