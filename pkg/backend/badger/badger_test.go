package badger

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/backend/backendtest"
)

func newInMemory(t *testing.T) *FileSystem {
	t.Helper()
	fs, err := New(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.FileSystem {
		return newInMemory(t)
	})
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	fs, err := New(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	backendtest.WriteFile(t, fs, "/persist.txt", []byte("durable"))
	require.NoError(t, fs.Close())

	fs, err = New(Config{Path: dir})
	require.NoError(t, err)
	defer fs.Close()

	in, err := fs.OpenRead(context.Background(), "/persist.txt", 0)
	require.NoError(t, err)
	data, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "durable", string(data))
}

func TestReaderSeesSnapshotAtOpen(t *testing.T) {
	fs := newInMemory(t)
	ctx := context.Background()
	backendtest.WriteFile(t, fs, "/snap", []byte("v1"))

	in, err := fs.OpenRead(ctx, "/snap", 0)
	require.NoError(t, err)
	defer in.Close()

	backendtest.WriteFile(t, fs, "/snap", []byte("version-two"))

	data, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	length, err := fs.Length(ctx, "/snap")
	require.NoError(t, err)
	assert.Equal(t, int64(11), length)
}

func TestCreateVisibleBeforeFlush(t *testing.T) {
	fs := newInMemory(t)
	ctx := context.Background()

	out, err := fs.OpenWrite(ctx, "/pending", backend.WriteOptions{BufferSize: 1024})
	require.NoError(t, err)
	_, err = out.Write([]byte("buffered"))
	require.NoError(t, err)

	length, err := fs.Length(ctx, "/pending")
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)

	require.NoError(t, out.Close())
	length, err = fs.Length(ctx, "/pending")
	require.NoError(t, err)
	assert.Equal(t, int64(8), length)
}

func TestHealthcheck(t *testing.T) {
	fs, err := New(Config{InMemory: true})
	require.NoError(t, err)

	require.NoError(t, fs.Healthcheck(context.Background()))
	require.NoError(t, fs.Close())
	assert.Error(t, fs.Healthcheck(context.Background()))
}

func TestCacheStats(t *testing.T) {
	fs := newInMemory(t)
	backendtest.WriteFile(t, fs, "/a", []byte("abc"))

	stats := fs.CacheStats()
	assert.Contains(t, stats, "block")
	assert.Contains(t, stats, "index")
	for _, s := range stats {
		assert.GreaterOrEqual(t, s.Ratio, 0.0)
		assert.LessOrEqual(t, s.Ratio, 1.0)
	}
}
