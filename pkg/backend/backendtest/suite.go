// Package backendtest holds a conformance suite every backend.FileSystem
// implementation runs from its own tests.
package backendtest

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend"
)

// Factory returns a fresh, empty filesystem for one subtest.
type Factory func(t *testing.T) backend.FileSystem

// Run executes the conformance suite against filesystems built by newFS.
func Run(t *testing.T, newFS Factory) {
	t.Helper()

	t.Run("WriteThenReadBack", func(t *testing.T) { testWriteThenRead(t, newFS(t)) })
	t.Run("ShortReadThenEOF", func(t *testing.T) { testShortReadThenEOF(t, newFS(t)) })
	t.Run("ReadAtKeepsPosition", func(t *testing.T) { testReadAt(t, newFS(t)) })
	t.Run("Seek", func(t *testing.T) { testSeek(t, newFS(t)) })
	t.Run("OpenMissing", func(t *testing.T) { testOpenMissing(t, newFS(t)) })
	t.Run("CreateWithoutOverwrite", func(t *testing.T) { testNoOverwrite(t, newFS(t)) })
	t.Run("FlushMakesContentVisible", func(t *testing.T) { testFlush(t, newFS(t)) })
	t.Run("InvalidNames", func(t *testing.T) { testInvalidNames(t, newFS(t)) })
	t.Run("EmptyFile", func(t *testing.T) { testEmptyFile(t, newFS(t)) })
	t.Run("DoubleClose", func(t *testing.T) { testDoubleClose(t, newFS(t)) })
}

// WriteFile creates name with data through the backend API.
func WriteFile(t *testing.T, fs backend.FileSystem, name string, data []byte) {
	t.Helper()
	out, err := fs.OpenWrite(context.Background(), name, backend.WriteOptions{Overwrite: true})
	require.NoError(t, err)
	n, err := out.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, out.Close())
}

func testWriteThenRead(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	out, err := fs.OpenWrite(ctx, "/dir/sub/file.bin", backend.WriteOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Offset())

	_, err = out.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, int64(6), out.Offset())
	_, err = out.Write([]byte("world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), out.Offset())
	require.NoError(t, out.Close())

	length, err := fs.Length(ctx, "/dir/sub/file.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(11), length)

	in, err := fs.OpenRead(ctx, "dir/sub/file.bin", 0)
	require.NoError(t, err)
	defer in.Close()

	data, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, int64(11), in.Offset())
}

func testShortReadThenEOF(t *testing.T, fs backend.FileSystem) {
	WriteFile(t, fs, "/abc", []byte("abcdef"))

	in, err := fs.OpenRead(context.Background(), "/abc", 0)
	require.NoError(t, err)
	defer in.Close()

	buf := make([]byte, 4)
	n, err := in.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", string(buf[:n]))
	assert.Equal(t, int64(4), in.Offset())

	n, err = in.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "ef", string(buf[:n]))
	assert.Equal(t, int64(6), in.Offset())

	n, err = in.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int64(6), in.Offset())
}

func testReadAt(t *testing.T, fs backend.FileSystem) {
	WriteFile(t, fs, "/p", []byte("0123456789"))

	in, err := fs.OpenRead(context.Background(), "/p", 0)
	require.NoError(t, err)
	defer in.Close()

	buf := make([]byte, 3)
	n, err := in.ReadAt(buf, 5)
	require.NoError(t, err)
	assert.Equal(t, "567", string(buf[:n]))
	assert.Equal(t, int64(0), in.Offset())

	n, err = in.ReadAt(buf, 8)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = in.ReadAt(buf, 10)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = in.ReadAt(buf, -1)
	assert.Error(t, err)
}

func testSeek(t *testing.T, fs backend.FileSystem) {
	WriteFile(t, fs, "/s", []byte("abcdef"))

	in, err := fs.OpenRead(context.Background(), "/s", 0)
	require.NoError(t, err)
	defer in.Close()

	pos, err := in.Seek(3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)
	assert.Equal(t, int64(3), in.Offset())

	buf := make([]byte, 8)
	n, err := in.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "def", string(buf[:n]))

	_, err = in.Seek(-1)
	assert.ErrorIs(t, err, backend.ErrInvalidOffset)
	assert.Equal(t, int64(6), in.Offset())

	pos, err = in.Seek(100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), pos)
	n, err = in.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func testOpenMissing(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	_, err := fs.OpenRead(ctx, "/nope", 0)
	assert.ErrorIs(t, err, backend.ErrNotFound)

	_, err = fs.Length(ctx, "/nope")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func testNoOverwrite(t *testing.T, fs backend.FileSystem) {
	WriteFile(t, fs, "/keep", []byte("original"))

	_, err := fs.OpenWrite(context.Background(), "/keep", backend.WriteOptions{Overwrite: false})
	assert.ErrorIs(t, err, backend.ErrExists)

	out, err := fs.OpenWrite(context.Background(), "/keep", backend.WriteOptions{Overwrite: true})
	require.NoError(t, err)
	_, err = out.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	length, err := fs.Length(context.Background(), "/keep")
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}

func testFlush(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	out, err := fs.OpenWrite(ctx, "/flushed", backend.WriteOptions{Overwrite: true})
	require.NoError(t, err)
	_, err = out.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, out.Flush())

	length, err := fs.Length(ctx, "/flushed")
	require.NoError(t, err)
	assert.Equal(t, int64(7), length)

	require.NoError(t, out.Close())
	assert.ErrorIs(t, out.Flush(), backend.ErrClosed)
}

func testInvalidNames(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	for _, name := range []string{"", "/", "..", "a\x00b"} {
		_, err := fs.OpenRead(ctx, name, 0)
		assert.ErrorIs(t, err, backend.ErrInvalidPath, "name %q", name)

		_, err = fs.OpenWrite(ctx, name, backend.WriteOptions{Overwrite: true})
		assert.ErrorIs(t, err, backend.ErrInvalidPath, "name %q", name)
	}
}

func testEmptyFile(t *testing.T, fs backend.FileSystem) {
	ctx := context.Background()

	out, err := fs.OpenWrite(ctx, "/empty", backend.WriteOptions{})
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in, err := fs.OpenRead(ctx, "/empty", 0)
	require.NoError(t, err)
	defer in.Close()

	n, err := in.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, io.EOF))
}

func testDoubleClose(t *testing.T, fs backend.FileSystem) {
	WriteFile(t, fs, "/dc", []byte("x"))

	in, err := fs.OpenRead(context.Background(), "/dc", 0)
	require.NoError(t, err)
	require.NoError(t, in.Close())
	assert.ErrorIs(t, in.Close(), backend.ErrClosed)

	_, err = in.Read(make([]byte, 1))
	assert.ErrorIs(t, err, backend.ErrClosed)
}
