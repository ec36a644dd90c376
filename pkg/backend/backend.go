// Package backend defines the filesystem collaborator the broker executes
// commands against, plus stream helpers shared by the concrete backends.
//
// A FileSystem hands out single-direction streams: an InputStream for files
// opened with Open, an OutputStream for files opened with Create. Streams
// track their own position; the broker reports that position back to
// clients as the pre-operation offset of each Read and Write.
//
// Streams are not safe for concurrent Read/Write/Seek on the same stream.
// Offset must be safe to call concurrently with any other method since the
// operator API samples it while commands are in flight.
package backend

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// FileSystem is a backing store the broker exposes to remote clients.
type FileSystem interface {
	// Name identifies the backend type in logs and the operator API.
	Name() string

	// OpenRead opens an existing file for reading. bufferSize is a hint
	// from the client; backends may ignore it.
	OpenRead(ctx context.Context, name string, bufferSize int) (InputStream, error)

	// OpenWrite creates a file for writing. If the file exists and
	// opts.Overwrite is false it fails with ErrExists.
	OpenWrite(ctx context.Context, name string, opts WriteOptions) (OutputStream, error)

	// Length returns the current size of a file.
	Length(ctx context.Context, name string) (int64, error)

	// Close releases backend resources. Open streams must be closed first.
	Close() error
}

// HealthChecker is implemented by backends that can probe their store.
// Backends without it are always considered ready.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// WriteOptions controls OpenWrite.
type WriteOptions struct {
	Overwrite  bool
	BufferSize int
}

// InputStream is a file opened for reading.
type InputStream interface {
	// Read reads up to len(p) bytes at the current position and advances
	// it. At end of stream it returns 0, io.EOF.
	io.Reader

	// ReadAt reads at off without moving the current position.
	io.ReaderAt

	// Seek moves the current position to the absolute offset off.
	Seek(off int64) (int64, error)

	// Offset returns the current position.
	Offset() int64

	io.Closer
}

// OutputStream is a file opened for writing. Writes are sequential.
type OutputStream interface {
	io.Writer

	// Offset returns the number of bytes written so far.
	Offset() int64

	// Flush makes buffered data durable in the backing store.
	Flush() error

	io.Closer
}

var (
	// ErrNotFound is returned when the named file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrExists is returned by OpenWrite when overwrite is not allowed.
	ErrExists = errors.New("file already exists")

	// ErrInvalidPath is returned for empty or malformed names.
	ErrInvalidPath = errors.New("invalid path")

	// ErrPermission is returned when the backend refuses access.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidOffset is returned for negative seek or read offsets.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrClosed is returned by operations on a closed stream.
	ErrClosed = errors.New("stream closed")

	// ErrIsDirectory is returned when a directory is opened as a file.
	ErrIsDirectory = errors.New("is a directory")
)

// CleanPath validates a client-supplied name and returns it in canonical
// slash-separated form rooted at "/". Names containing NUL bytes or
// resolving to the root itself are rejected.
func CleanPath(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", ErrInvalidPath
	}
	p := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if p == "/" {
		return "", ErrInvalidPath
	}
	return p, nil
}
