// Package billyfs implements backend.FileSystem on top of any go-billy
// filesystem. The local and memory backends are thin constructors around it.
package billyfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"

	"github.com/marmos91/fsbroker/pkg/backend"
)

// FileSystem adapts a billy.Filesystem to backend.FileSystem.
type FileSystem struct {
	name string
	fs   billy.Filesystem
}

var _ backend.FileSystem = (*FileSystem)(nil)

// New wraps fs. name is reported by Name().
func New(name string, fs billy.Filesystem) *FileSystem {
	return &FileSystem{name: name, fs: fs}
}

// Name implements backend.FileSystem.
func (b *FileSystem) Name() string { return b.name }

// Raw returns the underlying billy filesystem.
func (b *FileSystem) Raw() billy.Filesystem { return b.fs }

// OpenRead implements backend.FileSystem.
func (b *FileSystem) OpenRead(ctx context.Context, name string, _ int) (backend.InputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := backend.CleanPath(name)
	if err != nil {
		return nil, err
	}

	info, err := b.fs.Stat(p)
	if err != nil {
		return nil, wrap("stat", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("billy: open %q: %w", p, backend.ErrIsDirectory)
	}

	f, err := b.fs.Open(p)
	if err != nil {
		return nil, wrap("open", p, err)
	}
	return &inputStream{file: f}, nil
}

// OpenWrite implements backend.FileSystem.
func (b *FileSystem) OpenWrite(ctx context.Context, name string, opts backend.WriteOptions) (backend.OutputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := backend.CleanPath(name)
	if err != nil {
		return nil, err
	}

	if info, err := b.fs.Stat(p); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("billy: create %q: %w", p, backend.ErrIsDirectory)
		}
		if !opts.Overwrite {
			return nil, fmt.Errorf("billy: create %q: %w", p, backend.ErrExists)
		}
	}

	if dir := path.Dir(p); dir != "/" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, wrap("mkdirall", dir, err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !opts.Overwrite {
		flags |= os.O_EXCL
	}
	f, err := b.fs.OpenFile(p, flags, 0o644)
	if err != nil {
		return nil, wrap("create", p, err)
	}
	return &outputStream{file: f}, nil
}

// Length implements backend.FileSystem.
func (b *FileSystem) Length(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := backend.CleanPath(name)
	if err != nil {
		return 0, err
	}
	info, err := b.fs.Stat(p)
	if err != nil {
		return 0, wrap("stat", p, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("billy: length %q: %w", p, backend.ErrIsDirectory)
	}
	return info.Size(), nil
}

// Close implements backend.FileSystem. billy filesystems hold no global
// resources.
func (b *FileSystem) Close() error { return nil }

// wrap maps billy/os errors onto backend sentinels while keeping the cause.
func wrap(op, name string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("billy: %s %q: %w: %w", op, name, backend.ErrNotFound, err)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("billy: %s %q: %w: %w", op, name, backend.ErrExists, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("billy: %s %q: %w: %w", op, name, backend.ErrPermission, err)
	}
	return fmt.Errorf("billy: %s %q: %w", op, name, err)
}

type inputStream struct {
	file   billy.File
	pos    atomic.Int64
	closed atomic.Bool
}

func (s *inputStream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, backend.ErrClosed
	}
	n, err := s.file.Read(p)
	s.pos.Add(int64(n))
	if err != nil && !errors.Is(err, io.EOF) {
		return n, wrap("read", s.file.Name(), err)
	}
	if n > 0 {
		return n, nil
	}
	return n, err
}

func (s *inputStream) ReadAt(p []byte, off int64) (int, error) {
	if s.closed.Load() {
		return 0, backend.ErrClosed
	}
	if off < 0 {
		return 0, backend.ErrInvalidOffset
	}
	n, err := s.file.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, wrap("readat", s.file.Name(), err)
	}
	return n, err
}

func (s *inputStream) Seek(off int64) (int64, error) {
	if s.closed.Load() {
		return 0, backend.ErrClosed
	}
	if off < 0 {
		return s.pos.Load(), backend.ErrInvalidOffset
	}
	pos, err := s.file.Seek(off, io.SeekStart)
	if err != nil {
		return s.pos.Load(), wrap("seek", s.file.Name(), err)
	}
	s.pos.Store(pos)
	return pos, nil
}

func (s *inputStream) Offset() int64 { return s.pos.Load() }

func (s *inputStream) Close() error {
	if s.closed.Swap(true) {
		return backend.ErrClosed
	}
	return s.file.Close()
}

type outputStream struct {
	file    billy.File
	written atomic.Int64
	closed  atomic.Bool
}

func (s *outputStream) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, backend.ErrClosed
	}
	n, err := s.file.Write(p)
	s.written.Add(int64(n))
	if err != nil {
		return n, wrap("write", s.file.Name(), err)
	}
	return n, nil
}

func (s *outputStream) Offset() int64 { return s.written.Load() }

// Flush syncs to stable storage when the underlying file supports it.
func (s *outputStream) Flush() error {
	if s.closed.Load() {
		return backend.ErrClosed
	}
	if syncer, ok := s.file.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return wrap("sync", s.file.Name(), err)
		}
	}
	return nil
}

func (s *outputStream) Close() error {
	if s.closed.Swap(true) {
		return backend.ErrClosed
	}
	return s.file.Close()
}
