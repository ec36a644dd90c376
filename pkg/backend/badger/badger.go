// Package badger stores file contents in an embedded BadgerDB.
//
// Each file is one key holding the complete content:
//
//	Prefix  Key Format   Value
//	"f:"    f:<path>     file bytes
//
// Readers load a copy of the value when the file is opened, so a reader
// sees the content as of its Open. Writers buffer in memory and commit the
// whole value on Flush and Close.
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/metrics"
)

const prefixFile = "f:"

func keyFile(path string) []byte {
	return []byte(prefixFile + path)
}

// Config configures the badger backend.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory keeps all data in RAM.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`
}

// FileSystem is a backend.FileSystem backed by BadgerDB.
type FileSystem struct {
	db *badgerdb.DB
}

var _ backend.FileSystem = (*FileSystem)(nil)

// New opens (or creates) the database described by cfg.
func New(cfg Config) (*FileSystem, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger backend: path is required unless in_memory is set")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger backend: open %q: %w", cfg.Path, err)
	}
	return &FileSystem{db: db}, nil
}

// Name implements backend.FileSystem.
func (f *FileSystem) Name() string { return "badger" }

// OpenRead implements backend.FileSystem.
func (f *FileSystem) OpenRead(ctx context.Context, name string, _ int) (backend.InputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := backend.CleanPath(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = f.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyFile(p))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapErr("open", p, err)
	}
	return backend.NewMemoryInput(data), nil
}

// OpenWrite implements backend.FileSystem. The key is created immediately
// (empty) so the file is visible to Length before the first flush.
func (f *FileSystem) OpenWrite(ctx context.Context, name string, opts backend.WriteOptions) (backend.OutputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := backend.CleanPath(name)
	if err != nil {
		return nil, err
	}

	key := keyFile(p)
	err = f.db.Update(func(txn *badgerdb.Txn) error {
		if !opts.Overwrite {
			_, err := txn.Get(key)
			if err == nil {
				return backend.ErrExists
			}
			if !errors.Is(err, badgerdb.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Set(key, []byte{})
	})
	if err != nil {
		return nil, mapErr("create", p, err)
	}

	return backend.NewBufferedOutput(opts.BufferSize, func(data []byte) error {
		err := f.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Set(key, append([]byte(nil), data...))
		})
		if err != nil {
			return mapErr("commit", p, err)
		}
		return nil
	}), nil
}

// Length implements backend.FileSystem.
func (f *FileSystem) Length(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := backend.CleanPath(name)
	if err != nil {
		return 0, err
	}

	var size int64
	err = f.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyFile(p))
		if err != nil {
			return err
		}
		size = item.ValueSize()
		return nil
	})
	if err != nil {
		return 0, mapErr("length", p, err)
	}
	return size, nil
}

// Healthcheck verifies the database can serve a read transaction.
func (f *FileSystem) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.db.IsClosed() {
		return errors.New("badger backend: database closed")
	}
	return f.db.View(func(*badgerdb.Txn) error { return nil })
}

// CacheStats reports the block and index cache counters. Caches that are
// disabled report zeros.
func (f *FileSystem) CacheStats() map[string]metrics.CacheStats {
	block, index := f.db.BlockCacheMetrics(), f.db.IndexCacheMetrics()
	return map[string]metrics.CacheStats{
		"block": {Hits: block.Hits(), Misses: block.Misses(), Ratio: block.Ratio()},
		"index": {Hits: index.Hits(), Misses: index.Misses(), Ratio: index.Ratio()},
	}
}

// Close implements backend.FileSystem.
func (f *FileSystem) Close() error {
	return f.db.Close()
}

func mapErr(op, path string, err error) error {
	switch {
	case errors.Is(err, badgerdb.ErrKeyNotFound):
		return fmt.Errorf("badger: %s %q: %w", op, path, backend.ErrNotFound)
	case errors.Is(err, backend.ErrExists):
		return fmt.Errorf("badger: %s %q: %w", op, path, backend.ErrExists)
	}
	return fmt.Errorf("badger: %s %q: %w", op, path, err)
}

// badgerLogger routes badger's internal logging through the broker logger,
// demoting its chatty INFO output to DEBUG.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug("badger: " + fmt.Sprintf(format, args...))
}
