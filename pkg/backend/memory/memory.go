// Package memory provides a volatile in-memory backend, used for tests and
// ephemeral brokers.
package memory

import (
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/marmos91/fsbroker/pkg/backend/billyfs"
)

// New returns an empty in-memory backend.
func New() *billyfs.FileSystem {
	return billyfs.New("memory", memfs.New())
}

// Seed writes files into an in-memory backend, keyed by path.
func Seed(fs *billyfs.FileSystem, files map[string][]byte) error {
	for name, data := range files {
		if err := util.WriteFile(fs.Raw(), name, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
