// Package local serves files from a directory on the host filesystem.
package local

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/marmos91/fsbroker/pkg/backend/billyfs"
)

// Config configures the local backend.
type Config struct {
	// Root is the directory client paths are resolved against. Paths
	// cannot escape it.
	Root string `mapstructure:"root" yaml:"root"`

	// CreateRoot creates Root if it does not exist.
	CreateRoot bool `mapstructure:"create_root" yaml:"create_root"`
}

// New returns a backend rooted at cfg.Root.
func New(cfg Config) (*billyfs.FileSystem, error) {
	if cfg.Root == "" {
		return nil, errors.New("local backend: root is required")
	}

	info, err := os.Stat(cfg.Root)
	switch {
	case errors.Is(err, os.ErrNotExist) && cfg.CreateRoot:
		if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
			return nil, fmt.Errorf("local backend: create root %q: %w", cfg.Root, err)
		}
	case err != nil:
		return nil, fmt.Errorf("local backend: stat root %q: %w", cfg.Root, err)
	case !info.IsDir():
		return nil, fmt.Errorf("local backend: root %q is not a directory", cfg.Root)
	}

	return billyfs.New("local", osfs.New(cfg.Root)), nil
}
