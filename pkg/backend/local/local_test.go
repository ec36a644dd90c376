package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/backend/backendtest"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.FileSystem {
		fs, err := New(Config{Root: t.TempDir()})
		require.NoError(t, err)
		return fs
	})
}

func TestNew(t *testing.T) {
	t.Run("EmptyRoot", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)
	})

	t.Run("MissingRootWithoutCreate", func(t *testing.T) {
		_, err := New(Config{Root: filepath.Join(t.TempDir(), "missing")})
		require.Error(t, err)
	})

	t.Run("MissingRootWithCreate", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "created")
		fs, err := New(Config{Root: root, CreateRoot: true})
		require.NoError(t, err)
		assert.Equal(t, "local", fs.Name())

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("RootIsFile", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
		_, err := New(Config{Root: f})
		require.Error(t, err)
	})
}

func TestPathsStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	fs, err := New(Config{Root: root})
	require.NoError(t, err)

	backendtest.WriteFile(t, fs, "../../escape.txt", []byte("x"))

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}
