package memory

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/backend/backendtest"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.FileSystem {
		return New()
	})
}

func TestSeed(t *testing.T) {
	fs := New()
	require.NoError(t, Seed(fs, map[string][]byte{
		"/a.txt":    []byte("alpha"),
		"/nested/b": []byte("beta"),
	}))

	in, err := fs.OpenRead(context.Background(), "/nested/b", 0)
	require.NoError(t, err)
	defer in.Close()

	data, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))
	assert.Equal(t, "memory", fs.Name())
}
