package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fsbroker/pkg/backend/badger"
	"github.com/marmos91/fsbroker/pkg/backend/instrumented"
	"github.com/marmos91/fsbroker/pkg/backend/s3"
	"github.com/marmos91/fsbroker/pkg/metrics"
)

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  BackendConfig
		want string
	}{
		{"memory", BackendConfig{Type: "memory"}, "memory"},
		{"local", BackendConfig{Type: "local", Local: map[string]any{"root": t.TempDir()}}, "local"},
		{"badger", BackendConfig{Type: "badger", Badger: map[string]any{"in_memory": true}}, "badger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := CreateBackend(context.Background(), tt.cfg)
			require.NoError(t, err)
			defer fs.Close()
			assert.Equal(t, tt.want, fs.Name())
		})
	}
}

func TestCreateBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  BackendConfig
	}{
		{"unknown type", BackendConfig{Type: "ftp"}},
		{"local without root", BackendConfig{Type: "local"}},
		{"badger without path", BackendConfig{Type: "badger"}},
		{"s3 without bucket", BackendConfig{Type: "s3"}},
		{"bad option type", BackendConfig{Type: "badger", Badger: map[string]any{"in_memory": map[string]any{"on": true}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateBackend(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestDecodeBackendOptions(t *testing.T) {
	opts, err := decodeBackendOptions(BackendConfig{Type: "s3", S3: map[string]any{
		"bucket":           "files",
		"key_prefix":       "broker/",
		"force_path_style": "true",
		"request_timeout":  "15s",
	}})
	require.NoError(t, err)

	c, ok := opts.(*s3.Config)
	require.True(t, ok)
	assert.Equal(t, "files", c.Bucket)
	assert.Equal(t, "broker/", c.KeyPrefix)
	assert.True(t, c.ForcePathStyle)
	assert.Equal(t, "15s", c.RequestTimeout.String())

	opts, err = decodeBackendOptions(BackendConfig{Type: "badger", Badger: map[string]any{"path": "/var/lib/fsbroker"}})
	require.NoError(t, err)
	assert.Equal(t, &badger.Config{Path: "/var/lib/fsbroker"}, opts)
}

func TestCreateBackendInstrumentedWhenMetricsEnabled(t *testing.T) {
	metrics.Reset()
	t.Cleanup(metrics.Reset)
	metrics.InitRegistry()

	fs, err := CreateBackend(context.Background(), BackendConfig{Type: "badger", Badger: map[string]any{"in_memory": true}})
	require.NoError(t, err)
	defer fs.Close()

	wrapped, ok := fs.(*instrumented.FileSystem)
	require.True(t, ok, "expected instrumented wrapper, got %T", fs)
	assert.Equal(t, "badger", wrapped.Unwrap().Name())

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "fsbroker_badger_cache_hits_total")
}
