package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/backend/badger"
	"github.com/marmos91/fsbroker/pkg/backend/instrumented"
	"github.com/marmos91/fsbroker/pkg/backend/local"
	"github.com/marmos91/fsbroker/pkg/backend/memory"
	"github.com/marmos91/fsbroker/pkg/backend/s3"
	"github.com/marmos91/fsbroker/pkg/metrics"
	"github.com/marmos91/fsbroker/pkg/metrics/prometheus"
)

// decodeBackendOptions decodes the section of cfg selected by cfg.Type into
// that backend's typed config. Memory has no options and yields nil.
func decodeBackendOptions(cfg BackendConfig) (any, error) {
	switch cfg.Type {
	case "memory":
		return nil, nil
	case "local":
		var c local.Config
		return &c, decodeSection(cfg.Local, &c)
	case "badger":
		var c badger.Config
		return &c, decodeSection(cfg.Badger, &c)
	case "s3":
		var c s3.Config
		return &c, decodeSection(cfg.S3, &c)
	default:
		return nil, fmt.Errorf("unknown backend type: %q", cfg.Type)
	}
}

// decodeSection decodes a free-form backend section with the same hooks
// as the top-level config, rejecting keys the backend does not know.
func decodeSection(section map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       configDecodeHooks(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(section); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// CreateBackend builds the configured backend. When metrics are enabled the
// result is wrapped with per-operation instrumentation and, for badger, its
// cache counters are exported.
func CreateBackend(ctx context.Context, cfg BackendConfig) (backend.FileSystem, error) {
	opts, err := decodeBackendOptions(cfg)
	if err != nil {
		return nil, err
	}

	var fs backend.FileSystem
	switch c := opts.(type) {
	case nil:
		fs = memory.New()
	case *local.Config:
		if fs, err = local.New(*c); err != nil {
			return nil, err
		}
	case *badger.Config:
		db, err := badger.New(*c)
		if err != nil {
			return nil, err
		}
		if err := prometheus.RegisterBadgerCollector(db); err != nil {
			logger.Warn("Failed to register badger collector", logger.Err(err))
		}
		fs = db
	case *s3.Config:
		if fs, err = s3.NewFromConfig(ctx, *c); err != nil {
			return nil, err
		}
	}

	logger.Info("Backend created", "type", fs.Name())

	return instrumented.Wrap(fs, metrics.NewBackendMetrics(fs.Name())), nil
}
