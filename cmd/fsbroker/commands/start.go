package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/internal/protocol/broker/handlers"
	"github.com/marmos91/fsbroker/internal/telemetry"
	"github.com/marmos91/fsbroker/pkg/api"
	"github.com/marmos91/fsbroker/pkg/broker"
	"github.com/marmos91/fsbroker/pkg/config"
	"github.com/marmos91/fsbroker/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/fsbroker/pkg/metrics/prometheus"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the broker",
	Long: `Start the broker in the foreground with the specified configuration.

The broker stops on SIGINT or SIGTERM: it stops accepting, lets in-flight
requests finish for up to shutdown_timeout, then closes every handle.

Examples:
  # Start with the default config location
  fsbroker start

  # Start with custom config file
  fsbroker start --config /etc/fsbroker/config.yaml

  # Start with environment variable overrides
  FSBROKER_LOGGING_LEVEL=DEBUG fsbroker start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	fs, err := config.CreateBackend(ctx, cfg.Backend)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}
	defer func() {
		if err := fs.Close(); err != nil {
			logger.Error("Backend close error", logger.Err(err))
		}
	}()

	h := handlers.New(fs, 0)
	srv := broker.New(cfg.Server, h, metrics.NewBrokerMetrics())

	var apiServer *api.Server
	if cfg.API.IsEnabled() {
		apiServer = api.NewServer(cfg.API, api.Deps{FS: fs, Table: h.Table, Broker: srv})
	} else {
		logger.Info("API server disabled")
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.Serve(ctx) }()

	apiDone := make(chan error, 1)
	if apiServer != nil {
		go func() { apiDone <- apiServer.Start(ctx) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Broker is running. Press Ctrl+C to stop.")

	var serverErr, apiErr error
	serverExited := false
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	case serverErr = <-serverDone:
		serverExited = true
		logger.Error("Broker stopped unexpectedly", logger.Err(serverErr))
	case apiErr = <-apiDone:
		logger.Error("API server stopped unexpectedly", logger.Err(apiErr))
	}

	// Cancelling ctx makes Serve drain for server.timeouts.shutdown and the
	// API server shut down.
	cancel()

	if apiServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := apiServer.Stop(stopCtx); err != nil {
			logger.Warn("API server shutdown error", logger.Err(err))
		}
		stopCancel()
	}
	if !serverExited {
		serverErr = <-serverDone
	}

	if err := errors.Join(serverErr, apiErr); err != nil {
		logger.Error("Broker shutdown error", logger.Err(err))
		return err
	}
	logger.Info("Broker stopped gracefully")
	return nil
}

// initObservability starts tracing, profiling and metrics as configured and
// returns a function that flushes them.
func initObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "fsbroker",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "fsbroker",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		_ = telemetryShutdown(ctx)
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "path", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	return func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}, nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
