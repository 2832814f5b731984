package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/axonops/logdaemon/internal/config"
	"github.com/axonops/logdaemon/internal/metrics"
	"github.com/axonops/logdaemon/internal/schema"
	"github.com/axonops/logdaemon/internal/server"
	"github.com/axonops/logdaemon/internal/storage"
)

var (
	serveConfigPath     string
	serveSocketPath     string
	serveStorageDir     string
	serveSchemaFile     string
	serveBatchSize      int
	serveCompression    string
	serveMaxConnections int
	serveRotationSize   int64
	serveFlushInterval  int
	serveMetricsAddr    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the log ingestion daemon",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveConfigPath, "config", "", "Path to YAML configuration file")
	f.StringVar(&serveSocketPath, "socket", "", "Unix domain socket path (overrides config)")
	f.StringVar(&serveStorageDir, "storage-dir", "", "Parquet storage directory (overrides config)")
	f.StringVar(&serveSchemaFile, "schema-file", "", "JSON-Schema document; absent = built-in default schema")
	f.IntVar(&serveBatchSize, "batch-size", 0, "Records per flush (overrides config)")
	f.StringVar(&serveCompression, "compression", "", "snappy|zstd|gzip|none (overrides config)")
	f.IntVar(&serveMaxConnections, "max-connections", 0, "Maximum concurrent connections (overrides config)")
	f.Int64Var(&serveRotationSize, "rotation-size", 0, "Accepted for compatibility; currently unused")
	f.IntVar(&serveFlushInterval, "flush-interval", 0, "Idle flush interval in seconds (overrides config)")
	f.StringVar(&serveMetricsAddr, "metrics-addr", "", "Metrics HTTP listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyServeFlagOverrides(cfg)

	instanceID := uuid.NewString()
	logger := newLogger(cfg.Logging, instanceID)
	slog.SetDefault(logger)

	logger.Info("starting logdaemon",
		"instance_id", instanceID,
		"socket", cfg.Server.SocketPath,
		"storage_dir", cfg.Storage.Dir,
		"compression", cfg.Storage.Compression,
	)

	m := metrics.New(instanceID)

	validator, err := loadValidator(cfg.Schema.Path)
	if err != nil {
		logger.Error("schema compile failed", "error", err)
		os.Exit(1)
	}
	validatorRef := schema.NewRef(validator)

	var watcher *schema.Watcher
	if cfg.Schema.Path != "" {
		watcher, err = schema.WatchFile(cfg.Schema.Path, validatorRef.Store, logger)
		if err != nil {
			logger.Warn("schema hot-reload disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	engine, err := storage.New(cfg.Storage.Dir, cfg.Storage.Compression, cfg.Storage.BatchSize, cfg.Storage.RotationSize, m)
	if err != nil {
		logger.Error("storage engine init failed", "error", err)
		os.Exit(1)
	}

	coordinator := server.New(server.Config{
		SocketPath:     cfg.Server.SocketPath,
		MaxConnections: cfg.Server.MaxConnections,
		QueueCapacity:  10000,
		FlushInterval:  time.Duration(cfg.Flush.IntervalSeconds) * time.Second,
	}, validatorRef, engine, m, logger)

	if err := coordinator.Start(); err != nil {
		logger.Error("server start failed", "error", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: metricsRouter(m),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := coordinator.Shutdown(ctx); err != nil {
		logger.Error("coordinator shutdown error", "error", err)
	}
	_ = metricsServer.Shutdown(ctx)

	logger.Info("shutdown complete", "instance_id", instanceID)
	return nil
}

func applyServeFlagOverrides(cfg *config.Config) {
	if serveSocketPath != "" {
		cfg.Server.SocketPath = serveSocketPath
	}
	if serveStorageDir != "" {
		cfg.Storage.Dir = serveStorageDir
	}
	if serveSchemaFile != "" {
		cfg.Schema.Path = serveSchemaFile
	}
	if serveBatchSize != 0 {
		cfg.Storage.BatchSize = serveBatchSize
	}
	if serveCompression != "" {
		cfg.Storage.Compression = serveCompression
	}
	if serveMaxConnections != 0 {
		cfg.Server.MaxConnections = serveMaxConnections
	}
	if serveRotationSize != 0 {
		cfg.Storage.RotationSize = serveRotationSize
	}
	if serveFlushInterval != 0 {
		cfg.Flush.IntervalSeconds = serveFlushInterval
	}
	if serveMetricsAddr != "" {
		cfg.Metrics.Addr = serveMetricsAddr
	}
}

func loadValidator(path string) (*schema.Validator, error) {
	if path == "" {
		return schema.DefaultSchema()
	}
	return schema.FromFile(path)
}

// newLogger builds the daemon's structured logger. When cfg.File is set,
// output rotates via lumberjack instead of going straight to stderr.
func newLogger(cfg config.LoggingConfig, instanceID string) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out = os.Stderr
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		handler = slog.NewJSONHandler(rotator, opts)
	} else if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler).With("instance_id", instanceID)
}

func metricsRouter(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	return r
}
