package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/internal/config"
	"github.com/driftsync/driftsync/internal/engine"
	"github.com/driftsync/driftsync/internal/metrics"
	"github.com/driftsync/driftsync/internal/queue"
	"github.com/driftsync/driftsync/internal/verify"
	"github.com/driftsync/driftsync/internal/watch"
)

func runCmd() *cobra.Command {
	var (
		configPath   string
		sourceRoot   string
		destRoot     string
		logDir       string
		workers      int
		pollInterval time.Duration
		compress     bool
		cacheDBDir   string
		method       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the source tree and mirror changes continuously",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(configPath, func(c *config.Config) {
				if sourceRoot != "" {
					c.SourceRoot = sourceRoot
				}
				if destRoot != "" {
					c.DestRoot = destRoot
				}
				if logDir != "" {
					c.LogDir = logDir
				}
				if workers > 0 {
					c.NumThreads = workers
				}
				if cmd.Flags().Changed("compress-archives") {
					c.CompressArchives = compress
				}
				if cacheDBDir != "" {
					c.CacheDBDir = cacheDBDir
				}
			}, method)
			if err != nil {
				return err
			}

			return runEngine(cmd.Context(), cfg, pollInterval)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().StringVarP(&sourceRoot, "source", "s", "", "source tree (authoritative)")
	cmd.Flags().StringVarP(&destRoot, "dest", "d", "", "destination tree (mirror)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "transaction log directory")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "worker pool size (default: CPU count)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", watch.DefaultPollInterval, "source tree scan interval")
	cmd.Flags().BoolVar(&compress, "compress-archives", false, "gzip rotated transaction logs")
	cmd.Flags().StringVar(&cacheDBDir, "cache-db", "", "directory for the persistent fingerprint cache")
	cmd.Flags().StringVar(&method, "verify-method", "", "verification method (size-only, timestamp, fast-hash, strong-hash, blake3, full-compare)")

	return cmd
}

// buildConfig layers defaults, the optional config file, and flags.
func buildConfig(configPath string, applyFlags func(*config.Config), method string) (config.Config, error) {
	cfg := config.Default()

	if configPath != "" {
		f, err := config.LoadFile(configPath)
		if err != nil {
			return cfg, err
		}
		if err := f.Apply(&cfg); err != nil {
			return cfg, err
		}
	}

	applyFlags(&cfg)

	if method != "" {
		m, err := verify.MethodFromString(method)
		if err != nil {
			return cfg, err
		}
		cfg.VerifyMethod = m
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runEngine(ctx context.Context, cfg config.Config, pollInterval time.Duration) error {
	// Log directory creation is the entry point's job, not the engine's.
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	opts := engine.Options{
		Sink:   metrics.LogSink{Logger: slog.Default()},
		Logger: slog.Default(),
	}

	if cfg.CacheDBDir != "" {
		db, err := verify.OpenCacheDB(cfg.CacheDBDir, cfg.SourceRoot, cfg.DestRoot)
		if err != nil {
			return fmt.Errorf("open fingerprint cache: %w", err)
		}
		defer db.Close()
		opts.Verifier = verify.NewWithCacheDB(db)
	}

	eng := engine.New(cfg, opts)
	if err := eng.Start(); err != nil {
		return err
	}
	defer eng.Stop()

	source := watch.NewPollSource(pollInterval, slog.Default())
	defer source.Stop()

	source.SetCallback(func(path string) {
		eng.SyncFile(path, queue.Normal)
	})
	if err := source.AddWatch(cfg.SourceRoot); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.SourceRoot, err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- source.Run() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("mirroring", "source", cfg.SourceRoot, "dest", cfg.DestRoot)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}
