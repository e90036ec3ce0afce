package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gathernomics/internal/acquire"
	"github.com/JonMunkholm/gathernomics/internal/archive"
	"github.com/JonMunkholm/gathernomics/internal/config"
	"github.com/JonMunkholm/gathernomics/internal/core"
	"github.com/JonMunkholm/gathernomics/internal/logging"
	"github.com/JonMunkholm/gathernomics/internal/metrics"
	"github.com/JonMunkholm/gathernomics/internal/pipeline"
	"github.com/JonMunkholm/gathernomics/internal/store"
)

// loadConfig reads .env, the environment and flag overrides, in that order.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	// Overload overwrites existing env vars
	if err := godotenv.Overload(opts.envFile); err != nil {
		slog.Debug("no env file loaded", "path", opts.envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	opts.apply(cmd, cfg)
	cfg.Database.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runGather(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRun(ctx, uuid.New().String())
	logger := logging.FromContext(ctx)

	tables, err := config.LoadTables(cfg.Run.TablesConfig)
	if err != nil {
		return err
	}
	logger.Info("tables loaded", "path", cfg.Run.TablesConfig, "count", len(tables), "filters", core.FilterCount())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(m, reg)
		if _, err := srv.Start(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Metrics.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	runOpts := pipeline.Options{
		Metrics: m,
		Only:    cfg.Run.Tables,
		Collect: cfg.Run.OutputPath != "",
		Cleanup: cfg.Run.Cleanup,
	}

	if cfg.Database.Enabled() {
		db, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		st := store.New(db)
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		runOpts.Store = st
		logger.Info("connected to database", "name", cfg.Database.Name)
	}

	if cfg.Archive.Enabled() {
		storage, err := archive.NewMinIO(ctx, cfg.Archive)
		if err != nil {
			return fmt.Errorf("connect to archive: %w", err)
		}
		runOpts.Archiver = archive.New(storage, cfg.Archive.Timeout)
		logger.Info("archiving zips", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	}

	downloader, err := acquire.NewDownloader(acquire.Options{
		StagingDir: cfg.Acquire.StagingDir,
		Timeout:    cfg.Acquire.HTTPTimeout,
		UserAgent:  cfg.Acquire.UserAgent,
	})
	if err != nil {
		return err
	}

	sum, err := pipeline.NewRunner(downloader, runOpts).Run(ctx, tables)
	if err != nil {
		return err
	}

	if cfg.Run.OutputPath != "" {
		if err := writeOutput(cmd, cfg.Run.OutputPath, sum.Records); err != nil {
			return err
		}
		logger.Info("records exported", "path", cfg.Run.OutputPath, "records", len(sum.Records))
	}
	return nil
}

func writeOutput(cmd *cobra.Command, path string, records []core.Record) error {
	if path == "-" {
		return pipeline.WriteCSV(cmd.OutOrStdout(), records)
	}
	return pipeline.ExportCSV(path, records)
}
