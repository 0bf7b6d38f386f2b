package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"autometa/internal/config"
	"autometa/internal/discovery"
	"autometa/internal/engine"
	"autometa/internal/exif"
	"autometa/internal/export"
	"autometa/internal/logger"
	"autometa/internal/observability"
	"autometa/internal/pool"
	"autometa/internal/provider"
)

// defaultPrompt asks for the three labelled fields the response parser
// expects.
const defaultPrompt = `Analyze this media file for stock photography metadata and answer with exactly three labelled lines:

Title: a unique, descriptive title of at least 6 words (max 180 characters)
Description: one or two sentences describing subject, composition and mood (max 200 characters)
Keywords: 45-49 comma-separated single-word keywords covering subjects, actions, colors, styles and concepts

Do not add anything before or after the three lines.`

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan the input directory and tag every supported media file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(os.Stdout, parseLevel(cfg.LogLevel))
	ctx := logger.WithRunID(context.Background(), uuid.NewString())
	log = logger.FromContext(ctx, log)

	// A signal trips the gate; in-flight requests finish, nothing new
	// starts. A second signal kills the process the usual way.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := engine.NewGate()
	go func() {
		<-ctx.Done()
		gate.Trip()
	}()

	var metrics *observability.EngineMetrics
	if cfg.MetricsAddr != "" {
		handler, shutdown, err := observability.InitMetrics()
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("metrics shutdown failed", "error", err)
			}
		}()

		metrics, err = observability.NewEngineMetrics()
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			log.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warn("metrics server error", "error", err)
			}
		}()
	}

	jobs, err := discovery.Scan(cfg.InputDir, log)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		log.Info("no supported media files found", "dir", cfg.InputDir)
		return nil
	}
	log.Info("discovered files", "count", len(jobs), "workers", cfg.Workers, "keys", len(cfg.APIKeys))

	p, err := pool.New(pool.Options{
		Credentials:        cfg.Credentials(),
		Models:             cfg.Models,
		FixedModel:         cfg.Model,
		CredentialInterval: cfg.CredentialInterval(),
	})
	if err != nil {
		return err
	}

	retry := &engine.RetryController{
		Pool:    p,
		Invoker: provider.NewGeminiClient(cfg.Endpoint, defaultPrompt, cfg.Timeout),
		Gate:    gate,
		Log:     log,
	}
	sched := engine.NewScheduler(retry, gate, engine.LogSink{Log: log}, log, metrics, engine.Options{
		Concurrency: cfg.Workers,
		BaseDelay:   cfg.BaseDelay,
		AutoRetry:   cfg.AutoRetry,
	})

	summary := sched.Run(ctx, jobs)
	log.Info("run finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"canceled", summary.Canceled,
		"windows", summary.Windows,
		"passes", summary.Passes,
	)

	csvPath := filepath.Join(cfg.OutputDir, "metadata.csv")
	writer := &export.Writer{KeywordCap: cfg.KeywordCap}
	rows, err := writer.Write(csvPath, jobs)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	log.Info("export written", "path", csvPath, "rows", rows)

	if cfg.EmbedMetadata {
		embedder := &exif.Embedder{}
		if err := embedder.Check(); err != nil {
			log.Warn("skipping metadata embedding", "reason", err)
		} else {
			n := embedder.EmbedAll(ctx, jobs, log)
			log.Info("metadata embedded", "files", n)
		}
	}

	cmd.Printf("Done: %d succeeded, %d failed, %d canceled (results in %s)\n",
		summary.Succeeded, summary.Failed, summary.Canceled, csvPath)
	return nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
