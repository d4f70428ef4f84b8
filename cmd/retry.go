package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waybackd/wayback-archiver/internal/archiver"
	"github.com/waybackd/wayback-archiver/internal/config"
	"github.com/waybackd/wayback-archiver/internal/job"
	"github.com/waybackd/wayback-archiver/internal/progress"
	"github.com/waybackd/wayback-archiver/internal/results"
)

func newRetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <failed-urls-file>",
		Short: "Re-submit URLs from a previous run's failed file",
		Long: `Reads a failed_* JSON file produced by a previous run and submits its
URLs again, skipping the crawl phase entirely. A fresh pair of result files
is written for the retry run.`,
		Args: cobra.ExactArgs(1),
		RunE: runRetryCommand,
	}

	flags := cmd.Flags()
	flags.String("email", "", "email address to identify the client to the archive API")
	flags.Duration("delay", 15*time.Second, "delay between archive submissions")
	flags.Int("max-retries", 3, "maximum retry attempts per failed submission")
	flags.Float64("backoff-factor", 1.5, "exponential backoff factor between retries")
	flags.Int("batch-size", 150, "pause after this many processed URLs")
	flags.Duration("batch-pause", 180*time.Second, "pause duration between batches")
	flags.Int("concurrency", 1, "concurrent submissions (1 = sequential)")
	flags.String("s3-access-key", "", "Internet Archive S3 access key")
	flags.String("s3-secret-key", "", "Internet Archive S3 secret key")

	return cmd
}

func runRetryCommand(cmd *cobra.Command, args []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg := rt.cfg
	applyArchiverFlagOverrides(cmd.Flags(), &cfg)

	retryFile, err := results.LoadRetryFile(args[0])
	if err != nil {
		return fmt.Errorf("load retry file: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := progress.NewTracker()
	runner, err := buildRetryRunner(cfg, retryFile.Domain, tracker, rt.logger)
	if err != nil {
		return err
	}

	rt.logger.Info("retrying failed urls",
		zap.String("file", args[0]),
		zap.String("domain", retryFile.Domain),
		zap.Int("count", len(retryFile.URLs)),
	)

	summary, err := runner.RunRetry(ctx, retryFile.URLs)
	if err != nil {
		return err
	}
	reportSummary(rt.logger, retryFile.Domain, summary)
	return nil
}

// buildRetryRunner assembles a runner without a crawl stage.
func buildRetryRunner(cfg config.Config, domain string, tracker *progress.Tracker, logger *zap.Logger) (*job.Runner, error) {
	archiveCfg := archiver.Config{
		UserAgent:       cfg.Crawler.UserAgent,
		Email:           cfg.Archiver.Email,
		S3AccessKey:     cfg.Archiver.S3AccessKey,
		S3SecretKey:     cfg.Archiver.S3SecretKey,
		Delay:           cfg.Archiver.Delay,
		FreshnessWindow: cfg.Archiver.FreshnessWindow,
		MaxRetries:      cfg.Archiver.MaxRetries,
		BackoffFactor:   cfg.Archiver.BackoffFactor,
		BatchSize:       cfg.Archiver.BatchSize,
		BatchPause:      cfg.Archiver.BatchPause,
		Concurrency:     cfg.Archiver.Concurrency,
		RequestTimeout:  cfg.Archiver.RequestTimeout,
	}
	if err := archiveCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archiver configuration: %w", err)
	}
	client := archiver.NewClient(archiveCfg, logger)
	pipeline := archiver.NewPipeline(archiveCfg, client, tracker, logger)

	store, err := results.NewStore(cfg.Results.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("init result store: %w", err)
	}

	return job.NewRunner(domain, nil, pipeline, store, tracker, logger), nil
}
