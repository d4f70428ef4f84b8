package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/waybackd/wayback-archiver/internal/api"
	"github.com/waybackd/wayback-archiver/internal/archiver"
	"github.com/waybackd/wayback-archiver/internal/config"
	"github.com/waybackd/wayback-archiver/internal/crawler"
	"github.com/waybackd/wayback-archiver/internal/job"
	"github.com/waybackd/wayback-archiver/internal/progress"
	"github.com/waybackd/wayback-archiver/internal/results"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <subdomain-url>",
		Short: "Crawl a subdomain and archive every discovered page",
		Long: `Crawls the given subdomain breadth-first, applying robots.txt, HTTPS,
image, and exclusion-pattern filters, then submits every discovered page to
the Wayback Machine. Results are written to the configured results
directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runArchiveCommand,
	}

	flags := cmd.Flags()
	flags.String("email", "", "email address to identify the client to the archive API")
	flags.Duration("delay", 15*time.Second, "delay between archive submissions")
	flags.Int("max-pages", 0, "maximum number of pages to crawl (0 = unlimited)")
	flags.Int("max-depth", 0, "maximum crawl depth (0 = unlimited)")
	flags.Int("max-retries", 3, "maximum retry attempts per failed submission")
	flags.Float64("backoff-factor", 1.5, "exponential backoff factor between retries")
	flags.Int("batch-size", 150, "pause after this many processed URLs")
	flags.Duration("batch-pause", 180*time.Second, "pause duration between batches")
	flags.Int("concurrency", 1, "concurrent submissions (1 = sequential)")
	flags.StringSlice("exclude", nil, "URL path patterns to exclude from crawling")
	flags.Bool("ignore-robots", false, "ignore robots.txt directives (not recommended)")
	flags.Bool("include-http", false, "crawl plain-HTTP URLs in addition to HTTPS")
	flags.Bool("include-images", false, "archive image files as well")
	flags.String("s3-access-key", "", "Internet Archive S3 access key")
	flags.String("s3-secret-key", "", "Internet Archive S3 secret key")

	return cmd
}

func runArchiveCommand(cmd *cobra.Command, args []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg := rt.cfg
	cfg.Crawler.RootURL = args[0]
	applyFlagOverrides(cmd, &cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := progress.NewTracker()
	runner, domain, err := buildRunner(cfg, tracker, rt.logger)
	if err != nil {
		return err
	}

	stopServer := startStatusServer(cfg.Server, tracker, rt.logger)
	defer stopServer()

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	reportSummary(rt.logger, domain, summary)
	return nil
}

// applyFlagOverrides layers explicitly set flags over the loaded
// configuration. Unset flags leave config and environment values alone.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("exclude") {
		patterns, _ := flags.GetStringSlice("exclude")
		cfg.Crawler.ExcludePatterns = patterns
	}
	if flags.Changed("ignore-robots") {
		ignore, _ := flags.GetBool("ignore-robots")
		cfg.Crawler.RespectRobots = !ignore
	}
	if flags.Changed("include-http") {
		includeHTTP, _ := flags.GetBool("include-http")
		cfg.Crawler.HTTPSOnly = !includeHTTP
	}
	if flags.Changed("include-images") {
		includeImages, _ := flags.GetBool("include-images")
		cfg.Crawler.ExcludeImages = !includeImages
	}
	if flags.Changed("max-pages") {
		cfg.Crawler.MaxPages, _ = flags.GetInt("max-pages")
	}
	if flags.Changed("max-depth") {
		cfg.Crawler.MaxDepth, _ = flags.GetInt("max-depth")
	}
	applyArchiverFlagOverrides(flags, cfg)
}

// applyArchiverFlagOverrides handles the submission flags shared by the
// archive and retry commands.
func applyArchiverFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("email") {
		cfg.Archiver.Email, _ = flags.GetString("email")
	}
	if flags.Changed("delay") {
		cfg.Archiver.Delay, _ = flags.GetDuration("delay")
	}
	if flags.Changed("max-retries") {
		cfg.Archiver.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("backoff-factor") {
		cfg.Archiver.BackoffFactor, _ = flags.GetFloat64("backoff-factor")
	}
	if flags.Changed("batch-size") {
		cfg.Archiver.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("batch-pause") {
		cfg.Archiver.BatchPause, _ = flags.GetDuration("batch-pause")
	}
	if flags.Changed("concurrency") {
		cfg.Archiver.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("s3-access-key") {
		cfg.Archiver.S3AccessKey, _ = flags.GetString("s3-access-key")
	}
	if flags.Changed("s3-secret-key") {
		cfg.Archiver.S3SecretKey, _ = flags.GetString("s3-secret-key")
	}
}

// buildRunner assembles the full pipeline from configuration. It returns the
// scoped domain alongside the runner for reporting.
func buildRunner(cfg config.Config, tracker *progress.Tracker, logger *zap.Logger) (*job.Runner, string, error) {
	crawlCfg := crawler.Config{
		RootURL:         cfg.Crawler.RootURL,
		ExcludePatterns: cfg.Crawler.ExcludePatterns,
		MaxDepth:        cfg.Crawler.MaxDepth,
		MaxPages:        cfg.Crawler.MaxPages,
		RespectRobots:   cfg.Crawler.RespectRobots,
		HTTPSOnly:       cfg.Crawler.HTTPSOnly,
		ExcludeImages:   cfg.Crawler.ExcludeImages,
		UserAgent:       cfg.Crawler.UserAgent,
		FetchTimeout:    cfg.Crawler.FetchTimeout,
		RobotsTTL:       cfg.Crawler.RobotsTTL,
	}
	if err := crawlCfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid crawl configuration: %w", err)
	}

	fetcher, err := crawler.NewCollyFetcher(crawlCfg, logger)
	if err != nil {
		return nil, "", fmt.Errorf("init fetcher: %w", err)
	}
	robots := crawler.NewRobotsPolicy(crawlCfg.RespectRobots, crawlCfg.UserAgent, crawlCfg.RobotsTTL, logger)
	frontier := crawler.NewFrontier(crawlCfg, fetcher, robots, tracker, logger)

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
		return nil, "", fmt.Errorf("invalid archiver configuration: %w", err)
	}
	client := archiver.NewClient(archiveCfg, logger)
	pipeline := archiver.NewPipeline(archiveCfg, client, tracker, logger)

	store, err := results.NewStore(cfg.Results.Dir, logger)
	if err != nil {
		return nil, "", fmt.Errorf("init result store: %w", err)
	}

	runner := job.NewRunner(crawlCfg.TargetHost, frontier, pipeline, store, tracker, logger)
	return runner, crawlCfg.TargetHost, nil
}

// startStatusServer launches the read-only status/metrics server when
// enabled; the returned func shuts it down.
func startStatusServer(cfg config.ServerConfig, tracker *progress.Tracker, logger *zap.Logger) func() {
	if !cfg.Enabled {
		return func() {}
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewServer(tracker, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown", zap.Error(err))
		}
	}
}

func reportSummary(logger *zap.Logger, domain string, summary job.Summary) {
	logger.Info("run summary",
		zap.String("domain", domain),
		zap.Int("candidates", summary.Candidates),
		zap.Int("archived", len(summary.Successful)),
		zap.Int("failed", len(summary.Failed)),
		zap.String("success_file", summary.SuccessPath),
		zap.String("failed_file", summary.FailedPath),
	)
	if summary.PersistErr != nil {
		logger.Error("result files could not be written; outcome data was lost",
			zap.Error(summary.PersistErr))
	}
	if summary.Interrupted {
		logger.Warn("run was interrupted; results reflect partial progress")
	}
}
