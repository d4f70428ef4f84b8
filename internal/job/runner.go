// Package job orchestrates one archiving run: crawl, submit, persist.
package job

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/waybackd/wayback-archiver/internal/archiver"
	"github.com/waybackd/wayback-archiver/internal/progress"
	"github.com/waybackd/wayback-archiver/internal/results"
)

// Crawler discovers the candidate URL set.
type Crawler interface {
	Crawl(ctx context.Context) ([]string, error)
}

// Pipeline submits a candidate set and returns its outcome partition.
type Pipeline interface {
	Run(ctx context.Context, urls []string) archiver.Outcome
}

// ResultStore persists the terminal outcome sets.
type ResultStore interface {
	Persist(summary results.Summary) (successPath, failedPath string, err error)
}

// Summary reports how a run ended. PersistErr is carried separately from
// archiving failures: the job still completed, but its outcome files may be
// missing and the caller should surface that distinctly.
type Summary struct {
	Domain      string
	Candidates  int
	Successful  []string
	Failed      []string
	SuccessPath string
	FailedPath  string
	PersistErr  error
	Interrupted bool
}

// Runner wires the crawl, submission, and persistence stages together.
type Runner struct {
	domain   string
	crawler  Crawler
	pipeline Pipeline
	store    ResultStore
	observer progress.Observer
	logger   *zap.Logger
}

// NewRunner builds a Runner. The observer may be nil.
func NewRunner(domain string, crawler Crawler, pipeline Pipeline, store ResultStore, observer progress.Observer, logger *zap.Logger) *Runner {
	if observer == nil {
		observer = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		domain:   domain,
		crawler:  crawler,
		pipeline: pipeline,
		store:    store,
		observer: observer,
		logger:   logger,
	}
}

// Run crawls the configured domain, submits every candidate, and persists
// the outcome. Persistence happens exactly once per run, including when ctx
// is canceled mid-flight; only a crawl setup failure aborts before it.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	candidates, err := r.crawler.Crawl(ctx)
	if err != nil {
		return Summary{Domain: r.domain}, fmt.Errorf("crawl %s: %w", r.domain, err)
	}
	return r.submitAndPersist(ctx, candidates), nil
}

// RunRetry submits a previously failed URL set, bypassing the crawl phase.
func (r *Runner) RunRetry(ctx context.Context, urls []string) (Summary, error) {
	if len(urls) == 0 {
		return Summary{Domain: r.domain}, fmt.Errorf("retry run for %s: empty url set", r.domain)
	}
	r.logger.Info("retrying previously failed urls",
		zap.String("domain", r.domain),
		zap.Int("count", len(urls)),
	)
	return r.submitAndPersist(ctx, urls), nil
}

func (r *Runner) submitAndPersist(ctx context.Context, candidates []string) Summary {
	outcome := r.pipeline.Run(ctx, candidates)

	summary := Summary{
		Domain:      r.domain,
		Candidates:  len(candidates),
		Successful:  outcome.Successful,
		Failed:      outcome.Failed,
		Interrupted: ctx.Err() != nil,
	}

	successPath, failedPath, err := r.store.Persist(results.Summary{
		Domain:     r.domain,
		Total:      len(candidates),
		Successful: outcome.Successful,
		Failed:     outcome.Failed,
	})
	if err != nil {
		// The archive work itself finished; losing the audit files is a
		// distinct failure the caller must see.
		r.logger.Error("persisting results failed", zap.Error(err))
		summary.PersistErr = err
	} else {
		summary.SuccessPath = successPath
		summary.FailedPath = failedPath
	}

	r.observer.JobFinished(len(outcome.Successful), len(outcome.Failed))
	r.logger.Info("job finished",
		zap.String("domain", r.domain),
		zap.Int("candidates", len(candidates)),
		zap.Int("successful", len(outcome.Successful)),
		zap.Int("failed", len(outcome.Failed)),
		zap.Bool("interrupted", summary.Interrupted),
	)
	return summary
}
