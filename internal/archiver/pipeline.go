package archiver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/waybackd/wayback-archiver/internal/progress"
)

// Submitter performs one capture attempt; Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, target string) error
}

// Outcome partitions the processed URLs. A URL appears in exactly one of
// the two sets; URLs skipped by cancellation appear in neither.
type Outcome struct {
	Successful []string
	Failed     []string
}

// Pipeline drives submissions for a candidate URL set.
type Pipeline struct {
	submitter  Submitter
	limiter    *rate.Limiter
	retry      RetryPolicy
	batchSize  int
	batchPause time.Duration
	pool       *semaphore.Weighted
	workers    int
	observer   progress.Observer
	logger     *zap.Logger
}

// NewPipeline builds a Pipeline from a validated Config. The observer may
// be nil.
func NewPipeline(cfg Config, submitter Submitter, observer progress.Observer, logger *zap.Logger) *Pipeline {
	if observer == nil {
		observer = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Pipeline{
		submitter: submitter,
		limiter:   rate.NewLimiter(limit, 1),
		retry: RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.BaseDelay,
			Factor:     cfg.BackoffFactor,
		},
		batchSize:  cfg.BatchSize,
		batchPause: cfg.BatchPause,
		pool:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		workers:    cfg.Concurrency,
		observer:   observer,
		logger:     logger,
	}
}

// Run submits every URL and returns the resulting partition. Cancellation
// stops dispatch of new work; URLs already terminal keep their outcome and
// the partial Outcome is returned for persistence.
func (p *Pipeline) Run(ctx context.Context, urls []string) Outcome {
	p.observer.SubmitStarted(len(urls))
	p.logger.Info("submission starting",
		zap.Int("urls", len(urls)),
		zap.Int("workers", p.workers),
		zap.Int("batch_size", p.batchSize),
	)
	var out Outcome
	if p.workers <= 1 {
		out = p.runSequential(ctx, urls)
	} else {
		out = p.runConcurrent(ctx, urls)
	}
	p.logger.Info("submission finished",
		zap.Int("successful", len(out.Successful)),
		zap.Int("failed", len(out.Failed)),
	)
	return out
}

func (p *Pipeline) runSequential(ctx context.Context, urls []string) Outcome {
	var out Outcome
	for i, target := range urls {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && p.batchSize > 0 && i%p.batchSize == 0 {
			p.logger.Info("batch complete, pausing",
				zap.Int("batch", i/p.batchSize),
				zap.Duration("pause", p.batchPause),
			)
			if !sleepCtx(ctx, p.batchPause) {
				break
			}
		}
		ok, processed := p.submitWithRetry(ctx, target)
		if !processed {
			break
		}
		recordOutcome(&out, target, ok)
		p.observer.URLSubmitted(target, ok, len(out.Successful)+len(out.Failed))
	}
	return out
}

// runConcurrent processes URLs batch by batch. Within a batch the semaphore
// bounds in-flight submissions; the rate limiter still paces the whole pool,
// and the batch pause separates batches regardless of worker count.
func (p *Pipeline) runConcurrent(ctx context.Context, urls []string) Outcome {
	var (
		mu  sync.Mutex
		out Outcome
	)
	for start := 0; start < len(urls); start += p.batchLen(len(urls)) {
		if ctx.Err() != nil {
			break
		}
		if start > 0 && !sleepCtx(ctx, p.batchPause) {
			break
		}
		end := min(start+p.batchLen(len(urls)), len(urls))

		var wg sync.WaitGroup
		for _, target := range urls[start:end] {
			if err := p.pool.Acquire(ctx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				defer p.pool.Release(1)
				ok, processed := p.submitWithRetry(ctx, target)
				if !processed {
					return
				}
				mu.Lock()
				recordOutcome(&out, target, ok)
				n := len(out.Successful) + len(out.Failed)
				mu.Unlock()
				p.observer.URLSubmitted(target, ok, n)
			}(target)
		}
		wg.Wait()
	}
	return out
}

func (p *Pipeline) batchLen(total int) int {
	if p.batchSize > 0 {
		return p.batchSize
	}
	return total
}

// submitWithRetry runs the attempt/backoff state machine for one URL. The
// returned processed flag is false when cancellation interrupted the URL
// before it reached a terminal outcome.
func (p *Pipeline) submitWithRetry(ctx context.Context, target string) (ok, processed bool) {
	attempts := p.retry.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return false, false
		}
		err := p.submitter.Submit(ctx, target)
		if err == nil {
			Submissions.WithLabelValues("success").Inc()
			p.logger.Info("archived", zap.String("url", target), zap.Int("attempt", attempt+1))
			return true, true
		}
		if ctx.Err() != nil {
			return false, false
		}
		p.logger.Warn("submission attempt failed",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if attempt == attempts-1 {
			break
		}
		Retries.Inc()
		if !sleepCtx(ctx, p.retry.Wait(attempt)) {
			return false, false
		}
	}
	Submissions.WithLabelValues("failed").Inc()
	return false, true
}

func recordOutcome(out *Outcome, target string, ok bool) {
	if ok {
		out.Successful = append(out.Successful, target)
	} else {
		out.Failed = append(out.Failed, target)
	}
}

// sleepCtx waits for d unless ctx finishes first; it reports whether the
// full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
