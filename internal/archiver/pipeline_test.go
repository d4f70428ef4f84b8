package archiver

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedSubmitter returns a scripted error sequence per URL; a nil entry
// means success. After the script runs out it keeps returning the last entry.
type scriptedSubmitter struct {
	mu      sync.Mutex
	scripts map[string][]error
	calls   map[string]int
	order   []string
}

func newScriptedSubmitter() *scriptedSubmitter {
	return &scriptedSubmitter{
		scripts: make(map[string][]error),
		calls:   make(map[string]int),
	}
}

func (s *scriptedSubmitter) script(url string, errs ...error) {
	s.scripts[url] = errs
}

func (s *scriptedSubmitter) Submit(_ context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, target)
	idx := s.calls[target]
	s.calls[target]++
	script := s.scripts[target]
	if len(script) == 0 {
		return nil
	}
	if idx >= len(script) {
		idx = len(script) - 1
	}
	return script[idx]
}

func (s *scriptedSubmitter) attempts(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func testPipeline(t *testing.T, cfg Config, submitter Submitter) *Pipeline {
	t.Helper()
	require.NoError(t, cfg.Validate())
	return NewPipeline(cfg, submitter, nil, zap.NewNop())
}

func TestPipelineRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	target := "https://blog.example.com/post"
	submitter := newScriptedSubmitter()
	submitter.script(target,
		&StatusError{Code: http.StatusTooManyRequests},
		&StatusError{Code: http.StatusTooManyRequests},
		nil,
	)

	cfg := Config{
		MaxRetries:    3,
		BaseDelay:     10 * time.Millisecond,
		BackoffFactor: 2,
	}
	start := time.Now()
	out := testPipeline(t, cfg, submitter).Run(context.Background(), []string{target})
	elapsed := time.Since(start)

	require.Equal(t, []string{target}, out.Successful)
	require.Empty(t, out.Failed)
	require.Equal(t, 3, submitter.attempts(target))
	// Two backoffs: 10ms then 20ms.
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestPipelineExhaustedRetriesMarksFailed(t *testing.T) {
	t.Parallel()

	target := "https://blog.example.com/broken"
	submitter := newScriptedSubmitter()
	submitter.script(target, &StatusError{Code: http.StatusInternalServerError})

	cfg := Config{
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		BackoffFactor: 1,
	}
	out := testPipeline(t, cfg, submitter).Run(context.Background(), []string{target})

	require.Empty(t, out.Successful)
	require.Equal(t, []string{target}, out.Failed)
	require.Equal(t, 3, submitter.attempts(target))
}

func TestPipelineClientErrorsAreRetriedToo(t *testing.T) {
	t.Parallel()

	target := "https://blog.example.com/gone"
	submitter := newScriptedSubmitter()
	submitter.script(target, &StatusError{Code: http.StatusNotFound}, nil)

	cfg := Config{
		MaxRetries:    1,
		BaseDelay:     time.Millisecond,
		BackoffFactor: 1,
	}
	out := testPipeline(t, cfg, submitter).Run(context.Background(), []string{target})
	require.Equal(t, []string{target}, out.Successful)
	require.Equal(t, 2, submitter.attempts(target))
}

func TestPipelinePartitionsEveryURLOnce(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://blog.example.com/a",
		"https://blog.example.com/b",
		"https://blog.example.com/c",
		"https://blog.example.com/d",
	}
	submitter := newScriptedSubmitter()
	submitter.script(urls[1], &StatusError{Code: http.StatusBadGateway})
	submitter.script(urls[3], &StatusError{Code: http.StatusBadGateway})

	cfg := Config{
		MaxRetries:    0,
		BackoffFactor: 1,
	}
	out := testPipeline(t, cfg, submitter).Run(context.Background(), urls)

	require.Equal(t, []string{urls[0], urls[2]}, out.Successful)
	require.Equal(t, []string{urls[1], urls[3]}, out.Failed)

	seen := make(map[string]int)
	for _, u := range out.Successful {
		seen[u]++
	}
	for _, u := range out.Failed {
		seen[u]++
	}
	for u, n := range seen {
		require.Equal(t, 1, n, "url %s appeared %d times", u, n)
	}
	require.Len(t, seen, len(urls))
}

func TestPipelineSequentialBatchPause(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://blog.example.com/1",
		"https://blog.example.com/2",
		"https://blog.example.com/3",
	}
	submitter := newScriptedSubmitter()
	cfg := Config{
		BackoffFactor: 1,
		BatchSize:     2,
		BatchPause:    40 * time.Millisecond,
	}
	start := time.Now()
	out := testPipeline(t, cfg, submitter).Run(context.Background(), urls)
	elapsed := time.Since(start)

	require.Len(t, out.Successful, 3)
	// One pause between the first batch of two and the final URL.
	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	require.Less(t, elapsed, 200*time.Millisecond)
}

func TestPipelineConcurrentProcessesAll(t *testing.T) {
	t.Parallel()

	var urls []string
	for _, path := range []string{"a", "b", "c", "d", "e", "f"} {
		urls = append(urls, "https://blog.example.com/"+path)
	}
	submitter := newScriptedSubmitter()
	submitter.script(urls[2], &StatusError{Code: http.StatusServiceUnavailable})

	cfg := Config{
		MaxRetries:    0,
		BackoffFactor: 1,
		Concurrency:   3,
	}
	out := testPipeline(t, cfg, submitter).Run(context.Background(), urls)

	require.Len(t, out.Successful, 5)
	require.Equal(t, []string{urls[2]}, out.Failed)
}

func TestPipelineCancellationLeavesRemainderUnrecorded(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://blog.example.com/first",
		"https://blog.example.com/second",
		"https://blog.example.com/third",
	}
	ctx, cancel := context.WithCancel(context.Background())
	submitter := newScriptedSubmitter()

	// Cancel as soon as the first URL is submitted.
	cancelling := submitFunc(func(c context.Context, target string) error {
		err := submitter.Submit(c, target)
		cancel()
		return err
	})

	cfg := Config{BackoffFactor: 1}
	out := testPipeline(t, cfg, cancelling).Run(ctx, urls)

	require.Equal(t, []string{urls[0]}, out.Successful)
	require.Empty(t, out.Failed)

	members := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		members[u] = struct{}{}
	}
	for _, u := range append(out.Successful, out.Failed...) {
		_, ok := members[u]
		require.True(t, ok, "outcome url %s not in candidate set", u)
	}
}

type submitFunc func(ctx context.Context, target string) error

func (f submitFunc) Submit(ctx context.Context, target string) error {
	return f(ctx, target)
}
