package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const robotsBodyLimit = 1 << 20

// RobotsCache enforces robots.txt directives with a TTL-bounded per-origin
// cache. Fetch and parse failures fail open: politeness is best effort, not
// a security boundary. Concurrent lookups for the same origin coalesce into
// a single fetch.
type RobotsCache struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]robotsEntry
	group   singleflight.Group
}

type robotsEntry struct {
	data    *robotstxt.RobotsData
	expires time.Time
}

// NewRobotsPolicy builds the policy honoring the respect toggle; when robots
// enforcement is disabled it returns an allow-all policy.
func NewRobotsPolicy(respect bool, userAgent string, ttl time.Duration, logger *zap.Logger) RobotsPolicy {
	if !respect {
		return allowAllPolicy{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotsCache{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
		ttl:       ttl,
		logger:    logger,
		entries:   make(map[string]robotsEntry),
	}
}

// Allowed implements RobotsPolicy.
func (r *RobotsCache) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := r.load(ctx, parsed)
	if err != nil {
		r.logger.Warn("robots fetch failed; allowing access",
			zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	group := data.FindGroup(r.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

func (r *RobotsCache) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	origin := strings.ToLower(parsed.Scheme + "://" + parsed.Host)

	r.mu.Lock()
	entry, ok := r.entries[origin]
	r.mu.Unlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.data, nil
	}

	v, err, _ := r.group.Do(origin, func() (any, error) {
		data, err := r.fetch(ctx, parsed)
		if err != nil {
			// Cache an allow-all entry so a failing robots endpoint is
			// probed once per TTL, not once per URL checked.
			r.logger.Warn("robots fetch failed; allowing origin until cache expiry",
				zap.String("origin", origin), zap.Error(err))
			data, err = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
			if err != nil {
				return nil, err
			}
		}
		r.mu.Lock()
		r.entries[origin] = robotsEntry{data: data, expires: time.Now().Add(r.ttl)}
		r.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data, ok := v.(*robotstxt.RobotsData)
	if !ok {
		return nil, fmt.Errorf("robots cache type mismatch: %T", v)
	}
	return data, nil
}

func (r *RobotsCache) fetch(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allowed(context.Context, string) bool { return true }
