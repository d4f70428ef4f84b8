package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/waybackd/wayback-archiver/internal/progress"
)

// Frontier runs the breadth-first crawl. An explicit FIFO queue of
// (url, depth) pairs keeps the traversal iterative; deep sites cannot
// exhaust the stack the way a recursive walk could.
type Frontier struct {
	cfg      Config
	fetcher  Fetcher
	robots   RobotsPolicy
	observer progress.Observer
	logger   *zap.Logger

	records map[string]*URLRecord
	order   []string
	visited int
}

type queueItem struct {
	url   string
	depth int
}

// NewFrontier wires a Frontier. The observer may be nil.
func NewFrontier(cfg Config, fetcher Fetcher, robots RobotsPolicy, observer progress.Observer, logger *zap.Logger) *Frontier {
	if observer == nil {
		observer = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		cfg:      cfg,
		fetcher:  fetcher,
		robots:   robots,
		observer: observer,
		logger:   logger,
		records:  make(map[string]*URLRecord),
	}
}

// Crawl walks the target domain breadth-first from the configured root and
// returns the candidate URL set: every visited URL, including pages whose
// fetch failed, minus filtered ones. Filter checks run before any fetch and
// the first matching filter wins. Crawl stops when the queue empties, the
// visited count reaches MaxPages, or ctx is canceled; cancellation returns
// the candidates discovered so far.
func (f *Frontier) Crawl(ctx context.Context) ([]string, error) {
	root, err := NormalizeURL(f.cfg.RootURL)
	if err != nil {
		return nil, fmt.Errorf("normalize root url: %w", err)
	}
	f.observer.CrawlStarted(root)
	f.logger.Info("crawl starting",
		zap.String("root", root),
		zap.String("host", f.cfg.TargetHost),
		zap.Int("max_depth", f.cfg.MaxDepth),
		zap.Int("max_pages", f.cfg.MaxPages),
	)

	queue := []queueItem{{url: root, depth: 0}}
	f.track(root, 0, StatusQueued)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			f.logger.Warn("crawl interrupted", zap.Int("visited", f.visited))
			break
		}
		if f.cfg.MaxPages > 0 && f.visited >= f.cfg.MaxPages {
			f.logger.Info("page budget reached", zap.Int("max_pages", f.cfg.MaxPages))
			break
		}
		item := queue[0]
		queue = queue[1:]
		queue = f.processItem(ctx, item, queue)
	}

	candidates := f.Candidates()
	f.logger.Info("crawl finished",
		zap.Int("visited", f.visited),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (f *Frontier) processItem(ctx context.Context, item queueItem, queue []queueItem) []queueItem {
	record := f.records[item.url]
	if record != nil && record.Terminal() {
		return queue
	}
	if reason := f.filterReason(ctx, item); reason != "" {
		f.track(item.url, item.depth, StatusFiltered)
		PagesFiltered.Inc()
		f.logger.Debug("url filtered", zap.String("url", item.url), zap.String("reason", reason))
		return queue
	}

	page, err := f.fetcher.Fetch(ctx, item.url)
	f.visited++
	f.observer.URLVisited(item.url, f.visited)
	if err != nil {
		// The branch yields no children but the URL stays archivable.
		f.track(item.url, item.depth, StatusFetchError)
		FetchErrors.Inc()
		f.logger.Warn("fetch failed", zap.String("url", item.url), zap.Error(err))
		return queue
	}
	f.track(item.url, item.depth, StatusVisited)
	PagesVisited.Inc()

	if page.StatusCode != 200 || !page.IsHTML() {
		f.logger.Debug("no links extracted",
			zap.String("url", item.url),
			zap.Int("status", page.StatusCode),
			zap.String("content_type", page.Headers.Get("Content-Type")),
		)
		return queue
	}

	base, err := url.Parse(page.FinalURL)
	if err != nil {
		base, err = url.Parse(item.url)
		if err != nil {
			return queue
		}
	}
	links, err := ExtractLinks(base, page.Body)
	if err != nil {
		f.logger.Warn("link extraction failed", zap.String("url", item.url), zap.Error(err))
		return queue
	}
	for _, link := range links {
		if _, known := f.records[link]; known {
			continue
		}
		f.track(link, item.depth+1, StatusQueued)
		queue = append(queue, queueItem{url: link, depth: item.depth + 1})
	}
	return queue
}

// filterReason applies the filter chain in order and returns
// the name of the first matching filter, or "" when the URL may be fetched.
// Robots comes last so denied URLs do not cost a robots.txt fetch when a
// cheaper filter already rejects them.
func (f *Frontier) filterReason(ctx context.Context, item queueItem) string {
	parsed, err := url.Parse(item.url)
	if err != nil {
		return "unparseable"
	}
	if !strings.EqualFold(parsed.Hostname(), f.cfg.TargetHost) {
		return "outside_domain"
	}
	if f.cfg.MaxDepth > 0 && item.depth > f.cfg.MaxDepth {
		return "depth_exceeded"
	}
	if f.cfg.HTTPSOnly && parsed.Scheme != "https" {
		return "not_https"
	}
	if f.cfg.ExcludeImages && isImageURL(parsed) {
		return "image"
	}
	for _, pattern := range f.cfg.ExcludePatterns {
		if pattern != "" && strings.Contains(parsed.Path, pattern) {
			return "exclude_pattern"
		}
	}
	if !IsSafe(item.url) {
		return "unsafe"
	}
	if !f.robots.Allowed(ctx, item.url) {
		return "robots"
	}
	return ""
}

// track records a status transition for a URL, creating the record on first
// sight. Transitions never regress.
func (f *Frontier) track(rawURL string, depth int, status Status) {
	record, ok := f.records[rawURL]
	if !ok {
		record = &URLRecord{URL: rawURL, Depth: depth, Status: StatusDiscovered}
		f.records[rawURL] = record
		f.order = append(f.order, rawURL)
	}
	record.advance(status)
}

// Candidates returns the URLs to archive in discovery order: every URL that
// was fetched (successfully or not), excluding filtered ones.
func (f *Frontier) Candidates() []string {
	var out []string
	for _, u := range f.order {
		switch f.records[u].Status {
		case StatusVisited, StatusFetchError:
			out = append(out, u)
		}
	}
	return out
}

// Records returns a snapshot of every tracked URL.
func (f *Frontier) Records() []URLRecord {
	out := make([]URLRecord, 0, len(f.order))
	for _, u := range f.order {
		out = append(out, *f.records[u])
	}
	return out
}
