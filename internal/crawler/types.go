package crawler

import (
	"context"
	"net/http"
)

// Status is the lifecycle state of a discovered URL.
type Status string

// URL statuses. Transitions are monotonic: a record never moves back toward
// Discovered once it has advanced.
const (
	StatusDiscovered Status = "discovered"
	StatusQueued     Status = "queued"
	StatusVisited    Status = "visited"
	StatusFiltered   Status = "filtered"
	StatusFetchError Status = "fetch_error"
)

var statusRank = map[Status]int{
	StatusDiscovered: 0,
	StatusQueued:     1,
	StatusVisited:    2,
	StatusFiltered:   2,
	StatusFetchError: 2,
}

// URLRecord tracks one URL through the crawl.
type URLRecord struct {
	URL    string
	Depth  int
	Status Status
}

// advance moves the record to next unless that would regress its status.
func (r *URLRecord) advance(next Status) {
	if statusRank[next] < statusRank[r.Status] {
		return
	}
	r.Status = next
}

// Terminal reports whether the record has reached a final state.
func (r *URLRecord) Terminal() bool {
	return statusRank[r.Status] >= statusRank[StatusVisited]
}

// Page is the result of fetching one URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsHTML reports whether the response claims an HTML body.
func (p Page) IsHTML() bool {
	return containsLower(p.Headers.Get("Content-Type"), "text/html")
}

// Fetcher fetches a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// RobotsPolicy decides whether a URL may be fetched under robots.txt rules.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}
