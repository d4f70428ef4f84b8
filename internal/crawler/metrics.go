package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesVisited tracks pages fetched and kept as archive candidates.
	PagesVisited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archiver_crawl_pages_visited_total",
		Help: "The total number of pages fetched during crawling.",
	})
	// PagesFiltered tracks URLs rejected by the filter chain before fetch.
	PagesFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archiver_crawl_pages_filtered_total",
		Help: "The total number of URLs filtered out before fetching.",
	})
	// FetchErrors tracks pages whose fetch failed at the transport level.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archiver_crawl_fetch_errors_total",
		Help: "The total number of page fetches that failed.",
	})
)
