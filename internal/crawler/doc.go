// Package crawler implements the breadth-first frontier crawl that discovers
// the pages to archive: URL safety validation, robots.txt enforcement, link
// extraction, and the filter chain that scopes the crawl to one domain.
package crawler
