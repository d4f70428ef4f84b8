package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Config holds the settings for one crawl job. It is built once by the
// caller and treated as immutable after the job starts.
type Config struct {
	// RootURL is the seed, e.g. "https://blog.example.com".
	RootURL string
	// TargetHost scopes the crawl; derived from RootURL when empty.
	TargetHost string
	// ExcludePatterns are matched as substrings of the URL path.
	ExcludePatterns []string
	// MaxDepth bounds discovery depth; <= 0 means unlimited.
	MaxDepth int
	// MaxPages bounds the number of fetched pages; <= 0 means unlimited.
	MaxPages int

	RespectRobots bool
	HTTPSOnly     bool
	ExcludeImages bool

	UserAgent    string
	FetchTimeout time.Duration
	RobotsTTL    time.Duration
}

// Validate checks the seed URL and normalizes derived fields in place.
// It rejects seeds that the safety validator would reject, so a job can
// never be configured against a loopback or private target.
func (c *Config) Validate() error {
	if c.RootURL == "" {
		return fmt.Errorf("root url must be set")
	}
	parsed, err := url.Parse(c.RootURL)
	if err != nil {
		return fmt.Errorf("parse root url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("root url scheme must be http or https, got %q", parsed.Scheme)
	}
	if c.HTTPSOnly && parsed.Scheme != "https" {
		return fmt.Errorf("root url must be https when https-only is set")
	}
	if !IsSafe(c.RootURL) {
		return fmt.Errorf("root url %q failed safety validation", c.RootURL)
	}
	host := strings.ToLower(parsed.Hostname())
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return fmt.Errorf("root url host %q has no registrable domain: %w", host, err)
	}
	if c.TargetHost == "" {
		c.TargetHost = host
	} else if !strings.EqualFold(c.TargetHost, host) {
		return fmt.Errorf("target host %q does not match root url host %q", c.TargetHost, host)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent must be set")
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.RobotsTTL <= 0 {
		c.RobotsTTL = 30 * time.Minute
	}
	return nil
}
