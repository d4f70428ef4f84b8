package archiver

import (
	"fmt"
	"time"
)

// Default values mirroring the Save Page Now API recommendations.
const (
	DefaultEndpoint        = "https://web.archive.org/save"
	DefaultUserAgent       = "wayback-subdomain-archiver/1.0 (+https://github.com/waybackd/wayback-archiver)"
	DefaultFrom            = "anonymous_archiver@example.com"
	DefaultFreshnessWindow = 5 * 24 * time.Hour
	DefaultResourceDelay   = 1
	DefaultRequestTimeout  = 30 * time.Second
)

// Config holds the knobs for one submission run.
type Config struct {
	// Endpoint is the Save Page Now URL; only overridden in tests.
	Endpoint string
	// UserAgent and From identify the client to the archive.
	UserAgent string
	From      string

	// Authentication, in precedence order: S3 key pair, then email, then
	// the anonymous From identity.
	Email       string
	S3AccessKey string
	S3SecretKey string

	// Delay paces submissions globally: at most one outbound submission per
	// Delay, regardless of retries or concurrency.
	Delay time.Duration
	// FreshnessWindow skips capture when the archive already has a snapshot
	// younger than this.
	FreshnessWindow time.Duration
	// ResourceDelay is the inter-resource delay the archive applies while
	// capturing page requisites, in seconds.
	ResourceDelay int

	// MaxRetries bounds retries per URL; total attempts are MaxRetries + 1.
	MaxRetries int
	// BaseDelay and BackoffFactor shape retry waits:
	// wait(r) = BaseDelay × BackoffFactor^r. BaseDelay falls back to Delay.
	BaseDelay     time.Duration
	BackoffFactor float64

	// BatchSize and BatchPause insert a longer cooldown after every
	// BatchSize processed URLs, independent of retry backoff.
	BatchSize  int
	BatchPause time.Duration

	// Concurrency bounds in-flight submissions; <= 1 means sequential.
	Concurrency int

	// RequestTimeout caps each HTTP submission attempt.
	RequestTimeout time.Duration
}

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.From == "" {
		if c.Email != "" {
			c.From = c.Email
		} else {
			c.From = DefaultFrom
		}
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must be >= 0")
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = DefaultFreshnessWindow
	}
	if c.ResourceDelay <= 0 {
		c.ResourceDelay = DefaultResourceDelay
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = c.Delay
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff factor must be >= 1")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be >= 0")
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
		return fmt.Errorf("s3 access key and secret key must be set together")
	}
	return nil
}
