// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob, loadable from a config file,
// WAYBACK_-prefixed environment variables, or CLI flag bindings.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Archiver ArchiverConfig `mapstructure:"archiver"`
	Results  ResultsConfig  `mapstructure:"results"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlerConfig governs the discovery phase.
type CrawlerConfig struct {
	RootURL         string        `mapstructure:"root_url"`
	ExcludePatterns []string      `mapstructure:"exclude_patterns"`
	MaxDepth        int           `mapstructure:"max_depth"`
	MaxPages        int           `mapstructure:"max_pages"`
	RespectRobots   bool          `mapstructure:"respect_robots"`
	HTTPSOnly       bool          `mapstructure:"https_only"`
	ExcludeImages   bool          `mapstructure:"exclude_images"`
	UserAgent       string        `mapstructure:"user_agent"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	RobotsTTL       time.Duration `mapstructure:"robots_ttl"`
}

// ArchiverConfig governs the submission phase.
type ArchiverConfig struct {
	Email           string        `mapstructure:"email"`
	S3AccessKey     string        `mapstructure:"s3_access_key"`
	S3SecretKey     string        `mapstructure:"s3_secret_key"`
	Delay           time.Duration `mapstructure:"delay"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BackoffFactor   float64       `mapstructure:"backoff_factor"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchPause      time.Duration `mapstructure:"batch_pause"`
	Concurrency     int           `mapstructure:"concurrency"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// ResultsConfig controls outcome persistence.
type ResultsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the optional status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// defaultExcludePatterns are the WordPress and utility paths that rarely
// deserve an archive snapshot of their own.
var defaultExcludePatterns = []string{
	"/tag/", "/category/", "/author/", "/page/", "/comment-page-",
	"/wp-json/", "/feed/", "/wp-content/cache/", "/wp-admin/",
	"/search/", "/login/", "/register/", "/signup/", "/logout/",
	"/privacy-policy/", "/terms-of-service/", "/404/", "/error/",
}

// Load builds a Config from disk and environment.
func Load(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix("WAYBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.exclude_patterns", defaultExcludePatterns)
	v.SetDefault("crawler.max_depth", 0)
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.https_only", true)
	v.SetDefault("crawler.exclude_images", true)
	v.SetDefault("crawler.user_agent", "Wayback_Machine_Subdomain_Archiver/1.1 (respect@archive.org)")
	v.SetDefault("crawler.fetch_timeout", "10s")
	v.SetDefault("crawler.robots_ttl", "30m")

	v.SetDefault("archiver.delay", "15s")
	v.SetDefault("archiver.max_retries", 3)
	v.SetDefault("archiver.backoff_factor", 1.5)
	v.SetDefault("archiver.batch_size", 150)
	v.SetDefault("archiver.batch_pause", "180s")
	v.SetDefault("archiver.concurrency", 1)
	v.SetDefault("archiver.freshness_window", "120h")
	v.SetDefault("archiver.request_timeout", "30s")

	v.SetDefault("results.dir", "results")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. The crawl seed
// itself is validated by the crawler config, which owns URL semantics.
func (c Config) Validate() error {
	if c.Archiver.Delay < 0 {
		return fmt.Errorf("archiver.delay must be >= 0")
	}
	if c.Archiver.MaxRetries < 0 {
		return fmt.Errorf("archiver.max_retries must be >= 0")
	}
	if c.Archiver.BackoffFactor < 1 {
		return fmt.Errorf("archiver.backoff_factor must be >= 1")
	}
	if c.Archiver.BatchSize < 0 {
		return fmt.Errorf("archiver.batch_size must be >= 0")
	}
	if c.Archiver.Concurrency < 0 {
		return fmt.Errorf("archiver.concurrency must be >= 0")
	}
	if (c.Archiver.S3AccessKey == "") != (c.Archiver.S3SecretKey == "") {
		return fmt.Errorf("archiver.s3_access_key and archiver.s3_secret_key must be set together")
	}
	if c.Results.Dir == "" {
		return fmt.Errorf("results.dir must be set")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}
