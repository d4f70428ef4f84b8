package archiver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigValidateFillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{Delay: 15 * time.Second, BackoffFactor: 1.5}
	require.NoError(t, cfg.Validate())

	require.Equal(t, DefaultEndpoint, cfg.Endpoint)
	require.Equal(t, DefaultUserAgent, cfg.UserAgent)
	require.Equal(t, DefaultFrom, cfg.From)
	require.Equal(t, DefaultFreshnessWindow, cfg.FreshnessWindow)
	require.Equal(t, DefaultResourceDelay, cfg.ResourceDelay)
	require.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	require.Equal(t, 15*time.Second, cfg.BaseDelay)
	require.Equal(t, 1, cfg.Concurrency)
}

func TestConfigValidateFromPrecedence(t *testing.T) {
	t.Parallel()

	cfg := Config{Email: "user@example.com", BackoffFactor: 1}
	require.NoError(t, cfg.Validate())
	require.Equal(t, "user@example.com", cfg.From)

	explicit := Config{From: "ops@example.com", Email: "user@example.com", BackoffFactor: 1}
	require.NoError(t, explicit.Validate())
	require.Equal(t, "ops@example.com", explicit.From)
}

func TestConfigValidateRejections(t *testing.T) {
	t.Parallel()

	cases := map[string]Config{
		"negative delay":       {Delay: -time.Second, BackoffFactor: 1},
		"negative max retries": {MaxRetries: -1, BackoffFactor: 1},
		"backoff under one":    {BackoffFactor: 0.5},
		"negative batch size":  {BatchSize: -1, BackoffFactor: 1},
		"lone s3 access key":   {S3AccessKey: "AKEY", BackoffFactor: 1},
		"lone s3 secret key":   {S3SecretKey: "SKEY", BackoffFactor: 1},
	}
	for name, cfg := range cases {
		cfg := cfg
		require.Error(t, cfg.Validate(), name)
	}
}
