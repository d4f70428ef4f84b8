package archiver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// StatusError reports a non-success response from the save endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("archive api returned status %d", e.Code)
}

// Client submits single URLs to the Save Page Now endpoint.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger
}

// NewClient builds a Client from a validated Config.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// Submit performs one capture attempt for target. A nil return means the
// archive accepted the capture (HTTP 200 or 201). Any other status returns a
// *StatusError; transport failures return the underlying error. Every
// non-success outcome is retryable by contract, client errors included.
func (c *Client) Submit(ctx context.Context, target string) error {
	req, err := c.buildRequest(ctx, target)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit %s: %w", target, err)
	}
	defer func() {
		// Drain so the connection can be reused across submissions.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close archive response body", zap.Error(cerr))
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	default:
		return &StatusError{Code: resp.StatusCode}
	}
}

func (c *Client) buildRequest(ctx context.Context, target string) (*http.Request, error) {
	params := url.Values{}
	params.Set("url", target)
	params.Set("capture_all", "1")
	params.Set("capture_outlinks", "0")
	params.Set("delay", strconv.Itoa(c.cfg.ResourceDelay))
	params.Set("if_not_archived_within", strconv.Itoa(int(c.cfg.FreshnessWindow.Seconds())))

	switch {
	case c.cfg.S3AccessKey != "" && c.cfg.S3SecretKey != "":
		params.Set("s3_access_key", c.cfg.S3AccessKey)
		params.Set("s3_secret_key", c.cfg.S3SecretKey)
	case c.cfg.Email != "":
		params.Set("email", c.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new archive request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("From", c.cfg.From)
	return req, nil
}
