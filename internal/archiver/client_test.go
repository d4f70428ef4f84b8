package archiver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCaptureServer(t *testing.T, status int, captured *url.Values, headers *http.Header) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		*captured = r.URL.Query()
		*headers = r.Header.Clone()
		w.WriteHeader(status)
	}))
}

func testClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	require.NoError(t, cfg.Validate())
	return NewClient(cfg, zap.NewNop())
}

func TestClientSubmitSetsCaptureParameters(t *testing.T) {
	t.Parallel()

	var params url.Values
	var headers http.Header
	srv := newCaptureServer(t, http.StatusOK, &params, &headers)
	defer srv.Close()

	client := testClient(t, Config{
		Endpoint:        srv.URL,
		UserAgent:       "archiver-test",
		FreshnessWindow: 5 * 24 * time.Hour,
	})
	require.NoError(t, client.Submit(context.Background(), "https://blog.example.com/post"))

	require.Equal(t, "https://blog.example.com/post", params.Get("url"))
	require.Equal(t, "1", params.Get("capture_all"))
	require.Equal(t, "0", params.Get("capture_outlinks"))
	require.Equal(t, "1", params.Get("delay"))
	require.Equal(t, "432000", params.Get("if_not_archived_within"))
	require.Equal(t, "archiver-test", headers.Get("User-Agent"))
	require.Equal(t, DefaultFrom, headers.Get("From"))
}

func TestClientAuthPrecedence(t *testing.T) {
	t.Parallel()

	t.Run("s3 keys win over email", func(t *testing.T) {
		t.Parallel()
		var params url.Values
		var headers http.Header
		srv := newCaptureServer(t, http.StatusOK, &params, &headers)
		defer srv.Close()

		client := testClient(t, Config{
			Endpoint:    srv.URL,
			Email:       "user@example.com",
			S3AccessKey: "AKEY",
			S3SecretKey: "SKEY",
		})
		require.NoError(t, client.Submit(context.Background(), "https://blog.example.com/"))
		require.Equal(t, "AKEY", params.Get("s3_access_key"))
		require.Equal(t, "SKEY", params.Get("s3_secret_key"))
		require.Empty(t, params.Get("email"))
		require.Equal(t, "user@example.com", headers.Get("From"))
	})

	t.Run("email without keys", func(t *testing.T) {
		t.Parallel()
		var params url.Values
		var headers http.Header
		srv := newCaptureServer(t, http.StatusOK, &params, &headers)
		defer srv.Close()

		client := testClient(t, Config{Endpoint: srv.URL, Email: "user@example.com"})
		require.NoError(t, client.Submit(context.Background(), "https://blog.example.com/"))
		require.Equal(t, "user@example.com", params.Get("email"))
		require.Empty(t, params.Get("s3_access_key"))
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		var params url.Values
		var headers http.Header
		srv := newCaptureServer(t, http.StatusOK, &params, &headers)
		defer srv.Close()

		client := testClient(t, Config{Endpoint: srv.URL})
		require.NoError(t, client.Submit(context.Background(), "https://blog.example.com/"))
		require.Empty(t, params.Get("email"))
		require.Equal(t, DefaultFrom, headers.Get("From"))
	})
}

func TestClientSubmitStatusHandling(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		client := testClient(t, Config{Endpoint: srv.URL})
		require.NoError(t, client.Submit(context.Background(), "https://blog.example.com/"))
		srv.Close()
	}

	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadRequest, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		client := testClient(t, Config{Endpoint: srv.URL})
		err := client.Submit(context.Background(), "https://blog.example.com/")
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, status, statusErr.Code)
		srv.Close()
	}
}

func TestClientSubmitTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := testClient(t, Config{Endpoint: srv.URL})
	err := client.Submit(context.Background(), "https://blog.example.com/")
	require.Error(t, err)
	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))
}
