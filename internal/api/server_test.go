package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waybackd/wayback-archiver/internal/progress"
)

func TestServerHealthz(t *testing.T) {
	t.Parallel()

	srv := NewServer(progress.NewTracker(), zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestServerStatusReflectsTracker(t *testing.T) {
	t.Parallel()

	tracker := progress.NewTracker()
	tracker.CrawlStarted("https://blog.example.com/")
	tracker.URLVisited("https://blog.example.com/a", 4)

	srv := NewServer(tracker, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status progress.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.Running)
	require.Equal(t, progress.PhaseCrawling, status.Phase)
	require.Equal(t, "https://blog.example.com/a", status.CurrentURL)
	require.Equal(t, 4, status.Progress)
}

func TestServerMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := NewServer(progress.NewTracker(), zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServerUnknownRoute(t *testing.T) {
	t.Parallel()

	srv := NewServer(progress.NewTracker(), zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
