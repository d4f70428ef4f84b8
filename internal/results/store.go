// Package results persists the terminal outcome sets of an archiving run as
// JSON documents, and loads previously persisted failed sets for retry runs.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoURLs is returned when a retry file contains no failed URLs.
var ErrNoURLs = errors.New("no urls in retry file")

const timestampLayout = "20060102_150405"

type successFile struct {
	Domain         string   `json:"domain"`
	Timestamp      string   `json:"timestamp"`
	TotalURLs      int      `json:"total_urls"`
	SuccessfulURLs []string `json:"successful_urls"`
}

type failedFile struct {
	Domain     string   `json:"domain"`
	Timestamp  string   `json:"timestamp"`
	TotalURLs  int      `json:"total_urls"`
	FailedURLs []string `json:"failed_urls"`
}

// Summary is the input to Persist: both outcome sets of a finished run.
type Summary struct {
	Domain     string
	Total      int
	Successful []string
	Failed     []string
}

// Store writes outcome files into a results directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates the results directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create results dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Persist writes the success and failure documents and returns their paths.
// Each write is atomic: content goes to a temp file in the results directory
// which is then renamed over the final name, so a crash never leaves a
// half-written document. Filenames carry a random token so repeated runs
// against one domain never collide.
func (s *Store) Persist(summary Summary) (successPath, failedPath string, err error) {
	now := time.Now().UTC()
	ts := now.Format(timestampLayout)
	token := strings.Split(uuid.NewString(), "-")[0]

	successPath, err = s.writeFile("successful_urls", summary.Domain, ts, token, successFile{
		Domain:         summary.Domain,
		Timestamp:      ts,
		TotalURLs:      summary.Total,
		SuccessfulURLs: emptyNotNil(summary.Successful),
	})
	if err != nil {
		return "", "", err
	}

	failedPath, err = s.writeFile("failed_urls", summary.Domain, ts, token, failedFile{
		Domain:     summary.Domain,
		Timestamp:  ts,
		TotalURLs:  summary.Total,
		FailedURLs: emptyNotNil(summary.Failed),
	})
	if err != nil {
		return "", "", err
	}

	s.logger.Info("results persisted",
		zap.String("successful", successPath),
		zap.String("failed", failedPath),
		zap.Int("success_count", len(summary.Successful)),
		zap.Int("failure_count", len(summary.Failed)),
	)
	return successPath, failedPath, nil
}

func (s *Store) writeFile(class, domain, ts, token string, doc any) (string, error) {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", class, err)
	}
	name := fmt.Sprintf("%s_%s_%s_%s.json",
		class,
		strings.ReplaceAll(domain, ".", "_"),
		ts,
		token,
	)
	target := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+class+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		// Best effort; the temp file is gone after a successful rename.
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o660); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("rename into %s: %w", target, err)
	}
	return target, nil
}

// RetryFile is a previously persisted failed set loaded for resubmission.
type RetryFile struct {
	Domain string
	URLs   []string
}

// LoadRetryFile reads a failed-set document written by Persist.
func LoadRetryFile(path string) (RetryFile, error) {
	payload, err := os.ReadFile(path) // #nosec G304 -- path is operator input
	if err != nil {
		return RetryFile{}, fmt.Errorf("read retry file: %w", err)
	}
	var doc failedFile
	if err := json.Unmarshal(payload, &doc); err != nil {
		return RetryFile{}, fmt.Errorf("parse retry file %s: %w", path, err)
	}
	if len(doc.FailedURLs) == 0 {
		return RetryFile{}, fmt.Errorf("%s: %w", path, ErrNoURLs)
	}
	return RetryFile{Domain: doc.Domain, URLs: doc.FailedURLs}, nil
}

func emptyNotNil(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
