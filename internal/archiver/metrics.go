package archiver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions tracks terminal submission outcomes by result.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archiver_submissions_total",
		Help: "The total number of archive submissions by terminal result.",
	}, []string{"result"})
	// Retries tracks backoff retries across all URLs.
	Retries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archiver_submission_retries_total",
		Help: "The total number of submission retries.",
	})
)
