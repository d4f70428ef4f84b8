// Package progress tracks job state for external pollers. The orchestrator
// and pipeline report milestones through the Observer interface; callers such
// as the CLI or status server read a consistent snapshot via Tracker.Snapshot.
package progress

import "sync"

// Phase names reported in Status.
const (
	PhaseIdle      = "idle"
	PhaseCrawling  = "crawling"
	PhaseArchiving = "archiving"
	PhaseDone      = "done"
)

// Status is a point-in-time view of a running job.
type Status struct {
	Running    bool   `json:"running"`
	Phase      string `json:"phase"`
	Message    string `json:"message"`
	CurrentURL string `json:"current_url,omitempty"`
	Progress   int    `json:"progress"`
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}

// Observer receives job milestones. Implementations must be safe for
// concurrent use; the concurrent submission pool calls URLSubmitted from
// multiple goroutines.
type Observer interface {
	CrawlStarted(root string)
	URLVisited(url string, visited int)
	SubmitStarted(total int)
	URLSubmitted(url string, ok bool, processed int)
	JobFinished(succeeded, failed int)
}

// Tracker is an Observer that maintains a mutex-guarded Status. The zero
// value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	status Status
}

// NewTracker returns a Tracker in the idle phase.
func NewTracker() *Tracker {
	return &Tracker{status: Status{Phase: PhaseIdle}}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// CrawlStarted implements Observer.
func (t *Tracker) CrawlStarted(root string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = Status{
		Running: true,
		Phase:   PhaseCrawling,
		Message: "crawling " + root,
	}
}

// URLVisited implements Observer.
func (t *Tracker) URLVisited(url string, visited int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.CurrentURL = url
	t.status.Progress = visited
}

// SubmitStarted implements Observer.
func (t *Tracker) SubmitStarted(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = PhaseArchiving
	t.status.Message = "archiving discovered pages"
	t.status.CurrentURL = ""
	t.status.Progress = 0
	t.status.Total = total
}

// URLSubmitted implements Observer.
func (t *Tracker) URLSubmitted(url string, ok bool, processed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.CurrentURL = url
	t.status.Progress = processed
	if ok {
		t.status.Succeeded++
	} else {
		t.status.Failed++
	}
}

// JobFinished implements Observer.
func (t *Tracker) JobFinished(succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = false
	t.status.Phase = PhaseDone
	t.status.Message = "archiving completed"
	t.status.CurrentURL = ""
	t.status.Succeeded = succeeded
	t.status.Failed = failed
}

// Nop is an Observer that discards all events.
type Nop struct{}

// CrawlStarted implements Observer.
func (Nop) CrawlStarted(string) {}

// URLVisited implements Observer.
func (Nop) URLVisited(string, int) {}

// SubmitStarted implements Observer.
func (Nop) SubmitStarted(int) {}

// URLSubmitted implements Observer.
func (Nop) URLSubmitted(string, bool, int) {}

// JobFinished implements Observer.
func (Nop) JobFinished(int, int) {}
