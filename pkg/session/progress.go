package session

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/pkg/types"
)

// Progress collects entry statuses during a run.
// Workers add statuses concurrently; each status is then owned by its worker.
type Progress struct {
	mu       sync.Mutex
	statuses []*EntryStatus
}

// NewProgress creates an empty progress tracker.
func NewProgress() *Progress {
	return &Progress{}
}

// Start registers an entry and returns its status.
//
// Parameters:
//   - entry: Entry about to be processed.
//
// Returns:
//   - *EntryStatus: Status owned by the caller.
func (p *Progress) Start(entry types.RepositoryEntry) *EntryStatus {
	status := NewEntryStatus(entry)
	p.Add(status)

	return status
}

// Add inserts a status.
func (p *Progress) Add(status *EntryStatus) {
	p.mu.Lock()
	p.statuses = append(p.statuses, status)
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"entry": status.Name(),
		"state": status.State(),
	}).Trace("Added entry status to progress")
}

// Len returns the number of registered entries.
func (p *Progress) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.statuses)
}

// Report generates a report from the progress data.
// Call it once every worker has finished.
//
// Returns:
//   - types.Report: New report instance.
func (p *Progress) Report() types.Report {
	p.mu.Lock()
	statuses := make([]*EntryStatus, len(p.statuses))
	copy(statuses, p.statuses)
	p.mu.Unlock()

	logrus.WithField("count", len(statuses)).Debug("Generating report")

	return NewReport(statuses)
}
