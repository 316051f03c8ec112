package session

import (
	"sort"

	"github.com/mirio/uptainer/pkg/types"
)

// report implements the Report interface for run results.
type report struct {
	scanned []types.EntryReport // Processed entries.
	updated []types.EntryReport // Updated entries.
	failed  []types.EntryReport // Failed entries.
	fresh   []types.EntryReport // Fresh entries.
	stale   []types.EntryReport // Stale entries.
}

// SortableEntries implements sort.Interface for reports, ordering by name.
type SortableEntries []types.EntryReport

// Scanned returns processed entries.
func (r *report) Scanned() []types.EntryReport {
	return r.scanned
}

// Updated returns updated entries.
func (r *report) Updated() []types.EntryReport {
	return r.updated
}

// Failed returns failed entries.
func (r *report) Failed() []types.EntryReport {
	return r.failed
}

// Fresh returns fresh entries.
func (r *report) Fresh() []types.EntryReport {
	return r.fresh
}

// Stale returns stale entries.
func (r *report) Stale() []types.EntryReport {
	return r.stale
}

// All returns every entry once, sorted by name.
// Every entry is scanned, so the scanned list already holds all of them.
func (r *report) All() []types.EntryReport {
	all := make([]types.EntryReport, len(r.scanned))
	copy(all, r.scanned)

	return all
}

// NewReport categorizes statuses into a report.
//
// Parameters:
//   - statuses: Final entry statuses.
//
// Returns:
//   - types.Report: Categorized and sorted report.
func NewReport(statuses []*EntryStatus) types.Report {
	report := &report{
		scanned: make([]types.EntryReport, 0, len(statuses)),
		updated: make([]types.EntryReport, 0),
		failed:  make([]types.EntryReport, 0),
		fresh:   make([]types.EntryReport, 0),
		stale:   make([]types.EntryReport, 0),
	}

	for _, status := range statuses {
		categorizeEntry(report, status)
	}

	sortCategories(report)

	return report
}

// categorizeEntry assigns a status to report categories.
// An entry left in the scanned state never reached an outcome and counts as failed.
func categorizeEntry(report *report, status *EntryStatus) {
	report.scanned = append(report.scanned, status)

	switch status.state {
	case UpdatedState:
		report.updated = append(report.updated, status)
	case FreshState:
		report.fresh = append(report.fresh, status)
	case StaleState:
		report.stale = append(report.stale, status)
	case FailedState:
		report.failed = append(report.failed, status)
	case UnknownState, ScannedState:
		status.state = FailedState
		report.failed = append(report.failed, status)
	default:
		status.state = FailedState
		report.failed = append(report.failed, status)
	}
}

// sortCategories sorts all report categories by entry name.
func sortCategories(report *report) {
	sort.Stable(SortableEntries(report.scanned))
	sort.Stable(SortableEntries(report.updated))
	sort.Stable(SortableEntries(report.failed))
	sort.Stable(SortableEntries(report.fresh))
	sort.Stable(SortableEntries(report.stale))
}

// Len returns the slice length.
func (s SortableEntries) Len() int {
	return len(s)
}

// Less compares entry names.
func (s SortableEntries) Less(i, j int) bool {
	return s[i].Name() < s[j].Name()
}

// Swap exchanges two reports.
func (s SortableEntries) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}
