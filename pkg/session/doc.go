// Package session tracks entry outcomes during an uptainer run and turns them into a report.
//
// Key components:
//   - State: Enum for entry states (e.g., Updated, Failed).
//   - EntryStatus: Tracks one entry's matched version, commit, stage and error.
//   - Progress: Collects statuses from concurrent workers.
//   - Report: Categorizes and sorts entry outcomes.
//
// Usage example:
//
//	progress := session.NewProgress()
//	status := progress.Start(entry)
//	status.Enter(types.StageMatch)
//	status.SetVersion("v1.0.1")
//	status.MarkUpdated(commit)
//	report := progress.Report()
//	failed := report.Failed()
package session
