package session

import (
	"github.com/mirio/uptainer/pkg/types"
)

// State enum values.
const (
	UnknownState State = iota // Uninitialized state.
	ScannedState              // Entry processing started.
	UpdatedState              // Manifest committed and pushed.
	FailedState               // Entry failed at some stage.
	FreshState                // Manifest already current.
	StaleState                // Manifest out of date, change not pushed.
)

// State indicates what the current state is of the entry.
type State int

// EntryStatus holds an entry’s state during a run.
// A status is written by the single worker processing its entry.
//
//nolint:errname // EntryStatus is not an error type, it contains an error field.
type EntryStatus struct {
	name            string
	imageRepository string
	version         string
	previous        string
	commit          string
	stage           types.Stage
	err             error
	state           State
}

// NewEntryStatus creates a status in the scanned state.
func NewEntryStatus(entry types.RepositoryEntry) *EntryStatus {
	return &EntryStatus{
		name:            entry.Name,
		imageRepository: entry.ImageRepository,
		stage:           types.StageValidate,
		state:           ScannedState,
	}
}

// Name returns the entry name.
func (s *EntryStatus) Name() string {
	return s.name
}

// ImageRepository returns the image repository string.
func (s *EntryStatus) ImageRepository() string {
	return s.imageRepository
}

// Version returns the matched version.
func (s *EntryStatus) Version() string {
	return s.version
}

// Previous returns the manifest value before the update.
func (s *EntryStatus) Previous() string {
	return s.previous
}

// Commit returns the pushed commit hash.
func (s *EntryStatus) Commit() string {
	return s.commit
}

// Stage returns the last stage reached.
func (s *EntryStatus) Stage() types.Stage {
	return s.stage
}

// Err returns the failure cause, if any.
func (s *EntryStatus) Err() error {
	return s.err
}

// Kind returns the failure kind name, empty on success.
func (s *EntryStatus) Kind() string {
	return types.Kind(s.err)
}

// Error returns the failure message, if any.
//
// Returns:
//   - string: Error message or empty if none.
func (s *EntryStatus) Error() string {
	if s.err == nil {
		return ""
	}

	return s.err.Error()
}

// State returns the human-readable state name.
//
// Returns:
//   - string: State as a string (e.g., "Updated").
func (s *EntryStatus) State() string {
	switch s.state {
	case ScannedState:
		return "Scanned"
	case UpdatedState:
		return "Updated"
	case FailedState:
		return "Failed"
	case FreshState:
		return "Fresh"
	case StaleState:
		return "Stale"
	default:
		return "Unknown"
	}
}

// Enter records the stage being worked on.
func (s *EntryStatus) Enter(stage types.Stage) {
	s.stage = stage
}

// SetVersion records the matched version.
func (s *EntryStatus) SetVersion(version string) {
	s.version = version
}

// SetPrevious records the manifest value found before the update.
func (s *EntryStatus) SetPrevious(previous string) {
	s.previous = previous
}

// MarkUpdated records a pushed commit.
func (s *EntryStatus) MarkUpdated(commit string) {
	s.commit = commit
	s.state = UpdatedState
}

// MarkFresh records that the manifest already held the version.
func (s *EntryStatus) MarkFresh() {
	s.state = FreshState
}

// MarkStale records a change that was computed but not pushed.
func (s *EntryStatus) MarkStale() {
	s.state = StaleState
}

// MarkFailed records a failure at the current stage.
func (s *EntryStatus) MarkFailed(err error) {
	s.err = err
	s.state = FailedState
}
