package types

import (
	"time"
)

// SortPolicy selects how tag records are ordered before matching.
type SortPolicy string

const (
	// SortAPI keeps the order returned by the registry.
	SortAPI SortPolicy = "api"
	// SortUpdated orders records by last update time, newest first.
	SortUpdated SortPolicy = "updated"
	// SortSemver orders records by their highest semantic version tag, highest first.
	SortSemver SortPolicy = "semver"
)

// RunParams defines options for a run.
type RunParams struct {
	Concurrency int           // Maximum number of entries processed at once.
	Timeout     time.Duration // Bound for every registry call and git network operation.
	Sort        SortPolicy    // Tag record ordering applied before matching.
	DryRun      bool          // Apply manifest changes without committing or pushing.
	AuthorName  string        // Commit author name.
	AuthorEmail string        // Commit author email.
}
