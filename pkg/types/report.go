package types

// Report defines run results.
type Report interface {
	Scanned() []EntryReport // Every entry the run processed.
	Updated() []EntryReport // Entries whose manifest was committed and pushed.
	Failed() []EntryReport  // Entries that failed at any stage.
	Fresh() []EntryReport   // Entries whose manifest already held the matched version.
	Stale() []EntryReport   // Entries with a pending change that was not pushed (dry run).
	All() []EntryReport     // All entries, sorted by name.
}

// EntryReport defines one entry’s run status.
type EntryReport interface {
	Name() string            // Entry name.
	ImageRepository() string // Image repository string.
	Version() string         // Matched version, if any.
	Previous() string        // Manifest value before the update, if read.
	Commit() string          // Pushed commit hash, if any.
	Stage() Stage            // Stage reached last.
	Kind() string            // Error kind, if any.
	Error() string           // Error message, if any.
	State() string           // Human-readable state.
}
