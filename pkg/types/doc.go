// Package types defines core interfaces and structs for uptainer.
// It provides abstractions for repository entries, registry clients, version matching results,
// session reporting, and notifications.
//
// Key components:
//   - RepositoryEntry: One configured image-to-manifest binding, validated at the load boundary.
//   - Provider: Registry variant resolved from an image repository string.
//   - RegistryClient: Interface every registry provider implements (metadata and tag listing).
//   - TagRecord: One published version group with its tags and update time.
//   - MatchResult: Outcome of applying a version pattern to a set of tag records.
//   - Report / EntryReport: Interfaces for run results.
//   - Notifier: Interface for notification services.
//   - RunParams: Struct for configuring a run.
//
// Usage example:
//
//	entry := types.RepositoryEntry{Name: "verbacap", ImageRepository: "ghcr.io/mirio/verbacap", ...}
//	if err := entry.Validate(); err != nil {
//	    logrus.WithError(err).Error("Invalid repository entry")
//	}
//	report := actions.Run(ctx, []types.RepositoryEntry{entry}, params)
//	notifier.SendNotification(report)
//
// The package integrates with registry, matcher, git, manifest, session, and notifications packages.
package types
