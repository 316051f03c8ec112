// Package actions provides the run coordinator behind uptainer's update cycles.
// It drives every configured repository entry through the update pipeline and
// collects the outcomes into a report.
//
// Key components:
//   - Coordinator: Bounded worker pool running the per-entry pipeline.
//   - Run: One-shot run with registry clients built from registry.Options.
//   - RunWithNotifications: Runs entries, sends the summary and returns a metric.
//
// The per-entry pipeline validates the entry, resolves its registry, lists published
// tags, picks the first tag matching the entry's pattern, then clones the Git
// repository, rewrites the manifest value and pushes the commit. A push rejected as
// non-fast-forward is retried once on top of the moved branch.
//
// Usage example:
//
//	coordinator := actions.NewCoordinator(actions.RegistryClients(opts), params)
//	metric := actions.RunWithNotifications(ctx, coordinator, entries, notifier)
//	if metric.Failed > 0 {
//	    os.Exit(1)
//	}
//
// The package integrates with registry, matcher, sorter, git, manifest, session,
// metrics and notifications packages, using logrus for logging.
package actions
