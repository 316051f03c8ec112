package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mirio/uptainer/internal/logging"
	"github.com/mirio/uptainer/internal/util"
	"github.com/mirio/uptainer/pkg/git/auth"
	"github.com/mirio/uptainer/pkg/git/client"
	"github.com/mirio/uptainer/pkg/git/workspace"
	"github.com/mirio/uptainer/pkg/manifest"
	"github.com/mirio/uptainer/pkg/matcher"
	"github.com/mirio/uptainer/pkg/registry"
	"github.com/mirio/uptainer/pkg/session"
	"github.com/mirio/uptainer/pkg/sorter"
	"github.com/mirio/uptainer/pkg/types"
)

// DefaultConcurrency is the number of entries processed at once when none is configured.
const DefaultConcurrency = 1

// commitMessageFormat is the message used for every manifest update commit.
const commitMessageFormat = "uptainer: update %s to %s"

// ClientFactory builds the registry client serving a provider.
type ClientFactory func(provider types.Provider) (types.RegistryClient, error)

// RegistryClients returns a ClientFactory backed by registry.NewClient.
func RegistryClients(opts registry.Options) ClientFactory {
	return func(provider types.Provider) (types.RegistryClient, error) {
		return registry.NewClient(provider, opts)
	}
}

// Coordinator drives the per-entry update pipeline.
type Coordinator struct {
	clients   ClientFactory
	params    types.RunParams
	workspace string
	push      func(ctx context.Context, repo *client.Repository) error
}

// NewCoordinator creates a coordinator.
//
// Parameters:
//   - clients: Factory for registry clients.
//   - params: Run options shared by every entry.
//
// Returns:
//   - *Coordinator: Ready coordinator.
func NewCoordinator(clients ClientFactory, params types.RunParams) *Coordinator {
	if params.Concurrency < 1 {
		params.Concurrency = DefaultConcurrency
	}

	if params.Sort == "" {
		params.Sort = types.SortAPI
	}

	return &Coordinator{
		clients:   clients,
		params:    params,
		workspace: workspace.DefaultPrefix,
		push:      pushRepository,
	}
}

// pushRepository publishes the commit of a freshly updated manifest.
func pushRepository(ctx context.Context, repo *client.Repository) error {
	return repo.Push(ctx)
}

// Run processes every entry once using registry clients built from opts.
//
// Parameters:
//   - ctx: Run context; cancellation stops new entries from starting.
//   - entries: Repository entries to process.
//   - params: Run options.
//   - opts: Registry client options.
//
// Returns:
//   - types.Report: Per-entry outcomes.
func Run(
	ctx context.Context,
	entries []types.RepositoryEntry,
	params types.RunParams,
	opts registry.Options,
) types.Report {
	return NewCoordinator(RegistryClients(opts), params).Run(ctx, entries)
}

// Run processes every entry through a bounded worker pool.
//
// Entries are isolated from each other: an error or panic in one entry is recorded
// against that entry only. Once ctx is canceled no new entry starts; entries already
// running observe ctx through their network calls and release their workspaces.
//
// Parameters:
//   - ctx: Run context.
//   - entries: Repository entries to process.
//
// Returns:
//   - types.Report: Per-entry outcomes for every entry that started.
func (c *Coordinator) Run(ctx context.Context, entries []types.RepositoryEntry) types.Report {
	start := time.Now()
	log := logging.FromContext(ctx)
	log.WithFields(logrus.Fields{
		"entries":     len(entries),
		"concurrency": c.params.Concurrency,
		"sort":        c.params.Sort,
		"dry_run":     c.params.DryRun,
	}).Debug("Starting run")

	progress := session.NewProgress()

	// Entry failures are recorded in the report; the group itself never fails.
	group := new(errgroup.Group)
	group.SetLimit(c.params.Concurrency)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			c.processEntry(ctx, progress.Start(entry), entry)

			return nil
		})
	}

	_ = group.Wait()

	if ctx.Err() != nil {
		log.WithError(ctx.Err()).WithFields(logrus.Fields{
			"started": progress.Len(),
			"skipped": len(entries) - progress.Len(),
		}).Warn("Run canceled before all entries were processed")
	}

	report := progress.Report()

	log.WithFields(logrus.Fields{
		"scanned": len(report.Scanned()),
		"updated": len(report.Updated()),
		"fresh":   len(report.Fresh()),
		"stale":   len(report.Stale()),
		"failed":  len(report.Failed()),
		"took":    util.FormatDuration(time.Since(start)),
	}).Info("Run completed")

	return report
}

// processEntry runs the pipeline for one entry and records its outcome.
func (c *Coordinator) processEntry(ctx context.Context, status *session.EntryStatus, entry types.RepositoryEntry) {
	ctx, log := logging.WithFields(ctx, logrus.Fields{
		"entry": entry.Name,
		"image": entry.ImageRepository,
	})

	defer func() {
		if r := recover(); r != nil {
			c.fail(log, status, entry, fmt.Errorf("%w: %v", errEntryPanicked, r))
		}
	}()

	log.Debug("Processing entry")

	if err := c.update(ctx, status, entry); err != nil {
		c.fail(log, status, entry, err)

		return
	}

	log.WithFields(logrus.Fields{
		"state":    status.State(),
		"version":  status.Version(),
		"previous": status.Previous(),
		"commit":   util.ShortHash(status.Commit()),
	}).Info("Entry processed")
}

// fail records err against the stage the entry was in.
func (c *Coordinator) fail(log *logrus.Entry, status *session.EntryStatus, entry types.RepositoryEntry, err error) {
	stageErr := &types.StageError{Entry: entry.Name, Stage: status.Stage(), Err: err}
	status.MarkFailed(stageErr)

	log.WithError(err).WithFields(logrus.Fields{
		"stage": status.Stage(),
		"kind":  types.Kind(err),
	}).Error("Entry failed")
}

// update runs the pipeline stages in order.
func (c *Coordinator) update(ctx context.Context, status *session.EntryStatus, entry types.RepositoryEntry) error {
	status.Enter(types.StageValidate)

	if err := entry.Validate(); err != nil {
		return err
	}

	versionMatcher, err := matcher.New(entry.VersionMatch)
	if err != nil {
		return err
	}

	policy, err := sorter.ForPolicy(c.params.Sort)
	if err != nil {
		return err
	}

	status.Enter(types.StageResolve)

	provider, err := registry.Resolve(entry.ImageRepository)
	if err != nil {
		return err
	}

	if provider == types.ProviderUndefined {
		return fmt.Errorf("%w: %s", types.ErrUnsupportedProvider, entry.ImageRepository)
	}

	registryClient, err := c.clients(provider)
	if err != nil {
		return err
	}

	status.Enter(types.StageMetadata)

	coordinate, err := registryClient.GetMetadata(entry.ImageRepository)
	if err != nil {
		return err
	}

	status.Enter(types.StageVersions)

	records, err := registryClient.ListVersions(ctx, coordinate)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"provider":   provider,
		"coordinate": coordinate.String(),
		"records":    len(records),
	}).Debug("Listed versions")

	status.Enter(types.StageMatch)
	policy.Sort(records)

	result := versionMatcher.Match(records)
	if !result.Matched {
		return fmt.Errorf("%w: %q in %s", types.ErrNoVersionMatched, entry.VersionMatch, coordinate)
	}

	status.SetVersion(result.Version)

	return workspace.With(ctx, c.workspace, func(ws *workspace.Workspace) error {
		return c.updateManifest(ctx, status, entry, ws, result.Version)
	})
}

// updateManifest clones the entry's repository, rewrites the manifest and pushes the change.
func (c *Coordinator) updateManifest(
	ctx context.Context,
	status *session.EntryStatus,
	entry types.RepositoryEntry,
	ws *workspace.Workspace,
	version string,
) error {
	log := logging.FromContext(ctx)

	status.Enter(types.StageClone)

	authMethod, err := auth.CreateAuthMethod(entry.GitSSHURL, entry.GitSSHPrivateKey)
	if err != nil {
		return err
	}

	repo, err := client.Clone(ctx, ws, entry.GitSSHURL, entry.Branch(), client.Options{
		Auth:    authMethod,
		Timeout: c.params.Timeout,
	})
	if err != nil {
		return err
	}

	status.Enter(types.StageApply)

	previous, err := manifest.Read(repo.Root(), entry.GitValuesFilename, entry.ValuesKey)
	if err != nil {
		return err
	}

	status.SetPrevious(previous)

	changed, err := manifest.Apply(repo.Root(), entry.GitValuesFilename, entry.ValuesKey, version)
	if err != nil {
		return err
	}

	if !changed {
		log.WithField("version", version).Debug("Manifest already up to date")
		status.MarkFresh()

		return nil
	}

	if c.params.DryRun {
		log.WithFields(logrus.Fields{
			"version":  version,
			"previous": previous,
		}).Info("Dry run, not pushing manifest update")
		status.MarkStale()

		return nil
	}

	status.Enter(types.StagePush)

	author := client.Author{Name: c.params.AuthorName, Email: c.params.AuthorEmail}
	message := fmt.Sprintf(commitMessageFormat, entry.Name, version)

	if _, err := repo.Commit(entry.GitValuesFilename, message, author); err != nil {
		return fmt.Errorf("%w: %w", types.ErrPushFailed, err)
	}

	err = c.push(ctx, repo)
	if errors.Is(err, types.ErrPushConflict) {
		log.WithError(err).Warn("Remote branch moved, retrying on top of it")

		return c.retryPush(ctx, status, entry, repo, version, message, author)
	}

	if err != nil {
		return err
	}

	commit, err := repo.Head()
	if err != nil {
		return err
	}

	status.MarkUpdated(commit)

	return nil
}

// retryPush resets onto the remote branch, re-applies the manifest change and pushes once more.
func (c *Coordinator) retryPush(
	ctx context.Context,
	status *session.EntryStatus,
	entry types.RepositoryEntry,
	repo *client.Repository,
	version, message string,
	author client.Author,
) error {
	if err := repo.Sync(ctx); err != nil {
		return err
	}

	status.Enter(types.StageApply)

	changed, err := manifest.Apply(repo.Root(), entry.GitValuesFilename, entry.ValuesKey, version)
	if err != nil {
		return err
	}

	if !changed {
		logging.FromContext(ctx).Debug("Remote branch already carries the update")
		status.MarkFresh()

		return nil
	}

	status.Enter(types.StagePush)

	commit, err := repo.CommitAndPush(ctx, entry.GitValuesFilename, message, author)
	if err != nil {
		return err
	}

	status.MarkUpdated(commit)

	return nil
}
