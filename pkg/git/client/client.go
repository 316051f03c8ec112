// Package client provides the go-git operations behind uptainer's repository updates.
package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/internal/logging"
	"github.com/mirio/uptainer/pkg/git/workspace"
	"github.com/mirio/uptainer/pkg/types"
)

// RemoteName is the remote every clone is registered under.
const RemoteName = "origin"

// Default commit author.
const (
	DefaultAuthorName  = "uptainer"
	DefaultAuthorEmail = "uptainer@localhost"
)

// Predefined error variables for consistent error handling.
var (
	ErrNilWorkspace = errors.New("workspace is nil")
	ErrEmptyBranch  = errors.New("branch is empty")
)

// Author identifies the commit author.
type Author struct {
	Name  string
	Email string
}

// Options configures network operations.
type Options struct {
	Auth    transport.AuthMethod // nil for anonymous remotes.
	Timeout time.Duration        // Per network call, none when zero.
}

// Repository is a clone checked out at a single branch inside a workspace.
type Repository struct {
	repo      *git.Repository
	root      string
	remoteURL string
	branch    string
	opts      Options
}

// Clone clones one branch of remoteURL into the workspace root.
//
// The branch must exist upstream; there is no fallback to the default branch.
// On failure the workspace contents are wiped so no partial checkout remains.
//
// Parameters:
//   - ctx: Context for cancellation, also carrying the logger.
//   - ws: Target workspace.
//   - remoteURL: Remote to clone.
//   - branch: Branch to check out.
//   - opts: Auth and timeout.
//
// Returns:
//   - *Repository: Cloned repository.
//   - error: types.Error wrapping ErrBranchNotFound, ErrAuthenticationFailed or ErrCloneFailed.
func Clone(
	ctx context.Context,
	ws *workspace.Workspace,
	remoteURL, branch string,
	opts Options,
) (*Repository, error) {
	if ws == nil {
		return nil, types.Error{Op: "clone", URL: remoteURL, Reason: "no workspace", Kind: types.ErrCloneFailed, Cause: ErrNilWorkspace}
	}

	if branch == "" {
		return nil, types.Error{Op: "clone", URL: remoteURL, Reason: "no branch", Kind: types.ErrCloneFailed, Cause: ErrEmptyBranch}
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"remote": remoteURL,
		"branch": branch,
	})
	log.Debug("Cloning repository")

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	repo, err := git.PlainCloneContext(ctx, ws.Root(), false, &git.CloneOptions{
		URL:           remoteURL,
		Auth:          opts.Auth,
		RemoteName:    RemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if err != nil {
		if wipeErr := ws.Wipe(); wipeErr != nil {
			log.WithError(wipeErr).Debug("Failed to wipe workspace after clone failure")
		}

		return nil, cloneError(remoteURL, branch, err)
	}

	log.Debug("Cloned repository")

	return &Repository{
		repo:      repo,
		root:      ws.Root(),
		remoteURL: remoteURL,
		branch:    branch,
		opts:      opts,
	}, nil
}

// Root returns the working tree directory.
func (r *Repository) Root() string {
	return r.root
}

// Branch returns the checked-out branch.
func (r *Repository) Branch() string {
	return r.branch
}

// Head returns the hash of the checked-out commit.
func (r *Repository) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	return ref.Hash().String(), nil
}

// Commit stages filename and records a commit.
//
// Parameters:
//   - filename: Path relative to the working tree root.
//   - message: Commit message.
//   - author: Commit author, defaults applied to empty fields.
//
// Returns:
//   - string: New commit hash.
//   - error: Non-nil if staging or committing fails.
func (r *Repository) Commit(filename, message string, author Author) (string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	if _, err := worktree.Add(filepath.ToSlash(filepath.Clean(filename))); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", filename, err)
	}

	if author.Name == "" {
		author.Name = DefaultAuthorName
	}

	if author.Email == "" {
		author.Email = DefaultAuthorEmail
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit %s: %w", filename, err)
	}

	return hash.String(), nil
}

// Push sends the checked-out branch to the remote with the clone credentials.
//
// Returns:
//   - error: types.Error wrapping ErrPushConflict for a non-fast-forward rejection,
//     ErrAuthenticationFailed for rejected credentials and ErrPushFailed otherwise.
func (r *Repository) Push(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.opts.Timeout)
	defer cancel()

	ref := plumbing.NewBranchReferenceName(r.branch)

	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: RemoteName,
		Auth:       r.opts.Auth,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref.String() + ":" + ref.String())},
	})
	if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
		logging.FromContext(ctx).WithField("branch", r.branch).Debug("Pushed branch")

		return nil
	}

	return pushError(r.remoteURL, err)
}

// CommitAndPush commits filename and pushes the branch.
// The commit hash is returned even when the push fails.
func (r *Repository) CommitAndPush(
	ctx context.Context,
	filename, message string,
	author Author,
) (string, error) {
	hash, err := r.Commit(filename, message, author)
	if err != nil {
		return "", types.Error{Op: "commit", URL: r.remoteURL, Reason: "commit failed", Kind: types.ErrPushFailed, Cause: err}
	}

	return hash, r.Push(ctx)
}

// Sync fetches the remote branch and hard-resets the working tree onto it,
// discarding local commits. It is the recovery step after a push conflict.
func (r *Repository) Sync(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.opts.Timeout)
	defer cancel()

	remoteRef := plumbing.NewRemoteReferenceName(RemoteName, r.branch)
	refSpec := config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(r.branch), remoteRef))

	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: RemoteName,
		Auth:       r.opts.Auth,
		RefSpecs:   []config.RefSpec{refSpec},
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fetchError(r.remoteURL, err)
	}

	ref, err := r.repo.Reference(remoteRef, true)
	if err != nil {
		return types.Error{Op: "fetch", URL: r.remoteURL, Reason: "remote branch missing", Kind: types.ErrBranchNotFound, Cause: err}
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	if err := worktree.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		return types.Error{Op: "reset", URL: r.remoteURL, Reason: "hard reset failed", Kind: types.ErrPushFailed, Cause: err}
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"branch": r.branch,
		"commit": ref.Hash().String(),
	}).Debug("Reset onto remote branch")

	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

// cloneError maps a go-git clone failure to an error kind.
func cloneError(remoteURL, branch string, err error) error {
	var refErr git.NoMatchingRefSpecError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.Error{Op: "clone", URL: remoteURL, Reason: "timed out", Kind: types.ErrCloneFailed, Cause: err}
	case errors.Is(err, context.Canceled):
		return types.Error{Op: "clone", URL: remoteURL, Reason: "canceled", Kind: types.ErrCloneFailed, Cause: err}
	case errors.As(err, &refErr),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		strings.Contains(err.Error(), "couldn't find remote ref"):
		return types.Error{
			Op:     "clone",
			URL:    remoteURL,
			Reason: fmt.Sprintf("branch %q not found", branch),
			Kind:   types.ErrBranchNotFound,
			Cause:  err,
		}
	case isAuthFailure(err):
		return types.Error{Op: "clone", URL: remoteURL, Reason: "authentication rejected", Kind: types.ErrAuthenticationFailed, Cause: err}
	default:
		return types.Error{Op: "clone", URL: remoteURL, Reason: "clone failed", Kind: types.ErrCloneFailed, Cause: err}
	}
}

// pushError maps a go-git push failure to an error kind.
func pushError(remoteURL string, err error) error {
	switch {
	case errors.Is(err, git.ErrForceNeeded),
		strings.Contains(err.Error(), "non-fast-forward"),
		strings.Contains(err.Error(), "fetch first"):
		return types.Error{Op: "push", URL: remoteURL, Reason: "remote branch moved", Kind: types.ErrPushConflict, Cause: err}
	case isAuthFailure(err):
		return types.Error{Op: "push", URL: remoteURL, Reason: "authentication rejected", Kind: types.ErrAuthenticationFailed, Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return types.Error{Op: "push", URL: remoteURL, Reason: "timed out", Kind: types.ErrPushFailed, Cause: err}
	default:
		return types.Error{Op: "push", URL: remoteURL, Reason: "push failed", Kind: types.ErrPushFailed, Cause: err}
	}
}

// fetchError maps a go-git fetch failure to an error kind.
func fetchError(remoteURL string, err error) error {
	if isAuthFailure(err) {
		return types.Error{Op: "fetch", URL: remoteURL, Reason: "authentication rejected", Kind: types.ErrAuthenticationFailed, Cause: err}
	}

	return types.Error{Op: "fetch", URL: remoteURL, Reason: "fetch failed", Kind: types.ErrPushFailed, Cause: err}
}

// isAuthFailure reports transport errors caused by missing or rejected credentials.
func isAuthFailure(err error) bool {
	if errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) ||
		errors.Is(err, types.ErrAuthenticationFailed) {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "handshake failed")
}
