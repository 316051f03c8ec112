// Package workspace manages the per-entry temporary directory a repository is cloned into.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mirio/uptainer/internal/logging"
)

// DefaultPrefix names workspace directories created without a prefix.
const DefaultPrefix = "uptainer-"

// Workspace is an exclusively owned temporary directory.
type Workspace struct {
	root string
	once sync.Once
	err  error
}

// Open allocates a fresh, uniquely named directory under the system temp dir.
func Open(prefix string) (*Workspace, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	root, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{root: root}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Path joins elements under the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.root}, elem...)...)
}

// Wipe removes the workspace contents and keeps the directory.
func (w *Workspace) Wipe() error {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("failed to read workspace: %w", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(w.root, entry.Name())); err != nil {
			return fmt.Errorf("failed to wipe workspace: %w", err)
		}
	}

	return nil
}

// Close removes the workspace recursively. Later calls return the first result.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.root); err != nil {
			w.err = fmt.Errorf("failed to remove workspace %s: %w", w.root, err)
		}
	})

	return w.err
}

// With opens a workspace, runs fn in it and closes the workspace on every path, panics included.
// A panic in fn is re-raised after cleanup.
//
// Parameters:
//   - ctx: Carries the logger used to report cleanup failures.
//   - prefix: Directory name prefix.
//   - fn: Work to run inside the workspace.
//
// Returns:
//   - error: The error from fn, or from opening the workspace.
func With(ctx context.Context, prefix string, fn func(*Workspace) error) error {
	ws, err := Open(prefix)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			logging.FromContext(ctx).WithError(closeErr).Warn("Failed to clean up workspace")
		}
	}()

	return fn(ws)
}
