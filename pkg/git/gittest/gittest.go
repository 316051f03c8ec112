// Package gittest builds local bare repositories for tests that clone, commit and push.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var signature = object.Signature{Name: "Test User", Email: "test@example.com"}

// NewRemote creates a bare repository whose branch holds files and returns its file:// URL.
func NewRemote(t testing.TB, branch string, files map[string]string) string {
	t.Helper()

	bareDir := t.TempDir()
	_, err := git.PlainInitWithOptions(bareDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
		Bare:        true,
	})
	require.NoError(t, err)

	remoteURL := "file://" + filepath.ToSlash(bareDir)

	workDir := t.TempDir()
	work, err := git.PlainInitWithOptions(workDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	require.NoError(t, err)

	_, err = work.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{remoteURL}})
	require.NoError(t, err)

	if len(files) == 0 {
		files = map[string]string{"README.md": "seed\n"}
	}

	commitFiles(t, work, workDir, files, "initial commit")
	push(t, work, branch)

	return remoteURL
}

// PushFile commits content at path on the remote branch, as another writer would.
func PushFile(t testing.TB, remoteURL, branch, path, content string) {
	t.Helper()

	dir := t.TempDir()
	repo := clone(t, dir, remoteURL, branch)

	commitFiles(t, repo, dir, map[string]string{path: content}, "concurrent change to "+path)
	push(t, repo, branch)
}

// ReadFile returns the content of path at the tip of the remote branch.
func ReadFile(t testing.TB, remoteURL, branch, path string) string {
	t.Helper()

	dir := t.TempDir()
	clone(t, dir, remoteURL, branch)

	data, err := os.ReadFile(filepath.Join(dir, path))
	require.NoError(t, err)

	return string(data)
}

// HeadCommit returns the tip commit of the remote branch.
func HeadCommit(t testing.TB, remoteURL, branch string) *object.Commit {
	t.Helper()

	repo := clone(t, t.TempDir(), remoteURL, branch)

	ref, err := repo.Head()
	require.NoError(t, err)

	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)

	return commit
}

func clone(t testing.TB, dir, remoteURL, branch string) *git.Repository {
	t.Helper()

	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:           remoteURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	require.NoError(t, err)

	return repo
}

func commitFiles(t testing.TB, repo *git.Repository, dir string, files map[string]string, message string) {
	t.Helper()

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	for path, content := range files {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))

		_, err := worktree.Add(filepath.ToSlash(path))
		require.NoError(t, err)
	}

	sig := signature
	sig.When = time.Now()

	_, err = worktree.Commit(message, &git.CommitOptions{Author: &sig})
	require.NoError(t, err)
}

func push(t testing.TB, repo *git.Repository, branch string) {
	t.Helper()

	ref := plumbing.NewBranchReferenceName(branch).String()

	err := repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
	})
	require.NoError(t, err)
}
