// Package git groups the Git operations uptainer needs to update a deployment manifest.
//
// This package is organized into subpackages:
//
//   - workspace: Exclusively owned temporary directories with guaranteed cleanup
//   - auth: Remote URL classification and SSH key handling
//   - client: Clone, commit, push and conflict recovery on top of go-git
//   - gittest: Local bare repositories for tests
//
// Usage:
//
//	err := workspace.With(ctx, "", func(ws *workspace.Workspace) error {
//		method, err := auth.CreateAuthMethod(entry.GitSSHURL, entry.GitSSHPrivateKey)
//		if err != nil {
//			return err
//		}
//
//		repo, err := client.Clone(ctx, ws, entry.GitSSHURL, entry.Branch(), client.Options{Auth: method})
//		if err != nil {
//			return err
//		}
//
//		// rewrite files under ws.Root()
//
//		_, err = repo.CommitAndPush(ctx, entry.GitValuesFilename, message, client.Author{})
//		return err
//	})
//
// Error Handling:
//
// Failures are returned as types.Error values whose Kind is one of the pipeline sentinels
// (ErrCloneFailed, ErrAuthenticationFailed, ErrBranchNotFound, ErrPushConflict, ErrPushFailed),
// so callers classify them with errors.Is.
package git
