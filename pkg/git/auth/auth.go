// Package auth provides Git authentication handling for uptainer's repository updates.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/mirio/uptainer/pkg/types"
)

// RemoteKind is the transport class of a remote URL.
type RemoteKind string

// Remote classes.
const (
	RemoteSSH   RemoteKind = "ssh"
	RemoteHTTPS RemoteKind = "https"
	RemoteLocal RemoteKind = "local"
)

// pemMarker identifies inline key material as opposed to a key file path.
const pemMarker = "-----BEGIN"

// Predefined error variables for consistent error handling.
var (
	ErrSSHKeyRequired   = errors.New("SSH authentication requires a private key")
	ErrSSHKeyPathEmpty  = errors.New("SSH key file path is empty")
	ErrKeyForHTTPRemote = errors.New("an SSH private key was supplied for an HTTP(S) remote")
	ErrInvalidRemoteURL = errors.New("invalid remote URL")
)

// ClassifyRemote inspects a remote URL's scheme or form.
//
// Parameters:
//   - remoteURL: URL in scp-like ("git@host:path"), ssh://, http(s)://, git://, file:// or path form.
//
// Returns:
//   - RemoteKind: Transport class.
//   - error: ErrInvalidRemoteURL if the URL cannot be parsed.
func ClassifyRemote(remoteURL string) (RemoteKind, error) {
	endpoint, err := transport.NewEndpoint(remoteURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRemoteURL, err)
	}

	switch endpoint.Protocol {
	case "ssh":
		return RemoteSSH, nil
	case "file":
		return RemoteLocal, nil
	default:
		return RemoteHTTPS, nil
	}
}

// CreateAuthMethod creates a go-git authentication method for a remote.
//
// SSH remotes need a key. HTTP(S) remotes never get key injection, and supplying a key
// for one is treated as a credential mismatch. Local remotes need no auth and ignore the key.
//
// Parameters:
//   - remoteURL: Remote to authenticate against.
//   - keyOrPath: PEM key material or a path to a key file, may be empty.
//
// Returns:
//   - transport.AuthMethod: Auth for go-git, nil for anonymous access.
//   - error: Wraps types.ErrAuthenticationFailed on a mismatch or an unusable key.
func CreateAuthMethod(remoteURL, keyOrPath string) (transport.AuthMethod, error) {
	kind, err := ClassifyRemote(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrCloneFailed, err)
	}

	switch kind {
	case RemoteSSH:
		key, err := LoadSSHKey(keyOrPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, err)
		}

		return createSSHAuth(key)
	case RemoteHTTPS:
		if strings.TrimSpace(keyOrPath) != "" {
			return nil, fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, ErrKeyForHTTPRemote)
		}

		return nil, nil //nolint:nilnil // anonymous HTTPS
	default:
		return nil, nil //nolint:nilnil // local remotes need no auth
	}
}

// createSSHAuth creates SSH key authentication.
func createSSHAuth(sshKey []byte) (transport.AuthMethod, error) {
	if len(sshKey) == 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrAuthenticationFailed, ErrSSHKeyRequired)
	}

	publicKeys, err := ssh.NewPublicKeys("git", sshKey, "")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create SSH public keys: %w", types.ErrAuthenticationFailed, err)
	}

	return publicKeys, nil
}

// LoadSSHKey returns key material, reading it from disk when keyOrPath is a path.
// A leading "~/" expands to the user's home directory.
func LoadSSHKey(keyOrPath string) ([]byte, error) {
	trimmed := strings.TrimSpace(keyOrPath)
	if trimmed == "" {
		return nil, ErrSSHKeyRequired
	}

	if strings.Contains(trimmed, pemMarker) {
		return []byte(trimmed + "\n"), nil
	}

	return LoadSSHKeyFromFile(trimmed)
}

// LoadSSHKeyFromFile loads an SSH private key from a file.
func LoadSSHKeyFromFile(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, ErrSSHKeyPathEmpty
	}

	if rest, ok := strings.CutPrefix(filePath, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", filePath, err)
		}

		filePath = filepath.Join(home, rest)
	}

	keyData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key file %s: %w", filePath, err)
	}

	return keyData, nil
}
