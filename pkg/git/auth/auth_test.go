package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirio/uptainer/pkg/types"
)

func testKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

func TestClassifyRemote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want RemoteKind
	}{
		{"git@github.com:Mirio/verbacap.git", RemoteSSH},
		{"ssh://git@github.com/Mirio/verbacap.git", RemoteSSH},
		{"https://github.com/Mirio/verbacap.git", RemoteHTTPS},
		{"http://git.example.com/repo.git", RemoteHTTPS},
		{"file:///srv/git/repo.git", RemoteLocal},
		{"/srv/git/repo.git", RemoteLocal},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			got, err := ClassifyRemote(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateAuthMethod(t *testing.T) {
	t.Parallel()

	key := testKey(t)

	t.Run("ssh remote with key material", func(t *testing.T) {
		t.Parallel()

		method, err := CreateAuthMethod("git@github.com:Mirio/verbacap.git", key)
		require.NoError(t, err)
		assert.IsType(t, &ssh.PublicKeys{}, method)
	})

	t.Run("ssh remote with key path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "id_rsa")
		require.NoError(t, os.WriteFile(path, []byte(key), 0o600))

		method, err := CreateAuthMethod("ssh://git@github.com/Mirio/verbacap.git", path)
		require.NoError(t, err)
		assert.IsType(t, &ssh.PublicKeys{}, method)
	})

	t.Run("ssh remote without key", func(t *testing.T) {
		t.Parallel()

		_, err := CreateAuthMethod("git@github.com:Mirio/verbacap.git", "")
		require.ErrorIs(t, err, types.ErrAuthenticationFailed)
		require.ErrorIs(t, err, ErrSSHKeyRequired)
	})

	t.Run("ssh remote with garbage key", func(t *testing.T) {
		t.Parallel()

		_, err := CreateAuthMethod("git@github.com:Mirio/verbacap.git", "-----BEGIN nonsense")
		require.ErrorIs(t, err, types.ErrAuthenticationFailed)
	})

	t.Run("ssh remote with missing key file", func(t *testing.T) {
		t.Parallel()

		_, err := CreateAuthMethod("git@github.com:Mirio/verbacap.git", filepath.Join(t.TempDir(), "missing"))
		require.ErrorIs(t, err, types.ErrAuthenticationFailed)
	})

	t.Run("https remote with ssh key", func(t *testing.T) {
		t.Parallel()

		_, err := CreateAuthMethod("https://github.com/Mirio/verbacap.git", key)
		require.ErrorIs(t, err, types.ErrAuthenticationFailed)
		require.ErrorIs(t, err, ErrKeyForHTTPRemote)
	})

	t.Run("https remote without key", func(t *testing.T) {
		t.Parallel()

		method, err := CreateAuthMethod("https://github.com/Mirio/verbacap.git", "")
		require.NoError(t, err)
		assert.Nil(t, method)
	})

	t.Run("local remote ignores the key", func(t *testing.T) {
		t.Parallel()

		method, err := CreateAuthMethod("file:///srv/git/repo.git", "~/.ssh/id_rsa")
		require.NoError(t, err)
		assert.Nil(t, method)
	})
}

func TestLoadSSHKeyFromFile(t *testing.T) {
	t.Parallel()

	_, err := LoadSSHKeyFromFile("")
	require.ErrorIs(t, err, ErrSSHKeyPathEmpty)

	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	data, err := LoadSSHKeyFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}
