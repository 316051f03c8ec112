package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenClose(t *testing.T) {
	t.Parallel()

	ws, err := Open("uptainer-test-")
	require.NoError(t, err)
	assert.DirExists(t, ws.Root())
	assert.Contains(t, filepath.Base(ws.Root()), "uptainer-test-")

	assert.Equal(t, filepath.Join(ws.Root(), "helm", "values.yaml"), ws.Path("helm", "values.yaml"))

	require.NoError(t, ws.Close())
	assert.NoDirExists(t, ws.Root())
}

func TestClose_RemovesTreeAndIsIdempotent(t *testing.T) {
	t.Parallel()

	ws, err := Open("")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(ws.Path("a", "b"), 0o750))
	require.NoError(t, os.WriteFile(ws.Path("a", "b", "c.yaml"), []byte("x: 1"), 0o600))

	require.NoError(t, ws.Close())
	assert.NoDirExists(t, ws.Root())
	require.NoError(t, ws.Close())
}

func TestOpen_UniqueDirectories(t *testing.T) {
	t.Parallel()

	first, err := Open("")
	require.NoError(t, err)

	defer first.Close()

	second, err := Open("")
	require.NoError(t, err)

	defer second.Close()

	assert.NotEqual(t, first.Root(), second.Root())
}

func TestWipe(t *testing.T) {
	t.Parallel()

	ws, err := Open("")
	require.NoError(t, err)

	defer ws.Close()

	require.NoError(t, os.MkdirAll(ws.Path(".git"), 0o750))
	require.NoError(t, os.WriteFile(ws.Path("values.yaml"), nil, 0o600))

	require.NoError(t, ws.Wipe())
	assert.DirExists(t, ws.Root())

	entries, err := os.ReadDir(ws.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWith(t *testing.T) {
	t.Parallel()

	t.Run("removes the directory on success", func(t *testing.T) {
		t.Parallel()

		var root string

		err := With(context.Background(), "", func(ws *Workspace) error {
			root = ws.Root()

			return nil
		})
		require.NoError(t, err)
		assert.NoDirExists(t, root)
	})

	t.Run("removes the directory on error", func(t *testing.T) {
		t.Parallel()

		var root string

		boom := errors.New("boom")
		err := With(context.Background(), "", func(ws *Workspace) error {
			root = ws.Root()

			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.NoDirExists(t, root)
	})

	t.Run("removes the directory on panic", func(t *testing.T) {
		t.Parallel()

		var root string

		assert.Panics(t, func() {
			_ = With(context.Background(), "", func(ws *Workspace) error {
				root = ws.Root()

				panic("boom")
			})
		})
		assert.NoDirExists(t, root)
	})
}
