package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirio/uptainer/pkg/types"
)

const values = `# Default values for verbacap.
replicaCount: 1

image:
  repository: ghcr.io/mirio/verbacap
  # managed by uptainer
  tag: v1.0.0 # pinned
  pullPolicy: IfNotPresent

containers:
  - name: app
    image:
      tag: "v1.0.0"
  - name: sidecar
    image:
      tag: 2.1
`

func writeManifest(t *testing.T, name, content string, mode os.FileMode) string {
	t.Helper()

	root := t.TempDir()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))

	return root
}

func read(t *testing.T, root, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, name))
	require.NoError(t, err)

	return string(data)
}

func TestApply(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, "helm/values.yaml", values, 0o640)

	changed, err := Apply(root, "helm/values.yaml", "image.tag", "v1.0.1")
	require.NoError(t, err)
	assert.True(t, changed)

	got := read(t, root, "helm/values.yaml")
	assert.Equal(t, strings.Replace(values, "tag: v1.0.0 # pinned", "tag: v1.0.1 # pinned", 1), got)
	assert.Contains(t, got, "tag: v1.0.1 # pinned")
	assert.Contains(t, got, "# managed by uptainer")
	assert.Contains(t, got, "# Default values for verbacap.")
	assert.Contains(t, got, "repository: ghcr.io/mirio/verbacap")

	current, err := Read(root, "helm/values.yaml", "image.tag")
	require.NoError(t, err)
	assert.Equal(t, "v1.0.1", current)

	info, err := os.Stat(filepath.Join(root, "helm/values.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, "values.yaml", values, 0o600)

	changed, err := Apply(root, "values.yaml", "image.tag", "v1.0.0")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, values, read(t, root, "values.yaml"), "file must be untouched")

	changed, err = Apply(root, "values.yaml", "image.tag", "v2.0.0")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = Apply(root, "values.yaml", "image.tag", "v2.0.0")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApply_SequenceIndex(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, "values.yaml", values, 0o600)

	changed, err := Apply(root, "values.yaml", "containers.1.image.tag", "2.2")
	require.NoError(t, err)
	assert.True(t, changed)

	current, err := Read(root, "values.yaml", "containers.1.image.tag")
	require.NoError(t, err)
	assert.Equal(t, "2.2", current)

	assert.Contains(t, read(t, root, "values.yaml"), `tag: "2.2"`, "numeric-looking versions stay strings")

	first, err := Read(root, "values.yaml", "containers.0.image.tag")
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", first)
}

func TestApply_KeepsQuotedStyle(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, "values.yaml", values, 0o600)

	_, err := Apply(root, "values.yaml", "containers.0.image.tag", "v1.0.1")
	require.NoError(t, err)
	assert.Contains(t, read(t, root, "values.yaml"), `tag: "v1.0.1"`)
}

func TestApply_FourSpaceIndent(t *testing.T) {
	t.Parallel()

	root := writeManifest(t, "values.yaml", "image:\n    tag: v1\n    pullPolicy: Always\n", 0o600)

	_, err := Apply(root, "values.yaml", "image.tag", "v2")
	require.NoError(t, err)
	assert.Equal(t, "image:\n    tag: v2\n    pullPolicy: Always\n", read(t, root, "values.yaml"))
}

func TestApply_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		filename string
		key      string
		want     error
	}{
		{name: "missing file", content: values, filename: "missing.yaml", key: "image.tag", want: types.ErrManifestNotFound},
		{name: "directory", content: values, filename: "helm", key: "image.tag", want: types.ErrManifestNotFound},
		{name: "escaping path", content: values, filename: "../values.yaml", key: "image.tag", want: types.ErrInvalidConfiguration},
		{name: "absolute path", content: values, filename: "/etc/passwd", key: "image.tag", want: types.ErrInvalidConfiguration},
		{name: "missing key", content: values, filename: "helm/values.yaml", key: "image.digest", want: types.ErrKeyNotFound},
		{name: "missing parent", content: values, filename: "helm/values.yaml", key: "ingress.host", want: types.ErrKeyNotFound},
		{name: "mapping target", content: values, filename: "helm/values.yaml", key: "image", want: types.ErrKeyNotFound},
		{name: "index out of range", content: values, filename: "helm/values.yaml", key: "containers.5.image.tag", want: types.ErrKeyNotFound},
		{name: "non numeric index", content: values, filename: "helm/values.yaml", key: "containers.app.image.tag", want: types.ErrKeyNotFound},
		{name: "scalar parent", content: values, filename: "helm/values.yaml", key: "replicaCount.value", want: types.ErrKeyNotFound},
		{name: "empty segment", content: values, filename: "helm/values.yaml", key: "image..tag", want: types.ErrInvalidConfiguration},
		{name: "empty document", content: "", filename: "helm/values.yaml", key: "image.tag", want: types.ErrKeyNotFound},
		{name: "invalid yaml", content: "image: [unclosed\n", filename: "helm/values.yaml", key: "image.tag", want: types.ErrManifestInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := writeManifest(t, "helm/values.yaml", tt.content, 0o600)

			changed, err := Apply(root, tt.filename, tt.key, "v9.9.9")
			require.ErrorIs(t, err, tt.want)
			assert.False(t, changed)
			assert.Equal(t, tt.content, read(t, root, "helm/values.yaml"))
		})
	}
}

func TestApply_Anchors(t *testing.T) {
	t.Parallel()

	content := "defaults: &defaults\n  tag: v1\napp:\n  image: *defaults\n"
	root := writeManifest(t, "values.yaml", content, 0o600)

	current, err := Read(root, "values.yaml", "app.image.tag")
	require.NoError(t, err)
	assert.Equal(t, "v1", current)
}

func TestApply_KeepsLayout(t *testing.T) {
	t.Parallel()

	content := "replicaCount: 1\n\nimage:\n  tag: v1.0.0\n\nservice:\n  ports:\n  - 80\n"
	root := writeManifest(t, "values.yaml", content, 0o600)

	changed, err := Apply(root, "values.yaml", "image.tag", "v1.0.1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t,
		"replicaCount: 1\n\nimage:\n  tag: v1.0.1\n\nservice:\n  ports:\n  - 80\n",
		read(t, root, "values.yaml"),
	)
}

func TestApply_MultipleDocuments(t *testing.T) {
	t.Parallel()

	content := "image:\n  tag: v1.0.0\n---\napiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: keep-me\n  tag: v1.0.0\n"
	root := writeManifest(t, "values.yaml", content, 0o600)

	changed, err := Apply(root, "values.yaml", "image.tag", "v1.0.1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t,
		"image:\n  tag: v1.0.1\n---\napiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: keep-me\n  tag: v1.0.0\n",
		read(t, root, "values.yaml"),
	)
}

func TestApply_ScalarStyles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		key     string
		version string
		want    string
	}{
		{
			name:    "single quoted",
			content: "image:\n  tag: 'v1.0.0'\n",
			key:     "image.tag",
			version: "it's-v2",
			want:    "image:\n  tag: 'it''s-v2'\n",
		},
		{
			name:    "double quoted with escapes",
			content: "image:\n  tag: \"v1\\\"0\" # quoted\n",
			key:     "image.tag",
			version: "v2",
			want:    "image:\n  tag: \"v2\" # quoted\n",
		},
		{
			name:    "anchored scalar",
			content: "defaults:\n  tag: &tag v1\napp:\n  tag: *tag\n",
			key:     "app.tag",
			version: "v2",
			want:    "defaults:\n  tag: &tag v2\napp:\n  tag: *tag\n",
		},
		{
			name:    "explicit tag",
			content: "image:\n  tag: !!str v1\n",
			key:     "image.tag",
			version: "v2",
			want:    "image:\n  tag: !!str v2\n",
		},
		{
			name:    "flow mapping",
			content: "image: {repository: app, tag: v1}\n",
			key:     "image.tag",
			version: "v2",
			want:    "image: {repository: app, tag: v2}\n",
		},
		{
			name:    "sequence item",
			content: "tags:\n  - v1\n  - v2 # next\n",
			key:     "tags.1",
			version: "v3",
			want:    "tags:\n  - v1\n  - v3 # next\n",
		},
		{
			name:    "non string version is quoted",
			content: "image:\n  tag: latest\n",
			key:     "image.tag",
			version: "true",
			want:    "image:\n  tag: \"true\"\n",
		},
		{
			name:    "multibyte characters before the value",
			content: "bild:\n  étiquette: v1\n",
			key:     "bild.étiquette",
			version: "v2",
			want:    "bild:\n  étiquette: v2\n",
		},
		{
			name:    "byte order mark",
			content: "\ufefftag: v1\n",
			key:     "tag",
			version: "v2",
			want:    "\ufefftag: v2\n",
		},
		{
			name:    "windows line endings",
			content: "image:\r\n  tag: v1\r\n  pullPolicy: Always\r\n",
			key:     "image.tag",
			version: "v2",
			want:    "image:\r\n  tag: v2\r\n  pullPolicy: Always\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := writeManifest(t, "values.yaml", tt.content, 0o600)

			changed, err := Apply(root, "values.yaml", tt.key, tt.version)
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, tt.want, read(t, root, "values.yaml"))

			current, err := Read(root, "values.yaml", tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.version, current)
		})
	}
}

func TestApply_UnsupportedStyles(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{
		"literal block": "image:\n  tag: |\n    v1\n",
		"empty value":   "image:\n  tag:\n",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			root := writeManifest(t, "values.yaml", content, 0o600)

			changed, err := Apply(root, "values.yaml", "image.tag", "v2")
			require.ErrorIs(t, err, types.ErrManifestInvalid)
			require.ErrorIs(t, err, ErrUnsupportedStyle)
			assert.False(t, changed)
			assert.Equal(t, content, read(t, root, "values.yaml"))
		})
	}
}
