// Package manifest rewrites a single value inside a YAML deployment manifest.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/mirio/uptainer/pkg/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Predefined error variables for consistent error handling.
var (
	ErrPathEscapesRoot  = errors.New("values file path escapes the repository root")
	ErrEmptyKeySegment  = errors.New("values key has an empty segment")
	ErrNotScalar        = errors.New("values key does not point at a scalar")
	ErrUnsupportedStyle = errors.New("scalar style cannot be rewritten in place")
	ErrScalarNotFound   = errors.New("scalar not found at its reported position")
	ErrRewriteMismatch  = errors.New("rewritten manifest does not carry the new value")
)

// Apply sets the value at key inside root/filename to version.
//
// The key is a dotted path ("image.tag"); numeric segments index sequences ("containers.0.image").
// The key is resolved in the first YAML document of the file. Only the bytes of the target scalar
// are replaced, so the rest of the file (later documents included) stays byte for byte identical.
// Quoted scalars keep their quotes; plain scalars are quoted when the version would not read back
// as a string. The file mode is preserved.
//
// Parameters:
//   - root: Working tree root.
//   - filename: Manifest path relative to root.
//   - key: Dotted path to a scalar.
//   - version: Value to write.
//
// Returns:
//   - bool: False when the value already equals version and the file was left untouched.
//   - error: ErrManifestNotFound, ErrManifestInvalid, ErrKeyNotFound or ErrInvalidConfiguration.
func Apply(root, filename, key, version string) (bool, error) {
	path, err := resolvePath(root, filename)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", types.ErrManifestNotFound, filename)
		}

		return false, fmt.Errorf("%w: %s: %w", types.ErrManifestNotFound, filename, err)
	}

	if info.IsDir() {
		return false, fmt.Errorf("%w: %s is a directory", types.ErrManifestNotFound, filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", types.ErrManifestNotFound, filename, err)
	}

	target, err := lookupFirst(data, filename, key)
	if err != nil {
		return false, err
	}

	if target.Value == version {
		return false, nil
	}

	out, err := splice(data, target, version)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", types.ErrManifestInvalid, filename, err)
	}

	if current, err := lookupFirst(out, filename, key); err != nil || current.Value != version {
		return false, fmt.Errorf("%w: %s: %w", types.ErrManifestInvalid, filename, ErrRewriteMismatch)
	}

	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", filename, err)
	}

	return true, nil
}

// Read returns the current scalar value at key inside root/filename.
func Read(root, filename, key string) (string, error) {
	path, err := resolvePath(root, filename)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", types.ErrManifestNotFound, filename)
		}

		return "", fmt.Errorf("%w: %s: %w", types.ErrManifestNotFound, filename, err)
	}

	target, err := lookupFirst(data, filename, key)
	if err != nil {
		return "", err
	}

	return target.Value, nil
}

// lookupFirst decodes the first document of data and resolves key in it.
func lookupFirst(data []byte, filename, key string) (*yaml.Node, error) {
	var doc yaml.Node

	err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrManifestInvalid, filename, err)
	}

	target, err := Lookup(&doc, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return target, nil
}

// Lookup walks a dotted key through a parsed document and returns the scalar it names.
func Lookup(doc *yaml.Node, key string) (*yaml.Node, error) {
	segments := strings.Split(key, ".")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("%w: %w: %q", types.ErrInvalidConfiguration, ErrEmptyKeySegment, key)
		}
	}

	node := doc
	if node.Kind == 0 || node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("%w: %q in an empty document", types.ErrKeyNotFound, key)
		}

		node = node.Content[0]
	}

	for i, segment := range segments {
		node = deref(node)

		next, ok := child(node, segment)
		if !ok {
			return nil, fmt.Errorf(
				"%w: %q (no %q under %q)",
				types.ErrKeyNotFound,
				key,
				segment,
				strings.Join(segments[:i], "."),
			)
		}

		node = next
	}

	node = deref(node)
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("%w: %w: %q", types.ErrKeyNotFound, ErrNotScalar, key)
	}

	return node, nil
}

// child returns the mapping value for segment, or the sequence item it indexes.
func child(node *yaml.Node, segment string) (*yaml.Node, bool) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == segment {
				return node.Content[i+1], true
			}
		}
	case yaml.SequenceNode:
		index, err := strconv.Atoi(segment)
		if err == nil && index >= 0 && index < len(node.Content) {
			return node.Content[index], true
		}
	}

	return nil, false
}

func deref(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	return node
}

func resolvePath(root, filename string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(filename))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %w: %s", types.ErrInvalidConfiguration, ErrPathEscapesRoot, filename)
	}

	return filepath.Join(root, clean), nil
}

// splice replaces the source bytes of target with version rendered in the target's style.
func splice(data []byte, target *yaml.Node, version string) ([]byte, error) {
	start, end, err := scalarBounds(data, target)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer

	out.Grow(len(data) + len(version))
	out.Write(data[:start])
	out.WriteString(render(target, version))
	out.Write(data[end:])

	return out.Bytes(), nil
}

// scalarBounds returns the byte range of target's value in data, without anchor or tag.
func scalarBounds(data []byte, target *yaml.Node) (int, int, error) {
	switch {
	case target.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		return 0, 0, fmt.Errorf("%w: block scalar at line %d", ErrUnsupportedStyle, target.Line)
	case target.Style == 0 && target.Value == "":
		return 0, 0, fmt.Errorf("%w: empty plain scalar at line %d", ErrUnsupportedStyle, target.Line)
	case target.Line < 1 || target.Column < 1:
		return 0, 0, fmt.Errorf("%w: line %d column %d", ErrScalarNotFound, target.Line, target.Column)
	}

	start, ok := offsetOf(data, target.Line, target.Column)
	if !ok {
		return 0, 0, fmt.Errorf("%w: line %d column %d", ErrScalarNotFound, target.Line, target.Column)
	}

	start = skipProperties(data, start)
	rest := data[start:]

	var length int

	switch {
	case target.Style&yaml.DoubleQuotedStyle != 0:
		length = quotedLength(rest, '"')
	case target.Style&yaml.SingleQuotedStyle != 0:
		length = quotedLength(rest, '\'')
	case bytes.HasPrefix(rest, []byte(target.Value)):
		length = len(target.Value)
	}

	if length == 0 {
		return 0, 0, fmt.Errorf("%w: line %d column %d", ErrScalarNotFound, target.Line, target.Column)
	}

	return start, start + length, nil
}

// offsetOf converts a 1-based line and character column into a byte offset.
func offsetOf(data []byte, line, column int) (int, bool) {
	offset := 0
	if bytes.HasPrefix(data, utf8BOM) {
		offset = len(utf8BOM)
	}

	for current := 1; current < line; current++ {
		next := bytes.IndexByte(data[offset:], '\n')
		if next < 0 {
			return 0, false
		}

		offset += next + 1
	}

	for range column - 1 {
		if offset >= len(data) || data[offset] == '\n' {
			return 0, false
		}

		_, size := utf8.DecodeRune(data[offset:])
		offset += size
	}

	return offset, offset <= len(data)
}

// skipProperties moves past an anchor or tag written in front of a scalar.
func skipProperties(data []byte, offset int) int {
	for offset < len(data) && (data[offset] == '&' || data[offset] == '!') {
		for offset < len(data) && !isBlank(data[offset]) {
			offset++
		}

		for offset < len(data) && (data[offset] == ' ' || data[offset] == '\t') {
			offset++
		}
	}

	return offset
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// quotedLength returns the length of the quoted scalar at the start of rest including both quotes,
// or 0 when it does not close on the same line.
func quotedLength(rest []byte, quote byte) int {
	if len(rest) == 0 || rest[0] != quote {
		return 0
	}

	for i := 1; i < len(rest); i++ {
		switch {
		case rest[i] == '\n':
			return 0
		case quote == '"' && rest[i] == '\\':
			i++
		case rest[i] == quote && quote == '\'' && i+1 < len(rest) && rest[i+1] == '\'':
			i++
		case rest[i] == quote:
			return i + 1
		}
	}

	return 0
}

// render formats version the way target is written.
func render(target *yaml.Node, version string) string {
	switch {
	case target.Style&yaml.DoubleQuotedStyle != 0:
		return strconv.Quote(version)
	case target.Style&yaml.SingleQuotedStyle != 0:
		return "'" + strings.ReplaceAll(version, "'", "''") + "'"
	}

	out, err := yaml.Marshal(version)
	if err != nil {
		return strconv.Quote(version)
	}

	plain := strings.TrimSuffix(string(out), "\n")
	if plain == "" || strings.Contains(plain, "\n") {
		return strconv.Quote(version)
	}

	return plain
}
