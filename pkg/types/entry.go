package types

import (
	"fmt"
	"strings"
)

// DefaultBranch is the branch checked out when an entry does not name one.
const DefaultBranch = "main"

// RepositoryEntry binds one container image to a value inside a Git-tracked manifest.
type RepositoryEntry struct {
	Name              string `mapstructure:"name"                yaml:"name"`
	ImageRepository   string `mapstructure:"image_repository"    yaml:"image_repository"`
	GitSSHURL         string `mapstructure:"git_ssh_url"         yaml:"git_ssh_url"`
	GitSSHPrivateKey  string `mapstructure:"git_ssh_privatekey"  yaml:"git_ssh_privatekey"`
	GitBranch         string `mapstructure:"git_branch"          yaml:"git_branch"`
	GitValuesFilename string `mapstructure:"git_values_filename" yaml:"git_values_filename"`
	ValuesKey         string `mapstructure:"values_key"          yaml:"values_key"`
	VersionMatch      string `mapstructure:"version_match"       yaml:"version_match"`
}

// Validate checks that every mandatory field is present and non-empty.
//
// Returns:
//   - error: ErrInvalidConfiguration naming the first missing field, nil otherwise.
func (e RepositoryEntry) Validate() error {
	mandatory := []struct {
		key   string
		value string
	}{
		{"name", e.Name},
		{"image_repository", e.ImageRepository},
		{"git_ssh_url", e.GitSSHURL},
		{"git_ssh_privatekey", e.GitSSHPrivateKey},
		{"git_values_filename", e.GitValuesFilename},
		{"values_key", e.ValuesKey},
		{"version_match", e.VersionMatch},
	}

	for _, field := range mandatory {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %q is missing or empty", ErrInvalidConfiguration, field.key)
		}
	}

	return nil
}

// Branch returns the configured branch, falling back to DefaultBranch.
func (e RepositoryEntry) Branch() string {
	if e.GitBranch == "" {
		return DefaultBranch
	}

	return e.GitBranch
}
