// Package config loads the uptainer repository entries from a YAML configuration file.
//
// The file holds a single "repos" list; each item decodes into a types.RepositoryEntry.
// Entries are not validated here: an invalid entry fails on its own during a run
// without preventing the others from being processed.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mirio/uptainer/pkg/types"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "config.yml"

// reposKey is the top-level key holding the entry list.
const reposKey = "repos"

var (
	// ErrConfigNotFound indicates the configuration file does not exist or is not a regular file.
	ErrConfigNotFound = errors.New("configuration file not found")
	// errReadConfig indicates the configuration file could not be parsed.
	errReadConfig = errors.New("failed to read configuration file")
	// errDecodeEntries indicates the repos list does not match the entry schema.
	errDecodeEntries = errors.New("failed to decode repository entries")
)

// Load reads the repository entries from the YAML file at path.
//
// Parameters:
//   - path: Configuration file, DefaultFile when empty.
//
// Returns:
//   - []types.RepositoryEntry: Entries in file order.
//   - error: ErrConfigNotFound for a missing file, ErrInvalidConfiguration for malformed content.
func Load(path string) ([]types.RepositoryEntry, error) {
	if path == "" {
		path = DefaultFile
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	logrus.WithField("file", path).Debug("Loading config")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", types.ErrInvalidConfiguration, errReadConfig, err)
	}

	if !v.IsSet(reposKey) {
		return nil, fmt.Errorf("%w: %q list is missing", types.ErrInvalidConfiguration, reposKey)
	}

	var entries []types.RepositoryEntry
	if err := v.UnmarshalKey(reposKey, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", types.ErrInvalidConfiguration, errDecodeEntries, err)
	}

	warnDuplicateNames(entries)

	logrus.WithFields(logrus.Fields{
		"file":    path,
		"entries": len(entries),
	}).Debug("Loaded config")

	return entries, nil
}

// Select returns the entries whose names appear in names, in configuration order.
// An empty names list selects every entry. Names matching no entry are returned as unknown.
func Select(entries []types.RepositoryEntry, names []string) ([]types.RepositoryEntry, []string) {
	if len(names) == 0 {
		return entries, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[strings.TrimSpace(name)] = false
	}

	selected := make([]types.RepositoryEntry, 0, len(names))

	for _, entry := range entries {
		if _, ok := wanted[entry.Name]; ok {
			wanted[entry.Name] = true

			selected = append(selected, entry)
		}
	}

	var unknown []string

	for _, name := range names {
		name = strings.TrimSpace(name)
		if found, ok := wanted[name]; ok && !found {
			unknown = append(unknown, name)
			wanted[name] = true
		}
	}

	return selected, unknown
}

// warnDuplicateNames logs entries sharing a name, since targeted runs select by name.
func warnDuplicateNames(entries []types.RepositoryEntry) {
	seen := make(map[string]int, len(entries))

	for _, entry := range entries {
		seen[entry.Name]++
	}

	for name, count := range seen {
		if count > 1 && name != "" {
			logrus.WithFields(logrus.Fields{
				"entry": name,
				"count": count,
			}).Warn("Duplicate entry name in config")
		}
	}
}
