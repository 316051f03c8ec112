// Package matcher selects the version to deploy from a list of tag records.
package matcher

import (
	"fmt"
	"regexp"

	"github.com/mirio/uptainer/pkg/types"
)

// Matcher holds a compiled version pattern.
type Matcher struct {
	pattern *regexp.Regexp
}

// New compiles a version pattern.
// The pattern is anchored at the start of a tag but not at its end,
// so "v\d+" matches "v12-alpine" and not "alpine-v12".
//
// Parameters:
//   - pattern: Regular expression in RE2 syntax.
//
// Returns:
//   - *Matcher: Compiled matcher.
//   - error: ErrInvalidConfiguration when the pattern is empty or does not compile.
func New(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: version_match is empty", types.ErrInvalidConfiguration)
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: version_match %q: %w", types.ErrInvalidConfiguration, pattern, err)
	}

	return &Matcher{pattern: compiled}, nil
}

// MatchTag reports whether a single tag satisfies the pattern.
func (m *Matcher) MatchTag(tag string) bool {
	loc := m.pattern.FindStringIndex(tag)

	return loc != nil && loc[0] == 0
}

// Match walks records in order and their tags in order and returns the first matching tag.
func (m *Matcher) Match(records []types.TagRecord) types.MatchResult {
	for _, record := range records {
		for _, tag := range record.Tags {
			if m.MatchTag(tag) {
				return types.MatchResult{Matched: true, Version: tag}
			}
		}
	}

	return types.MatchResult{}
}

// Match compiles pattern and applies it to records.
func Match(pattern string, records []types.TagRecord) (types.MatchResult, error) {
	m, err := New(pattern)
	if err != nil {
		return types.MatchResult{}, err
	}

	return m.Match(records), nil
}
