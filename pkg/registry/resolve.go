package registry

import (
	"fmt"
	"strings"

	"github.com/mirio/uptainer/pkg/registry/helpers"
	"github.com/mirio/uptainer/pkg/types"
)

// maxShortFormSegments is the largest segment count of a Docker Hub short form ("redis", "library/redis").
const maxShortFormSegments = 2

// Resolve classifies an image repository string into a registry variant.
//
// Explicit host prefixes are checked before the short-form heuristic, so "ghcr.io/x"
// resolves to GitHub even though it also has at most two segments.
//
// Returns:
//   - types.Provider: GitHub, DockerHub or Undefined.
//   - error: ErrInvalidConfiguration for an empty input.
func Resolve(imageRepository string) (types.Provider, error) {
	normalized := helpers.TrimScheme(imageRepository)
	if normalized == "" {
		return types.ProviderUndefined, fmt.Errorf(
			"%w: image_repository is empty",
			types.ErrInvalidConfiguration,
		)
	}

	switch {
	case strings.HasPrefix(normalized, helpers.GitHubRegistryDomain):
		return types.ProviderGitHub, nil
	case strings.HasPrefix(normalized, helpers.DefaultRegistryDomain):
		return types.ProviderDockerHub, nil
	case len(strings.Split(normalized, "/")) <= maxShortFormSegments:
		return types.ProviderDockerHub, nil
	default:
		return types.ProviderUndefined, nil
	}
}
