// Package helpers provides utility functions for registry-related operations in uptainer.
// It includes methods for normalizing image repository strings and parsing Docker Hub references.
package helpers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// Domains for the supported registries.
const (
	GitHubRegistryDomain        = "ghcr.io"
	DefaultRegistryDomain       = "docker.io"
	DefaultRegistryHost         = "index.docker.io"
	LegacyDefaultRegistryDomain = "index.docker.io"
	DefaultNamespace            = "library"
)

// errNotDockerHub indicates a reference whose domain is not Docker Hub.
var errNotDockerHub = errors.New("reference is not hosted on Docker Hub")

// errNestedRepository indicates a Docker Hub path with more than namespace and repository.
var errNestedRepository = errors.New("docker hub repositories have at most two path segments")

// TrimScheme strips a leading https:// or http:// and surrounding whitespace.
func TrimScheme(imageRepository string) string {
	trimmed := strings.TrimSpace(imageRepository)
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(strings.ToLower(trimmed), prefix) {
			return trimmed[len(prefix):]
		}
	}

	return trimmed
}

// GetRegistryAddress extracts the registry address from an image reference.
// It returns the domain part of the reference, mapping Docker Hub’s default domain
// to its canonical host address if applicable.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(TrimScheme(imageRef))
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	address := reference.Domain(normalizedRef)
	if address == DefaultRegistryDomain {
		address = DefaultRegistryHost
	}

	return address, nil
}

// ParseDockerHubPath returns the namespace and repository of a Docker Hub image.
// Short forms are normalized the way the docker CLI does: "redis" becomes "library/redis".
// Tags and digests are dropped.
func ParseDockerHubPath(imageRepository string) (string, string, error) {
	named, err := reference.ParseNormalizedNamed(TrimScheme(imageRepository))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	domain := reference.Domain(named)
	if domain != DefaultRegistryDomain && domain != LegacyDefaultRegistryDomain {
		return "", "", fmt.Errorf("%w: %s", errNotDockerHub, domain)
	}

	segments := strings.Split(reference.Path(named), "/")

	switch len(segments) {
	case 1:
		return DefaultNamespace, segments[0], nil
	case 2: //nolint:mnd // namespace/repository
		return segments[0], segments[1], nil
	default:
		return "", "", fmt.Errorf("%w: %s", errNestedRepository, reference.Path(named))
	}
}
