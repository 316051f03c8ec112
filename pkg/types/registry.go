package types

import (
	"context"
	"time"
)

// Provider identifies the registry variant hosting an image.
type Provider string

const (
	// ProviderGitHub is the GitHub Container Registry (ghcr.io).
	ProviderGitHub Provider = "github"
	// ProviderDockerHub is Docker Hub (docker.io and short-form references).
	ProviderDockerHub Provider = "dockerhub"
	// ProviderUndefined marks an image repository no supported registry can serve.
	ProviderUndefined Provider = "undefined"
)

// String returns the display name of the provider.
func (p Provider) String() string {
	switch p {
	case ProviderGitHub:
		return "GitHub"
	case ProviderDockerHub:
		return "DockerHub"
	default:
		return "Undefined"
	}
}

// ImageCoordinate locates an image inside its registry.
type ImageCoordinate struct {
	Parent  string // Owner, organization or Docker Hub namespace.
	Project string // Image or package name.
}

// String returns the coordinate as "parent/project".
func (c ImageCoordinate) String() string {
	return c.Parent + "/" + c.Project
}

// TagRecord is one published version group.
// Several tag aliases may share a single record when they point at the same digest.
type TagRecord struct {
	Tags        []string
	LastUpdated time.Time
}

// MatchResult is the terminal output of version matching.
type MatchResult struct {
	Matched bool
	Version string
}

// RegistryClient defines the capabilities every registry provider implements.
type RegistryClient interface {
	// Provider returns the registry variant served by this client.
	Provider() Provider

	// GetMetadata derives the image coordinate from an image repository string.
	GetMetadata(imageRepository string) (ImageCoordinate, error)

	// ListVersions returns the published tag records for an image, in registry order.
	ListVersions(ctx context.Context, coordinate ImageCoordinate) ([]TagRecord, error)
}

// RegistryCredentials holds basic auth credentials for a registry login.
type RegistryCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"` //nolint:gosec // credential field
}
