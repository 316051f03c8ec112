package registry

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/pkg/registry/providers/dockerhub"
	"github.com/mirio/uptainer/pkg/registry/providers/github"
	"github.com/mirio/uptainer/pkg/types"
)

// GitHubTokenEnv names the environment variable holding the GitHub API token.
const GitHubTokenEnv = "GITHUB_API_TOKEN"

// dockerHubRef is any Docker Hub reference; all of them share one credential entry.
const dockerHubRef = "docker.io/library/alpine"

// Options holds the read-only, process-wide settings shared by every registry client.
type Options struct {
	GitHubAPIURL         string
	GitHubToken          string
	GitHubMaxPages       int
	DockerHubAPIURL      string
	DockerHubCredentials *types.RegistryCredentials
	DockerHubMaxPages    int
	HTTPClient           *http.Client
	Timeout              time.Duration // Per-request bound.
}

// LoadOptions resolves tokens and credentials once from the environment.
//
// A missing GitHub token is logged at warn level since anonymous GitHub package
// listings are rate limited and private packages are invisible.
// Docker Hub credentials come from REPO_USER/REPO_PASS or the docker config file.
//
// Parameters:
//   - gitHubAPIURL: GitHub API root, default when empty.
//   - dockerHubAPIURL: Docker Hub API root, default when empty.
//   - timeout: Per-request bound.
//
// Returns:
//   - Options: Settings for NewClient.
func LoadOptions(gitHubAPIURL, dockerHubAPIURL string, timeout time.Duration) Options {
	token := os.Getenv(GitHubTokenEnv)
	if token == "" {
		logrus.Warnf("%s is not set, GitHub package requests are sent anonymously", GitHubTokenEnv)
	}

	creds, err := Credentials(dockerHubRef)
	if err != nil {
		logrus.WithError(err).Debug("No Docker Hub credentials, using anonymous access")

		creds = nil
	}

	return Options{
		GitHubAPIURL:         gitHubAPIURL,
		GitHubToken:          token,
		DockerHubAPIURL:      dockerHubAPIURL,
		DockerHubCredentials: creds,
		Timeout:              timeout,
	}
}

// NewClient returns the registry client for a provider.
//
// Parameters:
//   - provider: Variant returned by Resolve.
//   - opts: Shared options.
//
// Returns:
//   - types.RegistryClient: Client for the variant.
//   - error: ErrUnsupportedProvider for Undefined or unknown variants.
func NewClient(provider types.Provider, opts Options) (types.RegistryClient, error) {
	switch provider {
	case types.ProviderGitHub:
		return github.NewProvider(github.Options{
			BaseURL:    opts.GitHubAPIURL,
			Token:      opts.GitHubToken,
			MaxPages:   opts.GitHubMaxPages,
			HTTPClient: opts.HTTPClient,
			Timeout:    opts.Timeout,
		}), nil
	case types.ProviderDockerHub:
		return dockerhub.NewProvider(dockerhub.Options{
			BaseURL:     opts.DockerHubAPIURL,
			Credentials: opts.DockerHubCredentials,
			MaxPages:    opts.DockerHubMaxPages,
			HTTPClient:  opts.HTTPClient,
			Timeout:     opts.Timeout,
		}), nil
	case types.ProviderUndefined:
		return nil, fmt.Errorf("%w: no registry client for this image repository", types.ErrUnsupportedProvider)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedProvider, string(provider))
	}
}
