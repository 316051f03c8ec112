// Package github lists container package versions from the GitHub Container Registry.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/internal/logging"
	"github.com/mirio/uptainer/pkg/registry/helpers"
	"github.com/mirio/uptainer/pkg/registry/providers"
	"github.com/mirio/uptainer/pkg/types"
)

// DefaultAPIURL is the public GitHub REST API root.
const DefaultAPIURL = "https://api.github.com"

// APIVersion is sent as X-GitHub-Api-Version.
const APIVersion = "2022-11-28"

// DefaultMaxPages bounds how many version pages are requested for one package.
const DefaultMaxPages = 10

// pageSize is the number of versions requested per page, the API maximum.
const pageSize = 100

// Path segment layout of "ghcr.io/<parent>/<project>".
const (
	parentSegment  = 1
	projectSegment = 2
)

// packageVersion is one entry of the package versions listing.
type packageVersion struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
	Metadata  struct {
		Container struct {
			Tags []string `json:"tags"`
		} `json:"container"`
	} `json:"metadata"`
}

// Provider implements types.RegistryClient for ghcr.io.
type Provider struct {
	providers.BaseProvider
	token    string
	maxPages int
}

// Options configures a GitHub provider.
type Options struct {
	BaseURL    string
	Token      string // Empty sends anonymous requests.
	MaxPages   int    // DefaultMaxPages when zero.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewProvider creates a new GitHub provider.
func NewProvider(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}

	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	return &Provider{
		BaseProvider: providers.NewBaseProvider(types.ProviderGitHub, opts.BaseURL, opts.HTTPClient, opts.Timeout),
		token:        opts.Token,
		maxPages:     opts.MaxPages,
	}
}

// GetMetadata splits "ghcr.io/<parent>/<project>" into its coordinate.
// Extra segments after the project are ignored.
func (p *Provider) GetMetadata(imageRepository string) (types.ImageCoordinate, error) {
	normalized := helpers.TrimScheme(imageRepository)
	segments := strings.Split(normalized, "/")

	if segments[0] != helpers.GitHubRegistryDomain {
		return types.ImageCoordinate{}, fmt.Errorf(
			"%w: %q is not hosted on %s",
			types.ErrMetadataParse,
			imageRepository,
			helpers.GitHubRegistryDomain,
		)
	}

	if len(segments) <= projectSegment ||
		segments[parentSegment] == "" ||
		segments[projectSegment] == "" {
		return types.ImageCoordinate{}, fmt.Errorf(
			"%w: %q does not name an owner and a package",
			types.ErrMetadataParse,
			imageRepository,
		)
	}

	return types.ImageCoordinate{
		Parent:  segments[parentSegment],
		Project: segments[projectSegment],
	}, nil
}

// ListVersions returns every tagged version of the package in API order.
// Pages are requested until an empty page comes back or the page limit is reached.
// Untagged versions are skipped.
func (p *Provider) ListVersions(
	ctx context.Context,
	coordinate types.ImageCoordinate,
) ([]types.TagRecord, error) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"parent":  coordinate.Parent,
		"project": coordinate.Project,
	})

	headers := http.Header{}
	headers.Set("Accept", "application/vnd.github+json")
	headers.Set("X-GitHub-Api-Version", APIVersion)

	if p.token != "" {
		headers.Set("Authorization", "Bearer "+p.token)
	}

	var records []types.TagRecord

	for page := 1; ; page++ {
		if page > p.maxPages {
			log.WithField("max_pages", p.maxPages).Debug("Stopping version listing at page limit")

			break
		}

		var versions []packageVersion

		if err := p.DoJSON(ctx, http.MethodGet, p.versionsURL(coordinate, page), headers, nil, &versions); err != nil {
			return nil, err
		}

		if len(versions) == 0 {
			break
		}

		for _, version := range versions {
			if len(version.Metadata.Container.Tags) == 0 {
				continue
			}

			records = append(records, types.TagRecord{
				Tags:        version.Metadata.Container.Tags,
				LastUpdated: parseUpdatedAt(log, version.UpdatedAt),
			})
		}
	}

	log.WithField("records", len(records)).Debug("Listed package versions")

	return records, nil
}

func (p *Provider) versionsURL(coordinate types.ImageCoordinate, page int) string {
	return fmt.Sprintf(
		"%s/users/%s/packages/container/%s/versions?per_page=%d&page=%d",
		p.BaseURL(),
		url.PathEscape(coordinate.Parent),
		url.PathEscape(coordinate.Project),
		pageSize,
		page,
	)
}

// parseUpdatedAt reads an RFC 3339 timestamp in UTC.
// Unparseable values yield the zero time.
func parseUpdatedAt(log *logrus.Entry, value string) time.Time {
	if value == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.WithError(err).WithField("updated_at", value).Debug("Ignoring unparseable update time")

		return time.Time{}
	}

	return parsed.UTC()
}
