// Package dockerhub lists repository tags from the Docker Hub API.
package dockerhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/internal/logging"
	"github.com/mirio/uptainer/pkg/registry/helpers"
	"github.com/mirio/uptainer/pkg/registry/providers"
	"github.com/mirio/uptainer/pkg/types"
)

// DefaultAPIURL is the public Docker Hub API root.
const DefaultAPIURL = "https://hub.docker.com"

// DefaultMaxPages bounds how many tag pages are followed for one repository.
const DefaultMaxPages = 10

// pageSize is the number of tags requested per page, the API maximum.
const pageSize = 100

// errForeignNextPage indicates a pagination link that leaves the configured API host.
var errForeignNextPage = errors.New("next page link points at another host")

// tagsPage is one page of the repository tags listing.
type tagsPage struct {
	Next    *string `json:"next"`
	Results []struct {
		Name        string    `json:"name"`
		LastUpdated time.Time `json:"last_updated"`
	} `json:"results"`
}

// Provider implements types.RegistryClient for Docker Hub.
type Provider struct {
	providers.BaseProvider
	credentials *types.RegistryCredentials
	maxPages    int
}

// Options configures a Docker Hub provider.
type Options struct {
	BaseURL     string
	Credentials *types.RegistryCredentials // Optional, enables the JWT login.
	MaxPages    int                        // DefaultMaxPages when zero.
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// NewProvider creates a new Docker Hub provider.
func NewProvider(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}

	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	return &Provider{
		BaseProvider: providers.NewBaseProvider(
			types.ProviderDockerHub,
			opts.BaseURL,
			opts.HTTPClient,
			opts.Timeout,
		),
		credentials: opts.Credentials,
		maxPages:    opts.MaxPages,
	}
}

// GetMetadata normalizes the reference the way the docker CLI does,
// so "redis" becomes library/redis and "docker.io/bitnami/redis" becomes bitnami/redis.
func (p *Provider) GetMetadata(imageRepository string) (types.ImageCoordinate, error) {
	namespace, repository, err := helpers.ParseDockerHubPath(imageRepository)
	if err != nil {
		return types.ImageCoordinate{}, fmt.Errorf("%w: %w", types.ErrMetadataParse, err)
	}

	return types.ImageCoordinate{Parent: namespace, Project: repository}, nil
}

// ListVersions returns one record per tag, newest first, following "next" links
// up to the page limit.
func (p *Provider) ListVersions(
	ctx context.Context,
	coordinate types.ImageCoordinate,
) ([]types.TagRecord, error) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"namespace":  coordinate.Parent,
		"repository": coordinate.Project,
	})

	headers := http.Header{}
	headers.Set("Accept", "application/json")

	if p.credentials != nil {
		token, err := p.login(ctx)
		if err != nil {
			return nil, err
		}

		headers.Set("Authorization", "JWT "+token)
	}

	var records []types.TagRecord

	next := fmt.Sprintf(
		"%s/v2/repositories/%s/%s/tags/?page_size=%d&ordering=-last_updated",
		p.BaseURL(),
		url.PathEscape(coordinate.Parent),
		url.PathEscape(coordinate.Project),
		pageSize,
	)

	for page := 1; next != ""; page++ {
		if page > p.maxPages {
			log.WithField("max_pages", p.maxPages).Debug("Stopping tag listing at page limit")

			break
		}

		var body tagsPage
		if err := p.DoJSON(ctx, http.MethodGet, next, headers, nil, &body); err != nil {
			return nil, err
		}

		for _, result := range body.Results {
			if result.Name == "" {
				continue
			}

			records = append(records, types.TagRecord{
				Tags:        []string{result.Name},
				LastUpdated: result.LastUpdated.UTC(),
			})
		}

		next = ""

		if body.Next != nil && *body.Next != "" {
			var err error

			next, err = p.nextPage(*body.Next)
			if err != nil {
				return nil, err
			}
		}
	}

	log.WithField("records", len(records)).Debug("Listed repository tags")

	return records, nil
}

// nextPage resolves a pagination link against the API root and refuses links to other hosts,
// since they would receive the login token.
func (p *Provider) nextPage(link string) (string, error) {
	base, err := url.Parse(p.BaseURL())
	if err != nil {
		return "", fmt.Errorf("%w: invalid api base url: %w", types.ErrRegistryRequestFailed, err)
	}

	next, err := base.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: invalid next page link: %w", types.ErrRegistryRequestFailed, err)
	}

	if next.Scheme != base.Scheme || next.Host != base.Host {
		return "", fmt.Errorf("%w: %w: %s", types.ErrRegistryRequestFailed, errForeignNextPage, next.Host)
	}

	return next.String(), nil
}

// login exchanges the configured credentials for a JWT.
func (p *Provider) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(p.credentials)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode login payload: %w", types.ErrRegistryRequestFailed, err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	var resp struct {
		Token string `json:"token"`
	}

	if err := p.DoJSON(
		ctx,
		http.MethodPost,
		p.BaseURL()+"/v2/users/login/",
		headers,
		bytes.NewReader(payload),
		&resp,
	); err != nil {
		return "", err
	}

	logging.FromContext(ctx).
		WithField("username", p.credentials.Username).
		Debug("Logged in to Docker Hub")

	return resp.Token, nil
}
