// Package providers contains the HTTP plumbing shared by the registry provider clients.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/internal/logging"
	"github.com/mirio/uptainer/internal/meta"
	"github.com/mirio/uptainer/pkg/types"
)

// maxErrorBody bounds how much of an error response is kept in the error message.
const maxErrorBody = 512

// errEmptyBaseURL indicates a provider built without an API base URL.
var errEmptyBaseURL = errors.New("api base url is empty")

// BaseProvider provides common functionality for all registry providers.
type BaseProvider struct {
	name       types.Provider
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewBaseProvider creates a new base provider.
//
// Parameters:
//   - name: Registry variant served.
//   - baseURL: API root without a trailing slash.
//   - httpClient: Client used for requests, http.DefaultClient when nil.
//   - timeout: Per-request bound, none when zero.
//
// Returns:
//   - BaseProvider: Configured base.
func NewBaseProvider(
	name types.Provider,
	baseURL string,
	httpClient *http.Client,
	timeout time.Duration,
) BaseProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return BaseProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Provider returns the registry variant.
func (p BaseProvider) Provider() types.Provider {
	return p.name
}

// BaseURL returns the API root.
func (p BaseProvider) BaseURL() string {
	return p.baseURL
}

// DoJSON sends a request and decodes a JSON response body into out.
//
// Non-2xx responses become *types.RegistryRequestError. Transport failures, timeouts and
// undecodable bodies wrap types.ErrRegistryRequestFailed. No retries are made.
//
// Parameters:
//   - ctx: Request context.
//   - method: HTTP method.
//   - url: Absolute request URL.
//   - headers: Extra request headers, may be nil.
//   - body: Request body, may be nil.
//   - out: Decode target, skipped when nil.
//
// Returns:
//   - error: Non-nil on any failure.
func (p BaseProvider) DoJSON(
	ctx context.Context,
	method, url string,
	headers http.Header,
	body io.Reader,
	out any,
) error {
	if p.baseURL == "" {
		return fmt.Errorf("%w: %w", types.ErrRegistryRequestFailed, errEmptyBaseURL)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%w: failed to create HTTP request: %w", types.ErrRegistryRequestFailed, err)
	}

	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	req.Header.Set("User-Agent", meta.UserAgent)

	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"method":   method,
		"url":      url,
		"provider": p.name.String(),
	})
	log.Debug("Sending registry request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrRegistryRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		log.WithField("status", resp.StatusCode).Debug("Registry request rejected")

		return &types.RegistryRequestError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response from %s: %w", types.ErrRegistryRequestFailed, url, err)
	}

	return nil
}
