// Package api wires uptainer's HTTP API endpoints to the run coordinator and metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/pkg/api"
	metricsAPI "github.com/mirio/uptainer/pkg/api/metrics"
	"github.com/mirio/uptainer/pkg/api/update"
	"github.com/mirio/uptainer/pkg/metrics"
)

// Options selects which endpoints are served and where.
type Options struct {
	Host          string
	Port          string
	Token         string
	EnableUpdate  bool // Serve POST /v1/update.
	EnableMetrics bool // Serve GET /v1/metrics.
	Blocking      bool // Serve in the foreground until ctx is done.
}

// GetAPIAddr formats the API address string based on host and port.
func GetAPIAddr(host, port string) string {
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		return "[" + host + "]:" + port
	}

	return host + ":" + port
}

// SetupAndStartAPI configures and launches the HTTP API if any endpoint is enabled.
//
// Parameters:
//   - ctx: Lifetime of the server; cancellation shuts it down.
//   - opts: Endpoint selection and listen address.
//   - runLock: Lock shared with the scheduler so API-triggered runs never overlap scheduled ones.
//   - runFn: Runs the named entries, or every entry for nil, and returns the run metric.
//   - server: Optional server replacing the default *http.Server.
//
// Returns:
//   - error: An error if the API fails to start, nil on clean shutdown or when nothing is enabled.
func SetupAndStartAPI(
	ctx context.Context,
	opts Options,
	runLock chan bool,
	runFn func(entries []string) *metrics.Metric,
	server ...api.HTTPServer,
) error {
	httpAPI := api.New(opts.Token, GetAPIAddr(opts.Host, opts.Port), server...)

	if opts.EnableUpdate {
		updateHandler := update.New(func(entries []string) *metrics.Metric {
			metric := runFn(entries)
			metrics.Default().RegisterScan(metric)

			return metric
		}, runLock)
		httpAPI.RegisterFunc(updateHandler.Path, updateHandler.Handle)
	}

	if opts.EnableMetrics {
		metricsHandler := metricsAPI.New()
		httpAPI.RegisterFunc(metricsHandler.Path, metricsHandler.Handle)
	}

	if err := httpAPI.Start(ctx, opts.Blocking); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return nil
}
