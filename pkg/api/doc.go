// Package api provides an HTTP server for uptainer's API endpoints.
// It handles token-authenticated requests for triggering runs and scraping metrics.
//
// Key components:
//   - API: Manages server setup and endpoint registration.
//   - RequireToken: Wraps HTTP handlers with bearer token validation.
//   - RunHTTPServer: Serves until the context is done, then shuts down gracefully.
//
// Usage example:
//
//	httpAPI := api.New("secure-token", ":8080")
//	httpAPI.RegisterFunc("/v1/update", updateHandler.Handle)
//	if err := httpAPI.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
//
// The package uses a dedicated ServeMux for routing and logrus for logging server operations.
package api
