// Package update provides an HTTP API handler for triggering uptainer runs.
// It manages run requests with concurrency control and entry targeting.
//
// Key components:
//   - Handler: Processes HTTP requests to trigger runs.
//   - New: Creates a handler with a run function and lock.
//
// Usage example:
//
//	handler := update.New(runFn, nil)
//	httpAPI.RegisterFunc(handler.Path, handler.Handle)
//
// Targeted runs name entries with repeated or comma-separated "entry" query parameters.
// The package uses a channel-based lock shared with the scheduler and logrus for logging requests.
package update
