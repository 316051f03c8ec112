package update

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/pkg/metrics"
)

// apiVersion is reported in every response body.
const apiVersion = "v1"

// retryAfterSeconds is suggested to clients rejected because a run is in progress.
const retryAfterSeconds = "30"

// Handler triggers runs via HTTP.
type Handler struct {
	fn   func(entries []string) *metrics.Metric // Run function, nil entries means every entry.
	Path string                                 // API endpoint path.
	lock chan bool                              // Run lock shared with the scheduler.
}

// New creates a new Handler instance.
//
// Parameters:
//   - runFn: Function running the named entries, or all entries for nil, and returning metrics.
//   - runLock: Optional lock channel for synchronizing runs; if nil, a new channel is created.
//
// Returns:
//   - *Handler: Initialized handler.
func New(runFn func(entries []string) *metrics.Metric, runLock chan bool) *Handler {
	lock := runLock
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true

		logrus.Debug("Initialized new run lock channel")
	}

	return &Handler{
		fn:   runFn,
		Path: "/v1/update",
		lock: lock,
	}
}

// Handle processes HTTP run requests.
//
// Targeted runs (with "entry" query parameters) wait for the lock so the named entries
// are processed even if another run is in progress. Full runs return 429 immediately
// when another run holds the lock, since a queued full run adds nothing.
// On success it answers 200 with a JSON summary of the run.
func (handle *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	log := logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	log.Info("Received HTTP API update request")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

		return
	}

	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		log.WithError(err).Debug("Failed to read request body")
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)

		return
	}

	entries := entryNames(r)

	if len(entries) > 0 {
		select {
		case token := <-handle.lock:
			defer func() { handle.lock <- token }()
		case <-r.Context().Done():
			log.Debug("Request canceled while waiting for the run lock")
			http.Error(w, "request canceled", http.StatusServiceUnavailable)

			return
		}

		log.WithField("entries", entries).Info("Executing targeted run")
	} else {
		select {
		case token := <-handle.lock:
			defer func() { handle.lock <- token }()
		default:
			log.Debug("Skipped run, another run already in progress")
			w.Header().Set("Retry-After", retryAfterSeconds)
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "another run is already in progress",
				"api_version": apiVersion,
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
			})

			return
		}

		log.Info("Executing full run")
	}

	startTime := time.Now()
	metric := handle.fn(entries)
	duration := time.Since(startTime)

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": map[string]any{
			"scanned": metric.Scanned,
			"updated": metric.Updated,
			"failed":  metric.Failed,
			"fresh":   metric.Fresh,
			"stale":   metric.Stale,
		},
		"timing": map[string]any{
			"duration_ms": duration.Milliseconds(),
			"duration":    duration.String(),
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"api_version": apiVersion,
	})
}

// entryNames collects the entry query parameters, splitting comma-separated values.
func entryNames(r *http.Request) []string {
	var names []string

	for _, value := range r.URL.Query()["entry"] {
		for name := range strings.SplitSeq(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	return names
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(buf.Bytes()); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
