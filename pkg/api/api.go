package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Server timeouts.
const (
	serverReadTimeout    = 10 * time.Second
	serverWriteTimeout   = 10 * time.Minute // A triggered run may take a while to answer.
	serverIdleTimeout    = 60 * time.Second
	serverMaxHeaderShift = 20
	shutdownTimeout      = 5 * time.Second
)

const (
	bearerPrefix          = "Bearer "
	unauthorizedResponse  = "Unauthorized"
	skippedStartupMessage = "uptainer HTTP API skipped."
)

// ErrEmptyToken indicates the API was started without an authentication token.
var ErrEmptyToken = errors.New("api token is empty or has not been set")

// HTTPServer is the subset of *http.Server used by the API.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// API is the token-protected HTTP API server.
type API struct {
	Token       string
	Addr        string
	hasHandlers bool
	mux         *http.ServeMux
	server      HTTPServer // Injected in tests, built on Start otherwise.
}

// New creates an API instance.
//
// Parameters:
//   - token: Bearer token required on every request.
//   - addr: Listen address.
//   - server: Optional server replacing the default *http.Server.
//
// Returns:
//   - *API: API with an empty mux.
func New(token, addr string, server ...HTTPServer) *API {
	var injected HTTPServer
	if len(server) > 0 {
		injected = server[0]
	}

	logrus.WithField("addr", addr).Debug("Initialized new API instance")

	return &API{
		Token:  token,
		Addr:   addr,
		mux:    http.NewServeMux(),
		server: injected,
	}
}

// RegisterFunc registers a token-protected handler function for path.
func (a *API) RegisterFunc(path string, handler http.HandlerFunc) {
	a.mux.HandleFunc(path, a.RequireToken(handler))
	a.hasHandlers = true
}

// RegisterHandler registers a token-protected handler for path.
func (a *API) RegisterHandler(path string, handler http.Handler) {
	a.mux.Handle(path, a.RequireToken(handler.ServeHTTP))
	a.hasHandlers = true
}

// Handler returns the API mux.
func (a *API) Handler() http.Handler {
	return a.mux
}

// Start runs the HTTP API server.
//
// With blocking set it serves in the foreground until ctx is done, otherwise it
// serves in the background and shuts down when ctx is done.
//
// Returns:
//   - error: ErrEmptyToken without a token, the listen error in blocking mode, nil otherwise.
func (a *API) Start(ctx context.Context, blocking bool) error {
	if !a.hasHandlers {
		logrus.Debug(skippedStartupMessage)

		return nil
	}

	if a.Token == "" {
		return ErrEmptyToken
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.Addr,
			Handler:           a.mux,
			ReadTimeout:       serverReadTimeout,
			WriteTimeout:      serverWriteTimeout,
			IdleTimeout:       serverIdleTimeout,
			ReadHeaderTimeout: serverReadTimeout,
			MaxHeaderBytes:    1 << serverMaxHeaderShift,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP API server")

	if blocking {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("HTTP API server failed")
		}
	}()

	return nil
}

// RequireToken wraps a handler function with bearer token authentication.
func (a *API) RequireToken(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, bearerPrefix) || a.Token == "" ||
			subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, bearerPrefix)), []byte(a.Token)) != 1 {
			logrus.WithField("path", r.URL.Path).Debug("Rejected unauthenticated API request")
			http.Error(w, unauthorizedResponse, http.StatusUnauthorized)

			return
		}

		handler(w, r)
	}
}

// RunHTTPServer starts server and shuts it down gracefully once ctx is done.
//
// Returns:
//   - error: The listen error, or the shutdown error after cancellation.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}
