package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apiPkg "github.com/mirio/uptainer/internal/api"
	"github.com/mirio/uptainer/pkg/api"
	"github.com/mirio/uptainer/pkg/metrics"
)

func TestAPI(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Internal API Suite")
}

// stubServer blocks until shut down.
type stubServer struct {
	listenErr error
	stop      chan struct{}
	started   chan struct{}
}

func newStubServer() *stubServer {
	return &stubServer{stop: make(chan struct{}), started: make(chan struct{})}
}

func (s *stubServer) ListenAndServe() error {
	close(s.started)

	if s.listenErr != nil {
		return s.listenErr
	}

	<-s.stop

	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(context.Context) error {
	close(s.stop)

	return nil
}

func noRun([]string) *metrics.Metric {
	return &metrics.Metric{}
}

var _ = ginkgo.Describe("GetAPIAddr", func() {
	ginkgo.It("should format address without brackets for non-IPv6", func() {
		gomega.Expect(apiPkg.GetAPIAddr("localhost", "8080")).To(gomega.Equal("localhost:8080"))
		gomega.Expect(apiPkg.GetAPIAddr("127.0.0.1", "8080")).To(gomega.Equal("127.0.0.1:8080"))
	})

	ginkgo.It("should format address with brackets for IPv6", func() {
		gomega.Expect(apiPkg.GetAPIAddr("::1", "8080")).To(gomega.Equal("[::1]:8080"))
	})

	ginkgo.It("should handle empty host", func() {
		gomega.Expect(apiPkg.GetAPIAddr("", "8080")).To(gomega.Equal(":8080"))
	})
})

var _ = ginkgo.Describe("SetupAndStartAPI", func() {
	ginkgo.When("update and metrics APIs are enabled", func() {
		ginkgo.It("should serve until the context is done", func() {
			server := newStubServer()

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			err := apiPkg.SetupAndStartAPI(ctx, apiPkg.Options{
				Port:          "0",
				Token:         "test-token",
				EnableUpdate:  true,
				EnableMetrics: true,
				Blocking:      true,
			}, nil, noRun, server)

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(server.started).To(gomega.BeClosed())
		})
	})

	ginkgo.When("the server runs in the background", func() {
		ginkgo.It("should return immediately", func() {
			server := newStubServer()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := apiPkg.SetupAndStartAPI(ctx, apiPkg.Options{
				Token:         "test-token",
				EnableMetrics: true,
			}, nil, noRun, server)

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Eventually(server.started).Should(gomega.BeClosed())
		})
	})

	ginkgo.When("no APIs are enabled", func() {
		ginkgo.It("should return without starting server", func() {
			server := newStubServer()

			err := apiPkg.SetupAndStartAPI(context.Background(), apiPkg.Options{Token: "test-token"}, nil, noRun, server)

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Consistently(server.started, 50*time.Millisecond).ShouldNot(gomega.BeClosed())
		})
	})

	ginkgo.When("the token is missing", func() {
		ginkgo.It("should fail to start", func() {
			err := apiPkg.SetupAndStartAPI(context.Background(), apiPkg.Options{
				EnableUpdate: true,
			}, nil, noRun, newStubServer())

			gomega.Expect(errors.Is(err, api.ErrEmptyToken)).To(gomega.BeTrue())
		})
	})

	ginkgo.When("the server cannot listen", func() {
		ginkgo.It("should return the listen error", func() {
			server := newStubServer()
			server.listenErr = errors.New("address already in use")

			err := apiPkg.SetupAndStartAPI(context.Background(), apiPkg.Options{
				Token:        "test-token",
				EnableUpdate: true,
				Blocking:     true,
			}, nil, noRun, server)

			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("address already in use")))
		})
	})
})
