package api_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/pkg/api"
)

// testToken is a constant token used for testing authentication.
const testToken = "123123123"

func TestAPI(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	logrus.SetOutput(ginkgo.GinkgoWriter)
	ginkgo.RunSpecs(t, "API Suite")
}

// fakeServer records lifecycle calls.
type fakeServer struct {
	listenErr error
	stop      chan struct{}
	shutdowns int
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}

	<-s.stop

	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	s.shutdowns++
	close(s.stop)

	return nil
}

var _ = ginkgo.Describe("API", func() {
	ginkgo.Describe("RequireToken middleware", func() {
		var apiInstance *api.API

		ginkgo.BeforeEach(func() {
			apiInstance = api.New(testToken, "")
		})

		ginkgo.It("should return 401 Unauthorized when token is not provided", func() {
			rec := httptest.NewRecorder()
			apiInstance.RequireToken(testHandler)(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should return 401 Unauthorized when token is invalid", func() {
			req := httptest.NewRequest(http.MethodGet, "/hello", nil)
			req.Header.Set("Authorization", "Bearer 123")

			rec := httptest.NewRecorder()
			apiInstance.RequireToken(testHandler)(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should reject every request when the API has no token", func() {
			req := httptest.NewRequest(http.MethodGet, "/hello", nil)
			req.Header.Set("Authorization", "Bearer ")

			rec := httptest.NewRecorder()
			api.New("", "").RequireToken(testHandler)(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should return 200 OK when token is valid", func() {
			req := httptest.NewRequest(http.MethodGet, "/hello", nil)
			req.Header.Set("Authorization", "Bearer "+testToken)

			rec := httptest.NewRecorder()
			apiInstance.RequireToken(testHandler)(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("Hello!"))
		})
	})

	ginkgo.Describe("handler registration", func() {
		ginkgo.It("should protect handlers registered through the mux", func() {
			apiInstance := api.New(testToken, "")
			apiInstance.RegisterFunc("/func", testHandler)
			apiInstance.RegisterHandler("/handler", http.HandlerFunc(testHandler))

			server := httptest.NewServer(apiInstance.Handler())
			defer server.Close()

			for _, path := range []string{"/func", "/handler"} {
				gomega.Expect(get(server.URL+path, testToken)).To(gomega.Equal(http.StatusOK))
				gomega.Expect(get(server.URL+path, "wrong")).To(gomega.Equal(http.StatusUnauthorized))
			}
		})
	})

	ginkgo.Describe("Start", func() {
		ginkgo.It("should skip starting the server when no handlers are registered", func() {
			server := &fakeServer{stop: make(chan struct{})}
			apiInstance := api.New(testToken, "", server)

			gomega.Expect(apiInstance.Start(context.Background(), true)).To(gomega.Succeed())
			gomega.Expect(server.shutdowns).To(gomega.BeZero())
		})

		ginkgo.It("should refuse to start without a token", func() {
			apiInstance := api.New("", "", &fakeServer{stop: make(chan struct{})})
			apiInstance.RegisterFunc("/test", testHandler)

			err := apiInstance.Start(context.Background(), true)
			gomega.Expect(errors.Is(err, api.ErrEmptyToken)).To(gomega.BeTrue())
		})

		ginkgo.It("should shut the server down when the context is canceled", func() {
			server := &fakeServer{stop: make(chan struct{})}
			apiInstance := api.New(testToken, "", server)
			apiInstance.RegisterFunc("/test", testHandler)

			ctx, cancel := context.WithCancel(context.Background())
			errChan := make(chan error, 1)

			go func() {
				errChan <- apiInstance.Start(ctx, true)
			}()

			cancel()
			gomega.Eventually(errChan).Should(gomega.Receive(gomega.BeNil()))
			gomega.Expect(server.shutdowns).To(gomega.Equal(1))
		})

		ginkgo.It("should return the listen error in blocking mode", func() {
			listenErr := errors.New("address already in use")
			apiInstance := api.New(testToken, "", &fakeServer{listenErr: listenErr})
			apiInstance.RegisterFunc("/test", testHandler)

			gomega.Expect(apiInstance.Start(context.Background(), true)).To(gomega.MatchError(listenErr))
		})

		ginkgo.It("should serve real requests until canceled", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			port := listener.Addr().(*net.TCPAddr).Port
			gomega.Expect(listener.Close()).To(gomega.Succeed())

			apiInstance := api.New(testToken, fmt.Sprintf("127.0.0.1:%d", port))
			apiInstance.RegisterFunc("/test-real", testHandler)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			gomega.Expect(apiInstance.Start(ctx, false)).To(gomega.Succeed())

			url := fmt.Sprintf("http://127.0.0.1:%d/test-real", port)
			gomega.Eventually(func() int { return get(url, testToken) }, 2*time.Second, 10*time.Millisecond).
				Should(gomega.Equal(http.StatusOK))
		})
	})
})

// testHandler is a simple handler for testing HTTP responses.
func testHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "Hello!")
}

// get returns the status code of an authenticated GET, or 0 when the request fails.
func get(url, token string) int {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return 0
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode
}
