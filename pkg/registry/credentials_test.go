package registry

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Registry credential helpers", func() {
	ginkgo.BeforeEach(func() {
		ginkgo.GinkgoT().Setenv("REPO_USER", "")
		ginkgo.GinkgoT().Setenv("REPO_PASS", "")
	})

	ginkgo.Describe("Credentials", func() {
		ginkgo.It("should return repo credentials from env when set", func() {
			ginkgo.GinkgoT().Setenv("REPO_USER", "uptainer-user")
			ginkgo.GinkgoT().Setenv("REPO_PASS", "uptainer-pass")

			creds, err := Credentials("redis")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(creds).NotTo(gomega.BeNil())
			gomega.Expect(creds.Username).To(gomega.Equal("uptainer-user"))
			gomega.Expect(creds.Password).To(gomega.Equal("uptainer-pass"))
		})

		ginkgo.It("should fall back to the docker config file", func() {
			dir := ginkgo.GinkgoT().TempDir()
			auth := base64.StdEncoding.EncodeToString([]byte("cfg-user:cfg-pass"))
			content := `{"auths":{"index.docker.io":{"auth":"` + auth + `"}}}`
			gomega.Expect(os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o600)).To(gomega.Succeed())
			ginkgo.GinkgoT().Setenv("DOCKER_CONFIG", dir)

			creds, err := Credentials("bitnami/redis")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(creds).NotTo(gomega.BeNil())
			gomega.Expect(creds.Username).To(gomega.Equal("cfg-user"))
			gomega.Expect(creds.Password).To(gomega.Equal("cfg-pass"))
		})

		ginkgo.It("should return no credentials when the config has none for the registry", func() {
			dir := ginkgo.GinkgoT().TempDir()
			gomega.Expect(os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"auths":{}}`), 0o600)).To(gomega.Succeed())
			ginkgo.GinkgoT().Setenv("DOCKER_CONFIG", dir)

			creds, err := Credentials("redis")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(creds).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("EnvCredentials", func() {
		ginkgo.It("should return an error if repo envs are unset", func() {
			_, err := EnvCredentials()
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("ConfigCredentials", func() {
		ginkgo.It("should return an error for an unparseable reference", func() {
			_, err := ConfigCredentials("")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
