// Package meta holds build metadata for uptainer.
package meta

var (
	// Version is the release version, set at build time with -ldflags "-X github.com/mirio/uptainer/internal/meta.Version=v1.2.3".
	Version = "v0.0.0-unknown"

	// UserAgent identifies uptainer in outbound registry requests.
	UserAgent = "Uptainer/" + Version
)
