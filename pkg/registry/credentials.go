package registry

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigConfigfile "github.com/docker/cli/cli/config/configfile"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"
	dockerConfigTypes "github.com/docker/cli/cli/config/types"

	"github.com/mirio/uptainer/pkg/registry/helpers"
	"github.com/mirio/uptainer/pkg/types"
)

// Errors for registry credential lookups.
var (
	// errUnsetRegAuthVars indicates registry auth environment variables (REPO_USER, REPO_PASS) are not set.
	errUnsetRegAuthVars = errors.New(
		"registry auth environment variables (REPO_USER, REPO_PASS) not set",
	)
	// errFailedGetRegistryAddress indicates a failure to extract the registry address from an image reference.
	errFailedGetRegistryAddress = errors.New("failed to get registry address")
	// errFailedLoadDockerConfig indicates a failure to load the Docker configuration file.
	errFailedLoadDockerConfig = errors.New("failed to load Docker config")
)

// Credentials returns registry credentials for the given image reference,
// first checking environment variables and then falling back to the Docker config file.
// A nil result with a nil error means anonymous access.
func Credentials(ref string) (*types.RegistryCredentials, error) {
	fields := logrus.Fields{
		"image_ref": ref,
	}

	logrus.WithFields(fields).Debug("Attempting to retrieve registry credentials")

	creds, err := EnvCredentials()
	if err != nil {
		logrus.WithError(err).
			WithFields(fields).
			Debug("Environment credentials not available, trying config file")

		creds, err = ConfigCredentials(ref)
	}

	if err == nil && creds != nil {
		logrus.WithFields(fields).Debug("Successfully retrieved registry credentials")
	}

	return creds, err
}

// EnvCredentials reads REPO_USER and REPO_PASS.
// It returns an error if either variable is unset.
func EnvCredentials() (*types.RegistryCredentials, error) {
	username := os.Getenv("REPO_USER")
	password := os.Getenv("REPO_PASS")

	if username == "" || password == "" {
		logrus.Debug("Environment auth variables not set")

		return nil, errUnsetRegAuthVars
	}

	logrus.WithFields(logrus.Fields{
		"username": username,
	}).Debug("Loaded registry credentials from environment")

	return &types.RegistryCredentials{Username: username, Password: password}, nil
}

// ConfigCredentials retrieves credentials from the Docker config file for the registry
// hosting imageRef. The directory is taken from DOCKER_CONFIG, defaulting to the docker CLI location.
// It returns nil credentials when the config holds none for that registry.
func ConfigCredentials(imageRef string) (*types.RegistryCredentials, error) {
	fields := logrus.Fields{
		"image_ref": imageRef,
	}

	server, err := helpers.GetRegistryAddress(imageRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedGetRegistryAddress, err)
	}

	configDir := os.Getenv("DOCKER_CONFIG")
	if configDir == "" {
		configDir = dockerCliConfig.Dir()
	}

	configFile, err := dockerCliConfig.Load(configDir)
	if err != nil {
		logrus.WithError(err).
			WithFields(fields).
			WithField("config_dir", configDir).
			Debug("Failed to load Docker config")

		return nil, fmt.Errorf("%w: %w", errFailedLoadDockerConfig, err)
	}

	credStore := CredentialsStore(*configFile)
	auth, _ := credStore.Get(server)

	if auth == (dockerConfigTypes.AuthConfig{}) || auth.Username == "" {
		logrus.WithFields(fields).WithFields(logrus.Fields{
			"server":      server,
			"config_file": configFile.Filename,
		}).Debug("No credentials found in config")

		return nil, nil //nolint:nilnil // anonymous access
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"username":    auth.Username,
		"server":      server,
		"config_file": configFile.Filename,
	}).Debug("Loaded registry credentials from config")

	return &types.RegistryCredentials{Username: auth.Username, Password: auth.Password}, nil
}

// CredentialsStore returns a new credentials store based on the settings provided in the configuration file.
// It determines whether to use a native or file-based store depending on the config.
func CredentialsStore(configFile dockerConfigConfigfile.ConfigFile) dockerConfigCredentials.Store {
	if configFile.CredentialsStore != "" {
		return dockerConfigCredentials.NewNativeStore(&configFile, configFile.CredentialsStore)
	}

	return dockerConfigCredentials.NewFileStore(&configFile)
}
