// Package flags manages command-line flags and environment variables for uptainer configuration.
package flags

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mirio/uptainer/pkg/types"
)

// defaultTimeout bounds every registry call and git network operation (60 seconds).
const defaultTimeout = 60 * time.Second

// defaultConcurrency processes entries one at a time.
const defaultConcurrency = 1

// errInvalidLogFormat indicates an invalid log format was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errOpenFileFailed indicates a failure to open a file for reading secrets.
var errOpenFileFailed = errors.New("failed to open secret file")

// errCloseFileFailed indicates a failure to close a file after reading secrets.
var errCloseFileFailed = errors.New("failed to close secret file")

// errReplaceSliceFailed indicates a failure to replace a slice value in a flag.
var errReplaceSliceFailed = errors.New("failed to replace slice value in flag")

// errReadFileFailed indicates a failure to read a file’s contents.
var errReadFileFailed = errors.New("failed to read secret file")

// errSetFlagFailed indicates a failure to read or set a flag’s value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errInvalidFlagName indicates an invalid flag name was provided.
var errInvalidFlagName = errors.New("invalid flag name provided")

// errNotSliceValue indicates a flag does not support slice values.
var errNotSliceValue = errors.New("flag does not support slice values")

// errInvalidConcurrency indicates a concurrency below one.
var errInvalidConcurrency = errors.New("concurrency must be at least 1")

// errInvalidTimeout indicates a non-positive timeout.
var errInvalidTimeout = errors.New("timeout must be positive")

// errInvalidSortPolicy indicates a sort policy no sorter implements.
var errInvalidSortPolicy = errors.New("unknown sort policy")

// errScheduleConflict indicates run-once was combined with a schedule.
var errScheduleConflict = errors.New("run-once cannot be combined with a schedule")

// errInvalidPorcelain indicates an unsupported porcelain version.
var errInvalidPorcelain = errors.New("unknown porcelain version")

// RegisterSystemFlags adds flags that modify uptainer’s program flow to the root command.
// These flags control the configuration source, run behavior, logging, and operational modes.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"config-file",
		"c",
		envString("UPTAINER_CONFIG_FILE"),
		"Configuration file listing the repository entries")

	flags.BoolP(
		"run-once",
		"R",
		envBool("UPTAINER_RUN_ONCE"),
		"Run once now and exit")

	flags.StringP(
		"schedule",
		"s",
		envString("UPTAINER_SCHEDULE"),
		"The cron expression which defines when to run updates")

	flags.BoolP(
		"update-on-start",
		"",
		envBool("UPTAINER_UPDATE_ON_START"),
		"Run an update immediately on startup, then continue on the schedule")

	flags.IntP(
		"concurrency",
		"",
		envInt("UPTAINER_CONCURRENCY"),
		"Maximum number of entries processed at the same time")

	flags.DurationP(
		"timeout",
		"t",
		envDuration("UPTAINER_TIMEOUT"),
		"Timeout for every registry request and git network operation")

	flags.StringP(
		"sort",
		"",
		envString("UPTAINER_SORT"),
		"How published versions are ordered before matching. Possible values: api, updated, semver")

	flags.BoolP(
		"dry-run",
		"",
		envBool("UPTAINER_DRY_RUN"),
		"Compute manifest changes without committing or pushing them")

	flags.StringP(
		"git-author-name",
		"",
		envString("UPTAINER_GIT_AUTHOR_NAME"),
		"Author name used for update commits")

	flags.StringP(
		"git-author-email",
		"",
		envString("UPTAINER_GIT_AUTHOR_EMAIL"),
		"Author email used for update commits")

	flags.StringP(
		"github-api-url",
		"",
		envString("UPTAINER_GITHUB_API_URL"),
		"GitHub API root used to list container package versions")

	flags.StringP(
		"dockerhub-api-url",
		"",
		envString("UPTAINER_DOCKERHUB_API_URL"),
		"Docker Hub API root used to list repository tags")

	flags.StringP(
		"log-format",
		"l",
		viper.GetString("UPTAINER_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON",
	)

	flags.BoolP(
		"debug",
		"d",
		envBool("UPTAINER_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.BoolP(
		"trace",
		"",
		envBool("UPTAINER_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	flags.String(
		"log-level",
		envString("UPTAINER_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace",
	)

	// https://no-color.org/
	flags.BoolP(
		"no-color",
		"",
		viper.IsSet("NO_COLOR"),
		"Disable ANSI color escape codes in log output")

	flags.BoolP(
		"no-startup-message",
		"",
		envBool("UPTAINER_NO_STARTUP_MESSAGE"),
		"Prevents uptainer from logging a startup message")

	flags.StringP(
		"porcelain",
		"P",
		envString("UPTAINER_PORCELAIN"),
		`Write run results to stdout using a stable versioned format. Supported values: "v1"`)

	flags.BoolP(
		"http-api-update",
		"",
		envBool("UPTAINER_HTTP_API_UPDATE"),
		"Runs uptainer in HTTP API mode, so that updates must be triggered by a request")

	flags.BoolP(
		"http-api-metrics",
		"",
		envBool("UPTAINER_HTTP_API_METRICS"),
		"Runs uptainer with the Prometheus metrics API enabled")

	flags.StringP(
		"http-api-host",
		"",
		envString("UPTAINER_HTTP_API_HOST"),
		"Host to bind the HTTP API to (default: all interfaces)")

	flags.StringP(
		"http-api-port",
		"",
		envString("UPTAINER_HTTP_API_PORT"),
		"Port to bind the HTTP API to (default: 8080)")

	flags.StringP(
		"http-api-token",
		"",
		envString("UPTAINER_HTTP_API_TOKEN"),
		"Sets an authentication token to HTTP API requests.")

	flags.BoolP(
		"http-api-periodic-polls",
		"",
		envBool("UPTAINER_HTTP_API_PERIODIC_POLLS"),
		"Also run scheduled updates (specified with --schedule) if the HTTP update API is enabled",
	)
}

// RegisterNotificationFlags adds flags for configuring uptainer notifications to the root command.
// These flags control where run summaries are sent and how they look.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringArray(
		"notification-url",
		envStringSlice("UPTAINER_NOTIFICATION_URL"),
		"The shoutrrr URL to send notifications to")

	flags.String(
		"notification-template",
		envString("UPTAINER_NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for the messages, or the name of a built-in template")

	flags.StringP(
		"notifications-hostname",
		"",
		envString("UPTAINER_NOTIFICATIONS_HOSTNAME"),
		"Custom hostname for notification titles")

	flags.StringP(
		"notification-title-tag",
		"",
		envString("UPTAINER_NOTIFICATION_TITLE_TAG"),
		"Title prefix tag for notifications")

	flags.Bool("notification-skip-title",
		envBool("UPTAINER_NOTIFICATION_SKIP_TITLE"),
		"Do not pass the title param to notifications")

	flags.IntP(
		"notifications-delay",
		"",
		envInt("UPTAINER_NOTIFICATIONS_DELAY"),
		"Delay before sending notifications, expressed in seconds")

	flags.Bool(
		"notification-log-stdout",
		envBool("UPTAINER_NOTIFICATION_LOG_STDOUT"),
		"Write notification logs to stdout instead of logging (to stderr)")
}

// envString retrieves a string value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
// It binds the key to the environment and returns its values.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envInt retrieves an integer value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envInt(key string) int {
	viper.MustBindEnv(key)

	return viper.GetInt(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures default values for environment variables.
// It ensures consistent fallback behavior when flags or environment variables are unset.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("UPTAINER_CONFIG_FILE", "config.yml")
	viper.SetDefault("UPTAINER_CONCURRENCY", defaultConcurrency)
	viper.SetDefault("UPTAINER_TIMEOUT", defaultTimeout)
	viper.SetDefault("UPTAINER_SORT", string(types.SortAPI))
	viper.SetDefault("UPTAINER_HTTP_API_PORT", "8080")
	viper.SetDefault("UPTAINER_NOTIFICATION_URL", []string{})
	viper.SetDefault("UPTAINER_LOG_LEVEL", "info")
	viper.SetDefault("UPTAINER_LOG_FORMAT", "auto")
}

// ReadRunParams retrieves the options applied to every run from the command’s flags.
//
// Returns:
//   - types.RunParams: Validated run options.
//   - error: Non-nil if a flag is missing or holds an invalid value.
func ReadRunParams(cmd *cobra.Command) (types.RunParams, error) {
	flags := cmd.PersistentFlags()

	var (
		params types.RunParams
		sort   string
		err    error
	)

	if params.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if sort, err = flags.GetString("sort"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.AuthorName, err = flags.GetString("git-author-name"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.AuthorEmail, err = flags.GetString("git-author-email"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.Concurrency < 1 {
		return params, fmt.Errorf("%w: %d", errInvalidConcurrency, params.Concurrency)
	}

	if params.Timeout <= 0 {
		return params, fmt.Errorf("%w: %s", errInvalidTimeout, params.Timeout)
	}

	switch policy := types.SortPolicy(strings.ToLower(sort)); policy {
	case types.SortAPI, types.SortUpdated, types.SortSemver:
		params.Sort = policy
	default:
		return params, fmt.Errorf("%w: %q", errInvalidSortPolicy, sort)
	}

	return params, nil
}

// GetSecretsFromFiles replaces flag values with file contents if they reference files.
// It processes a predefined list of secret-related flags, updating their values accordingly.
func GetSecretsFromFiles(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	secrets := []string{
		"notification-url",
		"http-api-token",
	}
	for _, secret := range secrets {
		if err := getSecretFromFile(flags, secret); err != nil {
			logrus.Fatalf("failed to get secret from flag %v: %s", secret, err)
		}
	}
}

// getSecretFromFile updates a flag’s value with file contents if it references a file.
// It handles both string and slice flags, returning an error if file operations fail.
func getSecretFromFile(flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, secret)
	}

	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value != "" && isFilePath(value) {
				file, err := os.Open(value)
				if err != nil {
					return fmt.Errorf("%w: %w", errOpenFileFailed, err)
				}

				scanner := bufio.NewScanner(file)
				for scanner.Scan() {
					line := scanner.Text()
					if line == "" {
						continue
					}

					values = append(values, line)
				}

				if err := file.Close(); err != nil {
					return fmt.Errorf("%w: %w", errCloseFileFailed, err)
				}
			} else {
				values = append(values, value)
			}
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(value) {
		content, err := os.ReadFile(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// isFilePath determines if a string likely represents a file path.
// It checks for file existence, avoiding false positives from URLs or invalid Windows paths.
func isFilePath(path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		// If ':' exists but isn’t the second character, it’s likely not a file path (e.g., URLs).
		return false
	}

	_, err := os.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

// ProcessFlagAliases synchronizes flag values based on helper flags.
//
// Porcelain output adds a stdout logger notification with the porcelain template,
// and debug or trace raise the log level.
//
// Returns:
//   - error: Non-nil for an unknown porcelain version or run-once combined with a schedule.
func ProcessFlagAliases(flags *pflag.FlagSet) error {
	porcelain, err := flags.GetString("porcelain")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if porcelain != "" {
		if porcelain != "v1" {
			return fmt.Errorf("%w: %q, supported values: \"v1\"", errInvalidPorcelain, porcelain)
		}

		if err = appendFlagValue(flags, "notification-url", "logger://"); err != nil {
			return err
		}

		setFlagIfDefault(flags, "notification-log-stdout", "true")
		setFlagIfDefault(flags, "notification-skip-title", "true")

		tpl := fmt.Sprintf("porcelain.%s.summary", porcelain)
		setFlagIfDefault(flags, "notification-template", tpl)
	}

	if flagIsEnabled(flags, "run-once") {
		if schedule, _ := flags.GetString("schedule"); schedule != "" {
			return errScheduleConflict
		}
	}

	if flagIsEnabled(flags, "debug") {
		if err := flags.Set("log-level", "debug"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	if flagIsEnabled(flags, "trace") {
		if err := flags.Set("log-level", "trace"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// SetupLogging configures the global logger based on log-related flags.
// It sets the log format and level, returning an error for invalid configurations.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
// It returns an error if the format is invalid.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// flagIsEnabled checks if a boolean flag is set to true.
// An undefined flag counts as disabled.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.WithField("flag", name).Debug("Flag is not defined")

		return false
	}

	return value
}

// appendFlagValue appends values to a slice-type flag.
// It returns an error if the flag is invalid or not a slice.
func appendFlagValue(flags *pflag.FlagSet, name string, values ...string) error {
	flag := flags.Lookup(name)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, name)
	}

	flagValues, ok := flag.Value.(pflag.SliceValue)
	if !ok {
		return fmt.Errorf("%w: %q", errNotSliceValue, name)
	}

	for _, value := range values {
		if err := flagValues.Append(value); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// setFlagIfDefault sets a flag’s value if it hasn’t been explicitly changed.
// It logs an error if the set operation fails but continues execution.
func setFlagIfDefault(flags *pflag.FlagSet, name string, value string) {
	if flags.Changed(name) {
		return
	}

	if err := flags.Set(name, value); err != nil {
		logrus.Errorf("Failed to set flag: %v", err)
	}
}
