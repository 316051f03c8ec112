package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mirio/uptainer/internal/actions"
	internalAPI "github.com/mirio/uptainer/internal/api"
	"github.com/mirio/uptainer/internal/config"
	"github.com/mirio/uptainer/internal/flags"
	"github.com/mirio/uptainer/internal/logging"
	"github.com/mirio/uptainer/internal/meta"
	"github.com/mirio/uptainer/internal/scheduling"
	"github.com/mirio/uptainer/pkg/metrics"
	"github.com/mirio/uptainer/pkg/notifications"
	"github.com/mirio/uptainer/pkg/registry"
	"github.com/mirio/uptainer/pkg/types"
)

// entries holds the repository entries loaded from the configuration file.
var entries []types.RepositoryEntry

// coordinator processes entries with the configured run parameters.
var coordinator *actions.Coordinator

// notifier is the notification system instance responsible for sending run summaries.
var notifier types.Notifier

// scheduleSpec holds the cron schedule, empty when no periodic runs are configured.
var scheduleSpec string

// rootCmd represents the root command for the uptainer CLI, serving as the entry point for all subcommands.
var rootCmd = NewRootCommand()

// RunConfig encapsulates the configuration parameters for the runMain function.
type RunConfig struct {
	// Command is the cobra.Command instance representing the executed command, providing access to parsed flags.
	Command *cobra.Command
	// Entries are the repository entries processed by scheduled and one-off runs.
	Entries []types.RepositoryEntry
	// Coordinator processes entries.
	Coordinator *actions.Coordinator
	// Notifier receives run summaries, nil to disable notifications.
	Notifier types.Notifier
	// Schedule is the cron expression for periodic runs, set via the --schedule flag.
	Schedule string
	// RunOnce indicates whether to perform a single run and exit, set via the --run-once flag.
	RunOnce bool
	// UpdateOnStart runs immediately on startup, then continues on the schedule, set via the --update-on-start flag.
	UpdateOnStart bool
	// EnableUpdateAPI enables the HTTP update API endpoint, set via the --http-api-update flag.
	EnableUpdateAPI bool
	// EnableMetricsAPI enables the HTTP metrics API endpoint, set via the --http-api-metrics flag.
	EnableMetricsAPI bool
	// UnblockHTTPAPI allows scheduled runs alongside the HTTP update API, set via the --http-api-periodic-polls flag.
	UnblockHTTPAPI bool
	// APIToken is the authentication token for HTTP API access, set via the --http-api-token flag.
	APIToken string
	// APIHost is the host to bind the HTTP API to, set via the --http-api-host flag.
	APIHost string
	// APIPort is the port for the HTTP API server, set via the --http-api-port flag.
	APIPort string
}

// NewRootCommand creates and configures the root command for the uptainer CLI.
//
// Positional arguments name the entries to process; without any, every configured entry is processed.
//
// Returns:
//   - *cobra.Command: The root command, ready for flag registration and execution.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uptainer [entry...]",
		Short: "Keeps container image versions in GitOps manifests up to date",
		Long: "\nuptainer looks up the newest published version of each configured container image\n" +
			"and commits it to the matching values file of a Git repository.",
		Run:    run,
		PreRun: preRun,
		Args:   cobra.ArbitraryArgs,
	}
}

// init registers command-line flags for the root command during package initialization.
func init() {
	flags.SetDefaults()
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterNotificationFlags(rootCmd)
}

// Execute runs the root command and manages any errors encountered during its execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute root command")
	}
}

// preRun prepares logging, loads the configuration and builds the coordinator and notifier.
// Any configuration error is fatal.
func preRun(cmd *cobra.Command, _ []string) {
	flagsSet := cmd.PersistentFlags()

	if err := flags.ProcessFlagAliases(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Invalid flag combination")
	}

	if err := flags.SetupLogging(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	flags.GetSecretsFromFiles(cmd)

	params, err := flags.ReadRunParams(cmd)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid run parameters")
	}

	scheduleSpec, _ = flagsSet.GetString("schedule")
	configFile, _ := flagsSet.GetString("config-file")

	entries, err = config.Load(configFile)
	if err != nil {
		logrus.WithError(err).WithField("file", configFile).Fatal("The config file seems not valid")
	}

	gitHubAPIURL, _ := flagsSet.GetString("github-api-url")
	dockerHubAPIURL, _ := flagsSet.GetString("dockerhub-api-url")

	registryOptions := registry.LoadOptions(gitHubAPIURL, dockerHubAPIURL, params.Timeout)
	coordinator = actions.NewCoordinator(actions.RegistryClients(registryOptions), params)

	notifier, err = notifications.NewNotifier(cmd)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create notifier")
	}
}

// run selects the entries named on the command line and executes the configured mode.
// It exits with status 1 when a run-once execution has failed entries or startup fails.
func run(c *cobra.Command, names []string) {
	selected, unknown := config.Select(entries, names)
	if len(unknown) > 0 {
		logrus.WithField("names", unknown).Warn("Ignoring unknown entry names")
	}

	flagsSet := c.PersistentFlags()

	runOnce, _ := flagsSet.GetBool("run-once")
	updateOnStart, _ := flagsSet.GetBool("update-on-start")
	enableUpdateAPI, _ := flagsSet.GetBool("http-api-update")
	enableMetricsAPI, _ := flagsSet.GetBool("http-api-metrics")
	unblockHTTPAPI, _ := flagsSet.GetBool("http-api-periodic-polls")
	apiToken, _ := flagsSet.GetString("http-api-token")
	apiHost, _ := flagsSet.GetString("http-api-host")
	apiPort, _ := flagsSet.GetString("http-api-port")

	if apiHost != "" && net.ParseIP(apiHost) == nil {
		logrus.Fatalf(
			"invalid http-api-host '%s': must be empty or a valid IP address (IPv4 or IPv6)",
			apiHost,
		)
	}

	if apiPort == "" {
		apiPort = "8080"
	}

	cfg := RunConfig{
		Command:          c,
		Entries:          selected,
		Coordinator:      coordinator,
		Notifier:         notifier,
		Schedule:         scheduleSpec,
		RunOnce:          runOnce,
		UpdateOnStart:    updateOnStart,
		EnableUpdateAPI:  enableUpdateAPI,
		EnableMetricsAPI: enableMetricsAPI,
		UnblockHTTPAPI:   unblockHTTPAPI,
		APIToken:         apiToken,
		APIHost:          apiHost,
		APIPort:          apiPort,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	exitCode := runMain(ctx, cfg)

	stop()

	if exitCode != 0 {
		logrus.WithField("exit_code", exitCode).Debug("Exiting with non-zero status")
		os.Exit(exitCode)
	}
}

// runMain executes run-once, HTTP API, or scheduled mode and returns the process exit code.
//
// Without a schedule, run-once, or the update API, a single run is performed.
// The metrics API alone does not keep the process serving.
//
// Parameters:
//   - ctx: Process lifetime; cancellation stops the API and scheduler and cancels runs in flight.
//   - cfg: The RunConfig struct containing all necessary configuration parameters for execution.
//
// Returns:
//   - int: 0 on success, 1 if a single run had failed entries or startup failed.
func runMain(ctx context.Context, cfg RunConfig) int {
	logrus.WithField("entries", len(cfg.Entries)).Debug("Processing configured entries")

	runEntries := func(ctx context.Context, selected []types.RepositoryEntry) *metrics.Metric {
		return actions.RunWithNotifications(ctx, cfg.Coordinator, selected, cfg.Notifier)
	}

	singleRun := cfg.RunOnce || (cfg.Schedule == "" && !cfg.EnableUpdateAPI)

	if cfg.RunOnce && cfg.UpdateOnStart {
		logrus.Warn("--update-on-start is ignored when --run-once is specified; deferring to --run-once behavior")
	}

	if singleRun {
		if cfg.EnableMetricsAPI {
			logrus.Warn(
				"--http-api-metrics is ignored for a single run; add --schedule or --http-api-update to serve metrics",
			)
		}

		logging.WriteStartupMessage(cfg.Command, time.Time{}, len(cfg.Entries), cfg.Notifier, meta.Version)

		metric := runEntries(ctx, cfg.Entries)
		metrics.Default().RegisterScan(metric)

		if cfg.Notifier != nil {
			cfg.Notifier.Close()
		}

		if metric.Failed > 0 {
			logrus.WithField("failed", metric.Failed).Error("Some entries failed to update")

			return 1
		}

		return 0
	}

	runLock := scheduling.NewLock()
	blockOnAPI := cfg.EnableUpdateAPI && !cfg.UnblockHTTPAPI

	if cfg.EnableUpdateAPI || cfg.EnableMetricsAPI {
		if blockOnAPI {
			logging.WriteStartupMessage(cfg.Command, time.Time{}, len(cfg.Entries), cfg.Notifier, meta.Version)
		}

		err := internalAPI.SetupAndStartAPI(ctx, internalAPI.Options{
			Host:          cfg.APIHost,
			Port:          cfg.APIPort,
			Token:         cfg.APIToken,
			EnableUpdate:  cfg.EnableUpdateAPI,
			EnableMetrics: cfg.EnableMetricsAPI,
			Blocking:      blockOnAPI,
		}, runLock, func(names []string) *metrics.Metric {
			selected, unknown := config.Select(cfg.Entries, names)
			if len(unknown) > 0 {
				logrus.WithField("names", unknown).Warn("Ignoring unknown entry names in update request")
			}

			return runEntries(ctx, selected)
		})
		if err != nil {
			return 1
		}

		if blockOnAPI {
			if cfg.Notifier != nil {
				cfg.Notifier.Close()
			}

			return 0
		}
	}

	err := scheduling.RunUpdatesOnSchedule(
		ctx,
		runLock,
		cfg.Schedule,
		func(ctx context.Context) *metrics.Metric { return runEntries(ctx, cfg.Entries) },
		func(nextRun time.Time) {
			logging.WriteStartupMessage(cfg.Command, nextRun, len(cfg.Entries), cfg.Notifier, meta.Version)
		},
		cfg.Notifier,
		cfg.UpdateOnStart,
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to start scheduler")

		return 1
	}

	return 0
}
