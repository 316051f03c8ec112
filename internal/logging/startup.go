package logging

import (
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mirio/uptainer/internal/util"
	"github.com/mirio/uptainer/pkg/types"
)

// defaultAPIPort is shown when no HTTP API port is configured.
const defaultAPIPort = "8080"

// WriteStartupMessage logs startup information based on configuration flags.
//
// It reports uptainer's version, the number of configured entries, notification setup,
// scheduling information, and HTTP API status.
//
// Parameters:
//   - c: The cobra.Command instance, providing access to flags like --no-startup-message.
//   - sched: The time.Time of the first scheduled run, or zero if no schedule is set.
//   - entries: The number of configured repository entries.
//   - notifier: The notifier, nil when notifications are disabled.
//   - version: The uptainer version string.
func WriteStartupMessage(
	c *cobra.Command,
	sched time.Time,
	entries int,
	notifier types.Notifier,
	version string,
) {
	flags := c.PersistentFlags()

	if noStartupMessage, _ := flags.GetBool("no-startup-message"); noStartupMessage {
		return
	}

	log := logrus.NewEntry(logrus.StandardLogger())

	log.WithField("entries", entries).Info("uptainer " + version)

	var notifierNames []string
	if notifier != nil {
		notifierNames = notifier.GetNames()
	}

	LogNotifierInfo(log, notifierNames)
	LogScheduleInfo(log, c, sched)

	updateAPI, _ := flags.GetBool("http-api-update")
	metricsAPI, _ := flags.GetBool("http-api-metrics")

	if updateAPI || metricsAPI {
		host, _ := flags.GetString("http-api-host")

		port, _ := flags.GetString("http-api-port")
		if port == "" {
			port = defaultAPIPort
		}

		log.WithFields(logrus.Fields{
			"update":  updateAPI,
			"metrics": metricsAPI,
		}).Info("The HTTP API is enabled at " + net.JoinHostPort(host, port))
	}

	if dryRun, _ := flags.GetBool("dry-run"); dryRun {
		log.Warn("Dry run enabled: manifest changes will not be committed or pushed")
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		log.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogNotifierInfo logs the configured notification services, or that there are none.
//
// Parameters:
//   - log: The logrus.Entry used to write the notification information.
//   - notifierNames: Names of the configured services (e.g., "slack", "discord").
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogScheduleInfo logs information about the scheduling or run mode configuration.
//
// Parameters:
//   - log: The logrus.Entry used to write the schedule information.
//   - c: The cobra.Command instance, providing access to flags like --run-once.
//   - sched: The time.Time of the first scheduled run, or zero if no schedule is set.
func LogScheduleInfo(log *logrus.Entry, c *cobra.Command, sched time.Time) {
	flags := c.PersistentFlags()

	runOnce, _ := flags.GetBool("run-once")
	updateOnStart, _ := flags.GetBool("update-on-start")
	updateAPI, _ := flags.GetBool("http-api-update")

	switch {
	case runOnce:
		log.Info("Running a one time update.")
	case !sched.IsZero():
		if updateOnStart {
			log.Info("Running update on start, then scheduling periodic updates.")
		}

		log.Info("Scheduling next run: " + sched.Format("2006-01-02 15:04:05 -0700 MST"))
		log.Info("Note that the next check will be performed in " + util.FormatDuration(time.Until(sched)))
	case updateAPI:
		log.Info("Updates via HTTP API enabled. Periodic updates are not enabled.")
	case updateOnStart:
		log.Info("Running update on start. Periodic updates are not enabled.")
	default:
		log.Info("No schedule configured. Periodic updates are not enabled.")
	}
}
