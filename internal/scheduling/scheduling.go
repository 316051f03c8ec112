// Package scheduling runs uptainer update cycles on a cron schedule.
// It serializes runs through a lock channel, records skipped runs in the metrics,
// and shuts down gracefully on interrupt signals or context cancellation.
package scheduling

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/pkg/metrics"
	"github.com/mirio/uptainer/pkg/types"
)

// updateWaitTimeout bounds how long shutdown waits for a running update.
const updateWaitTimeout = 60 * time.Second

// RunFunc performs one update run over every configured entry.
type RunFunc func(ctx context.Context) *metrics.Metric

// WaitForRunningUpdate waits for any currently running update to complete before proceeding with shutdown.
// It checks the lock channel status and blocks with a timeout if an update is in progress.
//
// Parameters:
//   - ctx: The context for cancellation, allowing early shutdown on context timeout.
//   - lock: The channel used to synchronize updates, ensuring only one runs at a time.
func WaitForRunningUpdate(ctx context.Context, lock chan bool) {
	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) == 0 {
		select {
		case v := <-lock:
			logrus.Debug("Lock acquired, update finished.")

			lock <- v
		case <-time.After(updateWaitTimeout):
			logrus.Warn("Timeout waiting for running update to finish, proceeding with shutdown.")
		case <-ctx.Done():
			logrus.Warn("Context cancelled while waiting for running update.")
		}
	} else {
		logrus.Debug("No update running, lock available.")
	}

	logrus.Debug("Lock check completed.")
}

// NewLock returns a run lock in the released state.
func NewLock() chan bool {
	lock := make(chan bool, 1)
	lock <- true

	return lock
}

// RunUpdatesOnSchedule schedules and executes periodic update runs according to the cron specification.
//
// Runs never overlap: a scheduled tick that finds the lock taken is skipped and recorded as a
// skipped run. An interrupt signal (SIGINT, SIGTERM) or cancellation of ctx stops the scheduler,
// cancels the context handed to the run in flight, and waits for it to finish.
//
// Parameters:
//   - ctx: The context controlling the scheduler's lifecycle.
//   - lock: A channel ensuring only one run happens at a time, or nil to create a new one.
//   - scheduleSpec: The cron expression, empty to only serve on-start and API-triggered runs.
//   - runUpdates: Function performing one run and returning its metric.
//   - writeStartupMessage: Called once with the time of the first scheduled run, zero if none.
//   - notifier: Closed on shutdown when non-nil.
//   - updateOnStart: Run once immediately before starting the scheduler.
//
// Returns:
//   - error: An error if the cron spec is invalid, nil on graceful shutdown.
func RunUpdatesOnSchedule(
	ctx context.Context,
	lock chan bool,
	scheduleSpec string,
	runUpdates RunFunc,
	writeStartupMessage func(nextRun time.Time),
	notifier types.Notifier,
	updateOnStart bool,
) error {
	if lock == nil {
		lock = NewLock()
	}

	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	scheduler := cron.New()

	updateFunc := func() {
		select {
		case v := <-lock:
			defer func() { lock <- v }()

			metric := runUpdates(runCtx)
			metrics.Default().RegisterScan(metric)
			logrus.Debug("Update run completed")
		default:
			metrics.Default().RegisterScan(nil)
			logrus.Debug("Skipped another update already running.")
		}

		if nextRuns := scheduler.Entries(); len(nextRuns) > 0 {
			logrus.Debug("Scheduled next run: " + nextRuns[0].Next.String())
		}
	}

	if scheduleSpec != "" {
		if err := scheduler.AddFunc(scheduleSpec, updateFunc); err != nil {
			return fmt.Errorf("failed to schedule updates: %w", err)
		}
	}

	var nextRun time.Time
	if entries := scheduler.Entries(); len(entries) > 0 {
		nextRun = entries[0].Schedule.Next(time.Now())
	}

	if writeStartupMessage != nil {
		writeStartupMessage(nextRun)
	}

	if updateOnStart {
		updateFunc()
	}

	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler...")
	case sig := <-interrupt:
		logrus.WithField("signal", sig.String()).Debug("Received interrupt signal, stopping scheduler...")
	}

	scheduler.Stop()
	cancelRuns()

	logrus.Debug("Waiting for running update to be finished...")

	waitCtx, cancelWait := context.WithTimeout(context.WithoutCancel(ctx), updateWaitTimeout)
	defer cancelWait()

	WaitForRunningUpdate(waitCtx, lock)

	if notifier != nil {
		notifier.Close()
	}

	logrus.Debug("Scheduler stopped and update completed.")

	return nil
}
