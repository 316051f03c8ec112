package actions

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mirio/uptainer/internal/logging"
	"github.com/mirio/uptainer/pkg/metrics"
	"github.com/mirio/uptainer/pkg/types"
)

// RunWithNotifications runs every entry, sends the run summary and returns a metric describing it.
//
// Parameters:
//   - ctx: Run context.
//   - coordinator: Coordinator processing the entries.
//   - entries: Repository entries to process.
//   - notifier: Notification sink for the summary, nil to skip.
//
// Returns:
//   - *metrics.Metric: Counts of scanned, updated, fresh, stale and failed entries.
func RunWithNotifications(
	ctx context.Context,
	coordinator *Coordinator,
	entries []types.RepositoryEntry,
	notifier types.Notifier,
) *metrics.Metric {
	report := coordinator.Run(ctx, entries)

	updatedNames := make([]string, 0, len(report.Updated()))
	for _, entry := range report.Updated() {
		updatedNames = append(updatedNames, entry.Name())
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"scanned":       len(report.Scanned()),
		"updated":       len(report.Updated()),
		"failed":        len(report.Failed()),
		"updated_names": updatedNames,
	}).Debug("Report before notification")

	if notifier != nil {
		notifier.SendNotification(report)
	} else {
		logging.FromContext(ctx).Debug("No notifier configured, skipping summary notification")
	}

	return metrics.NewMetric(report)
}
