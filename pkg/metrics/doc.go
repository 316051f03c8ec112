// Package metrics provides tracking and exposure of uptainer run metrics.
// It integrates with Prometheus to monitor entry outcomes.
//
// Key components:
//   - Metrics: Handles metric queuing and updates.
//   - NewMetric: Creates metrics from run reports.
//
// Usage example:
//
//	m := metrics.Default()
//	m.RegisterScan(metrics.NewMetric(report))
//
// The package uses Prometheus for metrics exposure and integrates with types.Report.
package metrics
