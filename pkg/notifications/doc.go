// Package notifications sends uptainer run summaries through Shoutrrr services.
// It renders a run report with a built-in or user-supplied template and delivers
// the message to every configured service URL.
//
// Key components:
//   - NewNotifier: Configures a notifier from command flags (notifier.go).
//   - Shoutrrr Integration: Handles templating, queuing and sending (shoutrrr.go).
//   - JSON Marshaling: Formats notification data for the json.v1 template (json.go).
//
// Usage example:
//
//	notifier := notifications.NewNotifier(cmd)
//	notifier.SendNotification(report)
//	notifier.Close()
//
// Built-in templates are "default", "porcelain.v1.summary" and "json.v1".
package notifications
