package types

// Notifier defines the common interface for notification services.
type Notifier interface {
	SendNotification(report Report) // Send a run summary.
	GetNames() []string             // Service names.
	GetURLs() []string              // Service URLs.
	Close()                         // Stop and flush notifications.
}
