package notifications

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mirio/uptainer/pkg/types"
)

// NewNotifier creates a Notifier from the command's notification flags.
//
// Returns:
//   - types.Notifier: Running notifier, nil when no notification URL is configured.
//   - error: Non-nil if a service URL is invalid.
func NewNotifier(c *cobra.Command) (types.Notifier, error) {
	flag := c.PersistentFlags()

	urls, _ := flag.GetStringArray("notification-url")
	tplString, _ := flag.GetString("notification-template")
	stdout, _ := flag.GetBool("notification-log-stdout")

	if len(urls) == 0 {
		logrus.Debug("No notification URLs configured")

		return nil, nil //nolint:nilnil // no notifier is a valid configuration
	}

	data := GetTemplateData(c)
	delay := GetDelay(c)

	logrus.WithFields(logrus.Fields{
		"services": len(urls),
		"template": tplString,
		"stdout":   stdout,
		"delay":    delay,
		"hostname": data.Host,
		"title":    data.Title,
	}).Debug("Creating notifier")

	notifier, err := createNotifier(urls, tplString, data, stdout, delay)
	if err != nil {
		return nil, err
	}

	return notifier, nil
}

// GetDelay returns the delay applied before each notification is sent.
func GetDelay(c *cobra.Command) time.Duration {
	delay, _ := c.PersistentFlags().GetInt("notifications-delay")
	if delay > 0 {
		return time.Duration(delay) * time.Second
	}

	return 0
}

// GetTitle formats the title based on the passed hostname and tag.
func GetTitle(hostname string, tag string) string {
	titleBuilder := strings.Builder{}
	if tag != "" {
		titleBuilder.WriteRune('[')
		titleBuilder.WriteString(tag)
		titleBuilder.WriteRune(']')
		titleBuilder.WriteRune(' ')
	}

	titleBuilder.WriteString("uptainer updates")

	if hostname != "" {
		titleBuilder.WriteString(" on ")
		titleBuilder.WriteString(hostname)
	}

	return titleBuilder.String()
}

// GetTemplateData populates the static notification data from flags and the environment.
func GetTemplateData(c *cobra.Command) StaticData {
	flag := c.PersistentFlags()

	hostname, _ := flag.GetString("notifications-hostname")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	title := ""

	if skip, _ := flag.GetBool("notification-skip-title"); !skip {
		tag, _ := flag.GetString("notification-title-tag")
		title = GetTitle(hostname, tag)
	}

	return StaticData{
		Host:  hostname,
		Title: title,
	}
}
