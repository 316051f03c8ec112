package notifications

import (
	"bytes"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/mirio/uptainer/pkg/notifications/templates"
	"github.com/mirio/uptainer/pkg/types"
)

// LocalLog is a logrus entry for notifier internals.
var LocalLog = logrus.WithField("notify", "no")

// defaultTemplateName is used when no template is configured.
const defaultTemplateName = "default"

// router defines the interface for sending Shoutrrr notifications.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// shoutrrrTypeNotifier implements types.Notifier on top of a Shoutrrr router.
// Messages are queued and sent by a single goroutine, honoring the configured delay.
type shoutrrrTypeNotifier struct {
	Urls      []string
	Router    router
	template  *template.Template
	messages  chan string
	done      chan bool
	params    *shoutrrrTypes.Params
	data      StaticData
	delay     time.Duration
	closeOnce sync.Once
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// sanitizeURLForLogging strips credentials, query and fragment so service URLs can be logged.
func sanitizeURLForLogging(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return GetScheme(rawURL) + "://[redacted]"
	}

	sanitized := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: parsed.Path}
	if parsed.User != nil {
		sanitized.User = url.User("[redacted]")
	}

	return sanitized.String()
}

// GetNames returns a list of notification service names derived from URLs.
func (n *shoutrrrTypeNotifier) GetNames() []string {
	names := make([]string, len(n.Urls))
	for i, u := range n.Urls {
		names[i] = GetScheme(u)
	}

	return names
}

// GetURLs returns the list of URLs for configured notification services.
func (n *shoutrrrTypeNotifier) GetURLs() []string {
	return n.Urls
}

// createNotifier initializes a Shoutrrr notifier for the given URLs and starts its sending goroutine.
//
// A template that fails to parse is reported and replaced by the default template.
// With stdout set, Shoutrrr's own logs go to standard output, otherwise to logrus at trace level.
//
// Returns:
//   - *shoutrrrTypeNotifier: Running notifier.
//   - error: Non-nil if a service URL is invalid.
func createNotifier(
	urls []string,
	tplString string,
	data StaticData,
	stdout bool,
	delay time.Duration,
) (*shoutrrrTypeNotifier, error) {
	tpl, err := getShoutrrrTemplate(tplString)
	if err != nil {
		LocalLog.WithError(err).Error("Could not use configured notification template, using default template")

		tpl, _ = getShoutrrrTemplate("")
	}

	var logger shoutrrrTypes.StdLogger
	if stdout {
		logger = log.New(os.Stdout, ``, 0)
	} else {
		logger = log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)
	}

	router, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Shoutrrr notifications: %w", err)
	}

	notifier := newShoutrrrNotifier(urls, router, tpl, data, delay)

	go sendNotifications(notifier)

	return notifier, nil
}

func newShoutrrrNotifier(
	urls []string,
	router router,
	tpl *template.Template,
	data StaticData,
	delay time.Duration,
) *shoutrrrTypeNotifier {
	params := &shoutrrrTypes.Params{}
	if data.Title != "" {
		params.SetTitle(data.Title)
	}

	return &shoutrrrTypeNotifier{
		Urls:     urls,
		Router:   router,
		template: tpl,
		messages: make(chan string, 1),
		done:     make(chan bool),
		params:   params,
		data:     data,
		delay:    delay,
	}
}

// sendNotifications sends queued messages until the queue is closed.
func sendNotifications(notifier *shoutrrrTypeNotifier) {
	for msg := range notifier.messages {
		time.Sleep(notifier.delay)

		errs := notifier.Router.Send(msg, notifier.params)
		failed := 0

		for i, err := range errs {
			if err == nil {
				continue
			}

			failed++

			fields := logrus.Fields{"index": i}
			if i < len(notifier.Urls) {
				fields["service"] = GetScheme(notifier.Urls[i])
				fields["url"] = sanitizeURLForLogging(notifier.Urls[i])
			}

			LocalLog.WithFields(fields).WithError(err).Error("Failed to send shoutrrr notification")
		}

		LocalLog.WithFields(logrus.Fields{
			"services": len(notifier.Urls),
			"failed":   failed,
		}).Debug("Sent notification")
	}

	notifier.done <- true
}

// buildMessage renders data with the configured template.
func (n *shoutrrrTypeNotifier) buildMessage(data Data) (string, error) {
	var body bytes.Buffer

	if err := n.template.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute notification template: %w", err)
	}

	return body.String(), nil
}

// SendNotification renders the run report and queues it for sending.
// An empty message is not sent.
func (n *shoutrrrTypeNotifier) SendNotification(report types.Report) {
	msg, err := n.buildMessage(Data{StaticData: n.data, Report: report})
	if err != nil {
		LocalLog.WithError(err).Error("Notification template error")

		return
	}

	if strings.TrimSpace(msg) == "" {
		LocalLog.Debug("Skipping notification due to empty message")

		return
	}

	n.messages <- msg
}

// Close prevents further messages from being queued and waits until all queued messages are sent.
func (n *shoutrrrTypeNotifier) Close() {
	n.closeOnce.Do(func() {
		close(n.messages)

		LocalLog.Debug("Waiting for the notification goroutine to finish")

		<-n.done
	})
}

// getShoutrrrTemplate returns the named built-in template, parses tplString as a template,
// or falls back to the default template when tplString is empty.
func getShoutrrrTemplate(tplString string) (*template.Template, error) {
	tplBase := template.New("").Funcs(templates.Funcs)

	if tplString == "" {
		tplString = defaultTemplateName
	}

	if builtin, found := commonTemplates[tplString]; found {
		logrus.WithField("template", tplString).Debug("Using common template")

		tplString = builtin
	}

	tpl, err := tplBase.Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification template string: %w", err)
	}

	return tpl, nil
}
