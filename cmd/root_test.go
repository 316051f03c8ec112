package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirio/uptainer/internal/actions"
	"github.com/mirio/uptainer/internal/flags"
	"github.com/mirio/uptainer/pkg/types"
)

var errNoRegistry = fmt.Errorf("%w: registry unavailable", types.ErrUnsupportedProvider)

type countingNotifier struct {
	sent   atomic.Int32
	closed atomic.Int32
	last   atomic.Pointer[types.Report]
}

func (n *countingNotifier) SendNotification(report types.Report) {
	n.sent.Add(1)
	n.last.Store(&report)
}

func (*countingNotifier) GetNames() []string { return []string{"logger"} }
func (*countingNotifier) GetURLs() []string  { return []string{"logger://"} }
func (n *countingNotifier) Close()           { n.closed.Add(1) }

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	flags.RegisterSystemFlags(cmd)
	flags.RegisterNotificationFlags(cmd)

	return cmd
}

func testEntry(name string) types.RepositoryEntry {
	return types.RepositoryEntry{
		Name:              name,
		ImageRepository:   "ghcr.io/mirio/verbacap",
		GitSSHURL:         "git@github.com:Mirio/verbacap.git",
		GitSSHPrivateKey:  "~/.ssh/id_rsa",
		GitValuesFilename: "helm/values.yaml",
		ValuesKey:         "image.tag",
		VersionMatch:      `^v\d+\.\d+\.\d+$`,
	}
}

// unavailableRegistry makes every entry fail before any git operation.
func unavailableRegistry() *actions.Coordinator {
	return actions.NewCoordinator(func(types.Provider) (types.RegistryClient, error) {
		return nil, errNoRegistry
	}, types.RunParams{})
}

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.WarnLevel)

	m.Run()
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "uptainer", cmd.Name())
	assert.NotNil(t, cmd.Run)
	assert.NotNil(t, cmd.PreRun)
	require.NoError(t, cmd.Args(cmd, []string{"Foo", "Bar"}))
}

func TestRootCommandFlags(t *testing.T) {
	for _, name := range []string{
		"config-file", "run-once", "schedule", "concurrency", "timeout", "sort", "dry-run",
		"http-api-update", "http-api-metrics", "http-api-token", "notification-url",
	} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %q should be registered", name)
	}

	shorthand := rootCmd.PersistentFlags().ShorthandLookup("c")
	require.NotNil(t, shorthand)
	assert.Equal(t, "config-file", shorthand.Name)
}

func TestRunMain_RunOnceWithFailures(t *testing.T) {
	notifier := &countingNotifier{}

	code := runMain(context.Background(), RunConfig{
		Command:     testCommand(),
		Entries:     []types.RepositoryEntry{testEntry("Foo"), testEntry("Bar")},
		Coordinator: unavailableRegistry(),
		Notifier:    notifier,
		RunOnce:     true,
	})

	assert.Equal(t, 1, code)
	assert.Equal(t, int32(1), notifier.sent.Load())
	assert.Equal(t, int32(1), notifier.closed.Load())

	report := *notifier.last.Load()
	assert.Len(t, report.Failed(), 2)
	assert.Equal(t, "UnsupportedProvider", report.Failed()[0].Kind())
}

func TestRunMain_RunOnceWithoutEntries(t *testing.T) {
	code := runMain(context.Background(), RunConfig{
		Command:     testCommand(),
		Coordinator: unavailableRegistry(),
		RunOnce:     true,
	})

	assert.Equal(t, 0, code)
}

func TestRunMain_SingleRunWithoutSchedule(t *testing.T) {
	notifier := &countingNotifier{}

	code := runMain(context.Background(), RunConfig{
		Command:     testCommand(),
		Entries:     []types.RepositoryEntry{{Name: "Incomplete"}},
		Coordinator: unavailableRegistry(),
		Notifier:    notifier,
	})

	assert.Equal(t, 1, code)
	assert.Equal(t, "InvalidConfiguration", (*notifier.last.Load()).Failed()[0].Kind())
}

func TestRunMain_MetricsOnlyWarnsAndRunsOnce(t *testing.T) {
	hook := test.NewGlobal()
	t.Cleanup(func() { logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks)) })

	notifier := &countingNotifier{}

	code := runMain(context.Background(), RunConfig{
		Command:          testCommand(),
		Entries:          []types.RepositoryEntry{testEntry("Foo")},
		Coordinator:      unavailableRegistry(),
		Notifier:         notifier,
		EnableMetricsAPI: true,
		APIHost:          "127.0.0.1",
		APIPort:          "0",
	})

	assert.Equal(t, 1, code)
	assert.Equal(t, int32(1), notifier.sent.Load())

	var warned bool

	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "--http-api-metrics is ignored") {
			warned = true
		}
	}

	assert.True(t, warned, "metrics-only mode should be reported")
}

func TestRunMain_InvalidSchedule(t *testing.T) {
	code := runMain(context.Background(), RunConfig{
		Command:     testCommand(),
		Coordinator: unavailableRegistry(),
		Schedule:    "every now and then",
	})

	assert.Equal(t, 1, code)
}

func TestRunMain_ScheduleStopsOnCancel(t *testing.T) {
	notifier := &countingNotifier{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	code := runMain(ctx, RunConfig{
		Command:     testCommand(),
		Entries:     []types.RepositoryEntry{testEntry("Foo")},
		Coordinator: unavailableRegistry(),
		Notifier:    notifier,
		Schedule:    "@hourly",
	})

	assert.Equal(t, 0, code)
	assert.Zero(t, notifier.sent.Load(), "no run before the first tick")
	assert.Equal(t, int32(1), notifier.closed.Load())
}

func TestRunMain_UpdateAPIRequiresToken(t *testing.T) {
	code := runMain(context.Background(), RunConfig{
		Command:         testCommand(),
		Coordinator:     unavailableRegistry(),
		EnableUpdateAPI: true,
		APIHost:         "127.0.0.1",
		APIPort:         "0",
	})

	assert.Equal(t, 1, code)
}

func TestRunMain_BlockingAPIStopsOnCancel(t *testing.T) {
	notifier := &countingNotifier{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	code := runMain(ctx, RunConfig{
		Command:         testCommand(),
		Coordinator:     unavailableRegistry(),
		Notifier:        notifier,
		EnableUpdateAPI: true,
		APIToken:        "secret",
		APIHost:         "127.0.0.1",
		APIPort:         "0",
	})

	assert.Equal(t, 0, code)
	assert.Zero(t, notifier.sent.Load())
	assert.Equal(t, int32(1), notifier.closed.Load())
}
