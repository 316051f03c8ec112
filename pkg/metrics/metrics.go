package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mirio/uptainer/pkg/types"
)

// channelBufferSize sets the metrics channel capacity.
const channelBufferSize = 10

var metrics *Metrics

// Metric holds data points from one run.
type Metric struct {
	Scanned int // Number of entries processed.
	Updated int // Number of entries whose manifest was pushed.
	Failed  int // Number of entries that failed.
	Fresh   int // Number of entries already up to date.
	Stale   int // Number of entries with an unpushed change.
}

// Metrics handles processing and exposing run metrics.
type Metrics struct {
	channel      chan *Metric       // Channel for queuing metrics.
	scanned      prometheus.Gauge   // Gauge for scanned entries.
	updated      prometheus.Gauge   // Gauge for updated entries.
	failed       prometheus.Gauge   // Gauge for failed entries.
	fresh        prometheus.Gauge   // Gauge for fresh entries.
	stale        prometheus.Gauge   // Gauge for stale entries.
	updatedTotal prometheus.Counter // Counter for pushed manifest updates.
	failedTotal  prometheus.Counter // Counter for failed entries.
	total        prometheus.Counter // Counter for total runs.
	skipped      prometheus.Counter // Counter for skipped runs.
	dropped      prometheus.Counter // Counter for dropped metrics.
	stopCh       chan struct{}      // Channel for shutdown signaling.
	shutdownOnce sync.Once          // Ensures shutdown is called only once.
	//nolint:containedctx
	ctx    context.Context    // Context for cancellation.
	cancel context.CancelFunc // Cancel function for the context.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler with Prometheus metrics and goroutine, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	ctx, cancel := context.WithCancel(context.Background())

	metrics := &Metrics{
		scanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptainer_entries_scanned",
			Help: "Number of repository entries processed during the last run",
		}),
		updated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptainer_entries_updated",
			Help: "Number of repository entries whose manifest was pushed during the last run",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptainer_entries_failed",
			Help: "Number of repository entries that failed during the last run",
		}),
		fresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptainer_entries_fresh",
			Help: "Number of repository entries already up to date during the last run",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptainer_entries_stale",
			Help: "Number of repository entries with an unpushed change during the last run",
		}),
		updatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptainer_entries_updated_total",
			Help: "Total number of manifest updates pushed since uptainer started",
		}),
		failedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptainer_entries_failed_total",
			Help: "Total number of failed entries since uptainer started",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptainer_runs_total",
			Help: "Number of runs since uptainer started",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptainer_runs_skipped_total",
			Help: "Number of skipped runs since uptainer started",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptainer_metrics_dropped_total",
			Help: "Number of metrics dropped due to full channel",
		}),
		channel: make(chan *Metric, channelBufferSize),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, collector := range metrics.collectors() {
		if err := registry.Register(collector); err != nil {
			cancel()

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	go metrics.HandleUpdate()

	return metrics, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.scanned,
		m.updated,
		m.failed,
		m.fresh,
		m.stale,
		m.updatedTotal,
		m.failedTotal,
		m.total,
		m.skipped,
		m.dropped,
	}
}

// NewMetric creates a Metric from a run report.
//
// Parameters:
//   - report: Run report.
//
// Returns:
//   - *Metric: New metric instance.
func NewMetric(report types.Report) *Metric {
	if report == nil {
		panic("NewMetric: report is nil")
	}

	return &Metric{
		Scanned: len(report.Scanned()),
		Updated: len(report.Updated()),
		Failed:  len(report.Failed()),
		Fresh:   len(report.Fresh()),
		Stale:   len(report.Stale()),
	}
}

// QueueIsEmpty checks if the metrics channel is empty.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// Register attempts to enqueue a metric for processing.
// If the channel is full, the metric is dropped and the dropped counter is incremented.
// A nil metric records a skipped run.
func (m *Metrics) Register(metric *Metric) {
	select {
	case m.channel <- metric:
	default:
		m.dropped.Inc()
	}
}

// Default initializes or returns the singleton Metrics handler.
// It panics on registration failure, such as duplicate registration against the default registry.
func Default() *Metrics {
	if metrics != nil {
		return metrics
	}

	var err error

	metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	return metrics
}

// RegisterScan enqueues a run metric.
func (m *Metrics) RegisterScan(metric *Metric) {
	m.Register(metric)
}

// Shutdown stops the metrics processing goroutine. It is safe to call more than once.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes metrics from the channel until shutdown.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case change, ok := <-m.channel:
			if !ok {
				return
			}

			m.apply(change)
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// apply records one run. The run counter is incremented last so readers observing it see the gauges set.
func (m *Metrics) apply(change *Metric) {
	defer m.total.Inc()

	if change == nil {
		// Run was skipped because another one was still in progress.
		m.skipped.Inc()
		m.scanned.Set(0)
		m.updated.Set(0)
		m.failed.Set(0)
		m.fresh.Set(0)
		m.stale.Set(0)

		return
	}

	m.scanned.Set(float64(change.Scanned))
	m.updated.Set(float64(change.Updated))
	m.failed.Set(float64(change.Failed))
	m.fresh.Set(float64(change.Fresh))
	m.stale.Set(float64(change.Stale))
	m.updatedTotal.Add(float64(change.Updated))
	m.failedTotal.Add(float64(change.Failed))
}
