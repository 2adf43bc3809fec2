// Package observability holds the Prometheus instruments of the registry.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gns"

// Outcome labels for command metrics.
const (
	OutcomeAccepted = "accepted"
	OutcomeFailed   = "failed"
)

// Metrics records registry command and journal activity. A nil *Metrics
// discards every observation.
type Metrics struct {
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	journalHead     prometheus.Gauge
	records         *prometheus.GaugeVec
	watchers        prometheus.Gauge
	watchersDropped prometheus.Counter
}

// NewMetrics registers the registry instruments with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "commands_total",
			Help:      "Registry commands by type and outcome. Rejections carry their error code as outcome.",
		}, []string{"command", "outcome"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "command_duration_seconds",
			Help:      "Time from command dequeue to reply, including persistence.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"command"}),
		journalHead: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "head_seq",
			Help:      "Sequence number of the latest journal event.",
		}),
		records: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "records",
			Help:      "Live registry records by kind.",
		}, []string{"kind"}),
		watchers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "watchers",
			Help:      "Active event watchers.",
		}),
		watchersDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "watchers_dropped_total",
			Help:      "Watchers disconnected for falling behind.",
		}),
	}
}

// ObserveCommand records one processed command.
func (m *Metrics) ObserveCommand(command, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// SetJournalHead records the latest journal sequence.
func (m *Metrics) SetJournalHead(seq uint64) {
	if m == nil {
		return
	}
	m.journalHead.Set(float64(seq))
}

// SetRecordCounts records the size of each registry mapping.
func (m *Metrics) SetRecordCounts(domains, subdomains, pointers int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues("domains").Set(float64(domains))
	m.records.WithLabelValues("subdomains").Set(float64(subdomains))
	m.records.WithLabelValues("pointers").Set(float64(pointers))
}

// WatcherAdded increments the active watcher gauge.
func (m *Metrics) WatcherAdded() {
	if m == nil {
		return
	}
	m.watchers.Inc()
}

// WatcherRemoved decrements the active watcher gauge; dropped marks a
// disconnect caused by a full buffer.
func (m *Metrics) WatcherRemoved(dropped bool) {
	if m == nil {
		return
	}
	m.watchers.Dec()
	if dropped {
		m.watchersDropped.Inc()
	}
}
