// Package metrics exports gateway counters to Prometheus and raw readings to
// InfluxDB.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "enclosure"

// Prometheus implements service.Recorder on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	telemetryReceived prometheus.Counter
	telemetryDropped  prometheus.Counter
	entriesAppended   *prometheus.CounterVec
	suppressed        *prometheus.CounterVec
	commands          *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		telemetryReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "lines_total",
			Help:      "Telemetry lines received from the controller",
		}),
		telemetryDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "dropped_total",
			Help:      "Telemetry lines dropped as unparseable",
		}),
		// Labels: kind (flame, rain, gas, door, canopy, executed, other)
		entriesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "entries_total",
			Help:      "Entries appended to the audit log",
		}, []string{"kind"}),
		// Labels: reason (duplicate, debounce)
		suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "suppressed_total",
			Help:      "Log candidates suppressed before append",
		}, []string{"reason"}),
		// Labels: command, outcome (sent, invalid, transport_error)
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "dispatched_total",
			Help:      "Operator commands by outcome",
		}, []string{"command", "outcome"}),
	}
}

func (p *Prometheus) TelemetryReceived() { p.telemetryReceived.Inc() }
func (p *Prometheus) TelemetryDropped()  { p.telemetryDropped.Inc() }

var entryKinds = map[string]bool{
	"flame": true, "rain": true, "gas": true,
	"door": true, "canopy": true, "executed": true,
}

// EntryAppended counts an entry by kind. Kinds outside the known set are
// folded into "other".
func (p *Prometheus) EntryAppended(kind string) {
	if !entryKinds[kind] {
		kind = "other"
	}
	p.entriesAppended.WithLabelValues(kind).Inc()
}

func (p *Prometheus) CandidateSuppressed(reason string) {
	p.suppressed.WithLabelValues(reason).Inc()
}

// CommandDispatched counts a command. Unknown tokens share one label value so
// clients cannot grow the series set.
func (p *Prometheus) CommandDispatched(token, outcome string) {
	if outcome == "invalid" {
		token = "unknown"
	}
	p.commands.WithLabelValues(token, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
