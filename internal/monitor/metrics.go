package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

// Metrics is a ran.Sink exposing run counters to Prometheus. Each instance
// owns its registry so repeated runs in one process never collide on
// collector registration.
type Metrics struct {
	registry *prometheus.Registry

	measurements prometheus.Counter
	connections  prometheus.Counter
	hoStarts     prometheus.Counter
	hoSuccesses  prometheus.Counter
	hoFailures   prometheus.Counter
	hoPending    prometheus.Gauge
	flowRecords  prometheus.Counter
	mobility     prometheus.Counter

	incidents map[ran.IncidentKind]prometheus.Counter

	servingRsrp prometheus.Histogram
	throughput  prometheus.Histogram

	// pending tracks the start/end balance so tolerated end-without-start
	// records never drive the gauge negative. Records arrive from the
	// single dispatch goroutine, so no lock.
	pending int64
}

// NewMetrics builds the collector set and registers it.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		measurements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranwatch_measurement_reports_total",
			Help: "Total measurement reports processed.",
		}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranwatch_connections_total",
			Help: "Total RRC connection establishments observed.",
		}),
		hoStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranwatch_handover_starts_total",
			Help: "Total handovers started.",
		}),
		hoSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranwatch_handover_successes_total",
			Help: "Total handovers completed successfully.",
		}),
		hoFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranwatch_handover_failures_total",
			Help: "Total handovers failed, superseded, or unresolved at run end.",
		}),
		hoPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ranwatch_handovers_pending",
			Help: "Handovers started but not yet resolved.",
		}),
		flowRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranwatch_flow_records_total",
			Help: "Total per-flow QoS records emitted.",
		}),
		mobility: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranwatch_mobility_updates_total",
			Help: "Total mobility course-change updates observed.",
		}),
		servingRsrp: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranwatch_serving_rsrp_dbm",
			Help:    "Serving-cell RSRP distribution.",
			Buckets: prometheus.LinearBuckets(-140, 10, 11),
		}),
		throughput: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranwatch_flow_throughput_mbps",
			Help:    "Per-flow throughput distribution.",
			Buckets: prometheus.ExponentialBuckets(0.125, 2, 12),
		}),
		incidents: map[ran.IncidentKind]prometheus.Counter{
			ran.IncidentStrongRogueSignal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ranwatch_incidents_strong_rogue_signal_total",
				Help: "Rogue cells reported stronger than serving beyond the margin.",
			}),
			ran.IncidentRogueAttachAttempt: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ranwatch_incidents_rogue_attach_total",
				Help: "Connections established to rogue cells.",
			}),
			ran.IncidentFaultyCellHandover: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ranwatch_incidents_faulty_handover_total",
				Help: "Handovers involving a faulty source or target cell.",
			}),
			ran.IncidentRogueHandoverAttempt: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ranwatch_incidents_rogue_handover_total",
				Help: "Handovers targeting a rogue cell.",
			}),
		},
	}

	m.registry.MustRegister(
		m.measurements, m.connections,
		m.hoStarts, m.hoSuccesses, m.hoFailures, m.hoPending,
		m.flowRecords, m.mobility,
		m.servingRsrp, m.throughput,
	)
	for _, c := range m.incidents {
		m.registry.MustRegister(c)
	}

	return m
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordMeasurement(s ran.MeasurementSample) error {
	m.measurements.Inc()
	m.servingRsrp.Observe(s.RsrpDbm)
	return nil
}

func (m *Metrics) RecordConnection(ran.ConnectionEvent) error {
	m.connections.Inc()
	return nil
}

func (m *Metrics) RecordHandover(h ran.HandoverEvent) error {
	switch h.Kind {
	case ran.HandoverStart:
		m.hoStarts.Inc()
		m.pending++
		m.hoPending.Inc()
	case ran.HandoverEndOk:
		m.hoSuccesses.Inc()
		m.drainPending()
	case ran.HandoverEndFail:
		m.hoFailures.Inc()
		m.drainPending()
	}
	return nil
}

func (m *Metrics) drainPending() {
	if m.pending > 0 {
		m.pending--
		m.hoPending.Dec()
	}
}

func (m *Metrics) RecordIncident(i ran.SecurityIncident) error {
	if c, ok := m.incidents[i.Kind]; ok {
		c.Inc()
	}
	return nil
}

func (m *Metrics) RecordFlowRate(f ran.FlowRateRecord) error {
	m.flowRecords.Inc()
	m.throughput.Observe(f.ThroughputMbps)
	return nil
}

func (m *Metrics) RecordMobility(ran.MobilityUpdate) error {
	m.mobility.Inc()
	return nil
}
