package ran

import "sync"

// Collector is an in-memory sink. Tests use it to assert on emitted
// records; the live monitor uses a bounded one as a recent-event ring.
type Collector struct {
	mu    sync.Mutex
	limit int

	measurements []MeasurementSample
	connections  []ConnectionEvent
	handovers    []HandoverEvent
	incidents    []SecurityIncident
	flowRates    []FlowRateRecord
	mobility     []MobilityUpdate
}

// NewCollector creates a collector keeping at most limit records per kind.
// A limit of 0 keeps everything.
func NewCollector(limit int) *Collector {
	return &Collector{limit: limit}
}

func appendBounded[T any](buf []T, v T, limit int) []T {
	buf = append(buf, v)
	if limit > 0 && len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	return buf
}

func (c *Collector) RecordMeasurement(s MeasurementSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.measurements = appendBounded(c.measurements, s, c.limit)
	return nil
}

func (c *Collector) RecordConnection(ev ConnectionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections = appendBounded(c.connections, ev, c.limit)
	return nil
}

func (c *Collector) RecordHandover(h HandoverEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handovers = appendBounded(c.handovers, h, c.limit)
	return nil
}

func (c *Collector) RecordIncident(i SecurityIncident) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incidents = appendBounded(c.incidents, i, c.limit)
	return nil
}

func (c *Collector) RecordFlowRate(f FlowRateRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flowRates = appendBounded(c.flowRates, f, c.limit)
	return nil
}

func (c *Collector) RecordMobility(m MobilityUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mobility = appendBounded(c.mobility, m, c.limit)
	return nil
}

// Measurements returns a copy of the collected measurement samples.
func (c *Collector) Measurements() []MeasurementSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MeasurementSample, len(c.measurements))
	copy(out, c.measurements)
	return out
}

// Connections returns a copy of the collected connection events.
func (c *Collector) Connections() []ConnectionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ConnectionEvent, len(c.connections))
	copy(out, c.connections)
	return out
}

// Handovers returns a copy of the collected handover records.
func (c *Collector) Handovers() []HandoverEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HandoverEvent, len(c.handovers))
	copy(out, c.handovers)
	return out
}

// Incidents returns a copy of the collected security incidents.
func (c *Collector) Incidents() []SecurityIncident {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SecurityIncident, len(c.incidents))
	copy(out, c.incidents)
	return out
}

// FlowRates returns a copy of the collected flow rate records.
func (c *Collector) FlowRates() []FlowRateRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FlowRateRecord, len(c.flowRates))
	copy(out, c.flowRates)
	return out
}

// Mobility returns a copy of the collected mobility updates.
func (c *Collector) Mobility() []MobilityUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MobilityUpdate, len(c.mobility))
	copy(out, c.mobility)
	return out
}
