// Package ran implements the control-plane analytics core for an LTE RAN
// simulation: quantized measurement decoding, per-cell classification,
// handover outcome accounting, security incident detection, and flow QoS
// summaries. The package is transport-agnostic: the host delivers events in
// simulated-time order and attaches sinks for the records it emits.
package ran

import (
	"sort"
	"sync"

	"github.com/emsaumay/ns3-kb/internal/units"
	"github.com/google/uuid"
)

// pendingHandover is an observed start awaiting its end. Classes are
// captured at start time; they cannot change mid-run.
type pendingHandover struct {
	startTime   float64
	source      uint16
	sourceClass CellClass
	target      uint16
	targetClass CellClass
	rnti        uint16
}

// Analyzer owns all per-run mutable state: counters, per-UE tables, and
// outstanding handovers. One instance per run; there is no global state.
//
// Dispatch is single-threaded: hosts call the On* methods from one
// goroutine, in simulated-time order. The internal mutex only serializes
// those calls against snapshot reads (Stats, UeStates) from the monitor's
// handler goroutines.
type Analyzer struct {
	mu       sync.Mutex
	runID    string
	registry *Registry
	sink     Sink
	detector Detector

	ues      map[uint64]*UeState
	nodeImsi map[uint32]uint64
	pending  map[uint64]pendingHandover

	totalHandovers      int64
	successfulHandovers int64
	failedHandovers     int64
	faultyHandovers     int64
	rogueAttachAttempts int64
	measurementReports  int64
	connections         int64
	flowRecords         int64
	incidents           map[IncidentKind]int64
}

// AnalyzerConfig contains construction options for an Analyzer.
type AnalyzerConfig struct {
	RunID               string // empty means a fresh uuid; set it when sinks need the id up front
	Registry            *Registry
	Sink                Sink
	RogueSignalMarginDb float64 // 0 means DefaultRogueSignalMarginDb
}

// NewAnalyzer creates an analyzer. A nil registry gets an empty one
// (everything classifies UNKNOWN); a nil sink discards records.
func NewAnalyzer(config AnalyzerConfig) *Analyzer {
	reg := config.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	sink := config.Sink
	if sink == nil {
		sink = NopSink{}
	}
	runID := config.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	return &Analyzer{
		runID:     runID,
		registry:  reg,
		sink:      sink,
		detector:  NewDetector(config.RogueSignalMarginDb),
		ues:       make(map[uint64]*UeState),
		nodeImsi:  make(map[uint32]uint64),
		pending:   make(map[uint64]pendingHandover),
		incidents: make(map[IncidentKind]int64),
	}
}

// RunID returns the identifier assigned to this run.
func (a *Analyzer) RunID() string {
	return a.runID
}

// Registry returns the cell registry the analyzer classifies against.
func (a *Analyzer) Registry() *Registry {
	return a.registry
}

// TrackUeNode maps a simulator node id to an imsi so mobility updates can
// refresh that UE's last known position. Call during topology setup.
func (a *Analyzer) TrackUeNode(imsi uint64, nodeID uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ue := a.ensureUE(imsi)
	ue.NodeID = nodeID
	a.nodeImsi[nodeID] = imsi
}

// OnMeasurementReport decodes and classifies a raw report, updates the UE
// table, emits the enriched sample, and scans it for rogue-signal luring.
func (a *Analyzer) OnMeasurementReport(r MeasurementReport) {
	a.mu.Lock()
	defer a.mu.Unlock()

	trigger := TriggerPeriodic
	if len(r.Neighbors) > 0 {
		trigger = TriggerA3
	}

	sample := MeasurementSample{
		Time:    r.Time,
		Imsi:    r.Imsi,
		CellID:  r.CellID,
		Class:   a.registry.Classify(r.CellID),
		Rnti:    r.Rnti,
		MeasID:  r.MeasID,
		Trigger: trigger,
		RsrpQ:   r.RsrpQ,
		RsrqQ:   r.RsrqQ,
		RsrpDbm: units.DecodeRsrp(r.RsrpQ),
		RsrqDb:  units.DecodeRsrq(r.RsrqQ),
	}
	for _, n := range r.Neighbors {
		sample.Neighbors = append(sample.Neighbors, NeighborSample{
			CellID:  n.CellID,
			Class:   a.registry.Classify(n.CellID),
			RsrpQ:   n.RsrpQ,
			RsrqQ:   n.RsrqQ,
			RsrpDbm: units.DecodeRsrp(n.RsrpQ),
			RsrqDb:  units.DecodeRsrq(n.RsrqQ),
		})
	}

	ue := a.ensureUE(r.Imsi)
	ue.LastCellID = r.CellID
	ue.LastClass = sample.Class
	ue.MeasReports++
	ue.LastEventTime = r.Time
	a.measurementReports++

	if err := a.sink.RecordMeasurement(sample); err != nil {
		Logf("sink: measurement imsi=%d t=%.3f: %v", sample.Imsi, sample.Time, err)
	}
	for _, inc := range a.detector.ScanMeasurement(sample) {
		a.recordIncident(inc)
	}
}

// OnConnectionEstablished records an RRC connection and checks it for a
// rogue attach.
func (a *Analyzer) OnConnectionEstablished(t float64, imsi uint64, cellID uint16, rnti uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ev := ConnectionEvent{
		Time:   t,
		Imsi:   imsi,
		CellID: cellID,
		Class:  a.registry.Classify(cellID),
		Rnti:   rnti,
	}

	ue := a.ensureUE(imsi)
	ue.LastCellID = cellID
	ue.LastClass = ev.Class
	ue.LastEventTime = t
	a.connections++

	if err := a.sink.RecordConnection(ev); err != nil {
		Logf("sink: connection imsi=%d: %v", imsi, err)
	}
	if inc, ok := a.detector.CheckConnection(ev); ok {
		a.recordIncident(inc)
	}
}

// OnHandoverStart accounts a new handover and checks its endpoints. A start
// arriving while an earlier start for the same UE is still outstanding
// resolves the earlier one as failed before the new one is recorded.
func (a *Analyzer) OnHandoverStart(t float64, imsi uint64, sourceCellID, targetCellID uint16, rnti uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pending[imsi]; ok {
		delete(a.pending, imsi)
		a.failHandover(t, imsi, p)
	}

	ev := HandoverEvent{
		Kind:         HandoverStart,
		Time:         t,
		Imsi:         imsi,
		Rnti:         rnti,
		SourceCellID: sourceCellID,
		SourceClass:  a.registry.Classify(sourceCellID),
		TargetCellID: targetCellID,
		TargetClass:  a.registry.Classify(targetCellID),
	}

	a.totalHandovers++
	ue := a.ensureUE(imsi)
	ue.HandoverCount++
	ue.LastEventTime = t

	a.pending[imsi] = pendingHandover{
		startTime:   t,
		source:      sourceCellID,
		sourceClass: ev.SourceClass,
		target:      targetCellID,
		targetClass: ev.TargetClass,
		rnti:        rnti,
	}

	if err := a.sink.RecordHandover(ev); err != nil {
		Logf("sink: handover start imsi=%d: %v", imsi, err)
	}
	for _, inc := range a.detector.CheckHandover(ev) {
		a.recordIncident(inc)
	}
}

// OnHandoverEndOk resolves the outstanding start for the UE as successful.
// An end with no outstanding start is tolerated and still counted; the
// emitted record then carries an UNKNOWN source.
func (a *Analyzer) OnHandoverEndOk(t float64, imsi uint64, cellID uint16, rnti uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ev := HandoverEvent{
		Kind:         HandoverEndOk,
		Time:         t,
		Imsi:         imsi,
		Rnti:         rnti,
		SourceClass:  ClassUnknown,
		TargetCellID: cellID,
		TargetClass:  a.registry.Classify(cellID),
	}

	if p, ok := a.pending[imsi]; ok {
		delete(a.pending, imsi)
		ev.SourceCellID = p.source
		ev.SourceClass = p.sourceClass
		if p.target != cellID {
			Logf("handover: imsi %d completed at cell %d, start targeted cell %d", imsi, cellID, p.target)
		}
	} else {
		Logf("handover: end-ok for imsi %d with no outstanding start", imsi)
	}

	a.successfulHandovers++
	ue := a.ensureUE(imsi)
	ue.LastCellID = cellID
	ue.LastClass = ev.TargetClass
	ue.LastEventTime = t

	if err := a.sink.RecordHandover(ev); err != nil {
		Logf("sink: handover end imsi=%d: %v", imsi, err)
	}
}

// OnMobilityUpdate forwards a course change to the sinks and, when the node
// belongs to a tracked UE, refreshes that UE's position and velocity.
func (a *Analyzer) OnMobilityUpdate(m MobilityUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if imsi, ok := a.nodeImsi[m.NodeID]; ok {
		ue := a.ensureUE(imsi)
		ue.LastPosition = m.Position
		ue.LastVelocity = m.Velocity
		ue.HasPosition = true
	}

	if err := a.sink.RecordMobility(m); err != nil {
		Logf("sink: mobility node=%d: %v", m.NodeID, err)
	}
}

// OnFlowTick summarizes one batch of cumulative flow samples. The host owns
// the sampling interval; the analyzer never schedules anything itself.
func (a *Analyzer) OnFlowTick(samples []FlowSample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		rec, ok := SummarizeFlow(s)
		if !ok {
			continue
		}
		a.flowRecords++
		if err := a.sink.RecordFlowRate(rec); err != nil {
			Logf("sink: flow rate flow=%d: %v", rec.FlowID, err)
		}
	}
}

// Finalize resolves every still-outstanding handover start as failed, in
// imsi order, and returns the final counter snapshot. Call once when the
// event stream ends.
func (a *Analyzer) Finalize(endTime float64) RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	imsis := make([]uint64, 0, len(a.pending))
	for imsi := range a.pending {
		imsis = append(imsis, imsi)
	}
	sort.Slice(imsis, func(i, j int) bool { return imsis[i] < imsis[j] })
	for _, imsi := range imsis {
		p := a.pending[imsi]
		delete(a.pending, imsi)
		a.failHandover(endTime, imsi, p)
	}

	return a.statsLocked()
}

// Stats returns a snapshot of the current counters.
func (a *Analyzer) Stats() RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statsLocked()
}

// UeStates returns a snapshot of every tracked UE ordered by imsi.
func (a *Analyzer) UeStates() []UeState {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]UeState, 0, len(a.ues))
	for _, ue := range a.ues {
		out = append(out, *ue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Imsi < out[j].Imsi })
	return out
}

// failHandover accounts one failed handover and emits its terminal record.
// Caller holds the mutex and has already removed the pending entry.
func (a *Analyzer) failHandover(t float64, imsi uint64, p pendingHandover) {
	a.failedHandovers++
	ev := HandoverEvent{
		Kind:         HandoverEndFail,
		Time:         t,
		Imsi:         imsi,
		Rnti:         p.rnti,
		SourceCellID: p.source,
		SourceClass:  p.sourceClass,
		TargetCellID: p.target,
		TargetClass:  p.targetClass,
	}
	if err := a.sink.RecordHandover(ev); err != nil {
		Logf("sink: handover fail imsi=%d: %v", imsi, err)
	}
}

// recordIncident tallies and emits one detection. The attach and faulty
// counters move in lockstep with their incident kinds so the stats block
// and the incident stream can never disagree.
func (a *Analyzer) recordIncident(inc SecurityIncident) {
	a.incidents[inc.Kind]++
	switch inc.Kind {
	case IncidentRogueAttachAttempt:
		a.rogueAttachAttempts++
	case IncidentFaultyCellHandover:
		a.faultyHandovers++
	}
	Logf("security: %s", inc.Summary())
	if err := a.sink.RecordIncident(inc); err != nil {
		Logf("sink: incident: %v", err)
	}
}

func (a *Analyzer) ensureUE(imsi uint64) *UeState {
	ue, ok := a.ues[imsi]
	if !ok {
		ue = &UeState{Imsi: imsi, LastClass: ClassUnknown}
		a.ues[imsi] = ue
	}
	return ue
}

func (a *Analyzer) statsLocked() RunStats {
	stats := RunStats{
		RunID:               a.runID,
		TotalHandovers:      a.totalHandovers,
		SuccessfulHandovers: a.successfulHandovers,
		FailedHandovers:     a.failedHandovers,
		PendingHandovers:    int64(len(a.pending)),
		FaultyHandovers:     a.faultyHandovers,
		RogueAttachAttempts: a.rogueAttachAttempts,
		MeasurementReports:  a.measurementReports,
		Connections:         a.connections,
		FlowRecords:         a.flowRecords,
		Incidents:           make(map[IncidentKind]int64, len(a.incidents)),
		HandoversByImsi:     make(map[uint64]int64, len(a.ues)),
	}
	for k, v := range a.incidents {
		stats.Incidents[k] = v
	}
	for imsi, ue := range a.ues {
		if ue.HandoverCount > 0 {
			stats.HandoversByImsi[imsi] = ue.HandoverCount
		}
	}
	return stats
}
