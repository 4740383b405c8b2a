package ran

// RunStats is a point-in-time snapshot of the analyzer's counters. All
// counts are monotonic over a run except PendingHandovers, which drains as
// starts resolve. Maps are deep copies and safe to retain.
type RunStats struct {
	RunID               string                 `json:"run_id"`
	TotalHandovers      int64                  `json:"total_handovers"`
	SuccessfulHandovers int64                  `json:"successful_handovers"`
	FailedHandovers     int64                  `json:"failed_handovers"`
	PendingHandovers    int64                  `json:"pending_handovers"`
	FaultyHandovers     int64                  `json:"faulty_handovers"`
	RogueAttachAttempts int64                  `json:"rogue_attach_attempts"`
	MeasurementReports  int64                  `json:"measurement_reports"`
	Connections         int64                  `json:"connections"`
	FlowRecords         int64                  `json:"flow_records"`
	Incidents           map[IncidentKind]int64 `json:"incidents"`
	HandoversByImsi     map[uint64]int64       `json:"handovers_by_imsi"`
}

// SuccessRate returns the handover success percentage. It is undefined
// until at least one handover has started; ok is false in that case and
// callers must not report a rate.
func (s RunStats) SuccessRate() (float64, bool) {
	if s.TotalHandovers == 0 {
		return 0, false
	}
	return 100.0 * float64(s.SuccessfulHandovers) / float64(s.TotalHandovers), true
}

// IncidentTotal sums all recorded security incidents.
func (s RunStats) IncidentTotal() int64 {
	var total int64
	for _, n := range s.Incidents {
		total += n
	}
	return total
}

// UeState is the per-UE view the analyzer maintains. Position and velocity
// are only meaningful once HasPosition is set, which requires the host to
// have mapped the UE's node id via TrackUeNode.
type UeState struct {
	Imsi          uint64    `json:"imsi"`
	NodeID        uint32    `json:"node_id"`
	LastCellID    uint16    `json:"last_cell_id"`
	LastClass     CellClass `json:"last_class"`
	HandoverCount int64     `json:"handover_count"`
	MeasReports   int64     `json:"meas_reports"`
	LastEventTime float64   `json:"last_event_time"`
	LastPosition  Vector    `json:"last_position"`
	LastVelocity  Vector    `json:"last_velocity"`
	HasPosition   bool      `json:"has_position"`
}
