package ran

// DefaultRogueSignalMarginDb is how far above the serving cell a rogue
// neighbor must be reported before it counts as a luring signal.
const DefaultRogueSignalMarginDb = 3.0

// Detector evaluates already-classified records against the security
// predicates. It is stateless: every check is a pure function of its input,
// so the same stream always yields the same incidents.
type Detector struct {
	MarginDb float64
}

// NewDetector creates a detector with the given rogue-signal margin in dB.
// Non-positive margins fall back to the default.
func NewDetector(marginDb float64) Detector {
	if marginDb <= 0 {
		marginDb = DefaultRogueSignalMarginDb
	}
	return Detector{MarginDb: marginDb}
}

// ScanMeasurement returns one STRONG_ROGUE_SIGNAL incident per rogue
// neighbor reported stronger than the serving cell by more than the margin.
// Absent neighbor measurements decode to the no-data sentinel far below any
// real signal, so they can never trip the predicate.
func (d Detector) ScanMeasurement(s MeasurementSample) []SecurityIncident {
	var out []SecurityIncident
	for _, n := range s.Neighbors {
		if n.Class != ClassRogue {
			continue
		}
		if n.RsrpDbm > s.RsrpDbm+d.MarginDb {
			out = append(out, SecurityIncident{
				Time:           s.Time,
				Kind:           IncidentStrongRogueSignal,
				Imsi:           s.Imsi,
				CellID:         n.CellID,
				ServingCellID:  s.CellID,
				RsrpDbm:        n.RsrpDbm,
				ServingRsrpDbm: s.RsrpDbm,
			})
		}
	}
	return out
}

// CheckConnection reports a ROGUE_ATTACH_ATTEMPT when a UE connects to a
// rogue cell.
func (d Detector) CheckConnection(c ConnectionEvent) (SecurityIncident, bool) {
	if c.Class != ClassRogue {
		return SecurityIncident{}, false
	}
	return SecurityIncident{
		Time:   c.Time,
		Kind:   IncidentRogueAttachAttempt,
		Imsi:   c.Imsi,
		CellID: c.CellID,
		Rnti:   c.Rnti,
	}, true
}

// CheckHandover inspects a handover start record. A faulty endpoint and a
// rogue target are independent conditions, so one start can yield both a
// FAULTY_CELL_HANDOVER and a ROGUE_HANDOVER_ATTEMPT. Non-start records
// yield nothing.
func (d Detector) CheckHandover(h HandoverEvent) []SecurityIncident {
	if h.Kind != HandoverStart {
		return nil
	}
	var out []SecurityIncident
	if h.SourceClass == ClassFaulty || h.TargetClass == ClassFaulty {
		offender := h.SourceCellID
		if h.TargetClass == ClassFaulty {
			offender = h.TargetCellID
		}
		out = append(out, SecurityIncident{
			Time:         h.Time,
			Kind:         IncidentFaultyCellHandover,
			Imsi:         h.Imsi,
			CellID:       offender,
			SourceCellID: h.SourceCellID,
			TargetCellID: h.TargetCellID,
		})
	}
	if h.TargetClass == ClassRogue {
		out = append(out, SecurityIncident{
			Time:         h.Time,
			Kind:         IncidentRogueHandoverAttempt,
			Imsi:         h.Imsi,
			CellID:       h.TargetCellID,
			SourceCellID: h.SourceCellID,
			TargetCellID: h.TargetCellID,
		})
	}
	return out
}
