package ran

import (
	"fmt"
	"math"
)

// Vector is a position or velocity in simulator world coordinates (meters
// or meters/second).
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MeasTrigger labels what caused a measurement report.
type MeasTrigger string

const (
	// TriggerA3 marks event-driven reports carrying neighbor measurements.
	TriggerA3 MeasTrigger = "A3"
	// TriggerPeriodic marks scheduled serving-cell-only reports.
	TriggerPeriodic MeasTrigger = "PERIODIC"
)

// NeighborMeasurement is one raw quantized neighbor entry from an RRC
// measurement report. A quantized value of -1 means not reported.
type NeighborMeasurement struct {
	CellID uint16 `json:"cell_id"`
	RsrpQ  int    `json:"rsrp_q"`
	RsrqQ  int    `json:"rsrq_q"`
}

// MeasurementReport is the raw serving + neighbor report delivered by the
// RAN for one UE. Time is simulated seconds.
type MeasurementReport struct {
	Time      float64               `json:"time"`
	Imsi      uint64                `json:"imsi"`
	CellID    uint16                `json:"cell_id"`
	Rnti      uint16                `json:"rnti"`
	MeasID    uint8                 `json:"meas_id"`
	RsrpQ     int                   `json:"rsrp_q"`
	RsrqQ     int                   `json:"rsrq_q"`
	Neighbors []NeighborMeasurement `json:"neighbors,omitempty"`
}

// NeighborSample is a decoded, classified neighbor entry.
type NeighborSample struct {
	CellID  uint16    `json:"cell_id"`
	Class   CellClass `json:"class"`
	RsrpQ   int       `json:"rsrp_q"`
	RsrqQ   int       `json:"rsrq_q"`
	RsrpDbm float64   `json:"rsrp_dbm"`
	RsrqDb  float64   `json:"rsrq_db"`
}

// MeasurementSample is the enriched record emitted for every measurement
// report: quantized values decoded to physical units and all cells
// classified against the registry.
type MeasurementSample struct {
	Time      float64          `json:"time"`
	Imsi      uint64           `json:"imsi"`
	CellID    uint16           `json:"cell_id"`
	Class     CellClass        `json:"class"`
	Rnti      uint16           `json:"rnti"`
	MeasID    uint8            `json:"meas_id"`
	Trigger   MeasTrigger      `json:"trigger"`
	RsrpQ     int              `json:"rsrp_q"`
	RsrqQ     int              `json:"rsrq_q"`
	RsrpDbm   float64          `json:"rsrp_dbm"`
	RsrqDb    float64          `json:"rsrq_db"`
	Neighbors []NeighborSample `json:"neighbors,omitempty"`
}

// HandoverKind is the lifecycle stage a handover record describes.
type HandoverKind string

const (
	HandoverStart   HandoverKind = "HO_START"
	HandoverEndOk   HandoverKind = "HO_END_OK"
	HandoverEndFail HandoverKind = "HO_END_FAIL"
)

// HandoverEvent is a classified handover lifecycle record. EndFail records
// are synthesized by the analyzer when a start is superseded by another
// start for the same UE or remains unresolved at run end.
type HandoverEvent struct {
	Kind         HandoverKind `json:"kind"`
	Time         float64      `json:"time"`
	Imsi         uint64       `json:"imsi"`
	Rnti         uint16       `json:"rnti"`
	SourceCellID uint16       `json:"source_cell_id"`
	SourceClass  CellClass    `json:"source_class"`
	TargetCellID uint16       `json:"target_cell_id"`
	TargetClass  CellClass    `json:"target_class"`
}

// ConnectionEvent is a classified RRC connection establishment record.
type ConnectionEvent struct {
	Time   float64   `json:"time"`
	Imsi   uint64    `json:"imsi"`
	CellID uint16    `json:"cell_id"`
	Class  CellClass `json:"class"`
	Rnti   uint16    `json:"rnti"`
}

// MobilityUpdate is a course-change notification for one simulator node.
// The analyzer passes these through to sinks and, when the node is a
// registered UE, refreshes that UE's last known position and velocity.
type MobilityUpdate struct {
	Time     float64 `json:"time"`
	NodeID   uint32  `json:"node_id"`
	Position Vector  `json:"position"`
	Velocity Vector  `json:"velocity"`
}

// Speed returns the horizontal speed magnitude in m/s. The vertical
// component is ignored, matching how ground-vehicle traces report speed.
func (m MobilityUpdate) Speed() float64 {
	return math.Hypot(m.Velocity.X, m.Velocity.Y)
}

// IncidentKind is the closed set of detectable security conditions.
type IncidentKind string

const (
	// IncidentStrongRogueSignal fires when a rogue neighbor is reported
	// stronger than the serving cell by more than the detector margin.
	IncidentStrongRogueSignal IncidentKind = "STRONG_ROGUE_SIGNAL"
	// IncidentRogueAttachAttempt fires when a UE establishes a connection
	// to a rogue cell.
	IncidentRogueAttachAttempt IncidentKind = "ROGUE_ATTACH_ATTEMPT"
	// IncidentFaultyCellHandover fires when a handover starts with a
	// faulty source or target.
	IncidentFaultyCellHandover IncidentKind = "FAULTY_CELL_HANDOVER"
	// IncidentRogueHandoverAttempt fires when a handover targets a rogue
	// cell.
	IncidentRogueHandoverAttempt IncidentKind = "ROGUE_HANDOVER_ATTEMPT"
)

// SecurityIncident is one detection with structured detail fields. Fields
// that do not apply to the incident kind are zero: signal levels are only
// set for STRONG_ROGUE_SIGNAL, source/target only for the handover kinds.
type SecurityIncident struct {
	Time           float64      `json:"time"`
	Kind           IncidentKind `json:"kind"`
	Imsi           uint64       `json:"imsi"`
	CellID         uint16       `json:"cell_id"` // the offending cell
	Rnti           uint16       `json:"rnti,omitempty"`
	ServingCellID  uint16       `json:"serving_cell_id,omitempty"`
	RsrpDbm        float64      `json:"rsrp_dbm,omitempty"`
	ServingRsrpDbm float64      `json:"serving_rsrp_dbm,omitempty"`
	SourceCellID   uint16       `json:"source_cell_id,omitempty"`
	TargetCellID   uint16       `json:"target_cell_id,omitempty"`
}

// Summary renders a one-line human-readable description for logs and
// message payloads.
func (i SecurityIncident) Summary() string {
	switch i.Kind {
	case IncidentStrongRogueSignal:
		return fmt.Sprintf("%s imsi=%d rogue_cell=%d rsrp=%.1fdBm serving_cell=%d serving_rsrp=%.1fdBm",
			i.Kind, i.Imsi, i.CellID, i.RsrpDbm, i.ServingCellID, i.ServingRsrpDbm)
	case IncidentRogueAttachAttempt:
		return fmt.Sprintf("%s imsi=%d rogue_cell=%d rnti=%d", i.Kind, i.Imsi, i.CellID, i.Rnti)
	case IncidentFaultyCellHandover, IncidentRogueHandoverAttempt:
		return fmt.Sprintf("%s imsi=%d source_cell=%d target_cell=%d", i.Kind, i.Imsi, i.SourceCellID, i.TargetCellID)
	default:
		return fmt.Sprintf("%s imsi=%d cell=%d", i.Kind, i.Imsi, i.CellID)
	}
}
