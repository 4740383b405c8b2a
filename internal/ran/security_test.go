package ran

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetector_MarginFallback(t *testing.T) {
	assert.Equal(t, DefaultRogueSignalMarginDb, NewDetector(0).MarginDb)
	assert.Equal(t, DefaultRogueSignalMarginDb, NewDetector(-2).MarginDb)
	assert.Equal(t, 5.0, NewDetector(5.0).MarginDb)
}

func TestScanMeasurement_StrongRogueSignal(t *testing.T) {
	d := NewDetector(3.0)

	tests := []struct {
		name         string
		neighborDbm  float64
		neighborCls  CellClass
		wantIncident bool
	}{
		{"rogue well above margin", -85.0, ClassRogue, true},
		{"rogue just above margin", -86.9, ClassRogue, true},
		{"rogue exactly at margin", -87.0, ClassRogue, false}, // strictly greater required
		{"rogue below margin", -89.0, ClassRogue, false},
		{"legitimate above margin", -80.0, ClassLegitimate, false},
		{"faulty above margin", -80.0, ClassFaulty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MeasurementSample{
				Time: 1.0, Imsi: 7, CellID: 1, Class: ClassLegitimate, RsrpDbm: -90.0,
				Neighbors: []NeighborSample{
					{CellID: 3, Class: tt.neighborCls, RsrpDbm: tt.neighborDbm},
				},
			}
			incs := d.ScanMeasurement(s)
			if !tt.wantIncident {
				assert.Empty(t, incs)
				return
			}
			require.Len(t, incs, 1)
			assert.Equal(t, IncidentStrongRogueSignal, incs[0].Kind)
			assert.Equal(t, uint16(3), incs[0].CellID)
			assert.Equal(t, uint16(1), incs[0].ServingCellID)
			assert.Equal(t, tt.neighborDbm, incs[0].RsrpDbm)
			assert.Equal(t, -90.0, incs[0].ServingRsrpDbm)
		})
	}
}

func TestScanMeasurement_SentinelNeverFires(t *testing.T) {
	d := NewDetector(3.0)
	// An absent rogue neighbor decodes to the -200 dBm sentinel, far below
	// the -140 dBm floor of any decodable serving level, so it can never
	// register as stronger than the serving cell.
	s := MeasurementSample{
		Imsi: 7, CellID: 1, RsrpDbm: -140.0,
		Neighbors: []NeighborSample{{CellID: 3, Class: ClassRogue, RsrpDbm: -200.0}},
	}
	assert.Empty(t, d.ScanMeasurement(s))
}

func TestScanMeasurement_MultipleRogueNeighbors(t *testing.T) {
	d := NewDetector(3.0)
	s := MeasurementSample{
		Imsi: 2, CellID: 1, RsrpDbm: -95.0,
		Neighbors: []NeighborSample{
			{CellID: 3, Class: ClassRogue, RsrpDbm: -85.0},
			{CellID: 4, Class: ClassRogue, RsrpDbm: -80.0},
			{CellID: 2, Class: ClassFaulty, RsrpDbm: -70.0},
		},
	}
	incs := d.ScanMeasurement(s)
	require.Len(t, incs, 2)
	assert.Equal(t, uint16(3), incs[0].CellID)
	assert.Equal(t, uint16(4), incs[1].CellID)
}

func TestCheckConnection(t *testing.T) {
	d := NewDetector(0)

	inc, ok := d.CheckConnection(ConnectionEvent{Time: 1, Imsi: 7, CellID: 3, Class: ClassRogue, Rnti: 9})
	require.True(t, ok)
	assert.Equal(t, IncidentRogueAttachAttempt, inc.Kind)
	assert.Equal(t, uint16(3), inc.CellID)
	assert.Equal(t, uint16(9), inc.Rnti)

	_, ok = d.CheckConnection(ConnectionEvent{Imsi: 7, CellID: 1, Class: ClassLegitimate})
	assert.False(t, ok)
	_, ok = d.CheckConnection(ConnectionEvent{Imsi: 7, CellID: 2, Class: ClassFaulty})
	assert.False(t, ok)
}

func TestCheckHandover(t *testing.T) {
	d := NewDetector(0)

	t.Run("faulty source", func(t *testing.T) {
		incs := d.CheckHandover(HandoverEvent{
			Kind: HandoverStart, Imsi: 1,
			SourceCellID: 2, SourceClass: ClassFaulty,
			TargetCellID: 1, TargetClass: ClassLegitimate,
		})
		require.Len(t, incs, 1)
		assert.Equal(t, IncidentFaultyCellHandover, incs[0].Kind)
		assert.Equal(t, uint16(2), incs[0].CellID)
	})

	t.Run("faulty target", func(t *testing.T) {
		incs := d.CheckHandover(HandoverEvent{
			Kind: HandoverStart, Imsi: 1,
			SourceCellID: 1, SourceClass: ClassLegitimate,
			TargetCellID: 2, TargetClass: ClassFaulty,
		})
		require.Len(t, incs, 1)
		assert.Equal(t, IncidentFaultyCellHandover, incs[0].Kind)
		assert.Equal(t, uint16(2), incs[0].CellID)
	})

	t.Run("rogue target", func(t *testing.T) {
		incs := d.CheckHandover(HandoverEvent{
			Kind: HandoverStart, Imsi: 1,
			SourceCellID: 1, SourceClass: ClassLegitimate,
			TargetCellID: 3, TargetClass: ClassRogue,
		})
		require.Len(t, incs, 1)
		assert.Equal(t, IncidentRogueHandoverAttempt, incs[0].Kind)
	})

	t.Run("faulty source and rogue target yield both", func(t *testing.T) {
		incs := d.CheckHandover(HandoverEvent{
			Kind: HandoverStart, Imsi: 1,
			SourceCellID: 2, SourceClass: ClassFaulty,
			TargetCellID: 3, TargetClass: ClassRogue,
		})
		require.Len(t, incs, 2)
		assert.Equal(t, IncidentFaultyCellHandover, incs[0].Kind)
		assert.Equal(t, IncidentRogueHandoverAttempt, incs[1].Kind)
	})

	t.Run("clean handover", func(t *testing.T) {
		incs := d.CheckHandover(HandoverEvent{
			Kind: HandoverStart, Imsi: 1,
			SourceCellID: 1, SourceClass: ClassLegitimate,
			TargetCellID: 1, TargetClass: ClassLegitimate,
		})
		assert.Empty(t, incs)
	})

	t.Run("non-start records are ignored", func(t *testing.T) {
		incs := d.CheckHandover(HandoverEvent{
			Kind: HandoverEndOk, Imsi: 1,
			TargetCellID: 3, TargetClass: ClassRogue,
		})
		assert.Empty(t, incs)
	})
}

func TestSecurityIncident_Summary(t *testing.T) {
	line := SecurityIncident{
		Kind: IncidentStrongRogueSignal, Imsi: 7, CellID: 3,
		ServingCellID: 1, RsrpDbm: -85.0, ServingRsrpDbm: -90.0,
	}.Summary()
	assert.Contains(t, line, "STRONG_ROGUE_SIGNAL")
	assert.Contains(t, line, "imsi=7")
	assert.Contains(t, line, "rogue_cell=3")

	line = SecurityIncident{Kind: IncidentRogueHandoverAttempt, Imsi: 2, SourceCellID: 1, TargetCellID: 3}.Summary()
	assert.Contains(t, line, "source_cell=1")
	assert.Contains(t, line, "target_cell=3")
}
