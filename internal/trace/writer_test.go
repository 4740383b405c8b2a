package trace

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

// testWriter builds a Writer over in-memory buffers, one per stream.
func testWriter() (*Writer, map[string]*bytes.Buffer) {
	bufs := map[string]*bytes.Buffer{
		MeasFile:       {},
		RrcFile:        {},
		HandoverFile:   {},
		RsrpFile:       {},
		MobilityFile:   {},
		ThroughputFile: {},
		SecurityFile:   {},
		CellFile:       {},
	}
	w := NewWriter(Streams{
		Measurements: bufs[MeasFile],
		Rrc:          bufs[RrcFile],
		Handovers:    bufs[HandoverFile],
		Rsrp:         bufs[RsrpFile],
		Mobility:     bufs[MobilityFile],
		Throughput:   bufs[ThroughputFile],
		Security:     bufs[SecurityFile],
		Cells:        bufs[CellFile],
	})
	return w, bufs
}

func readRows(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	r := csv.NewReader(buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("reading rows back: %v", err)
	}
	return rows
}

func TestWriteHeaders(t *testing.T) {
	w, bufs := testWriter()
	if err := w.WriteHeaders(); err != nil {
		t.Fatalf("WriteHeaders: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := map[string][]string{
		MeasFile: {"time", "imsi", "enbCellId", "cellType", "rnti", "measId", "event",
			"servingRsrpQ", "servingRsrqQ", "servingRsrpDbm", "servingRsrqDb", "neighborCells"},
		RrcFile: {"event", "time", "imsi", "cellId", "cellType", "rnti", "info"},
		HandoverFile: {"event", "time", "imsi", "sourceCellId", "sourceCellType",
			"targetCellId", "targetCellType"},
		RsrpFile:       {"time", "imsi", "cellId", "cellType", "rsrpDbm", "rsrqDb"},
		MobilityFile:   {"time", "nodeId", "posX", "posY", "posZ", "velX", "velY", "velZ", "speed"},
		ThroughputFile: {"time", "flowId", "throughputMbps", "delayMs", "jitterMs", "packetLossPercent", "rxPackets", "txPackets"},
		SecurityFile: {"time", "eventType", "imsi", "cellId", "rnti",
			"servingCellId", "rsrpDbm", "servingRsrpDbm", "sourceCellId", "targetCellId"},
		CellFile: {"cellId", "nodeId", "cellType", "posX", "posY", "posZ", "txPowerDbm"},
	}
	for name, header := range want {
		rows := readRows(t, bufs[name])
		if len(rows) != 1 {
			t.Fatalf("%s: got %d rows, want header only", name, len(rows))
		}
		if diff := cmp.Diff(header, rows[0]); diff != "" {
			t.Errorf("%s header mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestRecordMeasurement(t *testing.T) {
	w, bufs := testWriter()

	err := w.RecordMeasurement(ran.MeasurementSample{
		Time: 2.5, Imsi: 1, CellID: 1, Class: ran.ClassLegitimate,
		Rnti: 17, MeasID: 1, Trigger: ran.TriggerA3,
		RsrpQ: 55, RsrqQ: 20, RsrpDbm: -85, RsrqDb: -9.5,
		Neighbors: []ran.NeighborSample{
			{CellID: 2, Class: ran.ClassFaulty, RsrpQ: 40, RsrqQ: 10, RsrpDbm: -100, RsrqDb: -14.5},
			{CellID: 3, Class: ran.ClassRogue, RsrpQ: 60, RsrqQ: 22, RsrpDbm: -80, RsrqDb: -8.5},
		},
	})
	if err != nil {
		t.Fatalf("RecordMeasurement: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	wantMeas := [][]string{{
		"2.500000", "1", "1", "LEGITIMATE", "17", "1", "A3",
		"55", "20", "-85.000000", "-9.500000",
		"2:FAULTY:40:10:-100.000000:-14.500000;3:ROGUE:60:22:-80.000000:-8.500000;",
	}}
	if diff := cmp.Diff(wantMeas, readRows(t, bufs[MeasFile])); diff != "" {
		t.Errorf("meas rows mismatch (-want +got):\n%s", diff)
	}

	wantRsrp := [][]string{{"2.500000", "1", "1", "LEGITIMATE", "-85.000000", "-9.500000"}}
	if diff := cmp.Diff(wantRsrp, readRows(t, bufs[RsrpFile])); diff != "" {
		t.Errorf("rsrp rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordMeasurementNoNeighbors(t *testing.T) {
	w, bufs := testWriter()

	err := w.RecordMeasurement(ran.MeasurementSample{
		Time: 1, Imsi: 2, CellID: 1, Class: ran.ClassLegitimate,
		Rnti: 3, MeasID: 1, Trigger: ran.TriggerPeriodic,
		RsrpQ: 50, RsrqQ: 15, RsrpDbm: -90, RsrqDb: -12,
	})
	if err != nil {
		t.Fatalf("RecordMeasurement: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rows := readRows(t, bufs[MeasFile])
	if len(rows) != 1 {
		t.Fatalf("got %d meas rows, want 1", len(rows))
	}
	if got := rows[0][len(rows[0])-1]; got != "NONE" {
		t.Errorf("neighborCells = %q, want NONE", got)
	}
	if got := rows[0][6]; got != "PERIODIC" {
		t.Errorf("event = %q, want PERIODIC", got)
	}
}

func TestRecordConnection(t *testing.T) {
	w, bufs := testWriter()

	err := w.RecordConnection(ran.ConnectionEvent{
		Time: 0.30169, Imsi: 1, CellID: 3, Class: ran.ClassRogue, Rnti: 5,
	})
	if err != nil {
		t.Fatalf("RecordConnection: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := [][]string{{"CONN_EST", "0.301690", "1", "3", "ROGUE", "5", ""}}
	if diff := cmp.Diff(want, readRows(t, bufs[RrcFile])); diff != "" {
		t.Errorf("rrc rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordHandover(t *testing.T) {
	w, bufs := testWriter()

	events := []ran.HandoverEvent{
		{Kind: ran.HandoverStart, Time: 5, Imsi: 1, Rnti: 9,
			SourceCellID: 1, SourceClass: ran.ClassLegitimate,
			TargetCellID: 3, TargetClass: ran.ClassRogue},
		{Kind: ran.HandoverEndOk, Time: 5.2, Imsi: 1, Rnti: 9,
			SourceCellID: 1, SourceClass: ran.ClassLegitimate,
			TargetCellID: 3, TargetClass: ran.ClassRogue},
		{Kind: ran.HandoverEndFail, Time: 9, Imsi: 2,
			SourceCellID: 2, SourceClass: ran.ClassFaulty,
			TargetCellID: 1, TargetClass: ran.ClassLegitimate},
	}
	for _, ev := range events {
		if err := w.RecordHandover(ev); err != nil {
			t.Fatalf("RecordHandover(%s): %v", ev.Kind, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	wantRrc := [][]string{
		{"HO_START", "5.000000", "1", "1", "LEGITIMATE", "9", "to:3:ROGUE"},
		{"HO_END_OK", "5.200000", "1", "3", "ROGUE", "9", "from:1:LEGITIMATE"},
		{"HO_END_FAIL", "9.000000", "2", "1", "LEGITIMATE", "0", "from:2:FAULTY"},
	}
	if diff := cmp.Diff(wantRrc, readRows(t, bufs[RrcFile])); diff != "" {
		t.Errorf("rrc rows mismatch (-want +got):\n%s", diff)
	}

	wantStats := [][]string{
		{"HO_START", "5.000000", "1", "1", "LEGITIMATE", "3", "ROGUE"},
		{"HO_END_OK", "5.200000", "1", "1", "LEGITIMATE", "3", "ROGUE"},
		{"HO_END_FAIL", "9.000000", "2", "2", "FAULTY", "1", "LEGITIMATE"},
	}
	if diff := cmp.Diff(wantStats, readRows(t, bufs[HandoverFile])); diff != "" {
		t.Errorf("handover rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordIncident(t *testing.T) {
	w, bufs := testWriter()

	incidents := []ran.SecurityIncident{
		{Time: 1.5, Kind: ran.IncidentStrongRogueSignal, Imsi: 1, CellID: 3,
			ServingCellID: 1, RsrpDbm: -70, ServingRsrpDbm: -85},
		{Time: 2, Kind: ran.IncidentRogueAttachAttempt, Imsi: 2, CellID: 3, Rnti: 11},
		{Time: 3, Kind: ran.IncidentRogueHandoverAttempt, Imsi: 1, CellID: 3,
			SourceCellID: 1, TargetCellID: 3},
	}
	for _, inc := range incidents {
		if err := w.RecordIncident(inc); err != nil {
			t.Fatalf("RecordIncident(%s): %v", inc.Kind, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := [][]string{
		{"1.500000", "STRONG_ROGUE_SIGNAL", "1", "3", "", "1", "-70.000000", "-85.000000", "", ""},
		{"2.000000", "ROGUE_ATTACH_ATTEMPT", "2", "3", "11", "", "", "", "", ""},
		{"3.000000", "ROGUE_HANDOVER_ATTEMPT", "1", "3", "", "", "", "", "1", "3"},
	}
	if diff := cmp.Diff(want, readRows(t, bufs[SecurityFile])); diff != "" {
		t.Errorf("security rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordFlowRate(t *testing.T) {
	w, bufs := testWriter()

	err := w.RecordFlowRate(ran.FlowRateRecord{
		Time: 4, FlowID: 2, ThroughputMbps: 4, DelayMs: 10,
		JitterMs: 5, LossPercent: 10, RxPackets: 90, TxPackets: 100,
	})
	if err != nil {
		t.Fatalf("RecordFlowRate: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := [][]string{{"4.000000", "2", "4.000000", "10.000000", "5.000000", "10.000000", "90", "100"}}
	if diff := cmp.Diff(want, readRows(t, bufs[ThroughputFile])); diff != "" {
		t.Errorf("throughput rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordMobility(t *testing.T) {
	w, bufs := testWriter()

	err := w.RecordMobility(ran.MobilityUpdate{
		Time: 1, NodeID: 7,
		Position: ran.Vector{X: -100, Y: 0, Z: 1.5},
		Velocity: ran.Vector{X: 30, Y: 0, Z: 0},
	})
	if err != nil {
		t.Fatalf("RecordMobility: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := [][]string{{
		"1.000000", "7", "-100.000000", "0.000000", "1.500000",
		"30.000000", "0.000000", "0.000000", "30.000000",
	}}
	if diff := cmp.Diff(want, readRows(t, bufs[MobilityFile])); diff != "" {
		t.Errorf("mobility rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCells(t *testing.T) {
	w, bufs := testWriter()

	err := w.WriteCells([]ran.CellRecord{
		{CellID: 1, NodeID: 10, Class: ran.ClassLegitimate, Position: ran.Vector{X: 0, Y: 0, Z: 30}, TxPowerDbm: 43},
		{CellID: 3, NodeID: 12, Class: ran.ClassRogue, Position: ran.Vector{X: 1000, Y: 0, Z: 30}, TxPowerDbm: 40},
	})
	if err != nil {
		t.Fatalf("WriteCells: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := [][]string{
		{"1", "10", "LEGITIMATE", "0.000000", "0.000000", "30.000000", "43.000000"},
		{"3", "12", "ROGUE", "1000.000000", "0.000000", "30.000000", "40.000000"},
	}
	if diff := cmp.Diff(want, readRows(t, bufs[CellFile])); diff != "" {
		t.Errorf("cell rows mismatch (-want +got):\n%s", diff)
	}
}

func TestNilStreamsDiscard(t *testing.T) {
	w := NewWriter(Streams{})

	if err := w.WriteHeaders(); err != nil {
		t.Fatalf("WriteHeaders: %v", err)
	}
	if err := w.RecordMeasurement(ran.MeasurementSample{Time: 1, Imsi: 1}); err != nil {
		t.Errorf("RecordMeasurement: %v", err)
	}
	if err := w.RecordMobility(ran.MobilityUpdate{Time: 1, NodeID: 1}); err != nil {
		t.Errorf("RecordMobility: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "trace")

	w, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if err := w.RecordConnection(ran.ConnectionEvent{Time: 1, Imsi: 1, CellID: 1, Class: ran.ClassLegitimate, Rnti: 2}); err != nil {
		t.Fatalf("RecordConnection: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{
		MeasFile, RrcFile, HandoverFile, RsrpFile,
		MobilityFile, ThroughputFile, SecurityFile, CellFile,
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s: empty, want at least a header", name)
		}
	}

	rrc, err := os.ReadFile(filepath.Join(dir, RrcFile))
	if err != nil {
		t.Fatalf("reading rrc file: %v", err)
	}
	rows := readRows(t, bytes.NewBuffer(rrc))
	if len(rows) != 2 {
		t.Fatalf("rrc file: got %d rows, want header plus one event", len(rows))
	}
	if rows[1][0] != "CONN_EST" {
		t.Errorf("rrc event = %q, want CONN_EST", rows[1][0])
	}
}
