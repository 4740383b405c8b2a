// Package trace renders analyzer records to per-stream CSV trace files in
// the column layout emitted by the LTE scenario sinks, so existing
// spreadsheet and pandas tooling keeps working against engine output.
package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

// Trace file names created by OpenDir.
const (
	MeasFile       = "meas_reports.csv"
	RrcFile        = "rrc_events.csv"
	HandoverFile   = "handover_statistics.csv"
	RsrpFile       = "rsrp_measurements.csv"
	MobilityFile   = "ue_mobility_trace.csv"
	ThroughputFile = "throughput_analysis.csv"
	SecurityFile   = "security_events.csv"
	CellFile       = "base_station_info.csv"
)

// Streams supplies one destination per trace file. Nil members discard
// that stream.
type Streams struct {
	Measurements io.Writer
	Rrc          io.Writer
	Handovers    io.Writer
	Rsrp         io.Writer
	Mobility     io.Writer
	Throughput   io.Writer
	Security     io.Writer
	Cells        io.Writer
}

// Writer is a ran.Sink that appends one CSV row per record. Serving-cell
// measurements additionally feed the rsrp stream, and handover records feed
// both the rrc event stream and the handover statistics stream.
type Writer struct {
	meas       *csv.Writer
	rrc        *csv.Writer
	handovers  *csv.Writer
	rsrp       *csv.Writer
	mobility   *csv.Writer
	throughput *csv.Writer
	security   *csv.Writer
	cells      *csv.Writer

	closers []io.Closer
}

// NewWriter creates a Writer over the given streams without writing
// anything. Call WriteHeaders before the first record.
func NewWriter(s Streams) *Writer {
	return &Writer{
		meas:       newCSV(s.Measurements),
		rrc:        newCSV(s.Rrc),
		handovers:  newCSV(s.Handovers),
		rsrp:       newCSV(s.Rsrp),
		mobility:   newCSV(s.Mobility),
		throughput: newCSV(s.Throughput),
		security:   newCSV(s.Security),
		cells:      newCSV(s.Cells),
	}
}

func newCSV(w io.Writer) *csv.Writer {
	if w == nil {
		w = io.Discard
	}
	return csv.NewWriter(w)
}

// OpenDir creates the full trace file set under dir and returns a Writer
// with headers already written. The caller owns Close.
func OpenDir(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}

	files := make(map[string]*os.File, 8)
	for _, name := range []string{
		MeasFile, RrcFile, HandoverFile, RsrpFile,
		MobilityFile, ThroughputFile, SecurityFile, CellFile,
	} {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			for _, open := range files {
				open.Close()
			}
			return nil, fmt.Errorf("creating %s: %w", name, err)
		}
		files[name] = f
	}

	w := NewWriter(Streams{
		Measurements: files[MeasFile],
		Rrc:          files[RrcFile],
		Handovers:    files[HandoverFile],
		Rsrp:         files[RsrpFile],
		Mobility:     files[MobilityFile],
		Throughput:   files[ThroughputFile],
		Security:     files[SecurityFile],
		Cells:        files[CellFile],
	})
	for _, f := range files {
		w.closers = append(w.closers, f)
	}
	if err := w.WriteHeaders(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// WriteHeaders writes the header row of every stream.
func (w *Writer) WriteHeaders() error {
	headers := []struct {
		cw  *csv.Writer
		row []string
	}{
		{w.meas, []string{"time", "imsi", "enbCellId", "cellType", "rnti", "measId", "event",
			"servingRsrpQ", "servingRsrqQ", "servingRsrpDbm", "servingRsrqDb", "neighborCells"}},
		{w.rrc, []string{"event", "time", "imsi", "cellId", "cellType", "rnti", "info"}},
		{w.handovers, []string{"event", "time", "imsi", "sourceCellId", "sourceCellType",
			"targetCellId", "targetCellType"}},
		{w.rsrp, []string{"time", "imsi", "cellId", "cellType", "rsrpDbm", "rsrqDb"}},
		{w.mobility, []string{"time", "nodeId", "posX", "posY", "posZ", "velX", "velY", "velZ", "speed"}},
		{w.throughput, []string{"time", "flowId", "throughputMbps", "delayMs", "jitterMs",
			"packetLossPercent", "rxPackets", "txPackets"}},
		{w.security, []string{"time", "eventType", "imsi", "cellId", "rnti",
			"servingCellId", "rsrpDbm", "servingRsrpDbm", "sourceCellId", "targetCellId"}},
		{w.cells, []string{"cellId", "nodeId", "cellType", "posX", "posY", "posZ", "txPowerDbm"}},
	}
	for _, h := range headers {
		if err := h.cw.Write(h.row); err != nil {
			return err
		}
	}
	return nil
}

// WriteCells writes one base-station row per registered cell. The topology
// is fixed per run, so this is called once after registry setup.
func (w *Writer) WriteCells(cells []ran.CellRecord) error {
	for _, c := range cells {
		row := []string{
			fmt.Sprintf("%d", c.CellID),
			fmt.Sprintf("%d", c.NodeID),
			string(c.Class),
			f6(c.Position.X),
			f6(c.Position.Y),
			f6(c.Position.Z),
			f6(c.TxPowerDbm),
		}
		if err := w.cells.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// RecordMeasurement appends to the measurement stream and mirrors the
// serving-cell levels into the rsrp stream.
func (w *Writer) RecordMeasurement(s ran.MeasurementSample) error {
	row := []string{
		f6(s.Time),
		fmt.Sprintf("%d", s.Imsi),
		fmt.Sprintf("%d", s.CellID),
		string(s.Class),
		fmt.Sprintf("%d", s.Rnti),
		fmt.Sprintf("%d", s.MeasID),
		string(s.Trigger),
		fmt.Sprintf("%d", s.RsrpQ),
		fmt.Sprintf("%d", s.RsrqQ),
		f6(s.RsrpDbm),
		f6(s.RsrqDb),
		packNeighbors(s.Neighbors),
	}
	if err := w.meas.Write(row); err != nil {
		return err
	}
	return w.rsrp.Write([]string{
		f6(s.Time),
		fmt.Sprintf("%d", s.Imsi),
		fmt.Sprintf("%d", s.CellID),
		string(s.Class),
		f6(s.RsrpDbm),
		f6(s.RsrqDb),
	})
}

// RecordConnection appends a CONN_EST row to the rrc event stream.
func (w *Writer) RecordConnection(c ran.ConnectionEvent) error {
	return w.rrc.Write([]string{
		"CONN_EST",
		f6(c.Time),
		fmt.Sprintf("%d", c.Imsi),
		fmt.Sprintf("%d", c.CellID),
		string(c.Class),
		fmt.Sprintf("%d", c.Rnti),
		"",
	})
}

// RecordHandover appends to both the rrc event stream and the handover
// statistics stream. In the rrc stream the cellId column carries the cell
// the row is about: the source for HO_START, the target for completions.
func (w *Writer) RecordHandover(h ran.HandoverEvent) error {
	var cellID uint16
	var class ran.CellClass
	var info string
	switch h.Kind {
	case ran.HandoverStart:
		cellID, class = h.SourceCellID, h.SourceClass
		info = fmt.Sprintf("to:%d:%s", h.TargetCellID, h.TargetClass)
	default:
		cellID, class = h.TargetCellID, h.TargetClass
		info = fmt.Sprintf("from:%d:%s", h.SourceCellID, h.SourceClass)
	}
	if err := w.rrc.Write([]string{
		string(h.Kind),
		f6(h.Time),
		fmt.Sprintf("%d", h.Imsi),
		fmt.Sprintf("%d", cellID),
		string(class),
		fmt.Sprintf("%d", h.Rnti),
		info,
	}); err != nil {
		return err
	}
	return w.handovers.Write([]string{
		string(h.Kind),
		f6(h.Time),
		fmt.Sprintf("%d", h.Imsi),
		fmt.Sprintf("%d", h.SourceCellID),
		string(h.SourceClass),
		fmt.Sprintf("%d", h.TargetCellID),
		string(h.TargetClass),
	})
}

// RecordIncident appends a structured row to the security stream. Columns
// that do not apply to the incident kind are left empty rather than zero so
// downstream filters can tell "absent" from "cell 0".
func (w *Writer) RecordIncident(i ran.SecurityIncident) error {
	row := []string{
		f6(i.Time),
		string(i.Kind),
		fmt.Sprintf("%d", i.Imsi),
		fmt.Sprintf("%d", i.CellID),
		"", "", "", "", "", "",
	}
	switch i.Kind {
	case ran.IncidentStrongRogueSignal:
		row[5] = fmt.Sprintf("%d", i.ServingCellID)
		row[6] = f6(i.RsrpDbm)
		row[7] = f6(i.ServingRsrpDbm)
	case ran.IncidentRogueAttachAttempt:
		row[4] = fmt.Sprintf("%d", i.Rnti)
	case ran.IncidentFaultyCellHandover, ran.IncidentRogueHandoverAttempt:
		row[8] = fmt.Sprintf("%d", i.SourceCellID)
		row[9] = fmt.Sprintf("%d", i.TargetCellID)
	}
	return w.security.Write(row)
}

// RecordFlowRate appends to the throughput stream.
func (w *Writer) RecordFlowRate(f ran.FlowRateRecord) error {
	return w.throughput.Write([]string{
		f6(f.Time),
		fmt.Sprintf("%d", f.FlowID),
		f6(f.ThroughputMbps),
		f6(f.DelayMs),
		f6(f.JitterMs),
		f6(f.LossPercent),
		fmt.Sprintf("%d", f.RxPackets),
		fmt.Sprintf("%d", f.TxPackets),
	})
}

// RecordMobility appends to the mobility stream.
func (w *Writer) RecordMobility(m ran.MobilityUpdate) error {
	return w.mobility.Write([]string{
		f6(m.Time),
		fmt.Sprintf("%d", m.NodeID),
		f6(m.Position.X),
		f6(m.Position.Y),
		f6(m.Position.Z),
		f6(m.Velocity.X),
		f6(m.Velocity.Y),
		f6(m.Velocity.Z),
		f6(m.Speed()),
	})
}

// Flush drains every stream buffer and reports the first write error.
func (w *Writer) Flush() error {
	for _, cw := range []*csv.Writer{
		w.meas, w.rrc, w.handovers, w.rsrp,
		w.mobility, w.throughput, w.security, w.cells,
	} {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and then closes any files opened by OpenDir.
func (w *Writer) Close() error {
	err := w.Flush()
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// packNeighbors renders the neighbor list as id:type:rsrpQ:rsrqQ:rsrpDbm:rsrqDb
// entries, each terminated by a semicolon. Reports with no neighbors pack
// to the literal NONE.
func packNeighbors(ns []ran.NeighborSample) string {
	if len(ns) == 0 {
		return "NONE"
	}
	var b strings.Builder
	for _, n := range ns {
		fmt.Fprintf(&b, "%d:%s:%d:%d:%s:%s;",
			n.CellID, n.Class, n.RsrpQ, n.RsrqQ, f6(n.RsrpDbm), f6(n.RsrqDb))
	}
	return b.String()
}

func f6(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
