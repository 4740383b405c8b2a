// Package ns3 adapts recorded ns-3 LTE traces to the analysis engine: a
// strict parser for trace-context node ids, a JSONL replayer driving an
// Analyzer in file order, and a deterministic synthetic scenario for
// development without a simulator run.
package ns3

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/emsaumay/ns3-kb/internal/ran"
	"github.com/emsaumay/ns3-kb/internal/timeutil"
)

// Trace event kinds, one per JSONL line type.
const (
	EventCell     = "cell"
	EventUe       = "ue"
	EventMeas     = "meas"
	EventConn     = "conn"
	EventHoStart  = "ho_start"
	EventHoEndOk  = "ho_end_ok"
	EventMobility = "mobility"
	EventFlows    = "flows"
)

// maxTraceLine bounds a single JSONL line; flows lines carry one sample per
// monitored flow and can get wide on large scenarios.
const maxTraceLine = 4 * 1024 * 1024

// TraceEvent is one line of a recorded trace. Kind selects which fields
// are meaningful; unused fields stay at their zero values and are omitted
// when serializing.
type TraceEvent struct {
	Kind string  `json:"kind"`
	Time float64 `json:"time,omitempty"`

	// cell registration
	Cell *ran.CellRecord `json:"cell,omitempty"`

	// ue registration, rrc events, mobility
	Imsi         uint64 `json:"imsi,omitempty"`
	NodeID       uint32 `json:"node_id,omitempty"`
	CellID       uint16 `json:"cell_id,omitempty"`
	Rnti         uint16 `json:"rnti,omitempty"`
	SourceCellID uint16 `json:"source_cell_id,omitempty"`
	TargetCellID uint16 `json:"target_cell_id,omitempty"`

	// Context carries the raw trace-context path for mobility lines
	// recorded straight from a simulator hook; when set it overrides
	// NodeID.
	Context string `json:"context,omitempty"`

	// measurement report
	Meas *ran.MeasurementReport `json:"meas,omitempty"`

	// mobility
	Position *ran.Vector `json:"position,omitempty"`
	Velocity *ran.Vector `json:"velocity,omitempty"`

	// flow monitor tick
	Flows []ran.FlowSample `json:"flows,omitempty"`
}

// Replayer feeds recorded events to an Analyzer in file order. With pacing
// enabled it sleeps the simulated-time delta between events so demos run at
// roughly real speed; otherwise it replays as fast as the engine accepts.
type Replayer struct {
	analyzer *ran.Analyzer
	pacing   bool
	clock    timeutil.Clock
	lastTime float64
}

// NewReplayer creates a replayer bound to the given analyzer.
func NewReplayer(a *ran.Analyzer, pacing bool) *Replayer {
	return &Replayer{analyzer: a, pacing: pacing, clock: timeutil.SystemClock{}}
}

// LastEventTime returns the largest timestamp applied so far. Hosts
// finalize at this time when the trace carries no explicit end marker.
func (r *Replayer) LastEventTime() float64 {
	return r.lastTime
}

// ReplayFile replays a JSONL trace from disk. Returns the number of events
// applied.
func (r *Replayer) ReplayFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()
	n, err := r.Replay(ctx, f)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Replay reads JSONL events and applies them in order. Blank lines are
// skipped; a malformed line or unknown kind aborts the replay with the
// line number.
func (r *Replayer) Replay(ctx context.Context, rd io.Reader) (int, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxTraceLine)

	applied := 0
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var ev TraceEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return applied, fmt.Errorf("line %d: %w", line, err)
		}
		if err := r.Apply(ctx, ev); err != nil {
			return applied, fmt.Errorf("line %d: %w", line, err)
		}
		applied++
	}
	if err := sc.Err(); err != nil {
		return applied, fmt.Errorf("read trace: %w", err)
	}
	return applied, nil
}

// ReplayEvents applies an in-memory event list, as produced by
// SyntheticTrace.
func (r *Replayer) ReplayEvents(ctx context.Context, events []TraceEvent) (int, error) {
	for i, ev := range events {
		if err := r.Apply(ctx, ev); err != nil {
			return i, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return len(events), nil
}

// Apply dispatches one event to the analyzer.
func (r *Replayer) Apply(ctx context.Context, ev TraceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.pace(ctx, ev.Time); err != nil {
		return err
	}

	switch ev.Kind {
	case EventCell:
		if ev.Cell == nil {
			return fmt.Errorf("cell event missing cell record")
		}
		r.analyzer.Registry().Register(*ev.Cell)
	case EventUe:
		r.analyzer.TrackUeNode(ev.Imsi, ev.NodeID)
	case EventMeas:
		if ev.Meas == nil {
			return fmt.Errorf("meas event missing report")
		}
		r.analyzer.OnMeasurementReport(*ev.Meas)
	case EventConn:
		r.analyzer.OnConnectionEstablished(ev.Time, ev.Imsi, ev.CellID, ev.Rnti)
	case EventHoStart:
		r.analyzer.OnHandoverStart(ev.Time, ev.Imsi, ev.SourceCellID, ev.TargetCellID, ev.Rnti)
	case EventHoEndOk:
		r.analyzer.OnHandoverEndOk(ev.Time, ev.Imsi, ev.CellID, ev.Rnti)
	case EventMobility:
		nodeID := ev.NodeID
		if ev.Context != "" {
			id, err := ParseContextNodeID(ev.Context)
			if err != nil {
				return err
			}
			nodeID = id
		}
		m := ran.MobilityUpdate{Time: ev.Time, NodeID: nodeID}
		if ev.Position != nil {
			m.Position = *ev.Position
		}
		if ev.Velocity != nil {
			m.Velocity = *ev.Velocity
		}
		r.analyzer.OnMobilityUpdate(m)
	case EventFlows:
		r.analyzer.OnFlowTick(ev.Flows)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

// pace sleeps the simulated delta since the previous timed event. Events
// without a timestamp (cell and ue declarations) never pace.
func (r *Replayer) pace(ctx context.Context, t float64) error {
	if t <= 0 {
		return nil
	}
	if r.pacing && r.lastTime > 0 && t > r.lastTime {
		timer := r.clock.NewTimer(time.Duration((t - r.lastTime) * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C():
		}
	}
	if t > r.lastTime {
		r.lastTime = t
	}
	return nil
}

// WriteTrace serializes events as JSONL, the format Replay reads back.
func WriteTrace(w io.Writer, events []TraceEvent) error {
	enc := json.NewEncoder(w)
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}
