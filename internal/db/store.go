package db

import (
	"encoding/json"
	"fmt"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

// Store binds a database to one run id and implements ran.Sink by inserting
// one row per record. The analyzer dispatches records from a single
// goroutine, so inserts never race each other.
type Store struct {
	db    *DB
	runID string
}

// NewRunStore inserts the runs row for runID and returns a Store that tags
// every record with it.
func (db *DB) NewRunStore(runID, label string) (*Store, error) {
	if _, err := db.Exec("INSERT INTO runs (run_id, label) VALUES (?, ?)", runID, label); err != nil {
		return nil, fmt.Errorf("creating run %s: %w", runID, err)
	}
	return &Store{db: db, runID: runID}, nil
}

// RunID returns the run this store writes under.
func (s *Store) RunID() string { return s.runID }

// WriteCells records the fixed cell topology for the run.
func (s *Store) WriteCells(cells []ran.CellRecord) error {
	for _, c := range cells {
		_, err := s.db.Exec(`INSERT INTO cells (
				run_id, cell_id, node_id, class, pos_x, pos_y, pos_z, tx_power_dbm
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.runID, c.CellID, c.NodeID, string(c.Class),
			c.Position.X, c.Position.Y, c.Position.Z, c.TxPowerDbm)
		if err != nil {
			return fmt.Errorf("inserting cell %d: %w", c.CellID, err)
		}
	}
	return nil
}

func (s *Store) RecordMeasurement(m ran.MeasurementSample) error {
	var neighbors []byte
	if len(m.Neighbors) > 0 {
		var err error
		neighbors, err = json.Marshal(m.Neighbors)
		if err != nil {
			return fmt.Errorf("encoding neighbors: %w", err)
		}
	}
	_, err := s.db.Exec(`INSERT INTO measurements (
			run_id, time, imsi, cell_id, class, rnti, meas_id, event,
			rsrp_q, rsrq_q, rsrp_dbm, rsrq_db, neighbors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, m.Time, m.Imsi, m.CellID, string(m.Class), m.Rnti, m.MeasID,
		string(m.Trigger), m.RsrpQ, m.RsrqQ, m.RsrpDbm, m.RsrqDb, string(neighbors))
	return err
}

func (s *Store) RecordConnection(c ran.ConnectionEvent) error {
	_, err := s.db.Exec(`INSERT INTO connections (
			run_id, time, imsi, cell_id, class, rnti
		) VALUES (?, ?, ?, ?, ?, ?)`,
		s.runID, c.Time, c.Imsi, c.CellID, string(c.Class), c.Rnti)
	return err
}

func (s *Store) RecordHandover(h ran.HandoverEvent) error {
	_, err := s.db.Exec(`INSERT INTO handovers (
			run_id, kind, time, imsi, rnti,
			source_cell_id, source_class, target_cell_id, target_class
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, string(h.Kind), h.Time, h.Imsi, h.Rnti,
		h.SourceCellID, string(h.SourceClass), h.TargetCellID, string(h.TargetClass))
	return err
}

func (s *Store) RecordIncident(i ran.SecurityIncident) error {
	_, err := s.db.Exec(`INSERT INTO incidents (
			run_id, time, kind, imsi, cell_id, rnti,
			serving_cell_id, rsrp_dbm, serving_rsrp_dbm,
			source_cell_id, target_cell_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, i.Time, string(i.Kind), i.Imsi, i.CellID, i.Rnti,
		i.ServingCellID, i.RsrpDbm, i.ServingRsrpDbm,
		i.SourceCellID, i.TargetCellID)
	return err
}

func (s *Store) RecordFlowRate(f ran.FlowRateRecord) error {
	_, err := s.db.Exec(`INSERT INTO flow_rates (
			run_id, time, flow_id, throughput_mbps, delay_ms, jitter_ms,
			loss_percent, rx_packets, tx_packets
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, f.Time, f.FlowID, f.ThroughputMbps, f.DelayMs, f.JitterMs,
		f.LossPercent, f.RxPackets, f.TxPackets)
	return err
}

func (s *Store) RecordMobility(m ran.MobilityUpdate) error {
	_, err := s.db.Exec(`INSERT INTO mobility (
			run_id, time, node_id, pos_x, pos_y, pos_z,
			vel_x, vel_y, vel_z, speed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, m.Time, m.NodeID, m.Position.X, m.Position.Y, m.Position.Z,
		m.Velocity.X, m.Velocity.Y, m.Velocity.Z, m.Speed())
	return err
}
