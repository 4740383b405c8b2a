package ns3

import "github.com/emsaumay/ns3-kb/internal/ran"

// SyntheticTrace returns a deterministic demo scenario: three cells on a
// line (legitimate at x=0, low-power faulty at x=500, high-power rogue at
// x=1000) and one UE driving east at 30 m/s past all of them. The walk
// exercises every record kind and every incident kind: a handover into the
// faulty cell, a superseded handover toward the rogue, rogue signals above
// the margin (plus one exactly at it, which must not fire), an attach
// attempt on the rogue, and one handover left unresolved for Finalize to
// sweep. Fixture values only; no propagation model behind them.
func SyntheticTrace() []TraceEvent {
	ue := uint64(1)

	events := []TraceEvent{
		{Kind: EventCell, Cell: &ran.CellRecord{CellID: 1, NodeID: 0, Class: ran.ClassLegitimate, Position: ran.Vector{X: 0}, TxPowerDbm: 43}},
		{Kind: EventCell, Cell: &ran.CellRecord{CellID: 2, NodeID: 1, Class: ran.ClassFaulty, Position: ran.Vector{X: 500}, TxPowerDbm: 25}},
		{Kind: EventCell, Cell: &ran.CellRecord{CellID: 3, NodeID: 2, Class: ran.ClassRogue, Position: ran.Vector{X: 1000}, TxPowerDbm: 40}},
		{Kind: EventUe, Imsi: ue, NodeID: 3},

		move(0),
		{Kind: EventConn, Time: 0.3, Imsi: ue, CellID: 1, Rnti: 1},

		meas(2.0, ue, 1, 1, 1, 70, 25),

		flows(5.0, 220, 216, 221184, 4.98, 2.16, 0.215),
		move(5),
		meas(6.0, ue, 1, 1, 1, 60, 22, nb(2, 30, 8)),

		flows(10.0, 470, 462, 473088, 9.98, 4.85, 0.46),
		move(10),
		meas(10.0, ue, 1, 1, 1, 52, 18, nb(2, 35, 10), nb(3, 40, 12)),

		{Kind: EventHoStart, Time: 12.0, Imsi: ue, SourceCellID: 1, TargetCellID: 2, Rnti: 1},
		{Kind: EventHoEndOk, Time: 12.5, Imsi: ue, CellID: 2, Rnti: 2},

		// rogue at -85 dBm against serving -102 dBm: above the margin
		meas(14.0, ue, 2, 2, 2, 38, 11, nb(3, 55, 20)),

		flows(15.0, 720, 690, 706560, 14.96, 7.59, 0.72),
		move(15),

		// superseded: the 2->3 start fails when 2->1 starts
		{Kind: EventHoStart, Time: 16.0, Imsi: ue, SourceCellID: 2, TargetCellID: 3, Rnti: 2},
		{Kind: EventHoStart, Time: 18.0, Imsi: ue, SourceCellID: 2, TargetCellID: 1, Rnti: 2},
		{Kind: EventHoEndOk, Time: 18.6, Imsi: ue, CellID: 1, Rnti: 3},

		flows(20.0, 970, 936, 958464, 19.97, 10.3, 0.95),
		move(20),
		// rogue at -92 dBm against serving -95 dBm: exactly the margin, no incident
		meas(20.0, ue, 1, 3, 3, 45, 15, nb(3, 48, 16)),

		meas(24.0, ue, 1, 3, 3, 30, 9, nb(3, 60, 24)),

		flows(25.0, 1220, 1180, 1208320, 24.98, 13.0, 1.18),
		move(25),

		// left pending; Finalize resolves it as failed
		{Kind: EventHoStart, Time: 26.0, Imsi: ue, SourceCellID: 1, TargetCellID: 3, Rnti: 3},

		{Kind: EventConn, Time: 30.0, Imsi: ue, CellID: 3, Rnti: 7},
		flows(30.0, 1470, 1418, 1452032, 29.97, 15.9, 1.42),
		move(30),

		meas(32.0, ue, 1, 3, 3, 24, 6, nb(3, 65, 26)),
		move(35),
	}
	return events
}

// SyntheticEndTime is when the synthetic walk ends; pass it to Finalize.
const SyntheticEndTime = 40.0

func nb(cellID uint16, rsrpQ, rsrqQ int) ran.NeighborMeasurement {
	return ran.NeighborMeasurement{CellID: cellID, RsrpQ: rsrpQ, RsrqQ: rsrqQ}
}

func meas(t float64, imsi uint64, cellID, rnti uint16, measID uint8, rsrpQ, rsrqQ int, neighbors ...ran.NeighborMeasurement) TraceEvent {
	return TraceEvent{
		Kind: EventMeas,
		Time: t,
		Meas: &ran.MeasurementReport{
			Time:      t,
			Imsi:      imsi,
			CellID:    cellID,
			Rnti:      rnti,
			MeasID:    measID,
			RsrpQ:     rsrpQ,
			RsrqQ:     rsrqQ,
			Neighbors: neighbors,
		},
	}
}

// move places the demo UE on its 30 m/s eastbound track from x=-100.
func move(t float64) TraceEvent {
	return TraceEvent{
		Kind:     EventMobility,
		Time:     t,
		NodeID:   3,
		Position: &ran.Vector{X: -100 + 30*t},
		Velocity: &ran.Vector{X: 30},
	}
}

func flows(t float64, tx, rx, rxBytes uint64, lastRx, delaySum, jitterSum float64) TraceEvent {
	return TraceEvent{
		Kind: EventFlows,
		Time: t,
		Flows: []ran.FlowSample{{
			Time:        t,
			FlowID:      1,
			TxPackets:   tx,
			RxPackets:   rx,
			RxBytes:     rxBytes,
			FirstTxTime: 0.6,
			LastRxTime:  lastRx,
			DelaySum:    delaySum,
			JitterSum:   jitterSum,
		}},
	}
}
