// Package report renders the end-of-run view of an analysis: a console
// summary block, descriptive signal and QoS statistics, and PNG charts
// written into a per-run output directory.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

// Input bundles everything the end-of-run summary draws from. Stats and
// Ues come from the analyzer; the record slices come from a Collector
// sink. EndTime is the run's finalize time in simulated seconds and is
// only printed when positive.
type Input struct {
	Stats        ran.RunStats
	EndTime      float64
	Ues          []ran.UeState
	Cells        []ran.CellRecord
	Measurements []ran.MeasurementSample
	Flows        []ran.FlowRateRecord
}

// WriteSummary prints the run summary block to w.
func WriteSummary(w io.Writer, in Input) {
	s := in.Stats

	fmt.Fprintln(w, "\n========== RAN Control-Plane Run Summary ==========")
	if s.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", s.RunID)
	}
	if in.EndTime > 0 {
		fmt.Fprintf(w, "Duration: %.2f seconds\n", in.EndTime)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total Handovers Attempted: %d\n", s.TotalHandovers)
	fmt.Fprintf(w, "Successful Handovers: %d\n", s.SuccessfulHandovers)
	fmt.Fprintf(w, "Failed Handovers: %d\n", s.FailedHandovers)
	fmt.Fprintf(w, "Pending Handovers: %d\n", s.PendingHandovers)
	fmt.Fprintf(w, "Rogue Attach Attempts: %d\n", s.RogueAttachAttempts)
	fmt.Fprintf(w, "Faulty Cell Handovers: %d\n", s.FaultyHandovers)
	if rate, ok := s.SuccessRate(); ok {
		fmt.Fprintf(w, "Handover Success Rate: %.2f%%\n", rate)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Measurement Reports: %d\n", s.MeasurementReports)
	fmt.Fprintf(w, "Connections Established: %d\n", s.Connections)
	fmt.Fprintf(w, "Flow Records: %d\n", s.FlowRecords)

	if len(s.Incidents) > 0 {
		fmt.Fprintln(w, "\nSecurity Incidents:")
		for _, kind := range sortedIncidentKinds(s.Incidents) {
			fmt.Fprintf(w, "  %s: %d\n", kind, s.Incidents[kind])
		}
	}

	if len(in.Cells) > 0 {
		fmt.Fprintln(w, "\nCell Classification:")
		for _, c := range in.Cells {
			fmt.Fprintf(w, "  Cell ID %d: %s (node %d, tx %.1f dBm)\n",
				c.CellID, c.Class, c.NodeID, c.TxPowerDbm)
		}
	}

	if sig := AnalyzeSignal(in.Measurements); sig.Rsrp.Count > 0 {
		fmt.Fprintln(w, "\nRSRP Statistics (dBm):")
		writeDescriptive(w, sig.Rsrp)
		fmt.Fprintln(w, "RSRQ Statistics (dB):")
		writeDescriptive(w, sig.Rsrq)
		fmt.Fprintln(w, "Serving RSRP by Cell Class:")
		for _, class := range sig.Classes() {
			d := sig.ByClass[class]
			fmt.Fprintf(w, "  %s: mean %.2f dBm (n=%d)\n", class, d.Mean, d.Count)
		}
	}

	if flow := AnalyzeFlows(in.Flows); flow.ActiveFlows > 0 {
		fmt.Fprintln(w, "\nThroughput Analysis:")
		fmt.Fprintf(w, "  Active Flows: %d\n", flow.ActiveFlows)
		fmt.Fprintf(w, "  Average Throughput: %.3f Mbps\n", flow.Throughput.Mean)
		fmt.Fprintf(w, "  Max Throughput: %.3f Mbps\n", flow.Throughput.Max)
		fmt.Fprintf(w, "  Average Delay: %.3f ms\n", flow.DelayMs.Mean)
		fmt.Fprintf(w, "  Average Packet Loss: %.2f%%\n", flow.LossPercent.Mean)
	}

	if len(in.Ues) > 0 {
		fmt.Fprintln(w, "\nPer-UE Analysis:")
		series := ueSeries(in.Measurements)
		for _, ue := range in.Ues {
			fmt.Fprintf(w, "UE IMSI %d:\n", ue.Imsi)
			fmt.Fprintf(w, "  Measurement Reports: %d\n", ue.MeasReports)
			fmt.Fprintf(w, "  A3 Events: %d\n", countA3(series[ue.Imsi]))
			fmt.Fprintf(w, "  Handovers: %d\n", ue.HandoverCount)
			fmt.Fprintf(w, "  Last Cell: %d (%s)\n", ue.LastCellID, ue.LastClass)
			if d := describeServingRsrp(series[ue.Imsi]); d.Count > 0 {
				fmt.Fprintf(w, "  Avg Serving RSRP: %.2f dBm\n", d.Mean)
				fmt.Fprintf(w, "  RSRP Range: %.2f to %.2f dBm\n", d.Min, d.Max)
			}
		}
	}

	fmt.Fprintln(w, "===================================================")
}

func writeDescriptive(w io.Writer, d Descriptive) {
	fmt.Fprintf(w, "  Mean: %.2f\n", d.Mean)
	fmt.Fprintf(w, "  Min: %.2f\n", d.Min)
	fmt.Fprintf(w, "  Max: %.2f\n", d.Max)
	fmt.Fprintf(w, "  Std: %.2f\n", d.StdDev)
}

func describeServingRsrp(samples []ran.MeasurementSample) Descriptive {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		values = append(values, s.RsrpDbm)
	}
	return Describe(values)
}

func countA3(samples []ran.MeasurementSample) int {
	n := 0
	for _, s := range samples {
		if s.Trigger == ran.TriggerA3 {
			n++
		}
	}
	return n
}

func sortedIncidentKinds(m map[ran.IncidentKind]int64) []ran.IncidentKind {
	out := make([]ran.IncidentKind, 0, len(m))
	for kind := range m {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
