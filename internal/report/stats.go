package report

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

// Descriptive summarizes one series. StdDev is the sample standard
// deviation and stays zero until the series has at least two values.
type Descriptive struct {
	Count  int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
}

// Describe computes descriptive statistics for a series. An empty series
// yields the zero value.
func Describe(values []float64) Descriptive {
	if len(values) == 0 {
		return Descriptive{}
	}
	d := Descriptive{
		Count: len(values),
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) > 1 {
		d.StdDev = stat.StdDev(values, nil)
	}
	return d
}

// SignalReport holds serving-cell signal statistics for a run: RSRP and
// RSRQ over all reports, plus serving RSRP broken down by cell class.
type SignalReport struct {
	Rsrp    Descriptive
	Rsrq    Descriptive
	ByClass map[ran.CellClass]Descriptive
}

// Classes returns the breakdown keys in a stable order.
func (r SignalReport) Classes() []ran.CellClass {
	out := make([]ran.CellClass, 0, len(r.ByClass))
	for class := range r.ByClass {
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AnalyzeSignal pools the serving-cell RSRP/RSRQ values of the given
// measurement samples. Neighbor entries are not included; they carry
// quantized values only and the serving series is what the run-level
// signal quality picture is built from.
func AnalyzeSignal(samples []ran.MeasurementSample) SignalReport {
	rsrp := make([]float64, 0, len(samples))
	rsrq := make([]float64, 0, len(samples))
	byClass := make(map[ran.CellClass][]float64)
	for _, s := range samples {
		rsrp = append(rsrp, s.RsrpDbm)
		rsrq = append(rsrq, s.RsrqDb)
		byClass[s.Class] = append(byClass[s.Class], s.RsrpDbm)
	}

	out := SignalReport{
		Rsrp:    Describe(rsrp),
		Rsrq:    Describe(rsrq),
		ByClass: make(map[ran.CellClass]Descriptive, len(byClass)),
	}
	for class, values := range byClass {
		out.ByClass[class] = Describe(values)
	}
	return out
}

// FlowReport holds QoS statistics over the summarized flow records of a
// run. ActiveFlows counts distinct flow ids; the series statistics pool
// every record, so a flow sampled ten times contributes ten points.
type FlowReport struct {
	ActiveFlows int
	Throughput  Descriptive
	DelayMs     Descriptive
	LossPercent Descriptive
}

// AnalyzeFlows summarizes the QoS series of a run.
func AnalyzeFlows(records []ran.FlowRateRecord) FlowReport {
	throughput := make([]float64, 0, len(records))
	delay := make([]float64, 0, len(records))
	loss := make([]float64, 0, len(records))
	flows := make(map[uint32]struct{})
	for _, r := range records {
		throughput = append(throughput, r.ThroughputMbps)
		delay = append(delay, r.DelayMs)
		loss = append(loss, r.LossPercent)
		flows[r.FlowID] = struct{}{}
	}
	return FlowReport{
		ActiveFlows: len(flows),
		Throughput:  Describe(throughput),
		DelayMs:     Describe(delay),
		LossPercent: Describe(loss),
	}
}

// ueSeries is the per-UE slice of a run used by the summary and the
// timeline chart: serving RSRP samples keyed by imsi, sample order
// preserved.
func ueSeries(samples []ran.MeasurementSample) map[uint64][]ran.MeasurementSample {
	out := make(map[uint64][]ran.MeasurementSample)
	for _, s := range samples {
		out[s.Imsi] = append(out[s.Imsi], s)
	}
	return out
}

func sortedImsis[V any](m map[uint64]V) []uint64 {
	out := make([]uint64, 0, len(m))
	for imsi := range m {
		out = append(out, imsi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
