package report

import (
	"math"
	"testing"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Descriptive
	}{
		{
			name:   "empty series",
			values: nil,
			want:   Descriptive{},
		},
		{
			name:   "single value has zero stddev",
			values: []float64{-85.0},
			want:   Descriptive{Count: 1, Mean: -85.0, Min: -85.0, Max: -85.0},
		},
		{
			name:   "symmetric pair",
			values: []float64{-80.0, -90.0},
			want: Descriptive{
				Count:  2,
				Mean:   -85.0,
				Min:    -90.0,
				Max:    -80.0,
				StdDev: math.Sqrt(50.0), // sample variance of {-80,-90} is 50
			},
		},
		{
			name:   "mixed order",
			values: []float64{3, 1, 2},
			want:   Descriptive{Count: 3, Mean: 2, Min: 1, Max: 3, StdDev: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.values)
			if got.Count != tt.want.Count {
				t.Errorf("Count = %d, want %d", got.Count, tt.want.Count)
			}
			if !almostEqual(got.Mean, tt.want.Mean) {
				t.Errorf("Mean = %v, want %v", got.Mean, tt.want.Mean)
			}
			if !almostEqual(got.Min, tt.want.Min) {
				t.Errorf("Min = %v, want %v", got.Min, tt.want.Min)
			}
			if !almostEqual(got.Max, tt.want.Max) {
				t.Errorf("Max = %v, want %v", got.Max, tt.want.Max)
			}
			if !almostEqual(got.StdDev, tt.want.StdDev) {
				t.Errorf("StdDev = %v, want %v", got.StdDev, tt.want.StdDev)
			}
		})
	}
}

func TestAnalyzeSignal(t *testing.T) {
	samples := []ran.MeasurementSample{
		{Imsi: 1, Class: ran.ClassLegitimate, RsrpDbm: -85, RsrqDb: -9.5},
		{Imsi: 1, Class: ran.ClassLegitimate, RsrpDbm: -95, RsrqDb: -11.5},
		{Imsi: 2, Class: ran.ClassFaulty, RsrpDbm: -120, RsrqDb: -14.5},
	}

	got := AnalyzeSignal(samples)

	if got.Rsrp.Count != 3 {
		t.Fatalf("Rsrp.Count = %d, want 3", got.Rsrp.Count)
	}
	if !almostEqual(got.Rsrp.Mean, -100.0) {
		t.Errorf("Rsrp.Mean = %v, want -100", got.Rsrp.Mean)
	}
	if !almostEqual(got.Rsrp.Min, -120.0) || !almostEqual(got.Rsrp.Max, -85.0) {
		t.Errorf("Rsrp range = [%v, %v], want [-120, -85]", got.Rsrp.Min, got.Rsrp.Max)
	}
	if got.Rsrq.Count != 3 {
		t.Errorf("Rsrq.Count = %d, want 3", got.Rsrq.Count)
	}

	if len(got.ByClass) != 2 {
		t.Fatalf("ByClass has %d entries, want 2", len(got.ByClass))
	}
	legit := got.ByClass[ran.ClassLegitimate]
	if legit.Count != 2 || !almostEqual(legit.Mean, -90.0) {
		t.Errorf("legitimate class = %+v, want count 2 mean -90", legit)
	}
	faulty := got.ByClass[ran.ClassFaulty]
	if faulty.Count != 1 || !almostEqual(faulty.Mean, -120.0) {
		t.Errorf("faulty class = %+v, want count 1 mean -120", faulty)
	}

	classes := got.Classes()
	if len(classes) != 2 || classes[0] != ran.ClassFaulty || classes[1] != ran.ClassLegitimate {
		t.Errorf("Classes() = %v, want [FAULTY LEGITIMATE]", classes)
	}
}

func TestAnalyzeSignalEmpty(t *testing.T) {
	got := AnalyzeSignal(nil)
	if got.Rsrp.Count != 0 || got.Rsrq.Count != 0 || len(got.ByClass) != 0 {
		t.Errorf("empty input produced %+v", got)
	}
}

func TestAnalyzeFlows(t *testing.T) {
	records := []ran.FlowRateRecord{
		{FlowID: 1, ThroughputMbps: 1.0, DelayMs: 10, LossPercent: 0},
		{FlowID: 1, ThroughputMbps: 3.0, DelayMs: 20, LossPercent: 2},
		{FlowID: 2, ThroughputMbps: 2.0, DelayMs: 30, LossPercent: 4},
	}

	got := AnalyzeFlows(records)

	if got.ActiveFlows != 2 {
		t.Errorf("ActiveFlows = %d, want 2", got.ActiveFlows)
	}
	if !almostEqual(got.Throughput.Mean, 2.0) {
		t.Errorf("Throughput.Mean = %v, want 2", got.Throughput.Mean)
	}
	if !almostEqual(got.Throughput.Max, 3.0) {
		t.Errorf("Throughput.Max = %v, want 3", got.Throughput.Max)
	}
	if !almostEqual(got.DelayMs.Mean, 20.0) {
		t.Errorf("DelayMs.Mean = %v, want 20", got.DelayMs.Mean)
	}
	if !almostEqual(got.LossPercent.Mean, 2.0) {
		t.Errorf("LossPercent.Mean = %v, want 2", got.LossPercent.Mean)
	}
}

func TestUeSeriesGroupsByImsi(t *testing.T) {
	samples := []ran.MeasurementSample{
		{Time: 1, Imsi: 1},
		{Time: 2, Imsi: 2},
		{Time: 3, Imsi: 1},
	}
	series := ueSeries(samples)
	if len(series) != 2 {
		t.Fatalf("series has %d keys, want 2", len(series))
	}
	if len(series[1]) != 2 || len(series[2]) != 1 {
		t.Errorf("series sizes = %d/%d, want 2/1", len(series[1]), len(series[2]))
	}

	imsis := sortedImsis(series)
	if len(imsis) != 2 || imsis[0] != 1 || imsis[1] != 2 {
		t.Errorf("sortedImsis = %v, want [1 2]", imsis)
	}
}
