package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/emsaumay/ns3-kb/internal/ran"
	"github.com/emsaumay/ns3-kb/internal/security"
)

// ChartWriter renders end-of-run PNG charts into a run output directory.
type ChartWriter struct {
	outDir string
}

// NewChartWriter resolves outDir to an absolute path and creates it.
func NewChartWriter(outDir string) (*ChartWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("no output directory configured")
	}
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &ChartWriter{outDir: abs}, nil
}

// OutDir returns the resolved output directory.
func (cw *ChartWriter) OutDir() string { return cw.outDir }

// chartPath joins a chart file name onto the output directory and verifies
// the result stays inside it. Run-derived name parts must pass through
// security.SanitizeFilename before reaching this point.
func (cw *ChartWriter) chartPath(name string) (string, error) {
	p := filepath.Join(cw.outDir, name)
	if err := security.ValidatePathWithinDirectory(p, cw.outDir); err != nil {
		return "", fmt.Errorf("invalid chart path %q: %w", name, err)
	}
	return p, nil
}

// WriteAll renders every chart the input has data for. Returns the number
// of files written.
func (cw *ChartWriter) WriteAll(in Input) (int, error) {
	count := 0
	if len(in.Measurements) > 0 {
		if err := cw.writeRsrpTimeline(in.Measurements); err != nil {
			return count, fmt.Errorf("rsrp timeline: %w", err)
		}
		count++
	}
	if in.Stats.TotalHandovers > 0 {
		if err := cw.writeHandoverOutcomes(in.Stats); err != nil {
			return count, fmt.Errorf("handover outcomes: %w", err)
		}
		count++
	}
	if len(in.Flows) > 0 {
		if err := cw.writeThroughputTimeline(in.Flows); err != nil {
			return count, fmt.Errorf("throughput timeline: %w", err)
		}
		count++
	}
	return count, nil
}

// writeRsrpTimeline draws one line per UE of serving RSRP over simulated
// time.
func (cw *ChartWriter) writeRsrpTimeline(samples []ran.MeasurementSample) error {
	p := plot.New()
	p.Title.Text = "Serving RSRP Timeline"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "RSRP (dBm)"

	series := ueSeries(samples)
	imsis := sortedImsis(series)
	colors := hslPalette(len(imsis))

	for i, imsi := range imsis {
		ueSamples := series[imsi]
		sort.Slice(ueSamples, func(a, b int) bool {
			return ueSamples[a].Time < ueSamples[b].Time
		})

		pts := make(plotter.XYs, 0, len(ueSamples))
		for _, s := range ueSamples {
			pts = append(pts, plotter.XY{X: s.Time, Y: s.RsrpDbm})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("IMSI %d", imsi), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	path, err := cw.chartPath("rsrp_timeline.png")
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save rsrp plot: %w", err)
	}
	return nil
}

// writeHandoverOutcomes draws the lifecycle counters as a bar chart.
func (cw *ChartWriter) writeHandoverOutcomes(s ran.RunStats) error {
	p := plot.New()
	p.Title.Text = "Handover Outcomes"
	p.Y.Label.Text = "Count"

	vals := plotter.Values{
		float64(s.TotalHandovers),
		float64(s.SuccessfulHandovers),
		float64(s.FailedHandovers),
		float64(s.PendingHandovers),
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(40))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 70, G: 120, B: 200, A: 255}
	p.Add(bars)
	p.NominalX("Started", "Succeeded", "Failed", "Pending")

	path, err := cw.chartPath("handover_outcomes.png")
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save handover plot: %w", err)
	}
	return nil
}

// writeThroughputTimeline draws one line per flow of throughput over
// simulated time.
func (cw *ChartWriter) writeThroughputTimeline(records []ran.FlowRateRecord) error {
	p := plot.New()
	p.Title.Text = "Flow Throughput"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Throughput (Mbps)"

	byFlow := make(map[uint32][]ran.FlowRateRecord)
	for _, r := range records {
		byFlow[r.FlowID] = append(byFlow[r.FlowID], r)
	}
	flowIDs := make([]uint32, 0, len(byFlow))
	for id := range byFlow {
		flowIDs = append(flowIDs, id)
	}
	sort.Slice(flowIDs, func(i, j int) bool { return flowIDs[i] < flowIDs[j] })
	colors := hslPalette(len(flowIDs))

	for i, id := range flowIDs {
		flowRecords := byFlow[id]
		sort.Slice(flowRecords, func(a, b int) bool {
			return flowRecords[a].Time < flowRecords[b].Time
		})

		pts := make(plotter.XYs, 0, len(flowRecords))
		for _, r := range flowRecords {
			pts = append(pts, plotter.XY{X: r.Time, Y: r.ThroughputMbps})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Flow %d", id), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	path, err := cw.chartPath("throughput.png")
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save throughput plot: %w", err)
	}
	return nil
}

// hslPalette returns n distinct line colors spread around the hue wheel.
func hslPalette(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	out := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
