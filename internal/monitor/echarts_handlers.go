package monitor

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/emsaumay/ns3-kb/internal/httputil"
	"github.com/emsaumay/ns3-kb/internal/ran"
)

// echartsAssetsPrefix is where chart pages load the echarts JS bundle from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridis ramp used by the visual maps.
var viridisColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// handleRsrpChart renders serving-cell RSRP over simulated time as a
// scatter, colored by level. This is a debugging-only endpoint (no auth) to
// eyeball signal trajectories without external tooling.
// Query params:
//   - imsi (optional) to restrict to one UE
func (ws *WebServer) handleRsrpChart(w http.ResponseWriter, r *http.Request) {
	samples := ws.collector.Measurements()
	if imsi := r.URL.Query().Get("imsi"); imsi != "" {
		filtered := samples[:0]
		for _, s := range samples {
			if fmt.Sprintf("%d", s.Imsi) == imsi {
				filtered = append(filtered, s)
			}
		}
		samples = filtered
	}
	if len(samples) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no measurement samples collected")
		return
	}

	data := make([]opts.ScatterData, 0, len(samples))
	minRsrp, maxRsrp := samples[0].RsrpDbm, samples[0].RsrpDbm
	for _, s := range samples {
		if s.RsrpDbm < minRsrp {
			minRsrp = s.RsrpDbm
		}
		if s.RsrpDbm > maxRsrp {
			maxRsrp = s.RsrpDbm
		}
		data = append(data, opts.ScatterData{Value: []interface{}{s.Time, s.RsrpDbm, s.Imsi}})
	}
	if maxRsrp == minRsrp {
		maxRsrp = minRsrp + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Serving RSRP", Theme: "dark", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Serving-cell RSRP", Subtitle: fmt.Sprintf("run=%s points=%d", ws.analyzer.RunID(), len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "RSRP (dBm)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minRsrp),
			Max:        float32(maxRsrp),
			Dimension:  "1",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)

	scatter.AddSeries("serving rsrp", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleHandoverChart renders a bar chart of handover lifecycle counts.
func (ws *WebServer) handleHandoverChart(w http.ResponseWriter, r *http.Request) {
	stats := ws.analyzer.Stats()

	x := []string{"Started", "Succeeded", "Failed", "Pending"}
	y := []opts.BarData{
		{Value: stats.TotalHandovers},
		{Value: stats.SuccessfulHandovers},
		{Value: stats.FailedHandovers},
		{Value: stats.PendingHandovers},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Handovers", Subtitle: time.Now().Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("handovers", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleIncidentChart renders a bar chart of security incident counts per kind.
func (ws *WebServer) handleIncidentChart(w http.ResponseWriter, r *http.Request) {
	stats := ws.analyzer.Stats()

	kinds := []ran.IncidentKind{
		ran.IncidentStrongRogueSignal,
		ran.IncidentRogueAttachAttempt,
		ran.IncidentFaultyCellHandover,
		ran.IncidentRogueHandoverAttempt,
	}
	x := make([]string, 0, len(kinds))
	y := make([]opts.BarData, 0, len(kinds))
	for _, kind := range kinds {
		x = append(x, string(kind))
		y = append(y, opts.BarData{Value: stats.Incidents[kind]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Security incidents", Subtitle: fmt.Sprintf("total=%d", stats.IncidentTotal())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("incidents", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleFlowChart renders per-flow throughput over simulated time, colored
// by packet loss.
func (ws *WebServer) handleFlowChart(w http.ResponseWriter, r *http.Request) {
	flows := ws.collector.FlowRates()
	if len(flows) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no flow records collected")
		return
	}

	data := make([]opts.ScatterData, 0, len(flows))
	maxLoss := 0.0
	for _, f := range flows {
		if f.LossPercent > maxLoss {
			maxLoss = f.LossPercent
		}
		data = append(data, opts.ScatterData{Value: []interface{}{f.Time, f.ThroughputMbps, f.LossPercent}})
	}
	if maxLoss == 0 {
		maxLoss = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Flow throughput", Theme: "dark", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Flow throughput", Subtitle: fmt.Sprintf("run=%s points=%d", ws.analyzer.RunID(), len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "throughput (Mb/s)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxLoss),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)

	scatter.AddSeries("throughput", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleDebugDashboard renders a simple dashboard with iframes to the debug charts.
func (ws *WebServer) handleDebugDashboard(w http.ResponseWriter, r *http.Request) {
	safeRunID := html.EscapeString(ws.analyzer.RunID())

	doc := fmt.Sprintf(dashboardHTML, safeRunID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>ranwatch debug dashboard</title>
<style>
body { background: #1e1e1e; color: #d4d4d4; font-family: monospace; margin: 1em; }
h1 { color: #4ec9b0; }
iframe { border: 1px solid #3c3c3c; background: #1e1e1e; width: 48%%; height: 640px; }
</style>
</head>
<body>
<h1>run %s</h1>
<iframe src="/debug/charts/rsrp"></iframe>
<iframe src="/debug/charts/handovers"></iframe>
<iframe src="/debug/charts/incidents"></iframe>
<iframe src="/debug/charts/flows"></iframe>
</body>
</html>
`
