// Package monitor serves the live HTTP interface for a running analysis:
// a status page, JSON APIs over the analyzer's counters and recent records,
// debug charts, and the Prometheus metrics endpoint.
package monitor

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/emsaumay/ns3-kb/internal/db"
	"github.com/emsaumay/ns3-kb/internal/httputil"
	"github.com/emsaumay/ns3-kb/internal/ran"
)

//go:embed status.html
var StatusHTML embed.FS

// WebServer handles the HTTP interface for monitoring a run. All state is
// read through the analyzer, registry, and collector snapshots, so handlers
// never block event dispatch.
type WebServer struct {
	address   string
	analyzer  *ran.Analyzer
	registry  *ran.Registry
	collector *ran.Collector
	metrics   *Metrics
	db        *db.DB
	source    string
	startedAt time.Time
	server    *http.Server
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address   string
	Analyzer  *ran.Analyzer
	Registry  *ran.Registry
	Collector *ran.Collector
	Metrics   *Metrics
	DB        *db.DB
	Source    string
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		analyzer:  config.Analyzer,
		registry:  config.Registry,
		collector: config.Collector,
		metrics:   config.Metrics,
		db:        config.DB,
		source:    config.Source,
		startedAt: time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	// Create a shutdown context with a shorter timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/ues", ws.handleUes)
	mux.HandleFunc("/api/cells", ws.handleCells)
	mux.HandleFunc("/api/incidents", ws.handleIncidents)
	mux.HandleFunc("/api/handovers", ws.handleHandovers)
	mux.HandleFunc("/api/measurements", ws.handleMeasurements)
	mux.HandleFunc("/api/flows", ws.handleFlows)
	mux.HandleFunc("/api/runs", ws.handleRuns)

	mux.HandleFunc("/debug/charts/rsrp", ws.handleRsrpChart)
	mux.HandleFunc("/debug/charts/handovers", ws.handleHandoverChart)
	mux.HandleFunc("/debug/charts/incidents", ws.handleIncidentChart)
	mux.HandleFunc("/debug/charts/flows", ws.handleFlowChart)
	mux.HandleFunc("/debug/dashboard", ws.handleDebugDashboard)

	if ws.metrics != nil {
		mux.Handle("/metrics", ws.metrics.Handler())
	}
	if ws.db != nil {
		ws.db.AttachAdminRoutes(mux)
	}

	return mux
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "ranwatch", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus handles the main status page endpoint
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	storeStatus := "disabled"
	if ws.db != nil {
		storeStatus = "enabled"
	}
	metricsStatus := "disabled"
	if ws.metrics != nil {
		metricsStatus = "enabled"
	}

	// Load and parse the HTML template from embedded filesystem
	tmpl, err := template.ParseFS(StatusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stats := ws.analyzer.Stats()
	rate, rateKnown := stats.SuccessRate()

	// Template data
	data := struct {
		RunID         string
		Source        string
		HTTPAddress   string
		Uptime        string
		StoreStatus   string
		MetricsStatus string
		Stats         ran.RunStats
		IncidentTotal int64
		SuccessRate   float64
		RateKnown     bool
		Cells         []ran.CellRecord
	}{
		RunID:         ws.analyzer.RunID(),
		Source:        ws.source,
		HTTPAddress:   ws.address,
		Uptime:        time.Since(ws.startedAt).Round(time.Second).String(),
		StoreStatus:   storeStatus,
		MetricsStatus: metricsStatus,
		Stats:         stats,
		IncidentTotal: stats.IncidentTotal(),
		SuccessRate:   rate,
		RateKnown:     rateKnown,
		Cells:         ws.registry.Cells(),
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleStats returns the analyzer counter snapshot.
func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, ws.analyzer.Stats())
}

// handleUes returns the per-UE state table sorted by imsi.
func (ws *WebServer) handleUes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, ws.analyzer.UeStates())
}

// handleCells returns the registered cell topology.
func (ws *WebServer) handleCells(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, ws.registry.Cells())
}

// limitParam parses the optional limit query parameter, defaulting to def
// and capping at 1000.
func limitParam(r *http.Request, def int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	return limit
}

// handleIncidents returns the most recent security incidents.
// Query params:
//
//	limit (optional, default 100)
func (ws *WebServer) handleIncidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, tail(ws.collector.Incidents(), limitParam(r, 100)))
}

// handleHandovers returns the most recent handover lifecycle records.
// Query params:
//
//	limit (optional, default 100)
func (ws *WebServer) handleHandovers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, tail(ws.collector.Handovers(), limitParam(r, 100)))
}

// handleMeasurements returns recent measurement samples, optionally for a
// single UE.
// Query params:
//
//	imsi (optional)
//	limit (optional, default 200)
func (ws *WebServer) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	samples := ws.collector.Measurements()
	if imsiStr := r.URL.Query().Get("imsi"); imsiStr != "" {
		imsi, err := strconv.ParseUint(imsiStr, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid 'imsi' parameter")
			return
		}
		filtered := samples[:0]
		for _, s := range samples {
			if s.Imsi == imsi {
				filtered = append(filtered, s)
			}
		}
		samples = filtered
	}
	httputil.WriteJSONOK(w, tail(samples, limitParam(r, 200)))
}

// handleFlows returns recent flow QoS records.
// Query params:
//
//	limit (optional, default 200)
func (ws *WebServer) handleFlows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, tail(ws.collector.FlowRates(), limitParam(r, 200)))
}

// handleRuns lists stored runs from the backing database.
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.db == nil {
		httputil.InternalServerError(w, "no database configured for run lookup")
		return
	}
	runs, err := ws.db.Runs(limitParam(r, 50))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

// tail keeps the newest n entries of a chronologically ordered slice.
func tail[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
