// Command ranwatch replays an LTE control-plane event trace through the
// analysis engine and serves a live monitor while doing so. Handover
// lifecycle tracking, rogue/faulty cell incident detection, and flow QoS
// summaries run over the replayed events; records fan out to an in-memory
// collector and, when enabled, CSV files, a sqlite store, prometheus
// metrics, and a Kafka incident topic. On completion the run is finalized
// and summarized to stdout, with optional PNG charts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/emsaumay/ns3-kb/internal/config"
	"github.com/emsaumay/ns3-kb/internal/db"
	"github.com/emsaumay/ns3-kb/internal/kafkabus"
	"github.com/emsaumay/ns3-kb/internal/monitor"
	"github.com/emsaumay/ns3-kb/internal/ns3"
	"github.com/emsaumay/ns3-kb/internal/ran"
	"github.com/emsaumay/ns3-kb/internal/report"
	"github.com/emsaumay/ns3-kb/internal/security"
	"github.com/emsaumay/ns3-kb/internal/trace"
	"github.com/emsaumay/ns3-kb/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "HTTP listen address for the monitor")
	replayFile   = flag.String("replay", "", "Path to a JSONL event trace to replay")
	synthetic    = flag.Bool("synthetic", false, "Replay the built-in demo scenario instead of a trace file")
	serve        = flag.Bool("serve", false, "Keep the monitor running after the replay completes")
	dbFile       = flag.String("db", "ranwatch.db", "Path to the SQLite database file (empty disables the store)")
	traceDir     = flag.String("trace-dir", "", "Directory for CSV record output (empty disables)")
	chartDir     = flag.String("out", "", "Base directory for end-of-run charts (empty disables)")
	configFile   = flag.String("config", "", "Path to a tuning config JSON file")
	runLabel     = flag.String("label", "", "Label stored with the run row")
	kafkaBrokers = flag.String("kafka-brokers", "", "Comma-separated Kafka brokers for incident publishing (empty disables)")
	kafkaTopic   = flag.String("kafka-topic", kafkabus.DefaultIncidentTopic, "Kafka topic for incident publishing")
	showVersion  = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("ranwatch %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	// The migrate subcommand manages the schema and exits on its own.
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbFile)
		return
	}

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}
	if *replayFile != "" && *synthetic {
		log.Fatal("-replay and -synthetic are mutually exclusive")
	}
	if *replayFile == "" && !*synthetic && !*serve {
		log.Fatal("nothing to do: provide -replay, -synthetic, or -serve")
	}

	tuning := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configFile)
	}

	// The run id is minted before the analyzer so per-run sinks can tag
	// their output with it.
	runID := uuid.New().String()

	registry := ran.NewRegistry()
	collector := ran.NewCollector(tuning.GetEventRingSize())
	sinks := ran.MultiSink{collector}

	var traceWriter *trace.Writer
	if tuning.GetTraceEnabled() && *traceDir != "" {
		var err error
		traceWriter, err = trace.OpenDir(*traceDir)
		if err != nil {
			log.Fatalf("Failed to open trace directory: %v", err)
		}
		defer traceWriter.Close()
		if err := traceWriter.WriteHeaders(); err != nil {
			log.Fatalf("Failed to write trace headers: %v", err)
		}
		sinks = append(sinks, traceWriter)
		log.Printf("CSV record output enabled in %s", *traceDir)
	}

	var database *db.DB
	var store *db.Store
	if tuning.GetStoreEnabled() && *dbFile != "" {
		var err error
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		store, err = database.NewRunStore(runID, *runLabel)
		if err != nil {
			log.Fatalf("Failed to create run store: %v", err)
		}
		sinks = append(sinks, store)
	}

	var metrics *monitor.Metrics
	if tuning.GetMetricsEnabled() {
		metrics = monitor.NewMetrics()
		sinks = append(sinks, metrics)
	}

	if *kafkaBrokers != "" {
		bus := kafkabus.New(kafkabus.Config{
			Brokers:       strings.Split(*kafkaBrokers, ","),
			IncidentTopic: *kafkaTopic,
		}, slog.Default())
		publisher := kafkabus.NewIncidentPublisher(bus, runID)
		defer publisher.Close()
		sinks = append(sinks, publisher)
		log.Printf("Kafka incident publishing enabled (topic %s)", bus.IncidentTopic())
	}

	analyzer := ran.NewAnalyzer(ran.AnalyzerConfig{
		RunID:               runID,
		Registry:            registry,
		Sink:                sinks,
		RogueSignalMarginDb: tuning.GetRogueSignalMarginDb(),
	})
	log.Printf("Run %s starting", runID)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Monitor webserver goroutine
	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   *listen,
		Analyzer:  analyzer,
		Registry:  registry,
		Collector: collector,
		Metrics:   metrics,
		DB:        database,
		Source:    sourceName(),
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("monitor server error: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// Replay goroutine: drives the analyzer, then finalizes and reports.
	// Without -serve it also brings the monitor down when done.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if !*serve {
			defer stop()
		}

		endTime, replayed := runReplay(ctx, analyzer)
		if !replayed {
			return
		}

		stats := analyzer.Finalize(endTime)
		finishRun(stats, endTime, database, store, traceWriter, registry)

		report.WriteSummary(os.Stdout, report.Input{
			Stats:        stats,
			EndTime:      endTime,
			Ues:          analyzer.UeStates(),
			Cells:        registry.Cells(),
			Measurements: collector.Measurements(),
			Flows:        collector.FlowRates(),
		})
		writeCharts(stats, endTime, analyzer, registry, collector)

		if *serve {
			log.Printf("Replay complete; monitor still serving on %s", *listen)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// sourceName labels the monitor status page with what fed this run.
func sourceName() string {
	switch {
	case *synthetic:
		return "synthetic"
	case *replayFile != "":
		return filepath.Base(*replayFile)
	default:
		return "idle"
	}
}

// runReplay applies the selected event source and returns the finalize
// time. A replay aborted mid-trace still finalizes with what was applied.
func runReplay(ctx context.Context, analyzer *ran.Analyzer) (float64, bool) {
	replayer := ns3.NewReplayer(analyzer, false)

	switch {
	case *synthetic:
		n, err := replayer.ReplayEvents(ctx, ns3.SyntheticTrace())
		if err != nil {
			log.Printf("synthetic replay aborted after %d events: %v", n, err)
		} else {
			log.Printf("Replayed %d synthetic events", n)
		}
		return ns3.SyntheticEndTime, true

	case *replayFile != "":
		n, err := replayer.ReplayFile(ctx, *replayFile)
		if err != nil {
			log.Printf("replay aborted after %d events: %v", n, err)
		} else {
			log.Printf("Replayed %d events from %s", n, *replayFile)
		}
		return replayer.LastEventTime(), true
	}
	return 0, false
}

// finishRun writes the cell topology to the trace and store sinks, flushes
// the CSV writers, and stamps the run row. Failures here are logged, not
// fatal: the in-memory results still reach the summary.
func finishRun(stats ran.RunStats, endTime float64, database *db.DB, store *db.Store, traceWriter *trace.Writer, registry *ran.Registry) {
	cells := registry.Cells()

	if traceWriter != nil {
		if err := traceWriter.WriteCells(cells); err != nil {
			log.Printf("failed to write cell records: %v", err)
		}
		if err := traceWriter.Flush(); err != nil {
			log.Printf("failed to flush trace output: %v", err)
		}
	}

	if store != nil {
		if err := store.WriteCells(cells); err != nil {
			log.Printf("failed to store cell records: %v", err)
		}
	}
	if database == nil {
		return
	}
	if err := database.FinishRun(stats.RunID, endTime, stats.TotalHandovers, stats.IncidentTotal()); err != nil {
		log.Printf("failed to finish run row: %v", err)
	}
	if summary, err := database.RunSummary(stats.RunID); err != nil {
		log.Printf("failed to read run summary: %v", err)
	} else {
		log.Printf("Run %s stored: %d measurements, %d handovers, %d incidents",
			stats.RunID, summary["measurements"], summary["handovers"], summary["incidents"])
	}
}

// writeCharts renders the end-of-run PNGs under a per-run directory.
func writeCharts(stats ran.RunStats, endTime float64, analyzer *ran.Analyzer, registry *ran.Registry, collector *ran.Collector) {
	if *chartDir == "" {
		return
	}
	runDir := filepath.Join(*chartDir, security.SanitizeFilename(stats.RunID))
	cw, err := report.NewChartWriter(runDir)
	if err != nil {
		log.Printf("chart output disabled: %v", err)
		return
	}
	n, err := cw.WriteAll(report.Input{
		Stats:        stats,
		EndTime:      endTime,
		Ues:          analyzer.UeStates(),
		Cells:        registry.Cells(),
		Measurements: collector.Measurements(),
		Flows:        collector.FlowRates(),
	})
	if err != nil {
		log.Printf("chart rendering failed: %v", err)
		return
	}
	log.Printf("Wrote %d charts to %s", n, cw.OutDir())
}
