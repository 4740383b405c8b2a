// Package main provides a flow extraction tool for packet captures.
// It groups UDP and TCP packets into five-tuple flows, derives per-flow
// throughput with the same summariser the live analyzer uses, and prints
// a console report with optional CSV and JSON export.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/emsaumay/ns3-kb/internal/ran"
	"github.com/emsaumay/ns3-kb/internal/report"
)

// Config holds configuration for one extraction pass.
type Config struct {
	PCAPFile   string
	OutputDir  string
	ExportCSV  bool
	ExportJSON bool
	UDPOnly    bool
	Verbose    bool
}

// FlowExport describes one five-tuple flow recovered from the capture.
// Times are seconds relative to the first counted packet.
type FlowExport struct {
	FlowID         uint32  `json:"flow_id"`
	Proto          string  `json:"proto"`
	Src            string  `json:"src"`
	Dst            string  `json:"dst"`
	Packets        uint64  `json:"packets"`
	PayloadBytes   uint64  `json:"payload_bytes"`
	FirstTime      float64 `json:"first_time_secs"`
	LastTime       float64 `json:"last_time_secs"`
	ThroughputMbps float64 `json:"throughput_mbps,omitempty"`
}

// FlowAnalysis holds the results of one capture pass.
type FlowAnalysis struct {
	PCAPFile       string               `json:"pcap_file"`
	DurationSecs   float64              `json:"duration_secs"`
	TotalPackets   int                  `json:"total_packets"`
	UDPPackets     int                  `json:"udp_packets"`
	TCPPackets     int                  `json:"tcp_packets"`
	SkippedPackets int                  `json:"skipped_packets"`
	Flows          []FlowExport         `json:"flows"`
	Rates          []ran.FlowRateRecord `json:"rates,omitempty"`
}

func main() {
	config := parseFlags()

	if config.PCAPFile == "" {
		fmt.Fprintln(os.Stderr, "Error: pcap file is required")
		flag.Usage()
		os.Exit(1)
	}

	if _, err := os.Stat(config.PCAPFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: pcap file not found: %s\n", config.PCAPFile)
		os.Exit(1)
	}

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	result, err := analyzePCAP(config)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	printSummary(result)

	if err := exportResults(config, result); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.PCAPFile, "pcap", "", "Path to pcap file (required, classic tcpdump format)")
	flag.StringVar(&config.OutputDir, "output", ".", "Output directory for exports")
	flag.BoolVar(&config.ExportCSV, "csv", true, "Export flows to CSV")
	flag.BoolVar(&config.ExportJSON, "json", false, "Export full results to JSON")
	flag.BoolVar(&config.UDPOnly, "udp-only", false, "Count UDP packets only")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flow extraction tool for offline packet captures\n\n")
		fmt.Fprintf(os.Stderr, "This tool reads a capture file and:\n")
		fmt.Fprintf(os.Stderr, "  1. Decodes UDP and TCP packets\n")
		fmt.Fprintf(os.Stderr, "  2. Groups them into five-tuple flows in first-seen order\n")
		fmt.Fprintf(os.Stderr, "  3. Derives per-flow throughput over each flow's active span\n")
		fmt.Fprintf(os.Stderr, "  4. Prints a summary and exports flows for offline analysis\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return config
}

type flowKey struct {
	proto string
	src   string
	dst   string
}

type flowState struct {
	id      uint32
	key     flowKey
	packets uint64
	bytes   uint64
	first   time.Time
	last    time.Time
}

func analyzePCAP(config Config) (*FlowAnalysis, error) {
	f, err := os.Open(config.PCAPFile)
	if err != nil {
		return nil, fmt.Errorf("open pcap file %s: %w", config.PCAPFile, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read pcap header: %w", err)
	}

	packetSource := gopacket.NewPacketSource(reader, reader.LinkType())

	result := &FlowAnalysis{PCAPFile: config.PCAPFile}
	flows := make(map[flowKey]*flowState)
	var order []*flowState
	var captureStart, captureEnd time.Time

	for packet := range packetSource.Packets() {
		result.TotalPackets++

		proto, payloadLen, src, dst, ok := transportInfo(packet, config.UDPOnly)
		if !ok {
			result.SkippedPackets++
			continue
		}
		switch proto {
		case "UDP":
			result.UDPPackets++
		case "TCP":
			result.TCPPackets++
		}

		ts := packet.Metadata().Timestamp
		if captureStart.IsZero() || ts.Before(captureStart) {
			captureStart = ts
		}
		if ts.After(captureEnd) {
			captureEnd = ts
		}

		key := flowKey{proto: proto, src: src, dst: dst}
		state := flows[key]
		if state == nil {
			state = &flowState{id: uint32(len(order) + 1), key: key, first: ts}
			flows[key] = state
			order = append(order, state)
		}
		state.packets++
		state.bytes += uint64(payloadLen)
		if ts.Before(state.first) {
			state.first = ts
		}
		if ts.After(state.last) {
			state.last = ts
		}

		if config.Verbose && result.TotalPackets%10000 == 0 {
			log.Printf("Processed %d packets, %d flows so far", result.TotalPackets, len(order))
		}
	}

	if !captureStart.IsZero() {
		result.DurationSecs = captureEnd.Sub(captureStart).Seconds()
	}

	for _, state := range order {
		first := state.first.Sub(captureStart).Seconds()
		last := state.last.Sub(captureStart).Seconds()

		export := FlowExport{
			FlowID:       state.id,
			Proto:        state.key.proto,
			Src:          state.key.src,
			Dst:          state.key.dst,
			Packets:      state.packets,
			PayloadBytes: state.bytes,
			FirstTime:    first,
			LastTime:     last,
		}

		// A single capture point observes each packet once, so the sample
		// carries identical tx and rx counters and no one-way delay.
		sample := ran.FlowSample{
			Time:        last,
			FlowID:      state.id,
			TxPackets:   state.packets,
			RxPackets:   state.packets,
			RxBytes:     state.bytes,
			FirstTxTime: first,
			LastRxTime:  last,
		}
		if rate, summarized := ran.SummarizeFlow(sample); summarized {
			export.ThroughputMbps = rate.ThroughputMbps
			result.Rates = append(result.Rates, rate)
		}
		result.Flows = append(result.Flows, export)
	}

	return result, nil
}

// transportInfo pulls the protocol name, payload size and endpoint pair out
// of a decoded packet. ok is false for packets the tool does not count.
func transportInfo(packet gopacket.Packet, udpOnly bool) (proto string, payload int, src, dst string, ok bool) {
	netLayer := packet.NetworkLayer()
	if netLayer == nil {
		return "", 0, "", "", false
	}
	netFlow := netLayer.NetworkFlow()

	if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp, isUDP := udpLayer.(*layers.UDP)
		if !isUDP {
			return "", 0, "", "", false
		}
		src = net.JoinHostPort(netFlow.Src().String(), strconv.Itoa(int(udp.SrcPort)))
		dst = net.JoinHostPort(netFlow.Dst().String(), strconv.Itoa(int(udp.DstPort)))
		return "UDP", len(udp.Payload), src, dst, true
	}
	if udpOnly {
		return "", 0, "", "", false
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp, isTCP := tcpLayer.(*layers.TCP)
		if !isTCP {
			return "", 0, "", "", false
		}
		src = net.JoinHostPort(netFlow.Src().String(), strconv.Itoa(int(tcp.SrcPort)))
		dst = net.JoinHostPort(netFlow.Dst().String(), strconv.Itoa(int(tcp.DstPort)))
		return "TCP", len(tcp.Payload), src, dst, true
	}

	return "", 0, "", "", false
}

func printSummary(result *FlowAnalysis) {
	fmt.Println("\n========== PCAP Flow Summary ==========")
	fmt.Printf("File: %s\n", result.PCAPFile)
	fmt.Printf("Capture span: %.3f seconds\n", result.DurationSecs)
	fmt.Printf("Packets: %d total (%d UDP, %d TCP, %d skipped)\n",
		result.TotalPackets, result.UDPPackets, result.TCPPackets, result.SkippedPackets)
	fmt.Printf("Flows: %d\n", len(result.Flows))

	if len(result.Flows) > 0 {
		fmt.Println("\nFlows:")
		for _, flow := range result.Flows {
			line := fmt.Sprintf("  Flow %d [%s] %s -> %s: %d packets, %d bytes, %.3f-%.3fs",
				flow.FlowID, flow.Proto, flow.Src, flow.Dst,
				flow.Packets, flow.PayloadBytes, flow.FirstTime, flow.LastTime)
			if flow.ThroughputMbps > 0 {
				line += fmt.Sprintf(", %.3f Mbps", flow.ThroughputMbps)
			}
			fmt.Println(line)
		}
	}

	if flowReport := report.AnalyzeFlows(result.Rates); flowReport.ActiveFlows > 0 {
		fmt.Println("\nThroughput:")
		fmt.Printf("  Mean: %.3f Mbps\n", flowReport.Throughput.Mean)
		fmt.Printf("  Min: %.3f Mbps\n", flowReport.Throughput.Min)
		fmt.Printf("  Max: %.3f Mbps\n", flowReport.Throughput.Max)
		fmt.Printf("  Std: %.3f Mbps\n", flowReport.Throughput.StdDev)
	}

	fmt.Println("=======================================")
}

func exportResults(config Config, result *FlowAnalysis) error {
	baseName := strings.TrimSuffix(filepath.Base(config.PCAPFile), filepath.Ext(config.PCAPFile))

	if config.ExportJSON {
		jsonPath := filepath.Join(config.OutputDir, baseName+"_flows.json")
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON marshal: %w", err)
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		fmt.Printf("JSON results: %s\n", jsonPath)
	}

	if config.ExportCSV && len(result.Flows) > 0 {
		csvPath := filepath.Join(config.OutputDir, baseName+"_flows.csv")
		if err := exportFlowsCSV(csvPath, result.Flows); err != nil {
			return fmt.Errorf("write CSV: %w", err)
		}
		fmt.Printf("CSV flows: %s\n", csvPath)
	}

	return nil
}

func exportFlowsCSV(path string, flows []FlowExport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"flow_id", "proto", "src", "dst", "packets",
		"payload_bytes", "first_time_secs", "last_time_secs", "throughput_mbps",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, flow := range flows {
		row := []string{
			strconv.FormatUint(uint64(flow.FlowID), 10),
			flow.Proto,
			flow.Src,
			flow.Dst,
			strconv.FormatUint(flow.Packets, 10),
			strconv.FormatUint(flow.PayloadBytes, 10),
			strconv.FormatFloat(flow.FirstTime, 'f', 6, 64),
			strconv.FormatFloat(flow.LastTime, 'f', 6, 64),
			strconv.FormatFloat(flow.ThroughputMbps, 'f', 3, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}
