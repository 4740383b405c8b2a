package ran

// FlowSample is one cumulative flow-statistics snapshot pulled from the
// external flow monitor. Byte and packet counts are totals since flow
// start; delay and jitter sums are in seconds.
type FlowSample struct {
	Time        float64 `json:"time"`
	FlowID      uint32  `json:"flow_id"`
	TxPackets   uint64  `json:"tx_packets"`
	RxPackets   uint64  `json:"rx_packets"`
	RxBytes     uint64  `json:"rx_bytes"`
	FirstTxTime float64 `json:"first_tx_time"`
	LastRxTime  float64 `json:"last_rx_time"`
	DelaySum    float64 `json:"delay_sum"`
	JitterSum   float64 `json:"jitter_sum"`
}

// FlowRateRecord is the derived per-flow QoS summary for one sample tick.
type FlowRateRecord struct {
	Time           float64 `json:"time"`
	FlowID         uint32  `json:"flow_id"`
	ThroughputMbps float64 `json:"throughput_mbps"`
	DelayMs        float64 `json:"delay_ms"`
	JitterMs       float64 `json:"jitter_ms"`
	LossPercent    float64 `json:"loss_percent"`
	RxPackets      uint64  `json:"rx_packets"`
	TxPackets      uint64  `json:"tx_packets"`
}

// SummarizeFlow derives a FlowRateRecord from a cumulative sample. Flows
// with no received packets, or whose first-tx/last-rx span is not positive,
// are skipped (ok=false); the summarizer never emits NaN or Inf.
func SummarizeFlow(s FlowSample) (FlowRateRecord, bool) {
	if s.RxPackets == 0 {
		return FlowRateRecord{}, false
	}
	span := s.LastRxTime - s.FirstTxTime
	if span <= 0 {
		return FlowRateRecord{}, false
	}

	rec := FlowRateRecord{
		Time:           s.Time,
		FlowID:         s.FlowID,
		ThroughputMbps: float64(s.RxBytes) * 8.0 / span / 1024.0 / 1024.0,
		DelayMs:        1000.0 * s.DelaySum / float64(s.RxPackets),
		RxPackets:      s.RxPackets,
		TxPackets:      s.TxPackets,
	}
	if s.RxPackets > 1 {
		rec.JitterMs = 1000.0 * s.JitterSum / float64(s.RxPackets-1)
	}
	if s.TxPackets > 0 {
		rec.LossPercent = 100.0 * (float64(s.TxPackets) - float64(s.RxPackets)) / float64(s.TxPackets)
	}
	return rec, true
}
