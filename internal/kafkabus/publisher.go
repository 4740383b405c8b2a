package kafkabus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/emsaumay/ns3-kb/internal/ran"
)

// incidentWriteTimeout bounds how long one incident publish may block the
// dispatch goroutine.
const incidentWriteTimeout = 5 * time.Second

// IncidentPayload is the JSON document written per incident. The run id
// lets consumers group alerts across replays.
type IncidentPayload struct {
	RunID    string               `json:"run_id"`
	Incident ran.SecurityIncident `json:"incident"`
	Summary  string               `json:"summary"`
}

// IncidentPublisher is a ran.Sink that forwards security incidents to the
// bus's incident topic. All other record kinds are discarded. Messages are
// keyed by imsi so per-UE ordering survives partitioning.
type IncidentPublisher struct {
	ran.NopSink

	runID  string
	writer *kafka.Writer
	log    *slog.Logger
}

// NewIncidentPublisher builds a publisher over the bus's incident topic.
func NewIncidentPublisher(b *Bus, runID string) *IncidentPublisher {
	w := b.Writer(b.IncidentTopic())
	w.Balancer = &kafka.Hash{} // partition by key (imsi)
	return &IncidentPublisher{
		runID:  runID,
		writer: w,
		log:    b.log.With(slog.String("topic", b.IncidentTopic())),
	}
}

func (p *IncidentPublisher) RecordIncident(i ran.SecurityIncident) error {
	msg, err := incidentMessage(p.runID, i)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), incidentWriteTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("incident write: %w", err)
	}
	p.log.Info("incident published", "kind", string(i.Kind), "imsi", i.Imsi, "cell", i.CellID)
	return nil
}

func (p *IncidentPublisher) Close() error {
	return p.writer.Close()
}

// incidentMessage builds the kafka message for one incident: imsi key,
// kind header, JSON payload.
func incidentMessage(runID string, i ran.SecurityIncident) (kafka.Message, error) {
	b, err := json.Marshal(IncidentPayload{
		RunID:    runID,
		Incident: i,
		Summary:  i.Summary(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal incident: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(i.Imsi, 10)),
		Value: b,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(i.Kind)},
		},
		Time: time.Now(),
	}, nil
}
