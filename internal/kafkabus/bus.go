// Package kafkabus publishes security incidents to Kafka so external
// consumers (SIEM pipelines, alerting) can react to a run while it is
// still replaying.
package kafkabus

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds the broker endpoints and topic layout for a bus.
type Config struct {
	Brokers       []string
	IncidentTopic string
}

// DefaultIncidentTopic is used when the config leaves the topic empty.
const DefaultIncidentTopic = "ranwatch.incidents"

// Bus hands out readers and writers bound to the configured brokers.
type Bus struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Bus {
	if cfg.IncidentTopic == "" {
		cfg.IncidentTopic = DefaultIncidentTopic
	}
	return &Bus{cfg: cfg, log: log.With(slog.String("component", "kafka-bus"))}
}

func (b *Bus) Reader(topic string, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.cfg.Brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

func (b *Bus) Writer(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(b.cfg.Brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// IncidentTopic returns the configured (or default) incident topic name.
func (b *Bus) IncidentTopic() string { return b.cfg.IncidentTopic }

func (b *Bus) Close() error { return nil }
