// Package kafka optionally publishes finished reports to a topic for
// downstream consumers. Publishing is best-effort: a failure is logged and
// counted but never fails the run.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/envirolab/infrascan/internal/config"
	"github.com/envirolab/infrascan/internal/domain"
)

// Writer produces report messages to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one report, keyed by run ID so replays of
// the same invocation land on the same partition.
func (w *Writer) Publish(ctx context.Context, runID string, report domain.Report) error {
	msg, err := serializeToMessage(runID, report)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a report into a Kafka message.
func serializeToMessage(runID string, report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(runID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "infrastructure_type", Value: []byte(report.Type)},
			{Key: "generated_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
