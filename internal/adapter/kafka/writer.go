package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes forecast snapshots to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the snapshot topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchBytes:             maxSnapshotBytes,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and publishes snapshots in a single WriteMessages call.
// Messages are keyed by forecast hour so one hour always lands on the same
// partition and replacements stay ordered.
func (w *Writer) Publish(ctx context.Context, snaps ...domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snaps))
	for i := range snaps {
		msg, err := serializeToMessage(snaps[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d snapshots: %w", len(msgs), err)
	}
	w.logger.Info("snapshots published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Snapshot into a Kafka message.
func serializeToMessage(s domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	ft := strconv.Itoa(s.ForecastTime)
	return kafkago.Message{
		Key:   []byte("forecast-" + ft),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "forecast_time", Value: []byte(ft)},
			{Key: "grid", Value: []byte(fmt.Sprintf("%dx%d", s.Header.Nx, s.Header.Ny))},
			{Key: "published_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
