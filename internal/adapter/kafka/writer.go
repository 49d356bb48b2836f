package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/team-weather-dashboard/internal/config"
	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes canonical records to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// LoadDataset serializes every record of the dataset and publishes them in a
// single WriteMessages call. Records of one member and city share a key and
// therefore a partition.
func (w *Writer) LoadDataset(ctx context.Context, ds domain.Dataset) error {
	if len(ds.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(ds.Records))
	for i := range ds.Records {
		msg, err := serializeToMessage(ds.RunID, ds.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", w.topic, err)
	}
	w.logger.Debug("records published", "topic", w.topic, "count", len(msgs), "run_id", ds.RunID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// messageKey identifies a record's member, city, and observation time.
func messageKey(rec domain.CanonicalRecord) string {
	return rec.MemberName + "|" + rec.City + "|" + rec.Timestamp
}

// serializeToMessage marshals a CanonicalRecord into a Kafka message.
func serializeToMessage(runID string, rec domain.CanonicalRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(rec)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "member_name", Value: []byte(rec.MemberName)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
