package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/geo-heat-overlay/internal/config"
	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// Writer publishes sample batch messages to a Kafka topic. genmock and the
// integration tests use it to feed the service.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sample topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSampleTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes and publishes one sample set per metric in a
// single WriteMessages call.
func (w *Writer) PublishBatch(ctx context.Context, batches []domain.DataSource) error {
	events := make([]domain.OutputEvent, 0, len(batches))
	for _, ds := range batches {
		out, err := domain.SerializeBatch(ds.Kind(), ds.Samples())
		if err != nil {
			return err
		}
		events = append(events, out)
	}
	return w.LoadBatch(ctx, events)
}

// LoadBatch publishes already serialized events.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msgs[i] = toMessage(events[i])
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d sample batches: %w", len(msgs), err)
	}
	w.logger.Debug("published sample batches", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage converts an output event into a Kafka message. Headers are
// sorted by key so messages are reproducible.
func toMessage(event domain.OutputEvent) kafkago.Message {
	msg := kafkago.Message{Key: event.Key, Value: event.Value}
	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(event.Headers[k])})
	}
	return msg
}
