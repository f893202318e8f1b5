package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/metrics"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaMessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher appends every change event to a topic, keyed by user so one
// user's events stay on one partition and keep their commit order.
type KafkaPublisher struct {
	writer kafkaMessageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev models.ChangeEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(ev.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "table", Value: []byte(ev.Table)},
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write change event to %s: %w", p.topic, err)
	}
	metrics.FeedEventsPublished.WithLabelValues(ev.Table, string(ev.Type)).Inc()
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaRelay consumes the change topic and republishes each event, typically
// into a process-local Broker serving websocket and gRPC watchers.
type KafkaRelay struct {
	reader kafkaMessageReader
	target Publisher
}

func NewKafkaRelay(brokers []string, topic, groupID string, target Publisher) *KafkaRelay {
	return &KafkaRelay{
		target: target,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
		}),
	}
}

// Run blocks until ctx is done or the reader fails.
func (r *KafkaRelay) Run(ctx context.Context) error {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to fetch change event: %w", err)
		}

		var ev models.ChangeEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger().Warn("Dropping undecodable change event", zap.Int64("offset", msg.Offset), zap.Error(err))
		} else if err := r.target.Publish(ctx, ev); err != nil {
			logger().Error("Failed to relay change event", zap.Int64("offset", msg.Offset), zap.Error(err))
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			logger().Warn("Failed to commit change event offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (r *KafkaRelay) Close() error {
	return r.reader.Close()
}
