// Package ingest records readings that devices push over MQTT.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/metrics"
	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/monitor"
)

const (
	TopicReadings = "roomwatch/rooms/+/readings"

	handleTimeout = 10 * time.Second
)

func ReadingTopic(roomID string) string {
	return fmt.Sprintf("roomwatch/rooms/%s/readings", roomID)
}

// roomFromTopic extracts the room id from roomwatch/rooms/{room}/readings.
func roomFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "roomwatch" || parts[1] != "rooms" || parts[3] != "readings" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type Payload struct {
	UserID      string    `json:"user_id" zog:"user_id"`
	Temperature float64   `json:"temperature" zog:"temperature"`
	Humidity    float64   `json:"humidity" zog:"humidity"`
	AirQuality  *float64  `json:"air_quality,omitempty" zog:"air_quality"`
	Timestamp   time.Time `json:"timestamp" zog:"timestamp"`
}

var payloadSchema = z.Struct(z.Shape{
	"UserID":      z.String().Trim().Required(),
	"Temperature": z.Float64().GTE(-60).LTE(100),
	"Humidity":    z.Float64().GTE(0).LTE(100),
	"AirQuality":  z.Ptr(z.Float64().GTE(0)),
})

type Ingester struct {
	Reading monitor.IReading
}

func New(reading monitor.IReading) *Ingester {
	return &Ingester{Reading: reading}
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameIngest)
}

// Handle records one message. The room comes from the topic, the owner and
// values from the payload; ownership is still checked by the reading service.
func (i *Ingester) Handle(ctx context.Context, topic string, payload []byte) (models.RecordResult, error) {
	roomID, found := roomFromTopic(topic)
	if !found {
		return models.RecordResult{}, fmt.Errorf("%w: unexpected topic %q", models.ErrValidation, topic)
	}

	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.RecordResult{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if issues := payloadSchema.Validate(&p); issues != nil {
		return models.RecordResult{}, fmt.Errorf("%w: %v", models.ErrValidation, issues)
	}

	return i.Reading.RecordReading(ctx, p.UserID, roomID, &models.Reading{
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		AirQuality:  p.AirQuality,
		Timestamp:   p.Timestamp,
	})
}

func (i *Ingester) onMessage(_ paho.Client, m paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	result, err := i.Handle(ctx, m.Topic(), m.Payload())
	if err != nil {
		metrics.IngestMessages.WithLabelValues("rejected").Inc()
		logger().Warn("Rejected sensor message", zap.String("topic", m.Topic()), zap.Error(err))
		return
	}
	metrics.IngestMessages.WithLabelValues("recorded").Inc()
	logger().Debug("Recorded sensor message",
		zap.String("topic", m.Topic()),
		zap.Uint("reading_id", result.Reading.ID),
		zap.Int("alerts", len(result.Alerts)))
}

// Subscribe attaches to every room's reading topic with QoS 1.
func (i *Ingester) Subscribe(client paho.Client) error {
	token := client.Subscribe(TopicReadings, 1, i.onMessage)
	if !token.WaitTimeout(handleTimeout) {
		return fmt.Errorf("timed out subscribing to %s", TopicReadings)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicReadings, err)
	}
	logger().Info("Subscribed to sensor readings", zap.String("topic", TopicReadings))
	return nil
}

// OnConnect re-subscribes after every (re)connect; pass it to broker.Connect.
func (i *Ingester) OnConnect(client paho.Client) {
	if err := i.Subscribe(client); err != nil {
		logger().Error("Failed to subscribe to sensor readings", zap.Error(err))
	}
}
