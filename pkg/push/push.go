// Package push hands alert notifications to whatever delivers them to the
// user's devices. Delivery is fire-and-forget: Notify never reports back.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/metrics"
)

type Notification struct {
	UserID string         `json:"user_id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
	SentAt time.Time      `json:"sent_at"`
}

type Dispatcher interface {
	Notify(ctx context.Context, n Notification)
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNamePush)
}

// LogDispatcher only records notifications.
type LogDispatcher struct{}

func (LogDispatcher) Notify(_ context.Context, n Notification) {
	metrics.PushNotifications.WithLabelValues("log").Inc()
	logger().Info("Notification", zap.String("user_id", n.UserID), zap.String("title", n.Title), zap.String("body", n.Body), zap.Reflect("data", n.Data))
}

func UserTopic(userID string) string {
	return fmt.Sprintf("roomwatch/users/%s/notifications", userID)
}

// MQTTDispatcher publishes each notification to the user's topic with QoS 1.
type MQTTDispatcher struct {
	client  paho.Client
	timeout time.Duration
}

func NewMQTTDispatcher(client paho.Client) *MQTTDispatcher {
	return &MQTTDispatcher{client: client, timeout: 5 * time.Second}
}

func (d *MQTTDispatcher) Notify(_ context.Context, n Notification) {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		logger().Error("Failed to encode notification", zap.Error(err))
		return
	}

	topic := UserTopic(n.UserID)
	token := d.client.Publish(topic, 1, false, payload)
	metrics.PushNotifications.WithLabelValues("mqtt").Inc()

	go func() {
		if !token.WaitTimeout(d.timeout) {
			logger().Warn("Notification publish timed out", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			logger().Warn("Notification publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, d := range m {
		if d != nil {
			d.Notify(ctx, n)
		}
	}
}
