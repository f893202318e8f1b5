package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/push"
)

const NotificationTitle = "Comfort Alert"

func categoryLogger(category string) *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameRoomwatchCore,
		zap.String(common.LoggerFieldCategory, category),
	)
}

// publish runs after the write has committed. A feed failure does not undo
// the write, so it is logged and swallowed.
func (m *Monitor) publish(ctx context.Context, table string, eventType models.EventType, userID string, newRow, oldRow any) {
	if m.Publisher == nil {
		return
	}
	ev, err := models.NewChangeEvent(table, eventType, userID, newRow, oldRow)
	if err != nil {
		common.GetLoggerWith(common.LoggerNameFeed).Error("Failed to encode change event", zap.Error(err))
		return
	}
	if err := m.Publisher.Publish(ctx, ev); err != nil {
		common.GetLoggerWith(common.LoggerNameFeed).Warn("Failed to publish change event",
			zap.String("table", table), zap.String("type", string(eventType)), zap.Error(err))
	}
}

func (m *Monitor) notify(ctx context.Context, alert models.Alert) {
	if m.Push == nil {
		return
	}
	m.Push.Notify(ctx, push.Notification{
		UserID: alert.UserID,
		Title:  NotificationTitle,
		Body:   alert.Message,
		Data: map[string]any{
			"alert_id":   alert.ID,
			"room_id":    alert.RoomID,
			"alert_type": string(alert.Type),
		},
		SentAt: m.clock(),
	})
}

// notFound maps a missing row onto ErrNotFound, leaving other errors alone.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	}
	return err
}
