package monitor

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

func (m *Monitor) getThresholds(ctx context.Context, userID, roomID string) (models.Thresholds, error) {
	conn := m.Db.Conn.WithContext(ctx)
	if _, err := m.ownedRoom(conn, userID, roomID); err != nil {
		return models.Thresholds{}, err
	}
	thresholds, err := m.thresholdsOf(conn, roomID)
	if err != nil {
		// rooms created before thresholds existed fall back to the defaults
		return models.DefaultThresholds(roomID), nil
	}
	return thresholds, nil
}

func (m *Monitor) updateThresholds(ctx context.Context, userID, roomID string, input *models.Thresholds) (models.Thresholds, error) {
	logger := categoryLogger(common.LoggerCategoryThresholds)

	thresholds := models.Thresholds{
		RoomID:               roomID,
		MinTemp:              input.MinTemp,
		MaxTemp:              input.MaxTemp,
		MinHumidity:          input.MinHumidity,
		MaxHumidity:          input.MaxHumidity,
		MaxAQI:               input.MaxAQI,
		NotificationsEnabled: input.NotificationsEnabled,
	}
	if err := thresholds.Validate(); err != nil {
		return models.Thresholds{}, err
	}

	logger.Info("Received thresholds for room", zap.Reflect("thresholds", thresholds))

	var room models.Room
	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if room, err = m.ownedRoom(tx, userID, roomID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			UpdateAll: true,
		}).Create(&thresholds).Error
	})
	if err != nil {
		return models.Thresholds{}, err
	}

	logger.Info("Upserted thresholds for room", zap.Reflect("thresholds", thresholds))

	// the room's status depends on its thresholds
	m.publish(ctx, models.TableRooms, models.EventUpdate, userID, withStatus(room, thresholds), nil)
	return thresholds, nil
}

type IThresholdImpl struct {
	monitor *Monitor
}

func (it *IThresholdImpl) GetThresholds(ctx context.Context, userID, roomID string) (models.Thresholds, error) {
	return it.monitor.getThresholds(ctx, userID, roomID)
}

func (it *IThresholdImpl) UpdateThresholds(ctx context.Context, userID, roomID string, input *models.Thresholds) (models.Thresholds, error) {
	return it.monitor.updateThresholds(ctx, userID, roomID, input)
}

func (m *Monitor) GetIThreshold() IThreshold {
	return &IThresholdImpl{monitor: m}
}
