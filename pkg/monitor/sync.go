package monitor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// syncAll pulls one reading per room from the sensor source and records it.
// A room that fails does not stop the others.
func (m *Monitor) syncAll(ctx context.Context, userID string) ([]models.SyncProgress, error) {
	logger := categoryLogger(common.LoggerCategorySync)

	if m.Sensors == nil {
		return nil, errors.New("no sensor source configured")
	}

	rooms, err := m.Room.ListRooms(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := make([]models.SyncProgress, 0, len(rooms))
	for _, room := range rooms {
		if err := ctx.Err(); err != nil {
			return progress, err
		}

		p := models.SyncProgress{RoomID: room.ID, RoomName: room.Name}

		sample, err := m.Sensors.Fetch(ctx, room)
		if err == nil {
			var result models.RecordResult
			reading := sample.Reading(room.ID, m.clock())
			result, err = m.Reading.RecordReading(ctx, userID, room.ID, &reading)
			p.Alerts = len(result.Alerts)
		}
		if err != nil {
			p.Status = models.SyncStatusFailed
			p.Error = err.Error()
			logger.Warn("Room sync failed", zap.String("room_id", room.ID), zap.Error(err))
		} else {
			p.Status = models.SyncStatusDone
		}
		progress = append(progress, p)
	}

	logger.Info("Sync finished", zap.String("user_id", userID), zap.Reflect("progress", progress))
	return progress, nil
}

type ISyncImpl struct {
	monitor *Monitor
}

func (is *ISyncImpl) SyncAll(ctx context.Context, userID string) ([]models.SyncProgress, error) {
	return is.monitor.syncAll(ctx, userID)
}

func (m *Monitor) GetISync() ISync {
	return &ISyncImpl{monitor: m}
}
