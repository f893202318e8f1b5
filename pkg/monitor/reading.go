package monitor

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/metrics"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

const (
	DefaultReadingsLimit = 100
	MaxReadingsLimit     = 1000
)

func validateReading(r *models.Reading) error {
	if math.IsNaN(r.Temperature) || r.Temperature < -60 || r.Temperature > 100 {
		return fmt.Errorf("%w: temperature %.1f out of sensor range", models.ErrValidation, r.Temperature)
	}
	if math.IsNaN(r.Humidity) || r.Humidity < 0 || r.Humidity > 100 {
		return fmt.Errorf("%w: humidity %.1f out of range", models.ErrValidation, r.Humidity)
	}
	if r.AirQuality != nil && (math.IsNaN(*r.AirQuality) || *r.AirQuality < 0) {
		return fmt.Errorf("%w: air quality %.1f out of range", models.ErrValidation, *r.AirQuality)
	}
	return nil
}

func (m *Monitor) recordReading(ctx context.Context, userID, roomID string, input *models.Reading) (models.RecordResult, error) {
	logger := categoryLogger(common.LoggerCategoryReading)

	reading := models.Reading{
		RoomID:      roomID,
		Temperature: input.Temperature,
		Humidity:    input.Humidity,
		AirQuality:  input.AirQuality,
		Timestamp:   input.Timestamp.UTC(),
	}
	if input.Timestamp.IsZero() {
		reading.Timestamp = m.clock()
	}
	if err := validateReading(&reading); err != nil {
		return models.RecordResult{}, err
	}

	logger.Info("Received reading for room", zap.Reflect("reading", reading))

	var before, room models.Room
	var thresholds models.Thresholds
	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if before, err = m.ownedRoom(tx, userID, roomID); err != nil {
			return err
		}
		if thresholds, err = m.thresholdsOf(tx, roomID); err != nil {
			thresholds = models.DefaultThresholds(roomID)
		}
		if err := tx.Create(&reading).Error; err != nil {
			return err
		}

		// only the newest reading moves the room's current values
		room = before
		if room.LastUpdated == nil || !reading.Timestamp.Before(*room.LastUpdated) {
			t, h, at := reading.Temperature, reading.Humidity, reading.Timestamp
			room.Temperature = &t
			room.Humidity = &h
			room.AirQuality = reading.AirQuality
			room.LastUpdated = &at
			return tx.Model(&room).Select("temperature", "humidity", "air_quality", "last_updated").Updates(&room).Error
		}
		return nil
	})
	if err != nil {
		return models.RecordResult{}, err
	}

	metrics.ReadingsRecorded.Inc()
	logger.Info("Saved reading for room", zap.Reflect("reading", reading))

	room = withStatus(room, thresholds)
	m.publish(ctx, models.TableRooms, models.EventUpdate, userID, room, before)

	if m.Alert == nil {
		return models.RecordResult{}, fmt.Errorf("alert service not available")
	}
	alerts, err := m.Alert.CheckAndStoreAlerts(ctx, room, thresholds, reading)
	if err != nil {
		return models.RecordResult{Reading: reading, Room: room}, err
	}

	return models.RecordResult{Reading: reading, Room: room, Alerts: alerts}, nil
}

func (m *Monitor) listReadings(ctx context.Context, userID, roomID string, limit int, since time.Time) ([]models.Reading, error) {
	conn := m.Db.Conn.WithContext(ctx)
	if _, err := m.ownedRoom(conn, userID, roomID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultReadingsLimit
	}
	limit = min(limit, MaxReadingsLimit)

	q := conn.Where("room_id = ?", roomID)
	if !since.IsZero() {
		q = q.Where("timestamp >= ?", since.UTC())
	}

	var readings []models.Reading
	err := q.Order("timestamp desc").Limit(limit).Find(&readings).Error
	return readings, err
}

type IReadingImpl struct {
	monitor *Monitor
}

func (ir *IReadingImpl) RecordReading(ctx context.Context, userID, roomID string, input *models.Reading) (models.RecordResult, error) {
	return ir.monitor.recordReading(ctx, userID, roomID, input)
}

func (ir *IReadingImpl) ListReadings(ctx context.Context, userID, roomID string, limit int, since time.Time) ([]models.Reading, error) {
	return ir.monitor.listReadings(ctx, userID, roomID, limit, since)
}

func (m *Monitor) GetIReading() IReading {
	return &IReadingImpl{monitor: m}
}
