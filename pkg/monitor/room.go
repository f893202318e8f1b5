package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/roomwatch-service/pkg/comfort"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

func normalizeRoom(r *models.Room) error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: room name is required", models.ErrValidation)
	}

	switch r.SensorType {
	case "":
		r.SensorType = models.SensorTypeDHT22
	case models.SensorTypeDHT22, models.SensorTypeBME280:
	default:
		return fmt.Errorf("%w: unknown sensor type %q", models.ErrValidation, r.SensorType)
	}

	switch r.ConnectionType {
	case "":
		r.ConnectionType = models.ConnectionTypeWiFi
	case models.ConnectionTypeWiFi, models.ConnectionTypeBLE:
	default:
		return fmt.Errorf("%w: unknown connection type %q", models.ErrValidation, r.ConnectionType)
	}
	return nil
}

func withStatus(room models.Room, thresholds models.Thresholds) models.Room {
	room.Status = comfort.Classify(room.Snapshot(), thresholds)
	return room
}

func (m *Monitor) createRoom(ctx context.Context, userID string, input *models.Room) (models.Room, error) {
	logger := categoryLogger(common.LoggerCategoryRoom)

	now := m.clock()
	room := models.Room{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           input.Name,
		SensorType:     input.SensorType,
		ConnectionType: input.ConnectionType,
		IPAddress:      input.IPAddress,
		MACAddress:     input.MACAddress,
		CreatedAt:      now,
	}
	if err := normalizeRoom(&room); err != nil {
		return models.Room{}, err
	}

	logger.Info("Received room", zap.Reflect("room", room))

	thresholds := models.DefaultThresholds(room.ID)
	alert := models.Alert{
		UserID:    userID,
		RoomID:    room.ID,
		RoomName:  room.Name,
		Type:      models.AlertTypeRoomAdded,
		Message:   fmt.Sprintf("Room added: %s", room.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		if err := tx.Create(&thresholds).Error; err != nil {
			return err
		}
		return tx.Create(&alert).Error
	})
	if err != nil {
		return models.Room{}, err
	}

	logger.Info("Room saved", zap.Reflect("room", room))

	m.publish(ctx, models.TableRooms, models.EventInsert, userID, room, nil)
	m.publish(ctx, models.TableAlerts, models.EventInsert, userID, alert, nil)

	return withStatus(room, thresholds), nil
}

func (m *Monitor) listRooms(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	if err := m.Db.Conn.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name asc").
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return rooms, nil
	}

	var thresholds []models.Thresholds
	ids := common.Mapper(rooms, func(r models.Room) string { return r.ID })
	if err := m.Db.Conn.WithContext(ctx).Where("room_id IN ?", ids).Find(&thresholds).Error; err != nil {
		return nil, err
	}
	byRoom := common.Reducer(thresholds, func(acc map[string]models.Thresholds, t models.Thresholds) map[string]models.Thresholds {
		acc[t.RoomID] = t
		return acc
	}, map[string]models.Thresholds{})

	return common.Mapper(rooms, func(r models.Room) models.Room {
		t, ok := byRoom[r.ID]
		if !ok {
			t = models.DefaultThresholds(r.ID)
		}
		return withStatus(r, t)
	}), nil
}

// ownedRoom loads a room only if userID owns it; anything else is not found.
func (m *Monitor) ownedRoom(tx *gorm.DB, userID, roomID string) (models.Room, error) {
	var room models.Room
	if err := tx.First(&room, "id = ? AND user_id = ?", roomID, userID).Error; err != nil {
		return models.Room{}, notFound(err, "room "+roomID)
	}
	return room, nil
}

func (m *Monitor) thresholdsOf(tx *gorm.DB, roomID string) (models.Thresholds, error) {
	var thresholds models.Thresholds
	if err := tx.First(&thresholds, "room_id = ?", roomID).Error; err != nil {
		return models.Thresholds{}, notFound(err, "thresholds for room "+roomID)
	}
	return thresholds, nil
}

func (m *Monitor) getRoom(ctx context.Context, userID, roomID string) (models.Room, error) {
	conn := m.Db.Conn.WithContext(ctx)
	room, err := m.ownedRoom(conn, userID, roomID)
	if err != nil {
		return models.Room{}, err
	}
	thresholds, err := m.thresholdsOf(conn, roomID)
	if err != nil {
		thresholds = models.DefaultThresholds(roomID)
	}
	return withStatus(room, thresholds), nil
}

func (m *Monitor) updateRoom(ctx context.Context, userID, roomID string, input *models.RoomUpdate) (models.Room, error) {
	logger := categoryLogger(common.LoggerCategoryRoom)

	var before, after models.Room
	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if before, err = m.ownedRoom(tx, userID, roomID); err != nil {
			return err
		}

		after = before
		if input.Name != nil {
			after.Name = *input.Name
		}
		if input.SensorType != nil {
			after.SensorType = *input.SensorType
		}
		if input.ConnectionType != nil {
			after.ConnectionType = *input.ConnectionType
		}
		if input.IPAddress != nil {
			after.IPAddress = *input.IPAddress
		}
		if input.MACAddress != nil {
			after.MACAddress = *input.MACAddress
		}
		if err := normalizeRoom(&after); err != nil {
			return err
		}
		return tx.Save(&after).Error
	})
	if err != nil {
		return models.Room{}, err
	}

	logger.Info("Room updated", zap.Reflect("room", after))
	m.publish(ctx, models.TableRooms, models.EventUpdate, userID, after, before)

	return m.getRoom(ctx, userID, roomID)
}

// deleteRoom removes the room with its thresholds, readings and alerts in
// one transaction, then records a room_deleted alert that outlives it.
func (m *Monitor) deleteRoom(ctx context.Context, userID, roomID string) error {
	logger := categoryLogger(common.LoggerCategoryRoom)

	var room models.Room
	var removed []models.Alert
	var tombstone models.Alert

	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if room, err = m.ownedRoom(tx, userID, roomID); err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Alert{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Reading{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Thresholds{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&room).Error; err != nil {
			return err
		}

		now := m.clock()
		tombstone = models.Alert{
			UserID:    userID,
			RoomID:    roomID,
			RoomName:  room.Name,
			Type:      models.AlertTypeRoomDeleted,
			Message:   fmt.Sprintf("Room deleted: %s", room.Name),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&tombstone).Error
	})
	if err != nil {
		return err
	}

	logger.Info("Room deleted", zap.String("room_id", roomID), zap.Int("alerts_removed", len(removed)))

	m.publish(ctx, models.TableRooms, models.EventDelete, userID, nil, room)
	for _, a := range removed {
		m.publish(ctx, models.TableAlerts, models.EventDelete, userID, nil, a)
	}
	m.publish(ctx, models.TableAlerts, models.EventInsert, userID, tombstone, nil)
	return nil
}

type IRoomImpl struct {
	monitor *Monitor
}

func (ir *IRoomImpl) CreateRoom(ctx context.Context, userID string, input *models.Room) (models.Room, error) {
	return ir.monitor.createRoom(ctx, userID, input)
}

func (ir *IRoomImpl) ListRooms(ctx context.Context, userID string) ([]models.Room, error) {
	return ir.monitor.listRooms(ctx, userID)
}

func (ir *IRoomImpl) GetRoom(ctx context.Context, userID, roomID string) (models.Room, error) {
	return ir.monitor.getRoom(ctx, userID, roomID)
}

func (ir *IRoomImpl) UpdateRoom(ctx context.Context, userID, roomID string, input *models.RoomUpdate) (models.Room, error) {
	return ir.monitor.updateRoom(ctx, userID, roomID, input)
}

func (ir *IRoomImpl) DeleteRoom(ctx context.Context, userID, roomID string) error {
	return ir.monitor.deleteRoom(ctx, userID, roomID)
}

func (m *Monitor) GetIRoom() IRoom {
	return &IRoomImpl{monitor: m}
}
