package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/roomwatch-service/pkg/comfort"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/metrics"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// checkAndStoreAlerts persists the candidates the evaluator raises for one
// reading. With duplicate suppression on, a candidate is dropped while an
// unhandled alert with the same (room, metric, direction) key exists. The
// lookup and the insert share a transaction; the insert also claims the key
// through Alert.OpenKey, so a concurrent writer that passed the same lookup
// loses on the unique index and counts as suppressed.
func (m *Monitor) checkAndStoreAlerts(ctx context.Context, room models.Room, thresholds models.Thresholds, reading models.Reading) ([]models.Alert, error) {
	logger := categoryLogger(common.LoggerCategoryAlert)

	candidates := comfort.Evaluate(room, thresholds, reading)
	if len(candidates) == 0 {
		return nil, nil
	}

	now := m.clock()
	var created []models.Alert

	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range candidates {
			alert := models.Alert{
				UserID:    room.UserID,
				RoomID:    room.ID,
				RoomName:  room.Name,
				Type:      c.Type,
				Message:   c.Message,
				Value:     c.Value,
				Threshold: common.Ptr(c.Threshold),
				DedupKey:  c.Key(),
				CreatedAt: now,
				UpdatedAt: now,
			}

			logger.Info("Alert found", zap.Reflect("alert", alert))

			if m.SuppressDuplicates && alert.DedupKey != "" {
				var outstanding int64
				if err := tx.Model(&models.Alert{}).
					Where("dedup_key = ? AND handled = ?", alert.DedupKey, false).
					Count(&outstanding).Error; err != nil {
					return err
				}
				if outstanding > 0 {
					metrics.AlertsSuppressed.WithLabelValues(string(alert.Type)).Inc()
					logger.Info("Alert suppressed", zap.String("dedup_key", alert.DedupKey))
					continue
				}
				alert.OpenKey = common.Ptr(alert.DedupKey)
			}

			// savepoint per insert: a lost claim must not abort the outer transaction
			err := tx.Transaction(func(sp *gorm.DB) error {
				return sp.Create(&alert).Error
			})
			if errors.Is(err, gorm.ErrDuplicatedKey) && alert.OpenKey != nil {
				metrics.AlertsSuppressed.WithLabelValues(string(alert.Type)).Inc()
				logger.Info("Alert suppressed by concurrent insert", zap.String("dedup_key", alert.DedupKey))
				continue
			}
			if err != nil {
				return err
			}
			created = append(created, alert)

			logger.Info("Alert saved", zap.Reflect("alert", alert))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, alert := range created {
		metrics.AlertsCreated.WithLabelValues(string(alert.Type)).Inc()
		m.publish(ctx, models.TableAlerts, models.EventInsert, alert.UserID, alert, nil)
		m.notify(ctx, alert)
	}
	return created, nil
}

func (m *Monitor) listAlerts(ctx context.Context, userID string, filter models.AlertFilter) ([]models.Alert, error) {
	q := m.Db.Conn.WithContext(ctx).Where("user_id = ?", userID)
	switch filter {
	case models.AlertFilterHandled:
		q = q.Where("handled = ?", true)
	case models.AlertFilterUnhandled:
		q = q.Where("handled = ?", false)
	}

	var alerts []models.Alert
	err := q.Order("created_at desc").Order("id desc").Find(&alerts).Error
	return alerts, err
}

func (m *Monitor) ownedAlert(tx *gorm.DB, userID string, alertID uint) (models.Alert, error) {
	var alert models.Alert
	if err := tx.First(&alert, "id = ? AND user_id = ?", alertID, userID).Error; err != nil {
		return models.Alert{}, notFound(err, fmt.Sprintf("alert %d", alertID))
	}
	return alert, nil
}

func (m *Monitor) setHandled(ctx context.Context, userID string, alertID uint, handled bool) (models.Alert, error) {
	logger := categoryLogger(common.LoggerCategoryAlert)

	var before, after models.Alert
	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if before, err = m.ownedAlert(tx, userID, alertID); err != nil {
			return err
		}
		after = before
		after.Handled = handled
		after.UpdatedAt = m.clock()
		if handled {
			after.OpenKey = nil
		}
		return tx.Model(&after).Select("handled", "updated_at", "open_key").Updates(&after).Error
	})
	if err != nil {
		return models.Alert{}, err
	}

	logger.Info("Alert updated", zap.Uint("alert_id", alertID), zap.Bool("handled", handled))
	m.publish(ctx, models.TableAlerts, models.EventUpdate, userID, after, before)
	return after, nil
}

func (m *Monitor) deleteAlert(ctx context.Context, userID string, alertID uint) error {
	logger := categoryLogger(common.LoggerCategoryAlert)

	var alert models.Alert
	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if alert, err = m.ownedAlert(tx, userID, alertID); err != nil {
			return err
		}
		return tx.Delete(&alert).Error
	})
	if err != nil {
		return err
	}

	logger.Info("Alert deleted", zap.Uint("alert_id", alertID))
	m.publish(ctx, models.TableAlerts, models.EventDelete, userID, nil, alert)
	return nil
}

func (m *Monitor) deleteAllHandled(ctx context.Context, userID string) (int64, error) {
	logger := categoryLogger(common.LoggerCategoryAlert)

	var removed []models.Alert
	err := m.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND handled = ?", userID, true).Find(&removed).Error; err != nil {
			return err
		}
		if len(removed) == 0 {
			return nil
		}
		ids := common.Mapper(removed, func(a models.Alert) uint { return a.ID })
		return tx.Where("id IN ?", ids).Delete(&models.Alert{}).Error
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Handled alerts deleted", zap.String("user_id", userID), zap.Int("count", len(removed)))
	for _, a := range removed {
		m.publish(ctx, models.TableAlerts, models.EventDelete, userID, nil, a)
	}
	return int64(len(removed)), nil
}

func (m *Monitor) alertStats(ctx context.Context, userID string) (models.AlertStats, error) {
	alerts, err := m.listAlerts(ctx, userID, models.AlertFilterAll)
	if err != nil {
		return models.AlertStats{}, err
	}

	now := m.clock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	return common.Reducer(alerts, func(s models.AlertStats, a models.Alert) models.AlertStats {
		s.Total++
		if a.Handled {
			s.Handled++
		} else {
			s.Unhandled++
		}
		s.ByType[string(a.Type)]++
		s.ByRoom[a.RoomName]++
		if !a.CreatedAt.Before(dayStart) {
			s.Today++
		}
		if !a.CreatedAt.Before(weekAgo) {
			s.Week++
		}
		return s
	}, models.AlertStats{ByType: map[string]int64{}, ByRoom: map[string]int64{}}), nil
}

type IAlertImpl struct {
	monitor *Monitor
}

func (ia *IAlertImpl) CheckAndStoreAlerts(ctx context.Context, room models.Room, thresholds models.Thresholds, reading models.Reading) ([]models.Alert, error) {
	return ia.monitor.checkAndStoreAlerts(ctx, room, thresholds, reading)
}

func (ia *IAlertImpl) ListAlerts(ctx context.Context, userID string, filter models.AlertFilter) ([]models.Alert, error) {
	return ia.monitor.listAlerts(ctx, userID, filter)
}

func (ia *IAlertImpl) SetHandled(ctx context.Context, userID string, alertID uint, handled bool) (models.Alert, error) {
	return ia.monitor.setHandled(ctx, userID, alertID, handled)
}

func (ia *IAlertImpl) DeleteAlert(ctx context.Context, userID string, alertID uint) error {
	return ia.monitor.deleteAlert(ctx, userID, alertID)
}

func (ia *IAlertImpl) DeleteAllHandled(ctx context.Context, userID string) (int64, error) {
	return ia.monitor.deleteAllHandled(ctx, userID)
}

func (ia *IAlertImpl) AlertStats(ctx context.Context, userID string) (models.AlertStats, error) {
	return ia.monitor.alertStats(ctx, userID)
}

func (m *Monitor) GetIAlert() IAlert {
	return &IAlertImpl{monitor: m}
}
