package monitor

import (
	"context"

	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/reconcile"
)

// alertStore lets an in-process reconciler read and write through the alert
// service instead of a remote transport.
type alertStore struct {
	alerts IAlert
}

func (s alertStore) LoadAlerts(ctx context.Context, userID string, filter models.AlertFilter) ([]models.Alert, error) {
	return s.alerts.ListAlerts(ctx, userID, filter)
}

func (s alertStore) SetAlertHandled(ctx context.Context, userID string, alertID uint, handled bool) (models.Alert, error) {
	return s.alerts.SetHandled(ctx, userID, alertID, handled)
}

func (s alertStore) DeleteAlert(ctx context.Context, userID string, alertID uint) error {
	return s.alerts.DeleteAlert(ctx, userID, alertID)
}

func (s alertStore) DeleteAllHandled(ctx context.Context, userID string) (int64, error) {
	return s.alerts.DeleteAllHandled(ctx, userID)
}

func (m *Monitor) AlertStore() reconcile.Store {
	return alertStore{alerts: m.Alert}
}
