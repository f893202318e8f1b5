// Package monitor is the service layer: rooms, thresholds, readings, alerts
// and profiles, each behind an interface so transports and tests can swap
// single services out.
package monitor

import (
	"context"
	"time"

	"liyu1981.xyz/roomwatch-service/pkg/db"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/push"
	"liyu1981.xyz/roomwatch-service/pkg/sensor"
)

//go:generate mockgen -source=monitor.go -destination=mocks/mocks.go -package=mocks

type IRoom interface {
	CreateRoom(ctx context.Context, userID string, input *models.Room) (models.Room, error)
	ListRooms(ctx context.Context, userID string) ([]models.Room, error)
	GetRoom(ctx context.Context, userID, roomID string) (models.Room, error)
	UpdateRoom(ctx context.Context, userID, roomID string, input *models.RoomUpdate) (models.Room, error)
	DeleteRoom(ctx context.Context, userID, roomID string) error
}

type IThreshold interface {
	GetThresholds(ctx context.Context, userID, roomID string) (models.Thresholds, error)
	UpdateThresholds(ctx context.Context, userID, roomID string, input *models.Thresholds) (models.Thresholds, error)
}

type IReading interface {
	RecordReading(ctx context.Context, userID, roomID string, input *models.Reading) (models.RecordResult, error)
	ListReadings(ctx context.Context, userID, roomID string, limit int, since time.Time) ([]models.Reading, error)
}

type IAlert interface {
	CheckAndStoreAlerts(ctx context.Context, room models.Room, thresholds models.Thresholds, reading models.Reading) ([]models.Alert, error)
	ListAlerts(ctx context.Context, userID string, filter models.AlertFilter) ([]models.Alert, error)
	SetHandled(ctx context.Context, userID string, alertID uint, handled bool) (models.Alert, error)
	DeleteAlert(ctx context.Context, userID string, alertID uint) error
	DeleteAllHandled(ctx context.Context, userID string) (int64, error)
	AlertStats(ctx context.Context, userID string) (models.AlertStats, error)
}

type IProfile interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, input *models.ProfileUpdate) (models.Profile, error)
}

type ISync interface {
	SyncAll(ctx context.Context, userID string) ([]models.SyncProgress, error)
}

type Monitor struct {
	Db *db.DB

	Room      IRoom
	Threshold IThreshold
	Reading   IReading
	Alert     IAlert
	Profile   IProfile
	Sync      ISync

	Publisher feed.Publisher
	Push      push.Dispatcher
	Sensors   sensor.Source

	SuppressDuplicates bool
	now                func() time.Time
}

type Options struct {
	Publisher          feed.Publisher
	Push               push.Dispatcher
	Sensors            sensor.Source
	SuppressDuplicates bool
}

// New wires the store-backed implementation of every service.
func New(d *db.DB, opts Options) *Monitor {
	m := &Monitor{
		Db:                 d,
		Publisher:          opts.Publisher,
		Push:               opts.Push,
		Sensors:            opts.Sensors,
		SuppressDuplicates: opts.SuppressDuplicates,
	}
	return m.WithServices(ServiceOpts{
		Room:      m.GetIRoom(),
		Threshold: m.GetIThreshold(),
		Reading:   m.GetIReading(),
		Alert:     m.GetIAlert(),
		Profile:   m.GetIProfile(),
		Sync:      m.GetISync(),
	})
}

type ServiceOpts struct {
	Room      IRoom
	Threshold IThreshold
	Reading   IReading
	Alert     IAlert
	Profile   IProfile
	Sync      ISync
}

func (m *Monitor) WithServices(opts ServiceOpts) *Monitor {
	if opts.Room != nil {
		m.Room = opts.Room
	}
	if opts.Threshold != nil {
		m.Threshold = opts.Threshold
	}
	if opts.Reading != nil {
		m.Reading = opts.Reading
	}
	if opts.Alert != nil {
		m.Alert = opts.Alert
	}
	if opts.Profile != nil {
		m.Profile = opts.Profile
	}
	if opts.Sync != nil {
		m.Sync = opts.Sync
	}
	return m
}

func (m *Monitor) clock() time.Time {
	if m.now != nil {
		return m.now().UTC()
	}
	return time.Now().UTC()
}
