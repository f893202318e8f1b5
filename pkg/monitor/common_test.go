package monitor

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/roomwatch-service/pkg/db"
	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/monitor/mocks"
	"liyu1981.xyz/roomwatch-service/pkg/push"
)

type MockServices struct {
	Room      *mocks.MockIRoom
	Threshold *mocks.MockIThreshold
	Reading   *mocks.MockIReading
	Alert     *mocks.MockIAlert
	Profile   *mocks.MockIProfile
	Sync      *mocks.MockISync
}

type UseMocks struct {
	Room, Threshold, Reading, Alert, Profile, Sync bool
}

// recordingPublisher keeps every change event the services publish.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) of(table string, eventType models.EventType) []models.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.ChangeEvent
	for _, ev := range p.events {
		if ev.Table == table && ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []push.Notification
}

func (d *recordingDispatcher) Notify(_ context.Context, n push.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *recordingDispatcher) notifications() []push.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]push.Notification(nil), d.sent...)
}

type testEnv struct {
	Ctrl    *gomock.Controller
	Monitor *Monitor
	Mocks   MockServices
	Events  *recordingPublisher
	Push    *recordingDispatcher
}

// fixedNow is the clock every test monitor runs on.
var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func GetMockMonitorWithMemorySqliteDialector(t *testing.T, use UseMocks) testEnv {
	ctrl := gomock.NewController(t)

	dbInstance, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbInstance.Close() })

	events := &recordingPublisher{}
	dispatcher := &recordingDispatcher{}
	m := New(dbInstance, Options{
		Publisher:          events,
		Push:               dispatcher,
		SuppressDuplicates: true,
	})
	m.now = func() time.Time { return fixedNow }

	ms := MockServices{
		Room:      mocks.NewMockIRoom(ctrl),
		Threshold: mocks.NewMockIThreshold(ctrl),
		Reading:   mocks.NewMockIReading(ctrl),
		Alert:     mocks.NewMockIAlert(ctrl),
		Profile:   mocks.NewMockIProfile(ctrl),
		Sync:      mocks.NewMockISync(ctrl),
	}

	opts := ServiceOpts{}
	if use.Room {
		opts.Room = ms.Room
	}
	if use.Threshold {
		opts.Threshold = ms.Threshold
	}
	if use.Reading {
		opts.Reading = ms.Reading
	}
	if use.Alert {
		opts.Alert = ms.Alert
	}
	if use.Profile {
		opts.Profile = ms.Profile
	}
	if use.Sync {
		opts.Sync = ms.Sync
	}
	m.WithServices(opts)

	return testEnv{Ctrl: ctrl, Monitor: m, Mocks: ms, Events: events, Push: dispatcher}
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func seedProfile(t *testing.T, m *Monitor, userID string) {
	require.NoError(t, m.Db.Conn.Create(&models.Profile{
		ID:          userID,
		Email:       userID + "@example.com",
		DisplayName: userID,
		CreatedAt:   fixedNow,
	}).Error)
}

func seedRoom(t *testing.T, m *Monitor, userID, name string) models.Room {
	room, err := m.GetIRoom().CreateRoom(context.Background(), userID, &models.Room{Name: name})
	require.NoError(t, err)
	return room
}
