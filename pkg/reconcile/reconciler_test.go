package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

func init() {
	common.SetTestLoggerNop()
}

type fakeSessions struct{ session *models.Session }

func (f fakeSessions) CurrentSession(context.Context) (*models.Session, error) {
	return f.session, nil
}

var signedIn = fakeSessions{session: &models.Session{UserID: "u1", Email: "u1@example.com"}}

// fakeSub delivers synchronously so tests control exactly when an event lands.
type fakeSub struct {
	mu      sync.Mutex
	onEvent feed.Handler
	onError func(error)
	closes  int
}

func (s *fakeSub) OnEvent(h feed.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = h
}

func (s *fakeSub) OnError(h func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = h
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSub) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *fakeSub) emit(t *testing.T, eventType models.EventType, a models.Alert) {
	s.mu.Lock()
	h := s.onEvent
	s.mu.Unlock()
	require.NotNil(t, h)

	var ev models.ChangeEvent
	var err error
	if eventType == models.EventDelete {
		ev, err = models.NewChangeEvent(models.TableAlerts, eventType, a.UserID, nil, a)
	} else {
		ev, err = models.NewChangeEvent(models.TableAlerts, eventType, a.UserID, a, nil)
	}
	require.NoError(t, err)
	h(ev)
}

func (s *fakeSub) failWith(err error) {
	s.mu.Lock()
	h := s.onError
	s.mu.Unlock()
	h(err)
}

type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
	err  error
}

func (f *fakeFeed) Subscribe(_ context.Context, scope feed.Scope) (feed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub := &fakeSub{}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) last() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

type fakeStore struct {
	mu       sync.Mutex
	rows     []models.Alert
	loadErr  error
	writeErr error
	filters  []models.AlertFilter
	// duringLoad runs inside LoadAlerts, after the snapshot is taken
	duringLoad func()
	// duringWrite runs inside SetAlertHandled, before the row is saved
	duringWrite func()
}

func (s *fakeStore) LoadAlerts(_ context.Context, userID string, filter models.AlertFilter) ([]models.Alert, error) {
	s.mu.Lock()
	s.filters = append(s.filters, filter)
	snapshot := common.Filter(s.rows, filter.Match)
	hook, err := s.duringLoad, s.loadErr
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *fakeStore) SetAlertHandled(_ context.Context, _ string, id uint, handled bool) (models.Alert, error) {
	s.mu.Lock()
	hook := s.duringWrite
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return models.Alert{}, s.writeErr
	}
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Handled = handled
			return s.rows[i], nil
		}
	}
	return models.Alert{}, models.ErrNotFound
}

func (s *fakeStore) DeleteAlert(_ context.Context, _ string, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.rows = common.Filter(s.rows, func(a models.Alert) bool { return a.ID != id })
	return nil
}

func (s *fakeStore) DeleteAllHandled(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	before := len(s.rows)
	s.rows = common.Filter(s.rows, func(a models.Alert) bool { return !a.Handled })
	return int64(before - len(s.rows)), nil
}

func newReconciler(store *fakeStore, f feed.Feed) *Reconciler {
	return New(Config{Sessions: signedIn, Loader: store, Writer: store, Feed: f})
}

func TestStartLoadsNewestFirst(t *testing.T) {
	store := &fakeStore{rows: []models.Alert{alertAt(1, 1), alertAt(3, 3), alertAt(2, 2)}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()

	assert.Equal(t, StateUninitialized, r.View().State)
	require.NoError(t, r.Start(context.Background()))

	view := r.View()
	assert.Equal(t, StateReady, view.State)
	assert.Equal(t, "u1", view.UserID)
	assert.Equal(t, []uint{3, 2, 1}, ids(view.Alerts))
	assert.NoError(t, view.Err)

	f.last().emit(t, models.EventInsert, alertAt(4, 4))
	assert.Equal(t, []uint{4, 3, 2, 1}, ids(r.View().Alerts))
}

func TestUpdateDuringLoadWins(t *testing.T) {
	stale := alertAt(5, 5)
	store := &fakeStore{rows: []models.Alert{stale}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()

	fresh := stale
	fresh.Handled = true
	store.duringLoad = func() {
		f.last().emit(t, models.EventUpdate, fresh)
	}

	require.NoError(t, r.Start(context.Background()))

	view := r.View()
	require.Len(t, view.Alerts, 1)
	assert.True(t, view.Alerts[0].Handled, "a feed update newer than the load snapshot must survive the load")
}

func TestInsertDeleteAroundLoad(t *testing.T) {
	x := alertAt(9, 9)

	{
		// both events race the load
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
		f := &fakeFeed{}
		r := newReconciler(store, f)
		store.duringLoad = func() {
			f.last().emit(t, models.EventInsert, x)
			f.last().emit(t, models.EventDelete, x)
		}
		require.NoError(t, r.Start(context.Background()))
		assert.Equal(t, []uint{1}, ids(r.View().Alerts))
		require.NoError(t, r.Close())
	}

	{
		// insert races the load, delete arrives after it
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
		f := &fakeFeed{}
		r := newReconciler(store, f)
		store.duringLoad = func() {
			f.last().emit(t, models.EventInsert, x)
		}
		require.NoError(t, r.Start(context.Background()))
		assert.Equal(t, []uint{9, 1}, ids(r.View().Alerts))

		f.last().emit(t, models.EventDelete, x)
		assert.Equal(t, []uint{1}, ids(r.View().Alerts))
		require.NoError(t, r.Close())
	}

	{
		// the load snapshot already holds the row the insert announces
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1), x}}
		f := &fakeFeed{}
		r := newReconciler(store, f)
		store.duringLoad = func() {
			f.last().emit(t, models.EventInsert, x)
		}
		require.NoError(t, r.Start(context.Background()))
		assert.Equal(t, []uint{9, 1}, ids(r.View().Alerts))
		require.NoError(t, r.Close())
	}
}

func TestRepeatedUpdateIsIdempotent(t *testing.T) {
	store := &fakeStore{rows: []models.Alert{alertAt(2, 2), alertAt(1, 1)}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))

	handled := alertAt(1, 1)
	handled.Handled = true
	f.last().emit(t, models.EventUpdate, handled)
	once := r.View().Alerts
	f.last().emit(t, models.EventUpdate, handled)
	assert.Equal(t, once, r.View().Alerts)
}

func TestFilterAppliedToLiveEvents(t *testing.T) {
	store := &fakeStore{rows: []models.Alert{alertAt(2, 2), alertAt(1, 1)}}
	f := &fakeFeed{}
	r := New(Config{Sessions: signedIn, Loader: store, Writer: store, Feed: f, Filter: models.AlertFilterUnhandled})
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))

	handled := alertAt(1, 1)
	handled.Handled = true
	f.last().emit(t, models.EventUpdate, handled)
	assert.Equal(t, []uint{2}, ids(r.View().Alerts), "row leaves the unhandled view once handled")
}

func TestSetFilterReloads(t *testing.T) {
	h := alertAt(2, 2)
	h.Handled = true
	store := &fakeStore{rows: []models.Alert{h, alertAt(1, 1)}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()

	require.NoError(t, r.Start(context.Background()))
	first := f.last()

	require.NoError(t, r.SetFilter(context.Background(), models.AlertFilterHandled))
	assert.Equal(t, []models.AlertFilter{models.AlertFilterAll, models.AlertFilterHandled}, store.filters)
	assert.Equal(t, []uint{2}, ids(r.View().Alerts))
	assert.Equal(t, models.AlertFilterHandled, r.View().Filter)

	assert.Equal(t, 1, first.closeCount(), "old subscription released before the new one")
	assert.Len(t, f.subs, 2)

	// events on the released subscription no longer reach the list
	first.emit(t, models.EventInsert, alertAt(7, 7))
	assert.Equal(t, []uint{2}, ids(r.View().Alerts))
}

func TestStaleLoadDiscarded(t *testing.T) {
	store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	store.duringLoad = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background()) }()
	<-entered

	store.mu.Lock()
	store.duringLoad = nil
	store.rows = append(store.rows, alertAt(2, 2))
	store.mu.Unlock()

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, []uint{2, 1}, ids(r.View().Alerts))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []uint{2, 1}, ids(r.View().Alerts), "older load did not overwrite the newer one")
	assert.Equal(t, 1, f.subs[0].closeCount())
}

func TestCloseReleasesOnce(t *testing.T) {
	store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	require.NoError(t, r.Start(context.Background()))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, f.last().closeCount())
	assert.Equal(t, StateClosed, r.View().State)

	f.last().emit(t, models.EventInsert, alertAt(2, 2))
	assert.Equal(t, []uint{1}, ids(r.View().Alerts))

	assert.ErrorIs(t, r.Start(context.Background()), ErrClosed)
	assert.ErrorIs(t, r.MarkHandled(context.Background(), 1), ErrClosed)
}

func TestOptimisticMarkHandled(t *testing.T) {
	store := &fakeStore{rows: []models.Alert{alertAt(2, 2), alertAt(1, 1)}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))

	var views []View
	r.OnChange(func(v View) { views = append(views, v) })

	require.NoError(t, r.MarkHandled(context.Background(), 1))
	require.NotEmpty(t, views)
	assert.True(t, views[0].Alerts[1].Handled, "local state changes before the write returns")
	assert.True(t, r.View().Alerts[1].Handled)

	// the echo from the feed changes nothing
	before := r.View().Alerts
	f.last().emit(t, models.EventUpdate, store.rows[1])
	assert.Equal(t, before, r.View().Alerts)

	require.NoError(t, r.MarkUnhandled(context.Background(), 1))
	assert.False(t, r.View().Alerts[1].Handled)
}

func TestNewerFeedUpdateOutlivesWriteReply(t *testing.T) {
	row := alertAt(1, 1)
	row.UpdatedAt = base.Add(5 * time.Minute)
	store := &fakeStore{rows: []models.Alert{row}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))

	// another client unhandles the alert while our write is in flight
	other := row
	other.Handled = false
	other.UpdatedAt = base.Add(10 * time.Minute)
	store.duringWrite = func() {
		f.last().emit(t, models.EventUpdate, other)
	}

	require.NoError(t, r.MarkHandled(context.Background(), 1))
	got := r.View().Alerts
	require.Len(t, got, 1)
	assert.False(t, got[0].Handled)
	assert.True(t, got[0].UpdatedAt.Equal(other.UpdatedAt))
}

func TestOptimisticDelete(t *testing.T) {
	store := &fakeStore{rows: []models.Alert{alertAt(2, 2), alertAt(1, 1)}}
	f := &fakeFeed{}
	r := newReconciler(store, f)
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))

	require.NoError(t, r.Delete(context.Background(), 2))
	assert.Equal(t, []uint{1}, ids(r.View().Alerts))

	f.last().emit(t, models.EventDelete, alertAt(2, 2))
	assert.Equal(t, []uint{1}, ids(r.View().Alerts))
}

func TestDeleteAllHandled(t *testing.T) {
	h := alertAt(2, 2)
	h.Handled = true
	store := &fakeStore{rows: []models.Alert{alertAt(3, 3), h, alertAt(1, 1)}}
	r := newReconciler(store, &fakeFeed{})
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))

	n, err := r.DeleteAllHandled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []uint{3, 1}, ids(r.View().Alerts))
}

func TestWriteFailureRollsBack(t *testing.T) {
	h := alertAt(2, 2)
	h.Handled = true
	store := &fakeStore{rows: []models.Alert{alertAt(3, 3), h, alertAt(1, 1)}}
	r := newReconciler(store, &fakeFeed{})
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))
	before := r.View().Alerts

	store.writeErr = errors.New("connection reset")

	err := r.MarkHandled(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, before, r.View().Alerts)

	assert.ErrorIs(t, r.Delete(context.Background(), 3), ErrStoreWrite)
	assert.Equal(t, before, r.View().Alerts)

	_, err = r.DeleteAllHandled(context.Background())
	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.Equal(t, before, r.View().Alerts)
	assert.ErrorIs(t, r.Err(), ErrStoreWrite)
}

func TestReconciler_EdgeCases(t *testing.T) {
	ctx := context.Background()

	{
		// no session: empty list, no error returned, nothing subscribed
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
		f := &fakeFeed{}
		r := New(Config{Sessions: fakeSessions{}, Loader: store, Writer: store, Feed: f})
		require.NoError(t, r.Start(ctx))
		view := r.View()
		assert.Empty(t, view.Alerts)
		assert.ErrorIs(t, view.Err, models.ErrAuthRequired)
		assert.Empty(t, f.subs)
		assert.Empty(t, store.filters)
		assert.ErrorIs(t, r.MarkHandled(ctx, 1), models.ErrAuthRequired)
		require.NoError(t, r.Close())
	}

	{
		// load failure empties the list and reports
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
		f := &fakeFeed{}
		r := newReconciler(store, f)
		require.NoError(t, r.Start(ctx))
		require.Len(t, r.View().Alerts, 1)

		store.loadErr = errors.New("timeout")
		err := r.Start(ctx)
		assert.ErrorIs(t, err, ErrStoreRead)
		assert.Empty(t, r.View().Alerts)
		assert.ErrorIs(t, r.Err(), ErrStoreRead)
		require.NoError(t, r.Close())
		assert.Equal(t, 1, f.subs[1].closeCount(), "subscription released on close after a failed load")
	}

	{
		// events around a failed load never reach the emptied list
		store := &fakeStore{rows: []models.Alert{alertAt(2, 2), alertAt(1, 1)}, loadErr: errors.New("boom")}
		f := &fakeFeed{}
		r := newReconciler(store, f)
		store.duringLoad = func() {
			f.last().emit(t, models.EventInsert, alertAt(3, 3))
		}
		err := r.Start(ctx)
		assert.ErrorIs(t, err, ErrStoreRead)
		assert.Equal(t, StateFailed, r.View().State)
		assert.Empty(t, r.View().Alerts)

		f.last().emit(t, models.EventInsert, alertAt(4, 4))
		assert.Empty(t, r.View().Alerts)
		assert.ErrorIs(t, r.Err(), ErrStoreRead)

		// a later successful load recovers
		store.duringLoad = nil
		store.loadErr = nil
		require.NoError(t, r.Start(ctx))
		assert.Equal(t, StateReady, r.View().State)
		assert.Equal(t, []uint{2, 1}, ids(r.View().Alerts))
		require.NoError(t, r.Close())
	}

	{
		// subscribe failure still loads, and reports
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
		f := &fakeFeed{err: errors.New("feed down")}
		r := newReconciler(store, f)
		require.NoError(t, r.Start(ctx))
		assert.Equal(t, []uint{1}, ids(r.View().Alerts))
		assert.ErrorIs(t, r.Err(), ErrSubscription)
		require.NoError(t, r.Close())
	}

	{
		// feed failure after establishment keeps the last loaded list
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
		f := &fakeFeed{}
		r := newReconciler(store, f)
		require.NoError(t, r.Start(ctx))
		f.last().failWith(errors.New("socket closed"))
		assert.Equal(t, []uint{1}, ids(r.View().Alerts))
		assert.ErrorIs(t, r.Err(), ErrSubscription)
		assert.Equal(t, StateReady, r.View().State)
		require.NoError(t, r.Close())
	}

	{
		// unknown ids
		store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
		r := newReconciler(store, nil)
		require.NoError(t, r.Start(ctx))
		assert.ErrorIs(t, r.MarkHandled(ctx, 42), models.ErrNotFound)
		assert.ErrorIs(t, r.Delete(ctx, 42), models.ErrNotFound)
		require.NoError(t, r.Close())
	}
}

func TestWithBroker(t *testing.T) {
	b := feed.NewBroker()
	defer b.Close()

	store := &fakeStore{rows: []models.Alert{alertAt(1, 1)}}
	r := newReconciler(store, b)
	defer r.Close()
	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, 1, b.Subscribers(feed.Scope{Table: models.TableAlerts, UserID: "u1"}))

	ev, err := models.NewChangeEvent(models.TableAlerts, models.EventInsert, "u1", alertAt(2, 2), nil)
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), ev))

	assert.Eventually(t, func() bool { return len(r.View().Alerts) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Close())
	assert.Equal(t, 0, b.Subscribers(feed.Scope{Table: models.TableAlerts, UserID: "u1"}))
}
