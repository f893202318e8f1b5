package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/feed"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

var (
	ErrStoreRead    = errors.New("store read failed")
	ErrStoreWrite   = errors.New("store write failed")
	ErrSubscription = errors.New("change feed subscription failed")
	ErrClosed       = errors.New("reconciler closed")
)

const DefaultTimeout = 15 * time.Second

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	// StateFailed holds an empty list after a failed load. Live events are
	// dropped until a later Start loads successfully.
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return "uninitialized"
}

// SessionProvider returns the signed-in user, or a nil session when there is
// none.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (*models.Session, error)
}

type Loader interface {
	LoadAlerts(ctx context.Context, userID string, filter models.AlertFilter) ([]models.Alert, error)
}

type Writer interface {
	SetAlertHandled(ctx context.Context, userID string, alertID uint, handled bool) (models.Alert, error)
	DeleteAlert(ctx context.Context, userID string, alertID uint) error
	DeleteAllHandled(ctx context.Context, userID string) (int64, error)
}

// Store is what a remote client or the service layer usually offers: both
// halves at once.
type Store interface {
	Loader
	Writer
}

type Config struct {
	Sessions SessionProvider
	Loader   Loader
	Writer   Writer
	// Feed may be nil, in which case the list only changes on load and local
	// edits.
	Feed    feed.Feed
	Filter  models.AlertFilter
	Timeout time.Duration
}

type View struct {
	State  State
	Filter models.AlertFilter
	UserID string
	Alerts []models.Alert
	Err    error
}

// Reconciler owns one alert list. Loads run on the caller's goroutine; feed
// events are merged on the subscription's delivery goroutine. Listeners are
// called one at a time, each with the state current at the time of the call.
type Reconciler struct {
	cfg Config

	mu      sync.Mutex
	state   State
	filter  models.AlertFilter
	userID  string
	alerts  []models.Alert
	journal []models.AlertChange
	gen     uint64
	sub     feed.Subscription
	err     error

	notifyMu  sync.Mutex
	listeners []func(View)
}

func New(cfg Config) *Reconciler {
	if cfg.Filter == "" {
		cfg.Filter = models.AlertFilterAll
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Reconciler{cfg: cfg, filter: cfg.Filter}
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameReconciler)
}

// OnChange registers a listener. Listeners must not call Start, Close or the
// mutating methods synchronously; reading View is fine.
func (r *Reconciler) OnChange(l func(View)) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Reconciler) viewLocked() View {
	return View{
		State:  r.state,
		Filter: r.filter,
		UserID: r.userID,
		Alerts: slices.Clone(r.alerts),
		Err:    r.err,
	}
}

func (r *Reconciler) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Reconciler) notify() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if len(r.listeners) == 0 {
		return
	}
	view := r.View()
	for _, l := range r.listeners {
		l(view)
	}
}

// apply merges one change and drops rows the active filter excludes.
func (r *Reconciler) apply(change models.AlertChange) {
	r.alerts = common.Filter(Merge(r.alerts, change), r.filter.Match)
}

// Start loads the list and attaches the change feed. Any previous
// subscription is closed before the new one is opened. A missing session is
// not an error: the list is left empty and Err reports ErrAuthRequired.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateClosed {
		r.mu.Unlock()
		return ErrClosed
	}
	old := r.sub
	r.sub = nil
	r.gen++
	gen := r.gen
	filter := r.filter
	r.state = StateLoading
	r.journal = nil
	r.err = nil
	r.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logger().Warn("Failed to close previous subscription", zap.Error(err))
		}
	}
	r.notify()

	return r.run(ctx, gen, filter)
}

// Restart is Start under another name, for callers reacting to a new session.
func (r *Reconciler) Restart(ctx context.Context) error {
	return r.Start(ctx)
}

// SetFilter switches the predicate and reloads from the store, since the
// in-memory list only ever held rows matching the previous filter.
func (r *Reconciler) SetFilter(ctx context.Context, filter models.AlertFilter) error {
	r.mu.Lock()
	r.filter = filter
	r.mu.Unlock()
	return r.Start(ctx)
}

func (r *Reconciler) current(gen uint64) bool {
	return r.gen == gen && r.state != StateClosed
}

func (r *Reconciler) run(ctx context.Context, gen uint64, filter models.AlertFilter) error {
	session, err := r.session(ctx)
	if err != nil {
		r.mu.Lock()
		if r.current(gen) {
			r.state = StateUninitialized
			r.userID = ""
			r.alerts = nil
			r.err = err
		}
		r.mu.Unlock()
		r.notify()

		if errors.Is(err, models.ErrAuthRequired) {
			logger().Info("No session, alert list left empty")
			return nil
		}
		return err
	}

	var subErr error
	if r.cfg.Feed != nil {
		scope := feed.Scope{Table: models.TableAlerts, UserID: session.UserID}
		sub, err := r.cfg.Feed.Subscribe(ctx, scope)
		if err != nil {
			subErr = fmt.Errorf("%w: %w", ErrSubscription, err)
			logger().Warn("Change feed unavailable, list will not update live", zap.String("scope", scope.Key()), zap.Error(err))
		} else {
			r.mu.Lock()
			if !r.current(gen) {
				r.mu.Unlock()
				return sub.Close()
			}
			r.sub = sub
			r.mu.Unlock()

			sub.OnError(r.onFeedError(gen))
			sub.OnEvent(r.onFeedEvent(gen))
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	loaded, loadErr := r.cfg.Loader.LoadAlerts(loadCtx, session.UserID, filter)
	cancel()

	r.mu.Lock()
	if !r.current(gen) {
		r.mu.Unlock()
		logger().Debug("Discarding stale load", zap.Uint64("generation", gen))
		return nil
	}

	r.userID = session.UserID
	replayed := 0
	if loadErr != nil {
		// no snapshot to replay onto, so the journal goes too
		r.state = StateFailed
		r.alerts = nil
		r.err = errors.Join(fmt.Errorf("%w: %w", ErrStoreRead, loadErr), subErr)
	} else {
		r.state = StateReady
		r.err = subErr
		r.alerts = SortNewestFirst(common.Filter(loaded, filter.Match))
		// events that raced the load are newer than or equal to the snapshot
		for _, change := range r.journal {
			r.apply(change)
		}
		replayed = len(r.journal)
	}
	r.journal = nil
	err = r.err
	r.mu.Unlock()

	logger().Info("Alert list loaded",
		zap.String("user_id", session.UserID),
		zap.String("filter", string(filter)),
		zap.Int("replayed", replayed),
		zap.Error(loadErr))
	r.notify()

	if loadErr != nil {
		return err
	}
	return nil
}

func (r *Reconciler) session(ctx context.Context) (*models.Session, error) {
	if r.cfg.Sessions == nil {
		return nil, models.ErrAuthRequired
	}
	session, err := r.cfg.Sessions.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID == "" {
		return nil, models.ErrAuthRequired
	}
	return session, nil
}

func (r *Reconciler) onFeedEvent(gen uint64) feed.Handler {
	return func(ev models.ChangeEvent) {
		change, err := models.DecodeAlertChange(ev)
		if err != nil {
			logger().Warn("Ignoring malformed change event", zap.Error(err))
			return
		}

		r.mu.Lock()
		if !r.current(gen) {
			r.mu.Unlock()
			return
		}
		switch r.state {
		case StateLoading:
			r.journal = append(r.journal, change)
			r.mu.Unlock()
			return
		case StateReady:
			r.apply(change)
		default:
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		r.notify()
	}
}

func (r *Reconciler) onFeedError(gen uint64) func(error) {
	return func(err error) {
		r.mu.Lock()
		if !r.current(gen) {
			r.mu.Unlock()
			return
		}
		r.err = fmt.Errorf("%w: %w", ErrSubscription, err)
		r.mu.Unlock()

		logger().Warn("Change feed failed, keeping last loaded list", zap.Error(err))
		r.notify()
	}
}

// Close releases the subscription. It is safe to call more than once and
// from any goroutine.
func (r *Reconciler) Close() error {
	r.mu.Lock()
	if r.state == StateClosed {
		r.mu.Unlock()
		return nil
	}
	r.state = StateClosed
	r.gen++
	sub := r.sub
	r.sub = nil
	r.journal = nil
	r.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	r.notify()
	return err
}

func (r *Reconciler) MarkHandled(ctx context.Context, alertID uint) error {
	return r.setHandled(ctx, alertID, true)
}

func (r *Reconciler) MarkUnhandled(ctx context.Context, alertID uint) error {
	return r.setHandled(ctx, alertID, false)
}

// edit snapshots the rows an optimistic change touches so a failed write can
// put them back.
type edit struct {
	gen    uint64
	userID string
	before []models.Alert
}

func (r *Reconciler) begin(mutate func() ([]models.Alert, error)) (edit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateClosed {
		return edit{}, ErrClosed
	}
	if r.userID == "" {
		return edit{}, models.ErrAuthRequired
	}
	before, err := mutate()
	if err != nil {
		return edit{}, err
	}
	return edit{gen: r.gen, userID: r.userID, before: before}, nil
}

// rollback restores the touched rows unless the list has since been reloaded.
// Rows still present are replaced, missing ones re-inserted in order.
func (r *Reconciler) rollback(e edit, cause error) error {
	err := fmt.Errorf("%w: %w", ErrStoreWrite, cause)

	r.mu.Lock()
	if r.current(e.gen) {
		for i := range e.before {
			row := e.before[i]
			if indexOf(r.alerts, row.ID) >= 0 {
				r.apply(models.AlertChange{Type: models.EventUpdate, New: &row})
			} else {
				r.apply(models.AlertChange{Type: models.EventInsert, New: &row})
			}
		}
		r.err = err
	}
	r.mu.Unlock()

	logger().Warn("Alert write failed, local change rolled back", zap.Int("rows", len(e.before)), zap.Error(cause))
	r.notify()
	return err
}

func (r *Reconciler) setHandled(ctx context.Context, alertID uint, handled bool) error {
	e, err := r.begin(func() ([]models.Alert, error) {
		i := indexOf(r.alerts, alertID)
		if i < 0 {
			return nil, fmt.Errorf("%w: alert %d", models.ErrNotFound, alertID)
		}
		prev := r.alerts[i]
		next := prev
		next.Handled = handled
		r.apply(models.AlertChange{Type: models.EventUpdate, New: &next})
		return []models.Alert{prev}, nil
	})
	if err != nil {
		return err
	}
	r.notify()

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	saved, err := r.cfg.Writer.SetAlertHandled(writeCtx, e.userID, alertID, handled)
	if err != nil {
		return r.rollback(e, err)
	}

	if saved.ID != alertID {
		return nil
	}
	r.mu.Lock()
	applied := false
	// a feed update merged while the write was in flight may be newer
	if i := indexOf(r.alerts, alertID); r.current(e.gen) && (i < 0 || !r.alerts[i].UpdatedAt.After(saved.UpdatedAt)) {
		r.apply(models.AlertChange{Type: models.EventUpdate, New: &saved})
		applied = true
	}
	r.mu.Unlock()
	if applied {
		r.notify()
	}
	return nil
}

func (r *Reconciler) Delete(ctx context.Context, alertID uint) error {
	e, err := r.begin(func() ([]models.Alert, error) {
		i := indexOf(r.alerts, alertID)
		if i < 0 {
			return nil, fmt.Errorf("%w: alert %d", models.ErrNotFound, alertID)
		}
		prev := r.alerts[i]
		r.apply(models.AlertChange{Type: models.EventDelete, Old: &prev})
		return []models.Alert{prev}, nil
	})
	if err != nil {
		return err
	}
	r.notify()

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	if err := r.cfg.Writer.DeleteAlert(writeCtx, e.userID, alertID); err != nil {
		return r.rollback(e, err)
	}
	return nil
}

// DeleteAllHandled removes every handled row from the store, and from the
// list right away.
func (r *Reconciler) DeleteAllHandled(ctx context.Context) (int64, error) {
	e, err := r.begin(func() ([]models.Alert, error) {
		removed := common.Filter(r.alerts, func(a models.Alert) bool { return a.Handled })
		r.alerts = common.Filter(r.alerts, func(a models.Alert) bool { return !a.Handled })
		return removed, nil
	})
	if err != nil {
		return 0, err
	}
	r.notify()

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	n, err := r.cfg.Writer.DeleteAllHandled(writeCtx, e.userID)
	if err != nil {
		return 0, r.rollback(e, err)
	}
	return n, nil
}
