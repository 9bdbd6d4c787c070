package callbacks

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/events"
	"github.com/ziadkadry99/botkit/internal/logging"
)

type alarm struct {
	deadline time.Time
	timer    *time.Timer
}

// Manager adds timeout alarms on top of a Store. A caller either waits
// inline, bounded by its own timeout, or schedules an alarm that discards
// the slot when nobody claims it in time.
type Manager struct {
	store Store
	log   *slog.Logger
	hub   *events.Hub

	mu     sync.Mutex
	alarms map[uuid.UUID]*alarm

	shutdownOnce sync.Once
	shutdownErr  error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithEvents publishes callback lifecycle events to hub.
func WithEvents(hub *events.Hub) ManagerOption {
	return func(m *Manager) { m.hub = hub }
}

// NewManager wraps store. A nil store selects a MemoryStore.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{
		store:  store,
		log:    logging.Discard(),
		alarms: make(map[uuid.UUID]*alarm),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "callbacks")
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() Store { return m.store }

// CreateCallback registers a slot for syncID.
func (m *Manager) CreateCallback(ctx context.Context, syncID uuid.UUID) error {
	return m.store.Create(ctx, syncID)
}

// SetResult delivers a callback to its slot.
func (m *Manager) SetResult(ctx context.Context, cb Callback) error {
	if err := m.store.Resolve(ctx, cb); err != nil {
		return err
	}
	e := events.Event{Type: events.CallbackResolved, SyncID: cb.SyncID.String(), Payload: map[string]string{"status": string(cb.Status)}}
	if cb.IsError() {
		e.Error = cb.Reason
	}
	m.hub.Publish(e)
	return nil
}

// WaitCallback blocks until the callback arrives or timeout elapses.
func (m *Manager) WaitCallback(ctx context.Context, syncID uuid.UUID, timeout time.Duration) (Callback, error) {
	cb, err := m.store.Wait(ctx, syncID, timeout)
	var notReceived *CallbackNotReceivedError
	if errors.As(err, &notReceived) {
		m.hub.Publish(events.Event{Type: events.CallbackTimeout, SyncID: syncID.String(), Error: err.Error()})
	}
	return cb, err
}

// PopCallback removes a slot without waiting.
func (m *Manager) PopCallback(ctx context.Context, syncID uuid.UUID) (Callback, bool, error) {
	return m.store.Pop(ctx, syncID)
}

// SetAlarm discards the slot for syncID after timeout unless CancelAlarm
// runs first. Scheduling a second alarm for the same id replaces the first.
func (m *Manager) SetAlarm(syncID uuid.UUID, timeout time.Duration) {
	a := &alarm{deadline: time.Now().Add(timeout)}

	m.mu.Lock()
	if prev, ok := m.alarms[syncID]; ok {
		prev.timer.Stop()
	}
	m.alarms[syncID] = a
	a.timer = time.AfterFunc(timeout, func() { m.fire(syncID, a) })
	m.mu.Unlock()
}

// CancelAlarm stops the alarm for syncID. With returnRemaining it reports
// the time left until the alarm would have fired, so the caller can keep the
// same budget for its own wait.
func (m *Manager) CancelAlarm(syncID uuid.UUID, returnRemaining bool) (time.Duration, error) {
	m.mu.Lock()
	a, ok := m.alarms[syncID]
	if ok {
		delete(m.alarms, syncID)
	}
	m.mu.Unlock()

	if !ok || !a.timer.Stop() {
		return 0, &CallbackNotFoundError{SyncID: syncID}
	}
	if !returnRemaining {
		return 0, nil
	}
	return max(time.Until(a.deadline), 0), nil
}

func (m *Manager) fire(syncID uuid.UUID, a *alarm) {
	m.mu.Lock()
	cur, ok := m.alarms[syncID]
	if !ok || cur != a {
		m.mu.Unlock()
		return
	}
	delete(m.alarms, syncID)
	m.mu.Unlock()

	_, resolved, err := m.store.Pop(context.Background(), syncID)
	var notFound *CallbackNotFoundError
	if errors.As(err, &notFound) {
		return
	}
	if err != nil {
		m.log.Error("Failed to discard unclaimed callback", "sync_id", syncID, "err", err)
		return
	}

	m.log.Warn("Callback was not waited", "sync_id", syncID, "received", resolved)
	m.hub.Publish(events.Event{
		Type:    events.CallbackUnclaimed,
		SyncID:  syncID.String(),
		Payload: map[string]string{"received": strconv.FormatBool(resolved)},
	})
}

// Alarms reports how many alarms are scheduled.
func (m *Manager) Alarms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alarms)
}

// Pending lists the slots still held by the store.
func (m *Manager) Pending(ctx context.Context) ([]uuid.UUID, error) {
	return m.store.Pending(ctx)
}

// Shutdown stops every alarm, discards the slots they guarded and wakes the
// remaining waiters with BotShuttingDownError. Only the first call acts.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		pending := make([]uuid.UUID, 0, len(m.alarms))
		for id, a := range m.alarms {
			a.timer.Stop()
			pending = append(pending, id)
		}
		clear(m.alarms)
		m.mu.Unlock()

		for _, id := range pending {
			if _, _, err := m.store.Pop(ctx, id); err != nil {
				m.log.Debug("Alarmed callback already gone", "sync_id", id, "err", err)
			}
		}

		m.shutdownErr = m.store.Shutdown(ctx)
	})
	return m.shutdownErr
}
