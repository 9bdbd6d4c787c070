package callbacks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type outcome struct {
	cb  Callback
	err error
}

type slot struct {
	ch       chan outcome
	resolved bool
	waiting  bool
}

// MemoryStore is the in-process Store. It does not survive restarts.
type MemoryStore struct {
	mu     sync.Mutex
	slots  map[uuid.UUID]*slot
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[uuid.UUID]*slot)}
}

func (s *MemoryStore) Create(_ context.Context, syncID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &BotShuttingDownError{SyncID: syncID}
	}
	if _, ok := s.slots[syncID]; ok {
		return &CallbackExistsError{SyncID: syncID}
	}
	s.slots[syncID] = &slot{ch: make(chan outcome, 1)}
	return nil
}

func (s *MemoryStore) Resolve(_ context.Context, cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[cb.SyncID]
	if !ok || sl.resolved {
		return &CallbackNotFoundError{SyncID: cb.SyncID}
	}
	sl.resolved = true
	sl.ch <- outcome{cb: cb}
	return nil
}

func (s *MemoryStore) Wait(ctx context.Context, syncID uuid.UUID, timeout time.Duration) (Callback, error) {
	s.mu.Lock()
	sl, ok := s.slots[syncID]
	if !ok {
		s.mu.Unlock()
		return Callback{}, &CallbackNotFoundError{SyncID: syncID}
	}
	if sl.waiting {
		s.mu.Unlock()
		return Callback{}, fmt.Errorf("callback %s already has a waiter", syncID)
	}
	sl.waiting = true
	s.mu.Unlock()

	defer s.remove(syncID, sl)

	// A result that is already in takes precedence over a zero timeout.
	select {
	case out := <-sl.ch:
		return out.cb, out.err
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-sl.ch:
		return out.cb, out.err
	case <-timer.C:
		return Callback{}, &CallbackNotReceivedError{SyncID: syncID, Timeout: timeout}
	case <-ctx.Done():
		return Callback{}, ctx.Err()
	}
}

func (s *MemoryStore) Pop(_ context.Context, syncID uuid.UUID) (Callback, bool, error) {
	s.mu.Lock()
	sl, ok := s.slots[syncID]
	if ok {
		delete(s.slots, syncID)
	}
	s.mu.Unlock()

	if !ok {
		return Callback{}, false, &CallbackNotFoundError{SyncID: syncID}
	}
	select {
	case out := <-sl.ch:
		if out.err != nil {
			return Callback{}, false, nil
		}
		return out.cb, true, nil
	default:
		return Callback{}, false, nil
	}
}

func (s *MemoryStore) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, sl := range s.slots {
		if sl.resolved {
			continue
		}
		sl.resolved = true
		sl.ch <- outcome{err: &BotShuttingDownError{SyncID: id}}
	}
	return nil
}

func (s *MemoryStore) Pending(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	return ids, nil
}

// remove deletes the slot only if it has not been replaced.
func (s *MemoryStore) remove(syncID uuid.UUID, sl *slot) {
	s.mu.Lock()
	if cur, ok := s.slots[syncID]; ok && cur == sl {
		delete(s.slots, syncID)
	}
	s.mu.Unlock()
}
