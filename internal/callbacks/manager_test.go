package callbacks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/events"
)

func TestManagerWaitInline(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	id := uuid.New()

	if err := m.CreateCallback(ctx, id); err != nil {
		t.Fatalf("CreateCallback: %v", err)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = m.SetResult(ctx, okCallback(id))
	}()

	cb, err := m.WaitCallback(ctx, id, time.Second)
	if err != nil {
		t.Fatalf("WaitCallback: %v", err)
	}
	if cb.SyncID != id {
		t.Errorf("sync id = %s, want %s", cb.SyncID, id)
	}
	if m.Alarms() != 0 {
		t.Errorf("expected no alarms for inline wait, got %d", m.Alarms())
	}
}

func TestManagerAlarmDiscardsUnclaimed(t *testing.T) {
	ctx := context.Background()
	hub := events.NewHub()
	t.Cleanup(hub.Close)
	sub, cancel := hub.Subscribe(ctx, 8)
	defer cancel()

	m := NewManager(nil, WithEvents(hub))
	id := uuid.New()
	_ = m.CreateCallback(ctx, id)
	m.SetAlarm(id, 20*time.Millisecond)

	select {
	case e := <-sub:
		if e.Type != events.CallbackUnclaimed || e.SyncID != id.String() {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("alarm did not fire")
	}

	ids, _ := m.Pending(ctx)
	if len(ids) != 0 {
		t.Fatalf("expected slot to be discarded, got %v", ids)
	}
	if m.Alarms() != 0 {
		t.Fatalf("expected alarm to be removed, got %d", m.Alarms())
	}

	var notFound *CallbackNotFoundError
	if err := m.SetResult(ctx, okCallback(id)); !errors.As(err, &notFound) {
		t.Fatalf("late SetResult: expected CallbackNotFoundError, got %v", err)
	}
	if _, err := m.CancelAlarm(id, false); !errors.As(err, &notFound) {
		t.Fatalf("CancelAlarm after fire: expected CallbackNotFoundError, got %v", err)
	}
}

func TestManagerCancelAlarmReturnsRemaining(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	id := uuid.New()
	_ = m.CreateCallback(ctx, id)
	m.SetAlarm(id, time.Minute)

	remaining, err := m.CancelAlarm(id, true)
	if err != nil {
		t.Fatalf("CancelAlarm: %v", err)
	}
	if remaining <= 50*time.Second || remaining > time.Minute {
		t.Fatalf("remaining = %s, want close to 1m", remaining)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = m.SetResult(ctx, okCallback(id))
	}()
	if _, err := m.WaitCallback(ctx, id, remaining); err != nil {
		t.Fatalf("WaitCallback: %v", err)
	}
}

func TestManagerCancelUnknownAlarm(t *testing.T) {
	m := NewManager(nil)
	var notFound *CallbackNotFoundError
	if _, err := m.CancelAlarm(uuid.New(), true); !errors.As(err, &notFound) {
		t.Fatalf("expected CallbackNotFoundError, got %v", err)
	}
}

func TestManagerResolvedButUnclaimedStillDiscarded(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	id := uuid.New()
	_ = m.CreateCallback(ctx, id)
	m.SetAlarm(id, 20*time.Millisecond)
	if err := m.SetResult(ctx, okCallback(id)); err != nil {
		t.Fatalf("SetResult: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ids, _ := m.Pending(ctx); len(ids) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("resolved callback was never discarded by its alarm")
}

func TestManagerTimeoutEvent(t *testing.T) {
	ctx := context.Background()
	hub := events.NewHub()
	t.Cleanup(hub.Close)
	sub, cancel := hub.Subscribe(ctx, 8)
	defer cancel()

	m := NewManager(nil, WithEvents(hub))
	id := uuid.New()
	_ = m.CreateCallback(ctx, id)

	var notReceived *CallbackNotReceivedError
	if _, err := m.WaitCallback(ctx, id, 10*time.Millisecond); !errors.As(err, &notReceived) {
		t.Fatalf("expected CallbackNotReceivedError, got %v", err)
	}
	select {
	case e := <-sub:
		if e.Type != events.CallbackTimeout {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no timeout event")
	}
}

func TestManagerShutdown(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)

	waited := uuid.New()
	alarmed := uuid.New()
	_ = m.CreateCallback(ctx, waited)
	_ = m.CreateCallback(ctx, alarmed)
	m.SetAlarm(alarmed, time.Minute)

	errc := make(chan error, 1)
	go func() {
		_, err := m.WaitCallback(ctx, waited, time.Minute)
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case err := <-errc:
		var stopping *BotShuttingDownError
		if !errors.As(err, &stopping) {
			t.Fatalf("expected BotShuttingDownError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by shutdown")
	}
	if time.Since(start) > time.Second {
		t.Fatal("shutdown waited for the callback timeout")
	}

	if m.Alarms() != 0 {
		t.Errorf("expected alarms to be cleared, got %d", m.Alarms())
	}
	ids, _ := m.Pending(ctx)
	if len(ids) != 0 {
		t.Errorf("expected no pending callbacks, got %v", ids)
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
