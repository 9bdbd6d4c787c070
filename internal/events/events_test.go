package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub()
	t.Cleanup(h.Close)

	ch, cancel := h.Subscribe(context.Background(), 4)
	defer cancel()

	if ok := h.Publish(Event{Type: CallbackResolved, SyncID: "abc"}); !ok {
		t.Fatal("expected publish to succeed")
	}

	select {
	case e := <-ch:
		if e.Type != CallbackResolved || e.SyncID != "abc" {
			t.Fatalf("unexpected event %+v", e)
		}
		if e.At.IsZero() {
			t.Fatal("expected timestamp to be filled")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	t.Cleanup(h.Close)

	_, cancel := h.Subscribe(context.Background(), 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(Event{Type: CommandReceived})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
}

func TestContextCancelUnsubscribes(t *testing.T) {
	h := NewHub()
	t.Cleanup(h.Close)

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := h.Subscribe(ctx, 1)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
}

func TestCloseStopsHub(t *testing.T) {
	h := NewHub()
	ch, _ := h.Subscribe(context.Background(), 1)
	h.Close()
	h.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if h.Publish(Event{Type: BotStopped}) {
		t.Fatal("expected publish to fail after close")
	}
	late, _ := h.Subscribe(context.Background(), 1)
	if _, ok := <-late; ok {
		t.Fatal("expected subscription after close to be closed")
	}
}

func TestNilHub(t *testing.T) {
	var h *Hub
	if h.Publish(Event{Type: BotStarted}) {
		t.Fatal("nil hub should not report delivery")
	}
	ch, cancel := h.Subscribe(context.Background(), 1)
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel from nil hub")
	}
	h.Close()
}
