// Package callbacks correlates outbound platform methods with the result
// callbacks the platform later posts back, keyed by sync id.
package callbacks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome reported by a method callback.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Callback is the deferred result of an outbound method.
type Callback struct {
	SyncID    uuid.UUID       `json:"sync_id"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Errors    []any           `json:"errors,omitempty"`
	ErrorData map[string]any  `json:"error_data,omitempty"`
}

// IsError reports whether the platform reported a failure.
func (c Callback) IsError() bool { return c.Status == StatusError }

// Parse decodes a callback envelope as posted by the platform.
func Parse(raw []byte) (Callback, error) {
	var cb Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return Callback{}, fmt.Errorf("decoding callback: %w", err)
	}
	if cb.SyncID == uuid.Nil {
		return Callback{}, fmt.Errorf("decoding callback: sync_id is required")
	}
	switch cb.Status {
	case StatusOK:
	case StatusError:
		if cb.Reason == "" {
			return Callback{}, fmt.Errorf("decoding callback: reason is required for status %q", cb.Status)
		}
	default:
		return Callback{}, fmt.Errorf("decoding callback: unknown status %q", cb.Status)
	}
	return cb, nil
}

// Store keeps one pending slot per sync id. Every slot is removed exactly
// once: by the waiter, by Pop, or by a timed-out or cancelled Wait.
type Store interface {
	// Create registers an empty slot. Registering an id twice fails.
	Create(ctx context.Context, syncID uuid.UUID) error
	// Resolve fills the slot for cb.SyncID.
	Resolve(ctx context.Context, cb Callback) error
	// Wait blocks until the slot is filled, timeout elapses or ctx ends.
	// The slot is removed in every case.
	Wait(ctx context.Context, syncID uuid.UUID, timeout time.Duration) (Callback, error)
	// Pop removes the slot without waiting and reports whether it held a result.
	Pop(ctx context.Context, syncID uuid.UUID) (Callback, bool, error)
	// Shutdown fails every unresolved slot with BotShuttingDownError.
	Shutdown(ctx context.Context) error
	// Pending lists the slots still held.
	Pending(ctx context.Context) ([]uuid.UUID, error)
}

// CallbackNotFoundError is returned for a sync id that is not registered or
// was already consumed.
type CallbackNotFoundError struct {
	SyncID uuid.UUID
}

func (e *CallbackNotFoundError) Error() string {
	return fmt.Sprintf("no callback found with sync_id: %s", e.SyncID)
}

// CallbackNotReceivedError is returned when a wait times out.
type CallbackNotReceivedError struct {
	SyncID  uuid.UUID
	Timeout time.Duration
}

func (e *CallbackNotReceivedError) Error() string {
	return fmt.Sprintf("callback for sync_id %s was not received within %s", e.SyncID, e.Timeout)
}

// CallbackExistsError is returned by Create for an id already registered.
type CallbackExistsError struct {
	SyncID uuid.UUID
}

func (e *CallbackExistsError) Error() string {
	return fmt.Sprintf("callback with sync_id %s already registered", e.SyncID)
}

// BotShuttingDownError wakes waiters when the bot stops.
type BotShuttingDownError struct {
	SyncID uuid.UUID
}

func (e *BotShuttingDownError) Error() string {
	if e.SyncID == uuid.Nil {
		return "bot is shutting down"
	}
	return fmt.Sprintf("bot is shutting down, callback %s abandoned", e.SyncID)
}
