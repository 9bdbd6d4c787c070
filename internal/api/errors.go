package api

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/callbacks"
)

// InvalidBotAccountError is returned when the platform rejects the bot's
// credentials (HTTP 401). The cached token has already been dropped.
type InvalidBotAccountError struct {
	BotID  uuid.UUID
	Method string
}

func (e *InvalidBotAccountError) Error() string {
	return fmt.Sprintf("%s: platform rejected credentials of bot %s", e.Method, e.BotID)
}

// InvalidResponseStatusError is returned for a status code the method does
// not handle.
type InvalidResponseStatusError struct {
	Method string
	Status int
	Body   string
}

func (e *InvalidResponseStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Method, e.Status, truncate(e.Body, 256))
}

// InvalidResponsePayloadError is returned when a 2xx body cannot be decoded.
type InvalidResponsePayloadError struct {
	Method string
	Body   string
	Err    error
}

func (e *InvalidResponsePayloadError) Error() string {
	return fmt.Sprintf("%s: invalid response payload: %v: %s", e.Method, e.Err, truncate(e.Body, 256))
}

func (e *InvalidResponsePayloadError) Unwrap() error { return e.Err }

// MethodFailedCallbackReceivedError is returned for a failure callback whose
// reason has no specific mapping.
type MethodFailedCallbackReceivedError struct {
	Method   string
	Callback callbacks.Callback
}

func (e *MethodFailedCallbackReceivedError) Error() string {
	return fmt.Sprintf("%s: failure callback received: %s (errors: %v, error_data: %v)",
		e.Method, e.Callback.Reason, e.Callback.Errors, e.Callback.ErrorData)
}

// MethodError carries the details shared by per-endpoint domain errors.
type MethodError struct {
	Method      string
	Description string
	Status      int
	SyncID      uuid.UUID
	Reason      string
	Errors      []any
	ErrorData   map[string]any
}

func (e *MethodError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Method, e.Description)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if len(e.ErrorData) > 0 {
		msg += fmt.Sprintf(" error_data=%v", e.ErrorData)
	}
	return msg
}

// ChatNotFoundError: the target chat does not exist.
type ChatNotFoundError struct{ MethodError }

// BotIsNotChatMemberError: the bot was removed from the target chat.
type BotIsNotChatMemberError struct{ MethodError }

// FinalRecipientsListEmptyError: every recipient was filtered out.
type FinalRecipientsListEmptyError struct{ MethodError }

// StealthModeDisabledError: stealth delivery requested in a chat without it.
type StealthModeDisabledError struct{ MethodError }

// RateLimitReachedError: too many internal notifications.
type RateLimitReachedError struct{ MethodError }

// ChatCreationProhibitedError: the bot may not create chats.
type ChatCreationProhibitedError struct{ MethodError }

// ChatCreationError: the platform refused the chat parameters.
type ChatCreationError struct{ MethodError }

// PermissionDeniedError: the bot lacks rights for the operation.
type PermissionDeniedError struct{ MethodError }

// UserNotFoundError: no user matches the lookup.
type UserNotFoundError struct{ MethodError }

// StickerPackOrStickerNotFoundError: the sticker pack or sticker is unknown.
type StickerPackOrStickerNotFoundError struct{ MethodError }

// FileDeletedError: the requested file was deleted.
type FileDeletedError struct{ MethodError }

// FileMetadataNotFoundError: the platform has no metadata for the file.
type FileMetadataNotFoundError struct{ MethodError }

// EventNotFoundError: the message to edit or delete does not exist.
type EventNotFoundError struct{ MethodError }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
