package api

import (
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/botkit/internal/callbacks"
)

// Response is a platform HTTP response with its body fully read.
type Response struct {
	Method string
	Status int
	Header http.Header
	Body   []byte
}

// errorEnvelope is the body the platform sends with non-2xx statuses.
type errorEnvelope struct {
	Status    string         `json:"status"`
	Reason    string         `json:"reason"`
	Errors    []any          `json:"errors"`
	ErrorData map[string]any `json:"error_data"`
}

// envelope decodes the error body, tolerating non-JSON bodies.
func (r *Response) envelope() errorEnvelope {
	var env errorEnvelope
	_ = json.Unmarshal(r.Body, &env)
	return env
}

func (r *Response) methodError(description string) MethodError {
	env := r.envelope()
	return MethodError{
		Method:      r.Method,
		Description: description,
		Status:      r.Status,
		Reason:      env.Reason,
		Errors:      env.Errors,
		ErrorData:   env.ErrorData,
	}
}

// StatusHandler turns a non-2xx response into a domain error.
type StatusHandler func(r *Response) error

// CallbackErrorHandler turns a failure callback into a domain error.
type CallbackErrorHandler func(cb callbacks.Callback) error

// Method describes how one endpoint maps failures onto errors.
type Method struct {
	Name           string
	StatusHandlers map[int]StatusHandler
	CallbackErrors map[string]CallbackErrorHandler
}

func callbackMethodError(method, description string, cb callbacks.Callback) MethodError {
	return MethodError{
		Method:      method,
		Description: description,
		SyncID:      cb.SyncID,
		Reason:      cb.Reason,
		Errors:      cb.Errors,
		ErrorData:   cb.ErrorData,
	}
}

// notificationCallbackErrors is shared by the direct and internal
// notification endpoints.
func notificationCallbackErrors(method string) map[string]CallbackErrorHandler {
	return map[string]CallbackErrorHandler{
		"chat_not_found": func(cb callbacks.Callback) error {
			return &ChatNotFoundError{callbackMethodError(method, "chat not found", cb)}
		},
		"bot_is_not_a_chat_member": func(cb callbacks.Callback) error {
			return &BotIsNotChatMemberError{callbackMethodError(method, "bot is not a chat member", cb)}
		},
		"event_recipients_list_is_empty": func(cb callbacks.Callback) error {
			return &FinalRecipientsListEmptyError{callbackMethodError(method, "no recipients left after filtering", cb)}
		},
		"stealth_mode_disabled": func(cb callbacks.Callback) error {
			return &StealthModeDisabledError{callbackMethodError(method, "stealth mode is disabled in the chat", cb)}
		},
	}
}

func chatNotFound(r *Response) error {
	return &ChatNotFoundError{r.methodError("chat not found")}
}

func permissionDenied(r *Response) error {
	return &PermissionDeniedError{r.methodError("permission denied")}
}

func eventNotFound(r *Response) error {
	return &EventNotFoundError{r.methodError("event not found")}
}
