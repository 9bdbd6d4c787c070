package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type notificationOpts struct {
	SilentResponse   Missable[bool] `json:"silent_response,omitzero"`
	MarkupAutoAdjust Missable[bool] `json:"buttons_auto_adjust,omitzero"`
}

type notification struct {
	Status   string                     `json:"status"`
	Body     string                     `json:"body"`
	Metadata Missable[Object]           `json:"metadata,omitzero"`
	Opts     Missable[notificationOpts] `json:"opts,omitzero"`
	Bubbles  Missable[Markup]           `json:"bubble,omitzero"`
	Keyboard Missable[Markup]           `json:"keyboard,omitzero"`
}

type deliveryOpts struct {
	Send     Missable[bool] `json:"send,omitzero"`
	ForceDND Missable[bool] `json:"force_dnd,omitzero"`
}

type directOpts struct {
	StealthMode      Missable[bool]         `json:"stealth_mode,omitzero"`
	NotificationOpts Missable[deliveryOpts] `json:"notification_opts,omitzero"`
}

type directNotificationRequest struct {
	SyncID       uuid.UUID               `json:"sync_id"`
	GroupChatID  uuid.UUID               `json:"group_chat_id"`
	Notification notification            `json:"notification"`
	File         Missable[*OutgoingFile] `json:"file,omitzero"`
	Recipients   Missable[[]uuid.UUID]   `json:"recipients,omitzero"`
	Opts         Missable[directOpts]    `json:"opts,omitzero"`
}

// someIf returns Some(v) when any of the flags is present.
func someIf[T any](v T, present ...bool) Missable[T] {
	for _, p := range present {
		if p {
			return Some(v)
		}
	}
	return Absent[T]()
}

func newDirectNotification(syncID uuid.UUID, msg *OutgoingMessage) directNotificationRequest {
	nOpts := notificationOpts{SilentResponse: msg.SilentResponse, MarkupAutoAdjust: msg.MarkupAutoAdjust}
	delivery := deliveryOpts{Send: msg.SendPush, ForceDND: msg.IgnoreMute}
	dOpts := directOpts{
		StealthMode:      msg.StealthMode,
		NotificationOpts: someIf(delivery, !delivery.Send.IsZero(), !delivery.ForceDND.IsZero()),
	}

	return directNotificationRequest{
		SyncID:      syncID,
		GroupChatID: msg.ChatID,
		Notification: notification{
			Status:   "ok",
			Body:     msg.Body,
			Metadata: msg.Metadata,
			Opts:     someIf(nOpts, !nOpts.SilentResponse.IsZero(), !nOpts.MarkupAutoAdjust.IsZero()),
			Bubbles:  msg.Bubbles,
			Keyboard: msg.Keyboard,
		},
		File:       msg.File,
		Recipients: msg.Recipients,
		Opts:       someIf(dOpts, !dOpts.StealthMode.IsZero(), !dOpts.NotificationOpts.IsZero()),
	}
}

var directNotificationMethod = &Method{
	Name:           "send_message",
	CallbackErrors: notificationCallbackErrors("send_message"),
}

// SendMessage delivers msg to its chat and returns the sync id of the new
// message. By default it waits for the delivery callback.
func (c *Caller) SendMessage(ctx context.Context, msg *OutgoingMessage, opts ...CallOption) (uuid.UUID, error) {
	syncID := uuid.New()
	return c.CallAsync(ctx, msg.BotID, directNotificationMethod, request{
		verb: http.MethodPost,
		path: "/api/v4/botx/notifications/direct",
		body: newDirectNotification(syncID, msg),
	}, syncID, opts...)
}

// InternalNotification is a message from one bot to other bots in a chat.
type InternalNotification struct {
	BotID      uuid.UUID
	ChatID     uuid.UUID
	Data       Object
	Opts       Missable[Object]
	Recipients Missable[[]uuid.UUID]
}

type internalNotificationRequest struct {
	SyncID      uuid.UUID             `json:"sync_id"`
	GroupChatID uuid.UUID             `json:"group_chat_id"`
	Data        Object                `json:"data"`
	Opts        Missable[Object]      `json:"opts,omitzero"`
	Recipients  Missable[[]uuid.UUID] `json:"recipients,omitzero"`
}

var internalNotificationMethod = &Method{
	Name: "send_internal_bot_notification",
	StatusHandlers: map[int]StatusHandler{
		http.StatusTooManyRequests: func(r *Response) error {
			return &RateLimitReachedError{r.methodError("too many internal notifications")}
		},
	},
	CallbackErrors: notificationCallbackErrors("send_internal_bot_notification"),
}

// SendInternalBotNotification delivers n to the bots of a chat.
func (c *Caller) SendInternalBotNotification(ctx context.Context, n *InternalNotification, opts ...CallOption) (uuid.UUID, error) {
	syncID := uuid.New()
	data := n.Data
	if data == nil {
		data = Object{}
	}
	return c.CallAsync(ctx, n.BotID, internalNotificationMethod, request{
		verb: http.MethodPost,
		path: "/api/v4/botx/notifications/internal",
		body: internalNotificationRequest{
			SyncID:      syncID,
			GroupChatID: n.ChatID,
			Data:        data,
			Opts:        n.Opts,
			Recipients:  n.Recipients,
		},
	}, syncID, opts...)
}

type editPayload struct {
	Body     Missable[string]           `json:"body,omitzero"`
	Metadata Missable[Object]           `json:"metadata,omitzero"`
	Opts     Missable[notificationOpts] `json:"opts,omitzero"`
	Bubbles  Missable[Markup]           `json:"bubble,omitzero"`
	Keyboard Missable[Markup]           `json:"keyboard,omitzero"`
}

type editEventRequest struct {
	SyncID  uuid.UUID               `json:"sync_id"`
	Payload editPayload             `json:"payload"`
	File    Missable[*OutgoingFile] `json:"file,omitzero"`
}

var editEventMethod = &Method{
	Name:           "edit_message",
	StatusHandlers: map[int]StatusHandler{http.StatusNotFound: eventNotFound},
}

// EditMessage changes a message sent earlier.
func (c *Caller) EditMessage(ctx context.Context, edit *EditMessage) error {
	nOpts := notificationOpts{MarkupAutoAdjust: edit.MarkupAutoAdjust}
	return c.Call(ctx, edit.BotID, editEventMethod, request{
		verb: http.MethodPost,
		path: "/api/v3/botx/events/edit_event",
		body: editEventRequest{
			SyncID: edit.SyncID,
			Payload: editPayload{
				Body:     edit.Body,
				Metadata: edit.Metadata,
				Opts:     someIf(nOpts, !nOpts.MarkupAutoAdjust.IsZero()),
				Bubbles:  edit.Bubbles,
				Keyboard: edit.Keyboard,
			},
			File: edit.File,
		},
	}, nil)
}

var deleteEventMethod = &Method{
	Name:           "delete_message",
	StatusHandlers: map[int]StatusHandler{http.StatusNotFound: eventNotFound},
}

// DeleteMessage removes the message with syncID.
func (c *Caller) DeleteMessage(ctx context.Context, botID, syncID uuid.UUID) error {
	return c.Call(ctx, botID, deleteEventMethod, request{
		verb: http.MethodPost,
		path: "/api/v3/botx/events/delete_event",
		body: map[string]uuid.UUID{"sync_id": syncID},
	}, nil)
}
