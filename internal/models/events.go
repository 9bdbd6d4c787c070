package models

import (
	"github.com/google/uuid"
)

// EventKind is the body of a system command.
type EventKind string

const (
	EventChatCreated             EventKind = "system:chat_created"
	EventAddedToChat             EventKind = "system:added_to_chat"
	EventDeletedFromChat         EventKind = "system:deleted_from_chat"
	EventLeftFromChat            EventKind = "system:left_from_chat"
	EventCTSLogin                EventKind = "system:cts_login"
	EventCTSLogout               EventKind = "system:cts_logout"
	EventInternalBotNotification EventKind = "system:internal_bot_notification"
	EventSmartAppEvent           EventKind = "system:smartapp_event"
	EventEdit                    EventKind = "system:event_edit"
	EventChatDeletedByUser       EventKind = "system:chat_deleted_by_user"
)

// SystemEvent is a platform-originated command.
type SystemEvent interface {
	Command
	Kind() EventKind
}

// ChatMember is a participant listed in a chat_created event.
type ChatMember struct {
	HUID     uuid.UUID `json:"huid"`
	Name     string    `json:"name"`
	UserKind string    `json:"user_kind"`
	IsAdmin  bool      `json:"admin"`
}

// ChatCreatedEvent is delivered when the bot becomes part of a new chat.
type ChatCreatedEvent struct {
	Envelope
	Chat      Chat
	ChatName  string
	CreatorID uuid.UUID
	Members   []ChatMember
}

func (e *ChatCreatedEvent) Kind() EventKind { return EventChatCreated }

// AddedToChatEvent lists users added to a chat the bot is in.
type AddedToChatEvent struct {
	Envelope
	Chat  Chat
	HUIDs []uuid.UUID
}

func (e *AddedToChatEvent) Kind() EventKind { return EventAddedToChat }

// DeletedFromChatEvent lists users removed from a chat by an admin.
type DeletedFromChatEvent struct {
	Envelope
	Chat  Chat
	HUIDs []uuid.UUID
}

func (e *DeletedFromChatEvent) Kind() EventKind { return EventDeletedFromChat }

// LeftFromChatEvent lists users that left a chat.
type LeftFromChatEvent struct {
	Envelope
	Chat  Chat
	HUIDs []uuid.UUID
}

func (e *LeftFromChatEvent) Kind() EventKind { return EventLeftFromChat }

// CTSLoginEvent is sent when a user logs in on the bot's cluster.
type CTSLoginEvent struct {
	Envelope
	HUID  uuid.UUID
	CTSID uuid.UUID
}

func (e *CTSLoginEvent) Kind() EventKind { return EventCTSLogin }

// CTSLogoutEvent is sent when a user logs out of the bot's cluster.
type CTSLogoutEvent struct {
	Envelope
	HUID  uuid.UUID
	CTSID uuid.UUID
}

func (e *CTSLogoutEvent) Kind() EventKind { return EventCTSLogout }

// InternalBotNotificationEvent carries a payload another bot sent through
// the internal notification endpoint.
type InternalBotNotificationEvent struct {
	Envelope
	Chat   Chat
	Sender Sender
	Data   map[string]any
	Opts   map[string]any
}

func (e *InternalBotNotificationEvent) Kind() EventKind { return EventInternalBotNotification }

// SmartAppEvent is a request from a SmartApp frontend.
type SmartAppEvent struct {
	Envelope
	Chat       Chat
	Sender     Sender
	Ref        *uuid.UUID
	SmartAppID uuid.UUID
	Data       any
	Opts       map[string]any
	APIVersion int
	Files      []AsyncFile
}

func (e *SmartAppEvent) Kind() EventKind { return EventSmartAppEvent }

// EventEditEvent reports that a message the bot can see was edited.
type EventEditEvent struct {
	Envelope
	Chat        Chat
	Body        string
	Attachments []Attachment
	Entities    []Entity
}

func (e *EventEditEvent) Kind() EventKind { return EventEdit }

// Unrecognised lists attachments and entities kept as opaque records.
func (e *EventEditEvent) Unrecognised() []Opaque {
	return unrecognised(e.Attachments, e.Entities)
}

// ChatDeletedByUserEvent reports a personal chat removed by the user.
type ChatDeletedByUserEvent struct {
	Envelope
	ChatID uuid.UUID
	HUID   uuid.UUID
}

func (e *ChatDeletedByUserEvent) Kind() EventKind { return EventChatDeletedByUser }
