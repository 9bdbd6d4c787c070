package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type rawSender struct {
	UserHUID       *uuid.UUID     `json:"user_huid"`
	UDID           *uuid.UUID     `json:"user_udid"`
	GroupChatID    *uuid.UUID     `json:"group_chat_id"`
	ChatType       ChatType       `json:"chat_type"`
	Host           string         `json:"host"`
	ADLogin        *string        `json:"ad_login"`
	ADDomain       *string        `json:"ad_domain"`
	Username       *string        `json:"username"`
	IsAdmin        *bool          `json:"is_admin"`
	IsCreator      *bool          `json:"is_creator"`
	Locale         *string        `json:"locale"`
	Manufacturer   *string        `json:"manufacturer"`
	Device         *string        `json:"device"`
	DeviceSoftware *string        `json:"device_software"`
	DeviceMeta     *rawDeviceMeta `json:"device_meta"`
	Platform       *string        `json:"platform"`
	PackageID      *string        `json:"platform_package_id"`
	AppVersion     *string        `json:"app_version"`
}

type rawDeviceMeta struct {
	Pushes      *bool          `json:"pushes"`
	Timezone    *string        `json:"timezone"`
	Permissions map[string]any `json:"permissions"`
}

type rawCommandBody struct {
	Body        string          `json:"body"`
	CommandType CommandType     `json:"command_type"`
	Data        json.RawMessage `json:"data"`
	Metadata    map[string]any  `json:"metadata"`
}

type rawCommand struct {
	BotID        uuid.UUID         `json:"bot_id"`
	SyncID       uuid.UUID         `json:"sync_id"`
	SourceSyncID *uuid.UUID        `json:"source_sync_id"`
	ProtoVersion *int              `json:"proto_version"`
	Command      rawCommandBody    `json:"command"`
	From         rawSender         `json:"from"`
	Attachments  []json.RawMessage `json:"attachments"`
	Entities     []json.RawMessage `json:"entities"`
	AsyncFiles   []AsyncFile       `json:"async_files"`
}

// ParseCommand builds a typed command from a raw webhook payload. The
// proto_version is checked before anything else so payloads of a foreign
// API version never reach a handler.
func ParseCommand(raw []byte) (Command, error) {
	var probe struct {
		ProtoVersion *int `json:"proto_version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &InvalidPayloadError{What: "command payload", Err: err}
	}
	if probe.ProtoVersion == nil {
		return nil, &UnsupportedBotAPIVersionError{}
	}
	if *probe.ProtoVersion != BotAPIVersion {
		return nil, &UnsupportedBotAPIVersionError{Version: *probe.ProtoVersion}
	}

	var rc rawCommand
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, &InvalidPayloadError{What: "command payload", Err: err}
	}
	if rc.BotID == uuid.Nil {
		return nil, &InvalidPayloadError{What: "command payload", Err: fmt.Errorf("bot_id is required")}
	}

	env := Envelope{
		Bot:    BotRef{ID: rc.BotID, Host: rc.From.Host},
		SyncID: rc.SyncID,
		Raw:    append(json.RawMessage(nil), raw...),
		State:  NewState(),
	}

	switch rc.Command.CommandType {
	case CommandTypeUser:
		return parseMessage(env, &rc)
	case CommandTypeSystem:
		return parseSystemEvent(env, &rc)
	default:
		return nil, &InvalidPayloadError{What: "command_type", Err: fmt.Errorf("unknown value %q", rc.Command.CommandType)}
	}
}

func parseMessage(env Envelope, rc *rawCommand) (*IncomingMessage, error) {
	msg := &IncomingMessage{
		Envelope:     env,
		SourceSyncID: rc.SourceSyncID,
		Body:         rc.Command.Body,
		Metadata:     rc.Command.Metadata,
		Sender:       rc.From.sender(),
		Chat:         rc.From.chat(),
		AsyncFiles:   rc.AsyncFiles,
	}
	if err := decodeData(rc.Command.Data, &msg.Data); err != nil {
		return nil, err
	}

	var err error
	if msg.Attachments, err = parseAttachments(rc.Attachments); err != nil {
		return nil, err
	}
	if msg.Entities, err = parseEntities(rc.Entities); err != nil {
		return nil, err
	}
	_, msg.Argument = splitBody(msg.Body)
	return msg, nil
}

func parseSystemEvent(env Envelope, rc *rawCommand) (SystemEvent, error) {
	data := rc.Command.Data
	switch kind := EventKind(rc.Command.Body); kind {
	case EventChatCreated:
		var d struct {
			GroupChatID uuid.UUID    `json:"group_chat_id"`
			ChatType    ChatType     `json:"chat_type"`
			Name        string       `json:"name"`
			Creator     uuid.UUID    `json:"creator"`
			Members     []ChatMember `json:"members"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		return &ChatCreatedEvent{
			Envelope:  env,
			Chat:      Chat{ID: d.GroupChatID, Type: d.ChatType, Host: rc.From.Host},
			ChatName:  d.Name,
			CreatorID: d.Creator,
			Members:   d.Members,
		}, nil

	case EventAddedToChat:
		var d struct {
			Members []uuid.UUID `json:"added_members"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		return &AddedToChatEvent{Envelope: env, Chat: rc.From.chat(), HUIDs: d.Members}, nil

	case EventDeletedFromChat:
		var d struct {
			Members []uuid.UUID `json:"deleted_members"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		return &DeletedFromChatEvent{Envelope: env, Chat: rc.From.chat(), HUIDs: d.Members}, nil

	case EventLeftFromChat:
		var d struct {
			Members []uuid.UUID `json:"left_members"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		return &LeftFromChatEvent{Envelope: env, Chat: rc.From.chat(), HUIDs: d.Members}, nil

	case EventCTSLogin, EventCTSLogout:
		var d struct {
			UserHUID uuid.UUID `json:"user_huid"`
			CTSID    uuid.UUID `json:"cts_id"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		if kind == EventCTSLogin {
			return &CTSLoginEvent{Envelope: env, HUID: d.UserHUID, CTSID: d.CTSID}, nil
		}
		return &CTSLogoutEvent{Envelope: env, HUID: d.UserHUID, CTSID: d.CTSID}, nil

	case EventInternalBotNotification:
		var d struct {
			Data map[string]any `json:"data"`
			Opts map[string]any `json:"opts"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		return &InternalBotNotificationEvent{
			Envelope: env,
			Chat:     rc.From.chat(),
			Sender:   rc.From.sender(),
			Data:     d.Data,
			Opts:     d.Opts,
		}, nil

	case EventSmartAppEvent:
		var d struct {
			Ref        *uuid.UUID     `json:"ref"`
			SmartAppID uuid.UUID      `json:"smartapp_id"`
			Data       any            `json:"data"`
			Opts       map[string]any `json:"opts"`
			APIVersion int            `json:"smartapp_api_version"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		return &SmartAppEvent{
			Envelope:   env,
			Chat:       rc.From.chat(),
			Sender:     rc.From.sender(),
			Ref:        d.Ref,
			SmartAppID: d.SmartAppID,
			Data:       d.Data,
			Opts:       d.Opts,
			APIVersion: d.APIVersion,
			Files:      rc.AsyncFiles,
		}, nil

	case EventEdit:
		var d struct {
			Body string `json:"body"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		ev := &EventEditEvent{Envelope: env, Chat: rc.From.chat(), Body: d.Body}
		var err error
		if ev.Attachments, err = parseAttachments(rc.Attachments); err != nil {
			return nil, err
		}
		if ev.Entities, err = parseEntities(rc.Entities); err != nil {
			return nil, err
		}
		return ev, nil

	case EventChatDeletedByUser:
		var d struct {
			UserHUID    uuid.UUID `json:"user_huid"`
			GroupChatID uuid.UUID `json:"group_chat_id"`
		}
		if err := decodeData(data, &d); err != nil {
			return nil, err
		}
		return &ChatDeletedByUserEvent{Envelope: env, ChatID: d.GroupChatID, HUID: d.UserHUID}, nil

	default:
		return nil, &UnknownSystemEventError{Body: rc.Command.Body}
	}
}

func decodeData(data json.RawMessage, target any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &InvalidPayloadError{What: "command data", Err: err}
	}
	return nil
}

func parseAttachments(raws []json.RawMessage) ([]Attachment, error) {
	out := make([]Attachment, 0, len(raws))
	for i, raw := range raws {
		a, err := parseAttachment(raw)
		if err != nil {
			return nil, &InvalidPayloadError{What: fmt.Sprintf("attachments[%d]", i), Err: err}
		}
		out = append(out, a)
	}
	return out, nil
}

func parseEntities(raws []json.RawMessage) ([]Entity, error) {
	out := make([]Entity, 0, len(raws))
	for i, raw := range raws {
		e, err := parseEntity(raw)
		if err != nil {
			return nil, &InvalidPayloadError{What: fmt.Sprintf("entities[%d]", i), Err: err}
		}
		out = append(out, e)
	}
	return out, nil
}

func (s rawSender) chat() Chat {
	c := Chat{Type: s.ChatType, Host: s.Host}
	if s.GroupChatID != nil {
		c.ID = *s.GroupChatID
	}
	return c
}

func (s rawSender) sender() Sender {
	out := Sender{
		HUID:          s.UserHUID,
		UDID:          s.UDID,
		ADLogin:       deref(s.ADLogin),
		ADDomain:      deref(s.ADDomain),
		Username:      deref(s.Username),
		IsChatAdmin:   s.IsAdmin,
		IsChatCreator: s.IsCreator,
		Locale:        deref(s.Locale),
		Device: Device{
			Manufacturer: deref(s.Manufacturer),
			Name:         deref(s.Device),
			OS:           deref(s.DeviceSoftware),
		},
		App: ClientApp{
			Platform:  deref(s.Platform),
			PackageID: deref(s.PackageID),
			Version:   deref(s.AppVersion),
		},
	}
	if s.DeviceMeta != nil {
		out.Device.Pushes = s.DeviceMeta.Pushes
		out.Device.Timezone = deref(s.DeviceMeta.Timezone)
		out.Device.Permissions = s.DeviceMeta.Permissions
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
