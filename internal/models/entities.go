package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EntityType is the entities[].type discriminator.
type EntityType string

const (
	EntityMention EntityType = "mention"
	EntityForward EntityType = "forward"
	EntityReply   EntityType = "reply"
)

// MentionType says what a mention points at.
type MentionType string

const (
	MentionUser    MentionType = "user"
	MentionContact MentionType = "contact"
	MentionChat    MentionType = "chat"
	MentionChannel MentionType = "channel"
	MentionAll     MentionType = "all"
)

// Entity is one of the message entity variants.
type Entity interface {
	EntityType() EntityType
}

// Mention is an @-reference inside the body. EntityID is the mentioned
// user or chat.
type Mention struct {
	Type     MentionType
	ID       *uuid.UUID
	EntityID *uuid.UUID
	Name     string
	ConnType string
	Raw      json.RawMessage
}

func (m *Mention) EntityType() EntityType { return EntityMention }

type mentionWire struct {
	Type MentionType     `json:"mention_type"`
	ID   *uuid.UUID      `json:"mention_id"`
	Data json.RawMessage `json:"mention_data"`
}

type mentionDataWire struct {
	UserHUID    *uuid.UUID `json:"user_huid"`
	GroupChatID *uuid.UUID `json:"group_chat_id"`
	Name        string     `json:"name"`
	ConnType    string     `json:"conn_type"`
}

// Forward marks a message forwarded from another chat.
type Forward struct {
	ChatID           uuid.UUID `json:"group_chat_id"`
	SenderHUID       uuid.UUID `json:"sender_huid"`
	ForwardType      ChatType  `json:"forward_type"`
	SourceChatName   string    `json:"source_chat_name"`
	SourceSyncID     uuid.UUID `json:"source_sync_id"`
	SourceInsertedAt string    `json:"source_inserted_at"`
}

func (f *Forward) EntityType() EntityType { return EntityForward }

// Reply marks a message that answers an earlier one.
type Reply struct {
	SourceSyncID   uuid.UUID  `json:"source_sync_id"`
	SenderHUID     uuid.UUID  `json:"sender"`
	Body           string     `json:"body"`
	ReplyType      ChatType   `json:"reply_type"`
	SourceChatID   *uuid.UUID `json:"source_group_chat_id"`
	SourceChatName string     `json:"source_chat_name"`
}

func (r *Reply) EntityType() EntityType { return EntityReply }

// UnknownEntity preserves an entity of an unrecognised type.
type UnknownEntity struct {
	Type string
	Raw  json.RawMessage
}

func (e *UnknownEntity) EntityType() EntityType   { return EntityType(e.Type) }
func (e *UnknownEntity) TypeName() string         { return "entity:" + e.Type }
func (e *UnknownEntity) RawJSON() json.RawMessage { return e.Raw }

func parseEntity(raw json.RawMessage) (Entity, error) {
	var rec taggedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}

	switch EntityType(rec.Type) {
	case EntityMention:
		var w mentionWire
		if err := json.Unmarshal(rec.Data, &w); err != nil {
			return nil, fmt.Errorf("mention entity: %w", err)
		}
		m := &Mention{Type: w.Type, ID: w.ID, Raw: append(json.RawMessage(nil), rec.Data...)}
		if len(w.Data) > 0 && string(w.Data) != "null" {
			var d mentionDataWire
			if err := json.Unmarshal(w.Data, &d); err != nil {
				return nil, fmt.Errorf("mention data: %w", err)
			}
			m.Name = d.Name
			m.ConnType = d.ConnType
			m.EntityID = d.UserHUID
			if m.EntityID == nil {
				m.EntityID = d.GroupChatID
			}
		}
		return m, nil
	case EntityForward:
		f := &Forward{}
		if err := json.Unmarshal(rec.Data, f); err != nil {
			return nil, fmt.Errorf("forward entity: %w", err)
		}
		return f, nil
	case EntityReply:
		r := &Reply{}
		if err := json.Unmarshal(rec.Data, r); err != nil {
			return nil, fmt.Errorf("reply entity: %w", err)
		}
		return r, nil
	default:
		return &UnknownEntity{Type: rec.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
