package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/models"
)

// NewChat describes a chat to create.
type NewChat struct {
	BotID         uuid.UUID
	Name          string
	ChatType      models.ChatType
	Members       []uuid.UUID
	Description   Missable[string]
	SharedHistory Missable[bool]
}

type createChatRequest struct {
	Name          string           `json:"name"`
	Description   Missable[string] `json:"description,omitzero"`
	ChatType      models.ChatType  `json:"chat_type"`
	Members       []uuid.UUID      `json:"members"`
	SharedHistory Missable[bool]   `json:"shared_history,omitzero"`
}

var createChatMethod = &Method{
	Name: "create_chat",
	StatusHandlers: map[int]StatusHandler{
		http.StatusForbidden: func(r *Response) error {
			return &ChatCreationProhibitedError{r.methodError("bot is not allowed to create chats")}
		},
		http.StatusUnprocessableEntity: func(r *Response) error {
			return &ChatCreationError{r.methodError("chat creation failed")}
		},
	},
}

// CreateChat creates a chat and returns its id.
func (c *Caller) CreateChat(ctx context.Context, chat *NewChat) (uuid.UUID, error) {
	members := chat.Members
	if members == nil {
		members = []uuid.UUID{}
	}
	var result struct {
		ChatID uuid.UUID `json:"chat_id"`
	}
	err := c.Call(ctx, chat.BotID, createChatMethod, request{
		verb: http.MethodPost,
		path: "/api/v3/botx/chats/create",
		body: createChatRequest{
			Name:          chat.Name,
			Description:   chat.Description,
			ChatType:      chat.ChatType,
			Members:       members,
			SharedHistory: chat.SharedHistory,
		},
	}, &result)
	if err != nil {
		return uuid.Nil, err
	}
	return result.ChatID, nil
}

// ChatMember is one member entry of ChatInfo.
type ChatMember struct {
	HUID  uuid.UUID `json:"user_huid"`
	Kind  string    `json:"user_kind"`
	Admin bool      `json:"admin"`
}

// ChatInfo describes a chat the bot is a member of.
type ChatInfo struct {
	ID            uuid.UUID       `json:"group_chat_id"`
	Type          models.ChatType `json:"chat_type"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	Creator       *uuid.UUID      `json:"creator"`
	InsertedAt    time.Time       `json:"inserted_at"`
	SharedHistory bool            `json:"shared_history"`
	Members       []ChatMember    `json:"members"`
}

var chatInfoMethod = &Method{
	Name:           "chat_info",
	StatusHandlers: map[int]StatusHandler{http.StatusNotFound: chatNotFound},
}

// ChatInfo returns details of chatID.
func (c *Caller) ChatInfo(ctx context.Context, botID, chatID uuid.UUID) (*ChatInfo, error) {
	var info ChatInfo
	err := c.Call(ctx, botID, chatInfoMethod, request{
		verb:  http.MethodGet,
		path:  "/api/v3/botx/chats/info",
		query: url.Values{"group_chat_id": {chatID.String()}},
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ChatListItem is one entry of ListChats.
type ChatListItem struct {
	ID            uuid.UUID       `json:"group_chat_id"`
	Type          models.ChatType `json:"chat_type"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	Members       []uuid.UUID     `json:"members"`
	CreatedAt     time.Time       `json:"inserted_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	SharedHistory bool            `json:"shared_history"`
}

var listChatsMethod = &Method{Name: "list_chats"}

// ListChats returns every chat the bot is a member of.
func (c *Caller) ListChats(ctx context.Context, botID uuid.UUID) ([]ChatListItem, error) {
	var chats []ChatListItem
	err := c.Call(ctx, botID, listChatsMethod, request{
		verb: http.MethodGet,
		path: "/api/v3/botx/chats/list",
	}, &chats)
	if err != nil {
		return nil, err
	}
	return chats, nil
}

type chatMembersRequest struct {
	GroupChatID uuid.UUID   `json:"group_chat_id"`
	UserHUIDs   []uuid.UUID `json:"user_huids"`
}

func chatMembersMethod(name string) *Method {
	return &Method{
		Name: name,
		StatusHandlers: map[int]StatusHandler{
			http.StatusForbidden: permissionDenied,
			http.StatusNotFound:  chatNotFound,
		},
	}
}

var (
	addUserMethod    = chatMembersMethod("add_users_to_chat")
	removeUserMethod = chatMembersMethod("remove_users_from_chat")
)

// AddUsersToChat adds users to chatID.
func (c *Caller) AddUsersToChat(ctx context.Context, botID, chatID uuid.UUID, users []uuid.UUID) error {
	return c.Call(ctx, botID, addUserMethod, request{
		verb: http.MethodPost,
		path: "/api/v3/botx/chats/add_user",
		body: chatMembersRequest{GroupChatID: chatID, UserHUIDs: users},
	}, nil)
}

// RemoveUsersFromChat removes users from chatID.
func (c *Caller) RemoveUsersFromChat(ctx context.Context, botID, chatID uuid.UUID, users []uuid.UUID) error {
	return c.Call(ctx, botID, removeUserMethod, request{
		verb: http.MethodPost,
		path: "/api/v3/botx/chats/remove_user",
		body: chatMembersRequest{GroupChatID: chatID, UserHUIDs: users},
	}, nil)
}
