package bots

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/api"
	"github.com/ziadkadry99/botkit/internal/models"
)

// SendMessage sends msg and returns its sync id.
func (b *Bot) SendMessage(ctx context.Context, msg *api.OutgoingMessage, opts ...api.CallOption) (uuid.UUID, error) {
	return b.caller.SendMessage(ctx, msg, opts...)
}

// AnswerMessage sends msg to the chat of the command being handled. The
// bot and chat ids of msg are overwritten from ctx.
func (b *Bot) AnswerMessage(ctx context.Context, msg *api.OutgoingMessage, opts ...api.CallOption) (uuid.UUID, error) {
	botID, ok := BotIDFromContext(ctx)
	if !ok {
		return uuid.Nil, &AnswerDestinationLookupError{Missing: "bot id"}
	}
	chatID, ok := ChatIDFromContext(ctx)
	if !ok {
		return uuid.Nil, &AnswerDestinationLookupError{Missing: "chat id"}
	}
	out := *msg
	out.BotID, out.ChatID = botID, chatID
	return b.caller.SendMessage(ctx, &out, opts...)
}

// Answer replies with a plain text body.
func (b *Bot) Answer(ctx context.Context, body string, opts ...api.CallOption) (uuid.UUID, error) {
	return b.AnswerMessage(ctx, &api.OutgoingMessage{Body: body}, opts...)
}

func (b *Bot) EditMessage(ctx context.Context, edit *api.EditMessage) error {
	return b.caller.EditMessage(ctx, edit)
}

func (b *Bot) DeleteMessage(ctx context.Context, botID, syncID uuid.UUID) error {
	return b.caller.DeleteMessage(ctx, botID, syncID)
}

func (b *Bot) SendInternalBotNotification(ctx context.Context, n *api.InternalNotification, opts ...api.CallOption) (uuid.UUID, error) {
	return b.caller.SendInternalBotNotification(ctx, n, opts...)
}

func (b *Bot) CreateChat(ctx context.Context, chat *api.NewChat) (uuid.UUID, error) {
	return b.caller.CreateChat(ctx, chat)
}

func (b *Bot) ChatInfo(ctx context.Context, botID, chatID uuid.UUID) (*api.ChatInfo, error) {
	return b.caller.ChatInfo(ctx, botID, chatID)
}

func (b *Bot) ListChats(ctx context.Context, botID uuid.UUID) ([]api.ChatListItem, error) {
	return b.caller.ListChats(ctx, botID)
}

func (b *Bot) AddUsersToChat(ctx context.Context, botID, chatID uuid.UUID, users []uuid.UUID) error {
	return b.caller.AddUsersToChat(ctx, botID, chatID, users)
}

func (b *Bot) RemoveUsersFromChat(ctx context.Context, botID, chatID uuid.UUID, users []uuid.UUID) error {
	return b.caller.RemoveUsersFromChat(ctx, botID, chatID, users)
}

func (b *Bot) SearchUserByHUID(ctx context.Context, botID, huid uuid.UUID) (*api.User, error) {
	return b.caller.SearchUserByHUID(ctx, botID, huid)
}

func (b *Bot) StickerPack(ctx context.Context, botID, packID uuid.UUID) (*api.StickerPack, error) {
	return b.caller.StickerPack(ctx, botID, packID)
}

// DownloadFile streams a chat file into w.
func (b *Bot) DownloadFile(ctx context.Context, botID, chatID, fileID uuid.UUID, w io.Writer) (int64, error) {
	return b.caller.DownloadFile(ctx, botID, chatID, fileID, w)
}

func (b *Bot) UploadFile(ctx context.Context, botID, chatID uuid.UUID, fileName, mimeType string, content io.Reader, meta api.FileMeta) (*models.AsyncFile, error) {
	return b.caller.UploadFile(ctx, botID, chatID, fileName, mimeType, content, meta)
}

func (b *Bot) SendSmartAppEvent(ctx context.Context, ev *api.SmartAppEvent) error {
	return b.caller.SendSmartAppEvent(ctx, ev)
}
