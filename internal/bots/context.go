package bots

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/models"
)

type ctxKey int

const (
	botKey ctxKey = iota
	botIDKey
	chatIDKey
)

func withChat(ctx context.Context, bot *Bot, botID, chatID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, botKey, bot)
	ctx = context.WithValue(ctx, botIDKey, botID)
	if chatID != uuid.Nil {
		ctx = context.WithValue(ctx, chatIDKey, chatID)
	}
	return ctx
}

// BotFromContext returns the bot handling the current command.
func BotFromContext(ctx context.Context) (*Bot, bool) {
	b, ok := ctx.Value(botKey).(*Bot)
	return b, ok
}

// BotIDFromContext returns the bot account the current command was sent to.
func BotIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(botIDKey).(uuid.UUID)
	return id, ok
}

// ChatIDFromContext returns the chat of the current command.
func ChatIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(chatIDKey).(uuid.UUID)
	return id, ok
}

// AnswerDestinationLookupError is returned by Answer outside of a command
// that carries a bot and chat.
type AnswerDestinationLookupError struct {
	Missing string
}

func (e *AnswerDestinationLookupError) Error() string {
	return fmt.Sprintf("cannot answer: no %s in context", e.Missing)
}

func eventChatID(ev models.SystemEvent) uuid.UUID {
	switch e := ev.(type) {
	case *models.ChatCreatedEvent:
		return e.Chat.ID
	case *models.AddedToChatEvent:
		return e.Chat.ID
	case *models.DeletedFromChatEvent:
		return e.Chat.ID
	case *models.LeftFromChatEvent:
		return e.Chat.ID
	case *models.InternalBotNotificationEvent:
		return e.Chat.ID
	case *models.SmartAppEvent:
		return e.Chat.ID
	case *models.EventEditEvent:
		return e.Chat.ID
	case *models.ChatDeletedByUserEvent:
		return e.ChatID
	}
	return uuid.Nil
}
