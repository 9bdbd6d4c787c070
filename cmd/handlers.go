package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/botkit/internal/api"
	"github.com/ziadkadry99/botkit/internal/bots"
	"github.com/ziadkadry99/botkit/internal/models"
)

// builtinHandlers is the handler set served by `botkit serve`.
func builtinHandlers() (*bots.Collector, error) {
	c := bots.NewCollector()

	if err := c.Command("/echo", func(ctx context.Context, msg *models.IncomingMessage, bot *bots.Bot) error {
		if msg.Argument == "" {
			_, err := bot.Answer(ctx, "Usage: /echo <text>", api.WithoutCallbackWait())
			return err
		}
		_, err := bot.Answer(ctx, msg.Argument)
		return err
	}, bots.WithDescription("Repeat the text after the command")); err != nil {
		return nil, err
	}

	if err := c.Command("/whoami", func(ctx context.Context, msg *models.IncomingMessage, bot *bots.Bot) error {
		var b strings.Builder
		if msg.Sender.HUID != nil {
			fmt.Fprintf(&b, "huid: %s\n", msg.Sender.HUID)
		}
		if msg.Sender.ADLogin != "" {
			fmt.Fprintf(&b, "login: %s@%s\n", msg.Sender.ADLogin, msg.Sender.ADDomain)
		}
		fmt.Fprintf(&b, "chat: %s (%s)", msg.Chat.ID, msg.Chat.Type)
		_, err := bot.Answer(ctx, b.String())
		return err
	}, bots.WithDescription("Show what the bot knows about you")); err != nil {
		return nil, err
	}

	if err := c.Default(func(ctx context.Context, msg *models.IncomingMessage, bot *bots.Bot) error {
		_, err := bot.Answer(ctx, "Unknown command. Open the bot menu to see what I can do.", api.WithoutCallbackWait())
		return err
	}); err != nil {
		return nil, err
	}

	if err := c.OnChatCreated(func(ctx context.Context, ev *models.ChatCreatedEvent, bot *bots.Bot) error {
		_, err := bot.SendMessage(ctx, &api.OutgoingMessage{
			BotID:  ev.Bot.ID,
			ChatID: ev.Chat.ID,
			Body:   fmt.Sprintf("Hello, %s! Send /echo to try me out.", ev.ChatName),
		}, api.WithoutCallbackWait())
		return err
	}); err != nil {
		return nil, err
	}

	return c, nil
}

// builtinExceptionHandlers answers the user when a handler fails.
func builtinExceptionHandlers() *bots.ExceptionHandlers {
	exc := bots.NewExceptionHandlers()
	bots.On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *bots.Bot, err error) error {
		_, answerErr := bot.Answer(ctx, "Something went wrong, please try again later.", api.WithoutCallbackWait())
		return answerErr
	})
	return exc
}
