package bots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/botkit/internal/accounts"
	"github.com/ziadkadry99/botkit/internal/api"
	"github.com/ziadkadry99/botkit/internal/callbacks"
	"github.com/ziadkadry99/botkit/internal/events"
	"github.com/ziadkadry99/botkit/internal/logging"
	"github.com/ziadkadry99/botkit/internal/models"
	"github.com/ziadkadry99/botkit/internal/verify"
)

// Options configures a Bot.
type Options struct {
	Collectors        []*Collector
	Accounts          []accounts.Account
	ExceptionHandlers *ExceptionHandlers
	// HTTPClient is used for every platform call. Nil selects a client with
	// a 60 second timeout.
	HTTPClient *http.Client
	// CallbackStore holds pending method callbacks. Nil selects the
	// in-memory store.
	CallbackStore          callbacks.Store
	DefaultCallbackTimeout time.Duration
	VerifierOptions        []verify.Option
	// StatusMessage is shown with the command menu.
	StatusMessage string
	Logger        *slog.Logger
	Events        *events.Hub
}

// Bot ingests platform commands, runs handlers and calls the platform API.
type Bot struct {
	registry  *accounts.Registry
	verifier  *verify.Verifier
	callbacks *callbacks.Manager
	caller    *api.Caller
	client    *http.Client
	handlers  *Collector
	log       *slog.Logger
	hub       *events.Hub
	tasks     taskSet

	statusMessage string

	// State is a process-wide bag for values shared between handlers.
	State *models.State

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a Bot. Registration conflicts between collectors are reported
// here, before any command is dispatched.
func New(opts Options) (*Bot, error) {
	registry, err := accounts.NewRegistry(opts.Accounts...)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	timeout := opts.DefaultCallbackTimeout
	if timeout <= 0 {
		timeout = api.DefaultCallbackTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	exceptions := opts.ExceptionHandlers
	if exceptions == nil {
		exceptions = NewExceptionHandlers()
	}

	b := &Bot{
		registry: registry,
		verifier: verify.New(registry, opts.VerifierOptions...),
		client:   client,
		log:      log.With("component", "bot"),
		hub:      opts.Events,
		State:    models.NewState(),

		statusMessage: opts.StatusMessage,
	}
	if b.statusMessage == "" {
		b.statusMessage = DefaultStatusMessage
	}
	b.callbacks = callbacks.NewManager(opts.CallbackStore,
		callbacks.WithLogger(log), callbacks.WithEvents(opts.Events))
	b.caller = api.NewCaller(client, registry, b.callbacks,
		api.WithLogger(log), api.WithEvents(opts.Events), api.WithDefaultCallbackTimeout(timeout))

	b.handlers = NewCollector(exceptions.middleware(b.log))
	if err := b.handlers.Include(opts.Collectors...); err != nil {
		return nil, fmt.Errorf("registering handlers: %w", err)
	}
	return b, nil
}

// Accounts returns the registered bot accounts.
func (b *Bot) Accounts() []accounts.Account { return b.registry.Accounts() }

// Callbacks exposes the callback manager.
func (b *Bot) Callbacks() *callbacks.Manager { return b.callbacks }

// API exposes the underlying platform caller.
func (b *Bot) API() *api.Caller { return b.caller }

func (b *Bot) verify(header http.Header, enabled bool) error {
	if !enabled {
		return nil
	}
	_, err := b.verifier.Verify(header)
	return err
}

// AsyncExecuteRawCommand verifies and parses a webhook payload and starts
// handling it in the background. Parse and verification errors are
// returned synchronously.
func (b *Bot) AsyncExecuteRawCommand(ctx context.Context, raw []byte, header http.Header, verifyRequest bool) (*Task, error) {
	if err := b.verify(header, verifyRequest); err != nil {
		return nil, err
	}
	cmd, err := models.ParseCommand(raw)
	if err != nil {
		return nil, err
	}
	return b.AsyncExecuteCommand(ctx, cmd)
}

// AsyncExecuteCommand starts handling an already parsed command.
func (b *Bot) AsyncExecuteCommand(ctx context.Context, cmd models.Command) (*Task, error) {
	head := cmd.Head()
	if err := b.registry.EnsureExists(head.Bot.ID); err != nil {
		return nil, err
	}
	if head.State == nil {
		head.State = models.NewState()
	}

	e := events.Event{Type: events.CommandReceived, BotID: head.Bot.ID.String(), SyncID: head.SyncID.String()}
	if u, ok := cmd.(interface{ Unrecognised() []models.Opaque }); ok {
		for _, o := range u.Unrecognised() {
			b.log.Warn("Received unsupported payload part", "type", o.TypeName(), "sync_id", head.SyncID, "raw", string(o.RawJSON()))
		}
	}
	switch c := cmd.(type) {
	case *models.IncomingMessage:
		e.ChatID = c.Chat.ID.String()
		e.Payload = map[string]string{"command": c.CommandToken()}
	case models.SystemEvent:
		e.Payload = map[string]string{"event": string(c.Kind())}
	}
	b.hub.Publish(e)

	return b.spawn(ctx, cmd), nil
}

// RawGetStatus verifies and answers a status (command menu) request.
func (b *Bot) RawGetStatus(ctx context.Context, query url.Values, header http.Header, verifyRequest bool) (*StatusResponse, error) {
	if err := b.verify(header, verifyRequest); err != nil {
		return nil, err
	}
	recipient, err := models.ParseStatusRecipient(query)
	if err != nil {
		return nil, err
	}
	return b.GetStatus(ctx, recipient)
}

// GetStatus builds the command menu visible to recipient.
func (b *Bot) GetStatus(ctx context.Context, recipient models.StatusRecipient) (*StatusResponse, error) {
	if err := b.registry.EnsureExists(recipient.BotID); err != nil {
		return nil, err
	}
	menu, err := b.handlers.BotMenu(ctx, recipient, b)
	if err != nil {
		return nil, err
	}
	return BuildStatusResponse(menu, b.statusMessage), nil
}

// SetRawBotXMethodResult verifies and delivers a method callback.
func (b *Bot) SetRawBotXMethodResult(ctx context.Context, raw []byte, header http.Header, verifyRequest bool) error {
	if err := b.verify(header, verifyRequest); err != nil {
		return err
	}
	cb, err := callbacks.Parse(raw)
	if err != nil {
		return err
	}
	return b.SetBotXMethodResult(ctx, cb)
}

// SetBotXMethodResult delivers cb to the call waiting for it.
func (b *Bot) SetBotXMethodResult(ctx context.Context, cb callbacks.Callback) error {
	return b.callbacks.SetResult(ctx, cb)
}

// Startup prepares the bot. With fetchTokens every account's token is
// requested in parallel; failures are logged and do not stop startup.
func (b *Bot) Startup(ctx context.Context, fetchTokens bool) error {
	if fetchTokens {
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range b.registry.IDs() {
			g.Go(func() error {
				if _, err := b.caller.GetToken(gctx, id); err != nil {
					b.log.Warn("Can't get token for bot account", "bot_id", id, "err", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	b.hub.Publish(events.Event{Type: events.BotStarted})
	b.log.Info("Bot started", "accounts", len(b.registry.IDs()))
	return nil
}

// Shutdown wakes every pending callback waiter, waits for running commands
// and closes idle connections. Only the first call acts.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.shutdownOnce.Do(func() {
		var errs []error
		if err := b.callbacks.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down callbacks: %w", err))
		}
		if err := b.WaitActiveTasks(ctx); err != nil {
			errs = append(errs, err)
		}
		b.client.CloseIdleConnections()

		b.shutdownErr = errors.Join(errs...)
		b.hub.Publish(events.Event{Type: events.BotStopped})
		b.log.Info("Bot stopped")
	})
	return b.shutdownErr
}

// Token returns a token for botID, fetching one when none is cached.
func (b *Bot) Token(ctx context.Context, botID uuid.UUID) (string, error) {
	return b.caller.Token(ctx, botID)
}
