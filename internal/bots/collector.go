// Package bots routes inbound platform commands to user handlers and exposes
// the Bot facade that owns verification, dispatch and outbound calls.
package bots

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/ziadkadry99/botkit/internal/events"
	"github.com/ziadkadry99/botkit/internal/models"
)

// HandlerFunc handles a user message.
type HandlerFunc func(ctx context.Context, msg *models.IncomingMessage, bot *Bot) error

// Middleware wraps a handler. It must call next to continue the chain.
type Middleware func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, next HandlerFunc) error

// SystemEventHandler handles a platform system event.
type SystemEventHandler func(ctx context.Context, ev models.SystemEvent, bot *Bot) error

// VisibilityFunc decides whether a command is listed for a recipient.
type VisibilityFunc func(ctx context.Context, recipient models.StatusRecipient, bot *Bot) (bool, error)

var commandPattern = regexp.MustCompile(`^/[^\s/]+$`)

// DuplicateHandlerError is returned when a command, default handler or
// system event is registered twice in one collector tree.
type DuplicateHandlerError struct {
	Kind string
	Name string
}

func (e *DuplicateHandlerError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s handler already registered", e.Kind)
	}
	return fmt.Sprintf("%s handler %q already registered", e.Kind, e.Name)
}

// InvalidCommandError rejects command names that are not a slash followed
// by a single word.
type InvalidCommandError struct {
	Name string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command name %q: must start with / and contain no spaces or other slashes", e.Name)
}

type handler struct {
	command     string
	fn          HandlerFunc
	description string
	visible     VisibilityFunc
	middlewares []Middleware
}

// HandlerOption configures a registered handler.
type HandlerOption func(*handler)

// WithDescription sets the description shown in the command menu.
func WithDescription(d string) HandlerOption {
	return func(h *handler) { h.description = d }
}

// Visible lists or hides the command in the menu.
func Visible(v bool) HandlerOption {
	return func(h *handler) {
		h.visible = func(context.Context, models.StatusRecipient, *Bot) (bool, error) { return v, nil }
	}
}

// VisibleFunc decides menu visibility per recipient.
func VisibleFunc(fn VisibilityFunc) HandlerOption {
	return func(h *handler) { h.visible = fn }
}

// WithMiddlewares appends handler-specific middlewares after the
// collector's own.
func WithMiddlewares(mws ...Middleware) HandlerOption {
	return func(h *handler) { h.middlewares = append(h.middlewares, mws...) }
}

// Collector holds handler registrations. Collectors are composed with
// Include; the Bot owns the root.
type Collector struct {
	middlewares    []Middleware
	commands       map[string]*handler
	defaultHandler *handler
	systemEvents   map[models.EventKind]SystemEventHandler
}

// NewCollector creates a collector whose handlers run behind middlewares,
// outermost first.
func NewCollector(middlewares ...Middleware) *Collector {
	return &Collector{
		middlewares:  slices.Clone(middlewares),
		commands:     make(map[string]*handler),
		systemEvents: make(map[models.EventKind]SystemEventHandler),
	}
}

func (c *Collector) newHandler(command string, fn HandlerFunc, opts []HandlerOption) *handler {
	h := &handler{
		command:     command,
		fn:          fn,
		middlewares: slices.Clone(c.middlewares),
	}
	Visible(true)(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Command registers fn for messages whose first token is name.
func (c *Collector) Command(name string, fn HandlerFunc, opts ...HandlerOption) error {
	if !commandPattern.MatchString(name) {
		return &InvalidCommandError{Name: name}
	}
	if _, ok := c.commands[name]; ok {
		return &DuplicateHandlerError{Kind: "command", Name: name}
	}
	c.commands[name] = c.newHandler(name, fn, opts)
	return nil
}

// Default registers the handler for messages no command matches.
func (c *Collector) Default(fn HandlerFunc, opts ...HandlerOption) error {
	if c.defaultHandler != nil {
		return &DuplicateHandlerError{Kind: "default"}
	}
	c.defaultHandler = c.newHandler("", fn, opts)
	return nil
}

// SystemEvent registers fn for one system event kind.
func (c *Collector) SystemEvent(kind models.EventKind, fn SystemEventHandler) error {
	if _, ok := c.systemEvents[kind]; ok {
		return &DuplicateHandlerError{Kind: "system event", Name: string(kind)}
	}
	c.systemEvents[kind] = fn
	return nil
}

func onEvent[E models.SystemEvent](c *Collector, kind models.EventKind, fn func(context.Context, E, *Bot) error) error {
	return c.SystemEvent(kind, func(ctx context.Context, ev models.SystemEvent, bot *Bot) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("system event %s delivered as %T", kind, ev)
		}
		return fn(ctx, typed, bot)
	})
}

func (c *Collector) OnChatCreated(fn func(context.Context, *models.ChatCreatedEvent, *Bot) error) error {
	return onEvent(c, models.EventChatCreated, fn)
}

func (c *Collector) OnAddedToChat(fn func(context.Context, *models.AddedToChatEvent, *Bot) error) error {
	return onEvent(c, models.EventAddedToChat, fn)
}

func (c *Collector) OnDeletedFromChat(fn func(context.Context, *models.DeletedFromChatEvent, *Bot) error) error {
	return onEvent(c, models.EventDeletedFromChat, fn)
}

func (c *Collector) OnLeftFromChat(fn func(context.Context, *models.LeftFromChatEvent, *Bot) error) error {
	return onEvent(c, models.EventLeftFromChat, fn)
}

func (c *Collector) OnCTSLogin(fn func(context.Context, *models.CTSLoginEvent, *Bot) error) error {
	return onEvent(c, models.EventCTSLogin, fn)
}

func (c *Collector) OnCTSLogout(fn func(context.Context, *models.CTSLogoutEvent, *Bot) error) error {
	return onEvent(c, models.EventCTSLogout, fn)
}

func (c *Collector) OnInternalBotNotification(fn func(context.Context, *models.InternalBotNotificationEvent, *Bot) error) error {
	return onEvent(c, models.EventInternalBotNotification, fn)
}

func (c *Collector) OnSmartAppEvent(fn func(context.Context, *models.SmartAppEvent, *Bot) error) error {
	return onEvent(c, models.EventSmartAppEvent, fn)
}

func (c *Collector) OnEventEdit(fn func(context.Context, *models.EventEditEvent, *Bot) error) error {
	return onEvent(c, models.EventEdit, fn)
}

func (c *Collector) OnChatDeletedByUser(fn func(context.Context, *models.ChatDeletedByUserEvent, *Bot) error) error {
	return onEvent(c, models.EventChatDeletedByUser, fn)
}

// Include merges children into c. Every conflict is checked before
// anything is merged, so a failed Include leaves c unchanged. The handlers
// of each child run behind c's middlewares.
func (c *Collector) Include(children ...*Collector) error {
	commands := make(map[string]bool, len(c.commands))
	for name := range c.commands {
		commands[name] = true
	}
	hasDefault := c.defaultHandler != nil
	kinds := make(map[models.EventKind]bool, len(c.systemEvents))
	for kind := range c.systemEvents {
		kinds[kind] = true
	}

	for _, child := range children {
		for name := range child.commands {
			if commands[name] {
				return &DuplicateHandlerError{Kind: "command", Name: name}
			}
			commands[name] = true
		}
		if child.defaultHandler != nil {
			if hasDefault {
				return &DuplicateHandlerError{Kind: "default"}
			}
			hasDefault = true
		}
		for kind := range child.systemEvents {
			if kinds[kind] {
				return &DuplicateHandlerError{Kind: "system event", Name: string(kind)}
			}
			kinds[kind] = true
		}
	}

	for _, child := range children {
		for name, h := range child.commands {
			c.commands[name] = c.wrap(h)
		}
		if child.defaultHandler != nil {
			c.defaultHandler = c.wrap(child.defaultHandler)
		}
		for kind, fn := range child.systemEvents {
			c.systemEvents[kind] = fn
		}
	}
	return nil
}

// wrap copies h with c's middlewares in front of its own.
func (c *Collector) wrap(h *handler) *handler {
	cp := *h
	cp.middlewares = append(slices.Clone(c.middlewares), h.middlewares...)
	return &cp
}

// Commands lists the registered command names in sorted order.
func (c *Collector) Commands() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handleMessage routes msg to a command or the default handler.
func (c *Collector) handleMessage(ctx context.Context, msg *models.IncomingMessage, bot *Bot) error {
	token := msg.CommandToken()
	h, ok := c.commands[token]
	if ok {
		msg.Command = token
	} else {
		h = c.defaultHandler
	}
	if h == nil {
		bot.log.Warn("No handler for message", "bot_id", msg.Bot.ID, "sync_id", msg.SyncID, "command", token)
		bot.hub.Publish(events.Event{
			Type:   events.CommandDropped,
			BotID:  msg.Bot.ID.String(),
			SyncID: msg.SyncID.String(),
			ChatID: msg.Chat.ID.String(),
		})
		return nil
	}

	ctx = withChat(ctx, bot, msg.Bot.ID, msg.Chat.ID)
	return h.chain()(ctx, msg, bot)
}

// chain folds the middlewares around the handler so the first middleware
// runs outermost.
func (h *handler) chain() HandlerFunc {
	next := h.fn
	for i := len(h.middlewares) - 1; i >= 0; i-- {
		mw, inner := h.middlewares[i], next
		next = func(ctx context.Context, msg *models.IncomingMessage, bot *Bot) error {
			return mw(ctx, msg, bot, inner)
		}
	}
	return next
}

func (c *Collector) handleSystemEvent(ctx context.Context, ev models.SystemEvent, bot *Bot) error {
	fn, ok := c.systemEvents[ev.Kind()]
	if !ok {
		bot.log.Debug("No handler for system event", "kind", ev.Kind(), "bot_id", ev.Head().Bot.ID)
		return nil
	}
	ctx = withChat(ctx, bot, ev.Head().Bot.ID, eventChatID(ev))
	return fn(ctx, ev, bot)
}

// BotMenu lists the visible commands for recipient with their
// descriptions. The default handler is never listed.
func (c *Collector) BotMenu(ctx context.Context, recipient models.StatusRecipient, bot *Bot) (map[string]string, error) {
	menu := make(map[string]string)
	for name, h := range c.commands {
		visible, err := h.visible(ctx, recipient, bot)
		if err != nil {
			return nil, fmt.Errorf("visibility of %s: %w", name, err)
		}
		if visible {
			menu[name] = h.description
		}
	}
	return menu, nil
}
