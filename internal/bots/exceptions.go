package bots

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/ziadkadry99/botkit/internal/models"
)

// ExceptionHandler handles an error returned by a message handler or one of
// its middlewares.
type ExceptionHandler func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err error) error

type ifaceHandler struct {
	typ reflect.Type
	fn  ExceptionHandler
}

var errorType = reflect.TypeFor[error]()

// ExceptionHandlers maps error types to handlers.
type ExceptionHandlers struct {
	exact    map[reflect.Type]ExceptionHandler
	ifaces   []ifaceHandler
	catchAll ExceptionHandler
}

// NewExceptionHandlers creates an empty table.
func NewExceptionHandlers() *ExceptionHandlers {
	return &ExceptionHandlers{exact: make(map[reflect.Type]ExceptionHandler)}
}

// On registers fn for errors of type E. E may be a concrete error type or an
// interface. Concrete types anywhere in the error chain win over interfaces,
// and On[error] runs only when nothing else matched.
func On[E error](h *ExceptionHandlers, fn func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err E) error) {
	typ := reflect.TypeFor[E]()
	wrapped := func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err error) error {
		return fn(ctx, msg, bot, err.(E))
	}
	switch {
	case typ == errorType:
		h.catchAll = wrapped
	case typ.Kind() == reflect.Interface:
		for i, existing := range h.ifaces {
			if existing.typ == typ {
				h.ifaces[i].fn = wrapped
				return
			}
		}
		h.ifaces = append(h.ifaces, ifaceHandler{typ: typ, fn: wrapped})
	default:
		h.exact[typ] = wrapped
	}
}

// lookup returns the handler for err and the error in its chain it matched.
func (h *ExceptionHandlers) lookup(err error) (ExceptionHandler, error) {
	if err == nil {
		return nil, nil
	}
	chain := unwrapChain(err)
	for _, e := range chain {
		if fn, ok := h.exact[reflect.TypeOf(e)]; ok {
			return fn, e
		}
	}
	for _, e := range chain {
		typ := reflect.TypeOf(e)
		for _, ih := range h.ifaces {
			if typ.Implements(ih.typ) {
				return ih.fn, e
			}
		}
	}
	if h.catchAll != nil {
		return h.catchAll, err
	}
	return nil, nil
}

// unwrapChain flattens the tree of wrapped errors in the order errors.As
// visits it.
func unwrapChain(err error) []error {
	var out []error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		out = append(out, e)
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// middleware returns the outermost middleware of every chain.
func (h *ExceptionHandlers) middleware(log *slog.Logger) Middleware {
	return func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, next HandlerFunc) error {
		err := next(ctx, msg, bot)
		if err == nil {
			return nil
		}
		fn, matched := h.lookup(err)
		if fn == nil {
			return err
		}
		if herr := fn(ctx, msg, bot, matched); herr != nil {
			log.Error("Exception handler failed", "sync_id", msg.SyncID, "handled", err, "err", herr)
		}
		return nil
	}
}
