package bots

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/botkit/internal/models"
)

type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.steps = append(r.steps, s)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.steps)
}

func (r *recorder) middleware(name string) Middleware {
	return func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, next HandlerFunc) error {
		r.add(name + ".before")
		err := next(ctx, msg, bot)
		r.add(name + ".after")
		return err
	}
}

func TestMiddlewareOrder(t *testing.T) {
	rec := &recorder{}
	c := NewCollector(rec.middleware("M1"), rec.middleware("M2"))
	require.NoError(t, c.Command("/run", func(ctx context.Context, msg *models.IncomingMessage, bot *Bot) error {
		rec.add("H")
		return nil
	}))

	b := newTestBot(t, nil, Options{Collectors: []*Collector{c}})
	require.NoError(t, run(t, b, messagePayload("/run")))

	assert.Equal(t, []string{"M1.before", "M2.before", "H", "M2.after", "M1.after"}, rec.get())
}

func TestIncludePrependsParentMiddlewares(t *testing.T) {
	rec := &recorder{}
	child := NewCollector(rec.middleware("child"))
	require.NoError(t, child.Command("/run", func(ctx context.Context, msg *models.IncomingMessage, bot *Bot) error {
		rec.add("H")
		return nil
	}, WithMiddlewares(rec.middleware("handler"))))
	parent := NewCollector(rec.middleware("parent"))
	require.NoError(t, parent.Include(child))

	b := newTestBot(t, nil, Options{Collectors: []*Collector{parent}})
	require.NoError(t, run(t, b, messagePayload("/run")))

	want := []string{"parent.before", "child.before", "handler.before", "H", "handler.after", "child.after", "parent.after"}
	assert.Equal(t, want, rec.get())
}

func noop(context.Context, *models.IncomingMessage, *Bot) error { return nil }

func TestDuplicateRegistration(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Command("/a", noop))

	var dup *DuplicateHandlerError
	assert.ErrorAs(t, c.Command("/a", noop), &dup)

	require.NoError(t, c.Default(noop))
	assert.ErrorAs(t, c.Default(noop), &dup)

	require.NoError(t, c.OnChatCreated(func(context.Context, *models.ChatCreatedEvent, *Bot) error { return nil }))
	assert.ErrorAs(t, c.SystemEvent(models.EventChatCreated, nil), &dup)
}

func TestIncludeRejectsDuplicatesAtomically(t *testing.T) {
	parent := NewCollector()
	parent.Command("/a", noop)

	first := NewCollector()
	first.Command("/b", noop)
	second := NewCollector()
	second.Command("/a", noop)

	var dup *DuplicateHandlerError
	require.ErrorAs(t, parent.Include(first, second), &dup)
	assert.Equal(t, "/a", dup.Name)
	assert.Equal(t, []string{"/a"}, parent.Commands(), "parent changed after failed include")

	siblingA, siblingB := NewCollector(), NewCollector()
	siblingA.Command("/x", noop)
	siblingB.Command("/x", noop)
	_, err := New(Options{Collectors: []*Collector{siblingA, siblingB}})
	assert.ErrorAs(t, err, &dup)
}

func TestInvalidCommandNames(t *testing.T) {
	c := NewCollector()
	for _, name := range []string{"hello", "/", "/two words", "/a/b", ""} {
		var invalid *InvalidCommandError
		assert.ErrorAs(t, c.Command(name, noop), &invalid, "name %q", name)
	}
	assert.NoError(t, c.Command("/ok-name_1", noop))
}

func TestBotMenuVisibility(t *testing.T) {
	c := NewCollector()
	c.Command("/help", noop, WithDescription("Show help"))
	c.Command("/secret", noop, Visible(false))
	c.Command("/admin", noop, WithDescription("Admin tools"), VisibleFunc(
		func(ctx context.Context, r models.StatusRecipient, bot *Bot) (bool, error) {
			return r.IsAdmin != nil && *r.IsAdmin, nil
		}))
	c.Default(noop, WithDescription("fallback"))

	b := newTestBot(t, nil, Options{Collectors: []*Collector{c}})

	admin := true
	resp, err := b.GetStatus(context.Background(), models.StatusRecipient{BotID: testBotID, HUID: testHUID, IsAdmin: &admin})
	require.NoError(t, err)
	var names []string
	for _, cmd := range resp.Result.Commands {
		names = append(names, cmd.Body)
	}
	assert.Equal(t, []string{"/admin", "/help"}, names)
	assert.Equal(t, DefaultStatusMessage, resp.Result.StatusMessage)
	assert.True(t, resp.Result.Enabled)

	resp, err = b.GetStatus(context.Background(), models.StatusRecipient{BotID: testBotID, HUID: testHUID})
	require.NoError(t, err)
	require.Len(t, resp.Result.Commands, 1)
	assert.Equal(t, "Show help", resp.Result.Commands[0].Description)
}

func TestVisibilityErrorFailsStatus(t *testing.T) {
	c := NewCollector()
	c.Command("/x", noop, VisibleFunc(func(context.Context, models.StatusRecipient, *Bot) (bool, error) {
		return false, errors.New("directory down")
	}))
	b := newTestBot(t, nil, Options{Collectors: []*Collector{c}})

	_, err := b.GetStatus(context.Background(), models.StatusRecipient{BotID: testBotID})
	assert.ErrorContains(t, err, "directory down")
}

type quotaError struct{ limit int }

func (e *quotaError) Error() string { return fmt.Sprintf("quota %d exceeded", e.limit) }

type temporary interface {
	error
	Temporary() bool
}

type netHiccup struct{}

func (netHiccup) Error() string   { return "hiccup" }
func (netHiccup) Temporary() bool { return true }

func TestExceptionHandlers(t *testing.T) {
	rec := &recorder{}
	exc := NewExceptionHandlers()
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err *quotaError) error {
		rec.add(fmt.Sprintf("quota:%d", err.limit))
		return nil
	})
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err temporary) error {
		rec.add("temporary")
		return errors.New("handler itself failed")
	})

	c := NewCollector()
	c.Command("/quota", func(context.Context, *models.IncomingMessage, *Bot) error {
		return fmt.Errorf("sending: %w", &quotaError{limit: 3})
	})
	c.Command("/hiccup", func(context.Context, *models.IncomingMessage, *Bot) error {
		return netHiccup{}
	})
	c.Command("/boom", func(context.Context, *models.IncomingMessage, *Bot) error {
		return errors.New("boom")
	})

	b := newTestBot(t, nil, Options{Collectors: []*Collector{c}, ExceptionHandlers: exc})

	assert.NoError(t, run(t, b, messagePayload("/quota")))
	assert.NoError(t, run(t, b, messagePayload("/hiccup")), "error from exception handler leaked")
	assert.EqualError(t, run(t, b, messagePayload("/boom")), "boom")

	assert.Equal(t, []string{"quota:3", "temporary"}, rec.get())
}

func TestExceptionHandlerCatchAllCoversMiddlewares(t *testing.T) {
	var caught error
	exc := NewExceptionHandlers()
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err error) error {
		caught = err
		return nil
	})

	failing := func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, next HandlerFunc) error {
		return errors.New("middleware refused")
	}
	c := NewCollector(failing)
	c.Command("/x", noop)

	b := newTestBot(t, nil, Options{Collectors: []*Collector{c}, ExceptionHandlers: exc})
	require.NoError(t, run(t, b, messagePayload("/x")))
	assert.EqualError(t, caught, "middleware refused")
}

func TestExactTypeBeatsInterface(t *testing.T) {
	exc := NewExceptionHandlers()
	var got string
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err error) error {
		got = "any"
		return nil
	})
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err *quotaError) error {
		got = "quota"
		return nil
	})

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bare", &quotaError{}, "quota"},
		{"wrapped", fmt.Errorf("sending: %w", &quotaError{limit: 3}), "quota"},
		{"joined", errors.Join(errors.New("first"), &quotaError{}), "quota"},
		{"unmatched", errors.New("boom"), "any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			fn, matched := exc.lookup(tt.err)
			require.NotNil(t, fn)
			require.NoError(t, fn(context.Background(), nil, nil, matched))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterfaceBeatsCatchAllRegardlessOfOrder(t *testing.T) {
	exc := NewExceptionHandlers()
	var got string
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err error) error {
		got = "any"
		return nil
	})
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err temporary) error {
		got = "temporary"
		return nil
	})

	fn, matched := exc.lookup(fmt.Errorf("dial: %w", netHiccup{}))
	require.NotNil(t, fn)
	require.NoError(t, fn(context.Background(), nil, nil, matched))
	assert.Equal(t, "temporary", got)
	assert.IsType(t, netHiccup{}, matched)
}

func TestWrappedErrorWithCatchAllReachesSpecificHandler(t *testing.T) {
	rec := &recorder{}
	exc := NewExceptionHandlers()
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err error) error {
		rec.add("catch-all")
		return nil
	})
	On(exc, func(ctx context.Context, msg *models.IncomingMessage, bot *Bot, err *quotaError) error {
		rec.add(fmt.Sprintf("quota:%d", err.limit))
		return nil
	})

	c := NewCollector()
	c.Command("/send", func(context.Context, *models.IncomingMessage, *Bot) error {
		return fmt.Errorf("sending: %w", &quotaError{limit: 3})
	})

	b := newTestBot(t, nil, Options{Collectors: []*Collector{c}, ExceptionHandlers: exc})
	require.NoError(t, run(t, b, messagePayload("/send")))
	assert.Equal(t, []string{"quota:3"}, rec.get())
}
