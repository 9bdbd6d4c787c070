package bots

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/ziadkadry99/botkit/internal/events"
	"github.com/ziadkadry99/botkit/internal/models"
)

// Task is the background execution of one inbound command.
type Task struct {
	done chan struct{}
	err  error
}

// Done is closed when the command finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the command finished and returns its uncaught error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PanicError is the error of a task whose handler panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

type taskSet struct {
	wg sync.WaitGroup
}

func (s *taskSet) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for active tasks: %w", ctx.Err())
	}
}

// spawn runs cmd on its own goroutine. The request context's cancellation
// does not reach the handler; its values do.
func (b *Bot) spawn(ctx context.Context, cmd models.Command) *Task {
	t := &Task{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)
	head := cmd.Head()

	b.tasks.wg.Add(1)
	go func() {
		defer b.tasks.wg.Done()
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				pe := &PanicError{Value: r, Stack: debug.Stack()}
				t.err = pe
				b.log.Error("Handler panicked", "sync_id", head.SyncID, "panic", r, "stack", string(pe.Stack))
				b.publishResult(head, t.err)
			}
		}()

		t.err = b.execute(ctx, cmd)
		if t.err != nil {
			b.log.Error("Uncaught error in command handler", "bot_id", head.Bot.ID, "sync_id", head.SyncID, "err", t.err)
		}
		b.publishResult(head, t.err)
	}()
	return t
}

func (b *Bot) execute(ctx context.Context, cmd models.Command) error {
	switch c := cmd.(type) {
	case *models.IncomingMessage:
		return b.handlers.handleMessage(ctx, c, b)
	case models.SystemEvent:
		return b.handlers.handleSystemEvent(ctx, c, b)
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
}

func (b *Bot) publishResult(head *models.Envelope, err error) {
	e := events.Event{Type: events.CommandCompleted, BotID: head.Bot.ID.String(), SyncID: head.SyncID.String()}
	if err != nil {
		e.Type = events.CommandFailed
		e.Error = err.Error()
	}
	b.hub.Publish(e)
}

// WaitActiveTasks blocks until every running command finished.
func (b *Bot) WaitActiveTasks(ctx context.Context) error {
	return b.tasks.wait(ctx)
}
