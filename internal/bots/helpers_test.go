package bots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/botkit/internal/accounts"
)

var (
	testBotID  = uuid.MustParse("24348246-6791-4ac0-9d86-b948cd6a0e46")
	testChatID = uuid.MustParse("dea55ee4-7a9f-5da0-8c5d-4e6e2bb9e6c4")
	testHUID   = uuid.MustParse("f16cdc5f-6366-5552-9ecd-c36290ab3d11")
)

// fakePlatform serves the token endpoint and whatever the test adds.
type fakePlatform struct {
	srv *httptest.Server
	mux *http.ServeMux
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	p := &fakePlatform{mux: http.NewServeMux()}
	p.mux.HandleFunc("GET /api/v2/botx/bots/{id}/token", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, "token")
	})
	p.srv = httptest.NewServer(p.mux)
	t.Cleanup(p.srv.Close)
	return p
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "result": result})
}

func newTestBot(t *testing.T, p *fakePlatform, opts Options) *Bot {
	t.Helper()
	host := "cts.example.com"
	client := http.DefaultClient
	if p != nil {
		host = p.srv.URL
		client = p.srv.Client()
	}
	opts.Accounts = []accounts.Account{{ID: testBotID, Host: host, SecretKey: "secret"}}
	opts.HTTPClient = client
	b, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.Shutdown(ctx)
	})
	return b
}

func messagePayload(body string) []byte {
	return fmt.Appendf(nil, `{
		"bot_id": %q,
		"sync_id": %q,
		"proto_version": 4,
		"command": {"body": %q, "command_type": "user", "data": {}, "metadata": {}},
		"from": {"user_huid": %q, "group_chat_id": %q, "chat_type": "chat", "host": "cts.example.com"},
		"attachments": [], "entities": [], "async_files": []
	}`, testBotID, uuid.New(), body, testHUID, testChatID)
}

func chatCreatedPayload() []byte {
	return fmt.Appendf(nil, `{
		"bot_id": %q,
		"sync_id": %q,
		"proto_version": 4,
		"command": {"body": "system:chat_created", "command_type": "system", "metadata": {},
			"data": {"group_chat_id": %q, "chat_type": "group_chat", "name": "Team", "creator": %q, "members": []}},
		"from": {"group_chat_id": %q, "chat_type": "group_chat", "host": "cts.example.com"},
		"attachments": [], "entities": [], "async_files": []
	}`, testBotID, uuid.New(), testChatID, testHUID, testChatID)
}

func run(t *testing.T, b *Bot, raw []byte) error {
	t.Helper()
	task, err := b.AsyncExecuteRawCommand(context.Background(), raw, nil, false)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

func eventEditPayload() []byte {
	return fmt.Appendf(nil, `{
		"bot_id": %q,
		"sync_id": %q,
		"proto_version": 4,
		"command": {"body": "system:event_edit", "command_type": "system", "metadata": {},
			"data": {"body": "edited"}},
		"from": {"group_chat_id": %q, "chat_type": "chat", "host": "cts.example.com"},
		"attachments": [{"type": "hologram", "data": {"depth": 3}}],
		"entities": [{"type": "poll", "data": {"question": "lunch?"}}],
		"async_files": []
	}`, testBotID, uuid.New(), testChatID)
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
