// Package api issues authorized requests to the chat platform and maps its
// responses and result callbacks onto typed values and errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/ziadkadry99/botkit/internal/accounts"
	"github.com/ziadkadry99/botkit/internal/callbacks"
	"github.com/ziadkadry99/botkit/internal/events"
	"github.com/ziadkadry99/botkit/internal/logging"
)

// DefaultCallbackTimeout bounds async methods when no timeout is configured.
const DefaultCallbackTimeout = 60 * time.Second

// Caller sends requests on behalf of registered bot accounts.
type Caller struct {
	client         *http.Client
	registry       *accounts.Registry
	callbacks      *callbacks.Manager
	defaultTimeout time.Duration
	log            *slog.Logger
	hub            *events.Hub
}

// Option configures a Caller.
type Option func(*Caller)

// WithLogger sets the caller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Caller) { c.log = l }
}

// WithEvents publishes token events to hub.
func WithEvents(hub *events.Hub) Option {
	return func(c *Caller) { c.hub = hub }
}

// WithDefaultCallbackTimeout sets the wait budget used when a call does not
// pass WithCallbackTimeout.
func WithDefaultCallbackTimeout(d time.Duration) Option {
	return func(c *Caller) { c.defaultTimeout = d }
}

// NewCaller creates a Caller. A nil client selects a client with a 60s
// timeout.
func NewCaller(client *http.Client, registry *accounts.Registry, manager *callbacks.Manager, opts ...Option) *Caller {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	c := &Caller{
		client:         client,
		registry:       registry,
		callbacks:      manager,
		defaultTimeout: DefaultCallbackTimeout,
		log:            logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "api")
	return c
}

// HTTPClient returns the underlying client.
func (c *Caller) HTTPClient() *http.Client { return c.client }

// CallOption tunes a single async-callback call.
type CallOption func(*callOptions)

type callOptions struct {
	wait    bool
	timeout *time.Duration
}

// WithoutCallbackWait returns as soon as the platform accepts the request.
// The pending callback is discarded by an alarm after the timeout.
func WithoutCallbackWait() CallOption {
	return func(o *callOptions) { o.wait = false }
}

// WithCallbackTimeout overrides the default callback timeout. Zero is a
// real zero-second budget, not "use the default".
func WithCallbackTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = &d }
}

type request struct {
	verb        string
	path        string
	query       url.Values
	body        any
	raw         io.Reader
	contentType string
}

// url joins the account host with path. Hosts without a scheme get https.
func (c *Caller) url(botID uuid.UUID, path string, query url.Values) (string, error) {
	host, err := c.registry.Host(botID)
	if err != nil {
		return "", err
	}
	base := host
	if !strings.Contains(host, "://") {
		base = "https://" + host
	}
	u := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

func (c *Caller) newRequest(ctx context.Context, botID uuid.UUID, r request) (*http.Request, error) {
	target, err := c.url(botID, r.path, r.query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := r.contentType
	switch {
	case r.raw != nil:
		body = r.raw
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.verb, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

var tokenMethod = &Method{
	Name: "get_token",
	StatusHandlers: map[int]StatusHandler{
		http.StatusUnauthorized: func(r *Response) error {
			return &InvalidBotAccountError{Method: r.Method}
		},
	},
}

// GetToken obtains a new token from the platform and caches it.
func (c *Caller) GetToken(ctx context.Context, botID uuid.UUID) (string, error) {
	signature, err := c.registry.Signature(botID)
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, botID, request{
		verb:  http.MethodGet,
		path:  "/api/v2/botx/bots/" + botID.String() + "/token",
		query: url.Values{"signature": {signature}},
	})
	if err != nil {
		return "", err
	}

	resp, err := c.send(req, tokenMethod)
	if err != nil {
		var invalid *InvalidBotAccountError
		if errors.As(err, &invalid) {
			invalid.BotID = botID
		}
		return "", err
	}

	var token string
	if err := decodeResult(resp, &token); err != nil {
		return "", err
	}

	c.registry.SetToken(botID, token)
	c.hub.Publish(events.Event{Type: events.TokenFetched, BotID: botID.String()})
	c.log.Debug("Fetched bot token", "bot_id", botID)
	return token, nil
}

// Token returns the cached token or fetches one.
func (c *Caller) Token(ctx context.Context, botID uuid.UUID) (string, error) {
	if tok, ok := c.registry.Token(botID); ok {
		return tok, nil
	}
	return c.GetToken(ctx, botID)
}

// send executes req and dispatches non-2xx statuses through m.
func (c *Caller) send(req *http.Request, m *Method) (*Response, error) {
	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: sending request: %w", m.Name, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", m.Name, err)
	}

	resp := &Response{Method: m.Name, Status: httpResp.StatusCode, Header: httpResp.Header, Body: body}
	if err := c.checkStatus(resp, m); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Caller) checkStatus(resp *Response, m *Method) error {
	if resp.Status >= 200 && resp.Status < 300 {
		return nil
	}
	if h, ok := m.StatusHandlers[resp.Status]; ok {
		return h(resp)
	}
	return &InvalidResponseStatusError{Method: m.Name, Status: resp.Status, Body: string(resp.Body)}
}

// authorized attaches the bot token and sends req. A 401 drops the cached
// token and is returned without a retry.
func (c *Caller) authorized(ctx context.Context, botID uuid.UUID, m *Method, r request) (*Response, error) {
	req, err := c.authorizedRequest(ctx, botID, r)
	if err != nil {
		return nil, err
	}

	return c.send(req, withUnauthorized(m, c, botID))
}

func (c *Caller) authorizedRequest(ctx context.Context, botID uuid.UUID, r request) (*http.Request, error) {
	token, err := c.Token(ctx, botID)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, botID, r)
	if err != nil {
		return nil, err
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	return req, nil
}

// withUnauthorized returns m with the 401 handler every authorized method
// shares.
func withUnauthorized(m *Method, c *Caller, botID uuid.UUID) *Method {
	handlers := make(map[int]StatusHandler, len(m.StatusHandlers)+1)
	for code, h := range m.StatusHandlers {
		handlers[code] = h
	}
	handlers[http.StatusUnauthorized] = func(r *Response) error {
		c.registry.InvalidateToken(botID)
		c.log.Warn("Platform rejected bot token", "bot_id", botID, "method", r.Method)
		return &InvalidBotAccountError{BotID: botID, Method: r.Method}
	}
	return &Method{Name: m.Name, StatusHandlers: handlers, CallbackErrors: m.CallbackErrors}
}

// Call performs a synchronous method and decodes the envelope result into
// out, which may be nil.
func (c *Caller) Call(ctx context.Context, botID uuid.UUID, m *Method, r request, out any) error {
	resp, err := c.authorized(ctx, botID, m, r)
	if err != nil {
		return err
	}
	return decodeResult(resp, out)
}

// CallAsync performs an async-callback method. The pending callback for
// syncID is registered before the request leaves so a fast callback always
// finds its slot. The request body must carry syncID.
func (c *Caller) CallAsync(ctx context.Context, botID uuid.UUID, m *Method, r request, syncID uuid.UUID, opts ...CallOption) (uuid.UUID, error) {
	o := callOptions{wait: true}
	for _, opt := range opts {
		opt(&o)
	}
	timeout := c.defaultTimeout
	if o.timeout != nil {
		timeout = *o.timeout
	}

	if err := c.callbacks.CreateCallback(ctx, syncID); err != nil {
		return uuid.Nil, err
	}

	resp, err := c.authorized(ctx, botID, m, r)
	if err != nil {
		c.discard(syncID)
		return uuid.Nil, err
	}

	var result struct {
		SyncID uuid.UUID `json:"sync_id"`
	}
	if err := decodeResult(resp, &result); err != nil {
		c.discard(syncID)
		return uuid.Nil, err
	}

	if result.SyncID != syncID && result.SyncID != uuid.Nil {
		c.log.Warn("Platform assigned a different sync_id", "method", m.Name, "sent", syncID, "received", result.SyncID)
		c.discard(syncID)
		syncID = result.SyncID
		if err := c.callbacks.CreateCallback(ctx, syncID); err != nil {
			return uuid.Nil, err
		}
	}

	if !o.wait {
		c.callbacks.SetAlarm(syncID, timeout)
		return syncID, nil
	}

	cb, err := c.callbacks.WaitCallback(ctx, syncID, timeout)
	if err != nil {
		return uuid.Nil, err
	}
	if cb.IsError() {
		if h, ok := m.CallbackErrors[cb.Reason]; ok {
			return uuid.Nil, h(cb)
		}
		return uuid.Nil, &MethodFailedCallbackReceivedError{Method: m.Name, Callback: cb}
	}
	return syncID, nil
}

func (c *Caller) discard(syncID uuid.UUID) {
	if _, _, err := c.callbacks.PopCallback(context.Background(), syncID); err != nil {
		c.log.Debug("Pending callback already gone", "sync_id", syncID, "err", err)
	}
}

// decodeResult unwraps {"status":"ok","result":...}.
func decodeResult(resp *Response, out any) error {
	var env struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return &InvalidResponsePayloadError{Method: resp.Method, Body: string(resp.Body), Err: err}
	}
	if env.Status != "ok" {
		return &InvalidResponsePayloadError{Method: resp.Method, Body: string(resp.Body), Err: fmt.Errorf("status %q", env.Status)}
	}
	if out == nil {
		return nil
	}
	if len(env.Result) == 0 {
		return &InvalidResponsePayloadError{Method: resp.Method, Body: string(resp.Body), Err: errors.New("result is missing")}
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &InvalidResponsePayloadError{Method: resp.Method, Body: string(resp.Body), Err: err}
	}
	return nil
}
