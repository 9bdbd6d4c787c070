package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ziadkadry99/botkit/internal/bots"
	"github.com/ziadkadry99/botkit/internal/callbacks"
	"github.com/ziadkadry99/botkit/internal/config"
	"github.com/ziadkadry99/botkit/internal/db"
	"github.com/ziadkadry99/botkit/internal/events"
)

// newHTTPClient builds the outbound platform client from config.
func newHTTPClient(cfg config.HTTPConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConns
	}
	if cfg.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = cfg.IdleConnTimeout
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: transport}
}

// openCallbackStore returns the configured store and a function that
// releases it.
func openCallbackStore(cfg config.CallbacksConfig) (callbacks.Store, func() error, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening callback store: %w", err)
		}
		return callbacks.NewSQLStore(database, cfg.PollInterval), database.Close, nil
	default:
		return callbacks.NewMemoryStore(), func() error { return nil }, nil
	}
}

// buildBot wires a Bot from config with the given handler collectors.
func buildBot(cfg *config.Config, log *slog.Logger, hub *events.Hub, exc *bots.ExceptionHandlers, collectors ...*bots.Collector) (*bots.Bot, func() error, error) {
	accs, err := cfg.BotAccounts()
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := openCallbackStore(cfg.Callbacks)
	if err != nil {
		return nil, nil, err
	}

	bot, err := bots.New(bots.Options{
		Collectors:             collectors,
		Accounts:               accs,
		ExceptionHandlers:      exc,
		HTTPClient:             newHTTPClient(cfg.HTTP),
		CallbackStore:          store,
		DefaultCallbackTimeout: cfg.Bot.DefaultCallbackTimeout,
		StatusMessage:          cfg.Bot.StatusMessage,
		Logger:                 log,
		Events:                 hub,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return bot, closeStore, nil
}
