package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/botkit/internal/accounts"
)

const envPrefix = "BOTKIT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BOTKIT_*). Nested keys use a double
// underscore: BOTKIT_BOT__STATUS_MESSAGE -> bot.status_message.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validStores = map[StoreKind]bool{
	StoreMemory: true,
	StoreSQLite: true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.Bot.DefaultCallbackTimeout < 0 {
		return fmt.Errorf("bot.default_callback_timeout must be non-negative")
	}

	if !validStores[c.Callbacks.Store] {
		return fmt.Errorf("invalid callbacks.store %q: must be one of memory, sqlite", c.Callbacks.Store)
	}
	if c.Callbacks.Store == StoreSQLite && c.Callbacks.DBPath == "" {
		return fmt.Errorf("callbacks.db_path is required for the sqlite store")
	}
	if c.Callbacks.PollInterval <= 0 {
		return fmt.Errorf("callbacks.poll_interval must be positive")
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must be non-negative")
	}

	if c.Logging.Format != "" && !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid logging.format %q: must be one of text, json", c.Logging.Format)
	}

	seen := make(map[string]bool, len(c.Accounts))
	for i, acc := range c.Accounts {
		if _, err := uuid.Parse(acc.ID); err != nil {
			return fmt.Errorf("accounts[%d].id %q is not a uuid", i, acc.ID)
		}
		if seen[acc.ID] {
			return fmt.Errorf("accounts[%d].id %q is duplicated", i, acc.ID)
		}
		seen[acc.ID] = true
		if acc.Host == "" {
			return fmt.Errorf("accounts[%d].host is required", i)
		}
		if acc.SecretKey == "" {
			return fmt.Errorf("accounts[%d].secret_key is required", i)
		}
	}

	return nil
}

// BotAccounts converts the configured accounts into registry records.
func (c *Config) BotAccounts() ([]accounts.Account, error) {
	result := make([]accounts.Account, 0, len(c.Accounts))
	for _, acc := range c.Accounts {
		id, err := uuid.Parse(acc.ID)
		if err != nil {
			return nil, fmt.Errorf("parsing account id %q: %w", acc.ID, err)
		}
		result = append(result, accounts.Account{ID: id, Host: acc.Host, SecretKey: acc.SecretKey})
	}
	return result, nil
}
