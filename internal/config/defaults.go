package config

import "time"

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = "botkit.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			EventStream: true,
		},
		Bot: BotConfig{
			DefaultCallbackTimeout: 60 * time.Second,
			VerifyRequests:         true,
			PrefetchTokens:         true,
			StatusMessage:          "Bot is working",
			DisabledMessage:        "Bot is temporarily unavailable",
		},
		Callbacks: CallbacksConfig{
			Store:        StoreMemory,
			DBPath:       ".botkit/callbacks.db",
			PollInterval: 100 * time.Millisecond,
		},
		HTTP: HTTPConfig{
			Timeout:         60 * time.Second,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}
