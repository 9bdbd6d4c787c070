package config

import "time"

// StoreKind selects the callback store backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreSQLite StoreKind = "sqlite"
)

// Config is the top-level botkit configuration, corresponding to botkit.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Bot       BotConfig       `yaml:"bot" koanf:"bot"`
	Accounts  []AccountConfig `yaml:"accounts" koanf:"accounts"`
	Callbacks CallbacksConfig `yaml:"callbacks" koanf:"callbacks"`
	HTTP      HTTPConfig      `yaml:"http" koanf:"http"`
	Logging   LoggingConfig   `yaml:"logging" koanf:"logging"`
}

// ServerConfig holds the webhook listener settings.
type ServerConfig struct {
	Host         string `yaml:"host" koanf:"host"`
	Port         int    `yaml:"port" koanf:"port"`
	CORSAllowAll bool   `yaml:"cors_allow_all" koanf:"cors_allow_all"`
	EventStream  bool   `yaml:"event_stream" koanf:"event_stream"`
}

// BotConfig holds dispatcher behaviour.
type BotConfig struct {
	DefaultCallbackTimeout time.Duration `yaml:"default_callback_timeout" koanf:"default_callback_timeout"`
	VerifyRequests         bool          `yaml:"verify_requests" koanf:"verify_requests"`
	PrefetchTokens         bool          `yaml:"prefetch_tokens" koanf:"prefetch_tokens"`
	StatusMessage          string        `yaml:"status_message" koanf:"status_message"`
	DisabledMessage        string        `yaml:"disabled_message" koanf:"disabled_message"`
}

// AccountConfig is a single bot identity as written in the config file.
type AccountConfig struct {
	ID        string `yaml:"id" koanf:"id"`
	Host      string `yaml:"host" koanf:"host"`
	SecretKey string `yaml:"secret_key" koanf:"secret_key"`
}

// CallbacksConfig selects where pending method callbacks are kept.
type CallbacksConfig struct {
	Store        StoreKind     `yaml:"store" koanf:"store"`
	DBPath       string        `yaml:"db_path" koanf:"db_path"`
	PollInterval time.Duration `yaml:"poll_interval" koanf:"poll_interval"`
}

// HTTPConfig tunes the outbound platform client.
type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout" koanf:"timeout"`
	MaxIdleConns    int           `yaml:"max_idle_conns" koanf:"max_idle_conns"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" koanf:"idle_conn_timeout"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Format    string `yaml:"format" koanf:"format"`
	Level     string `yaml:"level" koanf:"level"`
	AddSource bool   `yaml:"add_source" koanf:"add_source"`
}
