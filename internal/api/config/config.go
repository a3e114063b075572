package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/caarlos0/env/v11"
)

const (
	TransportModeBot      = "bot"
	TransportModeLoopback = "loopback"

	// BotDownloadLimit is the largest file getFile will serve. Uploads accept
	// more, but anything past this could never be downloaded again.
	BotDownloadLimit int64 = 20 * 1024 * 1024
)

// Config holds gateway configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	App      AppConfig      `json:"app" yaml:"app"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	KV       KVConfig       `json:"kv" yaml:"kv"`
	Links    LinksConfig    `json:"links" yaml:"links"`
	Queue    QueueConfig    `json:"queue" yaml:"queue"`
	Network  NetworkConfig  `json:"network" yaml:"network"`
	Logger   logger.Config  `json:"logger" yaml:"logger"`
}

type ServerConfig struct {
	Addr      string `json:"addr" yaml:"addr" env:"SERVER_ADDR"`
	PublicURL string `json:"public_url" yaml:"public_url" env:"PUBLIC_URL"`
}

type AppConfig struct {
	NodeID           int64 `json:"node_id" yaml:"node_id"`
	MaxFileSize      int64 `json:"max_file_size" yaml:"max_file_size"`
	RequestTimeoutMS int   `json:"request_timeout_ms" yaml:"request_timeout_ms"`
}

type TelegramConfig struct {
	Mode         string `json:"mode" yaml:"mode" env:"TELEGRAM_MODE"`
	BotToken     string `json:"bot_token" yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChannelID    string `json:"channel_id" yaml:"channel_id" env:"TELEGRAM_CHANNEL_ID"`
	APIBase      string `json:"api_base" yaml:"api_base" env:"TELEGRAM_API_BASE"`
	HistoryLimit int    `json:"history_limit" yaml:"history_limit"`
	TimeoutMS    int    `json:"timeout_ms" yaml:"timeout_ms"`
}

// KVConfig selects the index backend. An empty URL selects the in-memory map.
type KVConfig struct {
	URL       string `json:"url" yaml:"url" env:"KV_URL"`
	Token     string `json:"token" yaml:"token" env:"KV_TOKEN"`
	TimeoutMS int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type LinksConfig struct {
	DefaultTTLSeconds int64 `json:"default_ttl_seconds" yaml:"default_ttl_seconds"`
	MaxTTLSeconds     int64 `json:"max_ttl_seconds" yaml:"max_ttl_seconds"`
	LegacyFallback    bool  `json:"legacy_fallback" yaml:"legacy_fallback" env:"LINKS_LEGACY_FALLBACK"`
}

type QueueConfig struct {
	StatePath        string `json:"state_path" yaml:"state_path" env:"QUEUE_STATE_PATH"`
	MaxRetries       int    `json:"max_retries" yaml:"max_retries"`
	RetryDelayMS     int    `json:"retry_delay_ms" yaml:"retry_delay_ms"`
	AttemptTimeoutMS int    `json:"attempt_timeout_ms" yaml:"attempt_timeout_ms"`
}

type NetworkConfig struct {
	Endpoints        []string `json:"endpoints" yaml:"endpoints"`
	IntervalMS       int      `json:"interval_ms" yaml:"interval_ms"`
	SignalIntervalMS int      `json:"signal_interval_ms" yaml:"signal_interval_ms"`
	ProbeTimeoutMS   int      `json:"probe_timeout_ms" yaml:"probe_timeout_ms"`
	FairLatencyMS    int      `json:"fair_latency_ms" yaml:"fair_latency_ms"`
	GoodLatencyMS    int      `json:"good_latency_ms" yaml:"good_latency_ms"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8090",
			PublicURL: "http://localhost:8090",
		},
		App: AppConfig{
			NodeID:           1,
			MaxFileSize:      BotDownloadLimit,
			RequestTimeoutMS: 30000,
		},
		Telegram: TelegramConfig{
			Mode:         TransportModeBot,
			APIBase:      "https://api.telegram.org",
			HistoryLimit: 100,
			TimeoutMS:    20000,
		},
		KV: KVConfig{
			TimeoutMS: 3000,
		},
		Links: LinksConfig{
			DefaultTTLSeconds: 3600,
			MaxTTLSeconds:     7 * 24 * 3600,
			LegacyFallback:    true,
		},
		Queue: QueueConfig{
			StatePath:        filepath.Join("data", "delete-queue.json"),
			MaxRetries:       3,
			RetryDelayMS:     2000,
			AttemptTimeoutMS: 10000,
		},
		Network: NetworkConfig{
			Endpoints: []string{
				"https://api.telegram.org",
				"https://www.google.com/generate_204",
				"https://cloudflare.com/cdn-cgi/trace",
			},
			IntervalMS:       30000,
			SignalIntervalMS: 2000,
			ProbeTimeoutMS:   3000,
			FairLatencyMS:    1000,
			GoodLatencyMS:    300,
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from file, then overlays secrets from the environment.
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		envName := os.Getenv("ENV")
		if envName == "" {
			envName = "local"
		}
		configPath = filepath.Join("internal", "api", "config", envName+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		// logger is not initialised yet at this point
		log.Printf("Config file not found or failed to parse, using defaults. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		parsedCfg = cfg
	}

	if err := env.Parse(parsedCfg); err != nil {
		return nil, fmt.Errorf("%w: parse environment: %v", port.ErrConfig, err)
	}

	return parsedCfg, nil
}

// Validate checks that required credentials are present.
func (c *Config) Validate() error {
	switch c.Telegram.Mode {
	case TransportModeLoopback:
		if c.Telegram.ChannelID == "" {
			c.Telegram.ChannelID = "loopback"
		}
	case TransportModeBot, "":
		if strings.TrimSpace(c.Telegram.BotToken) == "" {
			return fmt.Errorf("%w: telegram bot token is required", port.ErrConfig)
		}
		if strings.TrimSpace(c.Telegram.ChannelID) == "" {
			return fmt.Errorf("%w: telegram channel id is required", port.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown telegram mode %q", port.ErrConfig, c.Telegram.Mode)
	}

	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("%w: max_file_size must be positive", port.ErrConfig)
	}
	if c.Telegram.Mode != TransportModeLoopback && c.App.MaxFileSize > BotDownloadLimit {
		return fmt.Errorf("%w: max_file_size %d exceeds the bot download limit of %d bytes",
			port.ErrConfig, c.App.MaxFileSize, BotDownloadLimit)
	}
	if c.Network.GoodLatencyMS > c.Network.FairLatencyMS {
		return fmt.Errorf("%w: good_latency_ms must not exceed fair_latency_ms", port.ErrConfig)
	}
	return nil
}

// UsesRemoteKV reports whether credentials for the remote index are present.
func (c *Config) UsesRemoteKV() bool {
	return c.KV.Remote()
}

// Remote reports whether a remote index URL is configured.
func (k KVConfig) Remote() bool {
	return strings.TrimSpace(k.URL) != ""
}

func (c *Config) RequestTimeout() time.Duration {
	return millisOr(c.App.RequestTimeoutMS, 30*time.Second)
}

func (c *Config) TelegramTimeout() time.Duration {
	return millisOr(c.Telegram.TimeoutMS, 20*time.Second)
}

func (c *Config) KVTimeout() time.Duration {
	return millisOr(c.KV.TimeoutMS, 3*time.Second)
}

func (c *Config) DefaultLinkTTL() time.Duration {
	if c.Links.DefaultTTLSeconds > 0 {
		return time.Duration(c.Links.DefaultTTLSeconds) * time.Second
	}
	return time.Hour
}

func (c *Config) MaxLinkTTL() time.Duration {
	if c.Links.MaxTTLSeconds > 0 {
		return time.Duration(c.Links.MaxTTLSeconds) * time.Second
	}
	return 7 * 24 * time.Hour
}

func (c *Config) QueueMaxRetries() int {
	if c.Queue.MaxRetries > 0 {
		return c.Queue.MaxRetries
	}
	return 3
}

func (c *Config) QueueRetryDelay() time.Duration {
	return millisOr(c.Queue.RetryDelayMS, 2*time.Second)
}

func (c *Config) QueueAttemptTimeout() time.Duration {
	return millisOr(c.Queue.AttemptTimeoutMS, 10*time.Second)
}

func (c *Config) NetworkInterval() time.Duration {
	return millisOr(c.Network.IntervalMS, 30*time.Second)
}

func (c *Config) SignalInterval() time.Duration {
	return millisOr(c.Network.SignalIntervalMS, 2*time.Second)
}

func (c *Config) ProbeTimeout() time.Duration {
	return millisOr(c.Network.ProbeTimeoutMS, 3*time.Second)
}

func millisOr(ms int, fallback time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
