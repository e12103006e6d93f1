// Package config provides configuration types and loading for festivo.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Chatbot, Providers, Channels, Queue, Notify.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Chatbot   ChatbotConfig   `json:"chatbot"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Queue     QueueConfig     `json:"queue"`
	Notify    NotifyConfig    `json:"notify"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir    string `json:"dataDir" envconfig:"DATA_DIR"`
	GuestDB    string `json:"guestDb" envconfig:"GUEST_DB"`
	LedgerDB   string `json:"ledgerDb" envconfig:"LEDGER_DB"`
	WhatsAppDB string `json:"whatsappDb" envconfig:"WHATSAPP_DB"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model and agent-loop settings.
type ModelConfig struct {
	Name              string  `json:"name" envconfig:"MODEL"`
	MaxTokens         int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature       float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxToolIterations int     `json:"maxToolIterations" envconfig:"MAX_TOOL_ITERATIONS"`
}

// ---------------------------------------------------------------------------
// Chatbot – conversation behaviour
// ---------------------------------------------------------------------------

// ChatbotConfig groups chatbot-level behaviour settings.
type ChatbotConfig struct {
	// SimulationMode routes every mutation tool through its dry-run path.
	// Used for demo conversations that must not touch guest records.
	SimulationMode bool `json:"simulationMode" envconfig:"SIMULATION_MODE"`
	// ReadCacheTTL is the expiry for cached read-tool results.
	ReadCacheTTL time.Duration `json:"readCacheTtl" envconfig:"READ_CACHE_TTL"`
	// HistoryLimit caps the number of prior session messages replayed
	// into the main agent's prompt.
	HistoryLimit int `json:"historyLimit" envconfig:"HISTORY_LIMIT"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Channels – messaging integrations
// ---------------------------------------------------------------------------

// ChannelsConfig contains all channel configurations.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

// WhatsAppConfig configures the WhatsApp channel.
type WhatsAppConfig struct {
	Enabled          bool     `json:"enabled" envconfig:"WHATSAPP_ENABLED"`
	AllowFrom        []string `json:"allowFrom"`
	DropUnauthorized bool     `json:"dropUnauthorized" envconfig:"WHATSAPP_DROP_UNAUTHORIZED"`
}

// ---------------------------------------------------------------------------
// Queue – inbound debounce/dedup buffering
// ---------------------------------------------------------------------------

// QueueConfig contains settings for the inbound debounce buffer.
type QueueConfig struct {
	// Backend selects the buffer implementation: "memory" or "kafka".
	Backend        string        `json:"backend" envconfig:"QUEUE_BACKEND"`
	KafkaBrokers   string        `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic          string        `json:"topic" envconfig:"QUEUE_TOPIC"`
	ConsumerGroup  string        `json:"consumerGroup" envconfig:"QUEUE_CONSUMER_GROUP"`
	DebounceWindow time.Duration `json:"debounceWindow" envconfig:"DEBOUNCE_WINDOW"`
}

// ---------------------------------------------------------------------------
// Notify – host-facing notifications
// ---------------------------------------------------------------------------

// NotifyConfig contains settings for host notifications.
type NotifyConfig struct {
	Slack SlackNotifyConfig `json:"slack"`
}

// SlackNotifyConfig configures the Slack host-review notifier.
type SlackNotifyConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"SLACK_ENABLED"`
	BotToken string `json:"botToken" envconfig:"SLACK_BOT_TOKEN"`
	Channel  string `json:"channel" envconfig:"SLACK_CHANNEL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.festivo",
		},
		Model: ModelConfig{
			Name:              "claude-sonnet-4-5",
			MaxTokens:         4096,
			Temperature:       0.7,
			MaxToolIterations: 10,
		},
		Chatbot: ChatbotConfig{
			ReadCacheTTL: 24 * time.Hour,
			HistoryLimit: 40,
		},
		Queue: QueueConfig{
			Backend:        "memory",
			Topic:          "festivo.inbound",
			ConsumerGroup:  "festivo-chatbot",
			DebounceWindow: 8 * time.Second,
		},
	}
}
