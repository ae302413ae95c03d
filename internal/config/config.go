// Package config provides configuration loading, validation, and management
// for the PeerWatch application. It handles reading from YAML files,
// environment variables, setting default values, and validating
// configuration parameters.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultDBPath = "peerwatch.db"

	DefaultGatewayAddr = "127.0.0.1:8764"

	DefaultGeminiModel             = "gemini-2.0-flash"
	DefaultGeminiTemperature       = float32(0.7)
	DefaultGeminiMaxRetries        = 2
	DefaultGeminiRetryDelaySeconds = 5

	// DefaultPresenceLocation resolves through time.LoadLocation; "Local"
	// keeps presence phrases in the host's time zone.
	DefaultPresenceLocation = "Local"

	// Cron expressions carry a seconds field.
	DefaultMaintenanceSchedule  = "0 0 4 * * *"
	DefaultEditAnalysisSchedule = "0 30 4 * * *"
)

// Config defines the application configuration parameters for all
// components of the PeerWatch system.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Presence  PresenceConfig  `mapstructure:"presence"`

	// Phrases overrides individual lang pack entries by key.
	Phrases map[string]string `mapstructure:"phrases"`

	// AppConfig seeds the dynamic configuration store.
	AppConfig map[string]any `mapstructure:"appconfig"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the Bot API credentials. BotInfo is resolved at
// startup via GetMe and carried here for runtime use.
type TelegramConfig struct {
	Token   string       `mapstructure:"token" validate:"required"`
	BotInfo *models.User `mapstructure:"-"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// GatewayConfig controls the local HTTP/WebSocket surface.
type GatewayConfig struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

// GeminiConfig holds settings for the Gemini AI integration. An empty
// APIKey disables edit analysis.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ModelName         string  `mapstructure:"model_name" validate:"required_with=APIKey"`
	Temperature       float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=300"`
	SystemInstruction string  `mapstructure:"system_instruction"`
}

// TaskConfig enables one scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// PresenceConfig tunes presence formatting and premium handling.
type PresenceConfig struct {
	// Location is an IANA time zone name used when rendering "last seen"
	// phrases; it is resolved with time.LoadLocation at startup.
	Location string `mapstructure:"location"`

	// ForcePremium pretends the own account has a premium subscription.
	ForcePremium bool `mapstructure:"force_premium"`
}

// Validate checks the complete configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
