package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The YAML file at path (optional)
// 3. PEERWATCH_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Setup environment variables
	v.SetEnvPrefix("PEERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Allow missing config file; defaults and environment cover it.
	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default values for optional configuration parameters.
// Every key gets one so environment overrides bind without a config file.
func setDefaults(v *viper.Viper) {
	// Logger defaults
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	// Telegram defaults
	v.SetDefault("telegram.token", "")

	// Database defaults
	v.SetDefault("database.path", DefaultDBPath)

	// Gateway defaults
	v.SetDefault("gateway.addr", DefaultGatewayAddr)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelaySeconds)
	v.SetDefault("gemini.system_instruction", "")

	// Presence defaults
	v.SetDefault("presence.location", DefaultPresenceLocation)
	v.SetDefault("presence.force_premium", false)

	// Scheduler defaults
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", DefaultMaintenanceSchedule)
	v.SetDefault("scheduler.tasks.edit_analysis.enabled", false)
	v.SetDefault("scheduler.tasks.edit_analysis.schedule", DefaultEditAnalysisSchedule)
}
