package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	Limits   LimitsConfig   `mapstructure:"limits" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// ServerConfig contains the internal submission API settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// APIKey protects the /internal routes. Callers send it in X-API-Key.
	APIKey string `mapstructure:"api_key" validate:"required"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// ProviderConfig contains the generation gateway settings.
type ProviderConfig struct {
	BaseURL          string        `mapstructure:"base_url" validate:"required,url"`
	Token            string        `mapstructure:"token" validate:"required"`
	SubmitTimeout    time.Duration `mapstructure:"submit_timeout" validate:"required"`
	PollHTTPTimeout  time.Duration `mapstructure:"poll_http_timeout" validate:"required"`
	PollDeadline     time.Duration `mapstructure:"poll_deadline" validate:"required"`
	DownloadDeadline time.Duration `mapstructure:"download_deadline" validate:"required"`
	MaxSubmitRetries int           `mapstructure:"max_submit_retries" validate:"gte=0"`
	MaxPollRetries   int           `mapstructure:"max_poll_retries" validate:"gte=0"`
}

// WorkerConfig contains the task worker loop settings.
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`
	MetricsPort  int           `mapstructure:"metrics_port" validate:"required,gt=0,lt=65536"`
}

// LimitsConfig bounds the input files accepted per task.
type LimitsConfig struct {
	MaxInputFiles       int `mapstructure:"max_input_files" validate:"required,gt=0"`
	MaxInputFileSizeMiB int `mapstructure:"max_input_file_size_mib" validate:"required,gt=0"`
}

// StorageConfig contains artifact storage settings. PublicBaseURL is
// the externally reachable base the provider uses to fetch staged
// input files.
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir" validate:"required"`
	PublicBaseURL string `mapstructure:"public_base_url" validate:"required,url"`
}

// TelegramConfig contains the bot token used to fetch user-uploaded
// input files through the Bot API.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}
