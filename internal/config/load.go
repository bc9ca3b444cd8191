package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over values from
// the config file and use the GENBRIDGE_ prefix with underscores, e.g.
// GENBRIDGE_PROVIDER_TOKEN maps to provider.token.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GENBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values mirroring the documented
// deployment defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("provider.base_url", "https://api.gen-api.ru/api/v1")
	v.SetDefault("provider.submit_timeout", "180s")
	v.SetDefault("provider.poll_http_timeout", "60s")
	v.SetDefault("provider.poll_deadline", "600s")
	v.SetDefault("provider.download_deadline", "300s")
	v.SetDefault("provider.max_submit_retries", 6)
	v.SetDefault("provider.max_poll_retries", 6)

	v.SetDefault("worker.poll_interval", "1s")
	v.SetDefault("worker.metrics_port", 9090)

	v.SetDefault("limits.max_input_files", 2)
	v.SetDefault("limits.max_input_file_size_mib", 10)

	v.SetDefault("storage.data_dir", "./data/files")
}
