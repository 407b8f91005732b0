package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all relay configuration.
type Config struct {
	Secret  SecretConfig  `mapstructure:"secret"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SecretConfig locates the Secrets Manager secret holding the webhook URL.
type SecretConfig struct {
	Name   string `mapstructure:"name"`
	Region string `mapstructure:"region"`
}

// SlackConfig defines webhook client settings.
type SlackConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file and environment variables.
// The Lambda runtime variables SLACK_WEBHOOK_URL (the secret name) and
// AWS_REGION are bound directly.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("relay")
		v.SetConfigType("yaml")
	}

	// Defaults
	v.SetDefault("slack.timeout", "0s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("secret.name", "RELAY_SECRET_NAME", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("secret.region", "RELAY_SECRET_REGION", "AWS_REGION")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports settings the relay cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Secret.Name == "" {
		errs = append(errs, errors.New("secret name is required (SLACK_WEBHOOK_URL)"))
	}
	if c.Secret.Region == "" {
		errs = append(errs, errors.New("secret region is required (AWS_REGION)"))
	}
	if c.Slack.Timeout < 0 {
		errs = append(errs, fmt.Errorf("slack timeout must not be negative, got %s", c.Slack.Timeout))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown logging format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
