package config

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/processor"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Log           LogConfig           `yaml:"log"`
	HTTP          HTTPConfig          `yaml:"http"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Database      DatabaseConfig      `yaml:"database"`
	Netting       NettingConfig       `yaml:"netting"`
	Notifications NotificationsConfig `yaml:"notifications"`
	STP           STPConfig           `yaml:"stp"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// SigningSecret enables HMAC verification of submitted cashflows.
	SigningSecret string `yaml:"signing_secret"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type NettingConfig struct {
	Rule    string `yaml:"rule"`
	Workers int    `yaml:"workers"`
}

type NotificationsConfig struct {
	Workers      int    `yaml:"workers"`
	ReviewEmail  string `yaml:"review_email"`
	SlackChannel string `yaml:"slack_channel"`
}

type STPConfig struct {
	Checks []processor.STPCheck `yaml:"checks"`
}

func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Metrics:  MetricsConfig{Addr: ":9090"},
		Database: DatabaseConfig{Path: "cashflow_stp.db"},
		Netting: NettingConfig{
			Rule:    "Counterparty Netting Rule",
			Workers: 4,
		},
		Notifications: NotificationsConfig{
			Workers:      2,
			SlackChannel: "#stp-review",
		},
		STP: STPConfig{
			Checks: []processor.STPCheck{
				{
					Name:  "Counterparty or Currency",
					Match: processor.MatchAny,
					Note:  "Cashflow Marked as NON-STP. Either Counterparty or Currency is NON STP.",
					Conditions: []processor.AttributeRef{
						{Attribute: domain.AttributeCounterParty, Rule: "Counterparty STP Rule"},
						{Attribute: domain.AttributeCurrency, Rule: "Currency STP Rule"},
					},
				},
			},
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Netting.Rule == "" {
		return fmt.Errorf("%w: netting.rule is required", ErrInvalidConfig)
	}
	if c.Netting.Workers < 1 {
		return fmt.Errorf("%w: netting.workers must be positive, got %d", ErrInvalidConfig, c.Netting.Workers)
	}
	if c.Notifications.Workers < 1 {
		return fmt.Errorf("%w: notifications.workers must be positive, got %d", ErrInvalidConfig, c.Notifications.Workers)
	}

	names := make(map[string]struct{}, len(c.STP.Checks))
	for _, check := range c.STP.Checks {
		if err := check.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if _, dup := names[check.Name]; dup {
			return fmt.Errorf("%w: duplicate check %q", ErrInvalidConfig, check.Name)
		}
		names[check.Name] = struct{}{}
	}

	return nil
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return level, nil
}
