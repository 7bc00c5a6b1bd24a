package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables overriding configuration keys,
// e.g. VXGRAPH_LOG_LEVEL for log.level.
const EnvPrefix = "VXGRAPH"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Log        LogConfig    `mapstructure:"log"`
	Workers    int          `mapstructure:"workers" validate:"min=1,max=256"`
	Iterations int          `mapstructure:"iterations" validate:"min=1"`
	Graph      string       `mapstructure:"graph"`
	Status     StatusConfig `mapstructure:"status"`
	Events     EventsConfig `mapstructure:"events"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// StatusConfig configures the HTTP status server. Port 0 disables it.
type StatusConfig struct {
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// EventsConfig configures event forwarding to a socket.io server. An empty
// URL keeps events in the log.
type EventsConfig struct {
	URL       string `mapstructure:"url" validate:"omitempty,url"`
	Namespace string `mapstructure:"namespace" validate:"required_with=URL"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("workers", 4)
	v.SetDefault("iterations", 1)
	v.SetDefault("graph", "")
	v.SetDefault("status.port", 0)
	v.SetDefault("events.url", "")
	v.SetDefault("events.namespace", "/")
}

// LoadConfig reads configuration from defaults, an optional YAML file and
// VXGRAPH_ environment variables, in increasing precedence. Flags bound to v
// beat all of them.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
