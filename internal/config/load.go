package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCRY_STORE_BACKEND.
const EnvPrefix = "SCRY"

// ConfigFileFlag names the flag holding an explicit config file path.
const ConfigFileFlag = "config"

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":     "server.log_level",
	"backend":       "store.backend",
	"redis-addr":    "redis.addr",
	"redis-db":      "redis.db",
	"redis-prefix":  "redis.key_prefix",
	"database-url":  "database.url",
	"default-cards": "quiz.default_max_cards",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")
	v.SetDefault("store.backend", BackendRedis)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "scry:")

	v.SetDefault("database.url", "")

	v.SetDefault("srs.min_ease_factor", 1.3)
	v.SetDefault("srs.first_interval", 1)
	v.SetDefault("srs.second_interval", 6)

	v.SetDefault("quiz.speed_bonus_threshold_ms", 300000)
	v.SetDefault("quiz.speed_bonus_points", 10)
	v.SetDefault("quiz.default_max_cards", 10)
}

// Load builds the configuration from defaults, an optional config file,
// environment variables and flags, then validates it.
//
// A config file is read from the path in the --config flag when set, otherwise
// config.yaml in the working directory is used if present. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := ""
	if flags != nil {
		if f := flags.Lookup(ConfigFileFlag); f != nil {
			configFile = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints, including the backend-specific
// connection settings.
func (c *Config) Validate() error {
	c.Redis.Enabled = c.Store.Backend == BackendRedis
	c.Database.Enabled = c.Store.Backend == BackendPostgres

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
