package config

import "time"

// Store backend names accepted by StoreConfig.Backend.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Store    StoreConfig    `mapstructure:"store"    validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	SRS      SRSConfig      `mapstructure:"srs"      validate:"required"`
	Quiz     QuizConfig     `mapstructure:"quiz"     validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=redis postgres"`
}

// RedisConfig contains connection settings for the redis backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"       validate:"required_if=Enabled true,omitempty,hostname_port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         validate:"gte=0,lte=15"`
	KeyPrefix string `mapstructure:"key_prefix"`

	// Enabled is derived from Store.Backend during Load.
	Enabled bool `mapstructure:"-"`
}

// DatabaseConfig contains connection settings for the postgres backend.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required_if=Enabled true,omitempty,url"`

	// Enabled is derived from Store.Backend during Load.
	Enabled bool `mapstructure:"-"`
}

// SRSConfig tunes the scheduling algorithm.
type SRSConfig struct {
	MinEaseFactor  float64 `mapstructure:"min_ease_factor" validate:"gte=1.3"`
	FirstInterval  int     `mapstructure:"first_interval"  validate:"gte=1"`
	SecondInterval int     `mapstructure:"second_interval" validate:"gte=1"`
}

// QuizConfig tunes session assembly and scoring.
type QuizConfig struct {
	SpeedBonusThresholdMS int64 `mapstructure:"speed_bonus_threshold_ms" validate:"gte=0"`
	SpeedBonusPoints      int   `mapstructure:"speed_bonus_points"       validate:"gte=0"`
	DefaultMaxCards       int   `mapstructure:"default_max_cards"        validate:"gte=1"`
}

// SpeedBonusThreshold returns the bonus threshold as a duration.
func (q QuizConfig) SpeedBonusThreshold() time.Duration {
	return time.Duration(q.SpeedBonusThresholdMS) * time.Millisecond
}
