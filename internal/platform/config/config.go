// Package config loads service configuration from defaults, an optional
// config.yaml, a .env file and AUDIT_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	platformstrings "activitylog/pkg/platform/strings"
)

// EnvPrefix namespaces environment overrides, e.g. AUDIT_STORE_DRIVER.
const EnvPrefix = "AUDIT"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// DefaultSQLitePath is used when the sqlite driver has no DSN.
const DefaultSQLitePath = "activitylog.db"

// Config is the full service configuration.
type Config struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	Store StoreConfig `mapstructure:"store"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	Auth  AuthConfig  `mapstructure:"auth"`
	Audit AuditConfig `mapstructure:"audit"`
}

// StoreConfig selects the event store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory sqlite postgres redis"`
	DSN    string `mapstructure:"dsn"    validate:"required_if=Driver postgres"`
}

// RedisConfig configures the Redis client used by the redis store driver.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Prefix       string        `mapstructure:"prefix"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig enables the event stream when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"   validate:"required_with=Brokers"`
	Group   string   `mapstructure:"group"`
	Ingest  bool     `mapstructure:"ingest"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// AuthConfig configures operator authentication for the query API.
type AuthConfig struct {
	JWTSigningKey string `mapstructure:"jwt_signing_key" validate:"required"`
	Issuer        string `mapstructure:"issuer"`
	Audience      string `mapstructure:"audience"`
	AdminRole     string `mapstructure:"admin_role"      validate:"required"`
}

// AuditConfig tunes query and recording behavior.
type AuditConfig struct {
	// SearchBlankLimit caps blank-term searches; 0 returns every event.
	SearchBlankLimit   int           `mapstructure:"search_blank_limit"   validate:"gte=0"`
	RecentDefaultLimit int           `mapstructure:"recent_default_limit" validate:"gt=0"`
	FallbackActorEmail string        `mapstructure:"fallback_actor_email"`
	FallbackActorName  string        `mapstructure:"fallback_actor_name"`
	AsyncBuffer        int           `mapstructure:"async_buffer"         validate:"gte=0"`
	BreakerThreshold   int           `mapstructure:"breaker_threshold"    validate:"gte=0"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 15*time.Second)

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.prefix", "{audit}")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "activity-log")
	v.SetDefault("kafka.group", "activitylog")
	v.SetDefault("kafka.ingest", false)

	// Use a default for development - should be overridden in production
	v.SetDefault("auth.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("auth.issuer", "activitylog")
	v.SetDefault("auth.audience", "activitylog-api")
	v.SetDefault("auth.admin_role", "Admin")

	v.SetDefault("audit.search_blank_limit", 0)
	v.SetDefault("audit.recent_default_limit", 100)
	v.SetDefault("audit.fallback_actor_email", "admin@rwtool.com")
	v.SetDefault("audit.fallback_actor_name", "Admin")
	v.SetDefault("audit.async_buffer", 0)
	v.SetDefault("audit.breaker_threshold", 5)
	v.SetDefault("audit.breaker_cooldown", time.Minute)
}

// Load reads configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and /etc/activitylog.
func Load(configFile string) (*Config, error) {
	// silently ignore if .env doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/activitylog/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// env values arrive as one comma-separated string
	cfg.Kafka.Brokers = platformstrings.SplitList(cfg.Kafka.Brokers...)
	if cfg.Store.Driver == DriverSQLite && cfg.Store.DSN == "" {
		cfg.Store.DSN = DefaultSQLitePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return v
}

// Validate checks field constraints declared in struct tags plus the rules
// that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			// drop the root struct name: "Config.store.dsn" -> "store.dsn"
			_, key, _ := strings.Cut(fe.Namespace(), ".")
			msgs = append(msgs, fmt.Sprintf("%s failed %q", key, fe.ActualTag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Store.Driver == DriverRedis && c.Redis.URL == "" {
		return fmt.Errorf("invalid config: redis.url is required for the redis driver")
	}
	return nil
}
