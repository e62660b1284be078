package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	PSP       PSPConfig       `koanf:"psp"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Redis     RedisConfig     `koanf:"redis"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Logger    LoggerConfig    `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// PSPConfig holds the PhonePe merchant credentials and endpoint selection.
// Environment is fixed for the lifetime of the process.
type PSPConfig struct {
	ClientID      string        `koanf:"client_id" validate:"required"`
	ClientSecret  string        `koanf:"client_secret" validate:"required"`
	ClientVersion string        `koanf:"client_version" validate:"required"`
	MerchantID    string        `koanf:"merchant_id" validate:"required"`
	SaltKey       string        `koanf:"salt_key" validate:"required"`
	SaltIndex     string        `koanf:"salt_index" validate:"required"`
	Environment   string        `koanf:"environment" validate:"required,oneof=sandbox production"`
	RedirectURL   string        `koanf:"redirect_url" validate:"required"`
	CallbackURL   string        `koanf:"callback_url" validate:"required"`
	OrderTimeout  time.Duration `koanf:"order_timeout"`
	StatusTimeout time.Duration `koanf:"status_timeout"`
	OrderExpiry   time.Duration `koanf:"order_expiry"`
}

type ReconcileConfig struct {
	Delay     time.Duration `koanf:"delay" validate:"required"`
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
	LeaseTTL  time.Duration `koanf:"lease_ttl"`
}

// RedisConfig is optional; an empty Addr disables the reconcile lease.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// KafkaConfig is optional; empty Brokers disables event publishing.
type KafkaConfig struct {
	Brokers string `koanf:"brokers"`
	Topic   string `koanf:"topic"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

// LoadConfig reads CLINIC_-prefixed environment variables, applies
// defaults and validates the result.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(confmap.Provider(defaults, "."), nil)
	if err != nil {
		logger.Error("failed to load defaults", "error", err)
		return nil, err
	}

	err = k.Load(env.Provider("CLINIC_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "CLINIC_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

var defaults = map[string]interface{}{
	"primary.env":                 "development",
	"server.port":                 "8080",
	"server.read_timeout":         "15s",
	"server.write_timeout":        "15s",
	"server.idle_timeout":         "60s",
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     2,
	"database.conn_max_lifetime":  "30m",
	"database.conn_max_idle_time": "5m",
	"psp.environment":             "sandbox",
	"psp.order_timeout":           "10s",
	"psp.status_timeout":          "5s",
	"psp.order_expiry":            "20m",
	"reconcile.delay":             "120s",
	"reconcile.interval":          "30s",
	"reconcile.batch_size":        20,
	"reconcile.lease_ttl":         "30s",
	"kafka.topic":                 "payments.events",
	"logger.level":                "info",
}

// NewLogger builds the process logger from the configured level.
func (c *LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
