package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/Cheertaboi/restaurant-order-service/pkg/db"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database db.PostgresConfig `mapstructure:"database"`
	Storage  struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
	Shop struct {
		Timezone    string        `mapstructure:"timezone"`
		SettingsTTL time.Duration `mapstructure:"settings_ttl"`
	} `mapstructure:"shop"`
	Outbox struct {
		Schedule    string `mapstructure:"schedule"`
		BatchSize   int    `mapstructure:"batch_size"`
		MaxAttempts int    `mapstructure:"max_attempts"`
		Workers     int    `mapstructure:"workers"`
	} `mapstructure:"outbox"`
}

// Location resolves shop.timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Shop.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid shop.timezone %q: %w", c.Shop.Timezone, err)
	}
	return loc, nil
}

// Load reads config.yaml from the given directories (if any exists) and
// overlays ORDERSVC_* environment variables. The DB_* variables are accepted
// for the database section.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("ORDERSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.host", "ORDERSVC_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "ORDERSVC_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "ORDERSVC_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "ORDERSVC_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "ORDERSVC_DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.sslmode", "ORDERSVC_DATABASE_SSLMODE", "DB_SSLMODE")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "orders")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ping_timeout", "5s")
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("shop.timezone", "UTC")
	v.SetDefault("shop.settings_ttl", "5s")
	v.SetDefault("outbox.schedule", "@every 30s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.workers", 4)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if err := cfg.Database.Validate(); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("storage.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.Storage.Driver)
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	if cfg.Outbox.BatchSize <= 0 {
		return Config{}, errors.New("outbox.batch_size must be greater than 0")
	}
	if cfg.Outbox.MaxAttempts <= 0 {
		return Config{}, errors.New("outbox.max_attempts must be greater than 0")
	}

	return cfg, nil
}
