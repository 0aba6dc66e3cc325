package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	HistoryMemory = "memory"
	HistoryRedis  = "redis"
	HistorySQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort  string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis     Redis     `yaml:"redis"`
	History   History   `yaml:"history"`
	Game      Game      `yaml:"game"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type History struct {
	Backend    string `yaml:"backend" env:"HISTORY_BACKEND" env-default:"memory"`
	SQLitePath string `yaml:"sqlite-path" env:"HISTORY_SQLITE_PATH" env-default:"triki.db"`
}

type Game struct {
	CodeLength       int           `yaml:"code-length" env:"GAME_CODE_LENGTH" env-default:"5"`
	Starter          string        `yaml:"starter" env:"GAME_STARTER" env-default:"fixed"`
	IdleTimeout      time.Duration `yaml:"idle-timeout" env:"GAME_IDLE_TIMEOUT" env-default:"10m"`
	ReapInterval     time.Duration `yaml:"reap-interval" env:"GAME_REAP_INTERVAL" env-default:"1m"`
	SnapshotTTL      time.Duration `yaml:"snapshot-ttl" env:"GAME_SNAPSHOT_TTL" env-default:"24h"`
	PersistByDefault bool          `yaml:"persist-by-default" env:"GAME_PERSIST_BY_DEFAULT" env-default:"false"`
}

type Telemetry struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
	ServiceName string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"triki-backend"`
}

// MustLoad - load all configurations in config.yml file, overridden by the environment and an optional .env file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("failed to read env: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.History.Backend {
	case HistoryMemory, HistorySQLite:
	case HistoryRedis:
		if !that.Redis.Enabled {
			return fmt.Errorf("%w: history backend redis needs redis.enabled", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown history backend %q", ErrInvalidConfig, that.History.Backend)
	}

	if that.Game.CodeLength < 4 || that.Game.CodeLength > 6 {
		return fmt.Errorf("%w: game.code-length must be between 4 and 6", ErrInvalidConfig)
	}

	if that.Game.ReapInterval <= 0 {
		return fmt.Errorf("%w: game.reap-interval must be positive", ErrInvalidConfig)
	}

	if that.Game.IdleTimeout <= 0 {
		return fmt.Errorf("%w: game.idle-timeout must be positive", ErrInvalidConfig)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
