package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Загрузка конфигурации из config.yaml через cleanenv

// MaxPerPage - максимум монет за один запрос к /coins/markets
const MaxPerPage = 250

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Market    MarketConfig    `yaml:"market"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	Auth      AuthConfig      `yaml:"auth"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logger    LoggerConfig    `yaml:"logger"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env-default:"3s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled" env-default:"true"`
	Interval     time.Duration `yaml:"interval" env-default:"10s"`
	DemandMinGap time.Duration `yaml:"demand_min_gap" env-default:"5s"` // 0 - без ограничения
}

// MarketConfig - параметры провайдера котировок (CoinGecko /coins/markets)
type MarketConfig struct {
	BaseURL          string        `yaml:"base_url" env-default:"https://api.coingecko.com/api/v3"`
	APIKey           string        `yaml:"api_key" env:"COINGECKO_API_KEY"`
	Currency         string        `yaml:"currency" env-default:"usd"`
	PerPage          int           `yaml:"per_page" env-default:"100"`
	Page             int           `yaml:"page" env-default:"1"`
	IncludeSparkline bool          `yaml:"include_sparkline" env-default:"true"`
	Timeout          time.Duration `yaml:"timeout" env-default:"30s"`
	UserAgent        string        `yaml:"user_agent" env-default:"crypto-tracker/1.0"`
	ListPolicy       string        `yaml:"list_policy" env-default:"all"` // all|prioritize|restrict
	PopularSymbols   []string      `yaml:"popular_symbols"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL" env-default:"info"` // debug|info|warn|error
	Format string `yaml:"format" env-default:"text"`                 // text|json
}

type PostgresConfig struct {
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName          string        `yaml:"dbname" env:"POSTGRES_DB" env-default:"crypto"`
	SSLMode         string        `yaml:"sslmode" env-default:"disable"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	MaxConns        int32         `yaml:"max_conns" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"30m"`
}

type MongoConfig struct {
	URI        string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database   string        `yaml:"database" env-default:"crypto"`
	Collection string        `yaml:"collection" env-default:"watchlists"`
	Timeout    time.Duration `yaml:"timeout" env-default:"10s"`
}

// WatchlistConfig - где хранить watchlist пользователей
type WatchlistConfig struct {
	Backend      string        `yaml:"backend" env:"WATCHLIST_BACKEND" env-default:"postgres"` // postgres|mongo|memory
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"5s"`
	QueueSize    int           `yaml:"queue_size" env-default:"64"`
}

type AuthConfig struct {
	SessionTTL     time.Duration `yaml:"session_ttl" env-default:"24h"`
	ResetTokenTTL  time.Duration `yaml:"reset_token_ttl" env-default:"1h"`
	MinPasswordLen int           `yaml:"min_password_len" env-default:"6"`
	BcryptCost     int           `yaml:"bcrypt_cost" env-default:"10"`
}

type TelegramConfig struct {
	Enabled         bool          `yaml:"enabled" env-default:"false"`
	Token           string        `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	LongPollTimeout time.Duration `yaml:"long_poll_timeout" env-default:"10s"`
	ListLimit       int           `yaml:"list_limit" env-default:"15"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env-default:"true"`
	Namespace string `yaml:"namespace" env-default:"crypto_tracker"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Try to read from config file if specified
	configPath := fetchConfigPath()
	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		// Read from environment variables
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate - проверка значений, которые cleanenv проверить не может
func (c *Config) Validate() error {
	var errs []error

	if c.Market.PerPage <= 0 || c.Market.PerPage > MaxPerPage {
		errs = append(errs, fmt.Errorf("market.per_page must be in 1..%d, got %d", MaxPerPage, c.Market.PerPage))
	}
	if c.Market.Page <= 0 {
		errs = append(errs, fmt.Errorf("market.page must be positive, got %d", c.Market.Page))
	}
	switch strings.ToLower(c.Market.ListPolicy) {
	case "", "all", "prioritize", "restrict":
	default:
		errs = append(errs, fmt.Errorf("market.list_policy: unknown value %q", c.Market.ListPolicy))
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	switch strings.ToLower(c.Watchlist.Backend) {
	case "postgres", "mongo", "memory":
	default:
		errs = append(errs, fmt.Errorf("watchlist.backend: unknown value %q", c.Watchlist.Backend))
	}
	if c.Telegram.Enabled && strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram enabled but TELEGRAM_BOT_TOKEN is empty"))
	}
	return errors.Join(errs...)
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "c", "", "config file path")
	flag.Parse()
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
