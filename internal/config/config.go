package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Price policies for non-numeric price input
const (
	PricePolicyLenient = "lenient"
	PricePolicyStrict  = "strict"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
	Market   MarketConfig   `yaml:"market"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// TelegramConfig holds bot and Mini App settings
type TelegramConfig struct {
	BotToken       string        `yaml:"bot_token"`
	WebAppURL      string        `yaml:"web_app_url"`
	InitDataMaxAge time.Duration `yaml:"init_data_max_age"`
}

// MarketConfig holds listing and voting rules
type MarketConfig struct {
	ListingLifetime time.Duration `yaml:"listing_lifetime"`
	PageSize        int           `yaml:"page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	MaxPhotos       int           `yaml:"max_photos"`
	Admins          []uint64      `yaml:"admins"`
	PricePolicy     string        `yaml:"price_policy"`
	VoteAttempts    int           `yaml:"vote_attempts"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a config with every default applied, used by tests and the memory driver
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Telegram.InitDataMaxAge == 0 {
		c.Telegram.InitDataMaxAge = 24 * time.Hour
	}

	m := &c.Market
	if m.ListingLifetime == 0 {
		m.ListingLifetime = 14 * 24 * time.Hour
	}
	if m.PageSize == 0 {
		m.PageSize = 20
	}
	if m.MaxPageSize == 0 {
		m.MaxPageSize = 50
	}
	if m.MaxPhotos == 0 {
		m.MaxPhotos = 5
	}
	if m.PricePolicy == "" {
		m.PricePolicy = PricePolicyLenient
	}
	if m.VoteAttempts == 0 {
		m.VoteAttempts = 3
	}
	if m.SweepInterval == 0 {
		m.SweepInterval = time.Minute
	}
}

// Validate rejects configurations the services cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Market.PricePolicy {
	case PricePolicyLenient, PricePolicyStrict:
	default:
		return fmt.Errorf("unknown price policy %q", c.Market.PricePolicy)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Market.SweepInterval <= 0 {
		return fmt.Errorf("market.sweep_interval must be positive")
	}
	if c.Market.ListingLifetime <= 0 {
		return fmt.Errorf("market.listing_lifetime must be positive")
	}
	if c.Market.PageSize < 1 {
		return fmt.Errorf("market.page_size must be at least 1")
	}
	if c.Market.MaxPhotos < 0 {
		return fmt.Errorf("market.max_photos must not be negative")
	}
	if c.Market.PageSize > c.Market.MaxPageSize {
		return fmt.Errorf("market.page_size %d exceeds market.max_page_size %d", c.Market.PageSize, c.Market.MaxPageSize)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
