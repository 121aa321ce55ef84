package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TRADEBOARD"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Source    SourceConfig    `mapstructure:"source"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Cache     CacheConfig     `mapstructure:"cache"`
	API       APIConfig       `mapstructure:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitPerSec float64       `mapstructure:"rate_limit_per_sec"` // 0 disables
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

type StoreConfig struct {
	Path string `mapstructure:"path"` // empty keeps the database in memory
}

type SourceConfig struct {
	Kind            string        `mapstructure:"kind"` // file or remote
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	JSONPath        string        `mapstructure:"json_path"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	APIKey          string        `mapstructure:"api_key"`
	APIKeyHeader    string        `mapstructure:"api_key_header"`
	RateLimitPerSec float64       `mapstructure:"rate_limit_per_sec"`
}

type DatasetConfig struct {
	ReloadOnStart bool `mapstructure:"reload_on_start"`
}

type CacheConfig struct {
	CompanyDetails int `mapstructure:"company_details"`
}

type APIConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

type DashboardConfig struct {
	TopCommodities int `mapstructure:"top_commodities"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit_per_sec", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.path", "")

	v.SetDefault("source.kind", "file")
	v.SetDefault("source.path", "data/shipments.json")
	v.SetDefault("source.url", "")
	v.SetDefault("source.json_path", "")
	v.SetDefault("source.timeout", 20*time.Second)
	v.SetDefault("source.user_agent", "tradeboard/0.1")
	v.SetDefault("source.api_key", "")
	v.SetDefault("source.api_key_header", "Authorization")
	v.SetDefault("source.rate_limit_per_sec", 5.0)

	v.SetDefault("dataset.reload_on_start", false)
	v.SetDefault("cache.company_details", 256)
	v.SetDefault("api.default_page_size", 100)
	v.SetDefault("api.max_page_size", 1000)
	v.SetDefault("dashboard.top_commodities", 5)
}

// Load reads configuration from defaults, an optional config file and
// TRADEBOARD_* environment variables, in increasing order of precedence.
// A .env file in the working directory is applied to the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Source.Kind)) {
	case "file", "remote":
	default:
		return fmt.Errorf("config: unknown source.kind %q (want file or remote)", c.Source.Kind)
	}
	if c.Cache.CompanyDetails < 0 {
		return errors.New("config: cache.company_details must not be negative")
	}
	if c.API.DefaultPageSize <= 0 {
		return errors.New("config: api.default_page_size must be positive")
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return errors.New("config: api.max_page_size must be at least api.default_page_size")
	}
	if c.Dashboard.TopCommodities <= 0 {
		return errors.New("config: dashboard.top_commodities must be positive")
	}
	if c.Server.RateLimitPerSec < 0 {
		return errors.New("config: server.rate_limit_per_sec must not be negative")
	}
	return nil
}
