package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Scrape ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures the batch fetch scheduler.
type FetchConfig struct {
	Connections int    `yaml:"connections" mapstructure:"connections"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Mode        string `yaml:"mode" mapstructure:"mode"`
}

// ScrapeConfig configures the HTTP scraping client.
type ScrapeConfig struct {
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerHost  float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	RateBurst    int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// OutputConfig configures document generation.
type OutputConfig struct {
	Format            string `yaml:"format" mapstructure:"format"`
	Path              string `yaml:"path" mapstructure:"path"`
	IncludeIncomplete bool   `yaml:"include_incomplete" mapstructure:"include_incomplete"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COOKDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "cookdex.db")
	v.SetDefault("fetch.connections", 4)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.mode", "default")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0")
	v.SetDefault("scrape.max_retries", 2)
	v.SetDefault("scrape.rate_per_host", 2.0)
	v.SetDefault("scrape.rate_burst", 4)
	v.SetDefault("scrape.max_body_bytes", 8<<20)
	v.SetDefault("output.format", "txt")
	v.SetDefault("output.path", "recipes.txt")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
