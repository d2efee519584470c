package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	CHP    CHPConfig
	Search SearchConfig
	Cache  CacheConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CHPConfig holds configuration for the chp.co.il browser automation
type CHPConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Headless        bool          `mapstructure:"headless"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout"`
	ElementTimeout  time.Duration `mapstructure:"element_timeout"`
	SettleTimeout   time.Duration `mapstructure:"settle_timeout"`
	ResultsTimeout  time.Duration `mapstructure:"results_timeout"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	// Steps per minute a session may perform against the site
	StepsPerMinute int `mapstructure:"steps_per_minute"`
}

// SearchConfig holds configuration for ranking and batch behavior
type SearchConfig struct {
	// TopOffers is the per-criterion truncation size for ranked offers (K)
	TopOffers    int           `mapstructure:"top_offers"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// Translations layers extra canonical-name -> localized-term entries
	// on top of the built-in table
	Translations map[string]string `mapstructure:"translations"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/smartcart/")

	// Environment variable settings; nested keys map as SMARTCART_SERVER_PORT
	v.SetEnvPrefix("SMARTCART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8081"})

	// CHP defaults
	v.SetDefault("chp.base_url", "https://chp.co.il")
	v.SetDefault("chp.headless", true)
	v.SetDefault("chp.page_load_timeout", "30s")
	v.SetDefault("chp.element_timeout", "10s")
	v.SetDefault("chp.settle_timeout", "5s")
	v.SetDefault("chp.results_timeout", "10s")
	v.SetDefault("chp.max_sessions", 2)
	v.SetDefault("chp.steps_per_minute", 60)

	// Search defaults
	v.SetDefault("search.top_offers", 5)
	v.SetDefault("search.batch_timeout", "5m")

	// Cache defaults
	v.SetDefault("cache.ttl", "15m")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.CHP.BaseURL == "" {
		return fmt.Errorf("CHP base URL is required (set SMARTCART_CHP_BASE_URL)")
	}

	if config.Search.TopOffers <= 0 {
		return fmt.Errorf("search top_offers must be positive, got: %d", config.Search.TopOffers)
	}

	if config.CHP.MaxSessions <= 0 {
		return fmt.Errorf("chp max_sessions must be positive, got: %d", config.CHP.MaxSessions)
	}

	return nil
}
