package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"csgostash/scraper/internal/domain"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Catalog   CatalogConfig  `mapstructure:"catalog"`
	Crawl     CrawlConfig    `mapstructure:"crawl"`
	Selectors SelectorConfig `mapstructure:"selectors"`
	Sink      SinkConfig     `mapstructure:"sink"`
	Database  DatabaseConfig `mapstructure:"database"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Log       LogConfig      `mapstructure:"log"`
}

// CatalogConfig holds settings for talking to the catalog site
type CatalogConfig struct {
	BaseURL            string   `mapstructure:"base_url"`
	Timeout            int      `mapstructure:"timeout"` // seconds
	UserAgent          string   `mapstructure:"user_agent"`
	Proxies            []string `mapstructure:"proxies"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
}

// CategoryConfig describes where the listings of one item category start.
// Roots are listing URLs (relative to the base URL or absolute); menus are
// dropdown labels on the home page whose links are used as extra roots.
type CategoryConfig struct {
	Roots          []string `mapstructure:"roots"`
	Menus          []string `mapstructure:"menus"`
	ContainerClass string   `mapstructure:"container_class"`
}

// CrawlConfig holds orchestrator settings
type CrawlConfig struct {
	Categories         map[string]CategoryConfig `mapstructure:"categories"`
	Workers            int                       `mapstructure:"workers"`
	MaxRetries         int                       `mapstructure:"max_retries"`
	RetryInitialWaitMs int                       `mapstructure:"retry_initial_wait_ms"`
	RetryMaxWaitMs     int                       `mapstructure:"retry_max_wait_ms"`
	MaxQueueRetries    int                       `mapstructure:"max_queue_retries"`
	DedupWindow        int                       `mapstructure:"dedup_window"`
	HomePath           string                    `mapstructure:"home_path"`
}

// SinkConfig selects where records go: "stdout", "postgres" or both
type SinkConfig struct {
	Targets []string `mapstructure:"targets"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from a YAML file with environment variable overrides.
// An empty path looks for config.yaml in the current directory and falls back
// to defaults when there is none.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail deep inside a crawl.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url %q is not an absolute URL", c.Catalog.BaseURL)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive, got %d", c.Catalog.Timeout)
	}
	if c.Crawl.Workers < 1 {
		return fmt.Errorf("crawl.workers must be at least 1, got %d", c.Crawl.Workers)
	}
	if len(c.Selectors.ContainerTags) == 0 {
		return fmt.Errorf("selectors.container_tags must not be empty")
	}
	for name := range c.Crawl.Categories {
		if _, err := domain.ParseItemCategory(name); err != nil {
			return fmt.Errorf("crawl.categories: %w", err)
		}
	}
	for _, target := range c.Sink.Targets {
		if target != "stdout" && target != "postgres" {
			return fmt.Errorf("sink.targets: unknown target %q", target)
		}
	}
	return nil
}

// Category returns the configuration for category with the container class defaulted.
func (c *Config) Category(category domain.ItemCategory) CategoryConfig {
	cc := c.Crawl.Categories[category.String()]
	if cc.ContainerClass == "" {
		cc.ContainerClass = c.Selectors.DetailsClass
	}
	return cc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "https://csgostash.com/")
	v.SetDefault("catalog.timeout", 30)
	v.SetDefault("catalog.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	v.SetDefault("catalog.proxies", []string{})
	v.SetDefault("catalog.insecure_skip_verify", false)

	v.SetDefault("crawl.categories", map[string]any{
		domain.ItemCategoryWeaponSkin.String():      map[string]any{"roots": []string{"weapon"}},
		domain.ItemCategoryCollection.String():      map[string]any{"roots": []string{"collection"}},
		domain.ItemCategorySouvenirPackage.String(): map[string]any{"roots": []string{"containers/souvenir-packages"}},
		domain.ItemCategorySticker.String():         map[string]any{"roots": []string{"sticker"}},
	})
	v.SetDefault("crawl.workers", 1)
	v.SetDefault("crawl.max_retries", 3)
	v.SetDefault("crawl.retry_initial_wait_ms", 500)
	v.SetDefault("crawl.retry_max_wait_ms", 10000)
	v.SetDefault("crawl.max_queue_retries", 5)
	v.SetDefault("crawl.dedup_window", 4096)
	v.SetDefault("crawl.home_path", "/")

	setSelectorDefaults(v)

	v.SetDefault("sink.targets", []string{"stdout"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "csgostash")
	v.SetDefault("database.user", "csgostash_user")
	v.SetDefault("database.password", "csgostash_pass")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "csgostash_consumer")
	v.SetDefault("redis.min_idle_time", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
