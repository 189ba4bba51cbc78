// Package config loads and validates catalog service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/harvest"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig maps API credentials to plan tiers and guards the write path.
type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
	// Credentials maps an API key to its tier name (BASIC, PRO, ULTRA, MEGA).
	Credentials map[string]string `mapstructure:"credentials"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory record store.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig locates the cache and quota counter backend. An empty address
// selects the in-process providers.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig sets per-route response TTLs in seconds.
type CacheConfig struct {
	ListTTLSeconds       int `mapstructure:"list_ttl_seconds"`
	DetailTTLSeconds     int `mapstructure:"detail_ttl_seconds"`
	SearchTTLSeconds     int `mapstructure:"search_ttl_seconds"`
	PriceTTLSeconds      int `mapstructure:"price_ttl_seconds"`
	CategoriesTTLSeconds int `mapstructure:"categories_ttl_seconds"`
}

// QuotaConfig sizes the sliding usage window.
type QuotaConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

// HarvestConfig governs ingestion runs.
type HarvestConfig struct {
	Parallelism          int               `mapstructure:"parallelism"`
	TargetTimeoutSeconds int               `mapstructure:"target_timeout_seconds"`
	RunBudgetSeconds     int               `mapstructure:"run_budget_seconds"`
	MaxRetries           int               `mapstructure:"max_retries"`
	UserAgent            string            `mapstructure:"user_agent"`
	Render               RenderConfig      `mapstructure:"render"`
	Selectors            harvest.Selectors `mapstructure:"selectors"`
	Targets              []harvest.Target  `mapstructure:"targets"`
}

// RenderConfig configures the headless renderer for script-heavy listings.
type RenderConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MaxParallel   int    `mapstructure:"max_parallel"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	WaitSelector  string `mapstructure:"wait_selector"`
}

// StorageConfig sets where run snapshots are archived. GCSBucket takes
// precedence; LocalDir is the fallback, and with both empty snapshots are
// kept in memory only.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for run-completed notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("cache.list_ttl_seconds", 60)
	v.SetDefault("cache.detail_ttl_seconds", 300)
	v.SetDefault("cache.search_ttl_seconds", 60)
	v.SetDefault("cache.price_ttl_seconds", 120)
	v.SetDefault("cache.categories_ttl_seconds", 600)
	v.SetDefault("quota.window_days", 30)
	v.SetDefault("harvest.parallelism", 2)
	v.SetDefault("harvest.target_timeout_seconds", 30)
	v.SetDefault("harvest.run_budget_seconds", 600)
	v.SetDefault("harvest.max_retries", 3)
	v.SetDefault("harvest.user_agent", "catalog-harvester/0.1")
	v.SetDefault("harvest.render.enabled", false)
	v.SetDefault("harvest.render.max_parallel", 1)
	v.SetDefault("harvest.render.nav_timeout_seconds", 25)
	v.SetDefault("storage.prefix", "runs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Harvest.Parallelism <= 0 {
		return fmt.Errorf("harvest.parallelism must be > 0")
	}
	if c.Harvest.TargetTimeoutSeconds <= 0 {
		return fmt.Errorf("harvest.target_timeout_seconds must be > 0")
	}
	if c.Harvest.Render.Enabled && c.Harvest.Render.MaxParallel <= 0 {
		return fmt.Errorf("harvest.render.max_parallel must be > 0 when rendering is enabled")
	}
	if c.Quota.WindowDays <= 0 {
		return fmt.Errorf("quota.window_days must be > 0")
	}
	for key, tier := range c.Auth.Credentials {
		if key == "" {
			return fmt.Errorf("auth.credentials contains an empty key")
		}
		if tier == "" {
			return fmt.Errorf("auth.credentials[%s] has an empty tier", key)
		}
	}
	return nil
}

// TargetTimeout returns the per-target fetch budget.
func (c Config) TargetTimeout() time.Duration {
	return time.Duration(c.Harvest.TargetTimeoutSeconds) * time.Second
}

// RunBudget returns the whole-run budget; zero means unbounded.
func (c Config) RunBudget() time.Duration {
	return time.Duration(c.Harvest.RunBudgetSeconds) * time.Second
}

// QuotaWindow returns the sliding usage window.
func (c Config) QuotaWindow() time.Duration {
	return time.Duration(c.Quota.WindowDays) * 24 * time.Hour
}

// TTL converts a seconds knob into a duration.
func TTL(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
