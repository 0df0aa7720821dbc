package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	DeviceID          string `mapstructure:"DEVICE_ID"`

	// Provider backend.
	APIBaseURL           string  `mapstructure:"API_BASE_URL"`
	APITimeoutSeconds    int     `mapstructure:"API_TIMEOUT_SECONDS"`
	APIMaxRequestsPerSec float64 `mapstructure:"API_MAX_REQUESTS_PER_SEC"`

	// Customer list synchronization.
	CustomerPageSize           int `mapstructure:"CUSTOMER_PAGE_SIZE"`
	CustomerLoadMoreCooldownMS int `mapstructure:"CUSTOMER_LOAD_MORE_COOLDOWN_MS"`

	// Entitlement gate.
	EntitlementSyncTimeoutSeconds     int    `mapstructure:"ENTITLEMENT_SYNC_TIMEOUT_SECONDS"`
	EntitlementFailClosedAfterSeconds int    `mapstructure:"ENTITLEMENT_FAIL_CLOSED_AFTER_SECONDS"`
	EntitlementRefreshIntervalSeconds int    `mapstructure:"ENTITLEMENT_REFRESH_INTERVAL_SECONDS"`
	EntitlementRefreshCron            string `mapstructure:"ENTITLEMENT_REFRESH_CRON"`
	NavigationDebounceMS              int    `mapstructure:"NAVIGATION_DEBOUNCE_MS"`

	// Session persistence.
	SessionStore   string `mapstructure:"SESSION_STORE"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8787")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 600)
	viper.SetDefault("DEVICE_ID", "default")

	viper.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	viper.SetDefault("API_TIMEOUT_SECONDS", 15)
	viper.SetDefault("API_MAX_REQUESTS_PER_SEC", 10.0)

	viper.SetDefault("CUSTOMER_PAGE_SIZE", 10)
	viper.SetDefault("CUSTOMER_LOAD_MORE_COOLDOWN_MS", 300)

	viper.SetDefault("ENTITLEMENT_SYNC_TIMEOUT_SECONDS", 5)
	viper.SetDefault("ENTITLEMENT_FAIL_CLOSED_AFTER_SECONDS", 30)
	viper.SetDefault("ENTITLEMENT_REFRESH_INTERVAL_SECONDS", 300)
	viper.SetDefault("ENTITLEMENT_REFRESH_CRON", "@every 5m")
	viper.SetDefault("NAVIGATION_DEBOUNCE_MS", 500)

	viper.SetDefault("SESSION_STORE", "redis")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// APITimeout is the per-request timeout for the provider backend.
func (c Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

func (c Config) LoadMoreCooldown() time.Duration {
	return time.Duration(c.CustomerLoadMoreCooldownMS) * time.Millisecond
}

func (c Config) EntitlementSyncTimeout() time.Duration {
	return time.Duration(c.EntitlementSyncTimeoutSeconds) * time.Second
}

func (c Config) EntitlementFailClosedAfter() time.Duration {
	return time.Duration(c.EntitlementFailClosedAfterSeconds) * time.Second
}

func (c Config) EntitlementRefreshInterval() time.Duration {
	return time.Duration(c.EntitlementRefreshIntervalSeconds) * time.Second
}

func (c Config) NavigationDebounce() time.Duration {
	return time.Duration(c.NavigationDebounceMS) * time.Millisecond
}
