package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brandpulse/brand-tracker/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port      string
	Debug     bool
	LogFormat string // "json" or "text"
	LogFile   string

	// Brands to track, resolved from the catalog
	Brands []BrandConfig

	// Enabled platforms, in collection order
	Platforms []string

	// Collection schedule
	Interval      time.Duration
	SourceTimeout time.Duration
	MinPosts      int
	MaxCycles     int
	Lookback      time.Duration

	// Retention policy applied at merge time
	RetentionMaxAge   time.Duration
	RetentionMaxCount int

	// Sentiment analysis
	SentimentEngine string

	// Result store configuration
	StoreBackend     string // "file" or "azblob"
	ResultsDir       string
	StorageAccount   string
	StorageContainer string

	// Optional update signal for remote readers
	ValkeyAddress  string
	ValkeyPassword string
	ValkeyChannel  string

	// API keys and credentials
	TwitterBearerToken string
	RedditClientID     string
	RedditClientSecret string
	NewsAPIKey         string

	// Source-specific settings
	AmazonDataset string
	RSSFeeds      []string

	// Reports
	ReportSchedule string // cron expression with seconds, empty disables
	ReportKeep     int

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	catalog := DefaultBrands()
	if path := getEnv("BRANDS_FILE", ""); path != "" {
		fileCatalog, err := LoadBrandCatalog(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load brand catalog: %w", err)
		}
		for name, brand := range fileCatalog {
			catalog[name] = brand
		}
	}

	brands, err := catalog.Resolve(getSliceEnv("BRANDS", []string{"apple"}))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Schedule defaults follow the first tracked brand
	defaultInterval := 60 * time.Second
	defaultMinPosts := 100
	if len(brands) > 0 {
		if brands[0].Interval > 0 {
			defaultInterval = time.Duration(brands[0].Interval) * time.Second
		}
		if brands[0].MinPosts > 0 {
			defaultMinPosts = brands[0].MinPosts
		}
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Debug:     getBoolEnv("DEBUG", false),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		Brands: brands,
		Platforms: normalizeList(getSliceEnv("PLATFORMS", []string{
			models.PlatformTwitter,
			models.PlatformReddit,
			models.PlatformNews,
			models.PlatformAmazon,
		})),

		Interval:      getDurationEnv("COLLECTION_INTERVAL", defaultInterval),
		SourceTimeout: getDurationEnv("SOURCE_TIMEOUT", 45*time.Second),
		MinPosts:      getIntEnv("MIN_POSTS", defaultMinPosts),
		MaxCycles:     getIntEnv("MAX_CYCLES", 0),
		Lookback:      time.Duration(getIntEnv("LOOKBACK_DAYS", 7)) * 24 * time.Hour,

		RetentionMaxAge:   time.Duration(getIntEnv("RETENTION_MAX_AGE_DAYS", 7)) * 24 * time.Hour,
		RetentionMaxCount: getIntEnv("RETENTION_MAX_COUNT", 1000),

		SentimentEngine: getEnv("SENTIMENT_ENGINE", "keyword"),

		StoreBackend:     getEnv("STORE_BACKEND", "file"),
		ResultsDir:       getEnv("RESULTS_DIR", "results"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "brand-tracker"),

		ValkeyAddress:  getEnv("VALKEY_ADDRESS", ""),
		ValkeyPassword: getEnv("VALKEY_PASSWORD", ""),
		ValkeyChannel:  getEnv("VALKEY_CHANNEL", "brand-tracker:updates"),

		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		NewsAPIKey:         getEnv("NEWS_API_KEY", ""),

		AmazonDataset: getEnv("AMAZON_DATASET", ""),
		RSSFeeds: getSliceEnv("RSS_FEEDS", []string{
			"https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en",
		}),

		ReportSchedule: getEnv("REPORT_SCHEDULE", "0 0 9 * * *"),
		ReportKeep:     getIntEnv("REPORT_KEEP", 30),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations that leave the collector with nothing to do
// or that would let a hung source starve the next cycle.
func (c *Config) Validate() error {
	if len(c.Brands) == 0 {
		return fmt.Errorf("at least one brand must be tracked (BRANDS)")
	}

	terms := 0
	for _, b := range c.Brands {
		terms += len(b.Identifiers) + len(b.Keywords) + len(b.Hashtags)
	}
	if terms == 0 {
		return fmt.Errorf("tracked brands have no identifiers, keywords or hashtags")
	}

	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one platform must be enabled (PLATFORMS)")
	}

	if c.Interval <= 0 {
		return fmt.Errorf("COLLECTION_INTERVAL must be positive")
	}

	if c.SourceTimeout <= 0 || c.SourceTimeout >= c.Interval {
		return fmt.Errorf("SOURCE_TIMEOUT (%v) must be positive and shorter than COLLECTION_INTERVAL (%v)", c.SourceTimeout, c.Interval)
	}

	if c.RetentionMaxCount <= 0 {
		return fmt.Errorf("RETENTION_MAX_COUNT must be positive")
	}

	if c.MaxCycles < 0 {
		return fmt.Errorf("MAX_CYCLES must not be negative")
	}

	switch c.StoreBackend {
	case "file":
		if c.ResultsDir == "" {
			return fmt.Errorf("RESULTS_DIR is required for the file store")
		}
	case "azblob":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required for the azblob store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be 'file' or 'azblob'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// TrackedIdentifiers returns the brand identifiers of every tracked brand, in
// configuration order and without duplicates. Identifiers differing only in
// case are duplicates; the first spelling is kept.
func (c *Config) TrackedIdentifiers() []string {
	seen := make(map[string]bool)
	var identifiers []string
	for _, b := range c.Brands {
		for _, id := range b.Identifiers {
			key := strings.ToLower(id)
			if !seen[key] {
				seen[key] = true
				identifiers = append(identifiers, id)
			}
		}
	}
	return identifiers
}

// NotificationsEnabled reports whether any report channel is configured
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("90s", "2m") or a bare number of seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}

func normalizeList(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
