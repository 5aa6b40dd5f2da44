package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// Database configuration
	DatabaseURL string

	// Watch engine configuration
	DuplicateWindow   time.Duration // tolerance window for duplicate watch suppression
	SchedulerInterval time.Duration // polling interval for the deadline scheduler

	// Discord IDs that may cancel any watch (emergency override)
	ModeratorDiscordIDs []int64

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Engine settings with defaults
		DuplicateWindow:   5 * time.Minute,
		SchedulerInterval: 30 * time.Second,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if window := os.Getenv("DUPLICATE_WINDOW_MINUTES"); window != "" {
		if parsed, err := strconv.Atoi(window); err == nil && parsed > 0 {
			config.DuplicateWindow = time.Duration(parsed) * time.Minute
		}
	}
	if interval := os.Getenv("SCHEDULER_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.SchedulerInterval = time.Duration(parsed) * time.Second
		}
	}

	// Parse moderator Discord IDs
	if moderatorIDs := os.Getenv("MODERATOR_DISCORD_IDS"); moderatorIDs != "" {
		idStrings := strings.Split(moderatorIDs, ",")
		for _, idStr := range idStrings {
			idStr = strings.TrimSpace(idStr)
			if idStr != "" {
				if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
					config.ModeratorDiscordIDs = append(config.ModeratorDiscordIDs, id)
				}
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
