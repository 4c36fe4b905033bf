// Package config provides process configuration for the sectional server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/bbernstein/ledsectional/internal/metar"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Map configuration
	MapConfigPath     string
	MapConfigFallback bool // Use the built-in map when the file is missing or invalid

	// METAR fetching
	MetarBaseURL    string
	MetarTimeout    time.Duration
	MetarRetryAfter time.Duration

	// Animation
	LightningInterval time.Duration
	LightningFlash    time.Duration
	FetchErrorOverlay bool

	// LED output
	LEDDriver       string // artnet, serial or none
	LEDRefreshRate  int    // Hz keep-alive
	ArtNetBroadcast string // IPv4 address or interface name
	ArtNetPort      int
	ArtNetUniverse  int
	SerialPort      string
	SerialBaud      int

	// Wi-Fi provisioning
	WifiInterface string
	WifiAPTimeout time.Duration

	// Non-interactive mode (for Docker/CI)
	NonInteractive bool

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "4000"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./sectional.db"),

		// Map
		MapConfigPath:     getEnv("MAP_CONFIG_PATH", "./cfg.toml"),
		MapConfigFallback: getEnvBool("MAP_CONFIG_FALLBACK", true),

		// METAR
		MetarBaseURL:    getEnv("METAR_BASE_URL", metar.DefaultBaseURL),
		MetarTimeout:    getEnvDuration("METAR_TIMEOUT", 15*time.Second),
		MetarRetryAfter: getEnvDuration("METAR_RETRY_AFTER", 60*time.Second),

		// Animation
		LightningInterval: getEnvDuration("LIGHTNING_INTERVAL", 5*time.Second),
		LightningFlash:    getEnvDuration("LIGHTNING_FLASH", 25*time.Millisecond),
		FetchErrorOverlay: getEnvBool("FETCH_ERROR_OVERLAY", true),

		// LED output
		LEDDriver:       getEnv("LED_DRIVER", "artnet"),
		LEDRefreshRate:  getEnvInt("LED_REFRESH_RATE", 1),
		ArtNetBroadcast: getEnv("ARTNET_BROADCAST", "255.255.255.255"),
		ArtNetPort:      getEnvInt("ARTNET_PORT", 6454),
		ArtNetUniverse:  getEnvInt("ARTNET_UNIVERSE", 1),
		SerialPort:      getEnv("SERIAL_PORT", ""),
		SerialBaud:      getEnvInt("SERIAL_BAUD", 115200),

		// Wi-Fi
		WifiInterface: getEnv("WIFI_INTERFACE", "wlan0"),
		WifiAPTimeout: getEnvDuration("WIFI_AP_TIMEOUT", 3*time.Minute),

		// Non-interactive
		NonInteractive: getEnvBool("NON_INTERACTIVE", false),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "3m") or bare milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
