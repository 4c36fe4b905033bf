package config

import (
	"testing"
	"time"

	"github.com/bbernstein/ledsectional/internal/metar"
)

func TestLoad_Defaults(t *testing.T) {
	// Empty values fall back to defaults.
	envVars := []string{
		"PORT", "ENV", "DATABASE_URL", "MAP_CONFIG_PATH", "MAP_CONFIG_FALLBACK",
		"METAR_BASE_URL", "METAR_TIMEOUT", "METAR_RETRY_AFTER",
		"LIGHTNING_INTERVAL", "LIGHTNING_FLASH", "FETCH_ERROR_OVERLAY",
		"LED_DRIVER", "LED_REFRESH_RATE", "ARTNET_BROADCAST", "ARTNET_PORT", "ARTNET_UNIVERSE",
		"SERIAL_PORT", "SERIAL_BAUD", "WIFI_INTERFACE", "WIFI_AP_TIMEOUT",
		"NON_INTERACTIVE", "CORS_ORIGIN",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}

	cfg := Load()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Port", cfg.Port, "4000"},
		{"Env", cfg.Env, "development"},
		{"DatabaseURL", cfg.DatabaseURL, "file:./sectional.db"},
		{"MapConfigPath", cfg.MapConfigPath, "./cfg.toml"},
		{"MapConfigFallback", cfg.MapConfigFallback, true},
		{"MetarBaseURL", cfg.MetarBaseURL, metar.DefaultBaseURL},
		{"MetarTimeout", cfg.MetarTimeout, 15 * time.Second},
		{"MetarRetryAfter", cfg.MetarRetryAfter, 60 * time.Second},
		{"LightningInterval", cfg.LightningInterval, 5 * time.Second},
		{"LightningFlash", cfg.LightningFlash, 25 * time.Millisecond},
		{"FetchErrorOverlay", cfg.FetchErrorOverlay, true},
		{"LEDDriver", cfg.LEDDriver, "artnet"},
		{"LEDRefreshRate", cfg.LEDRefreshRate, 1},
		{"ArtNetBroadcast", cfg.ArtNetBroadcast, "255.255.255.255"},
		{"ArtNetPort", cfg.ArtNetPort, 6454},
		{"ArtNetUniverse", cfg.ArtNetUniverse, 1},
		{"SerialBaud", cfg.SerialBaud, 115200},
		{"WifiInterface", cfg.WifiInterface, "wlan0"},
		{"WifiAPTimeout", cfg.WifiAPTimeout, 3 * time.Minute},
		{"NonInteractive", cfg.NonInteractive, false},
		{"CORSOrigin", cfg.CORSOrigin, "*"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_CustomEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "file:/var/lib/sectional/sectional.db")
	t.Setenv("MAP_CONFIG_PATH", "/etc/sectional/cfg.toml")
	t.Setenv("MAP_CONFIG_FALLBACK", "false")
	t.Setenv("METAR_TIMEOUT", "5s")
	t.Setenv("METAR_RETRY_AFTER", "120000")
	t.Setenv("LIGHTNING_INTERVAL", "2s")
	t.Setenv("LIGHTNING_FLASH", "40ms")
	t.Setenv("FETCH_ERROR_OVERLAY", "false")
	t.Setenv("LED_DRIVER", "serial")
	t.Setenv("SERIAL_PORT", "/dev/ttyUSB0")
	t.Setenv("SERIAL_BAUD", "230400")
	t.Setenv("ARTNET_UNIVERSE", "3")
	t.Setenv("WIFI_AP_TIMEOUT", "10m")
	t.Setenv("CORS_ORIGIN", "http://example.com")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected Port to be '8080', got '%s'", cfg.Port)
	}
	if !cfg.IsProduction() || cfg.IsDevelopment() {
		t.Errorf("Expected production env, got '%s'", cfg.Env)
	}
	if cfg.DatabaseURL != "file:/var/lib/sectional/sectional.db" {
		t.Errorf("Unexpected DatabaseURL '%s'", cfg.DatabaseURL)
	}
	if cfg.MapConfigPath != "/etc/sectional/cfg.toml" || cfg.MapConfigFallback {
		t.Errorf("Unexpected map config settings: %q fallback=%v", cfg.MapConfigPath, cfg.MapConfigFallback)
	}
	if cfg.MetarTimeout != 5*time.Second {
		t.Errorf("Expected MetarTimeout 5s, got %v", cfg.MetarTimeout)
	}
	if cfg.MetarRetryAfter != 2*time.Minute {
		t.Errorf("Expected MetarRetryAfter 2m from milliseconds, got %v", cfg.MetarRetryAfter)
	}
	if cfg.LightningInterval != 2*time.Second || cfg.LightningFlash != 40*time.Millisecond {
		t.Errorf("Unexpected lightning timing %v / %v", cfg.LightningInterval, cfg.LightningFlash)
	}
	if cfg.FetchErrorOverlay {
		t.Error("Expected FetchErrorOverlay to be false")
	}
	if cfg.LEDDriver != "serial" || cfg.SerialPort != "/dev/ttyUSB0" || cfg.SerialBaud != 230400 {
		t.Errorf("Unexpected serial settings %q %q %d", cfg.LEDDriver, cfg.SerialPort, cfg.SerialBaud)
	}
	if cfg.ArtNetUniverse != 3 {
		t.Errorf("Expected ArtNetUniverse 3, got %d", cfg.ArtNetUniverse)
	}
	if cfg.WifiAPTimeout != 10*time.Minute {
		t.Errorf("Expected WifiAPTimeout 10m, got %v", cfg.WifiAPTimeout)
	}
	if cfg.CORSOrigin != "http://example.com" {
		t.Errorf("Unexpected CORSOrigin '%s'", cfg.CORSOrigin)
	}
}

func TestGetEnvHelpers_InvalidValues(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "-5s")

	if got := getEnvInt("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt invalid = %d, want 7", got)
	}
	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Error("getEnvBool invalid should return default")
	}
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("getEnvDuration negative = %v, want 1s", got)
	}
	if got := getEnv("TEST_UNSET_VALUE", "fallback"); got != "fallback" {
		t.Errorf("getEnv unset = %q, want fallback", got)
	}
}
