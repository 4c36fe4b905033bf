// Package mapconfig parses and validates the sectional map configuration:
// display settings, an optional Wi-Fi override and the ordered list of LED slots.
package mapconfig

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Setting defaults and clamp ranges.
const (
	DefaultBrightness          = 20
	DefaultRequestIntervalSecs = 900
	DefaultWindThresholdKt     = 25
	DefaultDataPin             = 2

	MinRequestIntervalSecs = 60
	MaxRequestIntervalSecs = 3600
	MaxWindThresholdKt     = 100
)

// ErrConfigParse is matched by every error returned from Parse.
var ErrConfigParse = errors.New("config parse error")

//go:embed default.toml
var defaultConfigTOML string

// ParseError reports configuration text that could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfigParse) match any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrConfigParse }

// Settings holds validated display settings.
type Settings struct {
	Brightness          uint8
	RequestIntervalSecs int
	WindThresholdKt     int
	DoLightning         bool
	DoWinds             bool
	// DataPin is parsed and kept for map-file compatibility. No output
	// driver here drives a GPIO pin, so nothing reads it.
	DataPin int
}

// RequestInterval returns the fetch interval as a duration.
func (s Settings) RequestInterval() time.Duration {
	return time.Duration(s.RequestIntervalSecs) * time.Second
}

// WifiOverride is a development fallback for Wi-Fi credentials.
type WifiOverride struct {
	SSID     string
	Password string
}

// Present reports whether an SSID was configured.
func (w WifiOverride) Present() bool {
	return w.SSID != ""
}

// Config is the parsed sectional configuration. It is not modified after Parse.
type Config struct {
	Settings Settings
	Wifi     WifiOverride
	Airports []Airport

	unknownKeys []string
}

type rawSettings struct {
	Brightness          int  `toml:"brightness"`
	RequestIntervalSecs int  `toml:"request_interval_secs"`
	RequestInterval     int  `toml:"request_interval"`
	WindThresholdKt     int  `toml:"wind_threshold_kt"`
	DoLightning         bool `toml:"do_lightning"`
	DoWinds             bool `toml:"do_winds"`
	DataPin             int  `toml:"data_pin"`
}

type rawWifi struct {
	SSID     string `toml:"ssid"`
	Password string `toml:"password"`
}

type rawAirport struct {
	Code string `toml:"code"`
}

type rawConfig struct {
	Settings rawSettings  `toml:"settings"`
	Wifi     rawWifi      `toml:"wifi"`
	Airports []rawAirport `toml:"airports"`
}

// Parse decodes TOML configuration text, fills defaults for missing fields and
// clamps numeric settings into range. Out-of-range values are adjusted, not rejected.
func Parse(raw string) (*Config, error) {
	rc := rawConfig{
		Settings: rawSettings{
			Brightness:          DefaultBrightness,
			RequestIntervalSecs: DefaultRequestIntervalSecs,
			WindThresholdKt:     DefaultWindThresholdKt,
			DoLightning:         true,
			DoWinds:             true,
			DataPin:             DefaultDataPin,
		},
	}

	md, err := toml.Decode(raw, &rc)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	interval := rc.Settings.RequestIntervalSecs
	if md.IsDefined("settings", "request_interval") && !md.IsDefined("settings", "request_interval_secs") {
		interval = rc.Settings.RequestInterval
	}

	cfg := &Config{
		Settings: Settings{
			Brightness:          uint8(clamp(rc.Settings.Brightness, 0, 255)),
			RequestIntervalSecs: clamp(interval, MinRequestIntervalSecs, MaxRequestIntervalSecs),
			WindThresholdKt:     clamp(rc.Settings.WindThresholdKt, 0, MaxWindThresholdKt),
			DoLightning:         rc.Settings.DoLightning,
			DoWinds:             rc.Settings.DoWinds,
			DataPin:             rc.Settings.DataPin,
		},
		Wifi: WifiOverride{
			SSID:     rc.Wifi.SSID,
			Password: rc.Wifi.Password,
		},
		Airports: make([]Airport, len(rc.Airports)),
	}
	for i, a := range rc.Airports {
		cfg.Airports[i] = ParseAirport(a.Code)
	}
	for _, key := range md.Undecoded() {
		cfg.unknownKeys = append(cfg.unknownKeys, key.String())
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Parse(defaultConfigTOML)
	if err != nil {
		panic(fmt.Sprintf("built-in config is invalid: %v", err))
	}
	return cfg
}

// AirportCount returns the number of configured slots, which is the LED count.
func (c *Config) AirportCount() int {
	return len(c.Airports)
}

// MetarCodes returns the station codes to request, in configured order.
// Special codes are never sent to the weather source.
func (c *Config) MetarCodes() []string {
	codes := make([]string, 0, len(c.Airports))
	for _, a := range c.Airports {
		if a.Kind == KindStation {
			codes = append(codes, a.Code)
		}
	}
	return codes
}

// UnknownKeys lists keys present in the source that no field consumed.
func (c *Config) UnknownKeys() []string {
	return c.unknownKeys
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
