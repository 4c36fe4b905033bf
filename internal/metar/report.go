// Package metar models METAR weather reports and parses the aviationweather.gov
// JSON payload into them.
package metar

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is the aviationweather.gov METAR endpoint.
const DefaultBaseURL = "https://aviationweather.gov/api/data/metar"

// FlightCategory is the ceiling/visibility classification of a report.
type FlightCategory string

const (
	CategoryUnknown FlightCategory = ""
	CategoryVFR     FlightCategory = "VFR"
	CategoryMVFR    FlightCategory = "MVFR"
	CategoryIFR     FlightCategory = "IFR"
	CategoryLIFR    FlightCategory = "LIFR"
)

// ParseFlightCategory maps a payload category string to a FlightCategory.
// Anything unrecognized is CategoryUnknown.
func ParseFlightCategory(s string) FlightCategory {
	switch FlightCategory(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryVFR:
		return CategoryVFR
	case CategoryMVFR:
		return CategoryMVFR
	case CategoryIFR:
		return CategoryIFR
	case CategoryLIFR:
		return CategoryLIFR
	default:
		return CategoryUnknown
	}
}

// String returns the category name, or "UNKNOWN".
func (c FlightCategory) String() string {
	if c == CategoryUnknown {
		return "UNKNOWN"
	}
	return string(c)
}

// Report is one station's observation.
type Report struct {
	StationCode string
	Category    FlightCategory
	// WindSpeed is in knots.
	WindSpeed int
	// WindGust is in knots; nil when the report carries no gust.
	WindGust *int
	// Weather is the free-text phenomena string, e.g. "-TSRA BR".
	Weather string
}

// HasThunderstorm reports whether the phenomena string contains TS.
func (r Report) HasThunderstorm() bool {
	return strings.Contains(strings.ToUpper(r.Weather), "TS")
}

// Gust returns the gust speed, or 0 when absent.
func (r Report) Gust() int {
	if r.WindGust == nil || *r.WindGust < 0 {
		return 0
	}
	return *r.WindGust
}

// MaxWind returns the greater of sustained wind and gust.
func (r Report) MaxWind() int {
	speed := r.WindSpeed
	if speed < 0 {
		speed = 0
	}
	if gust := r.Gust(); gust > speed {
		return gust
	}
	return speed
}

// BuildRequestCodes joins station codes into the comma-separated ids list.
func BuildRequestCodes(codes []string) string {
	return strings.Join(codes, ",")
}

// BuildURL returns the JSON METAR request URL for the given station codes.
func BuildURL(baseURL string, codes []string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// Commas between ids stay literal; only the codes themselves are escaped.
	escaped := make([]string, len(codes))
	for i, code := range codes {
		escaped[i] = url.QueryEscape(code)
	}
	return baseURL + "?format=json&ids=" + BuildRequestCodes(escaped)
}

// Index keys reports by exact station code. A later duplicate replaces an earlier one.
func Index(reports []Report) map[string]Report {
	byCode := make(map[string]Report, len(reports))
	for _, r := range reports {
		byCode[r.StationCode] = r
	}
	return byCode
}
