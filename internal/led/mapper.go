package led

import (
	"github.com/bbernstein/ledsectional/internal/mapconfig"
	"github.com/bbernstein/ledsectional/internal/metar"
)

// CategoryColor returns the color for a flight category. VFR turns to the wind
// color when wind coloring is enabled and the stronger of speed and gust
// reaches the threshold.
func CategoryColor(category metar.FlightCategory, windSpeed, windGust, threshold int, windEnabled bool) Color {
	switch category {
	case metar.CategoryVFR:
		if windEnabled && max(windSpeed, windGust) >= threshold {
			return ColorWind
		}
		return ColorVFR
	case metar.CategoryMVFR:
		return ColorMVFR
	case metar.CategoryIFR:
		return ColorIFR
	case metar.CategoryLIFR:
		return ColorLIFR
	default:
		return ColorUnknown
	}
}

// SpecialColor returns the fixed legend color of a special slot. It returns
// false for stations and for the animated LTNG and WBNK slots.
func SpecialColor(airport mapconfig.Airport) (Color, bool) {
	switch airport.Kind {
	case mapconfig.KindNull:
		return ColorUnknown, true
	case mapconfig.KindVFR:
		return ColorVFR, true
	case mapconfig.KindMVFR:
		return ColorMVFR, true
	case mapconfig.KindIFR:
		return ColorIFR, true
	case mapconfig.KindLIFR:
		return ColorLIFR, true
	case mapconfig.KindWVFR:
		return ColorWind, true
	case mapconfig.KindLightning, mapconfig.KindWindBlink, mapconfig.KindStation:
		return Color{}, false
	default:
		return Color{}, false
	}
}

// SpecialCodeColor is SpecialColor for a raw configuration code. Codes outside
// the special set are stations and return false.
func SpecialCodeColor(code string) (Color, bool) {
	if !mapconfig.IsSpecialCode(code) {
		return Color{}, false
	}
	return SpecialColor(mapconfig.ParseAirport(code))
}
