package mapconfig

import "strings"

// Kind identifies what an LED slot represents.
type Kind int

const (
	// KindStation is a real weather station identifier.
	KindStation Kind = iota
	// KindNull is an LED that stays off.
	KindNull
	// KindVFR is a legend LED showing the VFR color.
	KindVFR
	// KindMVFR is a legend LED showing the MVFR color.
	KindMVFR
	// KindIFR is a legend LED showing the IFR color.
	KindIFR
	// KindLIFR is a legend LED showing the LIFR color.
	KindLIFR
	// KindWVFR is a legend LED showing the windy-VFR color.
	KindWVFR
	// KindLightning is a legend LED that rests off and flashes with lightning.
	KindLightning
	// KindWindBlink is reserved for a wind-blink legend. It is inert.
	KindWindBlink
)

var specialCodes = map[string]Kind{
	"NULL": KindNull,
	"VFR":  KindVFR,
	"MVFR": KindMVFR,
	"IFR":  KindIFR,
	"LIFR": KindLIFR,
	"WVFR": KindWVFR,
	"LTNG": KindLightning,
	"WBNK": KindWindBlink,
}

// String returns the configuration code for special kinds and "STATION" otherwise.
func (k Kind) String() string {
	for code, kind := range specialCodes {
		if kind == k {
			return code
		}
	}
	return "STATION"
}

// IsSpecial reports whether the kind is one of the non-station codes.
func (k Kind) IsSpecial() bool {
	return k != KindStation
}

// Airport is one configured LED slot. Its position in Config.Airports is its LED index.
type Airport struct {
	Code string
	Kind Kind
}

// ParseAirport classifies a configured code. Special codes match exactly and
// case-sensitively; a blank code becomes NULL so the slot keeps its position.
func ParseAirport(code string) Airport {
	code = strings.TrimSpace(code)
	if code == "" {
		return Airport{Code: "NULL", Kind: KindNull}
	}
	if kind, ok := specialCodes[code]; ok {
		return Airport{Code: code, Kind: kind}
	}
	return Airport{Code: code, Kind: KindStation}
}

// IsSpecialCode reports whether code is one of the eight special codes.
func IsSpecialCode(code string) bool {
	_, ok := specialCodes[code]
	return ok
}
