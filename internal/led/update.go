package led

import (
	"github.com/bbernstein/ledsectional/internal/mapconfig"
	"github.com/bbernstein/ledsectional/internal/metar"
)

// Update maps the configured slots and a cycle's reports to a color buffer and
// the lightning index set. Identical inputs always give identical output.
//
// Stations without a report render as unknown. LTNG slots rest off and always
// join the lightning set. WBNK slots are reserved and stay off.
func Update(cfg *mapconfig.Config, reports []metar.Report) ([]Color, []int) {
	byCode := metar.Index(reports)

	buffer := make([]Color, len(cfg.Airports))
	lightning := []int{}

	for i, airport := range cfg.Airports {
		if color, ok := SpecialColor(airport); ok {
			buffer[i] = color
			continue
		}

		switch airport.Kind {
		case mapconfig.KindLightning:
			buffer[i] = ColorUnknown
			lightning = append(lightning, i)
			continue
		case mapconfig.KindWindBlink:
			// TODO: animate once a wind-blink mode is defined; until then the slot stays off.
			buffer[i] = ColorUnknown
			continue
		}

		report, ok := byCode[airport.Code]
		if !ok {
			buffer[i] = ColorUnknown
			continue
		}

		buffer[i] = CategoryColor(
			report.Category,
			report.WindSpeed,
			report.Gust(),
			cfg.Settings.WindThresholdKt,
			cfg.Settings.DoWinds,
		)
		if report.HasThunderstorm() {
			lightning = append(lightning, i)
		}
	}

	return buffer, lightning
}
