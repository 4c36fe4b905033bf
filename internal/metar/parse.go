package metar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrReportParse is matched by every error returned from Parse.
var ErrReportParse = errors.New("report parse error")

// ParseError reports a payload that is not a JSON array.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("report parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrReportParse) match any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrReportParse }

// Parse decodes a JSON array of METAR objects. Only a payload that is not a
// JSON array is an error.
//
// Records are handled individually: an element that is not an object, or that
// has no station id, is skipped. Any other absent, null or mistyped field is
// defaulted (unknown category, zero wind, no gust, empty weather).
func Parse(payload []byte) ([]Report, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(payload, &elements); err != nil {
		return nil, &ParseError{Err: err}
	}
	if elements == nil {
		return nil, &ParseError{Err: errors.New("payload is null, want array")}
	}

	reports := make([]Report, 0, len(elements))
	for _, element := range elements {
		report, ok := parseRecord(element)
		if !ok {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func parseRecord(element json.RawMessage) (Report, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(element, &fields); err != nil || fields == nil {
		return Report{}, false
	}

	code := strings.TrimSpace(stringField(fields["icaoId"]))
	if code == "" {
		return Report{}, false
	}

	report := Report{
		StationCode: code,
		Category:    ParseFlightCategory(stringField(fields["fltCat"])),
		Weather:     stringField(fields["wxString"]),
	}
	if speed, ok := knotsField(fields["wspd"]); ok {
		report.WindSpeed = speed
	}
	if gust, ok := knotsField(fields["wgst"]); ok {
		report.WindGust = &gust
	}
	return report, true
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// knotsField reads a wind value given as a JSON number or numeric string.
// Negative values clamp to zero; fractions round to the nearest knot.
func knotsField(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	}

	if math.IsNaN(n) || n <= 0 {
		return 0, true
	}
	if n > math.MaxInt32 {
		return math.MaxInt32, true
	}
	return int(math.Round(n)), true
}
