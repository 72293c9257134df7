// Package numeric normalizes the noisy scalar values the vision model and
// table exports hand us: floats, strings with currency glyphs, unit
// suffixes, thousands separators, or surrounding prose.
package numeric

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberRe matches a signed numeric token with optional thousands
// separators and optional decimal part, e.g. "-1,234.56".
var numberRe = regexp.MustCompile(`[-+]?[\d,]*\.?\d+`)

// Parse extracts a float from v, which may be a number or a string carrying
// units and prose. A non-empty unit anchors the search: the number
// immediately before (or, failing that, after) the unit substring wins.
// Parse never fails; anything it cannot interpret yields def after a
// warning log.
func Parse(v any, unit string, def float64) float64 {
	switch t := v.(type) {
	case nil:
		// fall through to default
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, ok := parseString(t, unit); ok {
			return f
		}
	}
	slog.Warn("numeric.parse.fallback", "value", v, "unit", unit, "default", def)
	return def
}

func parseString(s, unit string) (float64, bool) {
	cleaned := strings.TrimSpace(s)

	if unit != "" {
		if f, ok := parseNearUnit(cleaned, unit); ok {
			return f, true
		}
	}

	// General search: drop spaces and currency glyphs, take the first token.
	cleaned = strings.NewReplacer(" ", "", "¥", "", "$", "").Replace(cleaned)
	if m := numberRe.FindString(cleaned); m != "" {
		return toFloat(m)
	}
	return 0, false
}

// parseNearUnit splits s on every occurrence of unit and looks for the
// trailing number in the segment before each occurrence, falling back to the
// leading number of the segment after it (unit-before-number layouts).
func parseNearUnit(s, unit string) (float64, bool) {
	segments := strings.Split(s, unit)
	if len(segments) < 2 {
		return 0, false
	}
	for i := 0; i < len(segments)-1; i++ {
		if ms := numberRe.FindAllString(segments[i], -1); len(ms) > 0 {
			return toFloat(ms[len(ms)-1])
		}
		if ms := numberRe.FindAllString(segments[i+1], -1); len(ms) > 0 {
			return toFloat(ms[0])
		}
	}
	return 0, false
}

func toFloat(tok string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Round2 rounds to two decimal places, half away from zero. Money figures
// in the shift sheet are two-decimal; ties round away from zero rather than
// to even.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// SplitThree apportions a whole-shift figure across the three accounting
// slots and rounds the result.
func SplitThree(f float64) float64 {
	return Round2(f / 3)
}
