package facts

import (
	"regexp"
	"strconv"
	"strings"
)

// factValueRE matches "<pattern><separator><number>[unit]" immediately
// following a fact-key synonym in running text, e.g. "总占地面积：12.5hm²".
func factValueRE(pattern string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(pattern)
	return regexp.MustCompile(escaped + `[：:\s]*([\d.，,]+)\s*([^\d\s，,。.；;]*)`)
}

// ParseNumber parses a raw numeric string that may use Chinese full-width
// commas as thousands separators.
func ParseNumber(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, "，", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormalizeUnit applies the unit conversions the review process expects:
// 万<unit> is ×10000 with the 万 prefix stripped, and hm²/公顷 is ×10000
// converted to plain m² (both being 10,000 square meters).
func NormalizeUnit(value float64, unit string) (float64, string) {
	if unit == "" {
		return value, unit
	}
	if strings.Contains(unit, "万") {
		value *= 10000
		unit = strings.ReplaceAll(unit, "万", "")
	}
	if unit == "hm²" || unit == "公顷" {
		value *= 10000
		unit = "m²"
	}
	return value, unit
}
