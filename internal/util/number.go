package util

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber converts a decoded JSON value to a number with loose semantics:
// null and "" become 0, booleans 0/1, numeric strings their value, a
// one-element array its element. Anything else is NaN.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		return ParseNumber(x.String())
	case string:
		return ParseNumber(x)
	case []any:
		switch len(x) {
		case 0:
			return 0
		case 1:
			if _, ok := x[0].(bool); ok {
				return math.NaN()
			}
			return ToNumber(x[0])
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

// ParseNumber parses a numeric string. Blank input is 0, unparseable input NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		var base int
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}

	// strconv accepts forms ("inf", "nan", "0x1p3", "1_0") that are not plain decimals.
	if strings.ContainsAny(strings.ToLower(s), "abcdfghijklmnopqrstuvwxyz_") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// out of range still yields ±Inf with a range error
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
