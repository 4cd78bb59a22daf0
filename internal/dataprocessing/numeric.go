package dataprocessing

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumericOrDefault converts a cell to a number. A blank cell yields def and
// ok=true; text that is not a finite number yields def and ok=false so the
// caller can count the coercion failure.
func ParseNumericOrDefault(text string, def float64) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def, false
	}
	return v, true
}

// parseNullable is ParseNumericOrDefault for columns with no default: blank
// and bad cells both yield nil.
func parseNullable(text string) (*float64, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, true
	}
	v, ok := ParseNumericOrDefault(text, 0)
	if !ok {
		return nil, false
	}
	return &v, true
}

// parseRound accepts integral values only; "3.0" is round 3, "3.5" is rejected.
func parseRound(text string) (int, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	v, ok := ParseNumericOrDefault(text, 0)
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
