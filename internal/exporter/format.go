package exporter

import (
	"strconv"
)

// formatFloat formats a float64 in the shortest form that round-trips,
// so 12 is written as "12" and 0.975 as "0.975"
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatNullable writes nil as an empty cell
func formatNullable(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
