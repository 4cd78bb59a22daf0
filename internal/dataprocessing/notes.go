package dataprocessing

import (
	"regexp"
	"strings"
)

// commaRun matches the comma padding spreadsheet exports append to
// multi-line text cells.
var commaRun = regexp.MustCompile(`,+\s*`)

// CleanNotes turns the raw lines below a notes marker into one text block.
func CleanNotes(lines []string) string {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		s = stripQuotes(s)
		s = commaRun.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, "\n")
}

// stripQuotes removes one leading and one trailing double quote. They need not pair.
func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
