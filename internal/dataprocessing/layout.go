package dataprocessing

import (
	"strings"
	"unicode"

	apperrors "trialmerge/internal/errors"
	"trialmerge/pkg/contracts/domain"
)

const (
	headerMarker = "round"
	notesMarker  = "notes"
)

// DetectLayout classifies the lines of one trial file into its metadata,
// rounds table and notes blocks without parsing any values.
//
// The table ends at the notes marker, at end of file, or at the first blank
// line after at least one data row. Blank lines before the first data row
// are skipped. A row of zeros is data, not a terminator.
func DetectLayout(lines []string) (domain.FileLayout, error) {
	layout := domain.FileLayout{HeaderLineIndex: -1, NotesLineIndex: -1}

	for i, line := range lines {
		if hasMarker(line, headerMarker) {
			layout.HeaderLineIndex = i
			break
		}
	}
	if layout.HeaderLineIndex < 0 {
		return layout, apperrors.NewMissingHeaderError("")
	}

	end := len(lines)
	for i := layout.HeaderLineIndex + 1; i < len(lines); i++ {
		if hasMarker(lines[i], notesMarker) {
			layout.NotesLineIndex = i
			end = i
			break
		}
	}

	layout.DataRowIndexes = []int{}
	for i := layout.HeaderLineIndex + 1; i < end; i++ {
		if isBlank(lines[i]) {
			if len(layout.DataRowIndexes) > 0 {
				break
			}
			continue
		}
		layout.DataRowIndexes = append(layout.DataRowIndexes, i)
	}
	layout.DataRowCount = len(layout.DataRowIndexes)

	return layout, nil
}

func hasMarker(line, marker string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), marker)
}

// isBlank reports whether a line carries no cell content. Spreadsheet exports
// pad empty rows with commas, so ",,,," is blank too.
func isBlank(line string) bool {
	for _, r := range line {
		if r != ',' && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
