package domain

import (
	"fmt"
)

// Output column names for the master table
const (
	ColItem              = "Item"
	ColSystemType        = "System_Type"
	ColRound             = "Round"
	ColMin               = "Min"
	ColSec               = "Sec"
	ColHundredths        = "Sec/100"
	ColTotalSeconds      = "Total_Seconds_Per_Round"
	ColDefects           = "Defects for Round"
	ColObservedTotal     = "Observed Total Count for Round"
	ColAccuracy          = "Accuracy for Round"
	ColGTNumberOfObjects = "GT_Number_of_Objects"
	ColGTNumberOfDefects = "GT_Number_of_Defects"
	ColGTGrandTotalCount = "GT_Grand_Total_Count"
	ColNotes             = "Notes"

	// ColLegacyDefects is the pre-rename spelling of ColDefects found in older files.
	ColLegacyDefects = "Defects"
)

// Metadata labels used for the ground-truth fields
const (
	MetaNumberOfObjects = "number of objects"
	MetaNumberOfDefects = "number of defects"
	MetaGrandTotalCount = "GT Grand Total Count"
)

// MaxCounts is the number of enumerated "Count N" columns a trial file may carry.
const MaxCounts = 9

// FixedColumns is the column list every master table starts with.
var FixedColumns = []string{
	ColItem,
	ColSystemType,
	ColRound,
	ColMin,
	ColSec,
	ColHundredths,
	ColTotalSeconds,
	ColDefects,
	ColObservedTotal,
	ColAccuracy,
	ColGTNumberOfObjects,
	ColGTNumberOfDefects,
	ColGTGrandTotalCount,
	ColNotes,
}

// CountColumn returns the column name for count slot i (0-based), e.g. "Count 1".
func CountColumn(i int) string {
	return fmt.Sprintf("Count %d", i+1)
}

// CountColumns returns all enumerated count column names in canonical order.
func CountColumns() []string {
	cols := make([]string, MaxCounts)
	for i := range cols {
		cols[i] = CountColumn(i)
	}
	return cols
}

// FileLayout describes where the structural blocks of one trial file live.
type FileLayout struct {
	HeaderLineIndex int   `json:"header_line_index"`
	NotesLineIndex  int   `json:"notes_line_index"` // -1 when the file has no notes section
	DataRowCount    int   `json:"data_row_count"`
	DataRowIndexes  []int `json:"data_row_indexes"`
}

// HasNotes reports whether a notes marker line was found.
func (l FileLayout) HasNotes() bool {
	return l.NotesLineIndex >= 0
}

// RoundRecord is one row of a trial's rounds table.
type RoundRecord struct {
	Round              int      `json:"round"`
	Min                float64  `json:"min"`
	Sec                float64  `json:"sec"`
	Hundredths         float64  `json:"sec_100"`
	TotalSeconds       float64  `json:"total_seconds_per_round"`
	Defects            float64  `json:"defects_for_round"`
	ObservedTotalCount *float64 `json:"observed_total_count_for_round"`
	Accuracy           *float64 `json:"accuracy_for_round"`

	// Counts holds "Count 1".."Count 9"; a nil slot means the column was absent
	// from the source file.
	Counts [MaxCounts]*float64 `json:"counts"`
}

// ComputeTotalSeconds derives the round duration from its time components.
func ComputeTotalSeconds(min, sec, hundredths float64) float64 {
	return min*60 + sec + hundredths/100
}

// CountValue returns count slot i, or 0 when the source file lacked that column.
func (r RoundRecord) CountValue(i int) float64 {
	if i < 0 || i >= MaxCounts || r.Counts[i] == nil {
		return 0
	}
	return *r.Counts[i]
}

// FileRecord is a RoundRecord joined with the constants of the file it came from.
type FileRecord struct {
	RoundRecord

	Item              string   `json:"item" validate:"required"`
	SystemType        string   `json:"system_type" validate:"required"`
	GTNumberOfObjects *float64 `json:"gt_number_of_objects"`
	GTNumberOfDefects *float64 `json:"gt_number_of_defects"`
	GTGrandTotalCount *float64 `json:"gt_grand_total_count"`
	Notes             string   `json:"notes"`
	SourceFile        string   `json:"source_file"`
}

// FileFailure records why one input file was excluded from the master table.
type FileFailure struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// MasterTable is the consolidated result of a merge run.
type MasterTable struct {
	Records      []FileRecord  `json:"records"`
	CountColumns []string      `json:"count_columns"`
	Failures     []FileFailure `json:"failures,omitempty"`
	FilesParsed  int           `json:"files_parsed"`
}

// Empty reports whether the table has no rows. Empty tables must not be saved.
func (t *MasterTable) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// Columns returns the fixed column list followed by the count columns present
// anywhere in the input set.
func (t *MasterTable) Columns() []string {
	cols := make([]string, 0, len(FixedColumns)+len(t.CountColumns))
	cols = append(cols, FixedColumns...)
	return append(cols, t.CountColumns...)
}

// CountIndexes maps the table's count columns back to their slot numbers.
func (t *MasterTable) CountIndexes() []int {
	idx := make([]int, 0, len(t.CountColumns))
	for _, name := range t.CountColumns {
		for i := 0; i < MaxCounts; i++ {
			if CountColumn(i) == name {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

// Values projects rec onto Columns(). Nullable fields stay nil; count columns
// the source file lacked read as 0.
func (t *MasterTable) Values(rec FileRecord) []any {
	vals := make([]any, 0, len(FixedColumns)+len(t.CountColumns))
	vals = append(vals,
		rec.Item,
		rec.SystemType,
		rec.Round,
		rec.Min,
		rec.Sec,
		rec.Hundredths,
		rec.TotalSeconds,
		rec.Defects,
		rec.ObservedTotalCount,
		rec.Accuracy,
		rec.GTNumberOfObjects,
		rec.GTNumberOfDefects,
		rec.GTGrandTotalCount,
		rec.Notes,
	)
	for _, slot := range t.CountIndexes() {
		vals = append(vals, rec.CountValue(slot))
	}
	return vals
}
