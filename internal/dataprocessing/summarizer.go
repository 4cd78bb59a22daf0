package dataprocessing

import (
	"math"
	"sort"

	"trialmerge/pkg/contracts/domain"
)

// ColumnStats describes one numeric column of the master table.
// Std is the sample standard deviation and is 0 for fewer than two values.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary is a descriptive overview of a merged table.
type Summary struct {
	Rows        int                  `json:"rows"`
	FilesParsed int                  `json:"files_parsed"`
	FilesFailed int                  `json:"files_failed"`
	Items       []string             `json:"items"`
	SystemTypes []string             `json:"system_types"`
	Columns     []ColumnStats        `json:"columns"`
	Failures    []domain.FileFailure `json:"failures,omitempty"`
}

type numericColumn struct {
	name  string
	value func(domain.FileRecord) (float64, bool)
}

func always(f func(domain.FileRecord) float64) func(domain.FileRecord) (float64, bool) {
	return func(r domain.FileRecord) (float64, bool) { return f(r), true }
}

func optional(f func(domain.FileRecord) *float64) func(domain.FileRecord) (float64, bool) {
	return func(r domain.FileRecord) (float64, bool) {
		if v := f(r); v != nil {
			return *v, true
		}
		return 0, false
	}
}

var fixedNumericColumns = []numericColumn{
	{domain.ColRound, always(func(r domain.FileRecord) float64 { return float64(r.Round) })},
	{domain.ColMin, always(func(r domain.FileRecord) float64 { return r.Min })},
	{domain.ColSec, always(func(r domain.FileRecord) float64 { return r.Sec })},
	{domain.ColHundredths, always(func(r domain.FileRecord) float64 { return r.Hundredths })},
	{domain.ColTotalSeconds, always(func(r domain.FileRecord) float64 { return r.TotalSeconds })},
	{domain.ColDefects, always(func(r domain.FileRecord) float64 { return r.Defects })},
	{domain.ColObservedTotal, optional(func(r domain.FileRecord) *float64 { return r.ObservedTotalCount })},
	{domain.ColAccuracy, optional(func(r domain.FileRecord) *float64 { return r.Accuracy })},
	{domain.ColGTNumberOfObjects, optional(func(r domain.FileRecord) *float64 { return r.GTNumberOfObjects })},
	{domain.ColGTNumberOfDefects, optional(func(r domain.FileRecord) *float64 { return r.GTNumberOfDefects })},
	{domain.ColGTGrandTotalCount, optional(func(r domain.FileRecord) *float64 { return r.GTGrandTotalCount })},
}

// Summarize computes row and file counts, the distinct items and system
// types, and count/mean/std/min/max for every numeric column. Missing
// values are skipped; count columns use the projected value (0 when the
// source file lacked the column).
func Summarize(table *domain.MasterTable) Summary {
	s := Summary{
		Items:       []string{},
		SystemTypes: []string{},
		Columns:     []ColumnStats{},
	}
	if table == nil {
		return s
	}

	s.Rows = len(table.Records)
	s.FilesParsed = table.FilesParsed
	s.FilesFailed = len(table.Failures)
	s.Failures = table.Failures

	items := make(map[string]struct{})
	systems := make(map[string]struct{})
	for _, r := range table.Records {
		items[r.Item] = struct{}{}
		systems[r.SystemType] = struct{}{}
	}
	s.Items = sortedKeys(items)
	s.SystemTypes = sortedKeys(systems)

	if s.Rows == 0 {
		return s
	}

	columns := append([]numericColumn{}, fixedNumericColumns...)
	for i, slot := range table.CountIndexes() {
		columns = append(columns, numericColumn{
			name:  table.CountColumns[i],
			value: always(func(r domain.FileRecord) float64 { return r.CountValue(slot) }),
		})
	}

	for _, col := range columns {
		s.Columns = append(s.Columns, describe(col, table.Records))
	}
	return s
}

func describe(col numericColumn, records []domain.FileRecord) ColumnStats {
	st := ColumnStats{Column: col.name, Min: math.Inf(1), Max: math.Inf(-1)}

	var sum float64
	values := make([]float64, 0, len(records))
	for _, r := range records {
		v, ok := col.value(r)
		if !ok {
			continue
		}
		values = append(values, v)
		sum += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}

	st.Count = len(values)
	if st.Count == 0 {
		st.Min, st.Max = 0, 0
		return st
	}
	st.Mean = sum / float64(st.Count)

	if st.Count > 1 {
		var sq float64
		for _, v := range values {
			d := v - st.Mean
			sq += d * d
		}
		st.Std = math.Sqrt(sq / float64(st.Count-1))
	}
	return st
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
