package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "trialmerge/internal/errors"
	"trialmerge/pkg/contracts/domain"
)

// ParseStats counts the problems a parse recovered from.
type ParseStats struct {
	CellCoercionFailures int `json:"cell_coercion_failures"`
	RowsRejected         int `json:"rows_rejected"`
}

// ParsedFile is the outcome of parsing one trial file.
type ParsedFile struct {
	Source   string
	Layout   domain.FileLayout
	Metadata *MetadataBlock
	Records  []domain.FileRecord

	// Warnings carries one CELL_COERCION_FAILURE or ROW_REJECTED error per
	// recovered problem, in line order.
	Warnings []*apperrors.AppError
	Stats    ParseStats
}

// Parser turns the raw lines of one trial file into FileRecords.
type Parser struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewParser creates a parser that logs recovered problems at debug level.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:   logger.With(slog.String("component", "parser")),
		validate: validator.New(),
	}
}

// Parse parses one file. It fails only when the rounds-table header or one of
// the two required scalar fields is missing; every other problem is recorded
// in Warnings and Stats.
func (p *Parser) Parse(ctx context.Context, source string, lines []string) (*ParsedFile, error) {
	layout, err := DetectLayout(lines)
	if err != nil {
		return nil, apperrors.NewMissingHeaderError(source)
	}

	out := &ParsedFile{
		Source:   source,
		Layout:   layout,
		Metadata: ParseMetadata(lines[:layout.HeaderLineIndex]),
	}

	if err := p.checkScalars(source, layout, out.Metadata); err != nil {
		return nil, err
	}

	columns := newColumnIndex(splitRecord(lines[layout.HeaderLineIndex]))

	rounds := make([]domain.RoundRecord, 0, layout.DataRowCount)
	seen := make(map[int]int, layout.DataRowCount)
	for _, lineNo := range layout.DataRowIndexes {
		rec, ok := p.parseRow(out, columns, splitRecord(lines[lineNo]), lineNo)
		if !ok {
			continue
		}
		if first, dup := seen[rec.Round]; dup {
			p.reject(out, fmt.Sprintf("duplicate round %d (first seen on line %d)", rec.Round, first), lineNo)
			continue
		}
		seen[rec.Round] = lineNo
		rounds = append(rounds, rec)
	}

	notes := ""
	if layout.HasNotes() {
		notes = CleanNotes(lines[layout.NotesLineIndex+1:])
	}

	gtObjects, gtDefects, gtTotal := out.Metadata.GroundTruth()
	out.Records = make([]domain.FileRecord, 0, len(rounds))
	for _, r := range rounds {
		out.Records = append(out.Records, domain.FileRecord{
			RoundRecord:       r,
			Item:              out.Metadata.Item,
			SystemType:        out.Metadata.SystemType,
			GTNumberOfObjects: gtObjects,
			GTNumberOfDefects: gtDefects,
			GTGrandTotalCount: gtTotal,
			Notes:             notes,
			SourceFile:        source,
		})
	}

	p.logger.DebugContext(ctx, "parsed trial file",
		slog.String("source", source),
		slog.Int("header_line", layout.HeaderLineIndex),
		slog.Int("notes_line", layout.NotesLineIndex),
		slog.Int("data_rows", layout.DataRowCount),
		slog.Int("records", len(out.Records)),
		slog.Int("rows_rejected", out.Stats.RowsRejected),
		slog.Int("cell_coercion_failures", out.Stats.CellCoercionFailures))

	return out, nil
}

// checkScalars enforces the item name and system type on lines 0 and 1.
// A header on either of those lines leaves no room for them.
func (p *Parser) checkScalars(source string, layout domain.FileLayout, meta *MetadataBlock) error {
	required := []struct {
		field string
		line  int
		value string
	}{
		{"item_name", 0, meta.Item},
		{"system_type", 1, meta.SystemType},
	}
	for _, r := range required {
		if layout.HeaderLineIndex <= r.line || p.validate.Var(r.value, "required") != nil {
			return apperrors.NewMissingScalarFieldError(source, r.field, r.line)
		}
	}
	return nil
}

func (p *Parser) parseRow(out *ParsedFile, cols columnIndex, fields []string, lineNo int) (domain.RoundRecord, bool) {
	var rec domain.RoundRecord

	roundText, _ := cols.get(fields, domain.ColRound)
	round, ok := parseRound(roundText)
	if !ok {
		p.reject(out, fmt.Sprintf("unparseable round number %q", strings.TrimSpace(roundText)), lineNo)
		return rec, false
	}
	rec.Round = round

	number := func(column string) float64 {
		text, _ := cols.get(fields, column)
		v, ok := ParseNumericOrDefault(text, 0)
		if !ok {
			p.coercionFailure(out, column, text, lineNo)
		}
		return v
	}
	nullable := func(column string) *float64 {
		text, _ := cols.get(fields, column)
		v, ok := parseNullable(text)
		if !ok {
			p.coercionFailure(out, column, text, lineNo)
		}
		return v
	}

	rec.Min = number(domain.ColMin)
	rec.Sec = number(domain.ColSec)
	rec.Hundredths = number(domain.ColHundredths)
	rec.Defects = number(domain.ColDefects)
	rec.ObservedTotalCount = nullable(domain.ColObservedTotal)
	rec.Accuracy = nullable(domain.ColAccuracy)

	for i := 0; i < domain.MaxCounts; i++ {
		name := domain.CountColumn(i)
		if !cols.has(name) {
			continue
		}
		v := number(name)
		rec.Counts[i] = &v
	}

	// any Total_Seconds_Per_Round column in the source is ignored
	rec.TotalSeconds = domain.ComputeTotalSeconds(rec.Min, rec.Sec, rec.Hundredths)
	return rec, true
}

func (p *Parser) reject(out *ParsedFile, reason string, lineNo int) {
	out.Stats.RowsRejected++
	err := apperrors.NewRowRejectedError(reason, lineNo).WithContext("source", out.Source)
	out.Warnings = append(out.Warnings, err)
	p.logger.Debug("row rejected",
		slog.String("source", out.Source),
		slog.Int("line", lineNo),
		slog.String("reason", reason))
}

func (p *Parser) coercionFailure(out *ParsedFile, column, value string, lineNo int) {
	out.Stats.CellCoercionFailures++
	err := apperrors.NewCellCoercionError(column, strings.TrimSpace(value), lineNo).WithContext("source", out.Source)
	out.Warnings = append(out.Warnings, err)
	p.logger.Debug("cell coercion failure",
		slog.String("source", out.Source),
		slog.Int("line", lineNo),
		slog.String("column", column),
		slog.String("value", value))
}

// columnIndex maps lower-cased header names to field positions.
type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}

	current := strings.ToLower(domain.ColDefects)
	legacy := strings.ToLower(domain.ColLegacyDefects)
	if pos, ok := idx[legacy]; ok {
		if _, hasCurrent := idx[current]; !hasCurrent {
			idx[current] = pos
		}
		delete(idx, legacy)
	}
	return idx
}

func (c columnIndex) has(column string) bool {
	_, ok := c[strings.ToLower(column)]
	return ok
}

// get returns the cell under column. Short rows read as blank.
func (c columnIndex) get(fields []string, column string) (string, bool) {
	pos, ok := c[strings.ToLower(column)]
	if !ok {
		return "", false
	}
	return cell(fields, pos), true
}

// splitRecord splits one CSV line, honouring quotes. A line the CSV reader
// rejects falls back to a plain comma split.
func splitRecord(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return rec
}

func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
