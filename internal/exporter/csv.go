package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "trialmerge/internal/errors"
	"trialmerge/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes master tables as flat CSV
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteMasterTable writes table to filePath, replacing any existing file.
// The file is written next to its destination and renamed into place, so a
// failed write leaves the previous file intact. An empty table is refused
// with ErrEmptyTable and nothing is written.
func (w *CSVWriter) WriteMasterTable(ctx context.Context, filePath string, table *domain.MasterTable, options WriteOptions) error {
	if table.Empty() {
		return apperrors.ErrEmptyTable
	}

	w.logger.InfoContext(ctx, "Writing master table",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(table.Records)),
		slog.Int("column_count", len(table.Columns())))

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temp file", err).WithContext("dir", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := w.WriteTo(tmp, table, options); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to write master table", err).WithContext("path", filePath)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close temp file", err).WithContext("path", filePath)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return apperrors.NewStorageError("failed to move master table into place", err).WithContext("path", filePath)
	}

	return nil
}

// WriteTo streams table as CSV to out. Unlike WriteMasterTable it accepts an
// empty table and writes just the header.
func (w *CSVWriter) WriteTo(out io.Writer, table *domain.MasterTable, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if err := writer.Write(table.Columns()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	countSlots := table.CountIndexes()
	for i, rec := range table.Records {
		if err := writer.Write(recordRow(rec, countSlots)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// recordRow projects rec onto the fixed columns followed by the given count slots.
func recordRow(rec domain.FileRecord, countSlots []int) []string {
	row := make([]string, 0, len(domain.FixedColumns)+len(countSlots))
	row = append(row,
		rec.Item,
		rec.SystemType,
		formatInt(int64(rec.Round)),
		formatFloat(rec.Min),
		formatFloat(rec.Sec),
		formatFloat(rec.Hundredths),
		formatFloat(rec.TotalSeconds),
		formatFloat(rec.Defects),
		formatNullable(rec.ObservedTotalCount),
		formatNullable(rec.Accuracy),
		formatNullable(rec.GTNumberOfObjects),
		formatNullable(rec.GTNumberOfDefects),
		formatNullable(rec.GTGrandTotalCount),
		rec.Notes,
	)
	for _, slot := range countSlots {
		row = append(row, formatFloat(rec.CountValue(slot)))
	}
	return row
}
