package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "trialmerge/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source is an in-memory trial file, e.g. a multipart upload.
type Source struct {
	Name   string
	Reader io.Reader
}

// ReadLines loads a trial file from disk as raw lines.
// Errors are FILE_UNREADABLE AppErrors.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewFileUnreadableError(path, err)
	}
	defer f.Close()

	return ReadLinesFrom(path, f)
}

// ReadLinesFrom reads a trial file from r. The extension of name selects the
// decoder: .xlsx workbooks have their first sheet rendered to CSV lines,
// anything else is read as delimited text.
func ReadLinesFrom(name string, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewFileUnreadableError(name, err)
	}

	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		lines, err := workbookLines(data)
		if err != nil {
			return nil, apperrors.NewFileUnreadableError(name, err)
		}
		return lines, nil
	}
	return textLines(data), nil
}

// textLines splits text on newlines, dropping a UTF-8 BOM and CR line endings.
func textLines(data []byte) []string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(data) == 0 {
		return []string{}
	}

	text := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// workbookLines renders the first sheet of an xlsx workbook as CSV lines so
// it can go through the same parser as text files.
//
// Only rows after the notes marker keep their embedded newlines, split into
// separate lines as a CSV export would. Newlines inside metadata and rounds
// table cells become spaces, so a multi-line cell stays on its row.
func workbookLines(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	lines := make([]string, 0, len(rows))
	var sawHeader, inNotes bool
	for _, row := range rows {
		if !inNotes {
			row = flattenCells(row)
		}
		line, err := renderRow(row)
		if err != nil {
			return nil, err
		}
		if !inNotes {
			lines = append(lines, line)
			switch {
			case !sawHeader && hasMarker(line, headerMarker):
				sawHeader = true
			case sawHeader && hasMarker(line, notesMarker):
				inNotes = true
			}
			continue
		}
		for _, part := range strings.Split(line, "\n") {
			lines = append(lines, strings.TrimSuffix(part, "\r"))
		}
	}
	return lines, nil
}

var cellNewlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func flattenCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = cellNewlines.Replace(c)
	}
	return out
}

func renderRow(row []string) (string, error) {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	if end == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row[:end]); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}
