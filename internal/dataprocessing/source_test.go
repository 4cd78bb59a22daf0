package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "trialmerge/internal/errors"
)

func TestReadLines_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.csv")
	content := "\xEF\xBB\xBFItem,X\r\nSystem Type,Y\r\nRound,Min\r\n1,2\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Item,X", "System Type,Y", "Round,Min", "1,2"}, got)
}

func TestReadLines_Missing(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFileUnreadable))
}

func TestReadLinesFrom_EmptyInput(t *testing.T) {
	got, err := ReadLinesFrom("empty.txt", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestReadLines_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{"Item", "Widget, large"},
		{"System Type", "AI"},
		{"number of objects", 40},
		{"Round", "Min", "Sec", "Sec/100"},
		{1, 0, 30, 5},
		{2, 0, 31, 0},
		{},
		{"Notes"},
		{"line one\nline two"},
	})

	got, err := ReadLines(path)
	require.NoError(t, err)

	assert.Equal(t, `Item,"Widget, large"`, got[0])
	assert.Equal(t, "Round,Min,Sec,Sec/100", got[3])
	assert.Equal(t, "1,0,30,5", got[4])
	assert.Equal(t, "", got[6])
	assert.Equal(t, "Notes", got[7])
	assert.Equal(t, []string{`"line one`, `line two"`}, got[8:])
}

func TestReadLines_WorkbookMultilineTableCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{"Item", "Widget"},
		{"System Type", "AI\nv2"},
		{"Round", "Min", "Sec", "Sec/100", "Comment"},
		{1, 0, 5, 0, "line one\nline two"},
		{2, 0, 6, 0, "a\n\nb"},
		{3, 0, 7, 0, "ok"},
		{"Notes"},
		{"first\nsecond"},
	})

	got, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Item,Widget",
		"System Type,AI v2",
		"Round,Min,Sec,Sec/100,Comment",
		"1,0,5,0,line one line two",
		"2,0,6,0,a  b",
		"3,0,7,0,ok",
		"Notes",
		`"first`,
		`second"`,
	}, got)

	parsed, err := NewParser(nil).Parse(context.Background(), path, got)
	require.NoError(t, err)
	assert.Len(t, parsed.Records, 3)
	assert.Zero(t, parsed.Stats.RowsRejected)
	assert.Equal(t, "AI v2", parsed.Records[0].SystemType)
	assert.Equal(t, "first\nsecond", parsed.Records[2].Notes)
}

func TestReadLines_CorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	_, err := ReadLines(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFileUnreadable))
}
