package dataprocessing

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trialmerge/internal/errors"
	"trialmerge/pkg/contracts/domain"
)

const sampleTrial = `Item,Widget A,,
System Type,AI,,
number of objects,40,,
number of defects,3,,
Round,Min,Sec,Sec/100,Defects for Round,Observed Total Count for Round,Accuracy for Round,Count 1,Count 2,Count 3
1,0,42,15,1,39,0.975,12,14,13
2,1,5,50,0,40,1,13,14,13
3,0,59,99,2,,n/a,10,15,15
0,0,0,0,0,0,0,0,0,0
,,,,,,,,,
Notes,,,
"foo,,, "
second note,,,`

func testParser() *Parser {
	return NewParser(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func ptr(v float64) *float64 { return &v }

func TestParser_Parse(t *testing.T) {
	got, err := testParser().Parse(context.Background(), "widget.csv", lines(sampleTrial))
	require.NoError(t, err)

	assert.Equal(t, 4, got.Layout.HeaderLineIndex)
	assert.Equal(t, 10, got.Layout.NotesLineIndex)
	assert.Equal(t, 4, got.Layout.DataRowCount)
	require.Len(t, got.Records, 4)

	first := got.Records[0]
	assert.Equal(t, "Widget A", first.Item)
	assert.Equal(t, "AI", first.SystemType)
	assert.Equal(t, "widget.csv", first.SourceFile)
	assert.Equal(t, 1, first.Round)
	assert.InDelta(t, 42.15, first.TotalSeconds, 1e-9)
	assert.Equal(t, 1.0, first.Defects)
	assert.Equal(t, ptr(39), first.ObservedTotalCount)
	assert.Equal(t, ptr(0.975), first.Accuracy)
	assert.Equal(t, ptr(40), first.GTNumberOfObjects)
	assert.Equal(t, ptr(3), first.GTNumberOfDefects)
	assert.Nil(t, first.GTGrandTotalCount)
	assert.Equal(t, "foo\nsecond note", first.Notes)
	assert.Equal(t, 12.0, first.CountValue(0))
	assert.Nil(t, first.Counts[3], "Count 4 absent from file")

	second := got.Records[1]
	assert.InDelta(t, 65.5, second.TotalSeconds, 1e-9)

	third := got.Records[2]
	assert.Nil(t, third.ObservedTotalCount, "blank nullable cell")
	assert.Nil(t, third.Accuracy, "unparseable nullable cell")

	zero := got.Records[3]
	assert.Equal(t, 0, zero.Round, "all-zero row is kept")
	assert.Equal(t, 0.0, zero.TotalSeconds)

	// constants are broadcast onto every row
	for _, r := range got.Records {
		assert.Equal(t, first.Notes, r.Notes)
		assert.Equal(t, first.Item, r.Item)
	}

	assert.Equal(t, ParseStats{CellCoercionFailures: 1, RowsRejected: 0}, got.Stats)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, apperrors.ErrTypeCellCoercion, got.Warnings[0].Type)
	assert.Equal(t, 7, got.Warnings[0].Context["line"])
}

func TestParser_TotalSecondsAlwaysRecomputed(t *testing.T) {
	input := lines(`
Item,X
System Type,Human
Round,Min,Sec,Sec/100,Total_Seconds_Per_Round
1,2,3,40,999
2,,7,,0`)

	got, err := testParser().Parse(context.Background(), "x.csv", input)
	require.NoError(t, err)
	require.Len(t, got.Records, 2)

	for _, r := range got.Records {
		assert.Equal(t, domain.ComputeTotalSeconds(r.Min, r.Sec, r.Hundredths), r.TotalSeconds)
	}
	assert.InDelta(t, 123.4, got.Records[0].TotalSeconds, 1e-9)
	assert.Equal(t, 7.0, got.Records[1].TotalSeconds)
}

func TestParser_LegacyDefectsColumn(t *testing.T) {
	legacy := lines(`
Item,X
System Type,Human
Round,Min,Sec,Sec/100,Defects
1,0,1,0,4
2,0,1,0,5`)
	current := lines(`
Item,X
System Type,Human
Round,Min,Sec,Sec/100,Defects for Round
1,0,1,0,4
2,0,1,0,5`)

	p := testParser()
	fromLegacy, err := p.Parse(context.Background(), "legacy.csv", legacy)
	require.NoError(t, err)
	fromCurrent, err := p.Parse(context.Background(), "current.csv", current)
	require.NoError(t, err)

	require.Len(t, fromLegacy.Records, 2)
	for i := range fromLegacy.Records {
		assert.Equal(t, fromCurrent.Records[i].Defects, fromLegacy.Records[i].Defects)
	}
	assert.Equal(t, 5.0, fromLegacy.Records[1].Defects)
}

func TestParser_CurrentDefectsWinsOverLegacy(t *testing.T) {
	input := lines(`
Item,X
System Type,Human
Round,Defects,Defects for Round
1,9,2`)

	got, err := testParser().Parse(context.Background(), "both.csv", input)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 2.0, got.Records[0].Defects)
}

func TestParser_RowRejection(t *testing.T) {
	input := lines(`
Item,X
System Type,Human
Round,Min,Sec
1,0,5
Total,0,9
2.5,0,1
,0,3
1,0,6
2,0,7`)

	got, err := testParser().Parse(context.Background(), "rej.csv", input)
	require.NoError(t, err)

	rounds := make([]int, 0, len(got.Records))
	for _, r := range got.Records {
		rounds = append(rounds, r.Round)
	}
	assert.Equal(t, []int{1, 2}, rounds)
	assert.Equal(t, 4, got.Stats.RowsRejected, "text, fractional, blank and duplicate rounds")
	for _, w := range got.Warnings {
		assert.Equal(t, apperrors.ErrTypeRowRejected, w.Type)
	}
}

func TestParser_CaseInsensitiveQuotedHeader(t *testing.T) {
	input := lines(`
Item,"Widget, large"
System Type,AI
round, MIN ,sec,SEC/100,count 2
1,"1",2,3,"4"`)

	got, err := testParser().Parse(context.Background(), "q.csv", input)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)

	r := got.Records[0]
	assert.Equal(t, "Widget, large", r.Item)
	assert.InDelta(t, 62.03, r.TotalSeconds, 1e-9)
	assert.Nil(t, r.Counts[0])
	assert.Equal(t, ptr(4), r.Counts[1])
	assert.Empty(t, r.Notes)
}

func TestParser_FileLevelFailures(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType apperrors.ErrorType
		field    string
	}{
		{
			name:     "no round header",
			input:    "Item,X\nSystem Type,Y\nMin,Sec\n1,2",
			wantType: apperrors.ErrTypeMissingHeader,
		},
		{
			name:     "blank item name",
			input:    "Item, \nSystem Type,Y\nRound,Min\n1,2",
			wantType: apperrors.ErrTypeMissingScalarField,
			field:    "item_name",
		},
		{
			name:     "missing system type cell",
			input:    "Item,X\nSystem Type\nRound,Min\n1,2",
			wantType: apperrors.ErrTypeMissingScalarField,
			field:    "system_type",
		},
		{
			name:     "header on line 1",
			input:    "Item,X\nRound,Min\n1,2",
			wantType: apperrors.ErrTypeMissingScalarField,
			field:    "system_type",
		},
		{
			name:     "empty file",
			input:    "",
			wantType: apperrors.ErrTypeMissingHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testParser().Parse(context.Background(), "bad.csv", lines(tt.input))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "bad.csv", appErr.Context["source"])
			if tt.field != "" {
				assert.Equal(t, tt.field, appErr.Context["field"])
			}
		})
	}
}

func TestParser_NoDataRows(t *testing.T) {
	got, err := testParser().Parse(context.Background(), "empty.csv", lines("Item,X\nSystem Type,Y\nRound,Min\n\nNotes\nnothing ran"))
	require.NoError(t, err)
	assert.Empty(t, got.Records)
	assert.Equal(t, 0, got.Layout.DataRowCount)
}
