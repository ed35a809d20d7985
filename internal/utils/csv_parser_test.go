package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"college-predictor/internal/models"
)

func TestCSVParser_ValidFile(t *testing.T) {
	csvContent := `institution,program,category,quota,opening_rank,closing_rank,location
IIT Madras,Computer Science,General,All India,1,150,"Chennai, Tamil Nadu"
NIT Trichy,Mechanical,OBC-NCL,Home State,2000,"5,400","Tiruchirappalli, Tamil Nadu"`

	parser := NewCSVParser()
	records, errs := parser.ParseCutoffs(strings.NewReader(csvContent), "jee-main")

	require.Empty(t, errs, "Expected no parse errors")
	require.Len(t, records, 2, "Expected 2 records")

	assert.Equal(t, "IIT Madras", records[0].Institution)
	assert.Equal(t, 1, records[0].Opening())
	assert.Equal(t, 150, records[0].ClosingRank)
	assert.Equal(t, "Tamil Nadu", records[0].State())
	assert.Equal(t, "jee-main", records[0].ExamType)

	assert.Equal(t, models.CategoryOBC, records[1].Category)
	assert.Equal(t, models.QuotaHomeState, records[1].Quota)
	assert.Equal(t, 5400, records[1].ClosingRank)
}

func TestCSVParser_ColumnAliases(t *testing.T) {
	csvContent := "\ufeffCollege Name,Branch,Seat Type,Closing Rank,State\n" +
		"AIIMS Delhi,MBBS,UR,57,Delhi"

	parser := NewCSVParser()
	records, errs := parser.ParseCutoffs(strings.NewReader(csvContent), "neet")

	require.Empty(t, errs, "Expected no parse errors")
	require.Len(t, records, 1, "Expected 1 record")

	assert.Equal(t, "AIIMS Delhi", records[0].Institution)
	assert.Equal(t, "MBBS", records[0].Program)
	assert.Equal(t, models.CategoryGeneral, records[0].Category)
	assert.Equal(t, 57, records[0].ClosingRank)
	assert.Equal(t, "Delhi", records[0].State())
}

func TestCSVParser_ScoreColumns(t *testing.T) {
	csvContent := `institution,program,min_score,max_score
Hindu College,BA Economics,97.5,99.25`

	records, errs := NewCSVParser().ParseCutoffs(strings.NewReader(csvContent), "cuet")

	require.Empty(t, errs)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ScoreRange)
	assert.Equal(t, 97.5, records[0].ScoreRange.Min)
	assert.Equal(t, 99.25, records[0].ScoreRange.Max)
}

func TestCSVParser_InvalidRowsSkipped(t *testing.T) {
	csvContent := `institution,program,opening_rank,closing_rank
Good College,CS,10,100
,CS,10,100
Bad Window,CS,500,100
Another Good,EE,,800`

	records, errs := NewCSVParser().ParseCutoffs(strings.NewReader(csvContent), "jee-main")

	require.Len(t, records, 2)
	assert.Equal(t, "Good College", records[0].Institution)
	assert.Equal(t, "Another Good", records[1].Institution)
	assert.False(t, records[1].HasOpening(), "empty cell reads as absent")

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "line 3")
	assert.ErrorIs(t, errs[1], models.ErrOpeningAfterClose)
}

func TestCSVParser_MissingRequiredColumns(t *testing.T) {
	csvContent := `institution,opening_rank
IIT Delhi,1`

	records, errs := NewCSVParser().ParseCutoffs(strings.NewReader(csvContent), "jee-main")

	assert.Empty(t, records, "Expected no valid records")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMissingColumns)
	assert.Contains(t, errs[0].Error(), "program")
	assert.Contains(t, errs[0].Error(), "closing_rank")
}

func TestCSVParser_EmptyFile(t *testing.T) {
	records, errs := NewCSVParser().ParseCutoffs(strings.NewReader(""), "jee-main")

	assert.Empty(t, records, "Expected no records")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrEmptyCSV)
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	records, errs := NewCSVParser().ParseCutoffs(strings.NewReader("institution,program,closing_rank"), "jee-main")

	assert.Empty(t, records)
	assert.Empty(t, errs, "no data rows is not an error")
}

func TestCSVParser_AllRowsInvalid(t *testing.T) {
	csvContent := `institution,program,closing_rank
X,,100
Y,CS,-1`

	records, errs := NewCSVParser().ParseCutoffs(strings.NewReader(csvContent), "jee-main")

	assert.Empty(t, records)
	require.Len(t, errs, 3)
	assert.ErrorIs(t, errs[0], ErrNoDataRows)
}

func TestValidateCSVStructure(t *testing.T) {
	result, err := ValidateCSVStructure("college,branch,rank\nA,B,1\nC,D,2\n")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.RowCount)
	assert.Empty(t, result.MissingColumns)

	result, err = ValidateCSVStructure("college,rank\nA,1\n")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"program"}, result.MissingColumns)

	result, err = ValidateCSVStructure("   ")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "empty file")
}
