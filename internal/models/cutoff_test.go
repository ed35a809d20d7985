package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCutoff_ValidRankRecord(t *testing.T) {
	raw := RawCutoff{
		"institution":  " IIT Bombay ",
		"program":      "Computer Science",
		"category":     "OBC-NCL",
		"openingRank":  json.Number("12"),
		"closingRank":  "1,250",
		"location":     "Mumbai, Maharashtra",
		"seat_gender":  "Female",
		"unused_field": true,
	}

	rec, err := ParseCutoff(raw, "jee-advanced")
	require.NoError(t, err)

	assert.Equal(t, "IIT Bombay", rec.Institution)
	assert.Equal(t, "Computer Science", rec.Program)
	assert.Equal(t, "jee-advanced", rec.ExamType)
	assert.Equal(t, CategoryOBC, rec.Category)
	assert.Equal(t, QuotaAllIndia, rec.Quota, "quota defaults to All India")
	assert.Equal(t, "Female", rec.Gender)
	require.True(t, rec.HasOpening())
	assert.Equal(t, 12, rec.Opening())
	assert.Equal(t, 1250, rec.ClosingRank)
	assert.Equal(t, "Maharashtra", rec.State())
	assert.Nil(t, rec.ScoreRange)
}

func TestParseCutoff_Aliases(t *testing.T) {
	raw := RawCutoff{
		"college": "NIT Trichy",
		"branch":  "ECE",
		"rank":    float64(4200),
	}

	rec, err := ParseCutoff(raw, "jee-main")
	require.NoError(t, err)

	assert.Equal(t, "NIT Trichy", rec.Institution)
	assert.Equal(t, "ECE", rec.Program)
	assert.Equal(t, 4200, rec.ClosingRank)
	assert.Equal(t, CategoryGeneral, rec.Category, "empty category defaults to General")
	assert.False(t, rec.HasOpening())
	assert.Equal(t, 0, rec.Opening())
}

func TestParseCutoff_ScoreRange(t *testing.T) {
	tests := []struct {
		name string
		raw  RawCutoff
	}{
		{"array", RawCutoff{"institution": "DU", "program": "BA", "scoreRange": []interface{}{json.Number("61.5"), 75.0}}},
		{"object", RawCutoff{"institution": "DU", "program": "BA", "score_range": map[string]interface{}{"min": 61.5, "max": "75"}}},
		{"columns", RawCutoff{"institution": "DU", "program": "BA", "min_score": "61.5", "max_score": "75"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseCutoff(tt.raw, "cuet")
			require.NoError(t, err)
			require.NotNil(t, rec.ScoreRange)
			assert.Equal(t, 61.5, rec.ScoreRange.Min)
			assert.Equal(t, 75.0, rec.ScoreRange.Max)
			assert.Equal(t, 615, rec.ReferenceRank())
		})
	}
}

func TestParseCutoff_InvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawCutoff
		wantErr error
	}{
		{"missing institution", RawCutoff{"program": "CS", "closingRank": 10}, ErrMissingInstitution},
		{"blank institution", RawCutoff{"institution": "  ", "program": "CS", "closingRank": 10}, ErrMissingInstitution},
		{"missing program", RawCutoff{"institution": "X", "closingRank": 10}, ErrMissingProgram},
		{"no cutoff", RawCutoff{"institution": "X", "program": "CS"}, ErrMissingCutoff},
		{"zero closing", RawCutoff{"institution": "X", "program": "CS", "closingRank": 0}, ErrMissingCutoff},
		{"negative closing", RawCutoff{"institution": "X", "program": "CS", "closingRank": -5}, ErrInvalidClosingRank},
		{"opening after closing", RawCutoff{"institution": "X", "program": "CS", "openingRank": 200, "closingRank": 100}, ErrOpeningAfterClose},
		{"negative opening", RawCutoff{"institution": "X", "program": "CS", "openingRank": -1, "closingRank": 100}, ErrInvalidOpeningRank},
		{"inverted score range", RawCutoff{"institution": "X", "program": "CS", "scoreRange": []interface{}{80.0, 70.0}}, ErrInvalidScoreRange},
		{"half score range", RawCutoff{"institution": "X", "program": "CS", "min_score": 70}, ErrInvalidScoreRange},
		{"bad score range shape", RawCutoff{"institution": "X", "program": "CS", "scoreRange": []interface{}{1.0}}, ErrInvalidScoreRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCutoff(tt.raw, "jee-main")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseCutoff_NonNumericRank(t *testing.T) {
	_, err := ParseCutoff(RawCutoff{"institution": "X", "program": "CS", "closingRank": "n/a"}, "jee-main")
	assert.Error(t, err)
}

func TestParseCutoff_FractionalRank(t *testing.T) {
	for _, raw := range []RawCutoff{
		{"institution": "X", "program": "CS", "closingRank": "100.9"},
		{"institution": "X", "program": "CS", "closingRank": 100.5},
		{"institution": "X", "program": "CS", "openingRank": 1.5, "closingRank": 100},
	} {
		_, err := ParseCutoff(raw, "jee-main")
		assert.Error(t, err, "%v", raw)
	}

	rec, err := ParseCutoff(RawCutoff{"institution": "X", "program": "CS", "closingRank": "1,200.0"}, "jee-main")
	assert.NoError(t, err)
	assert.Equal(t, 1200, rec.ClosingRank)
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]string{
		"":        CategoryGeneral,
		"gen":     CategoryGeneral,
		"OPEN":    CategoryGeneral,
		"Gen-EWS": CategoryEWS,
		"obc ncl": CategoryOBC,
		"sc":      CategorySC,
		"St":      CategoryST,
		" PwD ":   "PwD",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCategory(in), "input %q", in)
	}
}

func TestStateFromLocation(t *testing.T) {
	assert.Equal(t, "Tamil Nadu", StateFromLocation("Tiruchirappalli, Tamil Nadu"))
	assert.Equal(t, "Delhi", StateFromLocation(" Delhi "))
	assert.Equal(t, "", StateFromLocation(""))
	assert.Equal(t, "", StateFromLocation("Somewhere,"))
}

func TestNewPrediction_CopiesRecord(t *testing.T) {
	opening := 5
	rec := CutoffRecord{
		Institution: "X",
		Program:     "CS",
		OpeningRank: &opening,
		ClosingRank: 100,
		ScoreRange:  &ScoreRange{Min: 1, Max: 2},
		Location:    "Pune, Maharashtra",
	}

	p := NewPrediction(&rec, 50, 0.5, ConfidenceMedium, StageStrict)
	*p.OpeningRank = 99
	p.ScoreRange.Min = 42

	assert.Equal(t, 5, *rec.OpeningRank)
	assert.Equal(t, 1.0, rec.ScoreRange.Min)
	assert.Equal(t, "Maharashtra", p.State)
	assert.Equal(t, 50, p.QueryRank)
	assert.Equal(t, 100, p.ReferenceRank())
}

func TestConfidenceLevel_Ordinal(t *testing.T) {
	assert.Less(t, ConfidenceHigh.Ordinal(), ConfidenceMedium.Ordinal())
	assert.Less(t, ConfidenceMedium.Ordinal(), ConfidenceLow.Ordinal())
}
