// Package models defines the data structures for the college rank predictor.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Common category and quota values.
const (
	CategoryGeneral = "General"
	CategoryEWS     = "EWS"
	CategoryOBC     = "OBC"
	CategorySC      = "SC"
	CategoryST      = "ST"

	QuotaAllIndia  = "All India"
	QuotaHomeState = "Home State"

	GenderAll = "All"
)

// ScoreRange is the admitted score window of a score-based exam record.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CutoffRecord is one historical admission data point. Records are built once by
// ParseCutoff and never modified afterwards.
type CutoffRecord struct {
	Institution string      `json:"institution"`
	Program     string      `json:"program"`
	ExamType    string      `json:"exam_type"`
	Category    string      `json:"category"`
	Quota       string      `json:"quota"`
	Gender      string      `json:"gender,omitempty"`
	OpeningRank *int        `json:"opening_rank,omitempty"`
	ClosingRank int         `json:"closing_rank,omitempty"`
	Location    string      `json:"location,omitempty"`
	ScoreRange  *ScoreRange `json:"score_range,omitempty"`
}

// HasOpening reports whether the record carries an opening rank.
func (r *CutoffRecord) HasOpening() bool {
	return r.OpeningRank != nil
}

// Opening returns the opening rank, or 0 when absent.
func (r *CutoffRecord) Opening() int {
	if r.OpeningRank == nil {
		return 0
	}
	return *r.OpeningRank
}

// State returns the last comma-delimited token of the location.
func (r *CutoffRecord) State() string {
	return StateFromLocation(r.Location)
}

// ReferenceRank is the rank used for proximity and ordering. Rank-based records use
// their closing rank; score-only records use their minimum score scaled back to a rank.
func (r *CutoffRecord) ReferenceRank() int {
	if r.ClosingRank > 0 {
		return r.ClosingRank
	}
	if r.ScoreRange != nil {
		return int(math.Ceil(r.ScoreRange.Min * 10))
	}
	return 0
}

// StateFromLocation extracts the state/region token from free-text location.
func StateFromLocation(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	if idx := strings.LastIndex(location, ","); idx >= 0 {
		return strings.TrimSpace(location[idx+1:])
	}
	return location
}

// RawCutoff is a single untyped record as read from a source file.
type RawCutoff map[string]interface{}

// Field aliases accepted in source files, in lookup order.
var (
	institutionKeys = []string{"institution", "college", "institute", "college_name", "institute_name"}
	programKeys     = []string{"program", "branch", "course", "degree", "program_name"}
	closingKeys     = []string{"closingRank", "closing_rank", "closing", "rank"}
	openingKeys     = []string{"openingRank", "opening_rank", "opening"}
	categoryKeys    = []string{"category", "seat_type", "seatType"}
	quotaKeys       = []string{"quota"}
	genderKeys      = []string{"gender", "seat_gender"}
	locationKeys    = []string{"location", "state", "city"}
	scoreRangeKeys  = []string{"scoreRange", "score_range"}
	minScoreKeys    = []string{"min_score", "minScore", "score_min"}
	maxScoreKeys    = []string{"max_score", "maxScore", "score_max"}
)

// ParseCutoff converts a raw source record into a validated CutoffRecord.
func ParseCutoff(raw RawCutoff, examType string) (CutoffRecord, error) {
	rec := CutoffRecord{
		Institution: strings.TrimSpace(raw.str(institutionKeys)),
		Program:     strings.TrimSpace(raw.str(programKeys)),
		ExamType:    examType,
		Category:    NormalizeCategory(raw.str(categoryKeys)),
		Quota:       strings.TrimSpace(raw.str(quotaKeys)),
		Gender:      strings.TrimSpace(raw.str(genderKeys)),
		Location:    strings.TrimSpace(raw.str(locationKeys)),
	}
	if rec.Quota == "" {
		rec.Quota = QuotaAllIndia
	}

	if v, ok := raw.lookup(closingKeys); ok {
		closing, err := toInt(v)
		if err != nil {
			return CutoffRecord{}, fmt.Errorf("closing rank: %w", err)
		}
		rec.ClosingRank = closing
	}

	if v, ok := raw.lookup(openingKeys); ok {
		opening, err := toInt(v)
		if err != nil {
			return CutoffRecord{}, fmt.Errorf("opening rank: %w", err)
		}
		rec.OpeningRank = &opening
	}

	sr, err := raw.scoreRange()
	if err != nil {
		return CutoffRecord{}, err
	}
	rec.ScoreRange = sr

	if err := ValidateCutoff(&rec); err != nil {
		return CutoffRecord{}, err
	}
	return rec, nil
}

// ValidateCutoff checks the invariants every stored record must satisfy.
func ValidateCutoff(r *CutoffRecord) error {
	if r.Institution == "" {
		return ErrMissingInstitution
	}
	if r.Program == "" {
		return ErrMissingProgram
	}
	if r.ClosingRank < 0 {
		return ErrInvalidClosingRank
	}
	if r.ClosingRank == 0 && r.ScoreRange == nil {
		return ErrMissingCutoff
	}
	if r.OpeningRank != nil {
		if *r.OpeningRank < 0 {
			return ErrInvalidOpeningRank
		}
		if r.ClosingRank > 0 && *r.OpeningRank > r.ClosingRank {
			return ErrOpeningAfterClose
		}
	}
	if r.ScoreRange != nil {
		sr := r.ScoreRange
		if math.IsNaN(sr.Min) || math.IsNaN(sr.Max) || sr.Min < 0 || sr.Min > sr.Max {
			return ErrInvalidScoreRange
		}
	}
	return nil
}

// NormalizeCategory maps common spellings onto the canonical category names.
// Unknown categories are returned trimmed but otherwise untouched.
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	switch strings.ToUpper(strings.ReplaceAll(c, " ", "")) {
	case "":
		return CategoryGeneral
	case "GENERAL", "GEN", "OPEN", "UR", "GN":
		return CategoryGeneral
	case "EWS", "GEN-EWS", "GENEWS":
		return CategoryEWS
	case "OBC", "OBC-NCL", "OBCNCL":
		return CategoryOBC
	case "SC":
		return CategorySC
	case "ST":
		return CategoryST
	}
	return c
}

func (raw RawCutoff) lookup(keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func (raw RawCutoff) str(keys []string) string {
	v, ok := raw.lookup(keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func (raw RawCutoff) scoreRange() (*ScoreRange, error) {
	if v, ok := raw.lookup(scoreRangeKeys); ok {
		switch t := v.(type) {
		case []interface{}:
			if len(t) != 2 {
				return nil, ErrInvalidScoreRange
			}
			return newScoreRange(t[0], t[1])
		case []float64:
			if len(t) != 2 {
				return nil, ErrInvalidScoreRange
			}
			return &ScoreRange{Min: t[0], Max: t[1]}, nil
		case map[string]interface{}:
			return newScoreRange(t["min"], t["max"])
		case *ScoreRange:
			return t, nil
		default:
			return nil, ErrInvalidScoreRange
		}
	}

	minV, hasMin := raw.lookup(minScoreKeys)
	maxV, hasMax := raw.lookup(maxScoreKeys)
	if !hasMin && !hasMax {
		return nil, nil
	}
	if !hasMin || !hasMax {
		return nil, ErrInvalidScoreRange
	}
	return newScoreRange(minV, maxV)
}

func newScoreRange(minV, maxV interface{}) (*ScoreRange, error) {
	lo, err := toFloat(minV)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScoreRange, err)
	}
	hi, err := toFloat(maxV)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScoreRange, err)
	}
	return &ScoreRange{Min: lo, Max: hi}, nil
}

// toFloat coerces JSON, CSV and SQLite numeric representations.
func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case []byte:
		return parseNumber(string(t))
	case string:
		return parseNumber(t)
	case nil:
		return 0, errors.New("empty value")
	}
	return 0, fmt.Errorf("unsupported numeric type %T", v)
}

func toInt(v interface{}) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	return int(f), nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(s, 64)
}
