// Package models defines the data structures for the college rank predictor.
package models

// ConfidenceLevel is the discrete bucket of a confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// Ordinal returns the sort position of the level (High first).
func (l ConfidenceLevel) Ordinal() int {
	switch l {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// StageName identifies the relaxation stage that accepted a prediction.
type StageName string

const (
	StageStrict          StageName = "strict"
	StageCategoryRelaxed StageName = "category_relaxed"
	StageUnrestricted    StageName = "unrestricted"
)

// Prediction is one output row of a prediction query.
type Prediction struct {
	Institution     string          `json:"institution"`
	Program         string          `json:"program"`
	ExamType        string          `json:"exam_type"`
	Category        string          `json:"category"`
	Quota           string          `json:"quota"`
	Gender          string          `json:"gender,omitempty"`
	OpeningRank     *int            `json:"opening_rank,omitempty"`
	ClosingRank     int             `json:"closing_rank,omitempty"`
	Location        string          `json:"location,omitempty"`
	State           string          `json:"state,omitempty"`
	ScoreRange      *ScoreRange     `json:"score_range,omitempty"`
	QueryRank       int             `json:"query_rank"`
	ConfidenceScore float64         `json:"confidence_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Stage           StageName       `json:"stage"`
}

// NewPrediction builds the output view of a record for the given query rank.
func NewPrediction(r *CutoffRecord, rank int, score float64, level ConfidenceLevel, stage StageName) Prediction {
	// Copies keep the stored record immutable.
	var opening *int
	if r.OpeningRank != nil {
		v := *r.OpeningRank
		opening = &v
	}
	var sr *ScoreRange
	if r.ScoreRange != nil {
		v := *r.ScoreRange
		sr = &v
	}

	return Prediction{
		Institution:     r.Institution,
		Program:         r.Program,
		ExamType:        r.ExamType,
		Category:        r.Category,
		Quota:           r.Quota,
		Gender:          r.Gender,
		OpeningRank:     opening,
		ClosingRank:     r.ClosingRank,
		Location:        r.Location,
		State:           r.State(),
		ScoreRange:      sr,
		QueryRank:       rank,
		ConfidenceScore: score,
		ConfidenceLevel: level,
		Stage:           stage,
	}
}

// ReferenceRank mirrors CutoffRecord.ReferenceRank for output rows.
func (p *Prediction) ReferenceRank() int {
	if p.ClosingRank > 0 {
		return p.ClosingRank
	}
	if p.ScoreRange != nil {
		r := CutoffRecord{ScoreRange: p.ScoreRange}
		return r.ReferenceRank()
	}
	return 0
}
