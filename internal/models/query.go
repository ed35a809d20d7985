// Package models defines the data structures for the college rank predictor.
package models

import (
	"math"
	"strings"
)

// Default query values.
const (
	DefaultLimit    = 300
	DefaultMaxLimit = 1000
)

// PredictionQuery is one user request for eligible institutions.
type PredictionQuery struct {
	ExamType         string   `json:"exam"`
	Rank             int      `json:"rank"`
	Category         string   `json:"category,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	Quota            string   `json:"quota,omitempty"`
	TolerancePercent float64  `json:"tolerance_percent,omitempty"`
	States           []string `json:"states,omitempty"`
	Limit            int      `json:"limit,omitempty"`
	ForceFullLoad    bool     `json:"force_full_load,omitempty"`
}

// Normalize fills in defaults. A zero limit becomes defaultLimit and any limit above
// maxLimit is capped.
func (q *PredictionQuery) Normalize(defaultLimit, maxLimit int) {
	q.ExamType = strings.TrimSpace(q.ExamType)

	q.Category = NormalizeCategory(q.Category)

	q.Gender = strings.TrimSpace(q.Gender)
	if q.Gender == "" || strings.EqualFold(q.Gender, GenderAll) {
		q.Gender = GenderAll
	}

	q.Quota = strings.TrimSpace(q.Quota)
	if q.Quota == "" || strings.EqualFold(q.Quota, QuotaAllIndia) {
		q.Quota = QuotaAllIndia
	}

	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	states := q.States[:0:0]
	for _, s := range q.States {
		if s = strings.TrimSpace(s); s != "" {
			states = append(states, s)
		}
	}
	q.States = states
}

// Validate checks the query for errors the caller must fix.
func (q *PredictionQuery) Validate() error {
	if strings.TrimSpace(q.ExamType) == "" {
		return ErrMissingExam
	}
	if q.Rank <= 0 {
		return ErrInvalidRank
	}
	if t := q.TolerancePercent; math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return ErrInvalidTolerance
	}
	if q.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// StateSet returns the lower-cased state filter, or nil when no filter applies.
func (q *PredictionQuery) StateSet() map[string]struct{} {
	if len(q.States) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(q.States))
	for _, s := range q.States {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return set
}
