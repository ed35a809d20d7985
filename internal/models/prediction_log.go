package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionLogEntry is one served prediction as recorded in the prediction log.
type PredictionLogEntry struct {
	ID          uuid.UUID      `json:"id"`
	ExamType    string         `json:"exam"`
	Rank        int            `json:"rank"`
	Category    string         `json:"category"`
	Quota       string         `json:"quota"`
	Gender      string         `json:"gender"`
	States      []string       `json:"states,omitempty"`
	Limit       int            `json:"limit"`
	Tier        string         `json:"tier"`
	ResultCount int            `json:"result_count"`
	StageCounts map[string]int `json:"stage_counts"`
	DurationMs  float64        `json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewPredictionLogEntry builds a log entry for a normalized query.
func NewPredictionLogEntry(q PredictionQuery, tier string, results int, stageCounts map[string]int, durationMs float64) PredictionLogEntry {
	return PredictionLogEntry{
		ID:          uuid.New(),
		ExamType:    q.ExamType,
		Rank:        q.Rank,
		Category:    q.Category,
		Quota:       q.Quota,
		Gender:      q.Gender,
		States:      q.States,
		Limit:       q.Limit,
		Tier:        tier,
		ResultCount: results,
		StageCounts: stageCounts,
		DurationMs:  durationMs,
		CreatedAt:   time.Now().UTC(),
	}
}

// ExamUsage aggregates the prediction log for one exam.
type ExamUsage struct {
	ExamType      string  `json:"exam"`
	Queries       int64   `json:"queries"`
	AvgResults    float64 `json:"avg_results"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	EmptyResults  int64   `json:"empty_results"`
}
