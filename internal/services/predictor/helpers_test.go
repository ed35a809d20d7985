package predictor

import (
	"college-predictor/internal/models"
)

func intPtr(v int) *int { return &v }

// record builds a rank-based cutoff record. opening <= 0 means absent.
func record(institution, program, category string, opening, closing int) models.CutoffRecord {
	r := models.CutoffRecord{
		Institution: institution,
		Program:     program,
		ExamType:    "jee-main",
		Category:    category,
		Quota:       models.QuotaAllIndia,
		ClosingRank: closing,
	}
	if opening > 0 {
		r.OpeningRank = intPtr(opening)
	}
	return r
}

func query(rank int) *models.PredictionQuery {
	q := &models.PredictionQuery{ExamType: "jee-main", Rank: rank}
	q.Normalize(0, 0)
	return q
}
