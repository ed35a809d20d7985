package predictor

import (
	"college-predictor/internal/models"
)

// Confidence level thresholds.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.5
)

// Score returns how comfortably rank sits inside the [opening, closing] window, in [0, 1].
// Ranks near the opening rank score close to 1; ranks near or past the closing rank
// score close to 0. A zero-width window scores 1.
func Score(rank, opening, closing int) float64 {
	if closing == opening {
		return 1.0
	}
	position := float64(closing-rank) / float64(closing-opening)
	return clamp01(position)
}

// ScoreInRange is the score-based counterpart of Score: higher scores inside
// [min, max] are more comfortable.
func ScoreInRange(score float64, sr models.ScoreRange) float64 {
	if sr.Max == sr.Min {
		return 1.0
	}
	return clamp01((score - sr.Min) / (sr.Max - sr.Min))
}

// LevelFor maps a confidence score to its discrete level.
func LevelFor(score float64) models.ConfidenceLevel {
	switch {
	case score >= HighThreshold:
		return models.ConfidenceHigh
	case score >= MediumThreshold:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// RecordConfidence scores one record for a query rank. An absent opening rank counts
// as 0.
func RecordConfidence(rec *models.CutoffRecord, rank int, scoreBased bool) float64 {
	if usesScore(rec, scoreBased) {
		return ScoreInRange(float64(rank)/10, *rec.ScoreRange)
	}
	return Score(rank, rec.Opening(), rec.ClosingRank)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
