// Package predictor implements the rank eligibility and ranking engine: the eligibility
// predicate, the confidence scorer, the staged relaxation pipeline and the
// deduplicating ranker, behind the Service facade.
package predictor

import (
	"strings"

	"college-predictor/internal/models"
)

// DefaultCategoryThreshold is the rank above which the category hierarchy applies.
const DefaultCategoryThreshold = 10000

// categoryHierarchy orders categories from most to least permissive target.
var categoryHierarchy = map[string]int{
	"general": 0,
	"ews":     1,
	"obc":     2,
	"sc":      3,
	"st":      4,
}

// Constraints selects which parts of the predicate a relaxation stage enforces.
type Constraints struct {
	Quota    bool
	Category bool
	Gender   bool
	States   bool
}

var (
	strictConstraints          = Constraints{Quota: true, Category: true, Gender: true, States: true}
	categoryRelaxedConstraints = Constraints{States: true}
	unrestrictedConstraints    = Constraints{}
)

// Rules holds the tunable parameters of the predicate.
type Rules struct {
	CategoryThreshold int
}

// DefaultRules returns the rules with the standard category threshold.
func DefaultRules() Rules {
	return Rules{CategoryThreshold: DefaultCategoryThreshold}
}

// IsEligible applies the full (strict) predicate to one record.
func (r Rules) IsEligible(rec *models.CutoffRecord, q *models.PredictionQuery, scoreBased bool) bool {
	return r.check(rec, q, q.StateSet(), scoreBased, strictConstraints)
}

// check applies the constraints selected by c plus the rank check, which is always on.
func (r Rules) check(rec *models.CutoffRecord, q *models.PredictionQuery, states map[string]struct{}, scoreBased bool, c Constraints) bool {
	if c.Quota && !QuotaAllowed(q.Quota, rec.Quota) {
		return false
	}
	if c.Category && !CategoryAllowed(q.Category, rec.Category, q.Rank, r.CategoryThreshold) {
		return false
	}
	if c.Gender && !GenderAllowed(q.Gender, rec.Gender) {
		return false
	}
	if c.States && states != nil {
		if _, ok := states[strings.ToLower(rec.State())]; !ok {
			return false
		}
	}
	return RankEligible(rec, q.Rank, q.TolerancePercent, scoreBased)
}

// QuotaAllowed requires an exact quota match unless the query asks for All India.
func QuotaAllowed(queryQuota, recordQuota string) bool {
	if queryQuota == models.QuotaAllIndia {
		return true
	}
	return queryQuota == recordQuota
}

// CategoryAllowed decides whether a candidate of queryCategory may take a seat listed
// under recordCategory. Ranks at or below threshold accept any category. Above it, the
// record's category must be at least as permissive as the query's in the order
// General < EWS < OBC < SC < ST; categories outside that order must match exactly.
func CategoryAllowed(queryCategory, recordCategory string, rank, threshold int) bool {
	if rank <= threshold {
		return true
	}
	qi, qok := categoryHierarchy[strings.ToLower(strings.TrimSpace(queryCategory))]
	ri, rok := categoryHierarchy[strings.ToLower(strings.TrimSpace(recordCategory))]
	if qok && rok {
		return ri <= qi
	}
	return strings.EqualFold(strings.TrimSpace(queryCategory), strings.TrimSpace(recordCategory))
}

// GenderAllowed requires equality only when both sides are specific.
func GenderAllowed(queryGender, recordGender string) bool {
	if recordGender == "" || strings.EqualFold(queryGender, models.GenderAll) {
		return true
	}
	return strings.EqualFold(queryGender, recordGender)
}

// RankEligible is the rank (or score) window check.
//
// Score checks apply to score-based exams and to records that only carry a score range;
// the query rank is read as rank/10. Rank checks widen the closing rank by the tolerance
// and double it again for records whose opening rank is 1.
//
// TODO(predictor): the opening rank 1 doubling surfaces top-tier institutions for much
// weaker ranks; confirm with the data owners whether that is intended.
func RankEligible(rec *models.CutoffRecord, rank int, tolerancePercent float64, scoreBased bool) bool {
	if usesScore(rec, scoreBased) {
		score := float64(rank) / 10
		return rec.ScoreRange.Min <= score && score <= rec.ScoreRange.Max
	}
	if rec.ClosingRank <= 0 {
		return false
	}

	effectiveClosing := float64(rec.ClosingRank) * (1 + tolerancePercent/100)
	elite := rec.HasOpening() && rec.Opening() == 1
	if elite {
		effectiveClosing *= 2
	}
	if float64(rank) > effectiveClosing {
		return false
	}
	if rec.HasOpening() && !elite && rank < rec.Opening() {
		return false
	}
	return true
}

func usesScore(rec *models.CutoffRecord, scoreBased bool) bool {
	if rec.ScoreRange == nil {
		return false
	}
	return scoreBased || rec.ClosingRank <= 0
}
