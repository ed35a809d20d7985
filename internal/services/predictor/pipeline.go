package predictor

import (
	"sort"

	"college-predictor/internal/models"
)

// Stage is one pass of the relaxation pipeline.
type Stage struct {
	Name        models.StageName
	Constraints Constraints
	// ByProximity orders candidates by |reference rank - query rank|; otherwise store order.
	ByProximity bool
}

// Stages returns the relaxation stages in the order they run:
// Strict, then CategoryRelaxed, then Unrestricted.
func Stages() []Stage {
	return []Stage{
		{Name: models.StageStrict, Constraints: strictConstraints, ByProximity: true},
		{Name: models.StageCategoryRelaxed, Constraints: categoryRelaxedConstraints, ByProximity: true},
		{Name: models.StageUnrestricted, Constraints: unrestrictedConstraints, ByProximity: false},
	}
}

// PipelineResult is the accumulated, deduplicated output of the pipeline in emission
// order, before final ranking.
type PipelineResult struct {
	Predictions []models.Prediction
	StageCounts map[models.StageName]int
}

// StrictCount is the number of predictions accepted by the strict stage.
func (r *PipelineResult) StrictCount() int {
	return r.StageCounts[models.StageStrict]
}

// Pipeline runs the staged relaxation over a record snapshot.
type Pipeline struct {
	Rules  Rules
	Stages []Stage
}

// NewPipeline creates a pipeline with the standard stages.
func NewPipeline(rules Rules) *Pipeline {
	return &Pipeline{Rules: rules, Stages: Stages()}
}

// Run executes the stages in order. Each stage only appends predictions whose
// (institution, program) key has not been seen, stops as soon as limit is reached, and
// the next stage starts only when the accumulated count is still below limit.
func (p *Pipeline) Run(records []models.CutoffRecord, q *models.PredictionQuery, scoreBased bool) PipelineResult {
	result := PipelineResult{
		Predictions: make([]models.Prediction, 0, max(0, min(q.Limit, len(records)))),
		StageCounts: make(map[models.StageName]int, len(p.Stages)),
	}
	if q.Limit <= 0 || len(records) == 0 {
		return result
	}

	seen := newDeduper()
	states := q.StateSet()

	for _, stage := range p.Stages {
		if len(result.Predictions) >= q.Limit {
			break
		}
		candidates := p.candidates(records, q, states, scoreBased, stage)

		accepted := 0
		for _, idx := range candidates {
			if len(result.Predictions) >= q.Limit {
				break
			}
			rec := &records[idx]
			if !seen.add(rec.Institution, rec.Program) {
				continue
			}
			score := RecordConfidence(rec, q.Rank, scoreBased)
			result.Predictions = append(result.Predictions,
				models.NewPrediction(rec, q.Rank, score, LevelFor(score), stage.Name))
			accepted++
		}
		result.StageCounts[stage.Name] = accepted
	}
	return result
}

// candidates returns the indexes of records passing the stage's constraints, in the
// stage's order.
func (p *Pipeline) candidates(records []models.CutoffRecord, q *models.PredictionQuery, states map[string]struct{}, scoreBased bool, stage Stage) []int {
	var out []int
	for i := range records {
		if p.Rules.check(&records[i], q, states, scoreBased, stage.Constraints) {
			out = append(out, i)
		}
	}
	if stage.ByProximity {
		sort.SliceStable(out, func(a, b int) bool {
			return distance(&records[out[a]], q.Rank) < distance(&records[out[b]], q.Rank)
		})
	}
	return out
}

func distance(rec *models.CutoffRecord, rank int) int {
	d := rec.ReferenceRank() - rank
	if d < 0 {
		return -d
	}
	return d
}
