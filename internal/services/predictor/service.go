package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"college-predictor/internal/config"
	"college-predictor/internal/metrics"
	"college-predictor/internal/models"
	"college-predictor/internal/services/store"
	"college-predictor/internal/utils"
)

// RecordStore is the subset of *store.Store the service needs.
type RecordStore interface {
	Exam(name string) (config.ExamConfig, bool)
	LoadEssential(ctx context.Context, exam string) error
	EnsureFull(ctx context.Context, exam string) error
	Records(exam string) ([]models.CutoffRecord, store.Tier, error)
	Status() []store.ExamStatus
}

// Options configures a Service.
type Options struct {
	Rules        *Rules // nil means DefaultRules
	DefaultLimit int
	MaxLimit     int
	// AutoFullLoad loads the full tier when the strict stage under-fills the limit.
	AutoFullLoad bool
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// OptionsFromConfig maps application configuration onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Rules:        &Rules{CategoryThreshold: cfg.CategoryThreshold},
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		AutoFullLoad: cfg.AutoFullLoad,
	}
}

// Service is the prediction facade. It is safe for concurrent use.
type Service struct {
	store        RecordStore
	pipeline     *Pipeline
	defaultLimit int
	maxLimit     int
	autoFull     bool
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// Report is a prediction result together with how it was produced.
type Report struct {
	Query       models.PredictionQuery `json:"query"`
	Predictions []models.Prediction    `json:"predictions"`
	StageCounts map[string]int         `json:"stage_counts"`
	Tier        store.Tier             `json:"tier"`
	Candidates  int                    `json:"records_scanned"`
	Duration    time.Duration          `json:"-"`
	DurationMs  float64                `json:"duration_ms"`
}

// NewService creates a prediction service over st.
func NewService(st RecordStore, opts Options) *Service {
	rules := DefaultRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = models.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = models.DefaultMaxLimit
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	return &Service{
		store:        st,
		pipeline:     NewPipeline(rules),
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		autoFull:     opts.AutoFullLoad,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
}

// Predict returns the ranked, deduplicated predictions for q. Query errors are the only
// failures; an exam without records yields an empty slice.
func (s *Service) Predict(ctx context.Context, q models.PredictionQuery) ([]models.Prediction, error) {
	report, err := s.PredictDetailed(ctx, q)
	if err != nil {
		return nil, err
	}
	return report.Predictions, nil
}

// PredictDetailed is Predict plus per-stage counts and the tier that served the query.
func (s *Service) PredictDetailed(ctx context.Context, q models.PredictionQuery) (*Report, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.Normalize(s.defaultLimit, s.maxLimit)
	if err := q.Validate(); err != nil {
		s.metrics.ObserveError(errorReason(err))
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	exam, ok := s.store.Exam(q.ExamType)
	if !ok {
		s.metrics.ObserveError(errorReason(models.ErrUnknownExam))
		return nil, fmt.Errorf("invalid query: %w: %q", models.ErrUnknownExam, q.ExamType)
	}
	q.ExamType = exam.Name

	if q.ForceFullLoad {
		if err := s.store.EnsureFull(ctx, exam.Name); err != nil {
			return nil, err
		}
	} else if err := s.store.LoadEssential(ctx, exam.Name); err != nil {
		return nil, err
	}

	records, tier, err := s.store.Records(exam.Name)
	if err != nil {
		return nil, err
	}
	result := s.pipeline.Run(records, &q, exam.ScoreBased)

	if s.autoFull && tier != store.TierFull && result.StrictCount() < q.Limit {
		if err := s.store.EnsureFull(ctx, exam.Name); err != nil {
			return nil, err
		}
		records, tier, err = s.store.Records(exam.Name)
		if err != nil {
			return nil, err
		}
		result = s.pipeline.Run(records, &q, exam.ScoreBased)
	}

	predictions := Rank(result.Predictions, q.Limit)

	report := &Report{
		Query:       q,
		Predictions: predictions,
		StageCounts: make(map[string]int, len(result.StageCounts)),
		Tier:        tier,
		Candidates:  len(records),
	}
	for stage, n := range result.StageCounts {
		report.StageCounts[string(stage)] = n
		s.metrics.ObserveStage(string(stage), n)
	}
	report.Duration = time.Since(start)
	report.DurationMs = float64(report.Duration.Microseconds()) / 1000

	s.metrics.ObservePrediction(exam.Name, len(predictions), report.Duration)
	s.logger.Debug("Prediction served",
		zap.String("exam", exam.Name),
		zap.Int("rank", q.Rank),
		zap.String("category", q.Category),
		zap.String("tier", string(tier)),
		zap.Int("results", len(predictions)),
		zap.Any("stage_counts", report.StageCounts),
		zap.Duration("elapsed", report.Duration),
	)

	return report, nil
}

// EnsureFull loads the full tier of exam.
func (s *Service) EnsureFull(ctx context.Context, exam string) error {
	return s.store.EnsureFull(ctx, exam)
}

// Status returns the per-exam load tier and record counts.
func (s *Service) Status() []store.ExamStatus {
	return s.store.Status()
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidRank):
		return "invalid_rank"
	case errors.Is(err, models.ErrUnknownExam):
		return "unknown_exam"
	case errors.Is(err, models.ErrMissingExam):
		return "missing_exam"
	case errors.Is(err, models.ErrInvalidTolerance):
		return "invalid_tolerance"
	case errors.Is(err, models.ErrInvalidLimit):
		return "invalid_limit"
	}
	return "other"
}
