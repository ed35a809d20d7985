package predictor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"college-predictor/internal/config"
	"college-predictor/internal/metrics"
	"college-predictor/internal/models"
	"college-predictor/internal/services/store"
)

// fakeStore serves one essential and one full record set per exam.
type fakeStore struct {
	catalog *config.Catalog

	mu        sync.Mutex
	essential map[string][]models.CutoffRecord
	full      map[string][]models.CutoffRecord
	tiers     map[string]store.Tier
	fullLoads int
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	catalog, err := config.NewCatalog([]config.ExamConfig{
		{Name: "jee-main", Aliases: []string{"jee"}},
		{Name: "neet"},
		{Name: "cuet", ScoreBased: true},
	})
	require.NoError(t, err)
	return &fakeStore{
		catalog:   catalog,
		essential: make(map[string][]models.CutoffRecord),
		full:      make(map[string][]models.CutoffRecord),
		tiers:     make(map[string]store.Tier),
	}
}

func (f *fakeStore) Exam(name string) (config.ExamConfig, bool) {
	return f.catalog.Lookup(name)
}

func (f *fakeStore) LoadEssential(_ context.Context, exam string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tiers[exam] == "" {
		f.tiers[exam] = store.TierEssential
	}
	return nil
}

func (f *fakeStore) EnsureFull(_ context.Context, exam string) error {
	if _, ok := f.catalog.Lookup(exam); !ok {
		return fmt.Errorf("%w: %q", models.ErrUnknownExam, exam)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tiers[exam] != store.TierFull {
		f.fullLoads++
		f.tiers[exam] = store.TierFull
	}
	return nil
}

func (f *fakeStore) Records(exam string) ([]models.CutoffRecord, store.Tier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.tiers[exam] {
	case store.TierEssential:
		return f.essential[exam], store.TierEssential, nil
	case store.TierFull:
		all := append(append([]models.CutoffRecord(nil), f.essential[exam]...), f.full[exam]...)
		return all, store.TierFull, nil
	}
	return nil, store.TierUnloaded, nil
}

func (f *fakeStore) Status() []store.ExamStatus {
	return nil
}

func newTestService(st RecordStore, opts Options) *Service {
	opts.Logger = zap.NewNop()
	return NewService(st, opts)
}

func TestPredict_EmptyStoreReturnsEmptyList(t *testing.T) {
	svc := newTestService(newFakeStore(t), Options{AutoFullLoad: true})

	preds, err := svc.Predict(context.Background(), models.PredictionQuery{ExamType: "neet", Rank: 100})
	require.NoError(t, err)
	assert.NotNil(t, preds)
	assert.Empty(t, preds)
}

func TestPredict_QueryErrors(t *testing.T) {
	svc := newTestService(newFakeStore(t), Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		query   models.PredictionQuery
		wantErr error
	}{
		{"zero rank", models.PredictionQuery{ExamType: "neet"}, models.ErrInvalidRank},
		{"negative rank", models.PredictionQuery{ExamType: "neet", Rank: -1}, models.ErrInvalidRank},
		{"unknown exam", models.PredictionQuery{ExamType: "gate", Rank: 10}, models.ErrUnknownExam},
		{"missing exam", models.PredictionQuery{Rank: 10}, models.ErrMissingExam},
		{"negative tolerance", models.PredictionQuery{ExamType: "neet", Rank: 10, TolerancePercent: -5}, models.ErrInvalidTolerance},
		{"NaN tolerance", models.PredictionQuery{ExamType: "neet", Rank: 900000, TolerancePercent: math.NaN()}, models.ErrInvalidTolerance},
		{"negative limit", models.PredictionQuery{ExamType: "neet", Rank: 10, Limit: -5}, models.ErrInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Predict(ctx, tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, models.IsQueryError(err))
		})
	}
}

func TestPredict_WorkedExample(t *testing.T) {
	st := newFakeStore(t)
	st.essential["jee-main"] = []models.CutoffRecord{record("X", "CS", "General", 1, 100)}
	svc := newTestService(st, Options{})

	preds, err := svc.Predict(context.Background(), models.PredictionQuery{ExamType: "JEE", Rank: 50, Category: "General"})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.InDelta(t, 0.505, preds[0].ConfidenceScore, 0.001)
	assert.Equal(t, models.ConfidenceMedium, preds[0].ConfidenceLevel)
	assert.Equal(t, 50, preds[0].QueryRank)

	preds, err = svc.Predict(context.Background(), models.PredictionQuery{ExamType: "jee-main", Rank: 500})
	require.NoError(t, err)
	assert.Empty(t, preds, "500 exceeds the doubled closing rank of 200")
}

func TestPredict_QuotaCaseInsensitive(t *testing.T) {
	st := newFakeStore(t)
	home := record("NIT Warangal", "CS", "General", 0, 1000)
	home.Quota = models.QuotaHomeState
	open := record("NIT Trichy", "CS", "General", 0, 1000)
	open.Quota = models.QuotaAllIndia
	st.essential["jee-main"] = []models.CutoffRecord{home, open}
	svc := newTestService(st, Options{})

	report, err := svc.PredictDetailed(context.Background(), models.PredictionQuery{ExamType: "jee-main", Rank: 500, Quota: "all india"})
	require.NoError(t, err)
	assert.Equal(t, models.QuotaAllIndia, report.Query.Quota)
	assert.Equal(t, 2, report.StageCounts[string(models.StageStrict)])
}

func TestPredict_AutoFullLoadWhenStrictUnderfills(t *testing.T) {
	st := newFakeStore(t)
	st.essential["neet"] = []models.CutoffRecord{record("AIIMS", "MBBS", "General", 1, 50)}
	st.full["neet"] = []models.CutoffRecord{record("JIPMER", "MBBS", "General", 10, 300)}
	svc := newTestService(st, Options{AutoFullLoad: true})

	report, err := svc.PredictDetailed(context.Background(), models.PredictionQuery{ExamType: "neet", Rank: 40})
	require.NoError(t, err)

	assert.Equal(t, store.TierFull, report.Tier)
	assert.Equal(t, 1, st.fullLoads)
	assert.Equal(t, []string{"JIPMER", "AIIMS"}, institutions(report.Predictions), "High before Low")
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.StageCounts[string(models.StageStrict)])
}

func TestPredict_NoAutoFullLoad(t *testing.T) {
	st := newFakeStore(t)
	st.essential["neet"] = []models.CutoffRecord{record("AIIMS", "MBBS", "General", 1, 50)}
	st.full["neet"] = []models.CutoffRecord{record("JIPMER", "MBBS", "General", 10, 300)}
	svc := newTestService(st, Options{AutoFullLoad: false})

	report, err := svc.PredictDetailed(context.Background(), models.PredictionQuery{ExamType: "neet", Rank: 40})
	require.NoError(t, err)
	assert.Equal(t, store.TierEssential, report.Tier)
	assert.Equal(t, 0, st.fullLoads)
	assert.Len(t, report.Predictions, 1)
}

func TestPredict_ForceFullLoad(t *testing.T) {
	st := newFakeStore(t)
	st.full["neet"] = []models.CutoffRecord{record("JIPMER", "MBBS", "General", 10, 300)}
	svc := newTestService(st, Options{AutoFullLoad: false})

	preds, err := svc.Predict(context.Background(), models.PredictionQuery{ExamType: "neet", Rank: 40, ForceFullLoad: true})
	require.NoError(t, err)
	assert.Len(t, preds, 1)
	assert.Equal(t, 1, st.fullLoads)
}

func TestPredict_StrictFillSkipsFullLoad(t *testing.T) {
	st := newFakeStore(t)
	st.essential["neet"] = []models.CutoffRecord{
		record("A", "MBBS", "General", 0, 500),
		record("B", "MBBS", "General", 0, 600),
	}
	svc := newTestService(st, Options{AutoFullLoad: true})

	preds, err := svc.Predict(context.Background(), models.PredictionQuery{ExamType: "neet", Rank: 40, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, preds, 2)
	assert.Equal(t, 0, st.fullLoads)
}

func TestPredict_LimitDefaultsAndCap(t *testing.T) {
	st := newFakeStore(t)
	for i := 0; i < 40; i++ {
		st.essential["jee-main"] = append(st.essential["jee-main"],
			record(fmt.Sprintf("College %d", i), "CS", "General", 0, 1000+i))
	}
	svc := newTestService(st, Options{DefaultLimit: 10, MaxLimit: 25})
	ctx := context.Background()

	report, err := svc.PredictDetailed(ctx, models.PredictionQuery{ExamType: "jee-main", Rank: 100})
	require.NoError(t, err)
	assert.Len(t, report.Predictions, 10)
	assert.Equal(t, 10, report.Query.Limit)

	report, err = svc.PredictDetailed(ctx, models.PredictionQuery{ExamType: "jee-main", Rank: 100, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, report.Predictions, 25)
	assert.Equal(t, 25, report.Query.Limit)
}

func TestPredict_DeduplicatesAcrossTiers(t *testing.T) {
	st := newFakeStore(t)
	st.essential["jee-main"] = []models.CutoffRecord{record("NIT Trichy", "CS", "General", 0, 3000)}
	st.full["jee-main"] = []models.CutoffRecord{
		record("nit trichy", " cs", "General", 0, 2500),
		record("NIT Warangal", "CS", "General", 0, 3500),
	}
	svc := newTestService(st, Options{AutoFullLoad: true})

	preds, err := svc.Predict(context.Background(), models.PredictionQuery{ExamType: "jee-main", Rank: 2000})
	require.NoError(t, err)
	require.Len(t, preds, 2)

	keys := map[string]bool{}
	for _, p := range preds {
		keys[DedupKey(p.Institution, p.Program)] = true
	}
	assert.Len(t, keys, 2)
}

func TestPredict_ScoreBasedExam(t *testing.T) {
	st := newFakeStore(t)
	st.essential["cuet"] = []models.CutoffRecord{
		{Institution: "Hindu", Program: "BA", Category: "General", Quota: models.QuotaAllIndia, ScoreRange: &models.ScoreRange{Min: 90, Max: 99}},
	}
	svc := newTestService(st, Options{})

	preds, err := svc.Predict(context.Background(), models.PredictionQuery{ExamType: "cuet", Rank: 950})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.InDelta(t, 5.0/9.0, preds[0].ConfidenceScore, 1e-9)
}

func TestPredict_ConcurrentQueries(t *testing.T) {
	st := newFakeStore(t)
	st.essential["jee-main"] = []models.CutoffRecord{record("A", "CS", "General", 1, 100)}
	st.full["jee-main"] = []models.CutoffRecord{record("B", "CS", "General", 50, 900)}
	svc := newTestService(st, Options{AutoFullLoad: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			_, err := svc.Predict(context.Background(), models.PredictionQuery{ExamType: "jee-main", Rank: rank})
			assert.NoError(t, err)
		}(50 + i)
	}
	wg.Wait()

	assert.Equal(t, 1, st.fullLoads)
}

func TestPredict_CanceledContext(t *testing.T) {
	svc := newTestService(newFakeStore(t), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Predict(ctx, models.PredictionQuery{ExamType: "neet", Rank: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredict_RecordsMetrics(t *testing.T) {
	st := newFakeStore(t)
	st.essential["neet"] = []models.CutoffRecord{record("AIIMS", "MBBS", "General", 1, 50)}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics()
	require.NoError(t, m.Register(reg))
	svc := newTestService(st, Options{Metrics: m})
	ctx := context.Background()

	_, err := svc.Predict(ctx, models.PredictionQuery{ExamType: "neet", Rank: 10})
	require.NoError(t, err)
	_, err = svc.Predict(ctx, models.PredictionQuery{ExamType: "neet", Rank: 0})
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, metrics.MetricPredictionsTotal, "neet"))
	assert.Equal(t, 1.0, counterValue(t, reg, metrics.MetricPredictionErrorsTotal, "invalid_rank"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("no %s{%s} sample", name, label)
	return 0
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.Config{DefaultLimit: 20, MaxLimit: 40, CategoryThreshold: 0, AutoFullLoad: true})

	require.NotNil(t, opts.Rules)
	assert.Equal(t, 0, opts.Rules.CategoryThreshold, "a zero threshold is kept")
	assert.Equal(t, 20, opts.DefaultLimit)
	assert.Equal(t, 40, opts.MaxLimit)
	assert.True(t, opts.AutoFullLoad)
}
