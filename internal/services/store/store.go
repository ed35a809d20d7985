// Package store holds the per-exam collections of cutoff records and loads them in two
// tiers: a small essential tier at startup and a larger full tier on first demand.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"college-predictor/internal/config"
	"college-predictor/internal/metrics"
	"college-predictor/internal/models"
	"college-predictor/internal/utils"
)

// Tier is the load state of one exam.
type Tier string

const (
	TierUnloaded  Tier = "unloaded"
	TierEssential Tier = "essential"
	TierFull      Tier = "full"
)

// ExamStatus is the introspection view of one exam's records.
type ExamStatus struct {
	Exam           string `json:"exam"`
	Tier           Tier   `json:"tier"`
	Records        int    `json:"records"`
	FilesLoaded    int    `json:"files_loaded"`
	FilesFailed    int    `json:"files_failed"`
	RecordsDropped int    `json:"records_dropped"`
}

// Options configures a Store.
type Options struct {
	Opener      Opener
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Concurrency int // files parsed in parallel within one tier
}

// Store holds the cutoff records of every configured exam.
//
// Readers take an immutable snapshot without locking. Loading builds a new snapshot
// from the old records plus the newly parsed ones and publishes it atomically, under a
// per-exam mutex so each tier is loaded exactly once.
type Store struct {
	catalog     *config.Catalog
	opener      Opener
	logger      *zap.Logger
	metrics     *metrics.Metrics
	concurrency int
	exams       map[string]*examState
}

type examState struct {
	cfg  config.ExamConfig
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// snapshot is never modified once published.
type snapshot struct {
	tier        Tier
	records     []models.CutoffRecord
	filesLoaded int
	filesFailed int
	dropped     int
}

// New creates an empty store for every exam in the catalog.
func New(catalog *config.Catalog, opts Options) *Store {
	if opts.Opener == nil {
		opts.Opener = LocalOpener{}
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	s := &Store{
		catalog:     catalog,
		opener:      opts.Opener,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
		exams:       make(map[string]*examState, catalog.Len()),
	}
	for _, name := range catalog.Names() {
		cfg, _ := catalog.Lookup(name)
		st := &examState{cfg: cfg}
		st.snap.Store(&snapshot{tier: TierUnloaded})
		s.exams[name] = st
	}
	return s
}

// Exam resolves an exam name or alias to its configuration.
func (s *Store) Exam(name string) (config.ExamConfig, bool) {
	return s.catalog.Lookup(name)
}

func (s *Store) state(exam string) (*examState, error) {
	cfg, ok := s.catalog.Lookup(exam)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownExam, exam)
	}
	return s.exams[cfg.Name], nil
}

// LoadEssential loads the essential tier of exam. It is a no-op once any tier is loaded.
func (s *Store) LoadEssential(ctx context.Context, exam string) error {
	st, err := s.state(exam)
	if err != nil {
		return err
	}
	if st.snap.Load().tier != TierUnloaded {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.snap.Load().tier != TierUnloaded {
		return nil
	}
	s.loadTier(ctx, st, TierEssential, st.cfg.Essential)
	return nil
}

// LoadAllEssential loads the essential tier of every configured exam.
func (s *Store) LoadAllEssential(ctx context.Context) {
	for _, name := range s.catalog.Names() {
		_ = s.LoadEssential(ctx, name)
	}
}

// EnsureFull loads the full tier of exam the first time it is called. Concurrent callers
// block until the single load completes; later calls return immediately.
func (s *Store) EnsureFull(ctx context.Context, exam string) error {
	st, err := s.state(exam)
	if err != nil {
		return err
	}
	if st.snap.Load().tier == TierFull {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.snap.Load().tier == TierFull {
		return nil
	}
	if st.snap.Load().tier == TierUnloaded {
		s.loadTier(ctx, st, TierEssential, st.cfg.Essential)
	}
	s.loadTier(ctx, st, TierFull, st.cfg.Full)
	return nil
}

// Records returns the current read-only snapshot of exam's records and its tier.
// Callers must not modify the returned slice.
func (s *Store) Records(exam string) ([]models.CutoffRecord, Tier, error) {
	st, err := s.state(exam)
	if err != nil {
		return nil, TierUnloaded, err
	}
	snap := st.snap.Load()
	return snap.records, snap.tier, nil
}

// Status returns the load status of every exam, sorted by exam name.
func (s *Store) Status() []ExamStatus {
	names := s.catalog.Names()
	out := make([]ExamStatus, 0, len(names))
	for _, name := range names {
		snap := s.exams[name].snap.Load()
		out = append(out, ExamStatus{
			Exam:           name,
			Tier:           snap.tier,
			Records:        len(snap.records),
			FilesLoaded:    snap.filesLoaded,
			FilesFailed:    snap.filesFailed,
			RecordsDropped: snap.dropped,
		})
	}
	return out
}

// loadTier parses the tier's files concurrently and appends their records in configured
// order. Must be called with st.mu held. Files that fail are logged and skipped.
func (s *Store) loadTier(ctx context.Context, st *examState, tier Tier, files []string) {
	start := time.Now()
	results := make([]parseResult, len(files))

	// A tier is loaded once, so a canceled caller must not leave it half-read.
	ctx = context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = parseSource(gctx, s.opener, file, st.cfg.Name)
			return nil
		})
	}
	_ = g.Wait()

	prev := st.snap.Load()
	next := &snapshot{
		tier:        tier,
		filesLoaded: prev.filesLoaded,
		filesFailed: prev.filesFailed,
		dropped:     prev.dropped,
	}

	added := 0
	for _, r := range results {
		added += len(r.records)
	}
	next.records = make([]models.CutoffRecord, 0, len(prev.records)+added)
	next.records = append(next.records, prev.records...)

	for i, r := range results {
		if r.err != nil {
			next.filesFailed++
			s.logger.Warn("Skipping cutoff source",
				zap.String("exam", st.cfg.Name),
				zap.String("tier", string(tier)),
				zap.String("file", files[i]),
				zap.Error(r.err),
			)
			continue
		}
		next.filesLoaded++
		next.dropped += r.dropped
		next.records = append(next.records, r.records...)
		if r.dropped > 0 {
			s.logger.Debug("Dropped invalid cutoff records",
				zap.String("exam", st.cfg.Name),
				zap.String("file", files[i]),
				zap.Int("dropped", r.dropped),
			)
		}
	}

	st.snap.Store(next)

	elapsed := time.Since(start)
	s.metrics.ObserveLoad(st.cfg.Name, string(tier), len(next.records), next.filesFailed-prev.filesFailed, elapsed)
	s.logger.Info("Loaded cutoff tier",
		zap.String("exam", st.cfg.Name),
		zap.String("tier", string(tier)),
		zap.Int("files", len(files)),
		zap.Int("added", added),
		zap.Int("total", len(next.records)),
		zap.Duration("elapsed", elapsed),
	)
}
