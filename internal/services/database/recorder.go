package database

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"college-predictor/internal/models"
	"college-predictor/internal/utils"
)

// BatchWriter persists prediction log entries. *PredictionLogRepository implements it.
type BatchWriter interface {
	InsertBatch(ctx context.Context, entries []models.PredictionLogEntry) error
}

// Recorder writes prediction log entries in the background so logging never delays a
// prediction. Entries are dropped when the buffer is full.
type Recorder struct {
	writer     BatchWriter
	entries    chan models.PredictionLogEntry
	batchSize  int
	flushEvery time.Duration
	logger     *zap.Logger

	flushes chan chan struct{}

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRecorder starts a recorder flushing up to batchSize entries at a time, at least
// every flushEvery.
func NewRecorder(writer BatchWriter, buffer, batchSize int, flushEvery time.Duration) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushEvery <= 0 {
		flushEvery = 2 * time.Second
	}
	r := &Recorder{
		writer:     writer,
		entries:    make(chan models.PredictionLogEntry, buffer),
		batchSize:  batchSize,
		flushEvery: flushEvery,
		logger:     utils.GetLogger(),
		flushes:    make(chan chan struct{}),
		done:       make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues an entry. It never blocks.
func (r *Recorder) Record(e models.PredictionLogEntry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.entries <- e:
	default:
		r.logger.Warn("Prediction log buffer full, dropping entry",
			zap.String("id", e.ID.String()),
			zap.String("exam", e.ExamType),
		)
	}
}

// Flush writes every entry queued before the call. It gives up when ctx ends and
// returns immediately once the recorder is closed.
func (r *Recorder) Flush(ctx context.Context) error {
	reply := make(chan struct{})

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil
	}
	select {
	case r.flushes <- reply:
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}
	r.mu.RUnlock()

	select {
	case <-reply:
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Close flushes queued entries and stops the recorder.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.entries)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	batch := make([]models.PredictionLogEntry, 0, r.batchSize)
	for {
		select {
		case e, ok := <-r.entries:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = make([]models.PredictionLogEntry, 0, r.batchSize)
			}
		case reply := <-r.flushes:
			var open bool
			batch, open = r.drain(batch)
			r.flush(batch)
			batch = make([]models.PredictionLogEntry, 0, r.batchSize)
			close(reply)
			if !open {
				return
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = make([]models.PredictionLogEntry, 0, r.batchSize)
			}
		}
	}
}

// drain moves every queued entry into batch. open is false once the queue is closed.
func (r *Recorder) drain(batch []models.PredictionLogEntry) (_ []models.PredictionLogEntry, open bool) {
	for {
		select {
		case e, ok := <-r.entries:
			if !ok {
				return batch, false
			}
			batch = append(batch, e)
		default:
			return batch, true
		}
	}
}

func (r *Recorder) flush(batch []models.PredictionLogEntry) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.writer.InsertBatch(ctx, batch); err != nil {
		r.logger.Error("Failed to write prediction log",
			zap.Int("entries", len(batch)),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("Prediction log flushed", zap.Int("entries", len(batch)))
}
