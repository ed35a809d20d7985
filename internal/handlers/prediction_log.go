package handlers

import (
	"context"
	"net/url"
	"strconv"

	"college-predictor/internal/models"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// LogReader reads the prediction log. *database.PredictionLogRepository implements it.
type LogReader interface {
	Recent(ctx context.Context, exam string, limit int) ([]models.PredictionLogEntry, error)
	UsageByExam(ctx context.Context) ([]models.ExamUsage, error)
}

// LogHandler exposes the prediction log.
type LogHandler struct {
	reader LogReader
}

// NewLogHandler creates a log handler. reader may be nil when the log is disabled.
func NewLogHandler(reader LogReader) *LogHandler {
	return &LogHandler{reader: reader}
}

// Recent returns the latest log entries, optionally filtered by ?exam= and sized by
// ?limit=.
func (h *LogHandler) Recent(ctx context.Context, v url.Values) ([]models.PredictionLogEntry, error) {
	if h.reader == nil {
		return nil, ErrLogDisabled
	}
	limit := defaultRecentLimit
	if s := first(v, "limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, ErrBadRequest
		}
		limit = min(n, maxRecentLimit)
	}
	return h.reader.Recent(ctx, first(v, "exam"), limit)
}

// Usage returns per-exam aggregates of the log.
func (h *LogHandler) Usage(ctx context.Context) ([]models.ExamUsage, error) {
	if h.reader == nil {
		return nil, ErrLogDisabled
	}
	return h.reader.UsageByExam(ctx)
}
