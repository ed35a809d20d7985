package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"college-predictor/internal/models"
)

// PredictionLogRepository handles prediction log operations.
type PredictionLogRepository struct {
	db *DB
}

// NewPredictionLogRepository creates a new prediction log repository.
func NewPredictionLogRepository(db *DB) *PredictionLogRepository {
	return &PredictionLogRepository{db: db}
}

const insertLogQuery = `
	INSERT INTO prediction_log (
		id, exam_type, rank, category, quota, gender, states, result_limit,
		tier, result_count, stage_counts, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO NOTHING`

func insertArgs(e *models.PredictionLogEntry) ([]interface{}, error) {
	stageCounts, err := json.Marshal(e.StageCounts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stage counts: %w", err)
	}
	states := e.States
	if states == nil {
		states = []string{}
	}
	return []interface{}{
		e.ID,
		e.ExamType,
		e.Rank,
		e.Category,
		e.Quota,
		e.Gender,
		states,
		e.Limit,
		e.Tier,
		e.ResultCount,
		stageCounts,
		e.DurationMs,
		e.CreatedAt,
	}, nil
}

// Insert records one served prediction.
func (r *PredictionLogRepository) Insert(ctx context.Context, e *models.PredictionLogEntry) error {
	args, err := insertArgs(e)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, insertLogQuery, args...); err != nil {
		return fmt.Errorf("failed to insert prediction log: %w", err)
	}
	return nil
}

// InsertBatch records several predictions in a single transaction.
func (r *PredictionLogRepository) InsertBatch(ctx context.Context, entries []models.PredictionLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range entries {
			args, err := insertArgs(&entries[i])
			if err != nil {
				return err
			}
			batch.Queue(insertLogQuery, args...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert prediction log batch: %w", err)
		}
		return nil
	})
}

// Recent returns the latest entries, newest first. An empty exam matches all exams.
func (r *PredictionLogRepository) Recent(ctx context.Context, exam string, limit int) ([]models.PredictionLogEntry, error) {
	query := `
		SELECT id, exam_type, rank, category, quota, gender, states, result_limit,
		       tier, result_count, stage_counts, duration_ms, created_at
		FROM prediction_log
		WHERE ($1 = '' OR exam_type = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, exam, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction log: %w", err)
	}
	defer rows.Close()

	entries := make([]models.PredictionLogEntry, 0, limit)
	for rows.Next() {
		var e models.PredictionLogEntry
		var stageCounts []byte
		if err := rows.Scan(
			&e.ID, &e.ExamType, &e.Rank, &e.Category, &e.Quota, &e.Gender, &e.States, &e.Limit,
			&e.Tier, &e.ResultCount, &stageCounts, &e.DurationMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction log: %w", err)
		}
		if err := json.Unmarshal(stageCounts, &e.StageCounts); err != nil {
			return nil, fmt.Errorf("failed to decode stage counts: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UsageByExam aggregates the log per exam.
func (r *PredictionLogRepository) UsageByExam(ctx context.Context) ([]models.ExamUsage, error) {
	query := `
		SELECT exam_type,
		       COUNT(*),
		       COALESCE(AVG(result_count), 0),
		       COALESCE(AVG(duration_ms), 0),
		       COUNT(*) FILTER (WHERE result_count = 0)
		FROM prediction_log
		GROUP BY exam_type
		ORDER BY exam_type`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var usage []models.ExamUsage
	for rows.Next() {
		var u models.ExamUsage
		if err := rows.Scan(&u.ExamType, &u.Queries, &u.AvgResults, &u.AvgDurationMs, &u.EmptyResults); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
