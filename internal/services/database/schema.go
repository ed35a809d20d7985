package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS prediction_log (
	id            UUID PRIMARY KEY,
	exam_type     TEXT NOT NULL,
	rank          BIGINT NOT NULL,
	category      TEXT NOT NULL,
	quota         TEXT NOT NULL,
	gender        TEXT NOT NULL,
	states        TEXT[] NOT NULL DEFAULT '{}',
	result_limit  INTEGER NOT NULL,
	tier          TEXT NOT NULL,
	result_count  INTEGER NOT NULL,
	stage_counts  JSONB NOT NULL DEFAULT '{}',
	duration_ms   DOUBLE PRECISION NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE prediction_log ALTER COLUMN rank TYPE BIGINT;

CREATE INDEX IF NOT EXISTS idx_prediction_log_exam_created
	ON prediction_log (exam_type, created_at DESC);
`

// Migrate creates the prediction log schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
