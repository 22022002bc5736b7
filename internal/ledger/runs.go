package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobcast-engine/internal/domain"
)

// CreateRun inserts the `running` row a pipeline execution starts with.
func CreateRun(ctx context.Context, db *sql.DB, trigger domain.TriggerKind) (domain.RunRecord, error) {
	run := domain.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Trigger:   trigger,
		Status:    domain.RunRunning,
		PerSource: map[string]domain.SourceStats{},
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO runs(id, started_at, trigger_kind, status)
VALUES(?,?,?,?);`,
		run.ID, run.StartedAt.Format(time.RFC3339), string(run.Trigger), string(run.Status))
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinalizeRun writes the terminal state and counts. Called exactly once per
// run, for both completed and failed outcomes.
func FinalizeRun(ctx context.Context, db *sql.DB, run domain.RunRecord) error {
	perSource, _ := json.Marshal(run.PerSource)
	completed := ""
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC().Format(time.RFC3339)
	}

	_, err := db.ExecContext(ctx, `
UPDATE runs
SET completed_at = ?, status = ?, fetched = ?, delivered = ?, skipped = ?, failed = ?, per_source = ?, error = ?
WHERE id = ?;`,
		completed, string(run.Status), run.Fetched, run.Delivered, run.Skipped, run.Failed,
		string(perSource), run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	return nil
}

func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, started_at, completed_at, trigger_kind, status, fetched, delivered, skipped, failed, per_source, error
FROM runs
ORDER BY started_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var started, completed, trigger, status, perSource string
		if err := rows.Scan(&r.ID, &started, &completed, &trigger, &status,
			&r.Fetched, &r.Delivered, &r.Skipped, &r.Failed, &perSource, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if completed != "" {
			if t, err := time.Parse(time.RFC3339, completed); err == nil {
				r.CompletedAt = &t
			}
		}
		r.Trigger = domain.TriggerKind(trigger)
		r.Status = domain.RunStatus(status)
		_ = json.Unmarshal([]byte(perSource), &r.PerSource)
		out = append(out, r)
	}
	return out, rows.Err()
}
