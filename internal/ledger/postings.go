package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobcast-engine/internal/domain"
)

// InsertPostingIfAbsent records first sight of a posting. Rows survive
// across runs and are never overwritten by a re-insert; status on an
// existing row is left alone.
func InsertPostingIfAbsent(ctx context.Context, db *sql.DB, row domain.PostingLedgerRow) (added bool, err error) {
	if row.FirstSeen.IsZero() {
		row.FirstSeen = time.Now().UTC()
	}
	if row.Status == "" {
		row.Status = domain.PostingFetched
	}

	_, err = db.ExecContext(ctx, `
INSERT OR IGNORE INTO postings(id, source, title, employer, status, summary, message_id, first_seen)
VALUES(?,?,?,?,?,?,?,?);`,
		row.ID, row.Source, row.Title, row.Employer, string(row.Status),
		row.Summary, row.MessageID, row.FirstSeen.Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("insert posting: %w", err)
	}

	// SELECT changes() tells us whether IGNORE swallowed the insert.
	var changes int
	if e := db.QueryRowContext(ctx, `SELECT changes();`).Scan(&changes); e == nil {
		return changes > 0, nil
	}
	return true, nil
}

// AdvancePosting moves a row's status forward within a run, optionally
// attaching the summary and delivery-channel message id.
func AdvancePosting(ctx context.Context, db *sql.DB, id string, status domain.PostingStatus, summary, messageID string) error {
	_, err := db.ExecContext(ctx, `
UPDATE postings
SET status = ?,
    summary = CASE WHEN ? != '' THEN ? ELSE summary END,
    message_id = CASE WHEN ? != '' THEN ? ELSE message_id END
WHERE id = ?;`,
		string(status), summary, summary, messageID, messageID, id)
	if err != nil {
		return fmt.Errorf("advance posting %q: %w", id, err)
	}
	return nil
}

func GetPosting(ctx context.Context, db *sql.DB, id string) (domain.PostingLedgerRow, error) {
	var row domain.PostingLedgerRow
	var status, firstSeen string
	err := db.QueryRowContext(ctx, `
SELECT id, source, title, employer, status, summary, message_id, first_seen
FROM postings WHERE id = ?;`, id).Scan(
		&row.ID, &row.Source, &row.Title, &row.Employer, &status, &row.Summary, &row.MessageID, &firstSeen)
	if err != nil {
		return row, err
	}
	row.Status = domain.PostingStatus(status)
	row.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	return row, nil
}

func ListPostings(ctx context.Context, db *sql.DB, limit int) ([]domain.PostingLedgerRow, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, source, title, employer, status, summary, message_id, first_seen
FROM postings
ORDER BY first_seen DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PostingLedgerRow
	for rows.Next() {
		var row domain.PostingLedgerRow
		var status, firstSeen string
		if err := rows.Scan(&row.ID, &row.Source, &row.Title, &row.Employer,
			&status, &row.Summary, &row.MessageID, &firstSeen); err != nil {
			return nil, err
		}
		row.Status = domain.PostingStatus(status)
		row.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		out = append(out, row)
	}
	return out, rows.Err()
}
