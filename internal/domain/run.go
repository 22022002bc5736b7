package domain

import "time"

type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerManual    TriggerKind = "manual"
	TriggerWebhook   TriggerKind = "webhook"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

type PostingStatus string

const (
	PostingFetched   PostingStatus = "fetched"
	PostingPosted    PostingStatus = "posted"
	PostingFailed    PostingStatus = "failed"
	PostingSkipped   PostingStatus = "skipped"
	PostingDuplicate PostingStatus = "duplicate"
)

// SourceStats records how one source fared within a run.
type SourceStats struct {
	Fetched int    `json:"fetched"`
	Error   string `json:"error,omitempty"`
}

// RunRecord is one row of the runs ledger.
type RunRecord struct {
	ID          string                 `json:"id"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Trigger     TriggerKind            `json:"trigger"`
	Status      RunStatus              `json:"status"`
	Fetched     int                    `json:"fetched"`
	Delivered   int                    `json:"delivered"`
	Skipped     int                    `json:"skipped"`
	Failed      int                    `json:"failed"`
	PerSource   map[string]SourceStats `json:"per_source,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// PostingLedgerRow is one row of the postings ledger. first_seen and the
// identity columns are written once and never overwritten across runs.
type PostingLedgerRow struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Title     string        `json:"title"`
	Employer  string        `json:"employer,omitempty"`
	Status    PostingStatus `json:"status"`
	Summary   string        `json:"summary,omitempty"`
	MessageID string        `json:"message_id,omitempty"`
	FirstSeen time.Time     `json:"first_seen"`
}

// RunSummary is the caller-facing result of a pipeline run.
type RunSummary struct {
	RunID     string                 `json:"run_id"`
	Status    RunStatus              `json:"status"`
	Fetched   int                    `json:"fetched"`
	Delivered int                    `json:"delivered"`
	Skipped   int                    `json:"skipped"`
	Failed    int                    `json:"failed"`
	Duration  time.Duration          `json:"duration_ns"`
	PerSource map[string]SourceStats `json:"per_source,omitempty"`
}
