package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"jobcast-engine/internal/domain"
	"jobcast-engine/internal/ledger"
	"jobcast-engine/internal/pipeline"
)

type RunHandler struct {
	DB         *sql.DB
	TriggerRun func(ctx context.Context, trigger domain.TriggerKind) (domain.RunSummary, error)
}

// Trigger starts a run synchronously and returns its summary. A run
// already in flight answers 409 so callers can back off.
func (h RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	trigger := domain.TriggerManual
	if r.URL.Query().Get("trigger") == string(domain.TriggerWebhook) {
		trigger = domain.TriggerWebhook
	}

	summary, err := h.TriggerRun(r.Context(), trigger)
	if err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			WriteError(w, r, http.StatusConflict, "run_in_progress", "a run is already in progress")
			return
		}
		WriteError(w, r, http.StatusInternalServerError, "run_failed", err.Error())
		return
	}
	writeJSON(w, summary)
}

func (h RunHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := ledger.ListRuns(r.Context(), h.DB, queryLimit(r, 50, 200))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "ledger_error", err.Error())
		return
	}
	writeJSON(w, runs)
}

func (h RunHandler) Latest(w http.ResponseWriter, r *http.Request) {
	runs, err := ledger.ListRuns(r.Context(), h.DB, 1)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "ledger_error", err.Error())
		return
	}
	if len(runs) == 0 {
		WriteError(w, r, http.StatusNotFound, "no_runs", "no runs recorded yet")
		return
	}
	writeJSON(w, runs[0])
}
