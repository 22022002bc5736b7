package httpapi

import (
	"net/http"
	"strings"

	"jobcast-engine/internal/dedup"
)

type DedupHandler struct {
	Guard *dedup.Guard
}

// DeleteByPath forgets one source-local id so the next run re-evaluates
// the posting. Expects /dedup/{id}.
func (h DedupHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/dedup/")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "missing posting id")
		return
	}

	removed, err := h.Guard.Clear(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "dedup_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id, "removed": removed})
}
