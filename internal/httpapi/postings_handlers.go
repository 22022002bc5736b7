package httpapi

import (
	"database/sql"
	"net/http"

	"jobcast-engine/internal/ledger"
)

type PostingsHandler struct {
	DB *sql.DB
}

func (h PostingsHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := ledger.ListPostings(r.Context(), h.DB, queryLimit(r, 100, 500))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "ledger_error", err.Error())
		return
	}
	writeJSON(w, rows)
}
