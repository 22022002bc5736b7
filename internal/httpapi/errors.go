package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
)

// APIError is the uniform error envelope every handler returns.
type APIError struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError answers with the envelope and, for server-side failures, leaves
// a log line keyed by the request id so the access log entry can be matched.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	reqID := RequestIDFrom(r.Context())
	if status >= 500 {
		log.Printf("[http] request_id=%s %s %s -> %d %s: %s", reqID, r.Method, r.URL.Path, status, code, message)
	}
	WriteJSON(w, status, APIError{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: reqID,
	}})
}
