package httpapi

import (
	"encoding/json"
	"net/http"

	"jobcast-engine/internal/secrets"
)

type SecretsHandler struct{}

type setSecretReq struct {
	Account string `json:"account"`
	Value   string `json:"value"`
}

func (h SecretsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setSecretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	switch req.Account {
	case secrets.AccountBotToken, secrets.AccountInferenceKey:
	default:
		WriteError(w, r, http.StatusBadRequest, "unknown_account", "unknown secret account")
		return
	}

	if err := secrets.Set(req.Account, req.Value); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
