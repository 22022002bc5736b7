package httpapi

import (
	"net/http"
	"path/filepath"
	"sync/atomic"

	"jobcast-engine/internal/config"
)

type ConfigHandler struct {
	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cur := h.CfgVal.Load().(config.Config)
	writeJSON(w, cur)
}

func (h ConfigHandler) Path(w http.ResponseWriter, r *http.Request) {
	abs, _ := filepath.Abs(h.UserCfgPath)
	writeJSON(w, map[string]any{"path": abs})
}

// Reload re-reads the user's yaml from disk; validation errors reject the
// reload and the running config stays untouched.
func (h ConfigHandler) Reload(w http.ResponseWriter, r *http.Request) {
	incoming, err := h.LoadCfg()
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "config_load_failed", err.Error())
		return
	}

	normalized, vr := config.NormalizeAndValidate(incoming)
	if !vr.OK() {
		WriteJSON(w, http.StatusBadRequest, vr)
		return
	}

	h.CfgVal.Store(normalized)
	writeJSON(w, normalized)
}
