package httpapi

import "net/http"

// NewMux wires every handler; main() wraps the result with Chain().
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	rh := RunHandler{DB: d.DB, TriggerRun: d.TriggerRun}
	mux.HandleFunc("/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Trigger,
	}))
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.List,
	}))
	mux.HandleFunc("/runs/latest", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.Latest,
	}))

	ph := PostingsHandler{DB: d.DB}
	mux.HandleFunc("/postings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.List,
	}))

	dh := DedupHandler{Guard: d.Guard}
	mux.HandleFunc("/dedup/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: dh.DeleteByPath, // expects /dedup/{id}
	}))

	ch := ConfigHandler{CfgVal: d.CfgVal, UserCfgPath: d.UserCfgPath, LoadCfg: d.LoadCfg}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/reload", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ch.Reload,
	}))

	sh := SecretsHandler{}
	mux.HandleFunc("/api/secrets", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Set,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
