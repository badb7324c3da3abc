package walletadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type statusResponse struct {
	Version   uint           `json:"version"`
	CheckedAt time.Time      `json:"checked_at"`
	Wallets   []WalletStatus `json:"wallets"`
}

// StatusHandler lists the last observed state of every wallet. It reads the
// status store only, so it never blocks on a backend.
func StatusHandler(statuses *StatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := statuses.List()
		if symbol := strings.TrimSpace(r.PathValue("currency")); symbol != "" {
			status, ok := statuses.Get(symbol)
			if !ok {
				http.Error(w, "404 currency not configured", http.StatusNotFound)
				return
			}
			list = []WalletStatus{status}
		}
		writeJSON(w, http.StatusOK, statusResponse{Version: VERSION, CheckedAt: time.Now().UTC(), Wallets: list})
	}
}

type schemaResponse struct {
	Backend string `json:"backend"`
	Fields  any    `json:"fields"`
}

// SchemaHandler publishes a backend's settings descriptors so an operator
// tool can render a settings form.
func SchemaHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("backend")
		backend, ok := registry.Backends().Get(name)
		if !ok {
			http.Error(w, "404 unknown backend", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, schemaResponse{Backend: backend.Name, Fields: backend.Schema})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
