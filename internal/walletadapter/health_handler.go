package walletadapter

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status        string    `json:"status"`
	Version       uint      `json:"version"`
	Time          time.Time `json:"time"`
	OverallOK     bool      `json:"overall_ok"`
	LockedWallets int       `json:"locked_wallets"`
}

// HealthHandler is a liveness endpoint intended for container health checks.
// It always returns 200 when the process is up, and reports wallet locks in the body.
func HealthHandler(statuses *StatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locked := 0
		if statuses != nil {
			for _, status := range statuses.List() {
				if status.Locked {
					locked++
				}
			}
		}

		resp := healthResponse{
			Status:        "ok",
			Version:       VERSION,
			Time:          time.Now().UTC(),
			OverallOK:     locked == 0,
			LockedWallets: locked,
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
