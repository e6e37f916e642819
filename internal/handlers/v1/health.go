package v1

import "net/http"

// Health answers liveness probes. Mounted outside the authenticated group.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
