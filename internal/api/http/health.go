package http

import (
	"net/http"
	"time"
)

// HealthResponse is the body returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Time    string `json:"time"`
}

// HealthHandler returns the /healthz handler for the named service.
func HealthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: service,
			Time:    time.Now().UTC().Format(time.RFC3339),
		})
	}
}
