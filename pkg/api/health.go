package api

import (
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Collections int    `json:"collections"`
}

// HandleHealth handles GET requests to the health check endpoint
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:      "healthy",
		Message:     "wqdb is running",
		Collections: len(h.storage.ListCollections()),
	}

	writeJSON(w, http.StatusOK, response)
}
