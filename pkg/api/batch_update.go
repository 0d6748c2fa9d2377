package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// BatchUpdateRequest represents the request body for batch update operations
type BatchUpdateRequest struct {
	Operations []domain.BatchUpdateOperation `json:"operations"`
}

// BatchUpdateResponse represents the response for batch update operations
type BatchUpdateResponse struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	UpdatedCount int               `json:"updated_count"`
	Collection   string            `json:"collection"`
	Documents    []domain.Document `json:"documents"`
}

// HandleBatchUpdate handles PATCH requests to update multiple documents in
// collections. The batch is applied completely or not at all.
func (h *Handler) HandleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleBatchUpdate called for collection '%s'", collName)

	var req BatchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate request
	if len(req.Operations) == 0 {
		log.Printf("ERROR: No operations provided for batch update")
		WriteJSONError(w, http.StatusBadRequest, "No operations provided")
		return
	}

	if len(req.Operations) > maxBatchSize {
		log.Printf("ERROR: Too many operations for batch update: %d", len(req.Operations))
		WriteJSONError(w, http.StatusBadRequest, "Maximum 1000 operations allowed per batch")
		return
	}

	for _, op := range req.Operations {
		if op.ID == "" {
			WriteJSONError(w, http.StatusBadRequest, "Every operation needs an id")
			return
		}
	}

	updatedDocs, err := h.storage.BatchUpdate(collName, req.Operations)
	if err != nil {
		writeError(w, "Batch update of collection '"+collName+"'", err)
		return
	}

	response := BatchUpdateResponse{
		Success:      true,
		Message:      "Batch update completed successfully",
		UpdatedCount: len(updatedDocs),
		Collection:   collName,
		Documents:    updatedDocs,
	}
	writeJSON(w, http.StatusOK, response)

	log.Printf("INFO: Batch update completed for collection '%s', updated %d", collName, response.UpdatedCount)
}
