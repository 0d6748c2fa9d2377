package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// maxBatchSize is the largest number of documents or operations in one batch
const maxBatchSize = 1000

// BatchInsertRequest represents the request body for batch insert operations
type BatchInsertRequest struct {
	Documents []domain.Document `json:"documents"`
}

// BatchInsertResponse represents the response for batch insert operations
type BatchInsertResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	InsertedCount int               `json:"inserted_count"`
	Collection    string            `json:"collection"`
	Documents     []domain.Document `json:"documents"`
}

// HandleBatchInsert handles POST requests to insert multiple documents into collections
func (h *Handler) HandleBatchInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleBatchInsert called for collection '%s'", collName)

	var req BatchInsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate request
	if len(req.Documents) == 0 {
		log.Printf("ERROR: No documents provided for batch insert")
		WriteJSONError(w, http.StatusBadRequest, "No documents provided")
		return
	}

	if len(req.Documents) > maxBatchSize {
		log.Printf("ERROR: Too many documents for batch insert: %d", len(req.Documents))
		WriteJSONError(w, http.StatusBadRequest, "Maximum 1000 documents allowed per batch")
		return
	}

	inserted, err := h.storage.BatchInsert(collName, req.Documents)
	if err != nil {
		writeError(w, "Batch insert into collection '"+collName+"'", err)
		return
	}

	response := BatchInsertResponse{
		Success:       true,
		Message:       "Batch insert completed successfully",
		InsertedCount: len(inserted),
		Collection:    collName,
		Documents:     inserted,
	}
	writeJSON(w, http.StatusCreated, response)

	log.Printf("INFO: Batch insert successful for collection '%s', inserted %d documents", collName, len(inserted))
}
