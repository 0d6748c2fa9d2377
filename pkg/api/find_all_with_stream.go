package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleFindAllWithStream handles GET requests to stream documents from collections
// NOTE: This endpoint does NOT apply pagination - it streams ALL matching documents.
// Use /collections/{coll}/find for paginated queries.
func (h *Handler) HandleFindAllWithStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleFindAllWithStream called for collection '%s'", collName)

	queryParams := r.URL.Query()
	for key := range queryParams {
		if paginationParams[key] {
			log.Printf("WARN: Pagination parameter '%s' ignored in streaming endpoint", key)
		}
	}
	filter := parseFilter(queryParams, paginationParams)

	// Stream all matching documents (no pagination)
	docChan, err := h.storage.FindAllStream(collName, filter)
	if err != nil {
		writeError(w, "Stream from collection '"+collName+"'", err)
		return
	}

	// Set headers for streaming
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, canFlush := w.(http.Flusher)

	// Start JSON array
	w.Write([]byte("[\n"))

	first := true
	docCount := 0
	for doc := range docChan {
		docJSON, err := json.Marshal(doc)
		if err != nil {
			log.Printf("ERROR: Failed to marshal document: %v", err)
			continue // Skip this document and continue streaming
		}

		if !first {
			w.Write([]byte(",\n"))
		}
		first = false

		if _, err := w.Write(docJSON); err != nil {
			log.Printf("ERROR: Failed to write to response: %v", err)
			// Drain so the producer can finish
			for range docChan {
			}
			return
		}

		if canFlush {
			flusher.Flush()
		}
		docCount++
	}

	// End JSON array
	w.Write([]byte("\n]"))

	log.Printf("INFO: Streamed %d documents from collection '%s' (no pagination applied)", docCount, collName)
}
