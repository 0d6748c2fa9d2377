package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleUpdateById handles PATCH requests to partially update a document by ID
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleUpdateById called for collection '%s', document '%s'", collName, docId)

	var updates domain.Document
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.storage.UpdateById(collName, docId, updates)
	if err != nil {
		writeError(w, "Update of document '"+docId+"'", err)
		return
	}

	log.Printf("INFO: Updated document '%s' in collection '%s'", docId, collName)
	writeJSON(w, http.StatusOK, updated)
}
