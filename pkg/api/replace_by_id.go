package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleReplaceById handles PUT requests to replace a document by ID
func (h *Handler) HandleReplaceById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleReplaceById called for collection '%s', document '%s'", collName, docId)

	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || doc == nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	replaced, err := h.storage.ReplaceById(collName, docId, doc)
	if err != nil {
		writeError(w, "Replace of document '"+docId+"'", err)
		return
	}

	log.Printf("INFO: Replaced document '%s' in collection '%s'", docId, collName)
	writeJSON(w, http.StatusOK, replaced)
}
