package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleInsert handles POST requests to insert documents into collections
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleInsert called for collection '%s'", collName)

	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || doc == nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inserted, err := h.storage.Insert(collName, doc)
	if err != nil {
		writeError(w, "Insert into collection '"+collName+"'", err)
		return
	}

	log.Printf("INFO: Insert successful for collection '%s', document '%s'", collName, inserted.ID())
	writeJSON(w, http.StatusCreated, inserted)
}
