package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleListCollections handles GET requests listing all collections
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	collections := h.storage.ListCollections()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collections": collections,
		"count":       len(collections),
	})
}

// HandleDropCollection handles DELETE requests removing a collection with
// its documents and views
func (h *Handler) HandleDropCollection(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleDropCollection called for collection '%s'", collName)

	if err := h.storage.DropCollection(collName); err != nil {
		writeError(w, "Drop of collection '"+collName+"'", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
