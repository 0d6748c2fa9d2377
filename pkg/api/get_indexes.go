package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGetIndexes handles GET requests to retrieve all indexes for a collection
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleGetIndexes called for collection '%s'", collName)

	indexes, err := h.views.GetIndexes(collName)
	if err != nil {
		writeError(w, "Get indexes of collection '"+collName+"'", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"collection":  collName,
		"indexes":     indexes,
		"index_count": len(indexes),
	})

	log.Printf("INFO: Retrieved %d indexes for collection '%s'", len(indexes), collName)
}
