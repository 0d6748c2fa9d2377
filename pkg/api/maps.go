package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// EmitResponse is the result of running a map function over one document
type EmitResponse struct {
	Map       string            `json:"map"`
	Emissions []domain.Emission `json:"emissions"`
}

// HandleListMaps handles GET requests listing the registered map functions
func (h *Handler) HandleListMaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"maps": h.views.MapFunctions(),
	})
}

// HandleEmit runs a map function over the posted document and returns its
// emissions. Nothing is stored.
func (h *Handler) HandleEmit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mapName := vars["design"] + "/" + vars["name"]

	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	emissions, err := h.views.Emit(mapName, doc)
	if err != nil {
		writeError(w, "Emit with map '"+mapName+"'", err)
		return
	}

	writeJSON(w, http.StatusOK, EmitResponse{Map: mapName, Emissions: emissions})
}
