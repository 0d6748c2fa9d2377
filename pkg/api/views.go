package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// DefineViewRequest is the body of a view definition. Exactly one of Map or
// Field is set.
type DefineViewRequest struct {
	Map   string `json:"map,omitempty"`
	Field string `json:"field,omitempty"`
}

// HandleDefineView handles PUT requests creating a view on a collection
func (h *Handler) HandleDefineView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	viewName := vars["view"]

	log.Printf("INFO: handleDefineView called for collection '%s', view '%s'", collName, viewName)

	var req DefineViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	def := domain.ViewDefinition{Name: viewName, Map: req.Map, Field: req.Field}
	if err := h.views.DefineView(collName, def); err != nil {
		writeError(w, "Define view '"+viewName+"'", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"collection": collName,
		"view":       def,
	})
}

// HandleDropView handles DELETE requests removing a view
func (h *Handler) HandleDropView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	viewName := vars["view"]

	if err := h.views.DropView(collName, viewName); err != nil {
		writeError(w, "Drop view '"+viewName+"'", err)
		return
	}

	log.Printf("INFO: Dropped view '%s' from collection '%s'", viewName, collName)
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetViews handles GET requests listing the views of a collection
func (h *Handler) HandleGetViews(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	views, err := h.views.GetViews(collName)
	if err != nil {
		writeError(w, "Get views of collection '"+collName+"'", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collection": collName,
		"views":      views,
		"view_count": len(views),
	})
}
