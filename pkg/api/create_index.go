package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleCreateIndex creates an index on a specific field in a collection
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	if fieldName == "" {
		WriteJSONError(w, http.StatusBadRequest, "field name is required")
		return
	}

	// Documents are looked up by _id directly
	if fieldName == "_id" {
		WriteJSONError(w, http.StatusBadRequest, "cannot create index on _id field (automatically indexed)")
		return
	}

	if err := h.views.CreateIndex(collName, fieldName); err != nil {
		writeError(w, "Create index on '"+fieldName+"'", err)
		return
	}

	log.Printf("INFO: Created index on field '%s' in collection '%s'", fieldName, collName)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Index created successfully",
		"collection": collName,
		"field":      fieldName,
	})
}

// HandleDropIndex removes the index on a field
func (h *Handler) HandleDropIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	if err := h.views.DropIndex(collName, fieldName); err != nil {
		writeError(w, "Drop index on '"+fieldName+"'", err)
		return
	}

	log.Printf("INFO: Dropped index on field '%s' in collection '%s'", fieldName, collName)
	w.WriteHeader(http.StatusNoContent)
}
