package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Collection operations
	router.HandleFunc("/collections", h.HandleListCollections).Methods("GET")
	router.HandleFunc("/collections/{coll}", h.HandleInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}", h.HandleDropCollection).Methods("DELETE")

	// Batch operations
	router.HandleFunc("/collections/{coll}/batch", h.HandleBatchInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}/batch", h.HandleBatchUpdate).Methods("PATCH")

	// Document operations (by ID)
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleUpdateById).Methods("PATCH") // Partial update
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleReplaceById).Methods("PUT")  // Complete replacement
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")

	// Find with optional filtering (query parameters)
	router.HandleFunc("/collections/{coll}/find", h.HandleFindAll).Methods("GET")
	router.HandleFunc("/collections/{coll}/find_with_stream", h.HandleFindAllWithStream).Methods("GET")

	// Index operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleDropIndex).Methods("DELETE")

	// View operations
	router.HandleFunc("/collections/{coll}/views", h.HandleGetViews).Methods("GET")
	router.HandleFunc("/collections/{coll}/views/{view}", h.HandleDefineView).Methods("PUT")
	router.HandleFunc("/collections/{coll}/views/{view}", h.HandleDropView).Methods("DELETE")
	router.HandleFunc("/collections/{coll}/views/{view}/query", h.HandleQueryView).Methods("GET")

	// Map functions
	router.HandleFunc("/maps", h.HandleListMaps).Methods("GET")
	router.HandleFunc("/maps/{design}/{name}/emit", h.HandleEmit).Methods("POST")
}
