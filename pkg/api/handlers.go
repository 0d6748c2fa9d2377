package api

import (
	"github.com/adfharrison1/wqdb/pkg/domain"
)

// Handler provides HTTP handlers for the database API
type Handler struct {
	storage domain.StorageEngine
	views   domain.ViewEngine
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(storage domain.StorageEngine, views domain.ViewEngine) *Handler {
	return &Handler{
		storage: storage,
		views:   views,
	}
}
