package api

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleFindAll handles GET requests to find documents with filter criteria.
// Query parameters other than limit, offset, after and before are filters.
func (h *Handler) HandleFindAll(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleFindAll called for collection '%s'", collName)

	queryParams := r.URL.Query()
	options, err := parsePaginationOptions(queryParams)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := parseFilter(queryParams, paginationParams)

	result, err := h.storage.FindAll(collName, filter, options)
	if err != nil {
		writeError(w, "Find in collection '"+collName+"'", err)
		return
	}

	if len(filter) == 0 {
		log.Printf("INFO: Found %d documents in collection '%s' (no filter)", len(result.Documents), collName)
	} else {
		log.Printf("INFO: Found %d documents in collection '%s' with filter %v", len(result.Documents), collName, filter)
	}

	writeJSON(w, http.StatusOK, result)
}

// parsePaginationOptions reads limit, offset, after and before
func parsePaginationOptions(query url.Values) (*domain.PaginationOptions, error) {
	options := domain.DefaultPaginationOptions()

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: %s", v)
		}
		options.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid offset: %s", v)
		}
		options.Offset = offset
	}
	options.After = query.Get("after")
	options.Before = query.Get("before")

	return options, nil
}
