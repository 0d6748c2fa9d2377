package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleQueryView handles GET requests reading rows from a view. Keys are
// JSON-encoded, e.g. key=["ReqA","Running"].
func (h *Handler) HandleQueryView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	viewName := vars["view"]

	log.Printf("INFO: handleQueryView called for collection '%s', view '%s'", collName, viewName)

	query, err := parseViewQuery(r.URL.Query())
	if err != nil {
		writeError(w, "Query of view '"+viewName+"'", err)
		return
	}

	result, err := h.views.QueryView(collName, viewName, query)
	if err != nil {
		writeError(w, "Query of view '"+viewName+"'", err)
		return
	}

	log.Printf("INFO: View '%s' returned %d of %d rows", viewName, len(result.Rows), result.TotalRows)
	writeJSON(w, http.StatusOK, result)
}

// parseViewQuery reads the view query options from URL parameters
func parseViewQuery(params url.Values) (*domain.ViewQuery, error) {
	query := domain.NewViewQuery()

	var err error
	if query.Key, query.KeySet, err = jsonParam(params, "key"); err != nil {
		return nil, err
	}
	if query.StartKey, query.StartKeySet, err = jsonParam(params, "startkey", "start_key"); err != nil {
		return nil, err
	}
	if query.EndKey, query.EndKeySet, err = jsonParam(params, "endkey", "end_key"); err != nil {
		return nil, err
	}

	if query.InclusiveEnd, err = boolParam(params, "inclusive_end", true); err != nil {
		return nil, err
	}
	if query.Descending, err = boolParam(params, "descending", false); err != nil {
		return nil, err
	}
	if query.IncludeDocs, err = boolParam(params, "include_docs", false); err != nil {
		return nil, err
	}
	if query.Skip, err = intParam(params, "skip"); err != nil {
		return nil, err
	}
	if query.Limit, err = intParam(params, "limit"); err != nil {
		return nil, err
	}

	return query, query.Validate()
}

// jsonParam decodes the first of names present in params as JSON
func jsonParam(params url.Values, names ...string) (interface{}, bool, error) {
	for _, name := range names {
		if _, ok := params[name]; !ok {
			continue
		}
		var v interface{}
		if err := json.Unmarshal([]byte(params.Get(name)), &v); err != nil {
			return nil, false, fmt.Errorf("%w: %s must be JSON: %v", domain.ErrInvalidQuery, name, err)
		}
		return v, true, nil
	}
	return nil, false, nil
}

func boolParam(params url.Values, name string, def bool) (bool, error) {
	raw := params.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidQuery, name)
	}
	return v, nil
}

func intParam(params url.Values, name string) (int, error) {
	raw := params.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidQuery, name)
	}
	return v, nil
}
