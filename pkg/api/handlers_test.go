package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/adfharrison1/wqdb/pkg/indexing"
	"github.com/adfharrison1/wqdb/pkg/storage"
	"github.com/adfharrison1/wqdb/pkg/workqueue"
)

func newTestRouter(t *testing.T) (*mux.Router, *storage.StorageEngine) {
	t.Helper()
	registry := indexing.NewRegistry()
	require.NoError(t, workqueue.RegisterViews(registry))

	engine := storage.NewStorageEngine(storage.WithRegistry(registry))
	t.Cleanup(engine.StopBackgroundWorkers)

	router := mux.NewRouter()
	NewHandler(engine, engine).RegisterRoutes(router)
	return router, engine
}

func do(t *testing.T, router *mux.Router, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHandler_HandleHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	decode(t, w, &resp)
	assert.Equal(t, "healthy", resp.Status)
}

func TestHandler_HandleInsert(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedID     string
	}{
		{"valid document", map[string]interface{}{"name": "Alice", "age": 30}, http.StatusCreated, "1"},
		{"document with existing ID", map[string]interface{}{"_id": "123", "name": "Bob"}, http.StatusCreated, "123"},
		{"invalid JSON", "{not json", http.StatusBadRequest, ""},
		{"null body", "null", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)

			w := do(t, router, "POST", "/collections/users", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedID != "" {
				var doc domain.Document
				decode(t, w, &doc)
				assert.Equal(t, tt.expectedID, doc["_id"])
			}
		})
	}
}

func TestHandler_DuplicateIDConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, "POST", "/collections/users", map[string]interface{}{"_id": "a"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, "POST", "/collections/users", map[string]interface{}{"_id": "a"})
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Message, "already exists")
}

func TestHandler_DocumentLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, "POST", "/collections/users", map[string]interface{}{"name": "Alice", "age": 30})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, "GET", "/collections/users/documents/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc domain.Document
	decode(t, w, &doc)
	assert.Equal(t, "Alice", doc["name"])

	w = do(t, router, "PATCH", "/collections/users/documents/1", map[string]interface{}{"age": 31})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &doc)
	assert.Equal(t, 31.0, doc["age"])
	assert.Equal(t, "Alice", doc["name"])

	w = do(t, router, "PUT", "/collections/users/documents/1", map[string]interface{}{"nickname": "Al"})
	require.Equal(t, http.StatusOK, w.Code)
	doc = nil
	decode(t, w, &doc)
	assert.Equal(t, domain.Document{"_id": "1", "nickname": "Al"}, doc)

	w = do(t, router, "DELETE", "/collections/users/documents/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "GET", "/collections/users/documents/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "GET", "/collections/nope/documents/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_HandleBatchInsert(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedCount  int
	}{
		{
			name: "valid batch",
			body: BatchInsertRequest{Documents: []domain.Document{
				{"name": "Alice"}, {"name": "Bob"},
			}},
			expectedStatus: http.StatusCreated,
			expectedCount:  2,
		},
		{
			name:           "empty batch",
			body:           BatchInsertRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "too many documents",
			body:           BatchInsertRequest{Documents: make([]domain.Document, maxBatchSize+1)},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate ids",
			body: BatchInsertRequest{Documents: []domain.Document{
				{"_id": "x"}, {"_id": "x"},
			}},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)

			w := do(t, router, "POST", "/collections/users/batch", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusCreated {
				var resp BatchInsertResponse
				decode(t, w, &resp)
				assert.True(t, resp.Success)
				assert.Equal(t, tt.expectedCount, resp.InsertedCount)
				assert.Len(t, resp.Documents, tt.expectedCount)
			}
		})
	}
}

func TestHandler_HandleBatchUpdate(t *testing.T) {
	router, engine := newTestRouter(t)
	_, err := engine.BatchInsert("users", []domain.Document{{"name": "Alice"}, {"name": "Bob"}})
	require.NoError(t, err)

	w := do(t, router, "PATCH", "/collections/users/batch", BatchUpdateRequest{
		Operations: []domain.BatchUpdateOperation{
			{ID: "1", Updates: domain.Document{"role": "admin"}},
			{ID: "2", Updates: domain.Document{"role": "user"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchUpdateResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.UpdatedCount)

	w = do(t, router, "PATCH", "/collections/users/batch", BatchUpdateRequest{
		Operations: []domain.BatchUpdateOperation{{ID: "9", Updates: domain.Document{"role": "x"}}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "PATCH", "/collections/users/batch", BatchUpdateRequest{
		Operations: []domain.BatchUpdateOperation{{Updates: domain.Document{"role": "x"}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_HandleFindAll(t *testing.T) {
	router, engine := newTestRouter(t)
	_, err := engine.BatchInsert("users", []domain.Document{
		{"name": "Alice", "age": 30, "active": true},
		{"name": "Bob", "age": 25, "active": false},
		{"name": "Charlie", "age": 30, "active": true},
	})
	require.NoError(t, err)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedNames  []string
		hasNext        bool
	}{
		{"no filter", "", http.StatusOK, []string{"Alice", "Bob", "Charlie"}, false},
		{"filter by age", "?age=30", http.StatusOK, []string{"Alice", "Charlie"}, false},
		{"filter by name case insensitive", "?name=bob", http.StatusOK, []string{"Bob"}, false},
		{"filter by bool", "?active=false", http.StatusOK, []string{"Bob"}, false},
		{"limit", "?limit=2", http.StatusOK, []string{"Alice", "Bob"}, true},
		{"offset", "?limit=2&offset=2", http.StatusOK, []string{"Charlie"}, false},
		{"bad limit", "?limit=abc", http.StatusBadRequest, nil, false},
		{"negative offset", "?offset=-1", http.StatusBadRequest, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "GET", "/collections/users/find"+tt.query, nil)
			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var result domain.PaginationResult
			decode(t, w, &result)
			var names []string
			for _, doc := range result.Documents {
				names = append(names, doc["name"].(string))
			}
			assert.Equal(t, tt.expectedNames, names)
			assert.Equal(t, tt.hasNext, result.HasNext)
		})
	}

	w := do(t, router, "GET", "/collections/nope/find", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_HandleFindAllWithStream(t *testing.T) {
	router, engine := newTestRouter(t)
	_, err := engine.BatchInsert("users", []domain.Document{
		{"name": "Alice", "age": 30},
		{"name": "Bob", "age": 25},
		{"name": "Charlie", "age": 30},
	})
	require.NoError(t, err)

	w := do(t, router, "GET", "/collections/users/find_with_stream?age=30&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var docs []domain.Document
	decode(t, w, &docs)
	require.Len(t, docs, 2, "pagination is ignored when streaming")
	assert.Equal(t, "Alice", docs[0]["name"])
	assert.Equal(t, "Charlie", docs[1]["name"])

	w = do(t, router, "GET", "/collections/nope/find_with_stream", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Collections(t *testing.T) {
	router, engine := newTestRouter(t)
	require.NoError(t, engine.CreateCollection("users"))

	w := do(t, router, "GET", "/collections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Collections []string `json:"collections"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []string{"users"}, resp.Collections)

	w = do(t, router, "DELETE", "/collections/users", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "DELETE", "/collections/users", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Indexes(t *testing.T) {
	router, engine := newTestRouter(t)
	require.NoError(t, engine.CreateCollection("users"))

	tests := []struct {
		name           string
		method         string
		target         string
		expectedStatus int
	}{
		{"create", "POST", "/collections/users/indexes/name", http.StatusCreated},
		{"create duplicate", "POST", "/collections/users/indexes/name", http.StatusConflict},
		{"create on _id", "POST", "/collections/users/indexes/_id", http.StatusBadRequest},
		{"create on missing collection", "POST", "/collections/nope/indexes/name", http.StatusNotFound},
		{"list", "GET", "/collections/users/indexes", http.StatusOK},
		{"drop", "DELETE", "/collections/users/indexes/name", http.StatusNoContent},
		{"drop missing", "DELETE", "/collections/users/indexes/name", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.target, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandler_JobStatusByRequestView(t *testing.T) {
	router, engine := newTestRouter(t)

	element := func(request, status string, jobs interface{}) domain.Document {
		return domain.Document{workqueue.ElementKey: map[string]interface{}{
			"RequestName": request, "Status": status, "Jobs": jobs,
		}}
	}
	_, err := engine.BatchInsert("workqueue", []domain.Document{
		element("ReqA", "Running", nil),
		element("ReqB", "Failed", 5.0),
		element("ReqC", "Canceled", -1.0),
		element("ReqA", "Acquired", 2.0),
	})
	require.NoError(t, err)

	w := do(t, router, "PUT", "/collections/workqueue/views/jobStatusByRequest",
		DefineViewRequest{Map: workqueue.JobStatusByRequestMap})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, "PUT", "/collections/workqueue/views/jobStatusByRequest",
		DefineViewRequest{Map: workqueue.JobStatusByRequestMap})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, "PUT", "/collections/workqueue/views/other", DefineViewRequest{Map: "WorkQueue/missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "PUT", "/collections/workqueue/views/other", DefineViewRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "GET", "/collections/workqueue/views", nil)
	require.Equal(t, http.StatusOK, w.Code)

	query := func(params string) domain.ViewResult {
		t.Helper()
		w := do(t, router, "GET", "/collections/workqueue/views/jobStatusByRequest/query"+params, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result domain.ViewResult
		decode(t, w, &result)
		return result
	}

	all := query("")
	assert.Equal(t, 3, all.TotalRows)
	require.Len(t, all.Rows, 3)
	assert.Equal(t, []interface{}{"ReqA", "Acquired"}, all.Rows[0].Key)
	assert.Equal(t, 2.0, all.Rows[0].Value)
	assert.Equal(t, []interface{}{"ReqA", "Running"}, all.Rows[1].Key)
	assert.Equal(t, 0.0, all.Rows[1].Value)
	assert.Equal(t, []interface{}{"ReqB", "Failed"}, all.Rows[2].Key)

	byKey := query("?key=" + url.QueryEscape(`["ReqB","Failed"]`) + "&include_docs=true")
	require.Len(t, byKey.Rows, 1)
	assert.Equal(t, 5.0, byKey.Rows[0].Value)
	assert.NotNil(t, byKey.Rows[0].Doc)

	ranged := query("?startkey=" + url.QueryEscape(`["ReqA"]`) + "&endkey=" + url.QueryEscape(`["ReqA",{}]`) + "&descending=false")
	assert.Len(t, ranged.Rows, 2)

	desc := query("?descending=true&limit=1")
	require.Len(t, desc.Rows, 1)
	assert.Equal(t, []interface{}{"ReqB", "Failed"}, desc.Rows[0].Key)

	w = do(t, router, "GET", "/collections/workqueue/views/jobStatusByRequest/query?key=notjson", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "GET", "/collections/workqueue/views/jobStatusByRequest/query?skip=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "GET", "/collections/workqueue/views/missing/query", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "DELETE", "/collections/workqueue/views/jobStatusByRequest", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_QueryViewUnencodableValue(t *testing.T) {
	router, engine := newTestRouter(t)

	// Only documents decoded from msgpack can carry +Inf
	_, err := engine.Insert("workqueue", domain.Document{workqueue.ElementKey: map[string]interface{}{
		"RequestName": "ReqA", "Status": "Running", "Jobs": math.Inf(1),
	}})
	require.NoError(t, err)
	require.NoError(t, engine.DefineView("workqueue", domain.ViewDefinition{
		Name: "jobStatusByRequest", Map: workqueue.JobStatusByRequestMap,
	}))

	w := do(t, router, "GET", "/collections/workqueue/views/jobStatusByRequest/query", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestHandler_Maps(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, "GET", "/maps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var maps struct {
		Maps []string `json:"maps"`
	}
	decode(t, w, &maps)
	assert.Equal(t, []string{workqueue.JobStatusByRequestMap}, maps.Maps)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		emissions      int
	}{
		{"null jobs", `{"WMCore.WorkQueue.DataStructs.WorkQueueElement.WorkQueueElement": {"RequestName": "ReqA", "Status": "Running", "Jobs": null}}`, http.StatusOK, 1},
		{"negative jobs", `{"WMCore.WorkQueue.DataStructs.WorkQueueElement.WorkQueueElement": {"RequestName": "ReqC", "Status": "Canceled", "Jobs": -1}}`, http.StatusOK, 0},
		{"not an element", `{"type": "other"}`, http.StatusOK, 0},
		{"invalid body", `{`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/maps/WorkQueue/jobStatusByRequest/emit", tt.body)
			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var resp EmitResponse
			decode(t, w, &resp)
			assert.Equal(t, workqueue.JobStatusByRequestMap, resp.Map)
			assert.Len(t, resp.Emissions, tt.emissions)
		})
	}

	w = do(t, router, "POST", "/maps/WorkQueue/unknown/emit", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrCollectionNotFound, http.StatusNotFound},
		{domain.ErrDocumentNotFound, http.StatusNotFound},
		{domain.ErrViewNotFound, http.StatusNotFound},
		{domain.ErrUnknownMapFunction, http.StatusNotFound},
		{domain.ErrCollectionExists, http.StatusConflict},
		{domain.ErrDocumentExists, http.StatusConflict},
		{domain.ErrViewExists, http.StatusConflict},
		{domain.ErrInvalidView, http.StatusBadRequest},
		{domain.ErrInvalidQuery, http.StatusBadRequest},
		{domain.ErrInvalidPagination, http.StatusBadRequest},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}
