package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/adfharrison1/wqdb/pkg/api"
	"github.com/adfharrison1/wqdb/pkg/indexing"
	"github.com/adfharrison1/wqdb/pkg/storage"
	"github.com/adfharrison1/wqdb/pkg/workqueue"
)

// RequestIDHeader carries the ID assigned to each request
const RequestIDHeader = "X-Request-ID"

// Server holds references to storage, router, etc.
type Server struct {
	router   *mux.Router
	dbEngine *storage.StorageEngine
}

// NewServer creates a new instance of Server. The WorkQueue map functions are
// always registered.
func NewServer(options ...storage.StorageOption) (*Server, error) {
	registry := indexing.NewRegistry()
	if err := workqueue.RegisterViews(registry); err != nil {
		return nil, err
	}

	options = append([]storage.StorageOption{storage.WithRegistry(registry)}, options...)
	s := &Server{
		router:   mux.NewRouter(),
		dbEngine: storage.NewStorageEngine(options...),
	}

	// Define HTTP routes
	api.NewHandler(s.dbEngine, s.dbEngine).RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})

	return s, nil
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses streaming through the middleware
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestLoggerMiddleware tags each request with an ID and logs the method,
// URL path, status and duration.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s %s -> %d took %s", requestID, r.Method, r.URL.Path, rec.status, elapsed)
	})
}

// InitDB loads collection metadata from the snapshot file and the data directory
func (s *Server) InitDB(filename string) error {
	if err := s.dbEngine.LoadCollectionMetadata(filename); err != nil {
		log.Printf("ERROR: Could not load DB metadata from file %s: %v", filename, err)
		return err
	}
	log.Printf("INFO: Loaded DB metadata from file %s successfully", filename)
	return nil
}

// SaveDB saves the current database state to file
func (s *Server) SaveDB(filename string) error {
	if err := s.dbEngine.SaveToFile(filename); err != nil {
		log.Printf("ERROR: Could not save DB to file %s: %v", filename, err)
		return err
	}
	log.Printf("INFO: Saved DB to file %s successfully", filename)
	return nil
}

// StartBackgroundWorkers starts the storage engine's periodic saves
func (s *Server) StartBackgroundWorkers() {
	s.dbEngine.StartBackgroundWorkers()
}

// StopBackgroundWorkers stops the storage engine's periodic saves
func (s *Server) StopBackgroundWorkers() {
	s.dbEngine.StopBackgroundWorkers()
}

// Engine exposes the storage engine
func (s *Server) Engine() *storage.StorageEngine {
	return s.dbEngine
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}
