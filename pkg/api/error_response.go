package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// statusFor maps an engine error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrViewNotFound),
		errors.Is(err, domain.ErrUnknownMapFunction):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCollectionExists),
		errors.Is(err, domain.ErrDocumentExists),
		errors.Is(err, domain.ErrViewExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidView),
		errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrInvalidPagination):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs a failed operation and writes its JSON error response
func writeError(w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s failed: %v", operation, err)
	} else {
		log.Printf("WARN: %s failed: %v", operation, err)
	}
	WriteJSONError(w, status, err.Error())
}

// writeJSON writes v as a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	// Encode first so an unencodable value (such as +Inf) becomes an error
	// response instead of a truncated body
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "Response could not be encoded as JSON")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}
