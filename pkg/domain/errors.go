package domain

import "errors"

// Sentinel errors shared by the storage engine, the index engine and the API.
// Callers wrap them with context and match them with errors.Is.
var (
	ErrCollectionNotFound = errors.New("collection does not exist")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDocumentExists     = errors.New("document already exists")
	ErrViewNotFound       = errors.New("view does not exist")
	ErrViewExists         = errors.New("view already exists")
	ErrUnknownMapFunction = errors.New("unknown map function")
	ErrInvalidView        = errors.New("invalid view definition")
	ErrInvalidQuery       = errors.New("invalid view query")
	ErrInvalidPagination  = errors.New("invalid pagination options")
)
