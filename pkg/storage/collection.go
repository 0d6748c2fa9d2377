package storage

import (
	"time"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

type CollectionState int

const (
	CollectionStateUnloaded CollectionState = iota
	CollectionStateLoading
	CollectionStateLoaded
	CollectionStateDirty
)

func (s CollectionState) String() string {
	switch s {
	case CollectionStateUnloaded:
		return "unloaded"
	case CollectionStateLoading:
		return "loading"
	case CollectionStateLoaded:
		return "loaded"
	case CollectionStateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

type CollectionInfo struct {
	Name          string
	DocumentCount int64
	SizeOnDisk    int64
	LastModified  time.Time
	State         CollectionState
	AccessCount   int64
	LastAccessed  time.Time

	source  string // file holding the newest saved copy
	savedAt int64  // SavedAt of that file
}

// Collection wraps domain.Collection for storage-specific functionality
type Collection = domain.Collection

// Document wraps domain.Document for storage-specific functionality
type Document = domain.Document

// NewCollection creates a new collection
func NewCollection(name string) *Collection {
	return domain.NewCollection(name)
}

func (info *CollectionInfo) markDirty(delta int64) {
	info.State = CollectionStateDirty
	info.DocumentCount += delta
	info.LastModified = time.Now()
}
