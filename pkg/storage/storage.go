package storage

import (
	"sync"
	"time"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/adfharrison1/wqdb/pkg/indexing"
)

// StorageEngine is an in-memory document store with LRU-cached collections,
// lazy loading from disk, and views kept up to date on every write.
type StorageEngine struct {
	mu          sync.RWMutex
	cache       *collectionCache
	collections map[string]*CollectionInfo // Collection metadata (always in memory)
	indexEngine *indexing.IndexEngine
	registry    *indexing.Registry

	// Configuration
	maxMemoryMB     int
	dataDir         string
	dataFile        string // Snapshot file loaded by LoadCollectionMetadata
	backgroundSave  bool
	transactionSave bool
	saveInterval    time.Duration
	indexWorkers    int

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once

	// Per-collection ID counters, guarded by mu
	idCounters map[string]int64
}

// NewStorageEngine creates a new storage engine
func NewStorageEngine(options ...StorageOption) *StorageEngine {
	engine := &StorageEngine{
		collections:     make(map[string]*CollectionInfo),
		idCounters:      make(map[string]int64),
		maxMemoryMB:     1024, // 1GB default
		dataDir:         ".",
		backgroundSave:  false,
		transactionSave: false,
		saveInterval:    5 * time.Minute,
		stopChan:        make(chan struct{}),
	}

	// Apply options
	for _, option := range options {
		option(engine)
	}

	if engine.registry == nil {
		engine.registry = indexing.NewRegistry()
	}
	engine.indexEngine = indexing.NewIndexEngine(engine.registry, engine.indexWorkers)

	// Rough estimate: 100MB per collection
	capacity := engine.maxMemoryMB / 100
	if capacity < 1 {
		capacity = 1
	}
	engine.cache = newCollectionCache(capacity, engine.onEvict)

	return engine
}

// GetIndexEngine returns the index engine instance
func (se *StorageEngine) GetIndexEngine() *indexing.IndexEngine {
	return se.indexEngine
}

// IsTransactionSaveEnabled returns whether transaction-based saves are enabled
func (se *StorageEngine) IsTransactionSaveEnabled() bool {
	return se.transactionSave
}

// DataDir returns the directory collection files are written to
func (se *StorageEngine) DataDir() string {
	return se.dataDir
}

var _ domain.DatabaseEngine = (*StorageEngine)(nil)
