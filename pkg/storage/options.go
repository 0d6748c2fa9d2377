package storage

import (
	"time"

	"github.com/adfharrison1/wqdb/pkg/indexing"
)

type StorageOption func(*StorageEngine)

func WithMaxMemory(mb int) StorageOption {
	return func(engine *StorageEngine) {
		engine.maxMemoryMB = mb
	}
}

func WithDataDir(dir string) StorageOption {
	return func(engine *StorageEngine) {
		engine.dataDir = dir
	}
}

func WithBackgroundSave(interval time.Duration) StorageOption {
	return func(engine *StorageEngine) {
		engine.backgroundSave = true
		engine.saveInterval = interval
		engine.transactionSave = false // Disable transaction saves when background saves are enabled
	}
}

// WithTransactionSave enables saving a collection after every write (default: false)
func WithTransactionSave(enabled bool) StorageOption {
	return func(engine *StorageEngine) {
		engine.transactionSave = enabled
	}
}

// WithIndexWorkers sets how many goroutines build a view. Zero means one per CPU.
func WithIndexWorkers(n int) StorageOption {
	return func(engine *StorageEngine) {
		engine.indexWorkers = n
	}
}

// WithRegistry sets the map functions views can refer to
func WithRegistry(registry *indexing.Registry) StorageOption {
	return func(engine *StorageEngine) {
		engine.registry = registry
	}
}
