package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// GetCollection returns a copy of a collection, loading it from disk if needed
func (se *StorageEngine) GetCollection(collName string) (*domain.Collection, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return nil, err
	}
	snapshot := domain.NewCollection(collName)
	for id, doc := range collection.Documents {
		snapshot.Documents[id] = doc.Clone()
	}
	return snapshot, nil
}

// getCollectionInternal returns a cached collection or loads it from disk.
// The caller must hold the write lock.
func (se *StorageEngine) getCollectionInternal(collName string) (*domain.Collection, error) {
	// First check cache
	if collection, info, found := se.cache.Get(collName); found {
		info.AccessCount++
		info.LastAccessed = time.Now()
		return collection, nil
	}

	// Check if collection exists in metadata
	info, exists := se.collections[collName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}

	info.State = CollectionStateLoading
	collection, err := se.loadCollectionFromDisk(collName, info.source)
	if err != nil {
		info.State = CollectionStateUnloaded
		return nil, fmt.Errorf("failed to load collection %s: %w", collName, err)
	}

	// Views of an unloaded collection are empty until its documents are back
	if err := se.indexEngine.RebuildCollection(context.Background(), collName, collection); err != nil {
		log.Printf("ERROR: Failed to rebuild views for collection '%s': %v", collName, err)
	}

	info.State = CollectionStateLoaded
	info.DocumentCount = int64(len(collection.Documents))
	info.AccessCount++
	info.LastAccessed = time.Now()
	se.cache.Put(collName, collection, info)

	return collection, nil
}

// createCollectionLocked registers an empty collection. The caller must hold
// the write lock.
func (se *StorageEngine) createCollectionLocked(collName string, state CollectionState) (*domain.Collection, *CollectionInfo) {
	collection := domain.NewCollection(collName)
	info := &CollectionInfo{
		Name:         collName,
		State:        state,
		LastModified: time.Now(),
	}
	se.collections[collName] = info
	se.cache.Put(collName, collection, info)
	return collection, info
}

// CreateCollection creates a new collection
func (se *StorageEngine) CreateCollection(collName string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	if collName == "" {
		return fmt.Errorf("collection name cannot be empty")
	}

	if _, exists := se.collections[collName]; exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionExists, collName)
	}

	se.createCollectionLocked(collName, CollectionStateLoaded)
	log.Printf("INFO: Created collection '%s'", collName)
	return nil
}

// DropCollection removes a collection, its views and its collection file
func (se *StorageEngine) DropCollection(collName string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	info, exists := se.collections[collName]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}

	// Clean entries are dropped by the eviction hook without being saved
	info.State = CollectionStateUnloaded
	se.cache.Remove(collName)
	delete(se.collections, collName)
	delete(se.idCounters, collName)
	se.indexEngine.DropCollection(collName)

	if err := os.Remove(se.collectionPath(collName)); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: Could not remove file for dropped collection '%s': %v", collName, err)
	}

	log.Printf("INFO: Dropped collection '%s'", collName)
	return nil
}

// ListCollections returns the names of all collections, sorted
func (se *StorageEngine) ListCollections() []string {
	se.mu.RLock()
	defer se.mu.RUnlock()

	names := make([]string, 0, len(se.collections))
	for name := range se.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectionInfo returns a copy of a collection's metadata
func (se *StorageEngine) CollectionInfo(collName string) (CollectionInfo, bool) {
	se.mu.RLock()
	defer se.mu.RUnlock()
	info, exists := se.collections[collName]
	if !exists {
		return CollectionInfo{}, false
	}
	return *info, true
}

// onEvict writes a dirty collection to its file when the cache drops it, so
// that the next access can load it back. A collection that cannot be written
// stays in memory and dirty; the next successful save releases it.
func (se *StorageEngine) onEvict(collName string, entry *cacheEntry) {
	if entry.info.State != CollectionStateDirty {
		entry.info.State = CollectionStateUnloaded
		return
	}
	if err := se.writeCollectionFile(collName, entry.collection, entry.info); err != nil {
		log.Printf("ERROR: Failed to save evicted collection '%s', keeping it in memory: %v", collName, err)
		se.cache.hold(collName, entry)
		return
	}
	entry.info.State = CollectionStateUnloaded
	log.Printf("DEBUG: Evicted collection '%s' from cache", collName)
}
