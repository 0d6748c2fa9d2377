package storage

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"net/url"
	"strconv"
	"time"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// SaveToFile writes every collection and its view definitions to a single
// snapshot file.
func (se *StorageEngine) SaveToFile(filename string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	storageData := NewStorageData()
	storageData.SavedAt = time.Now().UnixNano()

	for collName, info := range se.collections {
		docs, err := se.documentsForSnapshot(collName, info)
		if err != nil {
			return fmt.Errorf("failed to read collection %s: %w", collName, err)
		}
		storageData.Collections[collName] = docs
		storageData.Views[collName] = se.indexEngine.GetViews(collName)
	}

	size, err := writeStorageFile(filename, storageData)
	if err != nil {
		return err
	}

	// The snapshot is now the newest copy of every collection
	for collName, info := range se.collections {
		info.source = filename
		info.savedAt = storageData.SavedAt
		if info.State == CollectionStateDirty {
			info.State = CollectionStateLoaded
		}
		if se.cache.release(collName) {
			info.State = CollectionStateUnloaded
		}
	}

	log.Printf("INFO: Saved %d collections to %s (%d bytes)", len(storageData.Collections), filename, size)
	return nil
}

// documentsForSnapshot returns a collection's documents without pulling an
// unloaded collection into the cache.
func (se *StorageEngine) documentsForSnapshot(collName string, info *CollectionInfo) (map[string]interface{}, error) {
	collection, _, found := se.cache.Get(collName)
	if !found {
		var err error
		collection, err = se.loadCollectionFromDisk(collName, info.source)
		if err != nil {
			return nil, err
		}
	}

	docs := make(map[string]interface{}, len(collection.Documents))
	for docID, doc := range collection.Documents {
		docs[docID] = map[string]interface{}(doc)
	}
	return docs, nil
}

// LoadCollectionMetadata registers the collections found in a snapshot file
// and in the per-collection files of the data directory. Documents stay on
// disk until a collection is first used; for each collection the most
// recently saved copy wins.
func (se *StorageEngine) LoadCollectionMetadata(filename string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.dataFile = filename

	snapshot, err := readStorageFile(filename)
	switch {
	case err == nil:
		se.registerCollections(filename, snapshot)
	case os.IsNotExist(err):
		// No snapshot yet
	default:
		return err
	}

	files, err := filepath.Glob(filepath.Join(se.collectionsDir(), "*"+FileExtension))
	if err != nil {
		return fmt.Errorf("failed to list collection files: %w", err)
	}
	for _, path := range files {
		data, err := readStorageFile(path)
		if err != nil {
			log.Printf("WARN: Skipping unreadable collection file %s: %v", path, err)
			continue
		}
		se.registerCollections(path, data)
	}

	return nil
}

// registerCollections records the collections of one file, keeping whichever
// copy of a collection was saved last.
func (se *StorageEngine) registerCollections(path string, data *StorageData) {
	for collName, docs := range data.Collections {
		info, exists := se.collections[collName]
		if exists {
			if _, _, cached := se.cache.Get(collName); cached || info.savedAt >= data.SavedAt {
				continue
			}
		} else {
			info = &CollectionInfo{Name: collName}
			se.collections[collName] = info
		}

		info.State = CollectionStateUnloaded
		info.DocumentCount = int64(len(docs))
		info.LastModified = time.Unix(0, data.SavedAt)
		info.source = path
		info.savedAt = data.SavedAt

		if err := se.indexEngine.ImportDefinitions(collName, data.Views[collName]); err != nil {
			log.Printf("ERROR: Could not restore views for collection '%s': %v", collName, err)
		}
	}
}

// loadCollectionFromDisk reads a collection from the file it was last saved to.
// Collections that were never saved load empty.
func (se *StorageEngine) loadCollectionFromDisk(collName, source string) (*domain.Collection, error) {
	collection := domain.NewCollection(collName)
	if source == "" {
		return collection, nil
	}

	data, err := readStorageFile(source)
	if err != nil {
		return nil, err
	}
	docs, exists := data.Collections[collName]
	if !exists {
		return nil, fmt.Errorf("collection %s not found in %s", collName, source)
	}

	// Track the highest numeric ID to restore the counter properly
	maxID := int64(0)
	for docID, docData := range docs {
		doc, ok := docData.(map[string]interface{})
		if !ok {
			log.Printf("WARN: Skipping malformed document '%s' in collection '%s'", docID, collName)
			continue
		}
		collection.Documents[docID] = domain.Document(doc)
		if id, err := strconv.ParseInt(docID, 10, 64); err == nil && id > maxID {
			maxID = id
		}
	}
	if maxID > se.idCounters[collName] {
		se.idCounters[collName] = maxID
	}

	log.Printf("INFO: Loaded collection '%s' with %d documents from %s, restored ID counter to %d",
		collName, len(collection.Documents), source, maxID)

	return collection, nil
}

// saveDirtyCollections saves all dirty collections to their collection files
func (se *StorageEngine) saveDirtyCollections() {
	start := time.Now()
	savedCount := 0
	errorCount := 0

	se.mu.Lock()
	defer se.mu.Unlock()

	for collName, info := range se.collections {
		if info.State != CollectionStateDirty {
			continue
		}
		if err := se.saveCollectionLocked(collName); err != nil {
			log.Printf("ERROR: Failed to save collection %s: %v", collName, err)
			errorCount++
		} else {
			savedCount++
		}
	}

	if savedCount == 0 && errorCount == 0 {
		log.Printf("DEBUG: No dirty collections to save")
		return
	}

	elapsed := time.Since(start)
	if errorCount > 0 {
		log.Printf("WARN: Background save completed with errors - saved: %d, errors: %d, time: %v",
			savedCount, errorCount, elapsed)
	} else {
		log.Printf("INFO: Background save completed successfully - saved: %d collections in %v",
			savedCount, elapsed)
	}
}

// saveCollectionLocked writes a cached collection to its collection file.
// The caller must hold the write lock.
func (se *StorageEngine) saveCollectionLocked(collName string) error {
	collection, info, found := se.cache.Get(collName)
	if !found {
		return fmt.Errorf("collection %s not found in cache", collName)
	}
	if err := se.writeCollectionFile(collName, collection, info); err != nil {
		return err
	}
	info.State = CollectionStateLoaded
	if se.cache.release(collName) {
		info.State = CollectionStateUnloaded
	}
	return nil
}

// saveAfterWrite saves a collection when transaction saves are enabled. A
// failed save leaves the collection dirty for the next attempt.
func (se *StorageEngine) saveAfterWrite(collName string) {
	if !se.transactionSave {
		return
	}
	if err := se.saveCollectionLocked(collName); err != nil {
		log.Printf("WARN: Failed to save collection '%s' after write: %v", collName, err)
	}
}

// writeCollectionFile writes one collection and its view definitions to
// <dataDir>/collections/<name>.wqdb and points the metadata at it.
func (se *StorageEngine) writeCollectionFile(collName string, collection *domain.Collection, info *CollectionInfo) error {
	storageData := NewStorageData()
	storageData.SavedAt = time.Now().UnixNano()
	docs := make(map[string]interface{}, len(collection.Documents))
	for docID, doc := range collection.Documents {
		docs[docID] = map[string]interface{}(doc)
	}
	storageData.Collections[collName] = docs
	storageData.Views[collName] = se.indexEngine.GetViews(collName)

	if err := os.MkdirAll(se.collectionsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create collections directory: %w", err)
	}

	path := se.collectionPath(collName)
	size, err := writeStorageFile(path, storageData)
	if err != nil {
		return err
	}

	info.source = path
	info.savedAt = storageData.SavedAt
	info.SizeOnDisk = size

	log.Printf("DEBUG: Saved collection %s (%d bytes compressed)", collName, size)
	return nil
}

func (se *StorageEngine) collectionsDir() string {
	return filepath.Join(se.dataDir, "collections")
}

func (se *StorageEngine) collectionPath(collName string) string {
	// Collection names come from URLs. Escaping keeps them inside the
	// directory and gives distinct names distinct files.
	return filepath.Join(se.collectionsDir(), url.PathEscape(collName)+FileExtension)
}

// writeStorageFile writes data to a temporary file and renames it into place.
func writeStorageFile(filename string, data *StorageData) (int64, error) {
	tempFile := filename + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriter(file)
	if err := EncodeStorageData(w, data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return 0, err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return 0, fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile) // Clean up temp file
		return 0, fmt.Errorf("failed to rename file: %w", err)
	}

	stat, err := os.Stat(filename)
	if err != nil {
		return 0, nil
	}
	return stat.Size(), nil
}

// readStorageFile decodes a snapshot or collection file.
func readStorageFile(filename string) (*StorageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return DecodeStorageData(bufio.NewReader(file))
}
