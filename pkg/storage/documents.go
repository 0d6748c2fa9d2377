package storage

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/adfharrison1/wqdb/pkg/indexing"
)

// Insert inserts a document into a collection, creating the collection if
// needed. A document without an _id gets the next numeric ID.
func (se *StorageEngine) Insert(collName string, doc domain.Document) (domain.Document, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, info, err := se.collectionForWrite(collName)
	if err != nil {
		return nil, err
	}

	stored, err := se.insertLocked(collName, collection, doc)
	if err != nil {
		return nil, err
	}
	info.markDirty(1)
	se.saveAfterWrite(collName)

	return stored.Clone(), nil
}

// BatchInsert inserts several documents. Either all of them are inserted or,
// when one of them has a conflicting _id, none is.
func (se *StorageEngine) BatchInsert(collName string, docs []domain.Document) ([]domain.Document, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, info, err := se.collectionForWrite(collName)
	if err != nil {
		return nil, err
	}

	// Every ID is assigned before anything is written, so a conflict leaves
	// the collection untouched.
	ids := make([]string, len(docs))
	seen := make(map[string]bool)
	for i, doc := range docs {
		id, err := documentID(doc)
		if err != nil {
			return nil, err
		}
		if id == "" {
			continue
		}
		if _, exists := collection.Documents[id]; exists || seen[id] {
			return nil, fmt.Errorf("%w: document with id %s already exists in collection %s", domain.ErrDocumentExists, id, collName)
		}
		seen[id] = true
		ids[i] = id
	}
	for i := range ids {
		if ids[i] == "" {
			ids[i] = se.nextID(collName, collection, seen)
			seen[ids[i]] = true
		}
	}

	inserted := make([]domain.Document, 0, len(docs))
	for i, doc := range docs {
		stored := se.storeLocked(collName, collection, ids[i], doc)
		inserted = append(inserted, stored.Clone())
	}
	info.markDirty(int64(len(inserted)))
	se.saveAfterWrite(collName)

	return inserted, nil
}

// BatchUpdate applies several partial updates. Either all of them are applied
// or, when one of the documents does not exist, none is.
func (se *StorageEngine) BatchUpdate(collName string, operations []domain.BatchUpdateOperation) ([]domain.Document, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return nil, err
	}

	for _, op := range operations {
		if _, exists := collection.Documents[op.ID]; !exists {
			return nil, fmt.Errorf("%w: document with id %s not found in collection %s", domain.ErrDocumentNotFound, op.ID, collName)
		}
	}

	updated := make([]domain.Document, 0, len(operations))
	for _, op := range operations {
		doc := mergeUpdates(collection.Documents[op.ID], op.Updates)
		collection.Documents[op.ID] = doc
		se.indexEngine.UpdateIndexForDocument(collName, op.ID, doc)
		updated = append(updated, doc.Clone())
	}

	if info, exists := se.collections[collName]; exists {
		info.markDirty(0)
	}
	se.saveAfterWrite(collName)

	return updated, nil
}

// collectionForWrite returns a collection, creating it when it does not exist.
func (se *StorageEngine) collectionForWrite(collName string) (*domain.Collection, *CollectionInfo, error) {
	if collName == "" {
		return nil, nil, fmt.Errorf("collection name cannot be empty")
	}
	collection, err := se.getCollectionInternal(collName)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		collection, info := se.createCollectionLocked(collName, CollectionStateDirty)
		return collection, info, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return collection, se.collections[collName], nil
}

func (se *StorageEngine) insertLocked(collName string, collection *domain.Collection, doc domain.Document) (domain.Document, error) {
	id, err := documentID(doc)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = se.nextID(collName, collection, nil)
	} else if _, exists := collection.Documents[id]; exists {
		return nil, fmt.Errorf("%w: document with id %s already exists in collection %s", domain.ErrDocumentExists, id, collName)
	}
	return se.storeLocked(collName, collection, id, doc), nil
}

// storeLocked writes a copy of doc under id and indexes it.
func (se *StorageEngine) storeLocked(collName string, collection *domain.Collection, id string, doc domain.Document) domain.Document {
	stored := doc.Clone()
	if stored == nil {
		stored = domain.Document{}
	}
	stored["_id"] = id
	collection.Documents[id] = stored
	se.indexEngine.UpdateIndexForDocument(collName, id, stored)
	return stored
}

// documentID returns the client-supplied _id of a document as a string.
func documentID(doc domain.Document) (string, error) {
	switch id := doc["_id"].(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	default:
		if n, ok := domain.ToFloat64(id); ok && n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10), nil
		}
		return "", fmt.Errorf("_id must be a string or an integer, got %T", id)
	}
}

// nextID returns the next numeric ID of a collection that is neither stored
// nor reserved. The caller must hold the write lock.
func (se *StorageEngine) nextID(collName string, collection *domain.Collection, reserved map[string]bool) string {
	for {
		se.idCounters[collName]++
		id := strconv.FormatInt(se.idCounters[collName], 10)
		if _, taken := collection.Documents[id]; !taken && !reserved[id] {
			return id
		}
	}
}

// GetById retrieves a specific document by its ID
func (se *StorageEngine) GetById(collName, docId string) (domain.Document, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return nil, err
	}

	doc, exists := collection.Documents[docId]
	if !exists {
		return nil, fmt.Errorf("%w: document with id %s not found in collection %s", domain.ErrDocumentNotFound, docId, collName)
	}

	return doc.Clone(), nil
}

// UpdateById merges updates into a document. The _id cannot be changed.
func (se *StorageEngine) UpdateById(collName, docId string, updates domain.Document) (domain.Document, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return nil, err
	}

	doc, exists := collection.Documents[docId]
	if !exists {
		return nil, fmt.Errorf("%w: document with id %s not found in collection %s", domain.ErrDocumentNotFound, docId, collName)
	}

	updated := mergeUpdates(doc, updates)
	se.replaceLocked(collName, collection, docId, updated)
	return updated.Clone(), nil
}

// ReplaceById replaces a document completely, keeping its _id
func (se *StorageEngine) ReplaceById(collName, docId string, doc domain.Document) (domain.Document, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return nil, err
	}

	if _, exists := collection.Documents[docId]; !exists {
		return nil, fmt.Errorf("%w: document with id %s not found in collection %s", domain.ErrDocumentNotFound, docId, collName)
	}

	replacement := doc.Clone()
	if replacement == nil {
		replacement = domain.Document{}
	}
	replacement["_id"] = docId

	se.replaceLocked(collName, collection, docId, replacement)
	return replacement.Clone(), nil
}

// mergeUpdates returns a copy of doc with updates applied. The _id is kept.
func mergeUpdates(doc, updates domain.Document) domain.Document {
	merged := doc.Clone()
	for key, value := range updates.Clone() {
		if key != "_id" { // Prevent updating the document ID
			merged[key] = value
		}
	}
	return merged
}

func (se *StorageEngine) replaceLocked(collName string, collection *domain.Collection, docId string, doc domain.Document) {
	collection.Documents[docId] = doc
	se.indexEngine.UpdateIndexForDocument(collName, docId, doc)

	if info, exists := se.collections[collName]; exists {
		info.markDirty(0)
	}
	se.saveAfterWrite(collName)
}

// DeleteById removes a specific document by its ID
func (se *StorageEngine) DeleteById(collName, docId string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return err
	}

	if _, exists := collection.Documents[docId]; !exists {
		return fmt.Errorf("%w: document with id %s not found in collection %s", domain.ErrDocumentNotFound, docId, collName)
	}

	delete(collection.Documents, docId)
	se.indexEngine.UpdateIndexForDocument(collName, docId, nil)

	if info, exists := se.collections[collName]; exists {
		info.markDirty(-1)
	}
	se.saveAfterWrite(collName)

	return nil
}

// FindAll returns documents that match the given filter criteria
// If filter is nil or empty, returns all documents
func (se *StorageEngine) FindAll(collName string, filter map[string]interface{}, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	if options == nil {
		options = domain.DefaultPaginationOptions()
	}

	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPagination, err)
	}

	docs, err := se.matchingDocuments(collName, filter)
	if err != nil {
		return nil, err
	}

	return se.applyPagination(docs, options)
}

// matchingDocuments returns copies of the documents matching filter, using
// field indexes to narrow the scan when possible.
func (se *StorageEngine) matchingDocuments(collName string, filter map[string]interface{}) ([]domain.Document, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return nil, err
	}

	var out []domain.Document
	var candidateIDs []string
	var useIndex bool

	// Try to use index optimization if filter is present
	if len(filter) > 0 {
		candidateIDs, useIndex = se.optimizeWithIndexes(collName, filter)
	}

	if useIndex {
		for _, docID := range candidateIDs {
			if doc, exists := collection.Documents[docID]; exists && MatchesFilter(doc, filter) {
				out = append(out, doc.Clone())
			}
		}
	} else {
		for _, doc := range collection.Documents {
			if len(filter) == 0 || MatchesFilter(doc, filter) {
				out = append(out, doc.Clone())
			}
		}
	}
	return out, nil
}

// applyPagination applies pagination to a slice of documents
func (se *StorageEngine) applyPagination(docs []domain.Document, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	sortByID(docs)

	// Handle cursor-based pagination
	if options.After != "" || options.Before != "" {
		return se.applyCursorPagination(docs, options)
	}

	// Handle offset-based pagination
	return se.applyOffsetPagination(docs, options)
}

// applyCursorPagination applies cursor-based pagination
func (se *StorageEngine) applyCursorPagination(docs []domain.Document, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	result := &domain.PaginationResult{
		Documents: []domain.Document{},
		Total:     int64(len(docs)),
	}

	startIndex := 0
	endIndex := len(docs)

	if options.After != "" {
		cursor, err := domain.DecodeCursor(options.After)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid after cursor: %v", domain.ErrInvalidPagination, err)
		}

		// Find the index after the cursor
		for i, doc := range docs {
			if doc.ID() == cursor.ID {
				startIndex = i + 1
				break
			}
		}
	}

	if options.Before != "" {
		cursor, err := domain.DecodeCursor(options.Before)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid before cursor: %v", domain.ErrInvalidPagination, err)
		}

		// Find the index before the cursor
		for i, doc := range docs {
			if doc.ID() == cursor.ID {
				endIndex = i
				break
			}
		}
	}

	limit := options.EffectiveLimit()
	if startIndex+limit < endIndex {
		endIndex = startIndex + limit
		result.HasNext = true
	}
	result.HasPrev = startIndex > 0

	if startIndex < endIndex {
		result.Documents = docs[startIndex:endIndex]
	}
	setCursors(result)

	return result, nil
}

// applyOffsetPagination applies offset-based pagination
func (se *StorageEngine) applyOffsetPagination(docs []domain.Document, options *domain.PaginationOptions) (*domain.PaginationResult, error) {
	result := &domain.PaginationResult{
		Documents: []domain.Document{},
		Total:     int64(len(docs)),
	}

	startIndex := options.Offset
	endIndex := startIndex + options.EffectiveLimit()

	// Check bounds
	if startIndex >= len(docs) {
		return result, nil
	}

	if endIndex >= len(docs) {
		endIndex = len(docs)
	} else {
		result.HasNext = true
	}
	result.HasPrev = startIndex > 0

	result.Documents = docs[startIndex:endIndex]
	setCursors(result)

	return result, nil
}

func setCursors(result *domain.PaginationResult) {
	if len(result.Documents) == 0 {
		return
	}
	if result.HasNext {
		result.NextCursor = domain.CursorFor(result.Documents[len(result.Documents)-1].ID())
	}
	if result.HasPrev {
		result.PrevCursor = domain.CursorFor(result.Documents[0].ID())
	}
}

// sortByID orders documents by _id, numerically when both IDs are integers.
func sortByID(docs []domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		return lessID(docs[i].ID(), docs[j].ID())
	})
}

func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true // numeric IDs first
	case errB == nil:
		return false
	}
	return a < b
}

// optimizeWithIndexes attempts to use available indexes to optimize the query
// Returns candidate document IDs and whether index optimization was used
func (se *StorageEngine) optimizeWithIndexes(collName string, filter map[string]interface{}) ([]string, bool) {
	var indexResults [][]string

	for fieldName, expectedValue := range filter {
		if view, exists := se.indexEngine.FieldIndex(collName, fieldName); exists {
			indexResults = append(indexResults, view.LookupIDs(indexing.FieldKey(expectedValue)))
		}
	}

	// If no indexes are available, fall back to full scan
	if len(indexResults) == 0 {
		return nil, false
	}

	return IntersectStringSlices(indexResults...), true
}
