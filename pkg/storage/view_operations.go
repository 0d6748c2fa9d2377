package storage

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// DefineView creates a view on an existing collection and builds it from the
// collection's current documents
func (se *StorageEngine) DefineView(collName string, def domain.ViewDefinition) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return err
	}

	if err := se.indexEngine.DefineView(context.Background(), collName, def, collection); err != nil {
		return err
	}

	// View definitions are saved alongside the documents
	if info, exists := se.collections[collName]; exists {
		info.markDirty(0)
	}
	se.saveAfterWrite(collName)

	log.Printf("INFO: Defined view '%s' on collection '%s'", def.Name, collName)
	return nil
}

// DropView removes a view from a collection
func (se *StorageEngine) DropView(collName, viewName string) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	info, exists := se.collections[collName]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	if err := se.indexEngine.DropView(collName, viewName); err != nil {
		return err
	}

	if _, _, cached := se.cache.Get(collName); cached {
		info.markDirty(0)
		se.saveAfterWrite(collName)
	}
	return nil
}

// GetViews returns the view definitions of a collection
func (se *StorageEngine) GetViews(collName string) ([]domain.ViewDefinition, error) {
	se.mu.RLock()
	defer se.mu.RUnlock()

	if _, exists := se.collections[collName]; !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	return se.indexEngine.GetViews(collName), nil
}

// QueryView returns the rows of a view selected by query. With IncludeDocs,
// each row carries a copy of its source document.
func (se *StorageEngine) QueryView(collName, viewName string, query *domain.ViewQuery) (*domain.ViewResult, error) {
	if query == nil {
		query = domain.NewViewQuery()
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	se.mu.Lock()
	defer se.mu.Unlock()

	// Loading the collection also fills its views
	collection, err := se.getCollectionInternal(collName)
	if err != nil {
		return nil, err
	}

	view, exists := se.indexEngine.GetView(collName, viewName)
	if !exists {
		return nil, fmt.Errorf("%w: view %s in collection %s", domain.ErrViewNotFound, viewName, collName)
	}

	result := view.Query(query)
	if query.IncludeDocs {
		for i := range result.Rows {
			if doc, ok := collection.Documents[result.Rows[i].ID]; ok {
				result.Rows[i].Doc = doc.Clone()
			}
		}
	}
	return result, nil
}

// CreateIndex creates a field index, a view named after the field that
// emits the field's value for every document having it
func (se *StorageEngine) CreateIndex(collName, fieldName string) error {
	if fieldName == "" {
		return fmt.Errorf("%w: field name cannot be empty", domain.ErrInvalidView)
	}
	return se.DefineView(collName, domain.ViewDefinition{Name: fieldName, Field: fieldName})
}

// DropIndex removes a field index
func (se *StorageEngine) DropIndex(collName, fieldName string) error {
	se.mu.RLock()
	_, isIndex := se.indexEngine.FieldIndex(collName, fieldName)
	se.mu.RUnlock()

	if !isIndex {
		return fmt.Errorf("%w: index on field %s in collection %s", domain.ErrViewNotFound, fieldName, collName)
	}
	return se.DropView(collName, fieldName)
}

// GetIndexes returns the indexed fields of a collection, sorted
func (se *StorageEngine) GetIndexes(collName string) ([]string, error) {
	defs, err := se.GetViews(collName)
	if err != nil {
		return nil, err
	}

	fields := []string{}
	for _, def := range defs {
		if def.IsFieldIndex() {
			fields = append(fields, def.Field)
		}
	}
	sort.Strings(fields)
	return fields, nil
}

// MapFunctions returns the names of the registered map functions
func (se *StorageEngine) MapFunctions() []string {
	return se.registry.Names()
}

// Emit runs a registered map function over a document without storing it
func (se *StorageEngine) Emit(mapName string, doc domain.Document) ([]domain.Emission, error) {
	return se.indexEngine.Emit(mapName, doc)
}
