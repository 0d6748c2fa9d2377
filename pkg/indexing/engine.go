package indexing

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// IndexEngine keeps the views of every collection up to date
type IndexEngine struct {
	mu       sync.RWMutex
	registry *Registry
	workers  int
	views    map[string]map[string]*View // Collection name -> view name -> view
}

// NewIndexEngine creates a new index engine. Views are built with up to
// workers goroutines; workers < 1 means one per CPU.
func NewIndexEngine(registry *Registry, workers int) *IndexEngine {
	if registry == nil {
		registry = NewRegistry()
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &IndexEngine{
		registry: registry,
		workers:  workers,
		views:    make(map[string]map[string]*View),
	}
}

// Registry returns the map function registry
func (ie *IndexEngine) Registry() *Registry {
	return ie.registry
}

// DefineView creates a view on a collection and builds it from the
// collection's documents.
func (ie *IndexEngine) DefineView(ctx context.Context, collectionName string, def domain.ViewDefinition, collection *domain.Collection) error {
	if err := def.Validate(); err != nil {
		return err
	}
	mapFn, err := ie.registry.resolve(def)
	if err != nil {
		return err
	}

	ie.mu.Lock()
	defer ie.mu.Unlock()

	if ie.views[collectionName] == nil {
		ie.views[collectionName] = make(map[string]*View)
	}
	if _, exists := ie.views[collectionName][def.Name]; exists {
		return fmt.Errorf("%w: view %s in collection %s", domain.ErrViewExists, def.Name, collectionName)
	}

	view := NewView(def, mapFn)
	if collection != nil {
		if err := view.Build(ctx, collection.Documents, ie.workers); err != nil {
			return fmt.Errorf("failed to build view %s: %w", def.Name, err)
		}
	}
	ie.views[collectionName][def.Name] = view
	return nil
}

// DropView removes a view from a collection
func (ie *IndexEngine) DropView(collectionName, viewName string) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if _, exists := ie.views[collectionName][viewName]; !exists {
		return fmt.Errorf("%w: view %s in collection %s", domain.ErrViewNotFound, viewName, collectionName)
	}
	delete(ie.views[collectionName], viewName)
	return nil
}

// GetView returns a view by name
func (ie *IndexEngine) GetView(collectionName, viewName string) (*View, bool) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	view, exists := ie.views[collectionName][viewName]
	return view, exists
}

// GetViews returns the definitions of a collection's views sorted by name
func (ie *IndexEngine) GetViews(collectionName string) []domain.ViewDefinition {
	ie.mu.RLock()
	defer ie.mu.RUnlock()

	defs := make([]domain.ViewDefinition, 0, len(ie.views[collectionName]))
	for _, view := range ie.views[collectionName] {
		defs = append(defs, view.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// FieldIndex returns the field view indexing fieldName, if there is one.
func (ie *IndexEngine) FieldIndex(collectionName, fieldName string) (*View, bool) {
	view, exists := ie.GetView(collectionName, fieldName)
	if !exists || view.Definition().Field != fieldName {
		return nil, false
	}
	return view, true
}

// RebuildCollection rebuilds every view of a collection, e.g. after the
// collection was loaded from disk.
func (ie *IndexEngine) RebuildCollection(ctx context.Context, collectionName string, collection *domain.Collection) error {
	ie.mu.RLock()
	views := make([]*View, 0, len(ie.views[collectionName]))
	for _, view := range ie.views[collectionName] {
		views = append(views, view)
	}
	ie.mu.RUnlock()

	for _, view := range views {
		if err := view.Build(ctx, collection.Documents, ie.workers); err != nil {
			return fmt.Errorf("failed to rebuild view %s: %w", view.Definition().Name, err)
		}
	}
	return nil
}

// UpdateIndexForDocument re-indexes a document in every view of its
// collection. newDoc is nil when the document was deleted.
func (ie *IndexEngine) UpdateIndexForDocument(collectionName, docID string, newDoc domain.Document) {
	ie.mu.RLock()
	defer ie.mu.RUnlock()
	for _, view := range ie.views[collectionName] {
		view.Update(docID, newDoc)
	}
}

// DropCollection forgets every view of a collection
func (ie *IndexEngine) DropCollection(collectionName string) {
	ie.mu.Lock()
	defer ie.mu.Unlock()
	delete(ie.views, collectionName)
}

// ExportDefinitions returns the view definitions of every collection
func (ie *IndexEngine) ExportDefinitions() map[string][]domain.ViewDefinition {
	ie.mu.RLock()
	collections := make([]string, 0, len(ie.views))
	for collName := range ie.views {
		collections = append(collections, collName)
	}
	ie.mu.RUnlock()

	out := make(map[string][]domain.ViewDefinition, len(collections))
	for _, collName := range collections {
		out[collName] = ie.GetViews(collName)
	}
	return out
}

// ImportDefinitions registers empty views for a collection. The views are
// filled by RebuildCollection once the collection's documents are loaded.
// Definitions that already exist are left alone; invalid ones are skipped
// and reported in the returned error.
func (ie *IndexEngine) ImportDefinitions(collectionName string, defs []domain.ViewDefinition) error {
	ie.mu.Lock()
	defer ie.mu.Unlock()

	if ie.views[collectionName] == nil {
		ie.views[collectionName] = make(map[string]*View)
	}
	var errs []error
	for _, def := range defs {
		if _, exists := ie.views[collectionName][def.Name]; exists {
			continue
		}
		if err := def.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		mapFn, err := ie.registry.resolve(def)
		if err != nil {
			errs = append(errs, fmt.Errorf("view %s in collection %s: %w", def.Name, collectionName, err))
			continue
		}
		ie.views[collectionName][def.Name] = NewView(def, mapFn)
	}
	return errors.Join(errs...)
}

// Emit runs a registered map function over a single document.
func (ie *IndexEngine) Emit(mapName string, doc domain.Document) ([]domain.Emission, error) {
	fn, ok := ie.registry.Lookup(mapName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMapFunction, mapName)
	}
	view := NewView(domain.ViewDefinition{Name: mapName, Map: mapName}, fn)
	emitted := view.emit(doc.ID(), doc)
	if emitted == nil {
		emitted = []domain.Emission{}
	}
	return emitted, nil
}
