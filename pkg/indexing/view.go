package indexing

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// buildChunkSize is the number of documents mapped per build task.
const buildChunkSize = 256

type row struct {
	key   interface{}
	id    string
	value interface{}
}

// View is an ordered index of the emissions of one map function over one
// collection. Rows are kept sorted by key collation, then document ID.
type View struct {
	mu    sync.RWMutex
	def   domain.ViewDefinition
	mapFn domain.MapFunc
	rows  []row
	byDoc map[string][]interface{} // doc ID -> keys it emitted
}

// NewView creates an empty view.
func NewView(def domain.ViewDefinition, mapFn domain.MapFunc) *View {
	return &View{
		def:   def,
		mapFn: mapFn,
		byDoc: make(map[string][]interface{}),
	}
}

// Definition returns the view's definition.
func (v *View) Definition() domain.ViewDefinition {
	return v.def
}

// Len returns the number of rows in the view.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.rows)
}

// emit runs the map function. A panicking map function indexes nothing for
// the document.
func (v *View) emit(docID string, doc domain.Document) (out []domain.Emission) {
	if doc == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Map function for view '%s' failed on document '%s': %v", v.def.Name, docID, r)
			out = nil
		}
	}()
	return v.mapFn(doc)
}

func (v *View) rowsFor(docID string, doc domain.Document) []row {
	emitted := v.emit(docID, doc)
	if len(emitted) == 0 {
		return nil
	}
	rows := make([]row, len(emitted))
	for i, e := range emitted {
		rows[i] = row{key: e.Key, id: docID, value: e.Value}
	}
	return rows
}

// Build replaces the view's contents with the emissions of docs. Documents
// are mapped concurrently by up to workers goroutines.
func (v *View) Build(ctx context.Context, docs map[string]domain.Document, workers int) error {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if workers < 1 {
		workers = 1
	}

	chunks := (len(ids) + buildChunkSize - 1) / buildChunkSize
	results := make([][]row, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		c := c
		start := c * buildChunkSize
		end := start + buildChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		g.Go(func() error {
			var out []row
			for _, id := range ids[start:end] {
				if err := gctx.Err(); err != nil {
					return err
				}
				out = append(out, v.rowsFor(id, docs[id])...)
			}
			results[c] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []row
	byDoc := make(map[string][]interface{})
	for _, chunk := range results {
		for _, r := range chunk {
			all = append(all, r)
			byDoc[r.id] = append(byDoc[r.id], r.key)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return compareRow(all[i], all[j].key, all[j].id) < 0
	})

	v.mu.Lock()
	v.rows = all
	v.byDoc = byDoc
	v.mu.Unlock()
	return nil
}

// Update re-indexes one document. A nil doc removes the document's rows.
func (v *View) Update(docID string, doc domain.Document) {
	fresh := v.rowsFor(docID, doc)

	v.mu.Lock()
	defer v.mu.Unlock()

	v.removeLocked(docID)
	if len(fresh) == 0 {
		return
	}
	keys := make([]interface{}, 0, len(fresh))
	for _, r := range fresh {
		idx := sort.Search(len(v.rows), func(i int) bool {
			return compareRow(v.rows[i], r.key, r.id) > 0
		})
		v.rows = append(v.rows, row{})
		copy(v.rows[idx+1:], v.rows[idx:])
		v.rows[idx] = r
		keys = append(keys, r.key)
	}
	v.byDoc[docID] = keys
}

func (v *View) removeLocked(docID string) {
	keys, ok := v.byDoc[docID]
	if !ok {
		return
	}
	for _, key := range keys {
		idx := sort.Search(len(v.rows), func(i int) bool {
			return compareRow(v.rows[i], key, docID) >= 0
		})
		end := idx
		for end < len(v.rows) && v.rows[end].id == docID && Compare(v.rows[end].key, key) == 0 {
			end++
		}
		v.rows = append(v.rows[:idx], v.rows[end:]...)
	}
	delete(v.byDoc, docID)
}

// Query returns the rows selected by q. Docs are not attached.
func (v *View) Query(q *domain.ViewQuery) *domain.ViewResult {
	v.mu.RLock()
	defer v.mu.RUnlock()

	lo, hi := v.boundsLocked(q)
	result := &domain.ViewResult{
		TotalRows: len(v.rows),
		Rows:      []domain.ViewRow{},
	}
	if lo >= hi {
		if q.Descending {
			result.Offset = len(v.rows) - hi
		} else {
			result.Offset = lo
		}
		return result
	}

	selected := make([]row, 0, hi-lo)
	if q.Descending {
		result.Offset = len(v.rows) - hi
		for i := hi - 1; i >= lo; i-- {
			selected = append(selected, v.rows[i])
		}
	} else {
		result.Offset = lo
		selected = append(selected, v.rows[lo:hi]...)
	}

	if q.Skip > 0 {
		if q.Skip >= len(selected) {
			selected = nil
		} else {
			selected = selected[q.Skip:]
		}
		result.Offset += q.Skip
	}
	if q.Limit > 0 && len(selected) > q.Limit {
		selected = selected[:q.Limit]
	}

	for _, r := range selected {
		result.Rows = append(result.Rows, domain.ViewRow{ID: r.id, Key: r.key, Value: r.value})
	}
	return result
}

// boundsLocked returns the half-open row range [lo, hi) selected by the key
// options of q. With Descending, StartKey is the upper bound.
func (v *View) boundsLocked(q *domain.ViewQuery) (int, int) {
	n := len(v.rows)
	firstAtLeast := func(key interface{}) int {
		return sort.Search(n, func(i int) bool { return Compare(v.rows[i].key, key) >= 0 })
	}
	firstAbove := func(key interface{}) int {
		return sort.Search(n, func(i int) bool { return Compare(v.rows[i].key, key) > 0 })
	}

	if q.KeySet {
		return firstAtLeast(q.Key), firstAbove(q.Key)
	}

	lo, hi := 0, n
	lowKey, lowSet := q.StartKey, q.StartKeySet
	highKey, highSet := q.EndKey, q.EndKeySet
	if q.Descending {
		lowKey, lowSet, highKey, highSet = q.EndKey, q.EndKeySet, q.StartKey, q.StartKeySet
	}

	if lowSet {
		if q.Descending && !q.InclusiveEnd {
			lo = firstAbove(lowKey)
		} else {
			lo = firstAtLeast(lowKey)
		}
	}
	if highSet {
		if !q.Descending && !q.InclusiveEnd {
			hi = firstAtLeast(highKey)
		} else {
			hi = firstAbove(highKey)
		}
	}
	return lo, hi
}

// LookupIDs returns the IDs of documents that emitted key, in index order.
func (v *View) LookupIDs(key interface{}) []string {
	result := v.Query(domain.NewViewQuery().WithKey(key))
	ids := make([]string, 0, len(result.Rows))
	for _, r := range result.Rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func compareRow(r row, key interface{}, id string) int {
	if c := Compare(r.key, key); c != 0 {
		return c
	}
	return strings.Compare(r.id, id)
}
