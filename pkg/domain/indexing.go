package domain

import "fmt"

// Emission is a single (key, value) pair produced by a map function.
type Emission struct {
	Key   interface{} `json:"key"`
	Value interface{} `json:"value"`
}

// MapFunc turns one document into zero or more index emissions. Map functions
// must be pure: the same document always yields the same emissions.
type MapFunc func(doc Document) []Emission

// ViewRow is an emission stored in a view, tagged with its source document.
type ViewRow struct {
	ID    string      `json:"id"`
	Key   interface{} `json:"key"`
	Value interface{} `json:"value"`
	Doc   Document    `json:"doc,omitempty"`
}

// ViewDefinition describes a view on a collection. Exactly one of Map (a
// registered map function name) or Field (a field index) is set.
type ViewDefinition struct {
	Name  string `json:"name" msgpack:"name"`
	Map   string `json:"map,omitempty" msgpack:"map,omitempty"`
	Field string `json:"field,omitempty" msgpack:"field,omitempty"`
}

// IsFieldIndex reports whether the view indexes a single document field.
func (d ViewDefinition) IsFieldIndex() bool {
	return d.Field != ""
}

// Validate checks that the definition names a view and exactly one source.
func (d ViewDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: view name cannot be empty", ErrInvalidView)
	}
	if d.Map == "" && d.Field == "" {
		return fmt.Errorf("%w: view %s needs a map function or a field", ErrInvalidView, d.Name)
	}
	if d.Map != "" && d.Field != "" {
		return fmt.Errorf("%w: view %s cannot have both a map function and a field", ErrInvalidView, d.Name)
	}
	return nil
}

// ViewQuery selects rows from a view. Key, StartKey and EndKey may
// legitimately be nil (JSON null), so each carries a flag saying it was set.
type ViewQuery struct {
	Key          interface{}
	KeySet       bool
	StartKey     interface{}
	StartKeySet  bool
	EndKey       interface{}
	EndKeySet    bool
	InclusiveEnd bool
	Descending   bool
	Skip         int
	Limit        int // 0 means no limit
	IncludeDocs  bool
}

// NewViewQuery returns a query over the whole view in ascending order.
func NewViewQuery() *ViewQuery {
	return &ViewQuery{InclusiveEnd: true}
}

// WithKey restricts the query to rows whose key equals key.
func (q *ViewQuery) WithKey(key interface{}) *ViewQuery {
	q.Key = key
	q.KeySet = true
	return q
}

// WithRange restricts the query to keys between start and end.
func (q *ViewQuery) WithRange(start, end interface{}) *ViewQuery {
	q.StartKey, q.StartKeySet = start, true
	q.EndKey, q.EndKeySet = end, true
	return q
}

// Validate validates the query options
func (q *ViewQuery) Validate() error {
	if q.Skip < 0 {
		return fmt.Errorf("%w: skip cannot be negative", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", ErrInvalidQuery)
	}
	if q.KeySet && (q.StartKeySet || q.EndKeySet) {
		return fmt.Errorf("%w: key cannot be combined with startkey or endkey", ErrInvalidQuery)
	}
	return nil
}

// ViewResult is the response to a view query.
type ViewResult struct {
	TotalRows int       `json:"total_rows"`
	Offset    int       `json:"offset"`
	Rows      []ViewRow `json:"rows"`
}

// ViewEngine defines the interface for view and index operations
type ViewEngine interface {
	DefineView(collName string, def ViewDefinition) error
	DropView(collName, viewName string) error
	GetViews(collName string) ([]ViewDefinition, error)
	QueryView(collName, viewName string, query *ViewQuery) (*ViewResult, error)

	// Field indexes are views that emit a single field's value.
	CreateIndex(collName, fieldName string) error
	DropIndex(collName, fieldName string) error
	GetIndexes(collName string) ([]string, error)

	MapFunctions() []string
	Emit(mapName string, doc Document) ([]Emission, error)
}
