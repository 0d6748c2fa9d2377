package indexing

import (
	"sync"

	"golang.org/x/text/cases"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// Casers carry state between calls and are not safe for concurrent use.
var folderPool = sync.Pool{
	New: func() interface{} {
		c := cases.Fold()
		return &c
	},
}

// FieldMap returns a map function emitting (doc[field], nil) for documents
// that have the field. Keys are normalized with FieldKey.
func FieldMap(field string) domain.MapFunc {
	return func(doc domain.Document) []domain.Emission {
		val, ok := doc[field]
		if !ok {
			return nil
		}
		return []domain.Emission{{Key: FieldKey(val)}}
	}
}

// FieldKey normalizes a field value the way document filters compare it:
// strings are Unicode case-folded and numbers become float64.
func FieldKey(val interface{}) interface{} {
	if s, ok := val.(string); ok {
		return FoldString(s)
	}
	if n, ok := domain.ToFloat64(val); ok {
		return n
	}
	return val
}

// FoldString returns the Unicode case folding of s. Two strings match
// case-insensitively when their foldings are equal.
func FoldString(s string) string {
	c := folderPool.Get().(*cases.Caser)
	defer folderPool.Put(c)
	return c.String(s)
}
