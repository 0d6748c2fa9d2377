// Package workqueue holds the index map functions over WorkQueue element
// documents.
package workqueue

import (
	"math"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// ElementKey is the document field holding the nested WorkQueue element.
// Existing documents and indexes use this exact name.
const ElementKey = "WMCore.WorkQueue.DataStructs.WorkQueueElement.WorkQueueElement"

// Element field names.
const (
	FieldRequestName = "RequestName"
	FieldStatus      = "Status"
	FieldJobs        = "Jobs"
)

// JobsKind classifies the Jobs field of an element.
type JobsKind int

const (
	JobsAbsent JobsKind = iota // field missing
	JobsNull                   // field present and null
	JobsNumber                 // field holds a number
	JobsOther                  // field holds a string, bool, record or list
)

func (k JobsKind) String() string {
	switch k {
	case JobsAbsent:
		return "absent"
	case JobsNull:
		return "null"
	case JobsNumber:
		return "number"
	default:
		return "other"
	}
}

// Jobs is the Jobs field of an element as a tagged value.
type Jobs struct {
	Kind JobsKind
	N    float64 // set when Kind is JobsNumber
}

// ParseJobs classifies ele["Jobs"].
func ParseJobs(ele map[string]interface{}) Jobs {
	raw, ok := ele[FieldJobs]
	if !ok {
		return Jobs{Kind: JobsAbsent}
	}
	if raw == nil {
		return Jobs{Kind: JobsNull}
	}
	if n, ok := domain.ToFloat64(raw); ok {
		return Jobs{Kind: JobsNumber, N: n}
	}
	return Jobs{Kind: JobsOther}
}

// Admitted reports whether the element takes part in the index. A null Jobs
// is admitted and a missing one is not; numbers must be zero or greater.
func (j Jobs) Admitted() bool {
	switch j.Kind {
	case JobsNull:
		return true
	case JobsNumber:
		return !math.IsNaN(j.N) && j.N >= 0
	default:
		return false
	}
}

// IndexValue is the value emitted for an admitted element: 0 for null Jobs.
func (j Jobs) IndexValue() float64 {
	if j.Kind == JobsNull {
		return 0
	}
	return j.N
}

// ElementOf returns the element record nested in doc. Documents without the
// field, or with a non-record value in it, have no element.
func ElementOf(doc domain.Document) (map[string]interface{}, bool) {
	switch ele := doc[ElementKey].(type) {
	case map[string]interface{}:
		return ele, true
	case domain.Document:
		return ele, true
	default:
		return nil, false
	}
}
