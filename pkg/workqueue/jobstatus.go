package workqueue

import (
	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/adfharrison1/wqdb/pkg/indexing"
)

const (
	// DesignName groups the WorkQueue map functions.
	DesignName = "WorkQueue"
	// JobStatusByRequestMap is the registered name of JobStatusByRequest.
	JobStatusByRequestMap = DesignName + "/jobStatusByRequest"
)

// JobStatusByRequest emits ([RequestName, Status], jobs) for every WorkQueue
// element whose Jobs count is null or non-negative. Null counts index as 0.
// RequestName and Status are copied into the key as they are, nil when missing.
func JobStatusByRequest(doc domain.Document) []domain.Emission {
	ele, ok := ElementOf(doc)
	if !ok {
		return nil
	}
	jobs := ParseJobs(ele)
	if !jobs.Admitted() {
		return nil
	}
	key := []interface{}{ele[FieldRequestName], ele[FieldStatus]}
	return []domain.Emission{{Key: key, Value: jobs.IndexValue()}}
}

// RegisterViews adds the WorkQueue map functions to reg.
func RegisterViews(reg *indexing.Registry) error {
	return reg.Register(JobStatusByRequestMap, JobStatusByRequest)
}
