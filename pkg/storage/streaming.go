package storage

import (
	"github.com/adfharrison1/wqdb/pkg/domain"
)

// streamBufferSize is the capacity of the channel returned by FindAllStream
const streamBufferSize = 100

// FindAllStream streams documents in a collection that match the given filter criteria
// If filter is nil or empty, streams all documents. The matching documents are
// copied before streaming starts, so concurrent writes do not affect the stream.
func (se *StorageEngine) FindAllStream(collName string, filter map[string]interface{}) (<-chan domain.Document, error) {
	docs, err := se.matchingDocuments(collName, filter)
	if err != nil {
		return nil, err
	}
	sortByID(docs)

	out := make(chan domain.Document, streamBufferSize)
	go func() {
		defer close(out)
		for _, doc := range docs {
			out <- doc
		}
	}()

	return out, nil
}
