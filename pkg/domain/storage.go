package domain

// BatchUpdateOperation is one partial update in a batch update
type BatchUpdateOperation struct {
	ID      string   `json:"id"`
	Updates Document `json:"updates"`
}

// StorageEngine defines the interface for storage operations
// This is the core business interface that implementations must conform to
type StorageEngine interface {
	Insert(collName string, doc Document) (Document, error)
	BatchInsert(collName string, docs []Document) ([]Document, error)
	BatchUpdate(collName string, operations []BatchUpdateOperation) ([]Document, error)
	FindAll(collName string, filter map[string]interface{}, options *PaginationOptions) (*PaginationResult, error)
	FindAllStream(collName string, filter map[string]interface{}) (<-chan Document, error)
	GetById(collName, docId string) (Document, error)
	UpdateById(collName, docId string, updates Document) (Document, error)
	ReplaceById(collName, docId string, doc Document) (Document, error)
	DeleteById(collName, docId string) error
	CreateCollection(collName string) error
	DropCollection(collName string) error
	GetCollection(collName string) (*Collection, error)
	ListCollections() []string
	LoadCollectionMetadata(filename string) error
	SaveToFile(filename string) error
	GetMemoryStats() map[string]interface{}
	StartBackgroundWorkers()
	StopBackgroundWorkers()
}

// DatabaseEngine combines StorageEngine and ViewEngine interfaces
type DatabaseEngine interface {
	StorageEngine
	ViewEngine
}
