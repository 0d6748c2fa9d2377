package storage

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

type cacheEntry struct {
	collection *domain.Collection
	info       *CollectionInfo
}

// collectionCache keeps the most recently used collections in memory.
// Collections whose eviction could not be saved are held outside the LRU
// until a later save succeeds.
type collectionCache struct {
	lru  *lru.Cache[string, *cacheEntry]
	held map[string]*cacheEntry
}

func newCollectionCache(capacity int, onEvict func(name string, entry *cacheEntry)) *collectionCache {
	cache, err := lru.NewWithEvict[string, *cacheEntry](capacity, onEvict)
	if err != nil {
		// Only returned for capacity <= 0
		panic(err)
	}
	return &collectionCache{lru: cache, held: make(map[string]*cacheEntry)}
}

func (c *collectionCache) Get(name string) (*domain.Collection, *CollectionInfo, bool) {
	entry, ok := c.lru.Get(name)
	if !ok {
		entry, ok = c.held[name]
	}
	if !ok {
		return nil, nil, false
	}
	return entry.collection, entry.info, true
}

func (c *collectionCache) Put(name string, collection *domain.Collection, info *CollectionInfo) {
	delete(c.held, name)
	c.lru.Add(name, &cacheEntry{collection: collection, info: info})
}

func (c *collectionCache) Remove(name string) {
	c.lru.Remove(name)
	delete(c.held, name)
}

// hold keeps an evicted entry reachable.
func (c *collectionCache) hold(name string, entry *cacheEntry) {
	c.held[name] = entry
}

// release drops a held entry and reports whether there was one.
func (c *collectionCache) release(name string) bool {
	if _, ok := c.held[name]; !ok {
		return false
	}
	delete(c.held, name)
	return true
}

// Held returns the number of collections held after a failed eviction.
func (c *collectionCache) Held() int {
	return len(c.held)
}

func (c *collectionCache) Len() int {
	return c.lru.Len()
}
