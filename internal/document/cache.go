package document

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry struct {
	path     string
	content  string
	metadata Metadata
	lastAccessed time.Time
}

// lruCache is a byte-budgeted, insertion-order LRU. Eviction happens
// from the head of the queue before any insertion that would exceed
// the budget; cache and queue are always mutated together under one
// lock (P2).
type lruCache struct {
	budget int64

	mu      sync.Mutex
	entries map[string]*list.Element // path -> queue element
	queue   *list.List               // front = oldest
	total   int64
}

func newLRUCache(budget int64) *lruCache {
	return &lruCache{
		budget:  budget,
		entries: make(map[string]*list.Element),
		queue:   list.New(),
	}
}

func (c *lruCache) get(path string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[path]
	if !ok {
		return cacheEntry{}, false
	}
	entry := el.Value.(*cacheEntry)
	entry.lastAccessed = time.Now()
	c.queue.MoveToBack(el)
	return *entry, true
}

// put inserts or replaces an entry, evicting from the head of the
// queue until the budget is satisfied. Entries larger than the budget
// are simply not cached (get_document_content still succeeds; the
// content is just never stored).
func (c *lruCache) put(path string, content string, meta Metadata) {
	size := int64(len(content))
	if size > c.budget {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[path]; ok {
		old := el.Value.(*cacheEntry)
		c.total -= int64(len(old.content))
		c.queue.Remove(el)
		delete(c.entries, path)
	}
	for c.total+size > c.budget && c.queue.Len() > 0 {
		front := c.queue.Front()
		c.evictLocked(front)
	}
	entry := &cacheEntry{path: path, content: content, metadata: meta, lastAccessed: time.Now()}
	el := c.queue.PushBack(entry)
	c.entries[path] = el
	c.total += size
}

func (c *lruCache) evictLocked(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.total -= int64(len(entry.content))
	c.queue.Remove(el)
	delete(c.entries, entry.path)
}

// invalidate removes a path's entry, if present, decrementing total.
func (c *lruCache) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[path]; ok {
		c.evictLocked(el)
	}
}

func (c *lruCache) totalBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
