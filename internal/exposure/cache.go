package exposure

import "sync"

// ModelCache is a thread-safe LRU of built storm models keyed by track
// revision and model parameters. Callers own it and share one across
// evaluators that should reuse envelopes.
type ModelCache struct {
	models *lru[string, *Model]
}

// NewModelCache creates a cache holding up to maxEntries models. A
// non-positive size disables caching.
func NewModelCache(maxEntries int) *ModelCache {
	return &ModelCache{models: newLRU[string, *Model](maxEntries)}
}

// Len returns the number of cached models.
func (c *ModelCache) Len() int { return c.models.len() }

func (c *ModelCache) get(key string) (*Model, bool) { return c.models.get(key) }

func (c *ModelCache) put(key string, m *Model) { c.models.put(key, m) }

// lru is a bounded map that evicts the least recently used key.
type lru[K comparable, V any] struct {
	capacity int

	mu    sync.Mutex
	index map[K]*lruNode[K, V]
	head  *lruNode[K, V] // most recently used
	tail  *lruNode[K, V]
}

type lruNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *lruNode[K, V]
}

func newLRU[K comparable, V any](capacity int) *lru[K, V] {
	return &lru[K, V]{capacity: capacity, index: make(map[K]*lruNode[K, V])}
}

func (l *lru[K, V]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.index)
}

func (l *lru[K, V]) get(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.touch(n)
	return n.value, true
}

func (l *lru[K, V]) put(key K, value V) {
	if l.capacity <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if n, ok := l.index[key]; ok {
		n.value = value
		l.touch(n)
		return
	}
	n := &lruNode[K, V]{key: key, value: value}
	l.index[key] = n
	l.pushFront(n)
	for len(l.index) > l.capacity {
		oldest := l.tail
		l.unlink(oldest)
		delete(l.index, oldest.key)
	}
}

func (l *lru[K, V]) touch(n *lruNode[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

func (l *lru[K, V]) pushFront(n *lruNode[K, V]) {
	n.prev, n.next = nil, l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lru[K, V]) unlink(n *lruNode[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
