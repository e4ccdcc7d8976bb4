package cache

import (
	"container/list"
	"sync"
	"time"
)

// localEntry is one slot in the local tier.
type localEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// localStore is the in-process cache tier: a bounded store with
// least-recently-used eviction and one fixed TTL applied uniformly to every
// entry. The per-call TTL given to Manager.Set applies to the distributed
// tier only.
//
// The store exclusively owns its state; all access goes through the mutex.
type localStore struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	items    map[string]*list.Element
	now      func() time.Time // swapped in tests
}

func newLocalStore(capacity int, ttl time.Duration) *localStore {
	return &localStore{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// get returns the stored value and bumps its recency. Expired entries are
// removed on access.
func (s *localStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*localEntry)
	if s.now().After(entry.expiresAt) {
		s.removeElement(elem)
		return nil, false
	}

	s.order.MoveToFront(elem)
	return entry.value, true
}

// set inserts unconditionally; eviction happens lazily once the store is
// over capacity.
func (s *localStore) set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)

	if elem, ok := s.items[key]; ok {
		entry := elem.Value.(*localEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		s.order.MoveToFront(elem)
		return
	}

	elem := s.order.PushFront(&localEntry{key: key, value: value, expiresAt: expiresAt})
	s.items[key] = elem

	for len(s.items) > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.removeElement(oldest)
		CacheEvictions.Inc()
	}

	CacheLocalEntries.Set(float64(len(s.items)))
}

func (s *localStore) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		s.removeElement(elem)
		CacheLocalEntries.Set(float64(len(s.items)))
	}
}

func (s *localStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// removeElement must be called with the mutex held.
func (s *localStore) removeElement(elem *list.Element) {
	entry := elem.Value.(*localEntry)
	delete(s.items, entry.key)
	s.order.Remove(elem)
}
