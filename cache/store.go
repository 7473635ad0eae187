package cache

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"betting-bff-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Store is a bounded in-memory key-value cache with per-entry TTL and LRU
// eviction under capacity pressure. Expired entries are removed lazily on
// read; a janitor goroutine sweeps the remainder on an interval.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// New creates a Store. maxEntries <= 0 means unbounded; defaultTTL <= 0
// falls back to 5 minutes.
func New(maxEntries int, defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Store{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}
}

// Get returns the value for key if present and not expired. An expired entry
// is treated as absent and removed.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		s.misses.Add(1)
		return nil, false
	}

	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		s.removeElement(el)
		s.misses.Add(1)
		return nil, false
	}

	s.order.MoveToFront(el)
	s.hits.Add(1)
	return e.value, true
}

// Set inserts or overwrites the value for key with the given TTL.
// A ttl <= 0 uses the store's default TTL.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = time.Now().Add(ttl)
		s.order.MoveToFront(el)
		return
	}

	el := s.order.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	s.entries[key] = el

	// Capacity pressure: evict least-recently-used entries, regardless of TTL
	for s.maxEntries > 0 && s.order.Len() > s.maxEntries {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		log.Debugf("%s Evicting LRU key: %s", logcolors.LogCache, oldest.Value.(*entry).key)
		s.removeElement(oldest)
	}
}

// Invalidate removes the entry for key, if any.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.removeElement(el)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix. Used
// after mutating calls so related cached reads are not served stale.
func (s *Store) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, el := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.removeElement(el)
			removed++
		}
	}
	if removed > 0 {
		log.Infof("%s Invalidated %d entries with prefix %q", logcolors.LogCacheInvalidation, removed, prefix)
	}
	return removed
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*list.Element)
	s.order.Init()
}

// Size returns the current number of entries, expired or not.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Keys returns a snapshot of all cached keys.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// HitRate returns the cache hit rate as a percentage.
func (s *Store) HitRate() float64 {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Hits returns the number of cache hits recorded by Get.
func (s *Store) Hits() int64 { return s.hits.Load() }

// Misses returns the number of cache misses recorded by Get.
func (s *Store) Misses() int64 { return s.misses.Load() }

// sweep removes all expired entries and returns how many were deleted.
func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, el := range s.entries {
		if now.After(el.Value.(*entry).expiresAt) {
			s.removeElement(el)
			removed++
		}
	}
	return removed
}

// Janitor sweeps expired entries on the given interval until stop is closed.
// Expiry is still enforced lazily on Get; the janitor only reclaims memory
// for entries that are never read again.
func (s *Store) Janitor(interval time.Duration, stop <-chan struct{}) {
	log.Infof("%s Starting cache janitor (interval: %v)", logcolors.LogCacheInvalidation, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.sweep(); removed > 0 {
				log.Infof("%s Swept %d expired entries", logcolors.LogCacheInvalidation, removed)
			}
		case <-stop:
			return
		}
	}
}

// removeElement must be called with s.mu held.
func (s *Store) removeElement(el *list.Element) {
	s.order.Remove(el)
	delete(s.entries, el.Value.(*entry).key)
}
