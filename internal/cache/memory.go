package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory keeps entries in process. Tag membership is tracked alongside;
// stale memberships for expired keys are harmless and dropped on the next
// invalidation of that tag.
type Memory struct {
	entries *gocache.Cache

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Memory{
		entries: gocache.New(ttl, 2*ttl),
		tags:    make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, bool) {
	x, found := m.entries.Get(key)
	if !found {
		return nil, false
	}
	return x.(*Entry), true
}

func (m *Memory) Set(_ context.Context, key string, entry *Entry, tags []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries.Set(key, entry, gocache.DefaultExpiration)
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

func (m *Memory) Invalidate(_ context.Context, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tag := range tags {
		for key := range m.tags[tag] {
			m.entries.Delete(key)
		}
		delete(m.tags, tag)
	}
}
