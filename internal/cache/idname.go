package cache

import (
	"sync"
	"sync/atomic"
)

// IDNameMap is the unbounded, TTL-free name↔id cache for concepts and
// categories. Rebuild replaces its contents wholesale (e.g. after a
// reseed); Put populates it incrementally as individual lookups resolve.
type IDNameMap struct {
	mu     sync.RWMutex
	nameID map[string]uint64
	idName map[uint64]string
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewIDNameMap() *IDNameMap {
	return &IDNameMap{
		nameID: make(map[string]uint64),
		idName: make(map[uint64]string),
	}
}

// Rebuild replaces the map's contents wholesale, as happens at startup or
// after a reseed.
func (m *IDNameMap) Rebuild(entries map[string]uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nameID = make(map[string]uint64, len(entries))
	m.idName = make(map[uint64]string, len(entries))
	for name, id := range entries {
		m.nameID[name] = id
		m.idName[id] = name
	}
}

func (m *IDNameMap) Put(name string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nameID[name] = id
	m.idName[id] = name
}

func (m *IDNameMap) IDByName(name string) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.nameID[name]
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return id, ok
}

func (m *IDNameMap) NameByID(id uint64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.idName[id]
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return name, ok
}

func (m *IDNameMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nameID)
}

func (m *IDNameMap) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load()}
}
