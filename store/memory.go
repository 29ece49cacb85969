package store

import (
	"sync"

	"github.com/tonicpow/dap-engine-go/object"
)

// Memory is the in-process store backing the simulated stack. The engine
// is single-writer; the lock only guards read paths running beside it.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]interface{}
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]interface{})}
}

// Insert implements Store. Exact duplicates are detected by canonical
// serialization, so field order does not defeat the check.
func (m *Memory) Insert(collection string, doc interface{}) bool {
	enc, err := object.CanonicalJSON(doc)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.collections[collection] {
		existingEnc, encErr := object.CanonicalJSON(existing)
		if encErr == nil && string(existingEnc) == string(enc) {
			return false
		}
	}
	m.collections[collection] = append(m.collections[collection], doc)
	return true
}

// Find implements Store
func (m *Memory) Find(collection string, match Predicate) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.collections[collection] {
		if match(doc) {
			return doc, true
		}
	}
	return nil, false
}

// Update implements Store
func (m *Memory) Update(collection string, match Predicate, apply func(doc interface{}) interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	for i, doc := range docs {
		if match(doc) {
			docs[i] = apply(doc)
			return true
		}
	}
	return false
}

// Remove implements Store
func (m *Memory) Remove(collection string, match Predicate) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	kept := docs[:0]
	removed := 0
	for _, doc := range docs {
		if match(doc) {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	m.collections[collection] = kept
	return removed
}

// Search implements Store
func (m *Memory) Search(collection string, match Predicate) []interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []interface{}
	for _, doc := range m.collections[collection] {
		if match(doc) {
			out = append(out, doc)
		}
	}
	return out
}

// Collection implements Store
func (m *Memory) Collection(collection string) []interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	out := make([]interface{}, len(docs))
	copy(out, docs)
	return out
}

// Size implements Store
func (m *Memory) Size(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// Clean implements Store
func (m *Memory) Clean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string][]interface{})
}
